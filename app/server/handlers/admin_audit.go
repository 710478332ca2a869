package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"secure-result-platform/app/server/audit"
	"secure-result-platform/app/server/constants"
	"secure-result-platform/app/server/models"
	"secure-result-platform/app/server/rbac"
)

type AuditLogView struct {
	ID        string    `json:"id"`
	ActorKind string    `json:"actor_kind"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditListResponse struct {
	Limit   int            `json:"limit"`
	PageMax int64          `json:"page_max"`
	List    []AuditLogView `json:"list"`
}

// AuditList 审计日志的只读视图，按时间倒序分页。只有管理员可读；
// 没有任何写入口：审计表只通过 Recorder 追加。
func (a *App) AuditList(c echo.Context) error {
	// 抓取 claims 信息（认证）
	claims, err, statusCode := a.authUser(c)
	if err != nil {
		a.l.Error("failed to auth user", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	if !rbac.Authorize(claims, rbac.OpAuditList, "") {
		if aerr := a.rec.Record(rctx, &audit.Entry{
			ActorKind: string(claims.Role),
			ActorID:   claims.SubjectID,
			Action:    "audit.list",
			Target:    "audit trail",
			Outcome:   audit.OutcomeDenied,
		}); aerr != nil {
			return a.erDomain(c, aerr)
		}
		return a.er(c, http.StatusForbidden)
	}

	page, limit := queryPagination(c.QueryParam("page"), c.QueryParam("limit"))
	showAll, parsedPage, parsedLimit := a.parsePagination(page, limit)

	// 查询数据库，超时按 StoreUnavailable 上报而不是一直挂着
	sctx, cancel := context.WithTimeout(rctx, constants.StoreTimeout)
	defer cancel()

	var (
		logs      []models.AuditLog
		logsCount int64
	)

	queryBase := a.db.WithContext(sctx).Model(&models.AuditLog{}).Order("created_at DESC, id DESC")
	if !showAll {
		queryBase = queryBase.Limit(parsedLimit).Offset(parsedPage * parsedLimit)
	}

	if err := queryBase.Find(&logs).Error; err != nil {
		a.l.Error("failed to get audit log list", zap.Error(err))
		return a.erDomain(c, mapStoreErr(err))
	}
	if err := a.db.WithContext(sctx).Model(&models.AuditLog{}).Count(&logsCount).Error; err != nil {
		a.l.Error("failed to count audit logs", zap.Error(err))
		return a.erDomain(c, mapStoreErr(err))
	}

	resLogs := []AuditLogView{}
	for _, log := range logs {
		resLogs = append(resLogs, AuditLogView{
			ID:        log.ID,
			ActorKind: log.ActorKind,
			ActorID:   log.ActorID,
			Action:    log.Action,
			Target:    log.Target,
			Outcome:   log.Outcome,
			CreatedAt: log.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, &AuditListResponse{
		Limit:   parsedLimit,
		PageMax: a.calcMaxPage(logsCount, showAll, parsedLimit),
		List:    resLogs,
	})
}
