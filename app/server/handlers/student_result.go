package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"secure-result-platform/app/server/audit"
	"secure-result-platform/app/server/constants"
	"secure-result-platform/app/server/models"
	"secure-result-platform/app/server/rbac"
)

type StudentResultsResponse struct {
	Results []ResultView `json:"results"`
}

// StudentResults 返回某个学生的全部成绩（含推导出的等级）。
// 学生只能查自己的，管理员可以查任何人的。查看行为本身也要留痕
// （谁看过谁的成绩是可追溯的），命中缓存同样如此。
func (a *App) StudentResults(c echo.Context) error {
	// 抓取 claims 信息（认证）
	claims, err, statusCode := a.authUser(c)
	if err != nil {
		a.l.Error("failed to auth user", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()
	matric := c.Param("matric")
	if matric == "" {
		return a.er(c, http.StatusBadRequest)
	}

	viewEntry := &audit.Entry{
		ActorKind: string(claims.Role),
		ActorID:   claims.SubjectID,
		Action:    "result.view",
		Target:    fmt.Sprintf("results of %s", matric),
	}

	// 授权：策略表里学生读成绩是条件允许，只能读自己的
	if !rbac.Authorize(claims, rbac.OpResultRead, matric) {
		viewEntry.Outcome = audit.OutcomeDenied
		if aerr := a.rec.Record(rctx, viewEntry); aerr != nil {
			return a.erDomain(c, aerr)
		}
		return a.er(c, http.StatusForbidden)
	}
	viewEntry.Outcome = audit.OutcomeSuccess

	// 授权通过之后才碰缓存
	cacheKey := fmt.Sprintf(constants.CacheKeyStudentResults, matric)
	if a.rdb != nil {
		var cached StudentResultsResponse
		if cacheBytes, err := a.rdb.Get(rctx, cacheKey).Bytes(); err != nil {
			if !errors.Is(err, redis.Nil) {
				a.l.Error("failed to query results cache", zap.String("matric", matric), zap.Error(err))
			}
		} else if err = json.Unmarshal(cacheBytes, &cached); err != nil {
			a.l.Error("failed to unmarshal cached results", zap.String("matric", matric), zap.Error(err))
			// 可能是无效的缓存，清理掉
			a.rdb.Del(rctx, cacheKey)
		} else {
			// 成功拉取到并格式化
			if aerr := a.rec.Record(rctx, viewEntry); aerr != nil {
				return a.erDomain(c, aerr)
			}
			return c.JSON(http.StatusOK, &cached)
		}
	}

	// 查询数据库，超时按 StoreUnavailable 上报而不是一直挂着
	sctx, cancel := context.WithTimeout(rctx, constants.StoreTimeout)
	defer cancel()

	var list []models.Result
	if err := a.db.WithContext(sctx).Order("id ASC").Find(&list, "matric = ?", matric).Error; err != nil {
		a.l.Error("failed to get results", zap.String("matric", matric), zap.Error(err))
		return a.erDomain(c, mapStoreErr(err))
	}

	if aerr := a.rec.Record(rctx, viewEntry); aerr != nil {
		return a.erDomain(c, aerr)
	}

	res := &StudentResultsResponse{Results: toResultViews(list)}

	// 格式化并加入缓存，方便下一次查询
	if a.rdb != nil {
		if cacheBytes, err := json.Marshal(res); err != nil {
			a.l.Error("failed to marshal results", zap.String("matric", matric), zap.Error(err))
		} else {
			a.rdb.Set(rctx, cacheKey, cacheBytes, constants.CacheExpireStudentResults)
		}
	}

	return c.JSON(http.StatusOK, res)
}
