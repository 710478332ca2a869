package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"secure-result-platform/app/server/constants"
	"secure-result-platform/app/server/results"
)

type ResultUploadRequest struct {
	Matric  string   `json:"matric"`
	Subject string   `json:"subject"`
	Score   *float64 `json:"score"`
}

type ResultUpdateRequest struct {
	Subject *string  `json:"subject"`
	Score   *float64 `json:"score"`
}

type ResultListResponse struct {
	Limit   int          `json:"limit"`
	PageMax int64        `json:"page_max"`
	List    []ResultView `json:"list"`
}

func (a *App) ResultUpload(c echo.Context) error {
	// 抓取 claims 信息（认证）
	claims, err, statusCode := a.authUser(c)
	if err != nil {
		a.l.Error("failed to auth user", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	// 绑定请求体
	var req ResultUploadRequest
	if err = c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if req.Matric == "" || req.Subject == "" || req.Score == nil {
		return a.er(c, http.StatusBadRequest)
	}

	result, err := a.co.Upload(rctx, claims, &results.UploadInput{
		Matric:  req.Matric,
		Subject: req.Subject,
		Score:   *req.Score,
	})
	if err != nil {
		return a.erDomain(c, err)
	}

	// 学生成绩变了，对应缓存作废
	a.invalidateResultsCache(c, result.Matric)

	return c.JSON(http.StatusCreated, toResultView(result))
}

func (a *App) ResultList(c echo.Context) error {
	// 抓取 claims 信息（认证）
	claims, err, statusCode := a.authUser(c)
	if err != nil {
		a.l.Error("failed to auth user", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	page, limit := queryPagination(c.QueryParam("page"), c.QueryParam("limit"))
	showAll, parsedPage, parsedLimit := a.parsePagination(page, limit)

	offset := parsedPage * parsedLimit
	if showAll {
		parsedLimit = -1
		offset = -1
	}

	list, count, err := a.co.List(rctx, claims, offset, parsedLimit)
	if err != nil {
		return a.erDomain(c, err)
	}

	return c.JSON(http.StatusOK, &ResultListResponse{
		Limit:   parsedLimit,
		PageMax: a.calcMaxPage(count, showAll, parsedLimit),
		List:    toResultViews(list),
	})
}

func (a *App) ResultUpdate(c echo.Context) error {
	// 抓取 claims 信息（认证）
	claims, err, statusCode := a.authUser(c)
	if err != nil {
		a.l.Error("failed to auth user", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	// 提取 ID
	idUint64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	// 绑定请求体
	var req ResultUpdateRequest
	if err = c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}

	result, err := a.co.Update(rctx, claims, uint(idUint64), &results.UpdateInput{
		Subject: req.Subject,
		Score:   req.Score,
	})
	if err != nil {
		return a.erDomain(c, err)
	}

	a.invalidateResultsCache(c, result.Matric)

	return c.JSON(http.StatusOK, toResultView(result))
}

func (a *App) ResultDelete(c echo.Context) error {
	// 抓取 claims 信息（认证）
	claims, err, statusCode := a.authUser(c)
	if err != nil {
		a.l.Error("failed to auth user", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	// 提取 ID
	idUint64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	result, err := a.co.Delete(rctx, claims, uint(idUint64))
	if err != nil {
		return a.erDomain(c, err)
	}

	a.invalidateResultsCache(c, result.Matric)

	return c.NoContent(http.StatusOK)
}

// invalidateResultsCache 删除学生成绩缓存。缓存只是加速读取，
// 删除失败不影响主流程，记一条日志即可（有 TTL 兜底）。
func (a *App) invalidateResultsCache(c echo.Context, matric string) {
	rctx := c.Request().Context()
	cacheKey := fmt.Sprintf(constants.CacheKeyStudentResults, matric)
	if a.rdb != nil {
		if err := a.rdb.Del(rctx, cacheKey).Err(); err != nil {
			a.l.Error("failed to invalidate results cache", zap.String("matric", matric), zap.Error(err))
		}
	}
}
