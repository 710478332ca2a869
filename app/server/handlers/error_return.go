package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"secure-result-platform/app/server/audit"
	"secure-result-platform/app/server/auth"
	"secure-result-platform/app/server/results"
)

type ErrorMessage struct {
	Message string `json:"message"`
}

func (a *App) er(c echo.Context, statusCode int) error {
	return c.JSON(statusCode, &ErrorMessage{
		Message: http.StatusText(statusCode),
	})
}

func (a *App) erMsg(c echo.Context, statusCode int, msg string) error {
	return c.JSON(statusCode, &ErrorMessage{
		Message: msg,
	})
}

// erDomain 把领域错误映射为 HTTP 状态。凭据类失败只返回通用信息，
// 校验类失败（分数越界等）不涉及安全，可以返回具体原因。
func (a *App) erDomain(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return a.er(c, http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, results.ErrForbidden):
		return a.er(c, http.StatusForbidden)
	case errors.Is(err, results.ErrInvalidScore):
		return a.erMsg(c, http.StatusBadRequest, "Invalid score. Must be between 0 and 100")
	case errors.Is(err, auth.ErrDuplicateIdentity):
		return a.erMsg(c, http.StatusBadRequest, "Identity already exists")
	case errors.Is(err, results.ErrNotFound), errors.Is(err, results.ErrStudentNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return a.er(c, http.StatusNotFound)
	case errors.Is(err, results.ErrStoreUnavailable), errors.Is(err, audit.ErrWriteFailed):
		return a.er(c, http.StatusInternalServerError)
	default:
		a.l.Error("unexpected error", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
}

// mapStoreErr 把超时的存储操作标记为 StoreUnavailable ，
// 给 handler 层的直接查询用（协调器内部已经自己做了这层映射）
func mapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", results.ErrStoreUnavailable, err)
	}
	return err
}
