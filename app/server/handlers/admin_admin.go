package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"secure-result-platform/app/server/auth"
)

type AdminRegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AdminRegister 注册新管理员。注册管理员本身就是特权操作，必须持有管理员令牌。
func (a *App) AdminRegister(c echo.Context) error {
	// 抓取 claims 信息（认证）
	claims, err, statusCode := a.authUser(c)
	if err != nil {
		a.l.Error("failed to auth user", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	// 绑定请求体
	var req AdminRegisterRequest
	if err = c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return a.er(c, http.StatusBadRequest)
	}

	admin, err := a.authn.RegisterAdmin(rctx, claims, &auth.RegisterAdminInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return a.erDomain(c, err)
	}

	return c.JSON(http.StatusCreated, &AdminInfo{
		ID:       admin.ID,
		Username: admin.Username,
		Email:    admin.Email,
	})
}
