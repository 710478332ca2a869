package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"secure-result-platform/app/server/jwt"
)

type LoginRequest struct {
	Identifier string `json:"identifier"` // 管理员用户名或学生学号
	Password   string `json:"password"`
	Role       string `json:"role"` // admin / student
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
	Name        string    `json:"name"`
	Matric      string    `json:"matric,omitempty"`
	Email       string    `json:"email,omitempty"`
}

func (a *App) AuthLogin(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}

	// 缺少必填字段
	if req.Identifier == "" || req.Password == "" || req.Role == "" {
		return a.er(c, http.StatusBadRequest)
	}

	res, err := a.authn.Login(rctx, req.Identifier, req.Password, jwt.Role(req.Role))
	if err != nil {
		return a.erDomain(c, err)
	}

	// 返回
	return c.JSON(http.StatusOK, &LoginResponse{
		AccessToken: res.Token,
		ExpiresAt:   res.ExpiresAt,
		Role:        string(res.Role),
		Name:        res.Name,
		Matric:      res.Matric,
		Email:       res.Email,
	})
}
