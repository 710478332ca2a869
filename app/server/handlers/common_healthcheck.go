package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// 健康检查与根信息，不做认证
func (a *App) Healthcheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Secure Result Platform API",
	})
}

func (a *App) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Secure Result Platform API",
		"version": "1.0.0",
	})
}
