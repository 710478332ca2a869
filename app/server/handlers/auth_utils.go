package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"secure-result-platform/app/server/jwt"
)

// authUser 从 Authorization 头提取并验证令牌。
// 令牌验证是纯计算，这里不访问任何存储。
func (a *App) authUser(c echo.Context) (*jwt.Claims, error, int) {
	// 提取 token
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("missing auth token"), http.StatusUnauthorized
	}

	splits := strings.Split(authHeader, " ")
	if len(splits) != 2 {
		return nil, fmt.Errorf("invalid auth header"), http.StatusUnauthorized
	}

	if strings.ToLower(splits[0]) != "bearer" {
		return nil, fmt.Errorf("unknown auth method: %s", splits[0]), http.StatusUnauthorized
	}

	// 验证 token ：格式、签名、有效期（过期就是过期，没有宽限）。
	// 无论是哪一类失败，对外都只是 401 ，不区分原因。
	claims, err := a.jwt.Parse(splits[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err), http.StatusUnauthorized
	}

	return claims, nil, http.StatusOK
}
