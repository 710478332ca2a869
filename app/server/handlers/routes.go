package handlers

import "github.com/labstack/echo/v4"

// RegisterRoutes 绑定全部路由。受保护的路由在各自 handler 里
// 做令牌验证和授权（每个请求独立，无跨请求状态）。
func (a *App) RegisterRoutes(e *echo.Echo) {
	// 公开路由
	e.GET("/", a.Index)
	e.GET("/api/health", a.Healthcheck)

	// 认证
	e.POST("/api/auth/login", a.AuthLogin)

	// 管理端
	e.POST("/api/admin/students", a.StudentRegister)
	e.PUT("/api/admin/students/:matric/password", a.StudentPasswordSet)
	e.POST("/api/admin/admins", a.AdminRegister)
	e.POST("/api/admin/results", a.ResultUpload)
	e.GET("/api/admin/results", a.ResultList)
	e.PUT("/api/admin/results/:id", a.ResultUpdate)
	e.DELETE("/api/admin/results/:id", a.ResultDelete)
	e.GET("/api/admin/audit", a.AuditList)

	// 学生端（管理员也可用）
	e.GET("/api/student/results/:matric", a.StudentResults)
}
