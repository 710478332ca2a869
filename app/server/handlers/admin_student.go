package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"secure-result-platform/app/server/auth"
)

type StudentRegisterRequest struct {
	Name     string `json:"name"`
	Matric   string `json:"matric"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type StudentInfo struct {
	ID     uint   `json:"id"`
	Matric string `json:"matric"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type PasswordSetRequest struct {
	Password string `json:"password"`
}

func (a *App) StudentRegister(c echo.Context) error {
	// 抓取 claims 信息（认证）
	claims, err, statusCode := a.authUser(c)
	if err != nil {
		a.l.Error("failed to auth user", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	// 绑定请求体
	var req StudentRegisterRequest
	if err = c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if req.Name == "" || req.Matric == "" || req.Email == "" || req.Password == "" {
		return a.er(c, http.StatusBadRequest)
	}

	student, err := a.authn.RegisterStudent(rctx, claims, &auth.RegisterStudentInput{
		Name:     req.Name,
		Matric:   req.Matric,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return a.erDomain(c, err)
	}

	return c.JSON(http.StatusCreated, &StudentInfo{
		ID:     student.ID,
		Matric: student.Matric,
		Name:   student.Name,
		Email:  student.Email,
	})
}

// StudentPasswordSet 是密码摘要唯一的变更入口
func (a *App) StudentPasswordSet(c echo.Context) error {
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

	// 绑定请求体
	var req PasswordSetRequest
	if err = c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if req.Password == "" {
		return a.er(c, http.StatusBadRequest)
	}

	if err := a.authn.SetStudentPassword(rctx, claims, matric, req.Password); err != nil {
		return a.erDomain(c, err)
	}

	return c.NoContent(http.StatusOK)
}
