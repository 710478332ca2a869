package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"secure-result-platform/app/server/audit"
	"secure-result-platform/app/server/auth"
	"secure-result-platform/app/server/jwt"
	"secure-result-platform/app/server/models"
	"secure-result-platform/app/server/results"
)

const testSigningKey = "test-secret"

func setupServer(t *testing.T) (*echo.Echo, *jwt.JWT, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}, &models.Student{}, &models.Result{}, &models.AuditLog{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	adminHash, err := argon2id.CreateHash("admin123", argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}
	studentHash, err := argon2id.CreateHash("student123", argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash student password: %v", err)
	}

	seed := []any{
		&models.Admin{Username: "admin", Name: "Platform Admin", Email: "admin@example.com", Password: adminHash},
		&models.Student{Matric: "STU001", Name: "John Doe", Email: "john@example.com", Password: studentHash},
		&models.Student{Matric: "STU002", Name: "Jane Doe", Email: "jane@example.com", Password: studentHash},
	}
	for _, record := range seed {
		if err := db.Create(record).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	j, err := jwt.New(testSigningKey)
	if err != nil {
		t.Fatalf("new jwt: %v", err)
	}

	l := zap.NewNop()
	rec := audit.NewRecorder(db, l)
	authn, err := auth.NewAuthenticator(db, j, rec, l)
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	co := results.NewCoordinator(db, rec, l)

	e := echo.New()
	NewApp(l, db, nil, j, authn, co, rec).RegisterRoutes(e)

	return e, j, db
}

func doJSON(t *testing.T, e *echo.Echo, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, e *echo.Echo, identifier string, password string, role string) string {
	t.Helper()

	rr := doJSON(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": identifier,
		"password":   password,
		"role":       role,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login(%s as %s): status = %d, body = %s", identifier, role, rr.Code, rr.Body.String())
	}

	var res LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	if res.Role != role {
		t.Fatalf("login role = %q, want %q", res.Role, role)
	}
	return res.AccessToken
}

func TestEndToEndScenario(t *testing.T) {
	e, _, db := setupServer(t)

	// 管理员登录并上传成绩
	adminToken := login(t, e, "admin", "admin123", "admin")

	rr := doJSON(t, e, http.MethodPost, "/api/admin/results", adminToken, map[string]any{
		"matric":  "STU001",
		"subject": "Mathematics",
		"score":   85,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var created ResultView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal upload response: %v", err)
	}
	if created.Grade != "A" {
		t.Errorf("grade = %q, want A", created.Grade)
	}

	// 学生只能看到自己的成绩
	studentToken := login(t, e, "STU001", "student123", "student")

	rr = doJSON(t, e, http.MethodGet, "/api/student/results/STU001", studentToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("own results: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var own StudentResultsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &own); err != nil {
		t.Fatalf("unmarshal results: %v", err)
	}
	if len(own.Results) != 1 || own.Results[0].Subject != "Mathematics" || own.Results[0].Score != 85 {
		t.Errorf("unexpected results: %+v", own.Results)
	}

	rr = doJSON(t, e, http.MethodGet, "/api/student/results/STU002", studentToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("other student results: status = %d, want 403", rr.Code)
	}

	// 管理员可以查任何学生
	rr = doJSON(t, e, http.MethodGet, "/api/student/results/STU001", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("admin view of student results: status = %d, want 200", rr.Code)
	}

	// 被拒绝的读取也留了痕
	var denied int64
	if err := db.Model(&models.AuditLog{}).Where("outcome = ?", audit.OutcomeDenied).Count(&denied).Error; err != nil {
		t.Fatalf("count denied audits: %v", err)
	}
	if denied != 1 {
		t.Errorf("denied audits = %d, want 1", denied)
	}
}

func TestStudentCannotMutate(t *testing.T) {
	e, _, _ := setupServer(t)
	studentToken := login(t, e, "STU001", "student123", "student")

	rr := doJSON(t, e, http.MethodPost, "/api/admin/results", studentToken, map[string]any{
		"matric":  "STU001",
		"subject": "Mathematics",
		"score":   100,
	})
	if rr.Code != http.StatusForbidden {
		t.Errorf("student upload: status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, e, http.MethodGet, "/api/admin/results", studentToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("student list: status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, e, http.MethodGet, "/api/admin/audit", studentToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("student audit list: status = %d, want 403", rr.Code)
	}
}

func TestInvalidScoreRejected(t *testing.T) {
	e, _, db := setupServer(t)
	adminToken := login(t, e, "admin", "admin123", "admin")

	rr := doJSON(t, e, http.MethodPost, "/api/admin/results", adminToken, map[string]any{
		"matric":  "STU001",
		"subject": "Mathematics",
		"score":   150,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("upload score 150: status = %d, want 400", rr.Code)
	}

	var count int64
	if err := db.Model(&models.Result{}).Count(&count).Error; err != nil {
		t.Fatalf("count results: %v", err)
	}
	if count != 0 {
		t.Errorf("result rows = %d, want 0", count)
	}
}

func TestTokenRequired(t *testing.T) {
	e, j, _ := setupServer(t)

	// 无令牌、坏令牌、过期令牌都一视同仁 401
	rr := doJSON(t, e, http.MethodGet, "/api/student/results/STU001", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rr.Code)
	}

	rr = doJSON(t, e, http.MethodGet, "/api/student/results/STU001", "garbage", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", rr.Code)
	}

	now := time.Now()
	expired, err := j.Sign(&jwt.Claims{
		SubjectID: "STU001",
		Role:      jwt.RoleStudent,
		IssuedAt:  now.Add(-2 * time.Hour).Unix(),
		Expires:   now.Add(-time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	rr = doJSON(t, e, http.MethodGet, "/api/student/results/STU001", expired, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expired token: status = %d, want 401", rr.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e, _, _ := setupServer(t)

	rr := doJSON(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "admin",
		"password":   "wrong",
		"role":       "admin",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad password: status = %d, want 401", rr.Code)
	}

	rr = doJSON(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "admin",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status = %d, want 400", rr.Code)
	}
}

func TestRegisterAndDeleteFlow(t *testing.T) {
	e, _, _ := setupServer(t)
	adminToken := login(t, e, "admin", "admin123", "admin")

	// 注册新学生
	rr := doJSON(t, e, http.MethodPost, "/api/admin/students", adminToken, map[string]string{
		"name":     "New Student",
		"matric":   "STU003",
		"email":    "new@example.com",
		"password": "pass12345",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register student: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	// 上传后删除
	rr = doJSON(t, e, http.MethodPost, "/api/admin/results", adminToken, map[string]any{
		"matric":  "STU003",
		"subject": "Physics",
		"score":   42,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var created ResultView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Grade != "E" {
		t.Errorf("grade = %q, want E", created.Grade)
	}

	rr = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/api/admin/results/%d", created.ID), adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/api/admin/results/%d", created.ID), adminToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("delete again: status = %d, want 404", rr.Code)
	}
}

func TestAuditTrailListing(t *testing.T) {
	e, _, _ := setupServer(t)
	adminToken := login(t, e, "admin", "admin123", "admin")

	doJSON(t, e, http.MethodPost, "/api/admin/results", adminToken, map[string]any{
		"matric":  "STU001",
		"subject": "Mathematics",
		"score":   85,
	})

	rr := doJSON(t, e, http.MethodGet, "/api/admin/audit", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("audit list: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var res AuditListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal audit list: %v", err)
	}
	// 至少包含登录和上传两条
	if len(res.List) < 2 {
		t.Errorf("audit entries = %d, want >= 2", len(res.List))
	}
	for _, entry := range res.List {
		if entry.Outcome != audit.OutcomeSuccess {
			t.Errorf("unexpected outcome %q in %+v", entry.Outcome, entry)
		}
	}
}

func TestMapStoreErr(t *testing.T) {
	// 超时映射为 StoreUnavailable ，其它错误原样透传
	wrapped := fmt.Errorf("query: %w", context.DeadlineExceeded)
	if err := mapStoreErr(wrapped); !errors.Is(err, results.ErrStoreUnavailable) {
		t.Errorf("deadline exceeded: err = %v, want ErrStoreUnavailable", err)
	}

	plain := errors.New("boom")
	if err := mapStoreErr(plain); !errors.Is(err, plain) || errors.Is(err, results.ErrStoreUnavailable) {
		t.Errorf("plain error: err = %v, want passthrough", err)
	}
}

func TestHealthcheck(t *testing.T) {
	e, _, _ := setupServer(t)

	rr := doJSON(t, e, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("health: status = %d, want 200", rr.Code)
	}
}
