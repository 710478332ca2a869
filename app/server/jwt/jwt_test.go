package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestJWT(t *testing.T, key string) *JWT {
	t.Helper()

	j, err := New(key)
	if err != nil {
		t.Fatalf("new jwt: %v", err)
	}
	return j
}

func validClaims(role Role, subject string) *Claims {
	now := time.Now()
	return &Claims{
		SubjectID: subject,
		Role:      role,
		IssuedAt:  now.Unix(),
		Expires:   now.Add(time.Hour).Unix(),
	}
}

func TestSignParseRoundTrip(t *testing.T) {
	j := newTestJWT(t, "test-secret")

	claims := validClaims(RoleStudent, "STU001")
	token, err := j.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := j.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if parsed.SubjectID != "STU001" {
		t.Errorf("subject = %q, want STU001", parsed.SubjectID)
	}
	if parsed.Role != RoleStudent {
		t.Errorf("role = %q, want student", parsed.Role)
	}
	if parsed.Expires != claims.Expires {
		t.Errorf("expires = %d, want %d", parsed.Expires, claims.Expires)
	}
}

func TestParseRoleSurvivesRoundTrip(t *testing.T) {
	j := newTestJWT(t, "test-secret")

	for _, role := range []Role{RoleAdmin, RoleStudent} {
		token, err := j.Sign(validClaims(role, "subject"))
		if err != nil {
			t.Fatalf("sign as %s: %v", role, err)
		}
		parsed, err := j.Parse(token)
		if err != nil {
			t.Fatalf("parse as %s: %v", role, err)
		}
		if parsed.Role != role {
			t.Errorf("role = %q, want %q", parsed.Role, role)
		}
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	j1 := newTestJWT(t, "key-one")
	j2 := newTestJWT(t, "key-two")

	token, err := j1.Sign(validClaims(RoleAdmin, "admin"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := j2.Parse(token); !errors.Is(err, ErrTampered) {
		t.Errorf("parse with wrong key: err = %v, want ErrTampered", err)
	}
}

func TestParseRejectsSplicedClaims(t *testing.T) {
	j := newTestJWT(t, "test-secret")

	studentToken, err := j.Sign(validClaims(RoleStudent, "STU001"))
	if err != nil {
		t.Fatalf("sign student: %v", err)
	}
	adminToken, err := j.Sign(validClaims(RoleAdmin, "admin"))
	if err != nil {
		t.Fatalf("sign admin: %v", err)
	}

	// 把管理员令牌的声明部分接到学生令牌的签名上
	studentParts := strings.Split(studentToken, ".")
	adminParts := strings.Split(adminToken, ".")
	spliced := adminParts[0] + "." + adminParts[1] + "." + studentParts[2]

	if _, err := j.Parse(spliced); !errors.Is(err, ErrTampered) {
		t.Errorf("parse spliced token: err = %v, want ErrTampered", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	j := newTestJWT(t, "test-secret")

	now := time.Now()
	token, err := j.Sign(&Claims{
		SubjectID: "STU001",
		Role:      RoleStudent,
		IssuedAt:  now.Add(-2 * time.Hour).Unix(),
		Expires:   now.Add(-time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := j.Parse(token); !errors.Is(err, ErrExpired) {
		t.Errorf("parse expired token: err = %v, want ErrExpired", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	j := newTestJWT(t, "test-secret")

	for _, token := range []string{"", "garbage", "a.b", "a.b.c"} {
		if _, err := j.Parse(token); !errors.Is(err, ErrMalformed) {
			t.Errorf("parse %q: err = %v, want ErrMalformed", token, err)
		}
	}
}

func TestNewRejectsEmptyKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("new with empty key: want error")
	}
}
