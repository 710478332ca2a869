package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// 令牌校验的错误分类：格式错误、签名被篡改、已过期。
// 对调用方只暴露这三类，避免泄露更细的失败原因。
var (
	ErrMalformed = errors.New("malformed token")
	ErrTampered  = errors.New("tampered token")
	ErrExpired   = errors.New("expired token")
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

type JWT struct {
	key []byte
}

// Claims 是令牌里携带的全部内容：身份（用户名或学号）、角色、签发与过期时间。
// 角色在令牌生命周期内不可变；验证是纯计算，不需要查询存储。
type Claims struct {
	SubjectID string
	Role      Role
	IssuedAt  int64 // Unix second
	Expires   int64 // Unix second
}

func New(key string) (*JWT, error) {
	if len(key) == 0 {
		return nil, errors.New("key is empty")
	}

	return &JWT{key: []byte(key)}, nil
}

func (j *JWT) Sign(claims *Claims) (string, error) {
	// 创建声明
	mapClaims := jwt.MapClaims{
		"sub":  claims.SubjectID,
		"role": string(claims.Role),
		"iat":  claims.IssuedAt,
		"exp":  claims.Expires,
	}

	// 创建令牌
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)

	// 签名并返回
	return token.SignedString(j.key)
}

func (j *JWT) Parse(tokenString string) (*Claims, error) {
	// 检查是否有效
	if len(tokenString) == 0 {
		return nil, ErrMalformed
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return j.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, mapParseError(err)
	}

	// 匹配内容
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	claims := &Claims{}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.SubjectID = sub
	} else {
		return nil, ErrMalformed
	}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = Role(role)
	} else {
		return nil, ErrMalformed
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = int64(iat)
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.Expires = int64(exp)
	} else {
		return nil, ErrMalformed
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTampered
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %s", ErrMalformed, err)
	}
}
