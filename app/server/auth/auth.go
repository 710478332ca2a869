package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"secure-result-platform/app/server/audit"
	"secure-result-platform/app/server/constants"
	"secure-result-platform/app/server/jwt"
	"secure-result-platform/app/server/models"
	"secure-result-platform/app/server/rbac"
)

var (
	// 身份不存在和密码错误返回同一个错误，避免通过错误信息枚举账号
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
)

const (
	actionLogin           = "login"
	actionStudentRegister = "student.register"
	actionAdminRegister   = "admin.register"
	actionPasswordSet     = "password.set"
)

type Authenticator struct {
	db  *gorm.DB
	jwt *jwt.JWT
	rec *audit.Recorder
	l   *zap.Logger

	// 身份不存在时也对这个占位 hash 做一次完整校验，
	// 让失败路径的耗时和密码错误一致（防时序枚举）
	dummyHash string
}

func NewAuthenticator(db *gorm.DB, j *jwt.JWT, rec *audit.Recorder, l *zap.Logger) (*Authenticator, error) {
	dummyHash, err := argon2id.CreateHash("placeholder", argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create dummy hash: %w", err)
	}

	return &Authenticator{
		db:        db,
		jwt:       j,
		rec:       rec,
		l:         l,
		dummyHash: dummyHash,
	}, nil
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Role      jwt.Role
	Name      string
	Matric    string // 仅学生
	Email     string // 仅管理员
}

// Login 按 (声称的角色, 标识) 查找身份并校验密码，成功则签发限时令牌。
// 令牌里的角色就是声称的角色：查找本身已经按角色划分，不再单独推断。
// 每次调用无论成败都留一条审计记录。
func (a *Authenticator) Login(ctx context.Context, identifier string, password string, role jwt.Role) (*LoginResult, error) {
	sctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	res := &LoginResult{Role: role}
	storedHash := ""
	found := false

	switch role {
	case jwt.RoleAdmin:
		var admin models.Admin
		if err := a.db.WithContext(sctx).First(&admin, "username = ?", identifier).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to find admin: %w", err)
			}
		} else {
			found = true
			storedHash = admin.Password
			res.Name = admin.Username
			res.Email = admin.Email
		}

	case jwt.RoleStudent:
		var student models.Student
		if err := a.db.WithContext(sctx).First(&student, "matric = ? AND disabled = ?", identifier, false).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to find student: %w", err)
			}
		} else {
			found = true
			storedHash = student.Password
			res.Name = student.Name
			res.Matric = student.Matric
		}

	default:
		// 未知角色和凭据错误同样处理
	}

	if !found {
		storedHash = a.dummyHash
	}

	match, _, err := argon2id.CheckHash(password, storedHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check password: %w", err)
	}

	if !found || !match {
		if aerr := a.rec.Record(ctx, &audit.Entry{
			ActorKind: "unknown",
			ActorID:   identifier,
			Action:    actionLogin,
			Target:    fmt.Sprintf("as %s", role),
			Outcome:   audit.OutcomeDenied,
		}); aerr != nil {
			return nil, aerr
		}
		return nil, ErrInvalidCredentials
	}

	// 签出令牌
	now := time.Now()
	expires := now.Add(constants.AuthTokenDuration)
	token, err := a.jwt.Sign(&jwt.Claims{
		SubjectID: identifier,
		Role:      role,
		IssuedAt:  now.Unix(),
		Expires:   expires.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	res.Token = token
	res.ExpiresAt = expires

	if aerr := a.rec.Record(ctx, &audit.Entry{
		ActorKind: string(role),
		ActorID:   identifier,
		Action:    actionLogin,
		Target:    fmt.Sprintf("as %s", role),
		Outcome:   audit.OutcomeSuccess,
	}); aerr != nil {
		return nil, aerr
	}

	return res, nil
}

type RegisterStudentInput struct {
	Name     string
	Matric   string
	Email    string
	Password string
}

// RegisterStudent 注册新学生，只允许管理员操作
func (a *Authenticator) RegisterStudent(ctx context.Context, claims *jwt.Claims, in *RegisterStudentInput) (*models.Student, error) {
	target := fmt.Sprintf("student %s", in.Matric)

	if !rbac.Authorize(claims, rbac.OpStudentRegister, "") {
		return nil, a.deny(ctx, claims, actionStudentRegister, target)
	}

	sctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	// 学号和邮箱都不允许重复
	var count int64
	if err := a.db.WithContext(sctx).Model(&models.Student{}).
		Where("matric = ? OR email = ?", in.Matric, in.Email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	if count > 0 {
		if aerr := a.rec.Record(ctx, a.entry(claims, actionStudentRegister, target, audit.OutcomeError)); aerr != nil {
			return nil, aerr
		}
		return nil, ErrDuplicateIdentity
	}

	passwordHash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	student := models.Student{
		Matric:   in.Matric,
		Name:     in.Name,
		Email:    in.Email,
		Password: passwordHash,
	}

	txErr := a.db.WithContext(sctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&student).Error; err != nil {
			return err
		}
		return a.rec.RecordTx(ctx, tx, a.entry(claims, actionStudentRegister, target, audit.OutcomeSuccess))
	})
	if txErr != nil {
		if errors.Is(txErr, audit.ErrWriteFailed) {
			return nil, txErr
		}
		if aerr := a.rec.Record(ctx, a.entry(claims, actionStudentRegister, target, audit.OutcomeError)); aerr != nil {
			return nil, aerr
		}
		return nil, fmt.Errorf("failed to create student: %w", txErr)
	}

	return &student, nil
}

type RegisterAdminInput struct {
	Username string
	Email    string
	Password string
}

// RegisterAdmin 注册新管理员。和学生注册一样走策略表：必须持有管理员令牌。
func (a *Authenticator) RegisterAdmin(ctx context.Context, claims *jwt.Claims, in *RegisterAdminInput) (*models.Admin, error) {
	target := fmt.Sprintf("admin %s", in.Username)

	if !rbac.Authorize(claims, rbac.OpAdminRegister, "") {
		return nil, a.deny(ctx, claims, actionAdminRegister, target)
	}

	sctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	var count int64
	if err := a.db.WithContext(sctx).Model(&models.Admin{}).
		Where("username = ? OR email = ?", in.Username, in.Email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		if aerr := a.rec.Record(ctx, a.entry(claims, actionAdminRegister, target, audit.OutcomeError)); aerr != nil {
			return nil, aerr
		}
		return nil, ErrDuplicateIdentity
	}

	passwordHash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := models.Admin{
		Username: in.Username,
		Email:    in.Email,
		Password: passwordHash,
	}

	txErr := a.db.WithContext(sctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		return a.rec.RecordTx(ctx, tx, a.entry(claims, actionAdminRegister, target, audit.OutcomeSuccess))
	})
	if txErr != nil {
		if errors.Is(txErr, audit.ErrWriteFailed) {
			return nil, txErr
		}
		if aerr := a.rec.Record(ctx, a.entry(claims, actionAdminRegister, target, audit.OutcomeError)); aerr != nil {
			return nil, aerr
		}
		return nil, fmt.Errorf("failed to create admin: %w", txErr)
	}

	return &admin, nil
}

// SetStudentPassword 是唯一允许改动密码摘要的路径
func (a *Authenticator) SetStudentPassword(ctx context.Context, claims *jwt.Claims, matric string, password string) error {
	target := fmt.Sprintf("student %s", matric)

	if !rbac.Authorize(claims, rbac.OpPasswordSet, "") {
		return a.deny(ctx, claims, actionPasswordSet, target)
	}

	sctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	var student models.Student
	if err := a.db.WithContext(sctx).First(&student, "matric = ?", matric).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if aerr := a.rec.Record(ctx, a.entry(claims, actionPasswordSet, target, audit.OutcomeError)); aerr != nil {
				return aerr
			}
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("failed to find student: %w", err)
	}

	passwordHash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	txErr := a.db.WithContext(sctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&student).Update("password", passwordHash).Error; err != nil {
			return err
		}
		return a.rec.RecordTx(ctx, tx, a.entry(claims, actionPasswordSet, target, audit.OutcomeSuccess))
	})
	if txErr != nil {
		if errors.Is(txErr, audit.ErrWriteFailed) {
			return txErr
		}
		return fmt.Errorf("failed to update password: %w", txErr)
	}

	return nil
}

func (a *Authenticator) entry(claims *jwt.Claims, action string, target string, outcome string) *audit.Entry {
	return &audit.Entry{
		ActorKind: string(claims.Role),
		ActorID:   claims.SubjectID,
		Action:    action,
		Target:    target,
		Outcome:   outcome,
	}
}

func (a *Authenticator) deny(ctx context.Context, claims *jwt.Claims, action string, target string) error {
	if err := a.rec.Record(ctx, a.entry(claims, action, target, audit.OutcomeDenied)); err != nil {
		return err
	}
	return ErrForbidden
}
