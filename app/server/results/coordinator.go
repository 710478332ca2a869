package results

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"secure-result-platform/app/server/audit"
	"secure-result-platform/app/server/constants"
	"secure-result-platform/app/server/jwt"
	"secure-result-platform/app/server/models"
	"secure-result-platform/app/server/rbac"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidScore     = errors.New("invalid score")
	ErrNotFound         = errors.New("result not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

const (
	actionUpload = "result.upload"
	actionUpdate = "result.update"
	actionDelete = "result.delete"
	actionList   = "result.list"
)

// Coordinator 串联一次成绩变更的完整流程：授权 → 校验 → 写存储 → 写审计。
// 数据写入和成功审计放在同一个事务里提交：读取方不可能看到一条没有对应
// 审计记录的成绩；审计写入失败时整个变更回滚（宁可丢变更，不可丢审计）。
type Coordinator struct {
	db  *gorm.DB
	rec *audit.Recorder
	l   *zap.Logger
}

func NewCoordinator(db *gorm.DB, rec *audit.Recorder, l *zap.Logger) *Coordinator {
	return &Coordinator{db: db, rec: rec, l: l}
}

type UploadInput struct {
	Matric  string
	Subject string
	Score   float64
}

type UpdateInput struct {
	Subject *string
	Score   *float64
}

// Upload 新建或覆盖一条成绩。(matric, subject) 逻辑唯一：
// 重复上传是更新（重新评分是正常业务），不报重复错误。
func (co *Coordinator) Upload(ctx context.Context, claims *jwt.Claims, in *UploadInput) (*models.Result, error) {
	target := fmt.Sprintf("%s/%s: %g", in.Matric, in.Subject, in.Score)

	if !rbac.Authorize(claims, rbac.OpResultCreate, "") {
		return nil, co.deny(ctx, claims, actionUpload, target)
	}

	// 分数校验在授权之后：授权失败时不应泄露校验细节
	if in.Score < constants.ScoreMin || in.Score > constants.ScoreMax {
		if err := co.rec.Record(ctx, co.entry(claims, actionUpload, target, audit.OutcomeError)); err != nil {
			return nil, err
		}
		return nil, ErrInvalidScore
	}

	sctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	// 成绩必须挂在已注册的学生上
	var student models.Student
	if err := co.db.WithContext(sctx).First(&student, "matric = ?", in.Matric).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if aerr := co.rec.Record(ctx, co.entry(claims, actionUpload, target, audit.OutcomeError)); aerr != nil {
				return nil, aerr
			}
			return nil, ErrStudentNotFound
		}
		return nil, co.storeError(ctx, claims, actionUpload, target, err)
	}

	// 原子 upsert ：并发写同一 (matric, subject) 时后到者胜出，不会有一方撞唯一索引
	result := models.Result{
		Matric:  in.Matric,
		Subject: in.Subject,
		Score:   in.Score,
	}
	txErr := co.db.WithContext(sctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "matric"}, {Name: "subject"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).Create(&result).Error; err != nil {
			return err
		}

		// 冲突更新已有行时 Create 不回填 ID ，重新读出完整记录
		if err := tx.First(&result, "matric = ? AND subject = ?", in.Matric, in.Subject).Error; err != nil {
			return err
		}

		return co.rec.RecordTx(ctx, tx, co.entry(claims, actionUpload, target, audit.OutcomeSuccess))
	})
	if txErr != nil {
		if errors.Is(txErr, audit.ErrWriteFailed) {
			return nil, txErr
		}
		return nil, co.storeError(ctx, claims, actionUpload, target, txErr)
	}

	return &result, nil
}

// Update 按记录 ID 修改已有成绩
func (co *Coordinator) Update(ctx context.Context, claims *jwt.Claims, id uint, in *UpdateInput) (*models.Result, error) {
	target := fmt.Sprintf("result #%d", id)

	if !rbac.Authorize(claims, rbac.OpResultUpdate, "") {
		return nil, co.deny(ctx, claims, actionUpdate, target)
	}

	if in.Score != nil && (*in.Score < constants.ScoreMin || *in.Score > constants.ScoreMax) {
		if err := co.rec.Record(ctx, co.entry(claims, actionUpdate, target, audit.OutcomeError)); err != nil {
			return nil, err
		}
		return nil, ErrInvalidScore
	}

	sctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	var result models.Result
	if err := co.db.WithContext(sctx).First(&result, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if aerr := co.rec.Record(ctx, co.entry(claims, actionUpdate, target, audit.OutcomeError)); aerr != nil {
				return nil, aerr
			}
			return nil, ErrNotFound
		}
		return nil, co.storeError(ctx, claims, actionUpdate, target, err)
	}

	if in.Subject != nil {
		result.Subject = *in.Subject
	}
	if in.Score != nil {
		result.Score = *in.Score
	}

	target = fmt.Sprintf("result #%d %s/%s: %g", id, result.Matric, result.Subject, result.Score)

	txErr := co.db.WithContext(sctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&result).Error; err != nil {
			return err
		}
		return co.rec.RecordTx(ctx, tx, co.entry(claims, actionUpdate, target, audit.OutcomeSuccess))
	})
	if txErr != nil {
		if errors.Is(txErr, audit.ErrWriteFailed) {
			return nil, txErr
		}
		return nil, co.storeError(ctx, claims, actionUpdate, target, txErr)
	}

	return &result, nil
}

// Delete 按记录 ID 删除成绩。删除本身也要留痕。
// 返回被删除的记录，调用方用它来做缓存失效。
func (co *Coordinator) Delete(ctx context.Context, claims *jwt.Claims, id uint) (*models.Result, error) {
	target := fmt.Sprintf("result #%d", id)

	if !rbac.Authorize(claims, rbac.OpResultDelete, "") {
		return nil, co.deny(ctx, claims, actionDelete, target)
	}

	sctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	var result models.Result
	if err := co.db.WithContext(sctx).First(&result, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if aerr := co.rec.Record(ctx, co.entry(claims, actionDelete, target, audit.OutcomeError)); aerr != nil {
				return nil, aerr
			}
			return nil, ErrNotFound
		}
		return nil, co.storeError(ctx, claims, actionDelete, target, err)
	}

	target = fmt.Sprintf("result #%d %s/%s", id, result.Matric, result.Subject)

	txErr := co.db.WithContext(sctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&result).Error; err != nil {
			return err
		}
		return co.rec.RecordTx(ctx, tx, co.entry(claims, actionDelete, target, audit.OutcomeSuccess))
	})
	if txErr != nil {
		if errors.Is(txErr, audit.ErrWriteFailed) {
			return nil, txErr
		}
		return nil, co.storeError(ctx, claims, actionDelete, target, txErr)
	}

	return &result, nil
}

// List 返回全部成绩（管理员视角），offset / limit 由调用方换算好
func (co *Coordinator) List(ctx context.Context, claims *jwt.Claims, offset int, limit int) ([]models.Result, int64, error) {
	if !rbac.Authorize(claims, rbac.OpResultList, "") {
		return nil, 0, co.deny(ctx, claims, actionList, "all results")
	}

	sctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	var (
		list  []models.Result
		count int64
	)

	queryBase := co.db.WithContext(sctx).Model(&models.Result{}).Order("id ASC")
	if limit > 0 {
		queryBase = queryBase.Limit(limit).Offset(offset)
	}
	if err := queryBase.Find(&list).Error; err != nil {
		return nil, 0, co.mapStore(err)
	}
	if err := co.db.WithContext(sctx).Model(&models.Result{}).Count(&count).Error; err != nil {
		return nil, 0, co.mapStore(err)
	}

	return list, count, nil
}

func (co *Coordinator) entry(claims *jwt.Claims, action string, target string, outcome string) *audit.Entry {
	return &audit.Entry{
		ActorKind: string(claims.Role),
		ActorID:   claims.SubjectID,
		Action:    action,
		Target:    target,
		Outcome:   outcome,
	}
}

// deny 记录一次被拒绝的尝试并返回 Forbidden 。
// 审计写失败比拒绝本身更要紧，优先上报。
func (co *Coordinator) deny(ctx context.Context, claims *jwt.Claims, action string, target string) error {
	if err := co.rec.Record(ctx, co.entry(claims, action, target, audit.OutcomeDenied)); err != nil {
		return err
	}
	return ErrForbidden
}

// storeError 对失败的存储操作补一条 outcome=error 的审计，再返回映射后的错误
func (co *Coordinator) storeError(ctx context.Context, claims *jwt.Claims, action string, target string, err error) error {
	co.l.Error("store operation failed",
		zap.String("action", action),
		zap.String("target", target),
		zap.Error(err),
	)
	if aerr := co.rec.Record(ctx, co.entry(claims, action, target, audit.OutcomeError)); aerr != nil {
		return aerr
	}
	return co.mapStore(err)
}

func (co *Coordinator) mapStore(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
	}
	return err
}
