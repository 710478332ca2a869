package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"secure-result-platform/app/server/models"
)

// 审计记录写入失败比业务变更失败更严重：调用方必须让整个操作失败，
// 不允许出现"数据改了但没有留痕"的状态
var ErrWriteFailed = errors.New("audit write failed")

const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

type Entry struct {
	ActorKind string // admin / student / unknown
	ActorID   string
	Action    string
	Target    string
	Outcome   string
}

type Recorder struct {
	db *gorm.DB
	l  *zap.Logger
}

func NewRecorder(db *gorm.DB, l *zap.Logger) *Recorder {
	return &Recorder{db: db, l: l}
}

// Record 追加一条审计记录。每一次特权操作（包括被拒绝和失败的）都对应恰好一条。
func (r *Recorder) Record(ctx context.Context, e *Entry) error {
	return r.RecordTx(ctx, r.db, e)
}

// RecordTx 在指定的事务（或连接）上追加审计记录，
// 供 Mutation Coordinator 把数据写入和审计写入放进同一个事务
func (r *Recorder) RecordTx(ctx context.Context, tx *gorm.DB, e *Entry) error {
	log := models.AuditLog{
		ID:        uuid.NewString(),
		ActorKind: e.ActorKind,
		ActorID:   e.ActorID,
		Action:    e.Action,
		Target:    e.Target,
		Outcome:   e.Outcome,
	}

	if err := tx.WithContext(ctx).Create(&log).Error; err != nil {
		r.l.Error("failed to write audit log",
			zap.String("actor", e.ActorID),
			zap.String("action", e.Action),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}

	return nil
}
