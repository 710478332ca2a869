package models

import "time"

// AuditLog 只追加：任何代码路径都不允许更新或删除已有记录，
// 所以这里不用 gorm.Model（不应该存在 UpdatedAt / DeletedAt）
type AuditLog struct {
	ID        string    `gorm:"column:id;primaryKey"`          // UUID
	ActorKind string    `gorm:"column:actor_kind;index"`       // admin / student / unknown
	ActorID   string    `gorm:"column:actor_id;index"`         // 用户名或学号，只做关联不做外键（审计历史必须比身份活得久）
	Action    string    `gorm:"column:action"`                 // 操作名称
	Target    string    `gorm:"column:target"`                 // 操作对象描述
	Outcome   string    `gorm:"column:outcome"`                // success / denied / error
	CreatedAt time.Time `gorm:"column:created_at;index;autoCreateTime"`
}
