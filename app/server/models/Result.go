package models

import "time"

// Result 不用 gorm.Model ：删除成绩是显式的、有审计记录的硬删除。
// 软删除的残留行会占着 (matric, subject) 唯一索引，让删除后重新上传永远失败。
type Result struct {
	ID uint `gorm:"column:id;primaryKey"`

	// (matric, subject) 在逻辑上唯一：重复上传是更新而不是新建
	Matric  string  `gorm:"column:matric;index;uniqueIndex:idx_results_matric_subject"` // 学号
	Subject string  `gorm:"column:subject;uniqueIndex:idx_results_matric_subject"`      // 科目
	Score   float64 `gorm:"column:score"`                                               // 分数，范围 [0,100]

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
