package models

import "gorm.io/gorm"

type Student struct {
	gorm.Model

	// 基础信息
	Matric string `gorm:"column:matric;uniqueIndex"` // 学号，学生范围内唯一
	Name   string `gorm:"column:name"`               // 显示名称
	Email  string `gorm:"column:email;uniqueIndex"`  // 邮箱

	// 登录认证相关
	Password string `gorm:"column:password"` // 密码，使用 argon2id 储存

	// 停用标记：为保证审计记录的引用完整性，学生只停用不删除
	Disabled bool `gorm:"column:disabled"`
}
