package models

import "gorm.io/gorm"

type Admin struct {
	gorm.Model

	// 基础信息
	Username string `gorm:"column:username;uniqueIndex"` // 用户名，管理员范围内唯一
	Name     string `gorm:"column:name"`                 // 显示名称
	Email    string `gorm:"column:email;uniqueIndex"`    // 邮箱

	// 登录认证相关
	Password string `gorm:"column:password"` // 密码，使用 argon2id 储存
}
