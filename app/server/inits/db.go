package inits

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"secure-result-platform/app/server/models"
)

func DB(conn string) (db *gorm.DB, err error) {
	// 打开连接
	if db, err = gorm.Open(postgres.Open(conn), &gorm.Config{}); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 迁移
	if err = mig(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 初始化启动数据
	if err = initData(db); err != nil {
		return nil, fmt.Errorf("failed to init data into database: %w", err)
	}

	// 返回
	return db, nil
}

func mig(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Admin{},
		&models.Student{},
		&models.Result{},
		&models.AuditLog{},
	)
}

func initData(db *gorm.DB) (err error) {
	// 查询现有记录数量
	var counter int64

	// 初始化管理员
	if err = db.Model(&models.Admin{}).Count(&counter).Error; err != nil {
		return fmt.Errorf("failed to get admin count: %w", err)
	} else if counter == 0 { // 没有任何管理员，添加初始账号
		// 创建密码
		var password string
		if password, err = argon2id.CreateHash("admin123", argon2id.DefaultParams); err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}

		// 插入记录
		if err = db.Create(&models.Admin{
			Username: "admin",
			Name:     "Platform Admin",
			Email:    "admin@example.com",
			Password: password,
		}).Error; err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
	}

	// 初始化演示学生
	if err = db.Model(&models.Student{}).Count(&counter).Error; err != nil {
		return fmt.Errorf("failed to get student count: %w", err)
	} else if counter == 0 { // 没有任何学生，添加演示账号
		var password string
		if password, err = argon2id.CreateHash("student123", argon2id.DefaultParams); err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}

		if err = db.Create(&models.Student{
			Matric:   "STU001",
			Name:     "John Doe",
			Email:    "john@example.com",
			Password: password,
		}).Error; err != nil {
			return fmt.Errorf("failed to create demo student: %w", err)
		}
	}

	// 已有数据或全部导入成功
	return nil
}
