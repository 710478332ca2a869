package handlers

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"secure-result-platform/app/server/audit"
	"secure-result-platform/app/server/auth"
	"secure-result-platform/app/server/jwt"
	"secure-result-platform/app/server/results"
)

type App struct {
	l     *zap.Logger          // 日志
	db    *gorm.DB             // 数据库
	rdb   *redis.Client        // Redis ，学生成绩读取路径的缓存
	jwt   *jwt.JWT             // JWT ，用于无状态验证
	authn *auth.Authenticator  // 登录、注册
	co    *results.Coordinator // 成绩变更协调
	rec   *audit.Recorder      // 审计，读取路径的留痕在 handler 层写
}

func NewApp(l *zap.Logger, db *gorm.DB, rdb *redis.Client, j *jwt.JWT, authn *auth.Authenticator, co *results.Coordinator, rec *audit.Recorder) *App {
	return &App{
		l:     l,
		db:    db,
		rdb:   rdb,
		jwt:   j,
		authn: authn,
		co:    co,
		rec:   rec,
	}
}
