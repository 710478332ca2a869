package constants

import "time"

const (
	AuthTokenDuration = 24 * time.Hour // 登录令牌有效期
)

const (
	ScoreMin = 0.0
	ScoreMax = 100.0
)

// 存储操作超时：超过即返回 StoreUnavailable 而不是挂起
const StoreTimeout = 5 * time.Second
