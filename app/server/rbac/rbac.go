package rbac

import (
	"secure-result-platform/app/server/jwt"
)

// Operation 是一个封闭集合：策略表里没有列出的操作一律拒绝
type Operation string

const (
	OpResultCreate    Operation = "result:create"
	OpResultUpdate    Operation = "result:update"
	OpResultDelete    Operation = "result:delete"
	OpResultList      Operation = "result:list"
	OpResultRead      Operation = "result:read" // 对某个学生的成绩的读取，配合 target 判断
	OpStudentRegister Operation = "student:register"
	OpAdminRegister   Operation = "admin:register"
	OpPasswordSet     Operation = "password:set"
	OpAuditList       Operation = "audit:list"
)

// 策略表（角色 × 操作）。只有显式为 true 的组合才允许，其余默认拒绝。
// OpResultRead 对学生是条件允许：只能读自己的，见 Authorize。
var policy = map[jwt.Role]map[Operation]bool{
	jwt.RoleAdmin: {
		OpResultCreate:    true,
		OpResultUpdate:    true,
		OpResultDelete:    true,
		OpResultList:      true,
		OpResultRead:      true,
		OpStudentRegister: true,
		OpAdminRegister:   true,
		OpPasswordSet:     true,
		OpAuditList:       true,
	},
	jwt.RoleStudent: {
		OpResultRead: true,
	},
}

// Authorize 根据已验证的 claims 判断是否允许执行 op 。
// target 是操作对象的学号，只对 OpResultRead 有意义，其余操作传空串即可。
// 这里只做决策，不写审计记录：记录由调用方（Mutation Coordinator / handler）负责。
func Authorize(claims *jwt.Claims, op Operation, target string) bool {
	if claims == nil {
		return false
	}

	ops, ok := policy[claims.Role]
	if !ok {
		// 未知角色，拒绝
		return false
	}

	if !ops[op] {
		return false
	}

	// 学生读取成绩时只能读自己的
	if op == OpResultRead && claims.Role == jwt.RoleStudent && claims.SubjectID != target {
		return false
	}

	return true
}
