package results

// Grade 把分数映射为等级。只在读取时计算，从不落库，
// 这样调整等级划分可以直接作用于全部历史成绩，不需要数据迁移。
func Grade(score float64) string {
	switch {
	case score >= 70:
		return "A"
	case score >= 60:
		return "B"
	case score >= 50:
		return "C"
	case score >= 45:
		return "D"
	case score >= 40:
		return "E"
	default:
		return "F"
	}
}
