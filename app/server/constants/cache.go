package constants

import "time"

const (
	CacheKeyStudentResults = "srp:results:%s" // %s -> matric
)

const (
	CacheExpireStudentResults = 10 * time.Minute
)
