package helper

import "strings"

// PermanentRejections are issuer messages after which retrying a code cannot succeed.
var PermanentRejections = []string{
	"already deleted",
	"already expired",
	"already used",
	"already redeemed",
	"nonexistent",
	"does not exist",
	"not exist",
	"not found",
	"invalid key",
	"invalid code",
	"已删除",
	"已过期",
	"已使用",
	"已激活",
	"不存在",
	"无效",
}

// IsPermanentRejection reports whether the issuer message names a terminal condition.
func IsPermanentRejection(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range PermanentRejections {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
