package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// RedisKeyPrefix namespaces item entries in Redis.
const RedisKeyPrefix = "quote:item:"

// Key normalizes an item identifier to its string form.
//
// Example:
//
//	Key(int64(1234))  -> "1234"
//	Key(" 1234 ")     -> "1234"
func Key(id any) string {
	switch v := id.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// RedisKey returns the namespaced Redis key for a normalized key.
func RedisKey(key string) string {
	return RedisKeyPrefix + key
}
