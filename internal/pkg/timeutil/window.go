package timeutil

import (
	"fmt"
	"time"
)

// Clock 返回当前时间，便于测试注入
type Clock func() time.Time

// IsWithinHours 判断 ts 距 now 是否在 hours 小时之内
// ts 为空时返回 false；结果随时间推移会变化，调用方不能缓存
func IsWithinHours(ts *time.Time, hours float64, now time.Time) bool {
	if ts == nil || ts.IsZero() {
		return false
	}
	return now.Sub(*ts).Hours() <= hours
}

// RelativeLabel 生成相对时间标签
func RelativeLabel(ts *time.Time, now time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	d := now.Sub(*ts)
	switch {
	case d < time.Minute:
		return "刚刚"
	case d < time.Hour:
		return fmt.Sprintf("%d分钟前", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d小时前", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d天前", int(d/(24*time.Hour)))
	default:
		return ts.In(now.Location()).Format("2006-01-02")
	}
}
