package utils

import (
	"strconv"
	"strings"
	"time"
)

// ==================== 时间戳归一化 ====================

// epochMillisThreshold 区分 秒级/毫秒级 时间戳的阈值
// 大于该值的数字按毫秒处理 (对应 2001 年之后的毫秒时间戳)
const epochMillisThreshold = 1e12

// ParseTimestamp 把服务端返回的各种时间表示统一成 ISO-8601 UTC 字符串
// 支持的输入: ISO-8601 字符串 / 秒级时间戳 / 毫秒级时间戳 / 数字字符串 / time.Time
// 返回值形如 "2025-01-01T00:00:00.000Z"；无法解析时返回 ("", false)
func ParseTimestamp(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		return formatISO(x), true
	case int:
		return epochToISO(float64(x))
	case int64:
		return epochToISO(float64(x))
	case float64:
		return epochToISO(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return "", false
		}
		// 先按数字字符串处理 (秒/毫秒时间戳)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToISO(n)
		}
		// 再按 ISO-8601 / RFC3339 处理
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return formatISO(t), true
			}
		}
		return "", false
	default:
		return "", false
	}
}

// epochToISO 秒/毫秒时间戳转 ISO 字符串
func epochToISO(n float64) (string, bool) {
	if n <= 0 {
		return "", false
	}
	var t time.Time
	if n >= epochMillisThreshold {
		ms := int64(n)
		t = time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
	} else {
		sec := int64(n)
		frac := n - float64(sec)
		t = time.Unix(sec, int64(frac*float64(time.Second)))
	}
	return formatISO(t), true
}

func formatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ==================== 报表时间窗口 ====================

// DateRange 闭区间日期窗口 (UTC)
type DateRange struct {
	Start string // "2006-01-02"
	End   string
}

// RecentDateRange 取最近 n 天的 UTC 日期窗口 (含今天，首尾闭区间)
// n=7 时返回 [今天-6, 今天]
func RecentDateRange(n int) DateRange {
	return RecentDateRangeFrom(time.Now().UTC(), n)
}

// RecentDateRangeFrom 以指定时间为终点取窗口，方便测试固定时间
func RecentDateRangeFrom(now time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	end := now.UTC()
	start := end.AddDate(0, 0, -(n - 1))
	return DateRange{
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
	}
}
