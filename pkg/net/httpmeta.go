package net

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"gmvmax_dev_v1_202602/pkg/utils"
)

// ==================== HTTP 元数据仓库 ====================

// RateLimit 最近一次响应携带的限流三元组
// 字段为 nil 表示响应头里没有该值
type RateLimit struct {
	Limit     *int64 `json:"limit"`
	Remaining *int64 `json:"remaining"`
	Reset     *int64 `json:"reset"`
}

// HTTPMeta 最近一次请求/响应的观测记录
// 单写者 (Dispatcher)，多读者 (控制台接口)
type HTTPMeta struct {
	RateLimit     RateLimit         `json:"rate_limit"`
	NextAllowedAt string            `json:"next_allowed_at"` // ISO-8601，空串表示未知
	RetryAfterSec *int64            `json:"retry_after_sec"`
	LastRequestID string            `json:"last_request_id"`
	LastStatus    int               `json:"last_status"`
	Method        string            `json:"method"`
	LastURL       string            `json:"last_url"`
	Headers       map[string]string `json:"headers"` // 全部小写 key
}

// requestIDHeaders x-request-id 及常见别名，按优先级排列
var requestIDHeaders = []string{"x-request-id", "x-requestid", "request-id", "x-correlation-id"}

// MetaStore HTTP 元数据的进程级仓库
type MetaStore struct {
	mu   sync.RWMutex
	meta HTTPMeta
	subs []func(HTTPMeta)
}

// NewMetaStore 创建元数据仓库
func NewMetaStore() *MetaStore {
	return &MetaStore{}
}

// RecordHeaders 记录一次响应
// headers 会被归一化为小写 key 的 map
func (s *MetaStore) RecordHeaders(status int, method, url string, headers http.Header) {
	lower := make(map[string]string, len(headers))
	for k, vs := range headers {
		if len(vs) > 0 {
			lower[strings.ToLower(k)] = vs[0]
		}
	}

	meta := HTTPMeta{
		LastStatus: status,
		Method:     strings.ToLower(method),
		LastURL:    url,
		Headers:    lower,
	}

	meta.RateLimit = RateLimit{
		Limit:     parseIntHeader(lower, "x-ratelimit-limit"),
		Remaining: parseIntHeader(lower, "x-ratelimit-remaining"),
		Reset:     parseIntHeader(lower, "x-ratelimit-reset"),
	}
	meta.RetryAfterSec = parseIntHeader(lower, "retry-after")

	if raw, ok := lower["x-next-allowed-at"]; ok {
		if iso, ok := utils.ParseTimestamp(raw); ok {
			meta.NextAllowedAt = iso
		}
	}
	for _, h := range requestIDHeaders {
		if v, ok := lower[h]; ok && v != "" {
			meta.LastRequestID = v
			break
		}
	}

	s.mu.Lock()
	s.meta = meta
	subs := make([]func(HTTPMeta), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(meta)
	}
}

// Snapshot 读取当前元数据副本
func (s *MetaStore) Snapshot() HTTPMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Clear 重置为初始状态
func (s *MetaStore) Clear() {
	s.mu.Lock()
	s.meta = HTTPMeta{}
	s.mu.Unlock()
}

// Subscribe 订阅元数据更新
func (s *MetaStore) Subscribe(fn func(HTTPMeta)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// parseIntHeader 解析整数响应头，非法值视为缺失
func parseIntHeader(headers map[string]string, key string) *int64 {
	raw, ok := headers[key]
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
