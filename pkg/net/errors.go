package net

import (
	"fmt"
	"log"
	"sync"

	"github.com/tidwall/gjson"
)

// ==================== 统一错误类型 ====================

// APIError HTTP 边界的唯一错误形态
// 调用方只依赖 Status / UIMessage 分支，不做字符串匹配
type APIError struct {
	Status    int               // 0 表示没有拿到响应 (网络层失败)
	RequestID string            // 本次请求的 x-request-id
	UIMessage string            // 面向用户的错误文案
	Payload   []byte            // 原始响应体
	Headers   map[string]string // 小写 key 的响应头
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api error (no response): %s", e.UIMessage)
	}
	return fmt.Sprintf("api error [%d]: %s", e.Status, e.UIMessage)
}

// ErrorClass 错误分类，对应进程级 http:error 广播
type ErrorClass string

const (
	ErrClassAuth       ErrorClass = "auth"
	ErrClassValidation ErrorClass = "validation"
	ErrClassRateLimit  ErrorClass = "rate-limit"
	ErrClassServer     ErrorClass = "server"
	ErrClassHTTP       ErrorClass = "http"
)

// Classify 按状态码分类
func Classify(status int) ErrorClass {
	switch {
	case status == 401 || status == 403:
		return ErrClassAuth
	case status == 422:
		return ErrClassValidation
	case status == 429:
		return ErrClassRateLimit
	case status >= 500:
		return ErrClassServer
	default:
		return ErrClassHTTP
	}
}

// ExtractUIMessage 提取用户可见错误文案
// 提取链: error.message | message | detail，都没有时回退到状态码默认文案
func ExtractUIMessage(payload []byte, status int) string {
	if len(payload) > 0 && gjson.ValidBytes(payload) {
		for _, path := range []string{"error.message", "message", "detail"} {
			if v := gjson.GetBytes(payload, path); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}
	return defaultUIMessage(status)
}

// defaultUIMessage 状态码默认文案
func defaultUIMessage(status int) string {
	switch {
	case status == 401:
		return "登录已过期，请重新登录"
	case status == 403:
		return "没有权限执行该操作"
	case status == 422:
		return "提交的内容不合法，请检查后重试"
	case status == 429:
		return "请求过于频繁，请稍后再试"
	case status >= 500:
		return "服务暂时不可用，请稍后再试"
	case status == 0:
		return "网络异常，请检查网络后重试"
	default:
		return "请求失败，请稍后再试"
	}
}

// ==================== 进程级错误广播 ====================

// ErrorEvent http:error 广播事件
type ErrorEvent struct {
	Class   ErrorClass
	Status  int
	Message string
	Context string // 发起方标记，如 "binding/auto"
}

// ErrorListener 返回 true 表示拦截默认告警 (等价 preventDefault)
type ErrorListener func(ErrorEvent) bool

var (
	errListenerMu sync.RWMutex
	errListeners  []ErrorListener
)

// OnError 注册错误监听，返回注销函数
func OnError(fn ErrorListener) func() {
	errListenerMu.Lock()
	errListeners = append(errListeners, fn)
	idx := len(errListeners) - 1
	errListenerMu.Unlock()

	return func() {
		errListenerMu.Lock()
		defer errListenerMu.Unlock()
		if idx < len(errListeners) {
			errListeners[idx] = nil
		}
	}
}

// broadcastError 广播错误事件
// 任一监听者拦截后不再输出默认告警
func broadcastError(ev ErrorEvent) {
	errListenerMu.RLock()
	listeners := make([]ErrorListener, len(errListeners))
	copy(listeners, errListeners)
	errListenerMu.RUnlock()

	suppressed := false
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		if fn(ev) {
			suppressed = true
		}
	}

	if !suppressed {
		log.Printf("[HTTP] %s 错误 (%d): %s", ev.Class, ev.Status, ev.Message)
	}
}
