package middleware

import (
	"fmt"
	"time"
)

// ==================== 同步冷却 ====================

// SyncCooldownError 冷却窗口未过，拒绝触发同步
// Service 层返回该错误，HTTP 层统一映射为 429 + Retry-After
type SyncCooldownError struct {
	SyncType   SyncType
	RetryAfter time.Duration
}

func (e *SyncCooldownError) Error() string {
	return formatRetryMessage(e.RetryAfter)
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())

	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", minutes)
	}

	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}

// ==================== 账号级冷却 ====================

// CheckSyncAllowed 检查账号某类同步的冷却是否已过 (只读，不占用名额)
// 名额在任务成功入队后由 MarkSyncExecuted 占用，入队失败不消耗冷却
func (r *SyncRateLimiter) CheckSyncAllowed(authID string, syncType SyncType) (bool, time.Duration) {
	result := r.CheckOnly(AccountSyncKey(authID, syncType), GetInterval(syncType))
	return result.Allowed, result.RetryAfter
}

// MarkSyncExecuted 同步任务成功入队后标记，开启冷却窗口
func (r *SyncRateLimiter) MarkSyncExecuted(authID string, syncType SyncType) {
	r.MarkExecuted(AccountSyncKey(authID, syncType))
}

// ResetSyncLimit 重置账号某类同步的冷却（管理入口使用）
func (r *SyncRateLimiter) ResetSyncLimit(authID string, syncType SyncType) {
	r.Reset(AccountSyncKey(authID, syncType))
}
