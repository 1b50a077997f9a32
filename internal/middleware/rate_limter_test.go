package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ==================== 限流器 ====================

func TestSyncRateLimiter_CheckAndCooldown(t *testing.T) {
	limiter := &SyncRateLimiter{}

	first := limiter.Check("account:A1:campaigns", 50*time.Millisecond)
	assert.True(t, first.Allowed)

	second := limiter.Check("account:A1:campaigns", 50*time.Millisecond)
	assert.False(t, second.Allowed)
	assert.Greater(t, second.RetryAfter, time.Duration(0))

	// 不同账号互不影响
	other := limiter.Check("account:A2:campaigns", 50*time.Millisecond)
	assert.True(t, other.Allowed)

	time.Sleep(60 * time.Millisecond)
	third := limiter.Check("account:A1:campaigns", 50*time.Millisecond)
	assert.True(t, third.Allowed)
}

func TestSyncRateLimiter_CheckOnlyDoesNotConsume(t *testing.T) {
	limiter := &SyncRateLimiter{}

	// 只读检查不占用名额
	assert.True(t, limiter.CheckOnly("k", time.Minute).Allowed)
	assert.True(t, limiter.Check("k", time.Minute).Allowed)
	assert.False(t, limiter.CheckOnly("k", time.Minute).Allowed)
}

func TestSyncRateLimiter_Reset(t *testing.T) {
	limiter := &SyncRateLimiter{}

	assert.True(t, limiter.Check("k", time.Minute).Allowed)
	assert.False(t, limiter.Check("k", time.Minute).Allowed)

	limiter.Reset("k")
	assert.True(t, limiter.Check("k", time.Minute).Allowed)
}

func TestSyncKeys(t *testing.T) {
	assert.Equal(t, "account:AUTH1:campaigns", AccountSyncKey("AUTH1", SyncTypeCampaigns))
	assert.Equal(t, "global:products", GlobalSyncKey(SyncTypeProducts))
}

func TestGetInterval_Defaults(t *testing.T) {
	assert.Equal(t, time.Minute, GetInterval(SyncTypeCampaigns))
	assert.Equal(t, 5*time.Minute, GetInterval(SyncTypeProducts))
	assert.Equal(t, 10*time.Minute, GetInterval(SyncTypeMeta))
	assert.Equal(t, time.Minute, GetInterval(SyncTypeMetrics))
	assert.Equal(t, 10*time.Minute, GetInterval(SyncTypeAutoInspect))
	assert.Equal(t, 5*time.Minute, GetInterval(SyncType("unknown")))
}

// ==================== 账号级冷却 ====================

func TestAccountCooldownHelpers(t *testing.T) {
	limiter := &SyncRateLimiter{}

	// 只读检查不会把账号打入冷却
	allowed, _ := limiter.CheckSyncAllowed("A1", SyncTypeCampaigns)
	assert.True(t, allowed)
	allowed, _ = limiter.CheckSyncAllowed("A1", SyncTypeCampaigns)
	assert.True(t, allowed)

	// 标记执行后进入冷却
	limiter.MarkSyncExecuted("A1", SyncTypeCampaigns)
	allowed, wait := limiter.CheckSyncAllowed("A1", SyncTypeCampaigns)
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))

	// 其他账号与其他同步类型不受影响
	allowed, _ = limiter.CheckSyncAllowed("A2", SyncTypeCampaigns)
	assert.True(t, allowed)
	allowed, _ = limiter.CheckSyncAllowed("A1", SyncTypeProducts)
	assert.True(t, allowed)

	// 重置后解除冷却
	limiter.ResetSyncLimit("A1", SyncTypeCampaigns)
	allowed, _ = limiter.CheckSyncAllowed("A1", SyncTypeCampaigns)
	assert.True(t, allowed)
}

func TestSyncCooldownError_Message(t *testing.T) {
	err := &SyncCooldownError{SyncType: SyncTypeCampaigns, RetryAfter: 59 * time.Second}
	assert.Equal(t, "同步冷却中，请 59 秒后重试", err.Error())
}

func TestFormatRetryMessage(t *testing.T) {
	assert.Equal(t, "同步冷却中，请 30 秒后重试", formatRetryMessage(30*time.Second))
	assert.Equal(t, "同步冷却中，请 2 分钟后重试", formatRetryMessage(2*time.Minute))
	assert.Equal(t, "同步冷却中，请 1 分 30 秒后重试", formatRetryMessage(90*time.Second))
}
