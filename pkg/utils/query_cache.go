package utils

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ==================== 查询缓存引擎 ====================

// QueryCache 按复合 key 缓存远端资源
// 特性:
//   - 同一个 key 的并发请求合并为一次拉取 (in-flight collapse)
//   - 每个条目带 staleTime，过期后下一次 Get 触发重新拉取
//   - 支持按前缀失效，供 mutation 成功后做统一 invalidation
type QueryCache struct {
	entries sync.Map // key -> *cacheEntry
}

type cacheEntry struct {
	mu        sync.Mutex
	value     interface{}
	err       error
	fetchedAt time.Time
	hasValue  bool
	inflight  chan struct{} // 非 nil 表示有拉取进行中
}

// FetchFunc 实际的远端拉取函数
type FetchFunc func(ctx context.Context) (interface{}, error)

// NewQueryCache 创建查询缓存
func NewQueryCache() *QueryCache {
	return &QueryCache{}
}

// KeySep 复合 key 的分隔符
const KeySep = "|"

// JoinKey 把 key 片段拼成复合 key
// 片段顺序即层级: [domain, resource, wid, provider, authId, ...]
func JoinKey(parts ...string) string {
	return strings.Join(parts, KeySep)
}

// Get 取缓存；未命中或已过期时调用 fetch
// staleTime<=0 表示每次都重新拉取 (但并发仍会合并)
func (c *QueryCache) Get(ctx context.Context, key string, staleTime time.Duration, fetch FetchFunc) (interface{}, error) {
	actual, _ := c.entries.LoadOrStore(key, &cacheEntry{})
	entry := actual.(*cacheEntry)

	entry.mu.Lock()

	// 命中且未过期
	if entry.hasValue && entry.err == nil && staleTime > 0 && time.Since(entry.fetchedAt) < staleTime {
		v := entry.value
		entry.mu.Unlock()
		return v, nil
	}

	// 有进行中的拉取: 等它结束，共享结果
	if entry.inflight != nil {
		ch := entry.inflight
		entry.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		entry.mu.Lock()
		v, err := entry.value, entry.err
		entry.mu.Unlock()
		return v, err
	}

	// 自己发起拉取
	ch := make(chan struct{})
	entry.inflight = ch
	entry.mu.Unlock()

	v, err := fetch(ctx)

	entry.mu.Lock()
	entry.value = v
	entry.err = err
	entry.hasValue = err == nil
	entry.fetchedAt = time.Now()
	entry.inflight = nil
	entry.mu.Unlock()
	close(ch)

	return v, err
}

// Set 直接写入缓存值 (乐观更新)
func (c *QueryCache) Set(key string, value interface{}) {
	actual, _ := c.entries.LoadOrStore(key, &cacheEntry{})
	entry := actual.(*cacheEntry)
	entry.mu.Lock()
	entry.value = value
	entry.err = nil
	entry.hasValue = true
	entry.fetchedAt = time.Now()
	entry.mu.Unlock()
}

// Peek 只读缓存，不触发拉取
func (c *QueryCache) Peek(key string) (interface{}, bool) {
	actual, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	entry := actual.(*cacheEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.hasValue {
		return nil, false
	}
	return entry.value, true
}

// Invalidate 精确失效一个 key
func (c *QueryCache) Invalidate(key string) {
	c.entries.Delete(key)
}

// InvalidatePrefix 按前缀失效
// mutation 成功后用它一次性清掉 list/detail/strategy/actions/metrics
func (c *QueryCache) InvalidatePrefix(prefix string) int {
	count := 0
	c.entries.Range(func(k, _ interface{}) bool {
		key := k.(string)
		if strings.HasPrefix(key, prefix) {
			c.entries.Delete(key)
			count++
		}
		return true
	})
	return count
}

// Clear 清空全部缓存 (workspace 卸载时调用)
func (c *QueryCache) Clear() {
	c.entries.Range(func(k, _ interface{}) bool {
		c.entries.Delete(k)
		return true
	})
}
