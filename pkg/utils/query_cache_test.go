package utils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== 基本读写 ====================

func TestQueryCache_GetCachesValue(t *testing.T) {
	c := NewQueryCache()
	var calls int32

	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v1", nil
	}

	v, err := c.Get(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	// 未过期时不再触发拉取
	v, err = c.Get(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueryCache_ErrorNotCached(t *testing.T) {
	c := NewQueryCache()
	var calls int32

	_, err := c.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("上游异常")
	})
	require.Error(t, err)

	// 失败结果不缓存，下一次重新拉取
	v, err := c.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueryCache_StaleTriggersRefetch(t *testing.T) {
	c := NewQueryCache()
	var calls int32

	fetch := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	_, _ = c.Get(context.Background(), "k", 10*time.Millisecond, fetch)
	time.Sleep(20 * time.Millisecond)
	v, err := c.Get(context.Background(), "k", 10*time.Millisecond, fetch)

	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

// ==================== 并发合并 ====================

func TestQueryCache_InFlightCollapse(t *testing.T) {
	c := NewQueryCache()
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 8)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = c.Get(context.Background(), "k", time.Minute, fetch)
	}()
	<-started

	// 拉取进行中的并发请求全部等待同一个结果
	for i := 1; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (interface{}, error) {
				atomic.AddInt32(&calls, 1)
				return "should-not-run", nil
			})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := range results {
		assert.Equal(t, "shared", results[i])
	}
}

// ==================== 失效 ====================

func TestQueryCache_InvalidatePrefix(t *testing.T) {
	c := NewQueryCache()
	c.Set(JoinKey("gmvmax", "series", "w1", "tiktok", "a1", "list"), 1)
	c.Set(JoinKey("gmvmax", "series", "w1", "tiktok", "a1", "detail", "C1"), 2)
	c.Set(JoinKey("gmvmax", "products", "w1", "tiktok", "a1"), 3)

	n := c.InvalidatePrefix(JoinKey("gmvmax", "series", "w1", "tiktok", "a1"))

	assert.Equal(t, 2, n)
	_, ok := c.Peek(JoinKey("gmvmax", "series", "w1", "tiktok", "a1", "list"))
	assert.False(t, ok)
	_, ok = c.Peek(JoinKey("gmvmax", "products", "w1", "tiktok", "a1"))
	assert.True(t, ok)
}

func TestQueryCache_SetAndPeek(t *testing.T) {
	c := NewQueryCache()

	_, ok := c.Peek("missing")
	assert.False(t, ok)

	c.Set("k", "optimistic")
	v, ok := c.Peek("k")
	assert.True(t, ok)
	assert.Equal(t, "optimistic", v)

	c.Invalidate("k")
	_, ok = c.Peek("k")
	assert.False(t, ok)
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "gmvmax|series|w1", JoinKey("gmvmax", "series", "w1"))
}
