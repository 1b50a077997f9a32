package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	var flushes int32
	d := NewDebouncer(30*time.Millisecond, func() {
		atomic.AddInt32(&flushes, 1)
	})

	// 窗口内的连续触发只落一次
	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&flushes))
}

func TestDebouncer_StopFlushesPending(t *testing.T) {
	var flushes int32
	d := NewDebouncer(time.Hour, func() {
		atomic.AddInt32(&flushes, 1)
	})

	d.Trigger()
	d.Stop()

	// 挂起的写入随 Stop 立即执行，不丢数据
	assert.Equal(t, int32(1), atomic.LoadInt32(&flushes))
}

func TestDebouncer_StopWithoutPendingNoFlush(t *testing.T) {
	var flushes int32
	d := NewDebouncer(time.Hour, func() {
		atomic.AddInt32(&flushes, 1)
	})

	d.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&flushes))
	// 停止后的触发被忽略
	d.Trigger()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&flushes))
}
