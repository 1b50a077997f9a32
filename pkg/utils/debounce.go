package utils

import (
	"sync"
	"time"
)

// ==================== 防抖写入器 ====================

// Debouncer 把高频的保存请求合并成低频的落库动作
// 典型用法: 商品缓存 500ms 防抖、slice 快照 200ms 防抖
// 序列化内容没有变化时跳过写入由 flush 回调自行判断
type Debouncer struct {
	interval time.Duration
	flush    func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer 创建防抖器
// interval: 合并窗口; flush: 窗口到期后真正执行的写入动作
func NewDebouncer(interval time.Duration, flush func()) *Debouncer {
	return &Debouncer{
		interval: interval,
		flush:    flush,
	}
}

// Trigger 请求一次写入
// 窗口内的重复请求只会触发一次 flush
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		// 已有待执行的写入，重置窗口
		d.timer.Reset(d.interval)
		return
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		d.timer = nil
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.flush()
		}
	})
}

// Stop 停止防抖器，如有挂起的写入立即执行一次 (不丢数据)
func (d *Debouncer) Stop() {
	d.mu.Lock()
	pending := d.timer != nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.stopped = true
	d.mu.Unlock()

	if pending {
		d.flush()
	}
}
