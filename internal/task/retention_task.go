package task

import (
	"context"
	"log"
	"sync"
	"time"

	"gmvmax_dev_v1_202602/internal/repository"
)

// ==================== 数据保留任务 ====================

// RetentionTask 定期清理过期的审计与同步运行记录
// 控制台数据只有短期排障价值，长期积压只会拖慢本地库
type RetentionTask struct {
	actionLogRepo repository.ActionLogRepository
	syncRunRepo   repository.SyncRunRepository

	retention time.Duration
	interval  time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// RetentionTaskOption 任务选项
type RetentionTaskOption func(*RetentionTask)

// WithRetention 设置记录保留时长
func WithRetention(d time.Duration) RetentionTaskOption {
	return func(t *RetentionTask) {
		t.retention = d
	}
}

// WithCleanupInterval 设置执行间隔
func WithCleanupInterval(d time.Duration) RetentionTaskOption {
	return func(t *RetentionTask) {
		t.interval = d
	}
}

// NewRetentionTask 创建数据保留任务
func NewRetentionTask(actionLogRepo repository.ActionLogRepository, syncRunRepo repository.SyncRunRepository, opts ...RetentionTaskOption) *RetentionTask {
	t := &RetentionTask{
		actionLogRepo: actionLogRepo,
		syncRunRepo:   syncRunRepo,
		retention:     30 * 24 * time.Hour,
		interval:      24 * time.Hour,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start 启动任务
func (t *RetentionTask) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run()

	log.Printf("[RetentionTask] 已启动，间隔: %v, 保留: %v", t.interval, t.retention)
}

// Stop 停止任务
func (t *RetentionTask) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	close(t.stopCh)
	t.wg.Wait()
	log.Println("[RetentionTask] 已停止")
}

func (t *RetentionTask) run() {
	defer t.wg.Done()

	// 启动时立即执行
	t.execute()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.execute()
		case <-t.stopCh:
			return
		}
	}
}

func (t *RetentionTask) execute() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	before := time.Now().Add(-t.retention)

	dropped, err := t.actionLogRepo.DeleteOlderThan(ctx, before)
	if err != nil {
		log.Printf("[RetentionTask] 清理操作日志失败: %v", err)
	} else if dropped > 0 {
		log.Printf("[RetentionTask] 已删除 %d 条过期操作日志", dropped)
	}

	dropped, err = t.syncRunRepo.DeleteOlderThan(ctx, before)
	if err != nil {
		log.Printf("[RetentionTask] 清理同步记录失败: %v", err)
	} else if dropped > 0 {
		log.Printf("[RetentionTask] 已删除 %d 条过期同步记录", dropped)
	}
}

// RunOnce 手动执行一次
func (t *RetentionTask) RunOnce() {
	t.execute()
}
