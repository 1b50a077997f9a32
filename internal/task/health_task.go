package task

import (
	"context"
	"log"
	"time"

	"gmvmax_dev_v1_202602/internal/service"
)

// ==================== 健康监控任务 ====================

// HealthTask 驱动健康门的后台探测循环
// 健康时低频巡检，失败后切到 5s 高频重试直到恢复
type HealthTask struct {
	health *service.HealthService

	healthyInterval   time.Duration
	unhealthyInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthTask 创建健康监控任务
func NewHealthTask(health *service.HealthService) *HealthTask {
	return &HealthTask{
		health:            health,
		healthyInterval:   60 * time.Second,
		unhealthyInterval: 5 * time.Second,
	}
}

// Start 启动探测循环
func (t *HealthTask) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)

		// 启动即探测一次
		t.health.Probe(ctx)

		for {
			interval := t.healthyInterval
			if !t.health.Healthy() {
				interval = t.unhealthyInterval
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
				t.health.Probe(ctx)
			}
		}
	}()

	log.Println("[Health] 健康监控任务已启动")
}

// Stop 停止探测循环
func (t *HealthTask) Stop() {
	if t.cancel != nil {
		t.cancel()
		<-t.done
	}
}
