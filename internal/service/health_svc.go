package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"gmvmax_dev_v1_202602/pkg/net"
	"gmvmax_dev_v1_202602/pkg/tiktok"
)

// ==================== 健康门 ====================

// 失败后的重试间隔
const healthRetryInterval = 5 * time.Second

// HealthService 上游健康门
// 探测通过前下游拉取被挡住；通过后保持放行直到再次探测失败
type HealthService struct {
	dispatcher net.Dispatcher

	mu          sync.Mutex
	healthy     bool
	checked     bool // 首次探测是否完成
	lastError   string
	lastChecked time.Time

	// 测试注入用
	retryInterval time.Duration
}

// NewHealthService 创建健康门
func NewHealthService(dispatcher net.Dispatcher) *HealthService {
	return &HealthService{
		dispatcher:    dispatcher,
		retryInterval: healthRetryInterval,
	}
}

// HealthStatus 健康门快照
type HealthStatus struct {
	Healthy     bool      `json:"healthy"`
	Checked     bool      `json:"checked"`
	LastError   string    `json:"last_error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Status 当前快照
func (s *HealthService) Status() HealthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HealthStatus{
		Healthy:     s.healthy,
		Checked:     s.checked,
		LastError:   s.lastError,
		LastChecked: s.lastChecked,
	}
}

// Healthy 下游拉取门控
func (s *HealthService) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

// Probe 单次探测 /healthz
func (s *HealthService) Probe(ctx context.Context) bool {
	var resp tiktok.HealthResp
	err := s.dispatcher.Get(ctx, tiktok.HealthPath, &resp)

	ok := err == nil && isHealthyStatus(resp.Status)

	s.mu.Lock()
	defer s.mu.Unlock()
	wasHealthy := s.healthy
	s.healthy = ok
	s.checked = true
	s.lastChecked = time.Now()
	if err != nil {
		s.lastError = err.Error()
	} else if !ok {
		s.lastError = "上游状态异常: " + resp.Status
	} else {
		s.lastError = ""
	}

	if ok != wasHealthy {
		if ok {
			log.Printf("[Health] 上游恢复")
		} else {
			log.Printf("[Health] 上游不可用: %s", s.lastError)
		}
	}
	return ok
}

// isHealthyStatus /healthz 状态字段判定 (空状态的 200 也算通过)
func isHealthyStatus(status string) bool {
	switch strings.ToLower(status) {
	case "", "ok", "healthy", "up":
		return true
	}
	return false
}

// WaitHealthy 阻塞直到探测通过或 ctx 取消
// 首探失败后每 5s 重试
func (s *HealthService) WaitHealthy(ctx context.Context) error {
	if s.Probe(ctx) {
		return nil
	}
	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.Probe(ctx) {
				return nil
			}
		}
	}
}
