package task

import (
	"context"
	"log"
	"time"

	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/internal/service"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台任务
// 管理范围: 健康监控、商品自动同步、过期记录清理
type TaskManager struct {
	healthTask    *HealthTask
	autoSyncTask  *AutoSyncTask
	retentionTask *RetentionTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	ScopeRepo     repository.ScopeRepository
	ActionLogRepo repository.ActionLogRepository
	SyncRunRepo   repository.SyncRunRepository
	QueryService  *service.QueryService
	SyncService   *service.SyncService
	HealthService *service.HealthService
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	HealthEnabled bool

	AutoSyncEnabled     bool
	AutoSyncConcurrency int

	RetentionEnabled bool
	RetentionPeriod  time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		HealthEnabled:       true,
		AutoSyncEnabled:     true,
		AutoSyncConcurrency: 5,
		RetentionEnabled:    true,
		RetentionPeriod:     30 * 24 * time.Hour,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if cfg.HealthEnabled && deps.HealthService != nil {
		tm.healthTask = NewHealthTask(deps.HealthService)
	}

	if cfg.AutoSyncEnabled && deps.SyncService != nil {
		tm.autoSyncTask = NewAutoSyncTask(deps.ScopeRepo, deps.QueryService, deps.SyncService)
		tm.autoSyncTask.SetConcurrency(cfg.AutoSyncConcurrency, 200*time.Millisecond)
	}

	if cfg.RetentionEnabled && deps.ActionLogRepo != nil && deps.SyncRunRepo != nil {
		tm.retentionTask = NewRetentionTask(deps.ActionLogRepo, deps.SyncRunRepo,
			WithRetention(cfg.RetentionPeriod))
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动后台任务...")

	if tm.healthTask != nil {
		tm.healthTask.Start()
	}
	if tm.autoSyncTask != nil {
		tm.autoSyncTask.Start()
	}
	if tm.retentionTask != nil {
		tm.retentionTask.Start()
	}

	log.Println("[TaskManager] 后台任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止后台任务...")

	if tm.retentionTask != nil {
		tm.retentionTask.Stop()
	}
	if tm.autoSyncTask != nil {
		tm.autoSyncTask.Stop()
	}
	if tm.healthTask != nil {
		tm.healthTask.Stop()
	}

	log.Println("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerAutoSync 手动触发一轮商品自动同步
func (tm *TaskManager) TriggerAutoSync(ctx context.Context) error {
	if tm.autoSyncTask == nil {
		return ErrTaskDisabled
	}
	tm.autoSyncTask.RunNow(ctx)
	return nil
}

// Status 任务启用状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"health":    tm.healthTask != nil,
		"auto_sync": tm.autoSyncTask != nil,
		"retention": tm.retentionTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
