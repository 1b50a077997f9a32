package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/internal/service"
)

// ==================== 商品自动同步任务 ====================

// AutoSyncTask 为开启 autoSyncProducts 的绑定定时触发商品同步
// 枚举本地作用域快照里配置过的账号，逐个检查服务端绑定
type AutoSyncTask struct {
	scopeRepo repository.ScopeRepository
	query     *service.QueryService
	syncSvc   *service.SyncService
	cron      *cron.Cron

	// 控制并发触发的数量，避免打满上游的同步队列
	concurrencyLimit int
	sleepTime        time.Duration
}

// NewAutoSyncTask 创建自动同步任务
func NewAutoSyncTask(scopeRepo repository.ScopeRepository, query *service.QueryService, syncSvc *service.SyncService) *AutoSyncTask {
	return &AutoSyncTask{
		scopeRepo:        scopeRepo,
		query:            query,
		syncSvc:          syncSvc,
		cron:             cron.New(cron.WithSeconds()), // 支持秒级控制
		concurrencyLimit: 5,
		sleepTime:        200 * time.Millisecond, // 每个协程启动间隔，平滑波峰
	}
}

// SetConcurrency 调整并发与间隔
func (t *AutoSyncTask) SetConcurrency(limit int, sleep time.Duration) {
	if limit > 0 {
		t.concurrencyLimit = limit
	}
	t.sleepTime = sleep
}

// Start 启动定时任务 (每 30 分钟一轮)
func (t *AutoSyncTask) Start() {
	_, err := t.cron.AddFunc("0 0/30 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		t.runOnce(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动商品自动同步任务: %v", err)
	}

	t.cron.Start()
	log.Println("[AutoSync] 商品自动同步任务已启动 (每30分钟检查一次)")
}

// Stop 停止定时任务
func (t *AutoSyncTask) Stop() {
	t.cron.Stop()
}

// RunNow 手动触发一轮
func (t *AutoSyncTask) RunNow(ctx context.Context) {
	t.runOnce(ctx)
}

// runOnce 一轮自动同步
func (t *AutoSyncTask) runOnce(ctx context.Context) {
	snaps, err := t.scopeRepo.ListAll(ctx)
	if err != nil {
		log.Printf("[AutoSync] 枚举作用域快照失败: %v", err)
		return
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	log.Printf("[AutoSync] 开始检查 %d 个账号的自动同步配置，并发上限: %d", len(snaps), t.concurrencyLimit)

	for _, snap := range snaps {
		select {
		case <-ctx.Done():
			log.Println("[AutoSync] 任务超时停止")
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(s model.ScopeSnapshot) {
			defer wg.Done()
			defer func() { <-sem }()
			t.syncAccount(ctx, s)
		}(snap)
	}

	wg.Wait()
	log.Println("[AutoSync] 本轮自动同步检查完成")
}

// syncAccount 单个账号: 绑定开启 autoSyncProducts 才触发商品同步
func (t *AutoSyncTask) syncAccount(ctx context.Context, snap model.ScopeSnapshot) {
	k := service.ScopeKey{
		WorkspaceID: snap.WorkspaceID,
		Provider:    snap.Provider,
		AuthID:      snap.AccountAuthID,
	}

	cfg, saved, err := t.query.BindingConfig(ctx, k)
	if err != nil {
		log.Printf("[AutoSync] 账号 [%s] 绑定配置查询失败: %v", snap.AccountAuthID, err)
		return
	}
	if !saved || !cfg.AutoSyncProducts {
		return
	}

	if _, err := t.syncSvc.SyncProducts(ctx, k); err != nil {
		log.Printf("[AutoSync] 账号 [%s] 商品同步触发失败: %v", snap.AccountAuthID, err)
	}
}
