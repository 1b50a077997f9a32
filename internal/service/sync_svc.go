package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"gmvmax_dev_v1_202602/internal/middleware"
	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/pkg/net"
	"gmvmax_dev_v1_202602/pkg/tiktok"
	"gmvmax_dev_v1_202602/pkg/utils"
)

// ==================== 同步编排 ====================

// 轮询预算: 2s x 90 次，总计约 3 分钟
const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 90

	reportWindowDays = 7
)

// defaultReportMetrics 同步任务默认拉取的指标集合
var defaultReportMetrics = []string{"cost", "net_cost", "orders", "cost_per_order", "gross_revenue", "roi"}

// SyncService 同步任务的触发与轮询编排
// 每类同步按账号维度做冷却限流；任务入队后按固定间隔轮询状态，
// 成功时统一失效受影响的缓存
type SyncService struct {
	dispatcher net.Dispatcher
	query      *QueryService
	runRepo    repository.SyncRunRepository
	limiter    *middleware.SyncRateLimiter

	// 测试注入用，零值走默认
	pollInterval time.Duration
	maxPolls     int
	now          func() time.Time
}

// NewSyncService 创建同步服务
func NewSyncService(dispatcher net.Dispatcher, query *QueryService, runRepo repository.SyncRunRepository) *SyncService {
	return &SyncService{
		dispatcher:   dispatcher,
		query:        query,
		runRepo:      runRepo,
		limiter:      middleware.GetLimiter(),
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		now:          time.Now,
	}
}

// guardCooldown 账号级冷却检查，窗口未过返回 SyncCooldownError
// 名额在入队成功后才消耗，纯检查不占用
func (s *SyncService) guardCooldown(authID string, syncType middleware.SyncType) error {
	allowed, wait := s.limiter.CheckSyncAllowed(authID, syncType)
	if !allowed {
		return &middleware.SyncCooldownError{SyncType: syncType, RetryAfter: wait}
	}
	return nil
}

// ResetCooldown 清除账号某类同步的冷却 (管理入口)
func (s *SyncService) ResetCooldown(authID string, syncType middleware.SyncType) {
	s.limiter.ResetSyncLimit(authID, syncType)
}

// BuildSyncPayload 组装同步请求
// 报表窗口取最近 7 天 (UTC, 含今天)，系列过滤只带当前店铺
func (s *SyncService) BuildSyncPayload(storeID string) tiktok.SyncReq {
	r := utils.RecentDateRangeFrom(s.now(), reportWindowDays)
	return tiktok.SyncReq{
		Report: tiktok.ReportSpec{
			StartDate: r.Start,
			EndDate:   r.End,
			Metrics:   defaultReportMetrics,
		},
		CampaignFilter: tiktok.CampaignFilter{
			StoreIDs: []string{storeID},
		},
	}
}

// SyncResult 一次同步会话的最终结果
type SyncResult struct {
	TaskID   string `json:"task_id"`
	State    string `json:"state"`
	Message  string `json:"message,omitempty"`
	Attempts int    `json:"attempts"`
}

// Failed 是否失败终态 (客户端超时不算失败)
func (r SyncResult) Failed() bool {
	return r.State == tiktok.TaskStateFailure || r.State == tiktok.TaskStateRevoked
}

// SyncCampaigns 触发系列同步并轮询到终态
// 成功: 失效系列列表与商品缓存
// 失败/撤销: 返回面向用户的失败文案
// 轮询预算耗尽: 标记 TIMEOUT_CLIENT，不视为失败 (服务端任务可能仍在跑)
func (s *SyncService) SyncCampaigns(ctx context.Context, k ScopeKey, storeID string) (SyncResult, error) {
	if err := s.guardCooldown(k.AuthID, middleware.SyncTypeCampaigns); err != nil {
		return SyncResult{}, err
	}
	payload := s.BuildSyncPayload(storeID)

	var enq tiktok.TaskResp
	if err := s.dispatcher.Post(ctx, tiktok.SyncPath(k.WorkspaceID, k.Provider, k.AuthID), payload, &enq); err != nil {
		return SyncResult{}, err
	}
	if enq.TaskID == "" {
		return SyncResult{}, fmt.Errorf("同步任务入队失败: 响应缺少 task_id")
	}
	s.limiter.MarkSyncExecuted(k.AuthID, middleware.SyncTypeCampaigns)

	s.recordRun(ctx, k, enq.TaskID, tiktok.TaskStatePending)
	log.Printf("[Sync] 任务入队 task=%s store=%s", enq.TaskID, storeID)

	result := s.poll(ctx, k, enq.TaskID)
	s.updateRun(ctx, result)

	switch result.State {
	case tiktok.TaskStateSuccess:
		s.query.InvalidateSeries(k)
		s.query.InvalidateProducts(k)
		log.Printf("[Sync] 任务完成 task=%s attempts=%d", result.TaskID, result.Attempts)
	case tiktok.TaskStateFailure, tiktok.TaskStateRevoked:
		log.Printf("[Sync] 任务失败 task=%s state=%s: %s", result.TaskID, result.State, result.Message)
	case tiktok.TaskStateTimeoutClient:
		log.Printf("[Sync] 任务轮询超时 task=%s，服务端可能仍在执行", result.TaskID)
	}
	return result, nil
}

// poll 按固定间隔轮询任务状态直到终态或预算耗尽
func (s *SyncService) poll(ctx context.Context, k ScopeKey, taskID string) SyncResult {
	result := SyncResult{TaskID: taskID, State: tiktok.TaskStatePending}

	for attempt := 1; attempt <= s.maxPolls; attempt++ {
		select {
		case <-time.After(s.pollInterval):
		case <-ctx.Done():
			result.State = tiktok.TaskStateTimeoutClient
			result.Message = "同步已取消"
			return result
		}

		result.Attempts = attempt

		var status tiktok.SyncStatusResp
		err := s.dispatcher.Get(ctx, tiktok.SyncStatusPath(k.WorkspaceID, k.Provider, k.AuthID, taskID), &status)
		if err != nil {
			// 单次查询失败不终止会话，下一轮继续
			continue
		}

		result.State = status.State
		if status.Terminal() {
			result.Message = status.UIMessage()
			return result
		}
	}

	result.State = tiktok.TaskStateTimeoutClient
	result.Message = "同步耗时超出预期，请稍后刷新查看结果"
	return result
}

// TaskStatus 单次任务状态查询 (给控制台直接透出)
func (s *SyncService) TaskStatus(ctx context.Context, k ScopeKey, taskID string) (tiktok.SyncStatusResp, error) {
	var status tiktok.SyncStatusResp
	err := s.dispatcher.Get(ctx, tiktok.SyncStatusPath(k.WorkspaceID, k.Provider, k.AuthID, taskID), &status)
	return status, err
}

// ==================== 前置流水线 ====================

// SyncMeta 元数据同步 (绑定前置流水线第一步，透传入队)
func (s *SyncService) SyncMeta(ctx context.Context, k ScopeKey) (tiktok.TaskResp, error) {
	if err := s.guardCooldown(k.AuthID, middleware.SyncTypeMeta); err != nil {
		return tiktok.TaskResp{}, err
	}
	var enq tiktok.TaskResp
	if err := s.dispatcher.Post(ctx, tiktok.MetaSyncPath(k.WorkspaceID, k.Provider, k.AuthID), nil, &enq); err != nil {
		return tiktok.TaskResp{}, err
	}
	s.limiter.MarkSyncExecuted(k.AuthID, middleware.SyncTypeMeta)
	return enq, nil
}

// SyncProducts 商品同步 (绑定前置流水线第二步)
// 成功入队后失效商品缓存，让下一次读取拿到新数据
func (s *SyncService) SyncProducts(ctx context.Context, k ScopeKey) (tiktok.TaskResp, error) {
	if err := s.guardCooldown(k.AuthID, middleware.SyncTypeProducts); err != nil {
		return tiktok.TaskResp{}, err
	}
	var enq tiktok.TaskResp
	if err := s.dispatcher.Post(ctx, tiktok.ProductSyncPath(k.WorkspaceID, k.Provider, k.AuthID), nil, &enq); err != nil {
		return tiktok.TaskResp{}, err
	}
	s.limiter.MarkSyncExecuted(k.AuthID, middleware.SyncTypeProducts)
	s.query.InvalidateProducts(k)
	return enq, nil
}

// SyncMetrics 触发单个系列的指标回补
func (s *SyncService) SyncMetrics(ctx context.Context, k ScopeKey, campaignID string) (tiktok.TaskResp, error) {
	if err := s.guardCooldown(k.AuthID, middleware.SyncTypeMetrics); err != nil {
		return tiktok.TaskResp{}, err
	}
	var enq tiktok.TaskResp
	if err := s.dispatcher.Post(ctx, tiktok.MetricsSyncPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID), nil, &enq); err != nil {
		return tiktok.TaskResp{}, err
	}
	s.limiter.MarkSyncExecuted(k.AuthID, middleware.SyncTypeMetrics)
	s.query.Cache().Invalidate(s.query.key("series", k, "metrics", campaignID))
	return enq, nil
}

// ListRecentRuns 最近的同步运行记录
func (s *SyncService) ListRecentRuns(ctx context.Context, workspaceID string, limit int) ([]model.SyncRunRecord, error) {
	return s.runRepo.ListRecent(ctx, workspaceID, limit)
}

// ==================== 运行记录 ====================

func (s *SyncService) recordRun(ctx context.Context, k ScopeKey, taskID, state string) {
	rec := &model.SyncRunRecord{
		WorkspaceID:   k.WorkspaceID,
		Provider:      k.Provider,
		AccountAuthID: k.AuthID,
		TaskID:        taskID,
		State:         state,
	}
	if err := s.runRepo.Create(ctx, rec); err != nil {
		log.Printf("[Sync] 写入运行记录失败 task=%s: %v", taskID, err)
	}
}

func (s *SyncService) updateRun(ctx context.Context, result SyncResult) {
	if err := s.runRepo.UpdateState(ctx, result.TaskID, result.State, result.Message, result.Attempts); err != nil {
		log.Printf("[Sync] 更新运行记录失败 task=%s: %v", result.TaskID, err)
	}
}
