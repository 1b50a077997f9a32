package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/normalize"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/pkg/net"
	"gmvmax_dev_v1_202602/pkg/tiktok"
)

// ==================== 系列服务 ====================

// 规范化后的系列操作
const (
	ActionStart     = "START"
	ActionPause     = "PAUSE"
	ActionDelete    = "DELETE"
	ActionSetBudget = "SET_BUDGET"
	ActionSetRoas   = "SET_ROAS"
)

// actionSynonyms 旧版操作名映射
// 前代控制台用小写/别名提交，统一收敛后再发给上游
var actionSynonyms = map[string]string{
	"start":      ActionStart,
	"resume":     ActionStart,
	"RESUME":     ActionStart,
	"pause":      ActionPause,
	"delete":     ActionDelete,
	"remove":     ActionDelete,
	"set_budget": ActionSetBudget,
	"set_roas":   ActionSetRoas,
}

// SeriesService GMV Max 系列的读写编排
// 读取走 QueryService 缓存，写入成功后统一失效受影响的条目
type SeriesService struct {
	dispatcher net.Dispatcher
	query      *QueryService
	auditRepo  repository.ActionLogRepository
}

// NewSeriesService 创建系列服务
func NewSeriesService(dispatcher net.Dispatcher, query *QueryService, auditRepo repository.ActionLogRepository) *SeriesService {
	return &SeriesService{
		dispatcher: dispatcher,
		query:      query,
		auditRepo:  auditRepo,
	}
}

// ==================== 列表与详情 ====================

// SeriesView 列表页的系列视图: 过滤后的可见系列 + 详情 pending 的系列 id
type SeriesView struct {
	Campaigns  []model.Campaign `json:"campaigns"`
	PendingIDs []string         `json:"pending_ids,omitempty"`
}

// ListVisible 按当前作用域过滤可见系列
// 详情未就绪的系列不显示，但 id 透出给调用方轮询
func (s *SeriesService) ListVisible(ctx context.Context, k ScopeKey, target, fallback normalize.ScopeTarget, opts normalize.MatchOptions) (SeriesView, error) {
	campaigns, err := s.query.CampaignList(ctx, k)
	if err != nil {
		return SeriesView{}, err
	}

	ids := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.CampaignID)
	}
	details := s.query.CampaignDetails(ctx, k, ids)

	// 拉取失败的详情按加载中处理，交给 pending 语义兜底
	loading := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := details[id]; !ok {
			loading[id] = true
		}
	}

	visible, pending := normalize.FilterVisibleCampaigns(campaigns, details, loading, target, fallback, opts)
	return SeriesView{Campaigns: visible, PendingIDs: pending}, nil
}

// ==================== 创建向导 ====================

// CreateSeriesInput 创建系列的三步入参
type CreateSeriesInput struct {
	// 第一步: 基础信息
	Name             string `json:"name"`
	ShoppingAdsType  string `json:"shopping_ads_type"`
	OptimizationGoal string `json:"optimization_goal"`
	BidType          string `json:"bid_type"`
	BudgetCents      *int64 `json:"budget_cents"`
	RoasBid          string `json:"roas_bid"`

	// 第二步: 商品选择
	ProductIDs []string `json:"product_ids"`
}

// validateStep1 基础信息必填校验
func validateStep1(in CreateSeriesInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("系列名称不能为空")
	}
	if in.ShoppingAdsType == "" || in.OptimizationGoal == "" || in.BidType == "" {
		return fmt.Errorf("投放类型、优化目标与出价方式均为必填")
	}
	if in.BudgetCents != nil && *in.BudgetCents <= 0 {
		return fmt.Errorf("预算必须为正整数 (单位: 分)")
	}
	return nil
}

// validateStep2 商品选择必须非空，且全部处于可投状态
func (s *SeriesService) validateStep2(ctx context.Context, k ScopeKey, productIDs []string) error {
	if len(productIDs) == 0 {
		return fmt.Errorf("至少选择一个商品")
	}
	products, err := s.query.Products(ctx, k)
	if err != nil {
		return err
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}
	for _, id := range productIDs {
		p, ok := byID[id]
		if !ok {
			return fmt.Errorf("商品 %s 不在当前店铺商品列表中", id)
		}
		if !normalize.IsProductAvailable(p) {
			return fmt.Errorf("商品 %s 当前不可投放", id)
		}
	}
	return nil
}

// CreateSeries 三步创建: 校验基础信息 -> 校验商品 -> 提交 {campaign, session}
// 成功后失效系列列表与商品缓存 (占用状态变了)
func (s *SeriesService) CreateSeries(ctx context.Context, k ScopeKey, scope model.ScopeState, in CreateSeriesInput) (json.RawMessage, error) {
	if err := validateStep1(in); err != nil {
		return nil, err
	}
	if err := s.validateStep2(ctx, k, in.ProductIDs); err != nil {
		return nil, err
	}

	req := tiktok.CreateSeriesReq{
		Campaign: tiktok.CampaignSpec{
			Name:             strings.TrimSpace(in.Name),
			ShoppingAdsType:  in.ShoppingAdsType,
			OptimizationGoal: in.OptimizationGoal,
			BidType:          in.BidType,
			AdvertiserID:     scope.AdvertiserID,
			StoreID:          scope.StoreID,
			Budget:           in.BudgetCents,
			RoasBid:          in.RoasBid,
		},
		Session: tiktok.SessionSpec{
			StoreID:     scope.StoreID,
			ProductList: toProductRefs(in.ProductIDs),
		},
	}

	var raw json.RawMessage
	if err := s.dispatcher.Post(ctx, tiktok.SeriesPath(k.WorkspaceID, k.Provider, k.AuthID), req, &raw); err != nil {
		return nil, err
	}

	s.query.InvalidateSeries(k)
	s.query.InvalidateProducts(k)
	log.Printf("[Series] 系列已创建 name=%s store=%s products=%d", req.Campaign.Name, scope.StoreID, len(in.ProductIDs))
	return raw, nil
}

func toProductRefs(ids []string) []tiktok.ProductRef {
	refs := make([]tiktok.ProductRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, tiktok.ProductRef{SpuID: id})
	}
	return refs
}

// ==================== 编辑 ====================

// EditSeriesInput 编辑入参 (与当前详情 diff 后只提交变化项)
type EditSeriesInput struct {
	Name        string   `json:"name"`
	BudgetCents *int64   `json:"budget_cents"`
	RoasBid     string   `json:"roas_bid"`
	ProductIDs  []string `json:"product_ids"` // nil 表示不改商品
}

// EditSeries 编辑系列
// campaignPatch 只包含变化的 {name, budget, roas_bid}；
// 商品选择有变且 sessionId 已知时并行提交 session 更新；
// 任一失败返回带上下文的错误
func (s *SeriesService) EditSeries(ctx context.Context, k ScopeKey, campaignID string, in EditSeriesInput) error {
	detail, err := s.query.CampaignDetail(ctx, k, campaignID)
	if err != nil {
		return err
	}

	patch := make(map[string]interface{})
	if name := strings.TrimSpace(in.Name); name != "" && name != detail.Name {
		patch["name"] = name
	}
	if in.BudgetCents != nil {
		if *in.BudgetCents <= 0 {
			return fmt.Errorf("预算必须为正整数 (单位: 分)")
		}
		if detail.BudgetCents != *in.BudgetCents {
			patch["budget"] = *in.BudgetCents
		}
	}
	if in.RoasBid != "" && in.RoasBid != detail.RoasBid {
		patch["roas_bid"] = in.RoasBid
	}

	// 商品更新需要已知 session
	var sessionUpdate *tiktok.UpdateSeriesReq
	if in.ProductIDs != nil {
		sessionID := firstSessionID(detail)
		if sessionID == "" {
			return fmt.Errorf("系列缺少会话信息，无法更新商品选择")
		}
		if !sameIDSet(in.ProductIDs, detail.ProductIDs()) {
			sessionUpdate = &tiktok.UpdateSeriesReq{
				SessionID:   sessionID,
				ProductList: toProductRefs(in.ProductIDs),
			}
		}
	}

	if len(patch) == 0 && sessionUpdate == nil {
		return fmt.Errorf("没有需要保存的修改")
	}

	// campaignPatch 与 session 更新并行提交
	var wg sync.WaitGroup
	var patchErr, sessionErr error
	path := tiktok.SeriesDetailPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID)

	if len(patch) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			patchErr = s.dispatcher.Put(ctx, path, tiktok.UpdateSeriesReq{CampaignPatch: patch}, nil)
		}()
	}
	if sessionUpdate != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessionErr = s.dispatcher.Put(ctx, path, *sessionUpdate, nil)
		}()
	}
	wg.Wait()

	if patchErr != nil {
		return fmt.Errorf("保存系列基础信息失败: %w", patchErr)
	}
	if sessionErr != nil {
		return fmt.Errorf("保存商品选择失败: %w", sessionErr)
	}

	s.query.InvalidateCampaign(k, campaignID)
	s.query.InvalidateProducts(k)
	log.Printf("[Series] 系列已更新 campaign=%s patched=%d session=%v", campaignID, len(patch), sessionUpdate != nil)
	return nil
}

func firstSessionID(detail *model.CampaignDetail) string {
	for _, sess := range detail.Sessions {
		if sess.SessionID != "" {
			return sess.SessionID
		}
	}
	return ""
}

// sameIDSet 忽略顺序比较两个 id 集合
func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// ==================== 操作 ====================

// NormalizeAction 操作名收敛 (旧版别名 -> 规范名)
func NormalizeAction(action string) (string, bool) {
	switch action {
	case ActionStart, ActionPause, ActionDelete, ActionSetBudget, ActionSetRoas:
		return action, true
	}
	if canonical, ok := actionSynonyms[action]; ok {
		return canonical, true
	}
	if canonical, ok := actionSynonyms[strings.ToLower(action)]; ok {
		return canonical, true
	}
	return "", false
}

// ApplyAction 对系列执行操作
// SET_BUDGET 要求正整数分值，SET_ROAS 要求非空字符串
// 成功后失效该系列的 detail/strategy/actions/metrics 与列表，并写本地审计
func (s *SeriesService) ApplyAction(ctx context.Context, k ScopeKey, campaignID string, action string, payload map[string]interface{}) error {
	canonical, ok := NormalizeAction(action)
	if !ok {
		return fmt.Errorf("不支持的操作: %s", action)
	}

	switch canonical {
	case ActionSetBudget:
		budget, err := positiveIntField(payload, "daily_budget_cents", "budget")
		if err != nil {
			return err
		}
		payload = map[string]interface{}{"daily_budget_cents": budget}
	case ActionSetRoas:
		roas, _ := payload["roas_bid"].(string)
		if strings.TrimSpace(roas) == "" {
			return fmt.Errorf("ROAS 出价不能为空")
		}
		payload = map[string]interface{}{"roas_bid": roas}
	}

	err := s.dispatcher.Post(ctx,
		tiktok.ActionsPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID),
		tiktok.ActionReq{Action: canonical, Payload: payload}, nil)

	s.audit(ctx, k, campaignID, canonical, err)
	if err != nil {
		return err
	}

	s.query.InvalidateCampaign(k, campaignID)
	if canonical == ActionStart || canonical == ActionPause || canonical == ActionDelete {
		// 启停影响商品占用
		s.query.InvalidateProducts(k)
	}
	return nil
}

// positiveIntField 取正整数字段，按别名顺序取第一个存在的
// (JSON 数字解码为 float64)
func positiveIntField(payload map[string]interface{}, fields ...string) (int64, error) {
	for _, field := range fields {
		v, ok := payload[field]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			if n <= 0 || n != float64(int64(n)) {
				return 0, fmt.Errorf("%s 必须为正整数 (单位: 分)", field)
			}
			return int64(n), nil
		case int64:
			if n <= 0 {
				return 0, fmt.Errorf("%s 必须为正整数 (单位: 分)", field)
			}
			return n, nil
		case int:
			if n <= 0 {
				return 0, fmt.Errorf("%s 必须为正整数 (单位: 分)", field)
			}
			return int64(n), nil
		}
		return 0, fmt.Errorf("%s 必须为正整数 (单位: 分)", field)
	}
	return 0, fmt.Errorf("缺少 %s 字段", fields[0])
}

// audit 本地审计记录 (失败只打日志)
func (s *SeriesService) audit(ctx context.Context, k ScopeKey, campaignID, action string, opErr error) {
	rec := &model.ActionLogRecord{
		WorkspaceID: k.WorkspaceID,
		CampaignID:  campaignID,
		Action:      action,
		Result:      "ok",
		Actor:       k.AuthID,
	}
	if opErr != nil {
		rec.Result = "failed"
		rec.Reason = opErr.Error()
	}
	if err := s.auditRepo.Create(ctx, rec); err != nil {
		log.Printf("[Series] 写入审计记录失败 campaign=%s action=%s: %v", campaignID, action, err)
	}
}

// LocalActionLogs 本地审计查询
func (s *SeriesService) LocalActionLogs(ctx context.Context, workspaceID, campaignID string, limit int) ([]model.ActionLogRecord, error) {
	return s.auditRepo.ListByCampaign(ctx, workspaceID, campaignID, limit)
}
