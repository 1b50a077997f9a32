package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/normalize"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/pkg/net"
	"gmvmax_dev_v1_202602/pkg/tiktok"
)

// ==================== 作用域与绑定引擎 ====================

// ScopeService 维护 (workspace, provider) 维度的作用域状态机
// 产出 scopeReady / shouldFetchSeries 门控，供系列侧查询依赖
type ScopeService struct {
	query      *QueryService
	dispatcher net.Dispatcher
	scopeRepo  repository.ScopeRepository
	presetRepo repository.PresetRepository

	mu     sync.Mutex
	states map[string]*scopeEntry // wid|provider -> entry
}

type scopeEntry struct {
	state model.ScopeState

	// generation 丢弃迟到的自动绑定/同步响应
	// 每次作用域变更自增，异步结果回写前比对
	generation uint64

	// refresh=1 的强制刷新每个账号最多一次
	refreshedAccounts map[string]bool

	hasSavedBinding bool
	binding         tiktok.BindingConfig
}

// NewScopeService 创建作用域服务
func NewScopeService(query *QueryService, dispatcher net.Dispatcher, scopeRepo repository.ScopeRepository, presetRepo repository.PresetRepository) *ScopeService {
	return &ScopeService{
		query:      query,
		dispatcher: dispatcher,
		scopeRepo:  scopeRepo,
		presetRepo: presetRepo,
		states:     make(map[string]*scopeEntry),
	}
}

func stateKey(workspaceID, provider string) string {
	return workspaceID + "|" + provider
}

// entry 取或建状态条目；首次访问时从持久化快照恢复
func (s *ScopeService) entry(ctx context.Context, workspaceID, provider string) *scopeEntry {
	key := stateKey(workspaceID, provider)
	if e, ok := s.states[key]; ok {
		return e
	}

	e := &scopeEntry{
		state: model.ScopeState{
			WorkspaceID: workspaceID,
			Provider:    provider,
			Phase:       model.ScopeUnselected,
		},
		refreshedAccounts: make(map[string]bool),
	}

	// provider 不一致时 Load 返回 nil，旧四元组直接丢弃
	if snap, err := s.scopeRepo.Load(ctx, workspaceID, provider); err != nil {
		log.Printf("[Scope] 读取作用域快照失败 workspace=%s: %v", workspaceID, err)
	} else if snap != nil {
		e.state.AccountAuthID = snap.AccountAuthID
		e.state.BCID = snap.BusinessCenterID
		e.state.AdvertiserID = snap.AdvertiserID
		e.state.StoreID = snap.StoreID
		if e.state.AccountAuthID != "" {
			e.state.Phase = model.ScopeSelecting
		}
	}

	s.states[key] = e
	return e
}

// State 当前作用域状态 (副本)
func (s *ScopeService) State(ctx context.Context, workspaceID, provider string) model.ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry(ctx, workspaceID, provider).state
}

// persist 落库当前四元组
func (s *ScopeService) persist(ctx context.Context, e *scopeEntry) {
	snap := &model.ScopeSnapshot{
		WorkspaceID:      e.state.WorkspaceID,
		Provider:         e.state.Provider,
		AccountAuthID:    e.state.AccountAuthID,
		BusinessCenterID: e.state.BCID,
		AdvertiserID:     e.state.AdvertiserID,
		StoreID:          e.state.StoreID,
	}
	if err := s.scopeRepo.Save(ctx, snap); err != nil {
		log.Printf("[Scope] 保存作用域快照失败 workspace=%s: %v", e.state.WorkspaceID, err)
	}
}

// scopeKey 当前条目对应的查询寻址前缀
func (e *scopeEntry) scopeKey() ScopeKey {
	return ScopeKey{
		WorkspaceID: e.state.WorkspaceID,
		Provider:    e.state.Provider,
		AuthID:      e.state.AccountAuthID,
	}
}

// recomputePhase 根据四元组与绑定推导终态
func (e *scopeEntry) recomputePhase() {
	st := &e.state
	switch {
	case st.AccountAuthID == "":
		st.Phase = model.ScopeUnselected
	case !st.ScopeReady():
		if st.StoreID != "" {
			st.Phase = model.ScopeDeriving
		} else {
			st.Phase = model.ScopeSelecting
		}
	case e.hasSavedBinding && st.MatchesBinding(e.binding.BCID, e.binding.AdvertiserID, e.binding.StoreID):
		st.Phase = model.ScopeReadyBound
	default:
		st.Phase = model.ScopeReadyUnbound
	}
}

// ==================== 账号切换 ====================

// SelectAccount 切换账号: 清空 (bc, advertiser, store)，重拉选项与绑定
// 选项为空时触发一次 refresh=1 强制刷新 (每账号最多一次)
func (s *ScopeService) SelectAccount(ctx context.Context, workspaceID, provider, authID string) (model.ScopeState, error) {
	s.mu.Lock()
	e := s.entry(ctx, workspaceID, provider)
	e.generation++
	gen := e.generation

	e.state.AccountAuthID = authID
	e.state.BCID = ""
	e.state.AdvertiserID = ""
	e.state.StoreID = ""
	e.state.AutoBindingStatus = model.AutoBindIdle
	e.state.AutoBindingError = ""
	e.hasSavedBinding = false
	e.binding = tiktok.BindingConfig{}

	if authID == "" {
		e.state.Phase = model.ScopeUnselected
		s.persist(ctx, e)
		st := e.state
		s.mu.Unlock()
		return st, nil
	}

	e.state.Phase = model.ScopeSelecting
	e.state.LoadingBinding = true
	k := e.scopeKey()
	s.mu.Unlock()

	options, err := s.query.Options(ctx, k, false)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e.generation == gen {
			e.state.LoadingBinding = false
		}
		return e.state, err
	}

	// 选项为空 -> 强制刷新一次
	if normalize.IsOptionsEmpty(options) {
		s.mu.Lock()
		already := e.refreshedAccounts[authID]
		if !already {
			e.refreshedAccounts[authID] = true
		}
		s.mu.Unlock()
		if !already {
			log.Printf("[Scope] 选项为空，强制刷新 workspace=%s auth=%s", workspaceID, authID)
			if refreshed, rerr := s.query.Options(ctx, k, true); rerr == nil {
				options = refreshed
			}
		}
	}

	cfg, saved, err := s.query.BindingConfig(ctx, k)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.generation != gen {
		// 期间又切过账号，丢弃本次结果
		return e.state, nil
	}
	e.state.LoadingBinding = false
	if err != nil {
		e.recomputePhase()
		return e.state, err
	}

	e.hasSavedBinding = saved && !cfg.IsZero()
	e.binding = cfg

	// 服务端有绑定且 id 仍存在于选项 -> 直接采用
	if e.hasSavedBinding && normalize.StoreEligible(options, cfg.StoreID) {
		e.state.BCID = cfg.BCID
		e.state.AdvertiserID = cfg.AdvertiserID
		e.state.StoreID = cfg.StoreID
	}

	e.dropMissingIDs(options)
	e.recomputePhase()
	s.persist(ctx, e)
	return e.state, nil
}

// dropMissingIDs 选中 id 不在刷新后的选项里时，连同下级一起清掉
func (e *scopeEntry) dropMissingIDs(options *model.OptionsPayload) {
	if options == nil {
		return
	}
	if e.state.BCID != "" && !containsBC(options.BusinessCenters, e.state.BCID) {
		log.Printf("[Scope] 商务中心 %s 已不存在，清空下级选择", e.state.BCID)
		e.state.BCID = ""
		e.state.AdvertiserID = ""
		e.state.StoreID = ""
		e.state.Phase = model.ScopeInvalid
		return
	}
	if e.state.AdvertiserID != "" && !containsAdv(options.Advertisers, e.state.AdvertiserID) {
		log.Printf("[Scope] 广告主 %s 已不存在，清空下级选择", e.state.AdvertiserID)
		e.state.AdvertiserID = ""
		e.state.StoreID = ""
		e.state.Phase = model.ScopeInvalid
		return
	}
	if e.state.StoreID != "" && !containsStoreID(options.Stores, e.state.StoreID) {
		log.Printf("[Scope] 店铺 %s 已不存在，清空选择", e.state.StoreID)
		e.state.StoreID = ""
		e.state.Phase = model.ScopeInvalid
	}
}

func containsBC(list []model.BusinessCenter, id string) bool {
	for _, bc := range list {
		if bc.BCID == id {
			return true
		}
	}
	return false
}

func containsAdv(list []model.Advertiser, id string) bool {
	for _, a := range list {
		if a.AdvertiserID == id {
			return true
		}
	}
	return false
}

func containsStoreID(list []model.Store, id string) bool {
	for _, st := range list {
		if st.StoreID == id {
			return true
		}
	}
	return false
}

// ==================== 店铺切换与自动绑定 ====================

// StoreSelection 店铺切换入参
// PrefillAdvertiserID/PrefillBCID 来自聚合店铺选项的预填充
type StoreSelection struct {
	StoreID             string
	PrefillAdvertiserID string
	PrefillBCID         string
}

// SelectStore 切换店铺并触发自动绑定 {store_id, persist:true}
// 自动绑定失败只降级为 warning，不阻塞作用域
func (s *ScopeService) SelectStore(ctx context.Context, workspaceID, provider string, sel StoreSelection) (model.ScopeState, error) {
	s.mu.Lock()
	e := s.entry(ctx, workspaceID, provider)
	if e.state.AccountAuthID == "" {
		s.mu.Unlock()
		return e.state, fmt.Errorf("未选择账号，无法切换店铺")
	}
	e.generation++
	gen := e.generation

	e.state.StoreID = sel.StoreID
	if sel.PrefillAdvertiserID != "" {
		e.state.AdvertiserID = sel.PrefillAdvertiserID
	}
	if sel.PrefillBCID != "" {
		e.state.BCID = sel.PrefillBCID
	}
	e.state.Phase = model.ScopeAutoBinding
	e.state.AutoBindingStatus = model.AutoBindRunning
	e.state.AutoBindingError = ""
	k := e.scopeKey()
	s.mu.Unlock()

	var raw json.RawMessage
	err := s.dispatcher.Post(ctx, tiktok.AutoBindPath(k.WorkspaceID, k.Provider, k.AuthID),
		tiktok.AutoBindReq{StoreID: sel.StoreID, Persist: true}, &raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.generation != gen {
		return e.state, nil
	}

	if err != nil {
		log.Printf("[Scope] 自动绑定失败 store=%s: %v", sel.StoreID, err)
		e.state.AutoBindingStatus = model.AutoBindWarning
		e.state.AutoBindingError = err.Error()
		e.recomputePhase()
		s.persist(ctx, e)
		return e.state, nil
	}

	candidates := normalize.ParseAutoBindCandidates(raw)
	if chosen, ok := PickAutoBindCandidate(candidates); ok {
		if chosen.AdvertiserID != "" {
			e.state.AdvertiserID = chosen.AdvertiserID
		}
		if chosen.StoreAuthorizedBCID != "" {
			e.state.BCID = chosen.StoreAuthorizedBCID
		} else if chosen.BCID != "" {
			e.state.BCID = chosen.BCID
		}
	}
	e.state.AutoBindingStatus = model.AutoBindDone

	// 绑定配置已被服务端改写，失效后重拉
	s.query.InvalidateConfig(k)
	s.mu.Unlock()
	cfg, saved, cerr := s.query.BindingConfig(ctx, k)
	s.mu.Lock()
	if e.generation != gen {
		// 重拉期间作用域已被切走，本次结果作废
		return e.state, nil
	}
	if cerr == nil {
		e.hasSavedBinding = saved && !cfg.IsZero()
		e.binding = cfg
	}

	e.recomputePhase()
	s.persist(ctx, e)
	return e.state, nil
}

// PickAutoBindCandidate 自动绑定候选挑选
// 优先级:
//  1. 有 store_authorized_bc_id 且允许全量推广、未跑自定义商城广告、授权状态 EFFECTIVE 或空
//  2. 第一个 EFFECTIVE
//  3. 第一个非 UNAUTHORIZED
//  4. 第一个
func PickAutoBindCandidate(candidates []model.AutoBindCandidate) (model.AutoBindCandidate, bool) {
	if len(candidates) == 0 {
		return model.AutoBindCandidate{}, false
	}

	for _, c := range candidates {
		if c.StoreAuthorizedBCID == "" {
			continue
		}
		if c.PromoteAllProducts != nil && !*c.PromoteAllProducts {
			continue
		}
		if c.IsRunningCustomShopAds != nil && *c.IsRunningCustomShopAds {
			continue
		}
		if c.AuthorizationStatus == model.AuthStatusEffective || c.AuthorizationStatus == "" {
			return c, true
		}
	}
	for _, c := range candidates {
		if c.AuthorizationStatus == model.AuthStatusEffective {
			return c, true
		}
	}
	for _, c := range candidates {
		if c.AuthorizationStatus != model.AuthStatusUnauthorized {
			return c, true
		}
	}
	return candidates[0], true
}

// ==================== 手动维度选择 ====================

// SelectBusinessCenter 手动选 BC，清空下级
func (s *ScopeService) SelectBusinessCenter(ctx context.Context, workspaceID, provider, bcID string) model.ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(ctx, workspaceID, provider)
	e.generation++
	e.state.BCID = bcID
	e.state.AdvertiserID = ""
	e.state.StoreID = ""
	e.recomputePhase()
	s.persist(ctx, e)
	return e.state
}

// SelectAdvertiser 手动选广告主，清空店铺
func (s *ScopeService) SelectAdvertiser(ctx context.Context, workspaceID, provider, advertiserID string) model.ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(ctx, workspaceID, provider)
	e.generation++
	e.state.AdvertiserID = advertiserID
	e.state.StoreID = ""
	e.recomputePhase()
	s.persist(ctx, e)
	return e.state
}

// ==================== 门控 ====================

// ShouldFetchSeries 系列侧拉取门控
// 要求: 路径组件齐全 ∧ scopeReady ∧ 绑定加载完成 ∧ 有已保存绑定 ∧ 绑定一致
func (s *ScopeService) ShouldFetchSeries(ctx context.Context, workspaceID, provider string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(ctx, workspaceID, provider)
	if workspaceID == "" || provider == "" || e.state.AccountAuthID == "" {
		return false
	}
	if !e.state.ScopeReady() || e.state.LoadingBinding {
		return false
	}
	if !e.hasSavedBinding {
		return false
	}
	return e.state.MatchesBinding(e.binding.BCID, e.binding.AdvertiserID, e.binding.StoreID)
}

// Binding 当前服务端绑定 (存在性 + 内容)
func (s *ScopeService) Binding(ctx context.Context, workspaceID, provider string) (tiktok.BindingConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(ctx, workspaceID, provider)
	return e.binding, e.hasSavedBinding
}

// ==================== 预设 ====================

// SavePreset 把当前作用域存为预设
func (s *ScopeService) SavePreset(ctx context.Context, workspaceID, provider, label string) (*model.ScopePresetRecord, error) {
	s.mu.Lock()
	e := s.entry(ctx, workspaceID, provider)
	st := e.state
	s.mu.Unlock()

	if !st.ScopeReady() {
		return nil, fmt.Errorf("作用域未就绪，无法保存预设")
	}
	preset := &model.ScopePresetRecord{
		WorkspaceID:   workspaceID,
		AccountAuthID: st.AccountAuthID,
		BCID:          st.BCID,
		AdvertiserID:  st.AdvertiserID,
		StoreID:       st.StoreID,
		Label:         label,
	}
	if err := s.presetRepo.Save(ctx, preset); err != nil {
		return nil, err
	}
	return preset, nil
}

// ListPresets 列出预设
func (s *ScopeService) ListPresets(ctx context.Context, workspaceID string) ([]model.ScopePresetRecord, error) {
	return s.presetRepo.List(ctx, workspaceID)
}

// DeletePreset 删除预设
func (s *ScopeService) DeletePreset(ctx context.Context, workspaceID, presetID string) error {
	return s.presetRepo.Delete(ctx, workspaceID, presetID)
}

// ApplyPreset 套用预设: 先切账号，再按预设回填三元组并走店铺切换流程
func (s *ScopeService) ApplyPreset(ctx context.Context, workspaceID, provider, presetID string) (model.ScopeState, error) {
	presets, err := s.presetRepo.List(ctx, workspaceID)
	if err != nil {
		return model.ScopeState{}, err
	}
	var target *model.ScopePresetRecord
	for i := range presets {
		if presets[i].PresetID == presetID {
			target = &presets[i]
			break
		}
	}
	if target == nil {
		return model.ScopeState{}, fmt.Errorf("预设不存在: %s", presetID)
	}

	if _, err := s.SelectAccount(ctx, workspaceID, provider, target.AccountAuthID); err != nil {
		return model.ScopeState{}, err
	}
	return s.SelectStore(ctx, workspaceID, provider, StoreSelection{
		StoreID:             target.StoreID,
		PrefillAdvertiserID: target.AdvertiserID,
		PrefillBCID:         target.BCID,
	})
}

// ClearScope 清空作用域与持久化快照
func (s *ScopeService) ClearScope(ctx context.Context, workspaceID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(ctx, workspaceID, provider)
	e.generation++
	e.state = model.ScopeState{
		WorkspaceID: workspaceID,
		Provider:    provider,
		Phase:       model.ScopeUnselected,
	}
	e.hasSavedBinding = false
	e.binding = tiktok.BindingConfig{}
	return s.scopeRepo.Clear(ctx, workspaceID)
}
