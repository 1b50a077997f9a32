package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/pkg/utils"
)

// ==================== 会话切片 ====================

// 防抖窗口: slice 快照 200ms，商品缓存 500ms
const (
	sliceDebounce        = 200 * time.Millisecond
	productCacheDebounce = 500 * time.Millisecond
)

// Identity 当前登录身份
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// SliceState GMV Max 切片: 一个 workspace 的可持久化会话状态
type SliceState struct {
	WorkspaceID string            `json:"workspace_id"`
	Scope       model.ScopeState  `json:"scope"`
	ProductKeys []string          `json:"product_keys,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// SessionService 会话身份与切片持久化
// 身份 + checked 标记 (首次探测是否完成)；slice 与商品缓存防抖落库
type SessionService struct {
	sliceRepo repository.SliceRepository
	cacheRepo repository.ProductCacheRepository

	mu       sync.Mutex
	identity Identity
	checked  bool

	slices map[string]*sliceEntry // workspaceID -> entry
}

type sliceEntry struct {
	mu        sync.Mutex
	state     SliceState
	debouncer *utils.Debouncer

	cacheMu    sync.Mutex
	cacheDirty map[string][]byte // cacheKey -> payload 待落库
	cacheDeb   *utils.Debouncer
}

// NewSessionService 创建会话服务
func NewSessionService(sliceRepo repository.SliceRepository, cacheRepo repository.ProductCacheRepository) *SessionService {
	return &SessionService{
		sliceRepo: sliceRepo,
		cacheRepo: cacheRepo,
		slices:    make(map[string]*sliceEntry),
	}
}

// ==================== 身份 ====================

// SetIdentity 登录探测成功后写入身份并置 checked
func (s *SessionService) SetIdentity(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	s.checked = true
}

// MarkChecked 探测完成但未登录 (匿名态)
func (s *SessionService) MarkChecked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checked = true
}

// Identity 当前身份与 checked 标记
func (s *SessionService) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.checked
}

// ClearIdentity 登出
func (s *SessionService) ClearIdentity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = Identity{}
	// checked 保持 true: 探测已经发生过
}

// ==================== Slice 持久化 ====================

func (s *SessionService) sliceEntry(workspaceID string) *sliceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.slices[workspaceID]; ok {
		return e
	}
	e := &sliceEntry{
		state:      SliceState{WorkspaceID: workspaceID},
		cacheDirty: make(map[string][]byte),
	}
	e.debouncer = utils.NewDebouncer(sliceDebounce, func() { s.flushSlice(workspaceID, e) })
	e.cacheDeb = utils.NewDebouncer(productCacheDebounce, func() { s.flushProductCache(workspaceID, e) })
	s.slices[workspaceID] = e
	return e
}

// UpdateSlice 更新切片状态，防抖落库
func (s *SessionService) UpdateSlice(workspaceID string, mutate func(*SliceState)) {
	e := s.sliceEntry(workspaceID)
	e.mu.Lock()
	mutate(&e.state)
	e.mu.Unlock()
	e.debouncer.Trigger()
}

func (s *SessionService) flushSlice(workspaceID string, e *sliceEntry) {
	e.mu.Lock()
	payload, err := json.Marshal(e.state)
	e.mu.Unlock()
	if err != nil {
		log.Printf("[Session] slice 序列化失败 workspace=%s: %v", workspaceID, err)
		return
	}
	if err := s.sliceRepo.Save(context.Background(), workspaceID, payload); err != nil {
		log.Printf("[Session] slice 落库失败 workspace=%s: %v", workspaceID, err)
	}
}

// Rehydrate 启动时恢复切片
// 只接受能解析的子集，畸形 payload 按空白状态处理
func (s *SessionService) Rehydrate(ctx context.Context, workspaceID string) SliceState {
	e := s.sliceEntry(workspaceID)

	payload, err := s.sliceRepo.Load(ctx, workspaceID)
	if err != nil || len(payload) == 0 {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.state
	}

	var restored SliceState
	if uerr := json.Unmarshal(payload, &restored); uerr != nil {
		log.Printf("[Session] slice 快照损坏，忽略 workspace=%s: %v", workspaceID, uerr)
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.state
	}
	restored.WorkspaceID = workspaceID

	e.mu.Lock()
	e.state = restored
	st := e.state
	e.mu.Unlock()
	return st
}

// Slice 当前切片状态 (副本)
func (s *SessionService) Slice(workspaceID string) SliceState {
	e := s.sliceEntry(workspaceID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ==================== 商品缓存持久化 ====================

// SaveProductCache 请求落库一份商品缓存 (500ms 防抖合并)
func (s *SessionService) SaveProductCache(workspaceID, cacheKey string, payload []byte) {
	e := s.sliceEntry(workspaceID)
	e.cacheMu.Lock()
	e.cacheDirty[cacheKey] = payload
	e.cacheMu.Unlock()
	e.cacheDeb.Trigger()
}

func (s *SessionService) flushProductCache(workspaceID string, e *sliceEntry) {
	e.cacheMu.Lock()
	dirty := e.cacheDirty
	e.cacheDirty = make(map[string][]byte)
	e.cacheMu.Unlock()

	for key, payload := range dirty {
		// 内容未变化时 repo 层会跳过写入
		if err := s.cacheRepo.Save(context.Background(), workspaceID, key, payload); err != nil {
			log.Printf("[Session] 商品缓存落库失败 workspace=%s key=%s: %v", workspaceID, key, err)
		}
	}
}

// LoadProductCache 启动时预热商品缓存
func (s *SessionService) LoadProductCache(ctx context.Context, workspaceID string) (map[string][]byte, error) {
	return s.cacheRepo.LoadAll(ctx, workspaceID)
}

// Teardown workspace 卸载: 挂起的写入立即落库，条目移除
func (s *SessionService) Teardown(workspaceID string) {
	s.mu.Lock()
	e, ok := s.slices[workspaceID]
	if ok {
		delete(s.slices, workspaceID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	e.debouncer.Stop()
	e.cacheDeb.Stop()
}
