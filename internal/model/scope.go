package model

import "strings"

// ==========================================
// 作用域状态机: (账号, 商务中心, 广告主, 店铺) 四元组
// ==========================================

// ScopePhase 作用域状态机状态
type ScopePhase string

const (
	ScopeUnselected   ScopePhase = "UNSELECTED"    // 未选账号
	ScopeSelecting    ScopePhase = "SELECTING"     // 账号已选，选项/绑定加载中
	ScopeDeriving     ScopePhase = "DERIVING"      // 店铺已选，推导 (bc, advertiser)
	ScopeAutoBinding  ScopePhase = "AUTO_BINDING"  // 自动绑定请求进行中
	ScopeReadyBound   ScopePhase = "READY_BOUND"   // 四元组完整且与服务端绑定一致
	ScopeReadyUnbound ScopePhase = "READY_UNBOUND" // 四元组完整但绑定缺失或过期
	ScopeInvalid      ScopePhase = "INVALID"       // 选中 id 已不存在于刷新后的选项
)

// AutoBindingStatus 自动绑定的展示状态
type AutoBindingStatus string

const (
	AutoBindIdle    AutoBindingStatus = ""
	AutoBindRunning AutoBindingStatus = "running"
	AutoBindDone    AutoBindingStatus = "done"
	AutoBindWarning AutoBindingStatus = "warning" // 失败只给警告，不阻塞
)

// ScopeState 某个 (workspace, account) 的作用域状态
type ScopeState struct {
	WorkspaceID   string `json:"workspace_id"`
	Provider      string `json:"provider"`
	AccountAuthID string `json:"account_auth_id"`
	BCID          string `json:"bc_id"`
	AdvertiserID  string `json:"advertiser_id"`
	StoreID       string `json:"store_id"`

	Phase             ScopePhase        `json:"phase"`
	LoadingBinding    bool              `json:"loading_binding"`
	AutoBindingStatus AutoBindingStatus `json:"auto_binding_status"`
	AutoBindingError  string            `json:"auto_binding_error,omitempty"`
}

// ScopeReady 四个 id 均非空
func (s *ScopeState) ScopeReady() bool {
	return s.AccountAuthID != "" && s.BCID != "" && s.AdvertiserID != "" && s.StoreID != ""
}

// MatchesBinding 作用域三元组与服务端绑定一致
func (s *ScopeState) MatchesBinding(bcID, advertiserID, storeID string) bool {
	return s.BCID == bcID && s.AdvertiserID == advertiserID && s.StoreID == storeID
}

// ==========================================
// 作用域预设
// ==========================================

// MaxScopePresets 每个 workspace 的预设上限
const MaxScopePresets = 8

// PresetID 预设的确定性 id: auth__bc__adv__store
func PresetID(accountAuthID, bcID, advertiserID, storeID string) string {
	return strings.Join([]string{accountAuthID, bcID, advertiserID, storeID}, "__")
}

// PresetLabel 预设默认标签: 非空段用 " / " 连接
func PresetLabel(segments ...string) string {
	var parts []string
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, " / ")
}
