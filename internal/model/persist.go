package model

import "gorm.io/datatypes"

// ==========================================
// 本地持久化模型 (控制台自己的状态，非远端资源)
// StorageKey 常量是对外契约的一部分，不能改
// ==========================================

// 持久化键 (版本号在键里，格式变更时换新键)
const (
	KeyScopeSnapshot = "gmv.max.overview.scope.v1"
	KeySlice         = "gmv.max.slice"
	KeyScopePresets  = "gmv.max.scope.presets.v1"
	KeyProductCache  = "gmv_products_cache_v1"
)

// ScopeSnapshot 每个 workspace 最近一次选中的作用域
// 只是 UI 侧的 best-effort 恢复，不代表服务端绑定
type ScopeSnapshot struct {
	BaseModel
	StorageKey       string `gorm:"size:64;index"` // KeyScopeSnapshot
	WorkspaceID      string `gorm:"size:64;uniqueIndex:idx_scope_ws"`
	Provider         string `gorm:"size:32;uniqueIndex:idx_scope_ws"`
	AccountAuthID    string `gorm:"size:64"`
	BusinessCenterID string `gorm:"size:64"`
	AdvertiserID     string `gorm:"size:64"`
	StoreID          string `gorm:"size:64"`
}

func (ScopeSnapshot) TableName() string { return "scope_snapshots" }

// ScopePresetRecord 作用域预设，每个 workspace 上限 MaxScopePresets 条
type ScopePresetRecord struct {
	BaseModel
	WorkspaceID   string `gorm:"size:64;uniqueIndex:idx_preset_ws_pid"`
	PresetID      string `gorm:"size:256;uniqueIndex:idx_preset_ws_pid"` // auth__bc__adv__store
	Label         string `gorm:"size:255"`
	AccountAuthID string `gorm:"size:64"`
	BCID          string `gorm:"size:64"`
	AdvertiserID  string `gorm:"size:64"`
	StoreID       string `gorm:"size:64"`
}

func (ScopePresetRecord) TableName() string { return "scope_presets" }

// ProductCacheRecord 商品缓存 (byKey + lists)，500ms 防抖落库
type ProductCacheRecord struct {
	BaseModel
	WorkspaceID string         `gorm:"size:64;uniqueIndex:idx_pcache_ws_key"`
	CacheKey    string         `gorm:"size:255;uniqueIndex:idx_pcache_ws_key"`
	Payload     datatypes.JSON `gorm:"type:json"`
}

func (ProductCacheRecord) TableName() string { return "product_caches" }

// SliceSnapshot 整个 GMV Max slice 的快照，200ms 防抖落库
type SliceSnapshot struct {
	BaseModel
	WorkspaceID string         `gorm:"size:64;uniqueIndex"`
	Payload     datatypes.JSON `gorm:"type:json"`
}

func (SliceSnapshot) TableName() string { return "slice_snapshots" }

// ActionLogRecord 本地操作审计 (远端 actions 之外的控制台记录)
type ActionLogRecord struct {
	BaseModel
	WorkspaceID string `gorm:"size:64;index"`
	CampaignID  string `gorm:"size:64;index"`
	Action      string `gorm:"size:32"`
	Result      string `gorm:"size:32"`
	Reason      string `gorm:"size:512"`
	Actor       string `gorm:"size:64"`
}

func (ActionLogRecord) TableName() string { return "action_logs" }

// SyncRunRecord 同步任务运行记录
type SyncRunRecord struct {
	BaseModel
	WorkspaceID   string `gorm:"size:64;index"`
	Provider      string `gorm:"size:32"`
	AccountAuthID string `gorm:"size:64;index"`
	TaskID        string `gorm:"size:64;index"`
	State         string `gorm:"size:32"` // PENDING/RUNNING/SUCCESS/FAILURE/REVOKED/TIMEOUT_CLIENT
	Attempts      int    `gorm:"default:0"`
	Message       string `gorm:"size:512"`
}

func (SyncRunRecord) TableName() string { return "sync_runs" }
