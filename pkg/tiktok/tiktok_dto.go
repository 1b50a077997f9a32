package tiktok

// ==========================================
// DTO: 发往上游 API 的请求体
// ==========================================

// AutoBindReq 自动绑定请求
// POST .../gmvmax/binding/auto
type AutoBindReq struct {
	StoreID string `json:"store_id"`
	Persist bool   `json:"persist"`
}

// BindingConfig 服务端持久化的绑定配置
// GET/PUT .../gmvmax/config
type BindingConfig struct {
	BCID             string `json:"bc_id"`
	AdvertiserID     string `json:"advertiser_id"`
	StoreID          string `json:"store_id"`
	AutoSyncProducts bool   `json:"auto_sync_products"`
}

// IsZero 是否为空绑定 (服务端尚未保存过)
func (c BindingConfig) IsZero() bool {
	return c.BCID == "" && c.AdvertiserID == "" && c.StoreID == ""
}

// ReportSpec 同步任务的报表窗口与指标
type ReportSpec struct {
	StartDate string   `json:"start_date"` // "2006-01-02" UTC
	EndDate   string   `json:"end_date"`
	Metrics   []string `json:"metrics"`
}

// CampaignFilter 同步任务的系列过滤
type CampaignFilter struct {
	StoreIDs []string `json:"store_ids"`
}

// SyncReq 触发系列同步
// POST .../gmvmax/sync
type SyncReq struct {
	Report         ReportSpec     `json:"report"`
	CampaignFilter CampaignFilter `json:"campaign_filter"`
}

// ProductRef 会话商品引用
type ProductRef struct {
	SpuID string `json:"spu_id"`
}

// CampaignSpec 创建系列时的 campaign 段
type CampaignSpec struct {
	Name             string `json:"name"`
	ShoppingAdsType  string `json:"shopping_ads_type"`
	OptimizationGoal string `json:"optimization_goal"`
	BidType          string `json:"bid_type"`
	AdvertiserID     string `json:"advertiser_id"`
	StoreID          string `json:"store_id"`
	Budget           *int64 `json:"budget,omitempty"`   // 分为单位
	RoasBid          string `json:"roas_bid,omitempty"` // 字符串，保留精度
}

// SessionSpec 创建系列时的 session 段
type SessionSpec struct {
	StoreID     string       `json:"store_id"`
	ProductList []ProductRef `json:"product_list"`
}

// CreateSeriesReq 创建系列
// POST .../gmvmax
type CreateSeriesReq struct {
	Campaign CampaignSpec `json:"campaign"`
	Session  SessionSpec  `json:"session"`
}

// UpdateSeriesReq 编辑系列 (campaign 局部 patch + 可选 session 更新)
// PUT .../gmvmax/{campaignId}
type UpdateSeriesReq struct {
	CampaignPatch map[string]interface{} `json:"campaign_patch,omitempty"`
	SessionID     string                 `json:"session_id,omitempty"`
	ProductList   []ProductRef           `json:"product_list,omitempty"`
}

// ActionReq 对系列执行操作
// POST .../gmvmax/{campaignId}/actions
type ActionReq struct {
	Action  string                 `json:"action"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// StrategyPreviewReq 策略预览
// POST .../gmvmax/{campaignId}/strategies/preview
type StrategyPreviewReq struct {
	StrategyOverrides map[string]interface{} `json:"strategy_overrides"`
}
