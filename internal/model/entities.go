package model

// ==========================================
// 规范化实体: 别名已收敛，只在 normalize 层之后出现
// 这些实体不落库，生命周期跟随查询缓存
// ==========================================

// ==================== 账号与作用域 ====================

// 账号授权状态
const (
	AccountStatusValid   = "valid"
	AccountStatusInvalid = "invalid"
)

// Provider 广告平台
type Provider struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Account 平台授权账号
// AuthID 为不透明主键，统一做字符串化处理
type Account struct {
	AuthID string `json:"auth_id"`
	Label  string `json:"label"`
	Status string `json:"status"` // valid / invalid
}

// BusinessCenter 商务中心 (平台顶层容器)
type BusinessCenter struct {
	BCID string `json:"bc_id"`
	Name string `json:"name"`
}

// 广告主授权状态
const (
	AuthStatusEffective    = "EFFECTIVE"
	AuthStatusUnauthorized = "UNAUTHORIZED"
)

// Advertiser 广告主，最多归属一个商务中心
type Advertiser struct {
	AdvertiserID        string `json:"advertiser_id"`
	BCID                string `json:"bc_id,omitempty"`
	DisplayName         string `json:"display_name"`
	AuthorizationStatus string `json:"authorization_status"` // EFFECTIVE / UNAUTHORIZED / 其他
}

// Store 店铺，直接或经 links 关联广告主
type Store struct {
	StoreID      string `json:"store_id"`
	AdvertiserID string `json:"advertiser_id,omitempty"`
	BCID         string `json:"bc_id,omitempty"`
	DisplayName  string `json:"display_name"`
}

// OptionsPayload 作用域选项: 实体列表 + 两张邻接表
// 邻接表来自服务端 links，缺失时退回实体自身字段
type OptionsPayload struct {
	BusinessCenters    []BusinessCenter    `json:"business_centers"`
	Advertisers        []Advertiser        `json:"advertisers"`
	Stores             []Store             `json:"stores"`
	BCToAdvertisers    map[string][]string `json:"bc_to_advertisers"`
	AdvertiserToStores map[string][]string `json:"advertiser_to_stores"`
}

// StoreOption 多账号聚合后的店铺候选
// 同一店铺出现在多个账号下时，优先选中 EFFECTIVE 广告主的那份
type StoreOption struct {
	Store
	AccountAuthID      string `json:"account_auth_id"`
	NeedsAuthorization bool   `json:"needs_authorization"` // 没有任何 EFFECTIVE 候选广告主
}

// AutoBindCandidate 自动绑定接口返回的候选
type AutoBindCandidate struct {
	AdvertiserID            string `json:"advertiser_id"`
	BCID                    string `json:"bc_id"`
	StoreAuthorizedBCID     string `json:"store_authorized_bc_id"`
	AuthorizationStatus     string `json:"authorization_status"`
	PromoteAllProducts      *bool  `json:"promote_all_products_allowed"` // nil 视为允许
	IsRunningCustomShopAds  *bool  `json:"is_running_custom_shop_ads"`  // nil 视为否
}

// ==================== 商品 ====================

// GMV Max 占用状态
const (
	ProductOccupied   = "OCCUPIED"
	ProductUnoccupied = "UNOCCUPIED"
)

// Product 商品
type Product struct {
	ProductID       string `json:"product_id"`
	Title           string `json:"title,omitempty"`
	Status          string `json:"status"`
	GmvMaxAdsStatus string `json:"gmv_max_ads_status"` // OCCUPIED / UNOCCUPIED / ""
}

// ==================== 系列 (Campaign) ====================

// Campaign GMV Max 系列
type Campaign struct {
	CampaignID      string   `json:"campaign_id"`
	Name            string   `json:"name"`
	OperationStatus string   `json:"operation_status"`
	SecondaryStatus string   `json:"secondary_status,omitempty"`
	BCID            string   `json:"bc_id,omitempty"`
	AdvertiserID    string   `json:"advertiser_id,omitempty"`
	StoreID         string   `json:"store_id,omitempty"`
	ProductIDs      []string `json:"product_ids,omitempty"`
	BudgetCents     int64    `json:"budget_cents,omitempty"`
	RoasBid         string   `json:"roas_bid,omitempty"`
}

// CampaignSession 系列详情里的投放会话
type CampaignSession struct {
	SessionID   string   `json:"session_id"`
	StoreID     string   `json:"store_id,omitempty"`
	ProductIDs  []string `json:"product_ids"`
	OperationOK bool     `json:"operation_ok,omitempty"`
}

// CampaignDetail 系列详情 (按 campaign id 的从属实体)
// 详情可能补充列表缺失的作用域 id
type CampaignDetail struct {
	CampaignID    string            `json:"campaign_id"`
	Name          string            `json:"name"`
	BCIDs         []string          `json:"bc_ids,omitempty"`
	AdvertiserIDs []string          `json:"advertiser_ids,omitempty"`
	StoreIDs      []string          `json:"store_ids,omitempty"`
	Sessions      []CampaignSession `json:"sessions,omitempty"`
	BudgetCents   int64             `json:"budget_cents,omitempty"`
	RoasBid       string            `json:"roas_bid,omitempty"`
}

// ProductIDs 详情下全部会话的商品并集
func (d *CampaignDetail) ProductIDs() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, s := range d.Sessions {
		for _, p := range s.ProductIDs {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// ==================== 指标与日志 ====================

// MetricsRow 报表行 (字段别名已收敛)
type MetricsRow struct {
	Date   string  `json:"date,omitempty"`
	Spend  float64 `json:"spend"`
	GMV    float64 `json:"gmv"`
	Orders int64   `json:"orders"`
}

// MetricsSummary 聚合结果
// ROAS 仅在 spend>0 时给出
type MetricsSummary struct {
	Spend  float64  `json:"spend"`
	GMV    float64  `json:"gmv"`
	Orders int64    `json:"orders"`
	ROAS   *float64 `json:"roas"`
}

// ActionLogEntry 系列操作日志 (远端)
type ActionLogEntry struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Result    string `json:"result"`
	Reason    string `json:"reason,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// StoreStats 按店铺聚合的系列统计
type StoreStats struct {
	StoreID         string `json:"store_id"`
	TotalCampaigns  int    `json:"total_campaigns"`
	ActiveCampaigns int    `json:"active_campaigns"`
	PausedCampaigns int    `json:"paused_campaigns"`
}
