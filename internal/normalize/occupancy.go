package normalize

import (
	"strings"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==========================================
// 占用关系: "商品正在被启用中的系列投放"
// 停用/暂停/归档的系列不占用商品
// ==========================================

// enabledStatusWhitelist 明确视为启用的状态集合
var enabledStatusWhitelist = map[string]bool{
	"ENABLE":                 true,
	"ENABLED":                true,
	"STATUS_ENABLE":          true,
	"CAMPAIGN_STATUS_ENABLE": true,
	"ACTIVE":                 true,
	"STATUS_ACTIVE":          true,
	"RUNNING":                true,
	"STATUS_RUNNING":         true,
	"DELIVERY_OK":            true,
}

// disablingMarkers 出现任一标记即视为非启用
var disablingMarkers = []string{"DISABLE", "PAUSE", "ARCHIVE"}

// enablingMarkers 白名单之外的启发式匹配
var enablingMarkers = []string{"ENABLE", "RUN", "ACTIVE"}

// IsEnabledStatus 判定系列状态是否启用
// 白名单优先；白名单外按启发式: 含 ENABLE|RUN|ACTIVE 且不含停用标记
// 启发式可能过度匹配厂商自定义 token，需要严格口径时用 IsEnabledStatusWith
func IsEnabledStatus(status string) bool {
	return IsEnabledStatusWith(status, enabledStatusWhitelist)
}

// IsEnabledStatusWith 用调用方提供的白名单判定
func IsEnabledStatusWith(status string, whitelist map[string]bool) bool {
	s := strings.ToUpper(strings.TrimSpace(status))
	if s == "" {
		return false
	}
	for _, marker := range disablingMarkers {
		if strings.Contains(s, marker) {
			return false
		}
	}
	if whitelist[s] {
		return true
	}
	for _, marker := range enablingMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// IsCampaignEnabled 系列是否启用
func IsCampaignEnabled(c model.Campaign) bool {
	return IsEnabledStatus(c.OperationStatus)
}

// OccupiedProductIDs 被启用系列占用的商品 id 并集
// 来源: 启用系列自身的 product_ids + 对应详情会话里的商品
func OccupiedProductIDs(campaigns []model.Campaign, details map[string]*model.CampaignDetail) map[string]struct{} {
	occupied := make(map[string]struct{})
	for _, c := range campaigns {
		if !IsCampaignEnabled(c) {
			continue
		}
		for _, pid := range c.ProductIDs {
			occupied[pid] = struct{}{}
		}
		if detail := details[c.CampaignID]; detail != nil {
			for _, pid := range detail.ProductIDs() {
				occupied[pid] = struct{}{}
			}
		}
	}
	return occupied
}

// unavailableMarkers 商品状态里的不可用标记
var unavailableMarkers = []string{"NOT_AVAILABLE", "UNAVAILABLE"}

// IsProductAvailable 商品是否可投
func IsProductAvailable(p model.Product) bool {
	s := strings.ToUpper(p.Status)
	for _, marker := range unavailableMarkers {
		if strings.Contains(s, marker) {
			return false
		}
	}
	return true
}

// OverlayOccupancy 把占用关系覆盖到商品列表
// 返回新切片，不修改入参
func OverlayOccupancy(products []model.Product, occupied map[string]struct{}) []model.Product {
	out := make([]model.Product, len(products))
	for i, p := range products {
		if _, ok := occupied[p.ProductID]; ok {
			p.GmvMaxAdsStatus = model.ProductOccupied
		} else if p.GmvMaxAdsStatus == "" || p.GmvMaxAdsStatus == model.ProductOccupied {
			p.GmvMaxAdsStatus = model.ProductUnoccupied
		}
		out[i] = p
	}
	return out
}

// UnassignedProducts 可投且未被占用的商品
// 输入应是 OverlayOccupancy 之后的列表
func UnassignedProducts(products []model.Product) []model.Product {
	var out []model.Product
	for _, p := range products {
		if IsProductAvailable(p) && p.GmvMaxAdsStatus != model.ProductOccupied {
			out = append(out, p)
		}
	}
	return out
}

// ==========================================
// 店铺维度统计
// ==========================================

// BuildStoreStats 按 storeId 聚合系列统计
// 没有 store id 的系列不计入任何店铺
func BuildStoreStats(campaigns []model.Campaign) map[string]*model.StoreStats {
	stats := make(map[string]*model.StoreStats)
	for _, c := range campaigns {
		if c.StoreID == "" {
			continue
		}
		s, ok := stats[c.StoreID]
		if !ok {
			s = &model.StoreStats{StoreID: c.StoreID}
			stats[c.StoreID] = s
		}
		s.TotalCampaigns++
		upper := strings.ToUpper(c.OperationStatus)
		switch {
		case IsCampaignEnabled(c):
			s.ActiveCampaigns++
		case strings.Contains(upper, "PAUSE") || strings.Contains(upper, "DISABLE"):
			s.PausedCampaigns++
		}
	}
	return stats
}
