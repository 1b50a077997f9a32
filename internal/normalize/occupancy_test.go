package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==================== 占用关系 ====================

func TestOccupiedProductIDs(t *testing.T) {
	campaigns := []model.Campaign{
		{CampaignID: "C1", OperationStatus: "STATUS_ENABLE", ProductIDs: []string{"P1", "P2"}},
		{CampaignID: "C2", OperationStatus: "STATUS_DISABLE", ProductIDs: []string{"P3"}},
	}

	occupied := OccupiedProductIDs(campaigns, nil)

	assert.Contains(t, occupied, "P1")
	assert.Contains(t, occupied, "P2")
	assert.NotContains(t, occupied, "P3")
}

func TestOccupiedProductIDs_IncludesDetailSessions(t *testing.T) {
	campaigns := []model.Campaign{
		{CampaignID: "C1", OperationStatus: "ENABLE"},
	}
	details := map[string]*model.CampaignDetail{
		"C1": {
			CampaignID: "C1",
			Sessions: []model.CampaignSession{
				{SessionID: "s1", ProductIDs: []string{"P7", "P8"}},
			},
		},
	}

	occupied := OccupiedProductIDs(campaigns, details)

	assert.Contains(t, occupied, "P7")
	assert.Contains(t, occupied, "P8")
}

func TestOverlayOccupancy(t *testing.T) {
	products := []model.Product{
		{ProductID: "P1", Status: "AVAILABLE"},
		{ProductID: "P3", Status: "AVAILABLE"},
	}
	occupied := map[string]struct{}{"P1": {}}

	out := OverlayOccupancy(products, occupied)

	assert.Equal(t, model.ProductOccupied, out[0].GmvMaxAdsStatus)
	assert.Equal(t, model.ProductUnoccupied, out[1].GmvMaxAdsStatus)
	// 入参不被修改
	assert.Empty(t, products[0].GmvMaxAdsStatus)
}

func TestUnassignedProducts(t *testing.T) {
	products := OverlayOccupancy([]model.Product{
		{ProductID: "P1", Status: "AVAILABLE"},
		{ProductID: "P2", Status: "NOT_AVAILABLE"},
		{ProductID: "P3", Status: "AVAILABLE"},
	}, map[string]struct{}{"P1": {}})

	out := UnassignedProducts(products)

	// 未占用 ∧ 可投 = 仅 P3
	assert.Len(t, out, 1)
	assert.Equal(t, "P3", out[0].ProductID)
}

// ==================== 状态启发式 ====================

func TestIsEnabledStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"STATUS_ENABLE", true},
		{"ENABLE", true},
		{"CAMPAIGN_STATUS_ENABLE", true},
		{"RUNNING", true},
		{"ACTIVE", true},
		{"DELIVERY_OK", true},
		{"STATUS_DISABLE", false},
		{"PAUSED", false},
		{"CAMPAIGN_STATUS_ARCHIVED", false},
		// 停用标记优先于启用标记
		{"ENABLE_BUT_PAUSED", false},
		{"", false},
		// 白名单外的启发式
		{"VENDOR_RUN_STATE", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEnabledStatus(tt.status), "status=%s", tt.status)
	}
}

func TestIsEnabledStatusWith_StrictWhitelist(t *testing.T) {
	strict := map[string]bool{"ENABLE": true}

	assert.True(t, IsEnabledStatusWith("enable", strict))
	// 白名单外仍走启发式
	assert.True(t, IsEnabledStatusWith("RUNNING", strict))
	assert.False(t, IsEnabledStatusWith("UNKNOWN", strict))
}

// ==================== 店铺统计 ====================

func TestBuildStoreStats(t *testing.T) {
	campaigns := []model.Campaign{
		{CampaignID: "C1", StoreID: "S1", OperationStatus: "ENABLE"},
		{CampaignID: "C2", StoreID: "S1", OperationStatus: "PAUSE"},
		{CampaignID: "C3", StoreID: "S1", OperationStatus: "WEIRD_STATE"},
		{CampaignID: "C4", StoreID: "S2", OperationStatus: "ENABLE"},
		{CampaignID: "C5", OperationStatus: "ENABLE"}, // 无店铺，不计入
	}

	stats := BuildStoreStats(campaigns)

	assert.Len(t, stats, 2)
	s1 := stats["S1"]
	assert.Equal(t, 3, s1.TotalCampaigns)
	assert.Equal(t, 1, s1.ActiveCampaigns)
	assert.Equal(t, 1, s1.PausedCampaigns)
	// 总数不小于 活跃+暂停
	assert.GreaterOrEqual(t, s1.TotalCampaigns, s1.ActiveCampaigns+s1.PausedCampaigns)
}
