package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==================== 别名收敛 ====================

func TestParseAccounts_AliasAndStatus(t *testing.T) {
	raw := []byte(`{"accounts":[
		{"authId":"A1","display_name":"主账号","status":"valid"},
		{"account_id":"A2","status":"TOKEN_EXPIRED"},
		{"name":"无 id，丢弃"}
	]}`)

	out := ParseAccounts(raw)

	require.Len(t, out, 2)
	assert.Equal(t, "A1", out[0].AuthID)
	assert.Equal(t, "主账号", out[0].Label)
	assert.Equal(t, model.AccountStatusValid, out[0].Status)
	assert.Equal(t, "A2", out[1].AuthID)
	assert.Equal(t, "A2", out[1].Label) // 无标签时回退 id
	assert.Equal(t, model.AccountStatusInvalid, out[1].Status)
}

func TestParseOptionsPayload(t *testing.T) {
	raw := []byte(`{"data":{
		"business_centers":[{"bcId":"BC1","name":"一号"}],
		"advertisers":[{"advertiser_id":"ADV1","bc_id":"BC1","authStatus":"effective"}],
		"stores":[{"shop_id":"S1","advertiserId":"ADV1","title":"店铺一"}],
		"links":{
			"bc_to_advertisers":{"BC1":["ADV1"]},
			"advertiserToStores":{"ADV1":["S1"]}
		}
	}}`)

	p := ParseOptionsPayload(raw)

	require.Len(t, p.BusinessCenters, 1)
	assert.Equal(t, "BC1", p.BusinessCenters[0].BCID)
	require.Len(t, p.Advertisers, 1)
	assert.Equal(t, "EFFECTIVE", p.Advertisers[0].AuthorizationStatus)
	require.Len(t, p.Stores, 1)
	assert.Equal(t, "S1", p.Stores[0].StoreID)
	assert.Equal(t, "店铺一", p.Stores[0].DisplayName)
	assert.Equal(t, []string{"ADV1"}, p.BCToAdvertisers["BC1"])
	assert.Equal(t, []string{"S1"}, p.AdvertiserToStores["ADV1"])
}

func TestIsOptionsEmpty(t *testing.T) {
	assert.True(t, IsOptionsEmpty(nil))
	assert.True(t, IsOptionsEmpty(&model.OptionsPayload{}))
	assert.False(t, IsOptionsEmpty(&model.OptionsPayload{Stores: []model.Store{{StoreID: "S1"}}}))
}

func TestParseCampaignList_TopLevelArrayAndAliases(t *testing.T) {
	raw := []byte(`[
		{"seriesId":"C1","campaign_name":"夏促","opt_status":"enable","shop_id":"S1","budget":5000},
		{"campaign_id":"C2","status":"STATUS_DISABLE"},
		{"name":"无 id，丢弃"}
	]`)

	out := ParseCampaignList(raw)

	require.Len(t, out, 2)
	assert.Equal(t, "C1", out[0].CampaignID)
	assert.Equal(t, "夏促", out[0].Name)
	assert.Equal(t, "ENABLE", out[0].OperationStatus)
	assert.Equal(t, "S1", out[0].StoreID)
	assert.Equal(t, int64(5000), out[0].BudgetCents)
}

func TestParseCampaignDetail_ScopeIDsMerged(t *testing.T) {
	raw := []byte(`{"data":{
		"campaignId":"C1",
		"store_id":"S1",
		"store_ids":["S1","S2"],
		"sessions":[{"sessionId":"sess-1","shop_id":"S3","product_list":[{"spu_id":"P1"},"P2"]}]
	}}`)

	d := ParseCampaignDetail(raw)

	assert.Equal(t, "C1", d.CampaignID)
	// 单值与数组字段合并去重
	assert.Equal(t, []string{"S1", "S2"}, d.StoreIDs)
	require.Len(t, d.Sessions, 1)
	assert.Equal(t, "sess-1", d.Sessions[0].SessionID)
	assert.Equal(t, "S3", d.Sessions[0].StoreID)
	assert.Equal(t, []string{"P1", "P2"}, d.Sessions[0].ProductIDs)
}

func TestParseAutoBindCandidates(t *testing.T) {
	raw := []byte(`{"candidates":[
		{"advertiserId":"ADV1","store_authorized_bc_id":"BC1","authorization_status":"EFFECTIVE","promote_all_products_allowed":true},
		{"advertiser_id":"ADV2","is_running_custom_shop_ads":true}
	]}`)

	out := ParseAutoBindCandidates(raw)

	require.Len(t, out, 2)
	assert.Equal(t, "BC1", out[0].StoreAuthorizedBCID)
	require.NotNil(t, out[0].PromoteAllProducts)
	assert.True(t, *out[0].PromoteAllProducts)
	assert.Nil(t, out[1].PromoteAllProducts) // 缺失与 false 区分
	require.NotNil(t, out[1].IsRunningCustomShopAds)
	assert.True(t, *out[1].IsRunningCustomShopAds)
}

func TestParseBindingConfig(t *testing.T) {
	raw := []byte(`{"config":{"bc_id":"BC1","advertiserId":"ADV1","store_id":"S1","auto_sync_products":true},"saved":true}`)

	bcID, advID, storeID, autoSync, saved := ParseBindingConfig(raw)

	assert.Equal(t, "BC1", bcID)
	assert.Equal(t, "ADV1", advID)
	assert.Equal(t, "S1", storeID)
	assert.True(t, autoSync)
	assert.True(t, saved)
}

func TestParseBindingConfig_SavedInferredFromContent(t *testing.T) {
	// 没有 saved 字段时按内容推断
	bcID, _, _, _, saved := ParseBindingConfig([]byte(`{"config":{"bc_id":"BC1"}}`))
	assert.Equal(t, "BC1", bcID)
	assert.True(t, saved)

	_, _, _, _, saved = ParseBindingConfig([]byte(`{"config":{}}`))
	assert.False(t, saved)
}

func TestParseMetricsReport_NumericAliases(t *testing.T) {
	raw := []byte(`{"rows":[
		{"date":"2025-01-01","cost":12.5,"gross_revenue":40,"order_count":3},
		{"stat_date":"2025-01-02","spend":1,"gmv":2,"orders":1}
	]}`)

	out := ParseMetricsReport(raw)

	require.Len(t, out, 2)
	assert.Equal(t, 12.5, out[0].Spend)
	assert.Equal(t, float64(40), out[0].GMV)
	assert.Equal(t, int64(3), out[0].Orders)
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "", NormalizeID(nil))
	assert.Equal(t, "abc", NormalizeID("  abc  "))
	assert.Equal(t, "42", NormalizeID(42))
	assert.Equal(t, "7730012345", NormalizeID(float64(7730012345)))
}
