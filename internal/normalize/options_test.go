package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==================== 广告主选项过滤 ====================

func TestBuildAdvertiserOptions_LinksFilter(t *testing.T) {
	payload := &model.OptionsPayload{
		Advertisers: []model.Advertiser{
			{AdvertiserID: "ADV1", BCID: "BC1", DisplayName: "ADV1"},
			{AdvertiserID: "ADV2", BCID: "BC2", DisplayName: "ADV2"},
		},
		BCToAdvertisers: map[string][]string{
			"BC1": {"ADV1"},
		},
	}

	out := BuildAdvertiserOptions(payload, "BC1", "")

	assert.Len(t, out, 1)
	assert.Equal(t, "ADV1", out[0].AdvertiserID)
}

func TestBuildAdvertiserOptions_FallbackToIntrinsicBCID(t *testing.T) {
	// links 里没有该 BC -> 退回广告主自身的 bc_id 过滤
	payload := &model.OptionsPayload{
		Advertisers: []model.Advertiser{
			{AdvertiserID: "ADV1", BCID: "BC1", DisplayName: "a"},
			{AdvertiserID: "ADV2", BCID: "BC2", DisplayName: "b"},
		},
		BCToAdvertisers: map[string][]string{},
	}

	out := BuildAdvertiserOptions(payload, "BC2", "")

	assert.Len(t, out, 1)
	assert.Equal(t, "ADV2", out[0].AdvertiserID)
}

func TestBuildAdvertiserOptions_KeepsSelectedWhenFiltered(t *testing.T) {
	payload := &model.OptionsPayload{
		Advertisers: []model.Advertiser{
			{AdvertiserID: "ADV1", BCID: "BC1", DisplayName: "a"},
			{AdvertiserID: "ADV2", BCID: "BC2", DisplayName: "b"},
		},
		BCToAdvertisers: map[string][]string{"BC1": {"ADV1"}},
	}

	// 选中的 ADV2 被 links 过滤掉，仍要保留在选项里
	out := BuildAdvertiserOptions(payload, "BC1", "ADV2")

	ids := make([]string, 0, len(out))
	for _, a := range out {
		ids = append(ids, a.AdvertiserID)
	}
	assert.Contains(t, ids, "ADV1")
	assert.Contains(t, ids, "ADV2")
}

func TestBuildAdvertiserOptions_UnknownSelectedSynthesized(t *testing.T) {
	out := BuildAdvertiserOptions(&model.OptionsPayload{}, "", "ADV9")

	assert.Len(t, out, 1)
	assert.Equal(t, "ADV9", out[0].AdvertiserID)
	assert.Equal(t, "ADV9", out[0].DisplayName)
}

// ==================== 店铺选项 ====================

func TestBuildStoreOptions_IntrinsicFallback(t *testing.T) {
	payload := &model.OptionsPayload{
		Stores: []model.Store{
			{StoreID: "S1", AdvertiserID: "ADV1", DisplayName: "S1"},
			{StoreID: "S2", AdvertiserID: "ADV2", DisplayName: "S2"},
		},
	}

	out := BuildStoreOptions(payload, "ADV1", "")

	assert.Len(t, out, 1)
	assert.Equal(t, "S1", out[0].StoreID)
}

func TestBuildStoreOptions_LinksTakePriority(t *testing.T) {
	payload := &model.OptionsPayload{
		Stores: []model.Store{
			{StoreID: "S1", AdvertiserID: "ADV1", DisplayName: "S1"},
			{StoreID: "S2", AdvertiserID: "ADV2", DisplayName: "S2"},
		},
		AdvertiserToStores: map[string][]string{
			"ADV1": {"S2"}, // links 与自身字段冲突时以 links 为准
		},
	}

	out := BuildStoreOptions(payload, "ADV1", "")

	assert.Len(t, out, 1)
	assert.Equal(t, "S2", out[0].StoreID)
}

// ==================== BC 选项 ====================

func TestBuildBusinessCenterOptions_KeepsStaleSelection(t *testing.T) {
	payload := &model.OptionsPayload{
		BusinessCenters: []model.BusinessCenter{{BCID: "BC1", Name: "一号"}},
	}

	out := BuildBusinessCenterOptions(payload, "BC_OLD")

	assert.Len(t, out, 2)
	assert.Equal(t, "BC_OLD", out[1].BCID)
	assert.Equal(t, "BC_OLD", out[1].Name)
}

// ==================== 跨账号聚合 ====================

func TestAggregateStoreOptions_PrefersEffectiveAccount(t *testing.T) {
	needsAuth := &model.OptionsPayload{
		Stores:      []model.Store{{StoreID: "S1", AdvertiserID: "ADV1", DisplayName: "S1"}},
		Advertisers: []model.Advertiser{{AdvertiserID: "ADV1", AuthorizationStatus: model.AuthStatusUnauthorized}},
	}
	effective := &model.OptionsPayload{
		Stores:      []model.Store{{StoreID: "S1", AdvertiserID: "ADV1", DisplayName: "S1"}},
		Advertisers: []model.Advertiser{{AdvertiserID: "ADV1", AuthorizationStatus: model.AuthStatusEffective}},
	}

	out := AggregateStoreOptions([]AccountOptions{
		{AuthID: "auth-a", Payload: needsAuth},
		{AuthID: "auth-b", Payload: effective},
	})

	assert.Len(t, out, 1)
	assert.Equal(t, "auth-b", out[0].AccountAuthID)
	assert.False(t, out[0].NeedsAuthorization)
}

func TestAggregateStoreOptions_MarksNeedsAuthorization(t *testing.T) {
	payload := &model.OptionsPayload{
		Stores:      []model.Store{{StoreID: "S1", AdvertiserID: "ADV1", DisplayName: "S1"}},
		Advertisers: []model.Advertiser{{AdvertiserID: "ADV1", AuthorizationStatus: model.AuthStatusUnauthorized}},
	}

	out := AggregateStoreOptions([]AccountOptions{{AuthID: "auth-a", Payload: payload}})

	assert.Len(t, out, 1)
	assert.True(t, out[0].NeedsAuthorization)
}

func TestStoreEligible(t *testing.T) {
	payload := &model.OptionsPayload{
		Stores: []model.Store{{StoreID: "S1"}},
		Advertisers: []model.Advertiser{
			{AdvertiserID: "ADV1", AuthorizationStatus: model.AuthStatusEffective},
		},
		AdvertiserToStores: map[string][]string{"ADV1": {"S1"}},
	}

	assert.True(t, StoreEligible(payload, "S1"))
	assert.False(t, StoreEligible(payload, "S404"))
	assert.False(t, StoreEligible(nil, "S1"))
}
