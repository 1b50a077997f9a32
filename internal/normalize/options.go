package normalize

import (
	"sort"
	"strings"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==========================================
// 作用域选项构建: BC / 广告主 / 店铺 三级下拉
// 选项可能滞后于用户选择，当前选中项必须保留
// ==========================================

// BuildBusinessCenterOptions BC 选项
// 选中的 bc 不在列表里时并入，保证陈旧选项下用户的选择不丢
func BuildBusinessCenterOptions(payload *model.OptionsPayload, selectedBCID string) []model.BusinessCenter {
	if payload == nil {
		payload = &model.OptionsPayload{}
	}
	out := make([]model.BusinessCenter, 0, len(payload.BusinessCenters))
	found := false
	for _, bc := range payload.BusinessCenters {
		if bc.BCID == selectedBCID {
			found = true
		}
		out = append(out, bc)
	}
	if selectedBCID != "" && !found {
		out = append(out, model.BusinessCenter{BCID: selectedBCID, Name: selectedBCID})
	}
	return out
}

// BuildAdvertiserOptions 广告主选项
// links.bc_to_advertisers 存在时按邻接表过滤，否则退回广告主自身的 bc_id；
// 当前选中的广告主被过滤掉时保留；按展示名排序
func BuildAdvertiserOptions(payload *model.OptionsPayload, bcID, selectedAdvertiserID string) []model.Advertiser {
	if payload == nil {
		payload = &model.OptionsPayload{}
	}

	var out []model.Advertiser
	if bcID == "" {
		out = append(out, payload.Advertisers...)
	} else if allowed, ok := payload.BCToAdvertisers[bcID]; ok {
		allowedSet := toSet(allowed)
		for _, adv := range payload.Advertisers {
			if _, in := allowedSet[adv.AdvertiserID]; in {
				out = append(out, adv)
			}
		}
	} else {
		for _, adv := range payload.Advertisers {
			if adv.BCID == bcID {
				out = append(out, adv)
			}
		}
	}

	if selectedAdvertiserID != "" && !containsAdvertiser(out, selectedAdvertiserID) {
		if adv, ok := findAdvertiser(payload.Advertisers, selectedAdvertiserID); ok {
			out = append(out, adv)
		} else {
			out = append(out, model.Advertiser{AdvertiserID: selectedAdvertiserID, DisplayName: selectedAdvertiserID})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	return out
}

// BuildStoreOptions 店铺选项
// links.advertiser_to_stores 优先，退回店铺自身的 advertiser_id
func BuildStoreOptions(payload *model.OptionsPayload, advertiserID, selectedStoreID string) []model.Store {
	if payload == nil {
		payload = &model.OptionsPayload{}
	}

	var out []model.Store
	if advertiserID == "" {
		out = append(out, payload.Stores...)
	} else if allowed, ok := payload.AdvertiserToStores[advertiserID]; ok {
		allowedSet := toSet(allowed)
		for _, st := range payload.Stores {
			if _, in := allowedSet[st.StoreID]; in {
				out = append(out, st)
			}
		}
	} else {
		for _, st := range payload.Stores {
			if st.AdvertiserID == advertiserID {
				out = append(out, st)
			}
		}
	}

	if selectedStoreID != "" && !containsStore(out, selectedStoreID) {
		if st, ok := findStore(payload.Stores, selectedStoreID); ok {
			out = append(out, st)
		} else {
			out = append(out, model.Store{StoreID: selectedStoreID, DisplayName: selectedStoreID})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	return out
}

// ==========================================
// 多账号聚合店铺选项
// ==========================================

// AccountOptions 某个账号的选项 payload
type AccountOptions struct {
	AuthID  string
	Payload *model.OptionsPayload
}

// AggregateStoreOptions 跨账号聚合店铺
// 同一店铺出现在多个账号时，优先保留候选广告主为 EFFECTIVE 的那份；
// 所有候选都不是 EFFECTIVE 时打 needsAuthorization 标记
func AggregateStoreOptions(accounts []AccountOptions) []model.StoreOption {
	byStore := make(map[string]model.StoreOption)
	var order []string

	for _, acct := range accounts {
		if acct.Payload == nil {
			continue
		}
		for _, st := range acct.Payload.Stores {
			candidate := model.StoreOption{
				Store:              st,
				AccountAuthID:      acct.AuthID,
				NeedsAuthorization: !hasEffectiveCandidate(acct.Payload, st),
			}

			existing, seen := byStore[st.StoreID]
			if !seen {
				byStore[st.StoreID] = candidate
				order = append(order, st.StoreID)
				continue
			}
			// 已有的需要授权、新来的不需要 -> 替换
			if existing.NeedsAuthorization && !candidate.NeedsAuthorization {
				byStore[st.StoreID] = candidate
			}
		}
	}

	out := make([]model.StoreOption, 0, len(order))
	for _, id := range order {
		out = append(out, byStore[id])
	}
	return out
}

// hasEffectiveCandidate 店铺是否存在 EFFECTIVE 的候选广告主
// 候选 = 店铺直连的广告主 + advertiser_to_stores 反向可达的广告主
func hasEffectiveCandidate(payload *model.OptionsPayload, st model.Store) bool {
	candidates := make(map[string]struct{})
	if st.AdvertiserID != "" {
		candidates[st.AdvertiserID] = struct{}{}
	}
	for advID, storeIDs := range payload.AdvertiserToStores {
		for _, sid := range storeIDs {
			if sid == st.StoreID {
				candidates[advID] = struct{}{}
			}
		}
	}
	for _, adv := range payload.Advertisers {
		if _, ok := candidates[adv.AdvertiserID]; !ok {
			continue
		}
		if adv.AuthorizationStatus == model.AuthStatusEffective {
			return true
		}
	}
	return false
}

// StoreEligible 店铺是否可投 (至少一个 EFFECTIVE 候选广告主)
func StoreEligible(payload *model.OptionsPayload, storeID string) bool {
	if payload == nil {
		return false
	}
	st, ok := findStore(payload.Stores, storeID)
	if !ok {
		return false
	}
	return hasEffectiveCandidate(payload, st)
}

// ==========================================
// 小工具
// ==========================================

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func containsAdvertiser(list []model.Advertiser, id string) bool {
	for _, a := range list {
		if a.AdvertiserID == id {
			return true
		}
	}
	return false
}

func findAdvertiser(list []model.Advertiser, id string) (model.Advertiser, bool) {
	for _, a := range list {
		if a.AdvertiserID == id {
			return a, true
		}
	}
	return model.Advertiser{}, false
}

func containsStore(list []model.Store, id string) bool {
	for _, s := range list {
		if s.StoreID == id {
			return true
		}
	}
	return false
}

func findStore(list []model.Store, id string) (model.Store, bool) {
	for _, s := range list {
		if s.StoreID == id {
			return s, true
		}
	}
	return model.Store{}, false
}
