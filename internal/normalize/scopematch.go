package normalize

import "gmvmax_dev_v1_202602/internal/model"

// ==========================================
// 作用域匹配: (campaign, detail, scope) -> {matches, pending}
// 详情是异步解析的，pending 必须显式传播，不能把数据丢掉
// ==========================================

// MatchResult 单维度匹配结果
type MatchResult struct {
	Matches bool
	Pending bool // 详情还没回来，无法判定
}

// MatchOptions 匹配策略
type MatchOptions struct {
	// AssumeMatchWhenUnknown 列表和详情都不带该维度 id 时按命中处理
	AssumeMatchWhenUnknown bool
}

// matchDimension 单维度匹配规则 (按顺序短路):
//  1. target 为空 -> 命中
//  2. target 在 campaignIDs ∪ detailIDs 里 -> 命中
//  3. 两个集合都非空且都不含 target -> 不命中
//  4. 两个集合都为空且 assumeUnknown -> 命中
//  5. 两个集合都为空且详情仍在加载 -> pending
//  6. fallback == target -> 命中；否则不命中
func matchDimension(campaignIDs, detailIDs []string, detailLoading bool, target, fallback string, assumeUnknown bool) MatchResult {
	if target == "" {
		return MatchResult{Matches: true}
	}
	if containsID(campaignIDs, target) || containsID(detailIDs, target) {
		return MatchResult{Matches: true}
	}
	if len(campaignIDs) > 0 && len(detailIDs) > 0 {
		return MatchResult{}
	}
	if len(campaignIDs) == 0 && len(detailIDs) == 0 {
		if assumeUnknown {
			return MatchResult{Matches: true}
		}
		if detailLoading {
			return MatchResult{Pending: true}
		}
	}
	if fallback != "" && fallback == target {
		return MatchResult{Matches: true}
	}
	return MatchResult{}
}

// MatchesBusinessCenter BC 维度
func MatchesBusinessCenter(c model.Campaign, detail *model.CampaignDetail, detailLoading bool, target, fallback string) MatchResult {
	return matchDimension(nonEmpty(c.BCID), detailIDsOf(detail, func(d *model.CampaignDetail) []string { return d.BCIDs }), detailLoading, target, fallback, false)
}

// MatchesAdvertiser 广告主维度
func MatchesAdvertiser(c model.Campaign, detail *model.CampaignDetail, detailLoading bool, target, fallback string) MatchResult {
	return matchDimension(nonEmpty(c.AdvertiserID), detailIDsOf(detail, func(d *model.CampaignDetail) []string { return d.AdvertiserIDs }), detailLoading, target, fallback, false)
}

// MatchesStore 店铺维度 (可按策略放宽未知匹配)
func MatchesStore(c model.Campaign, detail *model.CampaignDetail, detailLoading bool, target, fallback string, opts MatchOptions) MatchResult {
	ids := detailIDsOf(detail, func(d *model.CampaignDetail) []string { return d.StoreIDs })
	// 会话里出现的 store id 也算详情证据
	if detail != nil {
		for _, s := range detail.Sessions {
			if s.StoreID != "" && !containsID(ids, s.StoreID) {
				ids = append(ids, s.StoreID)
			}
		}
	}
	return matchDimension(nonEmpty(c.StoreID), ids, detailLoading, target, fallback, opts.AssumeMatchWhenUnknown)
}

// ScopeTarget 当前作用域的匹配目标 (空维度表示不过滤)
type ScopeTarget struct {
	BCID         string
	AdvertiserID string
	StoreID      string
}

// MatchesCampaignScope 三维联合匹配
// 可见 = 三个维度都命中且没有维度 pending；任一维度 pending 则整体 pending
func MatchesCampaignScope(c model.Campaign, detail *model.CampaignDetail, detailLoading bool, target, fallback ScopeTarget, opts MatchOptions) MatchResult {
	results := []MatchResult{
		MatchesBusinessCenter(c, detail, detailLoading, target.BCID, fallback.BCID),
		MatchesAdvertiser(c, detail, detailLoading, target.AdvertiserID, fallback.AdvertiserID),
		MatchesStore(c, detail, detailLoading, target.StoreID, fallback.StoreID, opts),
	}

	out := MatchResult{Matches: true}
	for _, r := range results {
		if r.Pending {
			out.Pending = true
		}
		if !r.Matches && !r.Pending {
			out.Matches = false
		}
	}
	if out.Pending {
		out.Matches = false
	}
	return out
}

// FilterVisibleCampaigns 过滤出当前作用域可见的系列
// pendingIDs 返回尚无法判定的系列 (详情未到)，调用方自行决定是否占位展示
func FilterVisibleCampaigns(campaigns []model.Campaign, details map[string]*model.CampaignDetail, loading map[string]bool, target, fallback ScopeTarget, opts MatchOptions) (visible []model.Campaign, pendingIDs []string) {
	for _, c := range campaigns {
		detail := details[c.CampaignID]
		r := MatchesCampaignScope(c, detail, loading[c.CampaignID], target, fallback, opts)
		switch {
		case r.Pending:
			pendingIDs = append(pendingIDs, c.CampaignID)
		case r.Matches:
			visible = append(visible, c)
		}
	}
	return visible, pendingIDs
}

func nonEmpty(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

func detailIDsOf(detail *model.CampaignDetail, pick func(*model.CampaignDetail) []string) []string {
	if detail == nil {
		return nil
	}
	return pick(detail)
}

func containsID(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
