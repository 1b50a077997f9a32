package normalize

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/pkg/utils"
)

// ==========================================
// 原始 payload -> 规范化实体
// 每个资源一个入口函数，内部消化全部别名
// ==========================================

// ParseProviders 平台列表
func ParseProviders(raw []byte) []model.Provider {
	doc := gjson.ParseBytes(raw)
	var out []model.Provider
	for _, item := range firstArray(doc, "providers", "data.providers", "data", "list") {
		code := readString(item, "code", "provider", "id")
		if code == "" {
			continue
		}
		label := readString(item, labelAliases...)
		if label == "" {
			label = code
		}
		out = append(out, model.Provider{Code: code, Label: label})
	}
	return out
}

// ParseAccounts 授权账号列表
// status 归一为 valid / invalid
func ParseAccounts(raw []byte) []model.Account {
	doc := gjson.ParseBytes(raw)
	var out []model.Account
	for _, item := range firstArray(doc, "accounts", "data.accounts", "data", "list") {
		authID := readString(item, authIDAliases...)
		if authID == "" {
			authID = readString(item, "id")
		}
		if authID == "" {
			continue
		}
		status := strings.ToLower(readString(item, "status", "auth_status", "authStatus"))
		normalized := model.AccountStatusValid
		if strings.Contains(status, "invalid") || strings.Contains(status, "expired") || strings.Contains(status, "revoked") {
			normalized = model.AccountStatusInvalid
		}
		label := readString(item, labelAliases...)
		if label == "" {
			label = authID
		}
		out = append(out, model.Account{AuthID: authID, Label: label, Status: normalized})
	}
	return out
}

// ParseOptionsPayload 作用域选项: 实体列表 + links 邻接表
func ParseOptionsPayload(raw []byte) *model.OptionsPayload {
	doc := gjson.ParseBytes(raw)
	root := firstObject(doc, "data", "options")

	payload := &model.OptionsPayload{
		BusinessCenters: businessCentersIn(root, "business_centers", "businessCenters", "bc_list", "bcs"),
		Advertisers:     advertisersIn(root, "advertisers", "advertiser_list"),
		Stores:          storesIn(root, "stores", "store_list", "shops"),
	}

	links := root.Get("links")
	payload.BCToAdvertisers = ExtractLinkMap(links, "bc_to_advertisers", "bcToAdvertisers", "bc2advertisers")
	payload.AdvertiserToStores = ExtractLinkMap(links, "advertiser_to_stores", "advertiserToStores", "advertiser2stores")

	return payload
}

// businessCentersIn 在 node 的候选路径下收敛商务中心列表
func businessCentersIn(node gjson.Result, paths ...string) []model.BusinessCenter {
	var out []model.BusinessCenter
	for _, item := range firstArray(node, paths...) {
		id := readString(item, bcIDAliases...)
		if id == "" {
			id = readString(item, "id")
		}
		if id == "" {
			continue
		}
		out = append(out, model.BusinessCenter{BCID: id, Name: orDefault(readString(item, labelAliases...), id)})
	}
	return out
}

// advertisersIn 在 node 的候选路径下收敛广告主列表
func advertisersIn(node gjson.Result, paths ...string) []model.Advertiser {
	var out []model.Advertiser
	for _, item := range firstArray(node, paths...) {
		id := readString(item, advertiserIDAliases...)
		if id == "" {
			id = readString(item, "id")
		}
		if id == "" {
			continue
		}
		out = append(out, model.Advertiser{
			AdvertiserID:        id,
			BCID:                readString(item, bcIDAliases...),
			DisplayName:         orDefault(readString(item, labelAliases...), id),
			AuthorizationStatus: strings.ToUpper(readString(item, authStatusAliases...)),
		})
	}
	return out
}

// storesIn 在 node 的候选路径下收敛店铺列表
func storesIn(node gjson.Result, paths ...string) []model.Store {
	var out []model.Store
	for _, item := range firstArray(node, paths...) {
		id := readString(item, storeIDAliases...)
		if id == "" {
			id = readString(item, "id")
		}
		if id == "" {
			continue
		}
		out = append(out, model.Store{
			StoreID:      id,
			AdvertiserID: readString(item, advertiserIDAliases...),
			BCID:         readString(item, bcIDAliases...),
			DisplayName:  orDefault(readString(item, labelAliases...), id),
		})
	}
	return out
}

// ParseBusinessCenters 独立的商务中心目录接口
func ParseBusinessCenters(raw []byte) []model.BusinessCenter {
	doc := gjson.ParseBytes(raw)
	return businessCentersIn(doc, "business_centers", "businessCenters", "data.business_centers", "bc_list", "data", "list")
}

// ParseAdvertisers 独立的广告主目录接口
func ParseAdvertisers(raw []byte) []model.Advertiser {
	doc := gjson.ParseBytes(raw)
	return advertisersIn(doc, "advertisers", "data.advertisers", "advertiser_list", "data", "list")
}

// ParseStores 独立的店铺目录接口 (账号维度或广告主维度)
func ParseStores(raw []byte) []model.Store {
	doc := gjson.ParseBytes(raw)
	return storesIn(doc, "stores", "data.stores", "store_list", "shops", "data", "list")
}

// IsOptionsEmpty 选项是否"看起来为空" (触发一次 refresh=1 重拉的条件)
func IsOptionsEmpty(p *model.OptionsPayload) bool {
	return p == nil || (len(p.BusinessCenters) == 0 && len(p.Advertisers) == 0 && len(p.Stores) == 0)
}

// ParseProducts 商品列表
func ParseProducts(raw []byte) []model.Product {
	doc := gjson.ParseBytes(raw)
	var out []model.Product
	for _, item := range firstArray(doc, "products", "data.products", "data", "list", "items") {
		id := readString(item, productIDAliases...)
		if id == "" {
			id = readString(item, "id")
		}
		if id == "" {
			continue
		}
		out = append(out, model.Product{
			ProductID:       id,
			Title:           readString(item, labelAliases...),
			Status:          strings.ToUpper(readString(item, "status", "product_status", "productStatus", "sale_status")),
			GmvMaxAdsStatus: strings.ToUpper(readString(item, "gmv_max_ads_status", "gmvMaxAdsStatus", "gmv_max_status")),
		})
	}
	return out
}

// ParseCampaignList 系列列表
func ParseCampaignList(raw []byte) []model.Campaign {
	doc := gjson.ParseBytes(raw)
	var out []model.Campaign
	for _, item := range firstArray(doc, "campaigns", "data.campaigns", "data.list", "data", "list", "items") {
		c := parseCampaign(item)
		if c.CampaignID == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func parseCampaign(item gjson.Result) model.Campaign {
	id := readString(item, campaignIDAliases...)
	if id == "" {
		id = readString(item, "id")
	}
	return model.Campaign{
		CampaignID:      id,
		Name:            readString(item, "name", "campaign_name", "campaignName", "title"),
		OperationStatus: strings.ToUpper(readString(item, opStatusAliases...)),
		SecondaryStatus: strings.ToUpper(readString(item, "secondary_status", "secondaryStatus")),
		BCID:            readString(item, bcIDAliases...),
		AdvertiserID:    readString(item, advertiserIDAliases...),
		StoreID:         readString(item, storeIDAliases...),
		ProductIDs:      readIDList(item.Get("product_ids"), productIDAliases),
		BudgetCents:     readInt(item, "budget_cents", "daily_budget_cents", "budget"),
		RoasBid:         readString(item, "roas_bid", "roasBid"),
	}
}

// ParseCampaignDetail 系列详情 (含会话商品列表)
func ParseCampaignDetail(raw []byte) *model.CampaignDetail {
	doc := gjson.ParseBytes(raw)
	root := firstObject(doc, "data", "campaign", "detail")

	detail := &model.CampaignDetail{
		CampaignID:  readString(root, campaignIDAliases...),
		Name:        readString(root, "name", "campaign_name", "campaignName"),
		BudgetCents: readInt(root, "budget_cents", "daily_budget_cents", "budget"),
		RoasBid:     readString(root, "roas_bid", "roasBid"),
	}
	if detail.CampaignID == "" {
		detail.CampaignID = readString(root, "id")
	}

	// 详情可能以单值或数组补充作用域 id
	detail.BCIDs = collectIDs(root, bcIDAliases, "bc_ids", "bcIds")
	detail.AdvertiserIDs = collectIDs(root, advertiserIDAliases, "advertiser_ids", "advertiserIds")
	detail.StoreIDs = collectIDs(root, storeIDAliases, "store_ids", "storeIds")

	for _, s := range firstArray(root, "sessions", "session_list", "sessionList") {
		session := model.CampaignSession{
			SessionID:  readString(s, sessionIDAliases...),
			StoreID:    readString(s, storeIDAliases...),
			ProductIDs: readIDList(s.Get("product_list"), productIDAliases),
		}
		if session.SessionID == "" {
			session.SessionID = readString(s, "id")
		}
		if len(session.ProductIDs) == 0 {
			session.ProductIDs = readIDList(s.Get("products"), productIDAliases)
		}
		detail.Sessions = append(detail.Sessions, session)
	}

	return detail
}

// collectIDs 合并单值别名字段和数组字段
func collectIDs(obj gjson.Result, singleAliases []string, listKeys ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if v := readString(obj, singleAliases...); v != "" {
		add(v)
	}
	for _, key := range listKeys {
		for _, id := range readIDList(obj.Get(key), singleAliases) {
			add(id)
		}
	}
	return out
}

// ParseAutoBindCandidates 自动绑定候选列表
func ParseAutoBindCandidates(raw []byte) []model.AutoBindCandidate {
	doc := gjson.ParseBytes(raw)
	var out []model.AutoBindCandidate
	for _, item := range firstArray(doc, "candidates", "data.candidates", "advertisers", "data", "list") {
		c := model.AutoBindCandidate{
			AdvertiserID:           readString(item, advertiserIDAliases...),
			BCID:                   readString(item, bcIDAliases...),
			StoreAuthorizedBCID:    readString(item, "store_authorized_bc_id", "storeAuthorizedBcId"),
			AuthorizationStatus:    strings.ToUpper(readString(item, authStatusAliases...)),
			PromoteAllProducts:     readBoolPtr(item, "promote_all_products_allowed", "promoteAllProductsAllowed"),
			IsRunningCustomShopAds: readBoolPtr(item, "is_running_custom_shop_ads", "isRunningCustomShopAds"),
		}
		if c.AdvertiserID == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ParseActionLogs 操作日志
func ParseActionLogs(raw []byte) []model.ActionLogEntry {
	doc := gjson.ParseBytes(raw)
	var out []model.ActionLogEntry
	for _, item := range firstArray(doc, "actions", "logs", "data.actions", "data", "list") {
		entry := model.ActionLogEntry{
			Action: readString(item, "action", "action_type", "actionType"),
			Result: readString(item, "result", "status"),
			Reason: readString(item, "reason", "message"),
			Actor:  readString(item, "actor", "operator", "user"),
		}
		for _, key := range timestampAliases {
			v := item.Get(key)
			if v.Exists() {
				if iso, ok := utils.ParseTimestamp(v.Value()); ok {
					entry.Timestamp = iso
					break
				}
			}
		}
		out = append(out, entry)
	}
	return out
}

// ParseMetricsReport 报表行，数值字段做别名收敛
func ParseMetricsReport(raw []byte) []model.MetricsRow {
	doc := gjson.ParseBytes(raw)
	var out []model.MetricsRow
	for _, item := range firstArray(doc, "report", "rows", "data.rows", "data", "list", "metrics") {
		out = append(out, model.MetricsRow{
			Date:   readString(item, "date", "stat_date", "statDate", "day"),
			Spend:  readFloat(item, "spend", "total_spend", "totalSpend", "cost"),
			GMV:    readFloat(item, "gmv", "gross_revenue", "grossRevenue", "total_gmv", "revenue"),
			Orders: readInt(item, "orders", "order_count", "orderCount", "total_orders"),
		})
	}
	return out
}

// ParseBindingConfig 绑定配置 + 是否已保存
func ParseBindingConfig(raw []byte) (bcID, advertiserID, storeID string, autoSync, saved bool) {
	doc := gjson.ParseBytes(raw)
	root := firstObject(doc, "config", "data.config", "data", "binding")

	bcID = readString(root, bcIDAliases...)
	advertiserID = readString(root, advertiserIDAliases...)
	storeID = readString(root, storeIDAliases...)
	if p := readBoolPtr(root, "auto_sync_products", "autoSyncProducts"); p != nil {
		autoSync = *p
	}

	if p := readBoolPtr(doc, "saved", "has_saved_binding", "hasSavedBinding"); p != nil {
		saved = *p
	} else {
		saved = bcID != "" || advertiserID != "" || storeID != ""
	}
	return
}

// ParseStrategy 策略文档 (自由 JSON，保持结构)
func ParseStrategy(raw []byte) (map[string]interface{}, error) {
	doc := gjson.ParseBytes(raw)
	root := firstObject(doc, "strategy", "data.strategy", "data")

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(root.Raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
