package tiktok

import (
	"fmt"
	"net/url"
)

// ==========================================
// 上游 API 路径构造 (全部相对于 API 根 /api/v1)
// ==========================================

// ProvidersPath 广告平台列表
// GET /tenants/{wid}/providers
func ProvidersPath(wid string) string {
	return fmt.Sprintf("/tenants/%s/providers", url.PathEscape(wid))
}

// AccountsPath 授权账号列表
// GET /tenants/{wid}/providers/{provider}/accounts
func AccountsPath(wid, provider string) string {
	return fmt.Sprintf("/tenants/%s/providers/%s/accounts", url.PathEscape(wid), url.PathEscape(provider))
}

// accountBase 账号级路径前缀
func accountBase(wid, provider, authID string) string {
	return fmt.Sprintf("%s/%s", AccountsPath(wid, provider), url.PathEscape(authID))
}

// BusinessCentersPath 商务中心列表
func BusinessCentersPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/business-centers"
}

// AdvertisersPath 广告主列表
func AdvertisersPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/advertisers"
}

// StoresPath 店铺列表 (账号维度)
func StoresPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/stores"
}

// AdvertiserStoresPath 店铺列表 (广告主维度)
func AdvertiserStoresPath(wid, provider, authID, advertiserID string) string {
	return AdvertisersPath(wid, provider, authID) + "/" + url.PathEscape(advertiserID) + "/stores"
}

// ProductsPath 商品列表
func ProductsPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/products"
}

// OptionsPath GMV Max 作用域选项
// refresh=true 时携带 ?refresh=1 强制服务端刷新
func OptionsPath(wid, provider, authID string, refresh bool) string {
	p := accountBase(wid, provider, authID) + "/gmvmax/options"
	if refresh {
		p += "?refresh=1"
	}
	return p
}

// ConfigPath 绑定配置 (GET 读取 / PUT 保存)
func ConfigPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/gmvmax/config"
}

// SyncPath 触发系列同步任务
// POST -> {task_id}
func SyncPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/gmvmax/sync"
}

// SyncStatusPath 查询同步任务状态
func SyncStatusPath(wid, provider, authID, taskID string) string {
	return accountBase(wid, provider, authID) + "/gmvmax/sync-status/" + url.PathEscape(taskID)
}

// SeriesPath 系列列表 (GET) / 创建系列 (POST)
func SeriesPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/gmvmax"
}

// SeriesDetailPath 系列详情 (GET) / 更新系列 (PUT)
func SeriesDetailPath(wid, provider, authID, campaignID string) string {
	return SeriesPath(wid, provider, authID) + "/" + url.PathEscape(campaignID)
}

// MetricsPath 系列指标报表
func MetricsPath(wid, provider, authID, campaignID string) string {
	return SeriesDetailPath(wid, provider, authID, campaignID) + "/metrics"
}

// MetricsSyncPath 触发指标回补
func MetricsSyncPath(wid, provider, authID, campaignID string) string {
	return MetricsPath(wid, provider, authID, campaignID) + "/sync"
}

// ActionsPath 操作日志 (GET) / 执行操作 (POST)
func ActionsPath(wid, provider, authID, campaignID string) string {
	return SeriesDetailPath(wid, provider, authID, campaignID) + "/actions"
}

// StrategyPath 投放策略 (GET / PUT 提交结构化 diff)
func StrategyPath(wid, provider, authID, campaignID string) string {
	return SeriesDetailPath(wid, provider, authID, campaignID) + "/strategy"
}

// StrategyPreviewPath 策略预览
func StrategyPreviewPath(wid, provider, authID, campaignID string) string {
	return SeriesDetailPath(wid, provider, authID, campaignID) + "/strategies/preview"
}

// CreativesPath 素材列表
func CreativesPath(wid, provider, authID, campaignID string) string {
	return SeriesDetailPath(wid, provider, authID, campaignID) + "/creatives"
}

// CreativeHeatingPath 素材加热状态
func CreativeHeatingPath(wid, provider, authID, campaignID string) string {
	return SeriesDetailPath(wid, provider, authID, campaignID) + "/creatives/heating"
}

// CreativeMetricsPath 素材维度指标
func CreativeMetricsPath(wid, provider, authID, campaignID string) string {
	return SeriesDetailPath(wid, provider, authID, campaignID) + "/creatives/metrics"
}

// AutoBindPath 自动绑定
// POST {store_id, persist}
func AutoBindPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/gmvmax/binding/auto"
}

// MetaSyncPath 元数据同步 (绑定前置流水线第一步)
func MetaSyncPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/sync/meta"
}

// ProductSyncPath 商品同步 (绑定前置流水线第二步)
func ProductSyncPath(wid, provider, authID string) string {
	return accountBase(wid, provider, authID) + "/sync/products"
}

// HealthPath 健康检查 (API 根下的绝对路径)
const HealthPath = "/healthz"
