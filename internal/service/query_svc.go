package service

import (
	"context"
	"encoding/json"
	"time"

	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/normalize"
	"gmvmax_dev_v1_202602/pkg/net"
	"gmvmax_dev_v1_202602/pkg/tiktok"
	"gmvmax_dev_v1_202602/pkg/utils"
)

// ==================== 查询服务 ====================

// ScopeKey 资源寻址的账号级前缀
type ScopeKey struct {
	WorkspaceID string
	Provider    string
	AuthID      string
}

// Valid 路径组件齐全才允许发请求
func (k ScopeKey) Valid() bool {
	return k.WorkspaceID != "" && k.Provider != "" && k.AuthID != ""
}

// 缓存域与 staleTime
const (
	cacheDomain = "gmvmax"

	defaultStaleTime = 30 * time.Second
	detailStaleTime  = 60 * time.Second // 详情 fan-out 专用
	optionsStaleTime = 5 * time.Minute
)

// QueryService 远端资源的统一读取入口
// 每个资源一个复合 key，重复并发请求由缓存引擎合并
type QueryService struct {
	dispatcher net.Dispatcher
	cache      *utils.QueryCache
}

// NewQueryService 创建查询服务
func NewQueryService(dispatcher net.Dispatcher) *QueryService {
	return &QueryService{
		dispatcher: dispatcher,
		cache:      utils.NewQueryCache(),
	}
}

// Cache 暴露底层缓存 (mutation 侧做失效用)
func (s *QueryService) Cache() *utils.QueryCache { return s.cache }

// key 组合复合缓存键: [domain, resource, wid, provider, authId, ...]
func (s *QueryService) key(resource string, k ScopeKey, extra ...string) string {
	parts := append([]string{cacheDomain, resource, k.WorkspaceID, k.Provider, k.AuthID}, extra...)
	return utils.JoinKey(parts...)
}

// fetchRaw 走调度器拉原始 payload
func (s *QueryService) fetchRaw(ctx context.Context, path string) ([]byte, error) {
	var raw tiktok.RawPayload
	if err := s.dispatcher.Get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ==================== 层级资源 ====================

// Providers 平台列表
func (s *QueryService) Providers(ctx context.Context, workspaceID string) ([]model.Provider, error) {
	key := utils.JoinKey(cacheDomain, "providers", workspaceID)
	v, err := s.cache.Get(ctx, key, optionsStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.ProvidersPath(workspaceID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseProviders(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Provider), nil
}

// Accounts 授权账号列表
func (s *QueryService) Accounts(ctx context.Context, workspaceID, provider string) ([]model.Account, error) {
	key := utils.JoinKey(cacheDomain, "accounts", workspaceID, provider)
	v, err := s.cache.Get(ctx, key, optionsStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.AccountsPath(workspaceID, provider))
		if err != nil {
			return nil, err
		}
		return normalize.ParseAccounts(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Account), nil
}

// BusinessCenters 商务中心目录
func (s *QueryService) BusinessCenters(ctx context.Context, k ScopeKey) ([]model.BusinessCenter, error) {
	key := s.key("business-centers", k)
	v, err := s.cache.Get(ctx, key, optionsStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.BusinessCentersPath(k.WorkspaceID, k.Provider, k.AuthID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseBusinessCenters(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.BusinessCenter), nil
}

// Advertisers 广告主目录
func (s *QueryService) Advertisers(ctx context.Context, k ScopeKey) ([]model.Advertiser, error) {
	key := s.key("advertisers", k)
	v, err := s.cache.Get(ctx, key, optionsStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.AdvertisersPath(k.WorkspaceID, k.Provider, k.AuthID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseAdvertisers(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Advertiser), nil
}

// Stores 店铺目录; advertiserID 非空时切到广告主维度的子资源
func (s *QueryService) Stores(ctx context.Context, k ScopeKey, advertiserID string) ([]model.Store, error) {
	path := tiktok.StoresPath(k.WorkspaceID, k.Provider, k.AuthID)
	key := s.key("stores", k)
	if advertiserID != "" {
		path = tiktok.AdvertiserStoresPath(k.WorkspaceID, k.Provider, k.AuthID, advertiserID)
		key = s.key("stores", k, advertiserID)
	}
	v, err := s.cache.Get(ctx, key, optionsStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, path)
		if err != nil {
			return nil, err
		}
		return normalize.ParseStores(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Store), nil
}

// Options 作用域选项 (refresh=true 时绕过缓存强制重拉)
func (s *QueryService) Options(ctx context.Context, k ScopeKey, refresh bool) (*model.OptionsPayload, error) {
	key := s.key("options", k)
	if refresh {
		s.cache.Invalidate(key)
	}
	v, err := s.cache.Get(ctx, key, optionsStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.OptionsPath(k.WorkspaceID, k.Provider, k.AuthID, refresh))
		if err != nil {
			return nil, err
		}
		return normalize.ParseOptionsPayload(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.OptionsPayload), nil
}

// BindingConfig 服务端绑定配置
func (s *QueryService) BindingConfig(ctx context.Context, k ScopeKey) (tiktok.BindingConfig, bool, error) {
	type configResult struct {
		cfg   tiktok.BindingConfig
		saved bool
	}
	key := s.key("config", k)
	v, err := s.cache.Get(ctx, key, defaultStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.ConfigPath(k.WorkspaceID, k.Provider, k.AuthID))
		if err != nil {
			return nil, err
		}
		bcID, advID, storeID, autoSync, saved := normalize.ParseBindingConfig(raw)
		return configResult{
			cfg: tiktok.BindingConfig{
				BCID:             bcID,
				AdvertiserID:     advID,
				StoreID:          storeID,
				AutoSyncProducts: autoSync,
			},
			saved: saved,
		}, nil
	})
	if err != nil {
		return tiktok.BindingConfig{}, false, err
	}
	r := v.(configResult)
	return r.cfg, r.saved, nil
}

// SaveBindingConfig 保存绑定配置并失效配置缓存
func (s *QueryService) SaveBindingConfig(ctx context.Context, k ScopeKey, cfg tiktok.BindingConfig) error {
	if err := s.dispatcher.Put(ctx, tiktok.ConfigPath(k.WorkspaceID, k.Provider, k.AuthID), cfg, nil); err != nil {
		return err
	}
	s.InvalidateConfig(k)
	return nil
}

// Products 商品列表
func (s *QueryService) Products(ctx context.Context, k ScopeKey) ([]model.Product, error) {
	key := s.key("products", k)
	v, err := s.cache.Get(ctx, key, defaultStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.ProductsPath(k.WorkspaceID, k.Provider, k.AuthID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseProducts(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Product), nil
}

// ==================== 系列资源 ====================

// CampaignList 系列列表
func (s *QueryService) CampaignList(ctx context.Context, k ScopeKey) ([]model.Campaign, error) {
	key := s.key("series", k, "list")
	v, err := s.cache.Get(ctx, key, defaultStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.SeriesPath(k.WorkspaceID, k.Provider, k.AuthID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseCampaignList(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Campaign), nil
}

// CampaignDetail 单个系列详情 (staleTime 60s)
func (s *QueryService) CampaignDetail(ctx context.Context, k ScopeKey, campaignID string) (*model.CampaignDetail, error) {
	key := s.key("series", k, "detail", campaignID)
	v, err := s.cache.Get(ctx, key, detailStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.SeriesDetailPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseCampaignDetail(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.CampaignDetail), nil
}

// CampaignDetails 按列表 fan-out 并发拉详情
// 单个失败不拖垮整体，缺失详情由作用域匹配的 pending 语义兜底
func (s *QueryService) CampaignDetails(ctx context.Context, k ScopeKey, campaignIDs []string) map[string]*model.CampaignDetail {
	type result struct {
		id     string
		detail *model.CampaignDetail
	}

	ch := make(chan result, len(campaignIDs))
	for _, id := range campaignIDs {
		go func(cid string) {
			detail, err := s.CampaignDetail(ctx, k, cid)
			if err != nil {
				ch <- result{id: cid}
				return
			}
			ch <- result{id: cid, detail: detail}
		}(id)
	}

	out := make(map[string]*model.CampaignDetail, len(campaignIDs))
	for range campaignIDs {
		r := <-ch
		if r.detail != nil {
			out[r.id] = r.detail
		}
	}
	return out
}

// Strategy 投放策略原文
func (s *QueryService) Strategy(ctx context.Context, k ScopeKey, campaignID string) (map[string]interface{}, error) {
	key := s.key("series", k, "strategy", campaignID)
	v, err := s.cache.Get(ctx, key, defaultStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.StrategyPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseStrategy(raw)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]interface{}), nil
}

// Metrics 指标报表
func (s *QueryService) Metrics(ctx context.Context, k ScopeKey, campaignID string) ([]model.MetricsRow, error) {
	key := s.key("series", k, "metrics", campaignID)
	v, err := s.cache.Get(ctx, key, defaultStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.MetricsPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseMetricsReport(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.MetricsRow), nil
}

// Actions 远端操作日志
func (s *QueryService) Actions(ctx context.Context, k ScopeKey, campaignID string) ([]model.ActionLogEntry, error) {
	key := s.key("series", k, "actions", campaignID)
	v, err := s.cache.Get(ctx, key, defaultStaleTime, func(ctx context.Context) (interface{}, error) {
		raw, err := s.fetchRaw(ctx, tiktok.ActionsPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID))
		if err != nil {
			return nil, err
		}
		return normalize.ParseActionLogs(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.ActionLogEntry), nil
}

// Creatives 素材列表 (原样透传)
func (s *QueryService) Creatives(ctx context.Context, k ScopeKey, campaignID string) (json.RawMessage, error) {
	return s.rawSeriesResource(ctx, k, campaignID, "creatives", tiktok.CreativesPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID))
}

// CreativeHeating 素材加热状态 (原样透传)
func (s *QueryService) CreativeHeating(ctx context.Context, k ScopeKey, campaignID string) (json.RawMessage, error) {
	return s.rawSeriesResource(ctx, k, campaignID, "creative-heating", tiktok.CreativeHeatingPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID))
}

// CreativeMetrics 素材指标 (原样透传)
func (s *QueryService) CreativeMetrics(ctx context.Context, k ScopeKey, campaignID string) (json.RawMessage, error) {
	return s.rawSeriesResource(ctx, k, campaignID, "creative-metrics", tiktok.CreativeMetricsPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID))
}

func (s *QueryService) rawSeriesResource(ctx context.Context, k ScopeKey, campaignID, resource, path string) (json.RawMessage, error) {
	key := s.key("series", k, resource, campaignID)
	v, err := s.cache.Get(ctx, key, defaultStaleTime, func(ctx context.Context) (interface{}, error) {
		return s.fetchRaw(ctx, path)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// ==================== 统一失效 ====================

// InvalidateSeries 失效系列域全部缓存 (list + 全部 detail/strategy/actions/metrics)
func (s *QueryService) InvalidateSeries(k ScopeKey) {
	s.cache.InvalidatePrefix(s.key("series", k))
}

// InvalidateCampaign 失效单个系列的 detail/strategy/actions/metrics 与列表
func (s *QueryService) InvalidateCampaign(k ScopeKey, campaignID string) {
	s.cache.Invalidate(s.key("series", k, "list"))
	for _, res := range []string{"detail", "strategy", "actions", "metrics", "creatives", "creative-heating", "creative-metrics", "preview"} {
		s.cache.Invalidate(s.key("series", k, res, campaignID))
	}
}

// InvalidateProducts 失效商品缓存
func (s *QueryService) InvalidateProducts(k ScopeKey) {
	s.cache.Invalidate(s.key("products", k))
}

// InvalidateOptions 失效选项与维度目录缓存
func (s *QueryService) InvalidateOptions(k ScopeKey) {
	s.cache.Invalidate(s.key("options", k))
	s.cache.Invalidate(s.key("business-centers", k))
	s.cache.Invalidate(s.key("advertisers", k))
	s.cache.InvalidatePrefix(s.key("stores", k))
}

// InvalidateConfig 失效绑定配置缓存
func (s *QueryService) InvalidateConfig(k ScopeKey) {
	s.cache.Invalidate(s.key("config", k))
}

// ClearWorkspace workspace 卸载时清空全部缓存
func (s *QueryService) ClearWorkspace() {
	s.cache.Clear()
}
