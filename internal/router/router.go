package router

import (
	"github.com/gin-gonic/gin"

	"gmvmax_dev_v1_202602/internal/controller"
	"gmvmax_dev_v1_202602/internal/middleware"
)

// ==================== 路由注册 ====================

// Controllers 路由依赖的全部控制器
type Controllers struct {
	Scope    *controller.ScopeController
	Series   *controller.SeriesController
	Strategy *controller.StrategyController
	Sync     *controller.SyncController
	Meta     *controller.MetaController
	Session  *controller.SessionController
}

// InitRoutes 注册控制台全部路由
func InitRoutes(r *gin.Engine, c *Controllers) {
	api := r.Group("/api/v1/console")

	// 会话与健康不需要登录
	api.GET("/session", middleware.OptionalAuth(), c.Session.Probe)
	api.POST("/session/token", c.Session.IssueToken)
	api.GET("/health", c.Meta.Health)

	// 其余接口要求有效身份
	auth := api.Group("")
	auth.Use(middleware.JWTAuth(), middleware.AuditContext())

	auth.POST("/session/logout", c.Session.Logout)

	// HTTP 元数据
	auth.GET("/http-meta", c.Meta.Snapshot)
	auth.DELETE("/http-meta", c.Meta.Clear)

	// 策略预设 (作用域无关)
	auth.GET("/strategy/presets", c.Strategy.Presets)

	// 自动同步巡检
	auth.POST("/sync/auto", c.Sync.TriggerAutoSync)

	// workspace 维度
	ws := auth.Group("/:wid")
	{
		ws.GET("/providers", c.Scope.ListProviders)
		ws.GET("/presets", c.Scope.ListPresets)
		ws.DELETE("/presets/:presetId", c.Scope.DeletePreset)
		ws.GET("/sync/runs", c.Sync.RecentRuns)

		// 会话切片回灌与卸载
		ws.GET("/session/slice", c.Session.Bootstrap)
		ws.DELETE("/session/slice", c.Session.Unload)
	}

	// (workspace, provider) 维度
	scoped := ws.Group("/:provider")
	{
		scoped.GET("/accounts", c.Scope.ListAccounts)

		// 维度目录
		scoped.GET("/business-centers", c.Scope.ListBusinessCenters)
		scoped.GET("/advertisers", c.Scope.ListAdvertisers)
		scoped.GET("/stores", c.Scope.ListStores)

		// 作用域状态机
		scoped.GET("/scope", c.Scope.GetScope)
		scoped.DELETE("/scope", c.Scope.ClearScope)
		scoped.PUT("/scope/account", c.Scope.SelectAccount)
		scoped.PUT("/scope/store", c.Scope.SelectStore)
		scoped.PUT("/scope/dimension", c.Scope.SelectDimension)
		scoped.GET("/scope/options", c.Scope.GetOptions)

		// 预设
		scoped.POST("/presets", c.Scope.SavePreset)
		scoped.POST("/presets/:presetId/apply", c.Scope.ApplyPreset)

		// 商品
		scoped.GET("/products", c.Series.Products)

		// 系列
		scoped.GET("/series", c.Series.List)
		scoped.POST("/series", c.Series.Create)
		scoped.GET("/series/stats", c.Series.StoreStats)
		scoped.GET("/series/:campaignId", c.Series.Detail)
		scoped.PUT("/series/:campaignId", c.Series.Update)
		scoped.POST("/series/:campaignId/actions", c.Series.ApplyAction)
		scoped.GET("/series/:campaignId/actions", c.Series.ActionLogs)
		scoped.GET("/series/:campaignId/metrics", c.Series.Metrics)
		scoped.GET("/series/:campaignId/creatives", c.Series.Creatives)
		scoped.GET("/series/:campaignId/creatives/heating", c.Series.CreativeHeating)
		scoped.GET("/series/:campaignId/creatives/metrics", c.Series.CreativeMetrics)

		// 策略
		scoped.GET("/series/:campaignId/strategy", c.Strategy.Get)
		scoped.PUT("/series/:campaignId/strategy", c.Strategy.Update)
		scoped.POST("/series/:campaignId/strategy/preview", c.Strategy.Preview)

		// 同步 (Service 层按账号冷却限流)
		scoped.POST("/sync/campaigns", c.Sync.TriggerCampaignSync)
		scoped.POST("/sync/meta", c.Sync.TriggerMetaSync)
		scoped.POST("/sync/products", c.Sync.TriggerProductSync)
		scoped.GET("/sync/status/:taskId", c.Sync.SyncStatus)
		scoped.DELETE("/sync/cooldown", c.Sync.ResetCooldown)
		scoped.POST("/series/:campaignId/metrics/sync", c.Sync.TriggerMetricsSync)
	}
}
