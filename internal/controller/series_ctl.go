package controller

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/normalize"
	"gmvmax_dev_v1_202602/internal/service"
)

// ==================== 系列控制器 ====================

// SeriesController GMV Max 系列的读写入口
type SeriesController struct {
	seriesSvc  *service.SeriesService
	scopeSvc   *service.ScopeService
	querySvc   *service.QueryService
	sessionSvc *service.SessionService
}

// NewSeriesController 创建系列控制器
func NewSeriesController(seriesSvc *service.SeriesService, scopeSvc *service.ScopeService, querySvc *service.QueryService, sessionSvc *service.SessionService) *SeriesController {
	return &SeriesController{seriesSvc: seriesSvc, scopeSvc: scopeSvc, querySvc: querySvc, sessionSvc: sessionSvc}
}

// resolveScope 从路径与作用域状态拿到 (key, state)
// 账号未选或系列门控未通过时直接写响应并返回 false
func (c *SeriesController) resolveScope(ctx *gin.Context, gated bool) (service.ScopeKey, model.ScopeState, bool) {
	wid, provider := scopeParams(ctx)
	state := c.scopeSvc.State(ctx.Request.Context(), wid, provider)
	if state.AccountAuthID == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "未选择账号"})
		return service.ScopeKey{}, state, false
	}
	if gated && !c.scopeSvc.ShouldFetchSeries(ctx.Request.Context(), wid, provider) {
		ctx.JSON(409, gin.H{"code": 409, "message": "作用域未就绪或绑定不一致，系列数据暂不可用"})
		return service.ScopeKey{}, state, false
	}
	return service.ScopeKey{WorkspaceID: wid, Provider: provider, AuthID: state.AccountAuthID}, state, true
}

// target 当前作用域对应的匹配目标
func targetOf(state model.ScopeState) normalize.ScopeTarget {
	return normalize.ScopeTarget{
		BCID:         state.BCID,
		AdvertiserID: state.AdvertiserID,
		StoreID:      state.StoreID,
	}
}

// ==================== 列表与详情 ====================

// List 按作用域过滤的可见系列
// GET /api/v1/console/:wid/:provider/series
func (c *SeriesController) List(ctx *gin.Context) {
	k, state, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}

	view, err := c.seriesSvc.ListVisible(ctx.Request.Context(), k, targetOf(state), normalize.ScopeTarget{},
		normalize.MatchOptions{AssumeMatchWhenUnknown: true})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": view})
}

// Detail 系列详情
// GET /api/v1/console/:wid/:provider/series/:campaignId
func (c *SeriesController) Detail(ctx *gin.Context) {
	k, _, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}
	detail, err := c.querySvc.CampaignDetail(ctx.Request.Context(), k, ctx.Param("campaignId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": detail})
}

// StoreStats 各店铺的系列统计
// GET /api/v1/console/:wid/:provider/series/stats
func (c *SeriesController) StoreStats(ctx *gin.Context) {
	k, _, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}
	campaigns, err := c.querySvc.CampaignList(ctx.Request.Context(), k)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": normalize.BuildStoreStats(campaigns)})
}

// ==================== 商品 ====================

// Products 商品列表 (叠加占用状态)
// GET /api/v1/console/:wid/:provider/products?unassigned=1
func (c *SeriesController) Products(ctx *gin.Context) {
	k, state, ok := c.resolveScope(ctx, false)
	if !ok {
		return
	}
	rctx := ctx.Request.Context()

	products, err := c.querySvc.Products(rctx, k)
	if err != nil {
		respondError(ctx, err)
		return
	}

	// 占用状态来自启用中的系列
	campaigns, err := c.querySvc.CampaignList(rctx, k)
	if err == nil {
		ids := make([]string, 0, len(campaigns))
		for _, cam := range campaigns {
			ids = append(ids, cam.CampaignID)
		}
		details := c.querySvc.CampaignDetails(rctx, k, ids)
		occupied := normalize.OccupiedProductIDs(campaigns, details)
		products = normalize.OverlayOccupancy(products, occupied)
	}

	c.persistProducts(k.WorkspaceID, state.StoreID, products)

	if ctx.Query("unassigned") == "1" {
		products = normalize.UnassignedProducts(products)
	}
	ctx.JSON(200, gin.H{"code": 200, "data": products})
}

// persistProducts 给会话回灌留一份店铺维度的商品快照 (防抖落库)
func (c *SeriesController) persistProducts(wid, storeID string, products []model.Product) {
	if storeID == "" {
		return
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return
	}
	cacheKey := storeID + "|products"
	c.sessionSvc.SaveProductCache(wid, cacheKey, payload)
	c.sessionSvc.UpdateSlice(wid, func(st *service.SliceState) {
		for _, existing := range st.ProductKeys {
			if existing == cacheKey {
				return
			}
		}
		st.ProductKeys = append(st.ProductKeys, cacheKey)
	})
}

// ==================== 创建与编辑 ====================

// Create 创建系列 (三步向导提交)
// POST /api/v1/console/:wid/:provider/series
func (c *SeriesController) Create(ctx *gin.Context) {
	k, state, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}

	var in service.CreateSeriesInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(400, gin.H{"code": 400, "message": "请求体格式错误"})
		return
	}

	raw, err := c.seriesSvc.CreateSeries(ctx.Request.Context(), k, state, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "系列已创建", "data": raw})
}

// Update 编辑系列
// PUT /api/v1/console/:wid/:provider/series/:campaignId
func (c *SeriesController) Update(ctx *gin.Context) {
	k, _, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}

	var in service.EditSeriesInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(400, gin.H{"code": 400, "message": "请求体格式错误"})
		return
	}

	if err := c.seriesSvc.EditSeries(ctx.Request.Context(), k, ctx.Param("campaignId"), in); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "系列已更新"})
}

// ==================== 操作 ====================

// ApplyAction 执行操作 (启停/预算/ROAS/删除)
// POST /api/v1/console/:wid/:provider/series/:campaignId/actions
func (c *SeriesController) ApplyAction(ctx *gin.Context) {
	k, _, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}

	var req struct {
		Action  string                 `json:"action"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Action == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "action 不能为空"})
		return
	}

	if err := c.seriesSvc.ApplyAction(ctx.Request.Context(), k, ctx.Param("campaignId"), req.Action, req.Payload); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "操作已执行"})
}

// ActionLogs 远端操作日志 + 本地审计
// GET /api/v1/console/:wid/:provider/series/:campaignId/actions
func (c *SeriesController) ActionLogs(ctx *gin.Context) {
	k, _, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}
	campaignID := ctx.Param("campaignId")
	rctx := ctx.Request.Context()

	remote, err := c.querySvc.Actions(rctx, k, campaignID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	local, _ := c.seriesSvc.LocalActionLogs(rctx, k.WorkspaceID, campaignID, 50)

	ctx.JSON(200, gin.H{"code": 200, "data": gin.H{"remote": remote, "local": local}})
}

// ==================== 指标 ====================

// Metrics 指标报表 + 汇总
// GET /api/v1/console/:wid/:provider/series/:campaignId/metrics
func (c *SeriesController) Metrics(ctx *gin.Context) {
	k, _, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}
	rows, err := c.querySvc.Metrics(ctx.Request.Context(), k, ctx.Param("campaignId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{
		"code": 200,
		"data": gin.H{"rows": rows, "summary": normalize.SummariseMetrics(rows)},
	})
}

// ==================== 素材透传 ====================

// Creatives 素材列表
// GET /api/v1/console/:wid/:provider/series/:campaignId/creatives
func (c *SeriesController) Creatives(ctx *gin.Context) {
	c.rawSeriesEndpoint(ctx, c.querySvc.Creatives)
}

// CreativeHeating 素材加热状态
// GET /api/v1/console/:wid/:provider/series/:campaignId/creatives/heating
func (c *SeriesController) CreativeHeating(ctx *gin.Context) {
	c.rawSeriesEndpoint(ctx, c.querySvc.CreativeHeating)
}

// CreativeMetrics 素材指标
// GET /api/v1/console/:wid/:provider/series/:campaignId/creatives/metrics
func (c *SeriesController) CreativeMetrics(ctx *gin.Context) {
	c.rawSeriesEndpoint(ctx, c.querySvc.CreativeMetrics)
}

func (c *SeriesController) rawSeriesEndpoint(ctx *gin.Context, fetch func(context.Context, service.ScopeKey, string) (json.RawMessage, error)) {
	k, _, ok := c.resolveScope(ctx, true)
	if !ok {
		return
	}
	raw, err := fetch(ctx.Request.Context(), k, ctx.Param("campaignId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": raw})
}
