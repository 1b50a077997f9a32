package controller

import (
	"github.com/gin-gonic/gin"

	"gmvmax_dev_v1_202602/internal/service"
)

// ==================== 策略控制器 ====================

// StrategyController 投放策略的查看、diff 保存与预览
type StrategyController struct {
	strategySvc *service.StrategyService
	scopeSvc    *service.ScopeService
}

// NewStrategyController 创建策略控制器
func NewStrategyController(strategySvc *service.StrategyService, scopeSvc *service.ScopeService) *StrategyController {
	return &StrategyController{strategySvc: strategySvc, scopeSvc: scopeSvc}
}

func (c *StrategyController) resolveKey(ctx *gin.Context) (service.ScopeKey, bool) {
	wid, provider := scopeParams(ctx)
	state := c.scopeSvc.State(ctx.Request.Context(), wid, provider)
	if state.AccountAuthID == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "未选择账号"})
		return service.ScopeKey{}, false
	}
	return service.ScopeKey{WorkspaceID: wid, Provider: provider, AuthID: state.AccountAuthID}, true
}

// ==================== Handler 实现 ====================

// Get 策略原文
// GET /api/v1/console/:wid/:provider/series/:campaignId/strategy
func (c *StrategyController) Get(ctx *gin.Context) {
	k, ok := c.resolveKey(ctx)
	if !ok {
		return
	}
	doc, err := c.strategySvc.Get(ctx.Request.Context(), k, ctx.Param("campaignId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": doc})
}

// Update 保存策略 (编辑器文本 -> 结构化补丁)
// PUT /api/v1/console/:wid/:provider/series/:campaignId/strategy
func (c *StrategyController) Update(ctx *gin.Context) {
	k, ok := c.resolveKey(ctx)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"code": 400, "message": "请求体格式错误"})
		return
	}

	patch, err := c.strategySvc.Update(ctx.Request.Context(), k, ctx.Param("campaignId"), req.Text)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "策略已保存", "data": gin.H{"patch": patch}})
}

// Preview 策略预览 (可带 overrides)
// POST /api/v1/console/:wid/:provider/series/:campaignId/strategy/preview
func (c *StrategyController) Preview(ctx *gin.Context) {
	k, ok := c.resolveKey(ctx)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	_ = ctx.ShouldBindJSON(&req) // overrides 可选

	raw, err := c.strategySvc.Preview(ctx.Request.Context(), k, ctx.Param("campaignId"), req.Text)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": raw})
}

// Presets 策略预设 (产品契约固定值)
// GET /api/v1/console/strategy/presets
func (c *StrategyController) Presets(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"code": 200, "data": c.strategySvc.Presets()})
}
