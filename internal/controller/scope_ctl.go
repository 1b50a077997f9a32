package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gmvmax_dev_v1_202602/internal/middleware"
	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/normalize"
	"gmvmax_dev_v1_202602/internal/service"
	"gmvmax_dev_v1_202602/pkg/net"
)

// ==================== 作用域控制器 ====================

// ScopeController 作用域选择与预设
// 作用域变更同时镜像到会话切片，供前端回灌
type ScopeController struct {
	scopeSvc   *service.ScopeService
	querySvc   *service.QueryService
	sessionSvc *service.SessionService
}

// NewScopeController 创建作用域控制器
func NewScopeController(scopeSvc *service.ScopeService, querySvc *service.QueryService, sessionSvc *service.SessionService) *ScopeController {
	return &ScopeController{scopeSvc: scopeSvc, querySvc: querySvc, sessionSvc: sessionSvc}
}

// scopeParams 路径里的 workspace + provider
func scopeParams(ctx *gin.Context) (wid, provider string) {
	return ctx.Param("wid"), ctx.Param("provider")
}

// respondError 统一错误输出:
// 冷却错误映射为 429 + Retry-After，APIError 透出原状态码与 uiMessage
func respondError(ctx *gin.Context, err error) {
	var cooldown *middleware.SyncCooldownError
	if errors.As(err, &cooldown) {
		retryAfter := int(cooldown.RetryAfter.Seconds())
		ctx.Header("Retry-After", strconv.Itoa(retryAfter))
		ctx.JSON(http.StatusTooManyRequests, gin.H{
			"code":    http.StatusTooManyRequests,
			"message": cooldown.Error(),
			"data": gin.H{
				"retry_after": retryAfter,
				"sync_type":   cooldown.SyncType,
			},
		})
		return
	}
	if apiErr, ok := err.(*net.APIError); ok {
		status := apiErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		ctx.JSON(status, gin.H{
			"code":       status,
			"message":    apiErr.UIMessage,
			"request_id": apiErr.RequestID,
		})
		return
	}
	ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
}

// accountKey 账号必须已选
func (c *ScopeController) accountKey(ctx *gin.Context) (service.ScopeKey, bool) {
	wid, provider := scopeParams(ctx)
	state := c.scopeSvc.State(ctx.Request.Context(), wid, provider)
	if state.AccountAuthID == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "未选择账号"})
		return service.ScopeKey{}, false
	}
	return service.ScopeKey{WorkspaceID: wid, Provider: provider, AuthID: state.AccountAuthID}, true
}

// mirrorSlice 作用域变更镜像到会话切片 (防抖落库)
func (c *ScopeController) mirrorSlice(wid string, state model.ScopeState) {
	c.sessionSvc.UpdateSlice(wid, func(st *service.SliceState) {
		st.Scope = state
	})
}

// ==================== Handler 实现 ====================

// ListProviders 广告平台列表
// GET /api/v1/console/:wid/providers
func (c *ScopeController) ListProviders(ctx *gin.Context) {
	providers, err := c.querySvc.Providers(ctx.Request.Context(), ctx.Param("wid"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": providers})
}

// ListAccounts 授权账号列表
// GET /api/v1/console/:wid/:provider/accounts
func (c *ScopeController) ListAccounts(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)
	accounts, err := c.querySvc.Accounts(ctx.Request.Context(), wid, provider)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": accounts})
}

// GetScope 当前作用域状态
// GET /api/v1/console/:wid/:provider/scope
func (c *ScopeController) GetScope(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)
	state := c.scopeSvc.State(ctx.Request.Context(), wid, provider)
	ctx.JSON(200, gin.H{"code": 200, "data": state})
}

// SelectAccount 切换账号
// PUT /api/v1/console/:wid/:provider/scope/account
func (c *ScopeController) SelectAccount(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)

	var req struct {
		AuthID string `json:"auth_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"code": 400, "message": "请求体格式错误"})
		return
	}

	state, err := c.scopeSvc.SelectAccount(ctx.Request.Context(), wid, provider, req.AuthID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	c.mirrorSlice(wid, state)
	ctx.JSON(200, gin.H{"code": 200, "data": state})
}

// SelectStore 切换店铺 (触发自动绑定)
// PUT /api/v1/console/:wid/:provider/scope/store
func (c *ScopeController) SelectStore(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)

	var req struct {
		StoreID      string `json:"store_id"`
		AdvertiserID string `json:"advertiser_id"`
		BCID         string `json:"bc_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.StoreID == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "store_id 不能为空"})
		return
	}

	state, err := c.scopeSvc.SelectStore(ctx.Request.Context(), wid, provider, service.StoreSelection{
		StoreID:             req.StoreID,
		PrefillAdvertiserID: req.AdvertiserID,
		PrefillBCID:         req.BCID,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	c.mirrorSlice(wid, state)
	ctx.JSON(200, gin.H{"code": 200, "data": state})
}

// SelectDimension 手动选择 BC 或广告主
// PUT /api/v1/console/:wid/:provider/scope/dimension
func (c *ScopeController) SelectDimension(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)

	var req struct {
		BCID         string `json:"bc_id"`
		AdvertiserID string `json:"advertiser_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"code": 400, "message": "请求体格式错误"})
		return
	}

	var state model.ScopeState
	switch {
	case req.BCID != "":
		state = c.scopeSvc.SelectBusinessCenter(ctx.Request.Context(), wid, provider, req.BCID)
	case req.AdvertiserID != "":
		state = c.scopeSvc.SelectAdvertiser(ctx.Request.Context(), wid, provider, req.AdvertiserID)
	default:
		ctx.JSON(400, gin.H{"code": 400, "message": "bc_id 与 advertiser_id 至少提供一个"})
		return
	}
	c.mirrorSlice(wid, state)
	ctx.JSON(200, gin.H{"code": 200, "data": state})
}

// ClearScope 清空作用域
// DELETE /api/v1/console/:wid/:provider/scope
func (c *ScopeController) ClearScope(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)
	if err := c.scopeSvc.ClearScope(ctx.Request.Context(), wid, provider); err != nil {
		respondError(ctx, err)
		return
	}
	c.mirrorSlice(wid, c.scopeSvc.State(ctx.Request.Context(), wid, provider))
	ctx.JSON(200, gin.H{"code": 200, "message": "作用域已清空"})
}

// GetOptions 三级下拉选项 (按当前选择过滤)
// GET /api/v1/console/:wid/:provider/scope/options?refresh=1
func (c *ScopeController) GetOptions(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)
	state := c.scopeSvc.State(ctx.Request.Context(), wid, provider)
	if state.AccountAuthID == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "未选择账号"})
		return
	}

	k := service.ScopeKey{WorkspaceID: wid, Provider: provider, AuthID: state.AccountAuthID}
	refresh := ctx.Query("refresh") == "1"
	payload, err := c.querySvc.Options(ctx.Request.Context(), k, refresh)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, gin.H{
		"code": 200,
		"data": gin.H{
			"business_centers": normalize.BuildBusinessCenterOptions(payload, state.BCID),
			"advertisers":      normalize.BuildAdvertiserOptions(payload, state.BCID, state.AdvertiserID),
			"stores":           normalize.BuildStoreOptions(payload, state.AdvertiserID, state.StoreID),
		},
	})
}

// ==================== 维度目录 ====================

// ListBusinessCenters 商务中心目录 (独立端点，选项聚合之外的补充查询)
// GET /api/v1/console/:wid/:provider/business-centers
func (c *ScopeController) ListBusinessCenters(ctx *gin.Context) {
	k, ok := c.accountKey(ctx)
	if !ok {
		return
	}
	items, err := c.querySvc.BusinessCenters(ctx.Request.Context(), k)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": items})
}

// ListAdvertisers 广告主目录
// GET /api/v1/console/:wid/:provider/advertisers
func (c *ScopeController) ListAdvertisers(ctx *gin.Context) {
	k, ok := c.accountKey(ctx)
	if !ok {
		return
	}
	items, err := c.querySvc.Advertisers(ctx.Request.Context(), k)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": items})
}

// ListStores 店铺目录，带 advertiser_id 时走广告主维度端点
// GET /api/v1/console/:wid/:provider/stores?advertiser_id=ADV1
func (c *ScopeController) ListStores(ctx *gin.Context) {
	k, ok := c.accountKey(ctx)
	if !ok {
		return
	}
	items, err := c.querySvc.Stores(ctx.Request.Context(), k, ctx.Query("advertiser_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": items})
}

// ==================== 预设 ====================

// ListPresets 预设列表
// GET /api/v1/console/:wid/presets
func (c *ScopeController) ListPresets(ctx *gin.Context) {
	presets, err := c.scopeSvc.ListPresets(ctx.Request.Context(), ctx.Param("wid"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": presets})
}

// SavePreset 保存当前作用域为预设
// POST /api/v1/console/:wid/:provider/presets
func (c *ScopeController) SavePreset(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)

	var req struct {
		Label string `json:"label"`
	}
	_ = ctx.ShouldBindJSON(&req) // label 可选

	preset, err := c.scopeSvc.SavePreset(ctx.Request.Context(), wid, provider, req.Label)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": preset})
}

// ApplyPreset 套用预设
// POST /api/v1/console/:wid/:provider/presets/:presetId/apply
func (c *ScopeController) ApplyPreset(ctx *gin.Context) {
	wid, provider := scopeParams(ctx)
	state, err := c.scopeSvc.ApplyPreset(ctx.Request.Context(), wid, provider, ctx.Param("presetId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	c.mirrorSlice(wid, state)
	ctx.JSON(200, gin.H{"code": 200, "data": state})
}

// DeletePreset 删除预设
// DELETE /api/v1/console/:wid/presets/:presetId
func (c *ScopeController) DeletePreset(ctx *gin.Context) {
	if err := c.scopeSvc.DeletePreset(ctx.Request.Context(), ctx.Param("wid"), ctx.Param("presetId")); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "预设已删除"})
}
