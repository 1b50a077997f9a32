package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"gmvmax_dev_v1_202602/internal/middleware"
	"gmvmax_dev_v1_202602/internal/service"
	"gmvmax_dev_v1_202602/internal/task"
)

// ==================== 同步控制器 ====================

// SyncController 同步任务触发与状态查询
type SyncController struct {
	syncSvc     *service.SyncService
	scopeSvc    *service.ScopeService
	taskManager *task.TaskManager
}

// NewSyncController 创建同步控制器
func NewSyncController(syncSvc *service.SyncService, scopeSvc *service.ScopeService, taskManager *task.TaskManager) *SyncController {
	return &SyncController{syncSvc: syncSvc, scopeSvc: scopeSvc, taskManager: taskManager}
}

// resolveKey 账号必须已选
func (c *SyncController) resolveKey(ctx *gin.Context) (service.ScopeKey, string, bool) {
	wid, provider := scopeParams(ctx)
	state := c.scopeSvc.State(ctx.Request.Context(), wid, provider)
	if state.AccountAuthID == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "未选择账号"})
		return service.ScopeKey{}, "", false
	}
	return service.ScopeKey{WorkspaceID: wid, Provider: provider, AuthID: state.AccountAuthID}, state.StoreID, true
}

// ==================== Handler 实现 ====================

// TriggerCampaignSync 触发系列同步并轮询到终态
// POST /api/v1/console/:wid/:provider/sync/campaigns
func (c *SyncController) TriggerCampaignSync(ctx *gin.Context) {
	k, storeID, ok := c.resolveKey(ctx)
	if !ok {
		return
	}
	if storeID == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "未选择店铺"})
		return
	}

	result, err := c.syncSvc.SyncCampaigns(ctx.Request.Context(), k, storeID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if result.Failed() {
		ctx.JSON(200, gin.H{"code": 200, "message": result.Message, "data": result})
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "同步完成", "data": result})
}

// SyncStatus 查询任务状态
// GET /api/v1/console/:wid/:provider/sync/status/:taskId
func (c *SyncController) SyncStatus(ctx *gin.Context) {
	k, _, ok := c.resolveKey(ctx)
	if !ok {
		return
	}
	status, err := c.syncSvc.TaskStatus(ctx.Request.Context(), k, ctx.Param("taskId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": status})
}

// TriggerMetaSync 触发元数据同步
// POST /api/v1/console/:wid/:provider/sync/meta
func (c *SyncController) TriggerMetaSync(ctx *gin.Context) {
	k, _, ok := c.resolveKey(ctx)
	if !ok {
		return
	}
	enq, err := c.syncSvc.SyncMeta(ctx.Request.Context(), k)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "元数据同步已入队", "data": enq})
}

// TriggerProductSync 触发商品同步
// POST /api/v1/console/:wid/:provider/sync/products
func (c *SyncController) TriggerProductSync(ctx *gin.Context) {
	k, _, ok := c.resolveKey(ctx)
	if !ok {
		return
	}
	enq, err := c.syncSvc.SyncProducts(ctx.Request.Context(), k)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "商品同步已入队", "data": enq})
}

// TriggerMetricsSync 触发单系列指标回补
// POST /api/v1/console/:wid/:provider/series/:campaignId/metrics/sync
func (c *SyncController) TriggerMetricsSync(ctx *gin.Context) {
	k, _, ok := c.resolveKey(ctx)
	if !ok {
		return
	}
	enq, err := c.syncSvc.SyncMetrics(ctx.Request.Context(), k, ctx.Param("campaignId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "指标回补已入队", "data": enq})
}

// RecentRuns 最近的同步运行记录
// GET /api/v1/console/:wid/sync/runs?limit=20
func (c *SyncController) RecentRuns(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	runs, err := c.syncSvc.ListRecentRuns(ctx.Request.Context(), ctx.Param("wid"), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "data": runs})
}

// TriggerAutoSync 手动触发一轮自动同步巡检 (全局冷却)
// POST /api/v1/console/sync/auto
func (c *SyncController) TriggerAutoSync(ctx *gin.Context) {
	result := middleware.GetLimiter().Check(
		middleware.GlobalSyncKey(middleware.SyncTypeAutoInspect),
		middleware.GetInterval(middleware.SyncTypeAutoInspect))
	if !result.Allowed {
		respondError(ctx, &middleware.SyncCooldownError{
			SyncType:   middleware.SyncTypeAutoInspect,
			RetryAfter: result.RetryAfter,
		})
		return
	}

	if err := c.taskManager.TriggerAutoSync(ctx.Request.Context()); err != nil {
		ctx.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}
	ctx.JSON(200, gin.H{"code": 200, "message": "自动同步巡检已执行"})
}

// ResetCooldown 清除当前账号某类同步的冷却 (管理入口)
// DELETE /api/v1/console/:wid/:provider/sync/cooldown?sync_type=campaigns
func (c *SyncController) ResetCooldown(ctx *gin.Context) {
	k, _, ok := c.resolveKey(ctx)
	if !ok {
		return
	}
	syncType := middleware.SyncType(ctx.Query("sync_type"))
	if syncType == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "sync_type 不能为空"})
		return
	}
	c.syncSvc.ResetCooldown(k.AuthID, syncType)
	ctx.JSON(200, gin.H{"code": 200, "message": "同步冷却已重置"})
}
