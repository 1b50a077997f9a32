package controller

import (
	"github.com/gin-gonic/gin"

	"gmvmax_dev_v1_202602/internal/service"
	"gmvmax_dev_v1_202602/pkg/net"
)

// ==================== 元数据与健康控制器 ====================

// MetaController HTTP 元数据快照与健康门
type MetaController struct {
	meta      *net.MetaStore
	healthSvc *service.HealthService
}

// NewMetaController 创建元数据控制器
func NewMetaController(meta *net.MetaStore, healthSvc *service.HealthService) *MetaController {
	return &MetaController{meta: meta, healthSvc: healthSvc}
}

// ==================== Handler 实现 ====================

// Snapshot 最近一次上游响应的元数据 (限流三元组、request id 等)
// GET /api/v1/console/http-meta
func (c *MetaController) Snapshot(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"code": 200, "data": c.meta.Snapshot()})
}

// Clear 重置元数据
// DELETE /api/v1/console/http-meta
func (c *MetaController) Clear(ctx *gin.Context) {
	c.meta.Clear()
	ctx.JSON(200, gin.H{"code": 200, "message": "元数据已重置"})
}

// Health 健康门状态；不健康时触发一次即时探测
// GET /api/v1/console/health
func (c *MetaController) Health(ctx *gin.Context) {
	status := c.healthSvc.Status()
	if !status.Healthy {
		c.healthSvc.Probe(ctx.Request.Context())
		status = c.healthSvc.Status()
	}

	code := 200
	if !status.Healthy {
		code = 503
	}
	ctx.JSON(code, gin.H{"code": code, "data": status})
}
