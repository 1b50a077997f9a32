package controller

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"gmvmax_dev_v1_202602/internal/middleware"
	"gmvmax_dev_v1_202602/internal/service"
)

// ==================== 会话控制器 ====================

// SessionController 会话身份探测与 token 签发
type SessionController struct {
	sessionSvc *service.SessionService
}

// NewSessionController 创建会话控制器
func NewSessionController(sessionSvc *service.SessionService) *SessionController {
	return &SessionController{sessionSvc: sessionSvc}
}

// ==================== Handler 实现 ====================

// Probe 会话探测: 有有效 token 则返回身份，否则只置 checked
// GET /api/v1/console/session (OptionalAuth)
func (c *SessionController) Probe(ctx *gin.Context) {
	claims := middleware.GetUserClaims(ctx)
	if claims == nil {
		c.sessionSvc.MarkChecked()
		ctx.JSON(200, gin.H{"code": 200, "data": gin.H{"checked": true, "identity": nil}})
		return
	}

	identity := service.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}
	c.sessionSvc.SetIdentity(identity)
	ctx.JSON(200, gin.H{"code": 200, "data": gin.H{"checked": true, "identity": identity}})
}

// IssueToken 控制台内部的 token 签发 (部署侧需要放在可信网络后面)
// POST /api/v1/console/session/token
func (c *SessionController) IssueToken(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Username == "" {
		ctx.JSON(400, gin.H{"code": 400, "message": "username 不能为空"})
		return
	}
	if req.Role == "" {
		req.Role = "operator"
	}

	access, refresh, err := middleware.GenerateTokenPair(1, req.Username, req.Role)
	if err != nil {
		ctx.JSON(500, gin.H{"code": 500, "message": "token 签发失败"})
		return
	}
	ctx.JSON(200, gin.H{
		"code": 200,
		"data": gin.H{"access_token": access, "refresh_token": refresh},
	})
}

// Logout 登出
// POST /api/v1/console/session/logout
func (c *SessionController) Logout(ctx *gin.Context) {
	c.sessionSvc.ClearIdentity()
	ctx.JSON(200, gin.H{"code": 200, "message": "已登出"})
}

// ==================== 会话切片 ====================

// Bootstrap 会话回灌: 上次落库的切片 + 商品缓存预热
// GET /api/v1/console/:wid/session/slice
func (c *SessionController) Bootstrap(ctx *gin.Context) {
	wid := ctx.Param("wid")
	slice := c.sessionSvc.Rehydrate(ctx.Request.Context(), wid)

	cached, err := c.sessionSvc.LoadProductCache(ctx.Request.Context(), wid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	products := make(map[string]json.RawMessage, len(cached))
	for key, payload := range cached {
		products[key] = json.RawMessage(payload)
	}

	ctx.JSON(200, gin.H{
		"code": 200,
		"data": gin.H{"slice": slice, "product_cache": products},
	})
}

// Unload workspace 卸载: 挂起的防抖写入立即落库
// DELETE /api/v1/console/:wid/session/slice
func (c *SessionController) Unload(ctx *gin.Context) {
	c.sessionSvc.Teardown(ctx.Param("wid"))
	ctx.JSON(200, gin.H{"code": 200, "message": "会话切片已落库"})
}
