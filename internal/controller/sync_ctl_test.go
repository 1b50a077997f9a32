package controller

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmvmax_dev_v1_202602/internal/middleware"
	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/internal/service"
	"gmvmax_dev_v1_202602/pkg/net"
)

// newSyncRouter 同步控制器，作用域从快照恢复 (账号 auth-1 已选)
func newSyncRouter(t *testing.T) (*gin.Engine, *service.SyncService) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ScopeSnapshot{}, &model.ScopePresetRecord{}, &model.SyncRunRecord{}))

	scopeRepo := repository.NewScopeRepository(db)
	require.NoError(t, scopeRepo.Save(context.Background(), &model.ScopeSnapshot{
		WorkspaceID: "w1", Provider: "tiktok", AccountAuthID: "auth-1", StoreID: "S1",
	}))

	d := net.NewDispatcher("http://127.0.0.1:0", net.NewMetaStore())
	querySvc := service.NewQueryService(d)
	scopeSvc := service.NewScopeService(querySvc, d, scopeRepo, repository.NewPresetRepository(db))
	syncSvc := service.NewSyncService(d, querySvc, repository.NewSyncRunRepository(db))
	ctl := NewSyncController(syncSvc, scopeSvc, nil)

	router := gin.New()
	g := router.Group("/api/v1/console/:wid/:provider")
	g.DELETE("/sync/cooldown", ctl.ResetCooldown)
	return router, syncSvc
}

func TestResetCooldown_RequiresSyncType(t *testing.T) {
	router, _ := newSyncRouter(t)

	w := doJSON(router, http.MethodDelete, "/api/v1/console/w1/tiktok/sync/cooldown", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sync_type 不能为空")
}

func TestResetCooldown_UnblocksAccount(t *testing.T) {
	router, syncSvc := newSyncRouter(t)

	// 预先打入冷却
	middleware.GetLimiter().MarkSyncExecuted("auth-1", middleware.SyncTypeCampaigns)
	t.Cleanup(func() { syncSvc.ResetCooldown("auth-1", middleware.SyncTypeCampaigns) })

	w := doJSON(router, http.MethodDelete, "/api/v1/console/w1/tiktok/sync/cooldown?sync_type=campaigns", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "同步冷却已重置")

	allowed, _ := middleware.GetLimiter().CheckSyncAllowed("auth-1", middleware.SyncTypeCampaigns)
	assert.True(t, allowed)
}
