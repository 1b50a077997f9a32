package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/internal/service"
	"gmvmax_dev_v1_202602/pkg/net"
)

// newSeriesRouter 系列控制器 + 真实服务栈
// 作用域从快照恢复: 账号 auth-1 / 店铺 S1 已选
func newSeriesRouter(t *testing.T, upstream string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ScopeSnapshot{}, &model.ScopePresetRecord{},
		&model.SliceSnapshot{}, &model.ProductCacheRecord{}, &model.ActionLogRecord{}))

	scopeRepo := repository.NewScopeRepository(db)
	require.NoError(t, scopeRepo.Save(context.Background(), &model.ScopeSnapshot{
		WorkspaceID:      "w1",
		Provider:         "tiktok",
		AccountAuthID:    "auth-1",
		BusinessCenterID: "BC1",
		AdvertiserID:     "ADV1",
		StoreID:          "S1",
	}))

	d := net.NewDispatcher(upstream, net.NewMetaStore())
	querySvc := service.NewQueryService(d)
	scopeSvc := service.NewScopeService(querySvc, d, scopeRepo, repository.NewPresetRepository(db))
	seriesSvc := service.NewSeriesService(d, querySvc, repository.NewActionLogRepository(db))
	sessionSvc := service.NewSessionService(repository.NewSliceRepository(db), repository.NewProductCacheRepository(db))
	ctl := NewSeriesController(seriesSvc, scopeSvc, querySvc, sessionSvc)

	router := gin.New()
	g := router.Group("/api/v1/console/:wid/:provider")
	g.GET("/products", ctl.Products)
	return router, db
}

func TestProducts_PersistsStoreSnapshot(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/products") {
			_, _ = w.Write([]byte(`{"products":[{"product_id":"P1","title":"春装"}]}`))
			return
		}
		// 系列列表 501 不重试，占用叠加跳过
		w.WriteHeader(http.StatusNotImplemented)
		_, _ = w.Write([]byte(`{"message":"unused"}`))
	}))
	defer upstream.Close()

	router, db := newSeriesRouter(t, upstream.URL)

	w := doJSON(router, http.MethodGet, "/api/v1/console/w1/tiktok/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "P1", gjson.Get(w.Body.String(), "data.0.product_id").String())

	// 店铺维度的商品快照防抖落库，供会话回灌
	cacheRepo := repository.NewProductCacheRepository(db)
	require.Eventually(t, func() bool {
		payload, err := cacheRepo.Load(context.Background(), "w1", "S1|products")
		return err == nil && strings.Contains(string(payload), `"product_id":"P1"`)
	}, 3*time.Second, 25*time.Millisecond)

	// 切片记下缓存键
	sliceRepo := repository.NewSliceRepository(db)
	require.Eventually(t, func() bool {
		payload, err := sliceRepo.Load(context.Background(), "w1")
		return err == nil && strings.Contains(string(payload), `"S1|products"`)
	}, 3*time.Second, 25*time.Millisecond)
}
