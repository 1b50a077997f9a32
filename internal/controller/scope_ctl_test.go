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

	"gmvmax_dev_v1_202602/internal/middleware"
	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/internal/service"
	"gmvmax_dev_v1_202602/pkg/net"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newScopeRouter 控制器 + 真实服务栈，上游指向 upstream
func newScopeRouter(t *testing.T, upstream string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ScopeSnapshot{}, &model.ScopePresetRecord{},
		&model.SliceSnapshot{}, &model.ProductCacheRecord{}))

	d := net.NewDispatcher(upstream, net.NewMetaStore())
	querySvc := service.NewQueryService(d)
	scopeSvc := service.NewScopeService(querySvc, d, repository.NewScopeRepository(db), repository.NewPresetRepository(db))
	sessionSvc := service.NewSessionService(repository.NewSliceRepository(db), repository.NewProductCacheRepository(db))
	ctl := NewScopeController(scopeSvc, querySvc, sessionSvc)

	router := gin.New()
	g := router.Group("/api/v1/console/:wid/:provider")
	g.GET("/scope", ctl.GetScope)
	g.PUT("/scope/account", ctl.SelectAccount)
	g.PUT("/scope/store", ctl.SelectStore)
	g.PUT("/scope/dimension", ctl.SelectDimension)
	g.DELETE("/scope", ctl.ClearScope)
	g.POST("/presets", ctl.SavePreset)
	g.GET("/accounts", ctl.ListAccounts)
	g.GET("/business-centers", ctl.ListBusinessCenters)
	g.GET("/advertisers", ctl.ListAdvertisers)
	g.GET("/stores", ctl.ListStores)
	return router, db
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

func TestGetScope_DefaultUnselected(t *testing.T) {
	router, _ := newScopeRouter(t, "http://127.0.0.1:0")

	w := doJSON(router, http.MethodGet, "/api/v1/console/w1/tiktok/scope", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UNSELECTED", gjson.Get(w.Body.String(), "data.phase").String())
}

func TestSelectAccount_BadBody(t *testing.T) {
	router, _ := newScopeRouter(t, "http://127.0.0.1:0")

	w := doJSON(router, http.MethodPut, "/api/v1/console/w1/tiktok/scope/account", `{"auth_id":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "请求体格式错误")
}

func TestSelectStore_RequiresStoreID(t *testing.T) {
	router, _ := newScopeRouter(t, "http://127.0.0.1:0")

	w := doJSON(router, http.MethodPut, "/api/v1/console/w1/tiktok/scope/store", `{"store_id":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "store_id 不能为空")
}

func TestSelectDimension_RequiresOneOf(t *testing.T) {
	router, _ := newScopeRouter(t, "http://127.0.0.1:0")

	w := doJSON(router, http.MethodPut, "/api/v1/console/w1/tiktok/scope/dimension", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "至少提供一个")
}

func TestSavePreset_ScopeNotReady(t *testing.T) {
	router, _ := newScopeRouter(t, "http://127.0.0.1:0")

	w := doJSON(router, http.MethodPost, "/api/v1/console/w1/tiktok/presets", `{"label":"x"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "作用域未就绪")
}

func TestRespondError_APIErrorPassthrough(t *testing.T) {
	// 上游 501 不重试，状态码与 uiMessage 原样透出
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req-passthrough")
		w.WriteHeader(http.StatusNotImplemented)
		_, _ = w.Write([]byte(`{"message":"功能未开放"}`))
	}))
	defer upstream.Close()

	router, _ := newScopeRouter(t, upstream.URL)
	w := doJSON(router, http.MethodGet, "/api/v1/console/w1/tiktok/accounts", "")

	require.Equal(t, http.StatusNotImplemented, w.Code)
	body := w.Body.String()
	assert.Equal(t, "功能未开放", gjson.Get(body, "message").String())
	assert.Equal(t, "req-passthrough", gjson.Get(body, "request_id").String())
}

func TestClearScope(t *testing.T) {
	router, _ := newScopeRouter(t, "http://127.0.0.1:0")

	w := doJSON(router, http.MethodDelete, "/api/v1/console/w1/tiktok/scope", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "作用域已清空")
}

func TestClearScope_MirrorsSlice(t *testing.T) {
	router, db := newScopeRouter(t, "http://127.0.0.1:0")

	w := doJSON(router, http.MethodDelete, "/api/v1/console/w1/tiktok/scope", "")
	require.Equal(t, http.StatusOK, w.Code)

	// 镜像走防抖，等落库
	sliceRepo := repository.NewSliceRepository(db)
	require.Eventually(t, func() bool {
		payload, err := sliceRepo.Load(context.Background(), "w1")
		return err == nil && strings.Contains(string(payload), `"workspace_id":"w1"`)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRespondError_SyncCooldown(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)

	respondError(ctx, &middleware.SyncCooldownError{
		SyncType:   middleware.SyncTypeCampaigns,
		RetryAfter: 59 * time.Second,
	})

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "59", w.Header().Get("Retry-After"))
	body := w.Body.String()
	assert.Contains(t, body, "同步冷却中")
	assert.Equal(t, "campaigns", gjson.Get(body, "data.sync_type").String())
	assert.Equal(t, int64(59), gjson.Get(body, "data.retry_after").Int())
}

// ==================== 维度目录 ====================

func TestListStores_RequiresAccount(t *testing.T) {
	router, _ := newScopeRouter(t, "http://127.0.0.1:0")

	w := doJSON(router, http.MethodGet, "/api/v1/console/w1/tiktok/stores", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "未选择账号")
}
