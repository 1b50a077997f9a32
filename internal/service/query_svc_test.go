package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmvmax_dev_v1_202602/pkg/net"
)

// newQueryFixture 上游桩 + 查询服务，handler 为空时一律 404
func newQueryFixture(t *testing.T, handler http.HandlerFunc) (*QueryService, func()) {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }
	}
	srv := httptest.NewServer(handler)
	d := net.NewDispatcher(srv.URL, net.NewMetaStore())
	return NewQueryService(d), srv.Close
}

// ==================== 维度目录 ====================

func TestBusinessCenters_FetchAndCache(t *testing.T) {
	var hits int32
	query, done := newQueryFixture(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"business_centers":[{"bc_id":"BC1","name":"主中心"},{"bc_id":"BC2"}]}`))
	})
	defer done()
	k := testScopeKey()

	bcs, err := query.BusinessCenters(context.Background(), k)
	require.NoError(t, err)
	require.Len(t, bcs, 2)
	assert.Equal(t, "BC1", bcs[0].BCID)
	assert.Equal(t, "主中心", bcs[0].Name)
	// 没有名称时回退到 id
	assert.Equal(t, "BC2", bcs[1].Name)

	// 第二次读走缓存，不打上游
	_, err = query.BusinessCenters(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAdvertisers_StatusUppercased(t *testing.T) {
	query, done := newQueryFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"advertisers":[
			{"advertiser_id":"ADV1","bc_id":"BC1","name":"旗舰","authorization_status":"effective"}
		]}`))
	})
	defer done()

	advs, err := query.Advertisers(context.Background(), testScopeKey())
	require.NoError(t, err)
	require.Len(t, advs, 1)
	assert.Equal(t, "ADV1", advs[0].AdvertiserID)
	assert.Equal(t, "EFFECTIVE", advs[0].AuthorizationStatus)
}

func TestStores_PathDependsOnAdvertiser(t *testing.T) {
	var paths []string
	query, done := newQueryFixture(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stores":[{"store_id":"S1"}]}`))
	})
	defer done()
	k := testScopeKey()

	// 账号维度
	stores, err := query.Stores(context.Background(), k, "")
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "S1", stores[0].StoreID)

	// 广告主维度走子资源，缓存键独立，两次都打上游
	_, err = query.Stores(context.Background(), k, "ADV1")
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.True(t, strings.HasSuffix(paths[0], "/stores"))
	assert.NotContains(t, paths[0], "/advertisers/")
	assert.True(t, strings.HasSuffix(paths[1], "/advertisers/ADV1/stores"))
}

// ==================== 失效 ====================

func TestInvalidateOptions_CoversDimensionCatalogs(t *testing.T) {
	query := NewQueryService(nil)
	k := testScopeKey()

	seeded := []string{
		query.key("options", k),
		query.key("business-centers", k),
		query.key("advertisers", k),
		query.key("stores", k, "ADV1"),
	}
	for _, key := range seeded {
		query.Cache().Set(key, "stale")
	}

	query.InvalidateOptions(k)

	for _, key := range seeded {
		_, ok := query.Cache().Peek(key)
		assert.False(t, ok, "缓存键 %s 应已失效", key)
	}
}
