package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmvmax_dev_v1_202602/internal/model"
)

// setupDB 每个测试一个独立的内存库
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.ScopeSnapshot{}, &model.ScopePresetRecord{},
		&model.ProductCacheRecord{}, &model.SliceSnapshot{},
		&model.ActionLogRecord{}, &model.SyncRunRecord{},
	))
	return db
}

// ==================== 作用域快照 ====================

func TestScopeRepo_SaveAndLoad(t *testing.T) {
	repo := NewScopeRepository(setupDB(t))
	ctx := context.Background()

	snap := &model.ScopeSnapshot{
		WorkspaceID:      "w1",
		Provider:         "tiktok",
		AccountAuthID:    "auth-1",
		BusinessCenterID: "BC1",
		AdvertiserID:     "ADV1",
		StoreID:          "S1",
	}
	require.NoError(t, repo.Save(ctx, snap))

	loaded, err := repo.Load(ctx, "w1", "tiktok")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, model.KeyScopeSnapshot, loaded.StorageKey)
	assert.Equal(t, "auth-1", loaded.AccountAuthID)
	assert.Equal(t, "S1", loaded.StoreID)
}

func TestScopeRepo_ProviderMismatchIsMiss(t *testing.T) {
	repo := NewScopeRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &model.ScopeSnapshot{
		WorkspaceID: "w1", Provider: "tiktok", AccountAuthID: "auth-1",
	}))

	// 切 provider 后旧四元组按未命中处理，不迁移
	loaded, err := repo.Load(ctx, "w1", "other-provider")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestScopeRepo_Clear(t *testing.T) {
	repo := NewScopeRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &model.ScopeSnapshot{WorkspaceID: "w1", Provider: "tiktok"}))
	require.NoError(t, repo.Clear(ctx, "w1"))

	loaded, err := repo.Load(ctx, "w1", "tiktok")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// ==================== 预设 ====================

func makePreset(ws, auth, store string) *model.ScopePresetRecord {
	return &model.ScopePresetRecord{
		WorkspaceID:   ws,
		AccountAuthID: auth,
		BCID:          "BC1",
		AdvertiserID:  "ADV1",
		StoreID:       store,
	}
}

func TestPresetRepo_DerivesIDAndLabel(t *testing.T) {
	repo := NewPresetRepository(setupDB(t))
	ctx := context.Background()

	p := makePreset("w1", "auth-1", "S1")
	require.NoError(t, repo.Save(ctx, p))

	assert.Equal(t, "auth-1__BC1__ADV1__S1", p.PresetID)
	assert.Equal(t, "auth-1 / BC1 / ADV1 / S1", p.Label)
}

func TestPresetRepo_Cap(t *testing.T) {
	repo := NewPresetRepository(setupDB(t))
	ctx := context.Background()

	for i := 0; i < model.MaxScopePresets; i++ {
		require.NoError(t, repo.Save(ctx, makePreset("w1", "auth-1", fmt.Sprintf("S%d", i))))
	}

	// 超出上限报错
	err := repo.Save(ctx, makePreset("w1", "auth-1", "S-overflow"))
	require.Error(t, err)

	// 覆盖已有预设不占新名额
	require.NoError(t, repo.Save(ctx, makePreset("w1", "auth-1", "S0")))
}

func TestPresetRepo_ListDropsMalformedAndDedupes(t *testing.T) {
	db := setupDB(t)
	repo := NewPresetRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, makePreset("w1", "auth-1", "S1")))

	// 直接插入畸形与重复条目，模拟历史脏数据
	db.Create(&model.ScopePresetRecord{WorkspaceID: "w1", PresetID: "broken-1", AccountAuthID: "", StoreID: "S2"})
	db.Create(&model.ScopePresetRecord{WorkspaceID: "w1", PresetID: "broken-2", AccountAuthID: "auth-1", StoreID: ""})
	db.Create(&model.ScopePresetRecord{WorkspaceID: "w1", PresetID: "auth-1__BC1__ADV1__S1", AccountAuthID: "auth-1", StoreID: "S1"})

	out, err := repo.List(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "auth-1__BC1__ADV1__S1", out[0].PresetID)
}

func TestPresetRepo_Delete(t *testing.T) {
	repo := NewPresetRepository(setupDB(t))
	ctx := context.Background()

	p := makePreset("w1", "auth-1", "S1")
	require.NoError(t, repo.Save(ctx, p))
	require.NoError(t, repo.Delete(ctx, "w1", p.PresetID))

	out, err := repo.List(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, out)
}

// ==================== 商品缓存与 slice ====================

func TestProductCacheRepo_SaveLoad(t *testing.T) {
	repo := NewProductCacheRepository(setupDB(t))
	ctx := context.Background()

	payload := []byte(`{"byKey":{"S1":["P1"]},"lists":{}}`)
	require.NoError(t, repo.Save(ctx, "w1", "S1|products", payload))

	got, err := repo.Load(ctx, "w1", "S1|products")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))
}

func TestProductCacheRepo_SkipsUnchangedWrite(t *testing.T) {
	db := setupDB(t)
	repo := NewProductCacheRepository(db)
	ctx := context.Background()

	payload := []byte(`{"byKey":{}}`)
	require.NoError(t, repo.Save(ctx, "w1", "k", payload))

	var before model.ProductCacheRecord
	require.NoError(t, db.Where("workspace_id = ?", "w1").First(&before).Error)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Save(ctx, "w1", "k", payload))

	var after model.ProductCacheRecord
	require.NoError(t, db.Where("workspace_id = ?", "w1").First(&after).Error)
	// 内容没变 -> 不产生新写入
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestProductCacheRepo_LoadAllAndClear(t *testing.T) {
	repo := NewProductCacheRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "w1", "k1", []byte(`{"a":1}`)))
	require.NoError(t, repo.Save(ctx, "w1", "k2", []byte(`{"b":2}`)))

	all, err := repo.LoadAll(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Clear(ctx, "w1"))
	all, err = repo.LoadAll(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSliceRepo_Upsert(t *testing.T) {
	repo := NewSliceRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "w1", []byte(`{"v":1}`)))
	require.NoError(t, repo.Save(ctx, "w1", []byte(`{"v":2}`)))

	got, err := repo.Load(ctx, "w1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestSliceRepo_LoadMissing(t *testing.T) {
	repo := NewSliceRepository(setupDB(t))

	got, err := repo.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// ==================== 审计与同步记录 ====================

func TestSyncRunRepo_Lifecycle(t *testing.T) {
	repo := NewSyncRunRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.SyncRunRecord{
		WorkspaceID: "w1", Provider: "tiktok", AccountAuthID: "auth-1",
		TaskID: "T1", State: "PENDING",
	}))
	require.NoError(t, repo.UpdateState(ctx, "T1", "SUCCESS", "", 5))

	rec, err := repo.GetByTaskID(ctx, "T1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "SUCCESS", rec.State)
	assert.Equal(t, 5, rec.Attempts)

	runs, err := repo.ListRecent(ctx, "w1", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestActionLogRepo_ListByCampaign(t *testing.T) {
	repo := NewActionLogRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.ActionLogRecord{
		WorkspaceID: "w1", CampaignID: "C1", Action: "PAUSE", Result: "ok",
	}))
	require.NoError(t, repo.Create(ctx, &model.ActionLogRecord{
		WorkspaceID: "w1", CampaignID: "C2", Action: "START", Result: "ok",
	}))

	out, err := repo.ListByCampaign(ctx, "w1", "C1", 0)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "PAUSE", out[0].Action)
}

func TestDeleteOlderThan(t *testing.T) {
	db := setupDB(t)
	logRepo := NewActionLogRepository(db)
	runRepo := NewSyncRunRepository(db)
	ctx := context.Background()

	old := &model.ActionLogRecord{WorkspaceID: "w1", CampaignID: "C1", Action: "PAUSE"}
	require.NoError(t, logRepo.Create(ctx, old))
	db.Model(old).UpdateColumn("created_at", time.Now().Add(-48*time.Hour))
	require.NoError(t, logRepo.Create(ctx, &model.ActionLogRecord{WorkspaceID: "w1", CampaignID: "C1", Action: "START"}))

	dropped, err := logRepo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), dropped)

	dropped, err = runRepo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), dropped)
}
