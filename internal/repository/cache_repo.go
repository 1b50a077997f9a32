package repository

import (
	"bytes"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==================== 接口定义 ====================

// ProductCacheRepository 商品缓存仓储 (gmv_products_cache_v1)
type ProductCacheRepository interface {
	// Save 保存缓存；序列化内容没变化时跳过写入
	Save(ctx context.Context, workspaceID, cacheKey string, payload []byte) error
	Load(ctx context.Context, workspaceID, cacheKey string) ([]byte, error)
	// LoadAll 读取 workspace 下全部缓存，启动时预热商品列表
	LoadAll(ctx context.Context, workspaceID string) (map[string][]byte, error)
	Clear(ctx context.Context, workspaceID string) error
}

// SliceRepository GMV Max slice 快照仓储 (gmv.max.slice)
type SliceRepository interface {
	Save(ctx context.Context, workspaceID string, payload []byte) error
	Load(ctx context.Context, workspaceID string) ([]byte, error)
}

// ==================== 商品缓存实现 ====================

type productCacheRepo struct {
	db *gorm.DB
}

// NewProductCacheRepository 创建商品缓存仓储
func NewProductCacheRepository(db *gorm.DB) ProductCacheRepository {
	return &productCacheRepo{db: db}
}

func (r *productCacheRepo) Save(ctx context.Context, workspaceID, cacheKey string, payload []byte) error {
	// 内容没变就不写，配合外层防抖减少无效落库
	existing, err := r.Load(ctx, workspaceID, cacheKey)
	if err == nil && bytes.Equal(existing, payload) {
		return nil
	}

	rec := model.ProductCacheRecord{
		WorkspaceID: workspaceID,
		CacheKey:    cacheKey,
		Payload:     payload,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
}

func (r *productCacheRepo) Load(ctx context.Context, workspaceID, cacheKey string) ([]byte, error) {
	var rec model.ProductCacheRecord
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND cache_key = ?", workspaceID, cacheKey).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(rec.Payload), nil
}

func (r *productCacheRepo) LoadAll(ctx context.Context, workspaceID string) (map[string][]byte, error) {
	var records []model.ProductCacheRecord
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(records))
	for _, rec := range records {
		out[rec.CacheKey] = []byte(rec.Payload)
	}
	return out, nil
}

func (r *productCacheRepo) Clear(ctx context.Context, workspaceID string) error {
	return r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Delete(&model.ProductCacheRecord{}).Error
}

// ==================== Slice 快照实现 ====================

type sliceRepo struct {
	db *gorm.DB
}

// NewSliceRepository 创建 slice 快照仓储
func NewSliceRepository(db *gorm.DB) SliceRepository {
	return &sliceRepo{db: db}
}

func (r *sliceRepo) Save(ctx context.Context, workspaceID string, payload []byte) error {
	rec := model.SliceSnapshot{
		WorkspaceID: workspaceID,
		Payload:     payload,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
}

func (r *sliceRepo) Load(ctx context.Context, workspaceID string) ([]byte, error) {
	var rec model.SliceSnapshot
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(rec.Payload), nil
}
