package repository

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==================== 接口定义 ====================

// ScopeRepository 作用域快照仓储
// 对应旧版前端 localStorage 的 gmv.max.overview.scope.v1
type ScopeRepository interface {
	// Save 保存某 workspace 的作用域快照 (upsert)
	Save(ctx context.Context, snap *model.ScopeSnapshot) error
	// Load 读取快照；provider 不一致视为未命中 (切 provider 即丢弃旧四元组)
	Load(ctx context.Context, workspaceID, provider string) (*model.ScopeSnapshot, error)
	// Clear 清除某 workspace 的快照
	Clear(ctx context.Context, workspaceID string) error
	// ListAll 全部快照，自动同步任务用来枚举已配置的账号
	ListAll(ctx context.Context) ([]model.ScopeSnapshot, error)
}

// PresetRepository 作用域预设仓储
type PresetRepository interface {
	// Save 保存预设；超出上限时报错
	Save(ctx context.Context, preset *model.ScopePresetRecord) error
	// List 列出某 workspace 的全部预设 (去重、丢弃畸形条目)
	List(ctx context.Context, workspaceID string) ([]model.ScopePresetRecord, error)
	Delete(ctx context.Context, workspaceID, presetID string) error
}

// ==================== 仓储实现 ====================

type scopeRepo struct {
	db *gorm.DB
}

// NewScopeRepository 创建作用域快照仓储
func NewScopeRepository(db *gorm.DB) ScopeRepository {
	return &scopeRepo{db: db}
}

func (r *scopeRepo) Save(ctx context.Context, snap *model.ScopeSnapshot) error {
	snap.StorageKey = model.KeyScopeSnapshot
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_auth_id", "business_center_id", "advertiser_id", "store_id", "updated_at",
		}),
	}).Create(snap).Error
}

func (r *scopeRepo) Load(ctx context.Context, workspaceID, provider string) (*model.ScopeSnapshot, error) {
	var snap model.ScopeSnapshot
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND storage_key = ?", workspaceID, model.KeyScopeSnapshot).
		Order("updated_at DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// provider 不一致按未命中处理，不迁移旧四元组
	if snap.Provider != provider {
		return nil, nil
	}
	return &snap, nil
}

func (r *scopeRepo) Clear(ctx context.Context, workspaceID string) error {
	return r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Delete(&model.ScopeSnapshot{}).Error
}

func (r *scopeRepo) ListAll(ctx context.Context) ([]model.ScopeSnapshot, error) {
	var snaps []model.ScopeSnapshot
	err := r.db.WithContext(ctx).
		Where("account_auth_id <> ''").
		Find(&snaps).Error
	return snaps, err
}

// ==================== 预设实现 ====================

type presetRepo struct {
	db *gorm.DB
}

// NewPresetRepository 创建预设仓储
func NewPresetRepository(db *gorm.DB) PresetRepository {
	return &presetRepo{db: db}
}

func (r *presetRepo) Save(ctx context.Context, preset *model.ScopePresetRecord) error {
	if preset.PresetID == "" {
		preset.PresetID = model.PresetID(preset.AccountAuthID, preset.BCID, preset.AdvertiserID, preset.StoreID)
	}
	if preset.Label == "" {
		preset.Label = model.PresetLabel(preset.AccountAuthID, preset.BCID, preset.AdvertiserID, preset.StoreID)
	}

	// 覆盖同 id 预设不占新名额
	var existing int64
	if err := r.db.WithContext(ctx).Model(&model.ScopePresetRecord{}).
		Where("workspace_id = ? AND preset_id <> ?", preset.WorkspaceID, preset.PresetID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing >= model.MaxScopePresets {
		return errors.New("预设数量已达上限")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "preset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "updated_at"}),
	}).Create(preset).Error
}

func (r *presetRepo) List(ctx context.Context, workspaceID string) ([]model.ScopePresetRecord, error) {
	var records []model.ScopePresetRecord
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("updated_at DESC").
		Limit(model.MaxScopePresets * 2). // 留余量，去重后再截断
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	// 去重 + 丢弃畸形条目 (缺账号或店铺的预设没有意义)
	seen := make(map[string]struct{})
	out := make([]model.ScopePresetRecord, 0, len(records))
	for _, rec := range records {
		if rec.AccountAuthID == "" || rec.StoreID == "" {
			log.Printf("[Preset] 丢弃畸形预设 workspace=%s preset=%s", workspaceID, rec.PresetID)
			continue
		}
		if _, ok := seen[rec.PresetID]; ok {
			continue
		}
		seen[rec.PresetID] = struct{}{}
		out = append(out, rec)
		if len(out) >= model.MaxScopePresets {
			break
		}
	}
	return out, nil
}

func (r *presetRepo) Delete(ctx context.Context, workspaceID, presetID string) error {
	return r.db.WithContext(ctx).
		Where("workspace_id = ? AND preset_id = ?", workspaceID, presetID).
		Delete(&model.ScopePresetRecord{}).Error
}
