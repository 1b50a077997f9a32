package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==================== 接口定义 ====================

// ActionLogRepository 本地操作审计仓储
type ActionLogRepository interface {
	Create(ctx context.Context, rec *model.ActionLogRecord) error
	ListByCampaign(ctx context.Context, workspaceID, campaignID string, limit int) ([]model.ActionLogRecord, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// SyncRunRepository 同步任务运行记录仓储
type SyncRunRepository interface {
	Create(ctx context.Context, rec *model.SyncRunRecord) error
	UpdateState(ctx context.Context, taskID, state, message string, attempts int) error
	GetByTaskID(ctx context.Context, taskID string) (*model.SyncRunRecord, error)
	ListRecent(ctx context.Context, workspaceID string, limit int) ([]model.SyncRunRecord, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// ==================== 实现 ====================

type actionLogRepo struct {
	db *gorm.DB
}

// NewActionLogRepository 创建操作审计仓储
func NewActionLogRepository(db *gorm.DB) ActionLogRepository {
	return &actionLogRepo{db: db}
}

func (r *actionLogRepo) Create(ctx context.Context, rec *model.ActionLogRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *actionLogRepo) ListByCampaign(ctx context.Context, workspaceID, campaignID string, limit int) ([]model.ActionLogRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []model.ActionLogRecord
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND campaign_id = ?", workspaceID, campaignID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *actionLogRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&model.ActionLogRecord{})
	return res.RowsAffected, res.Error
}

type syncRunRepo struct {
	db *gorm.DB
}

// NewSyncRunRepository 创建同步运行记录仓储
func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepo{db: db}
}

func (r *syncRunRepo) Create(ctx context.Context, rec *model.SyncRunRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *syncRunRepo) UpdateState(ctx context.Context, taskID, state, message string, attempts int) error {
	return r.db.WithContext(ctx).Model(&model.SyncRunRecord{}).
		Where("task_id = ?", taskID).
		Updates(map[string]interface{}{
			"state":    state,
			"message":  message,
			"attempts": attempts,
		}).Error
}

func (r *syncRunRepo) GetByTaskID(ctx context.Context, taskID string) (*model.SyncRunRecord, error) {
	var rec model.SyncRunRecord
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *syncRunRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&model.SyncRunRecord{})
	return res.RowsAffected, res.Error
}

func (r *syncRunRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]model.SyncRunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []model.SyncRunRecord
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
