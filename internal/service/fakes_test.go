package service

import (
	"context"
	"sync"
	"time"

	"gmvmax_dev_v1_202602/internal/model"
)

// ==================== 仓储桩 ====================
// 服务层测试只关心编排语义，仓储用内存桩代替 sqlite

type fakeScopeRepo struct {
	mu    sync.Mutex
	snaps map[string]*model.ScopeSnapshot // wid -> snap
}

func newFakeScopeRepo() *fakeScopeRepo {
	return &fakeScopeRepo{snaps: make(map[string]*model.ScopeSnapshot)}
}

func (r *fakeScopeRepo) Save(_ context.Context, snap *model.ScopeSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *snap
	r.snaps[snap.WorkspaceID] = &cp
	return nil
}

func (r *fakeScopeRepo) Load(_ context.Context, workspaceID, provider string) (*model.ScopeSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snaps[workspaceID]
	if !ok || snap.Provider != provider {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func (r *fakeScopeRepo) Clear(_ context.Context, workspaceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snaps, workspaceID)
	return nil
}

func (r *fakeScopeRepo) ListAll(_ context.Context) ([]model.ScopeSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ScopeSnapshot
	for _, snap := range r.snaps {
		if snap.AccountAuthID != "" {
			out = append(out, *snap)
		}
	}
	return out, nil
}

type fakePresetRepo struct {
	mu      sync.Mutex
	presets []model.ScopePresetRecord
}

func (r *fakePresetRepo) Save(_ context.Context, preset *model.ScopePresetRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if preset.PresetID == "" {
		preset.PresetID = model.PresetID(preset.AccountAuthID, preset.BCID, preset.AdvertiserID, preset.StoreID)
	}
	r.presets = append(r.presets, *preset)
	return nil
}

func (r *fakePresetRepo) List(_ context.Context, workspaceID string) ([]model.ScopePresetRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ScopePresetRecord
	for _, p := range r.presets {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePresetRepo) Delete(_ context.Context, workspaceID, presetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.presets[:0]
	for _, p := range r.presets {
		if !(p.WorkspaceID == workspaceID && p.PresetID == presetID) {
			out = append(out, p)
		}
	}
	r.presets = out
	return nil
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []model.SyncRunRecord
}

func (r *fakeRunRepo) Create(_ context.Context, rec *model.SyncRunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *rec)
	return nil
}

func (r *fakeRunRepo) UpdateState(_ context.Context, taskID, state, message string, attempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.runs {
		if r.runs[i].TaskID == taskID {
			r.runs[i].State = state
			r.runs[i].Message = message
			r.runs[i].Attempts = attempts
		}
	}
	return nil
}

func (r *fakeRunRepo) GetByTaskID(_ context.Context, taskID string) (*model.SyncRunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.runs {
		if r.runs[i].TaskID == taskID {
			cp := r.runs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRunRepo) ListRecent(_ context.Context, workspaceID string, limit int) ([]model.SyncRunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SyncRunRecord
	for _, rec := range r.runs {
		if rec.WorkspaceID == workspaceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRunRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	records []model.ActionLogRecord
}

func (r *fakeAuditRepo) Create(_ context.Context, rec *model.ActionLogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeAuditRepo) ListByCampaign(_ context.Context, workspaceID, campaignID string, _ int) ([]model.ActionLogRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ActionLogRecord
	for _, rec := range r.records {
		if rec.WorkspaceID == workspaceID && rec.CampaignID == campaignID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
