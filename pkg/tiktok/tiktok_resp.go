package tiktok

import "encoding/json"

// ==========================================
// DTO: 接收上游 API 返回的响应
// 字段存在多套别名 (snake/camel/legacy) 的资源
// 用 json.RawMessage 原样保留，由 normalize 层统一收敛
// ==========================================

// TaskResp 同步任务入队响应
// POST .../gmvmax/sync
type TaskResp struct {
	TaskID string `json:"task_id"`
}

// 同步任务状态机
const (
	TaskStatePending       = "PENDING"
	TaskStateRunning       = "RUNNING"
	TaskStateSuccess       = "SUCCESS"
	TaskStateFailure       = "FAILURE"
	TaskStateRevoked       = "REVOKED"
	TaskStateTimeoutClient = "TIMEOUT_CLIENT" // 客户端侧超时，服务端可能仍在跑
)

// SyncStatusResp 同步任务状态响应
// GET .../gmvmax/sync-status/{taskId}
type SyncStatusResp struct {
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Terminal 是否已到终态
func (r SyncStatusResp) Terminal() bool {
	switch r.State {
	case TaskStateSuccess, TaskStateFailure, TaskStateRevoked:
		return true
	}
	return false
}

// UIMessage 面向用户的失败文案
func (r SyncStatusResp) UIMessage() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}

// HealthResp 健康检查响应
// GET /healthz
type HealthResp struct {
	Status string `json:"status"`
}

// RawPayload 别名未收敛的原始响应体
// providers/accounts/options/campaigns/products/strategy 等都走这条通道
type RawPayload = json.RawMessage
