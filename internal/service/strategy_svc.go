package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"gmvmax_dev_v1_202602/internal/normalize"
	"gmvmax_dev_v1_202602/pkg/net"
	"gmvmax_dev_v1_202602/pkg/tiktok"
)

// ==================== 投放策略服务 ====================

// StrategyPreset 策略预设 (产品契约的一部分，数值不能改)
type StrategyPreset struct {
	Key                 string  `json:"key"`
	MinDailyBudgetCents int64   `json:"min_daily_budget_cents"`
	MaxDailyBudgetCents int64   `json:"max_daily_budget_cents"`
	TargetRoasRatio     float64 `json:"target_roas_ratio"`
}

// 三档预设: 预算上下限以分为单位
var strategyPresets = []StrategyPreset{
	{Key: "conservative", MinDailyBudgetCents: 5000, MaxDailyBudgetCents: 20000, TargetRoasRatio: 1.8},
	{Key: "balanced", MinDailyBudgetCents: 10000, MaxDailyBudgetCents: 50000, TargetRoasRatio: 1.4},
	{Key: "aggressive", MinDailyBudgetCents: 20000, MaxDailyBudgetCents: 100000, TargetRoasRatio: 1.1},
}

// StrategyService 策略文档的读取、diff 保存与预览
// 保存从不整体 PUT，只提交相对服务端原文的结构化补丁
type StrategyService struct {
	dispatcher net.Dispatcher
	query      *QueryService
}

// NewStrategyService 创建策略服务
func NewStrategyService(dispatcher net.Dispatcher, query *QueryService) *StrategyService {
	return &StrategyService{dispatcher: dispatcher, query: query}
}

// Presets 预设列表
func (s *StrategyService) Presets() []StrategyPreset {
	out := make([]StrategyPreset, len(strategyPresets))
	copy(out, strategyPresets)
	return out
}

// PresetByKey 按 key 取预设
func (s *StrategyService) PresetByKey(key string) (StrategyPreset, bool) {
	for _, p := range strategyPresets {
		if p.Key == key {
			return p, true
		}
	}
	return StrategyPreset{}, false
}

// Get 策略原文
func (s *StrategyService) Get(ctx context.Context, k ScopeKey, campaignID string) (map[string]interface{}, error) {
	return s.query.Strategy(ctx, k, campaignID)
}

// parseEditorText 编辑器文本按 JSON 对象解析
// 解析失败返回面向用户的错误，不透出底层 json 报错细节
func parseEditorText(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("策略内容不能为空")
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("策略内容不是合法的 JSON 对象")
	}
	return doc, nil
}

// Update 保存策略
// 编辑器文本 -> JSON -> 与服务端原文做结构化 diff -> PUT 补丁
// 没有变化时报错，避免空写
func (s *StrategyService) Update(ctx context.Context, k ScopeKey, campaignID, editorText string) (map[string]interface{}, error) {
	edited, err := parseEditorText(editorText)
	if err != nil {
		return nil, err
	}

	original, err := s.query.Strategy(ctx, k, campaignID)
	if err != nil {
		return nil, err
	}

	patch := normalize.BuildPatch(original, edited)
	if patch == nil {
		return nil, fmt.Errorf("策略没有变化")
	}

	if err := s.dispatcher.Put(ctx,
		tiktok.StrategyPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID), patch, nil); err != nil {
		return nil, err
	}

	// 策略与预览都失效，详情里可能带策略摘要
	s.query.InvalidateCampaign(k, campaignID)
	log.Printf("[Strategy] 策略已保存 campaign=%s patched_keys=%d", campaignID, len(patch))
	return patch, nil
}

// Preview 策略预览
// overrideText 非空时解析为 strategy_overrides 一并提交
func (s *StrategyService) Preview(ctx context.Context, k ScopeKey, campaignID, overrideText string) (json.RawMessage, error) {
	req := tiktok.StrategyPreviewReq{}
	if strings.TrimSpace(overrideText) != "" {
		overrides, err := parseEditorText(overrideText)
		if err != nil {
			return nil, err
		}
		req.StrategyOverrides = overrides
	}

	var raw json.RawMessage
	if err := s.dispatcher.Post(ctx,
		tiktok.StrategyPreviewPath(k.WorkspaceID, k.Provider, k.AuthID, campaignID), req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
