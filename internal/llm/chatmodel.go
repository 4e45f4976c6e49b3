// Package llm 初始化对话模型与向量化模型。
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/wwwzy/RagAgent/internal/config"
)

// NewChatModel 按能力创建 Ark ChatModel，temperature 固化在实例上。
func NewChatModel(ctx context.Context, cfg config.LLMConfig, temperature float32) (*ark.ChatModel, error) {
	if cfg.APIKey == "" || cfg.ModelID == "" {
		return nil, fmt.Errorf("llm.api_key, llm.model_id must be set")
	}

	arkCfg := &ark.ChatModelConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.ModelID,
		BaseURL:     cfg.BaseURL,
		Temperature: &temperature,
	}
	if cfg.RetryTimes > 0 {
		retry := cfg.RetryTimes
		arkCfg.RetryTimes = &retry
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		arkCfg.Timeout = &timeout
	}

	cm, err := ark.NewChatModel(ctx, arkCfg)
	if err != nil {
		return nil, fmt.Errorf("init chat model failed: %w", err)
	}
	return cm, nil
}

// ChatModels 为流水线用到的三类模型能力。
type ChatModels struct {
	// Contextualize 为确定性自由文本补全。
	Contextualize *ark.ChatModel
	// Route / Judge 为结构化输出补全。
	Route *ark.ChatModel
	Judge *ark.ChatModel
	// Answer 为探索性自由文本补全。
	Answer *ark.ChatModel
}

// NewChatModels 在启动时一次性创建各能力实例。
func NewChatModels(ctx context.Context, cfg config.LLMConfig) (*ChatModels, error) {
	var (
		out ChatModels
		err error
	)
	if out.Contextualize, err = NewChatModel(ctx, cfg, cfg.ContextualizeTemperature); err != nil {
		return nil, fmt.Errorf("contextualize model: %w", err)
	}
	if out.Route, err = NewChatModel(ctx, cfg, cfg.RouteTemperature); err != nil {
		return nil, fmt.Errorf("route model: %w", err)
	}
	if out.Judge, err = NewChatModel(ctx, cfg, cfg.JudgeTemperature); err != nil {
		return nil, fmt.Errorf("judge model: %w", err)
	}
	if out.Answer, err = NewChatModel(ctx, cfg, cfg.AnswerTemperature); err != nil {
		return nil, fmt.Errorf("answer model: %w", err)
	}
	return &out, nil
}
