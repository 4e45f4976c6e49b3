package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Synthesizer 生成最终回答，是唯一面向用户的生成阶段。
type Synthesizer struct {
	cm          model.BaseChatModel
	temperature float32
	withCtx     prompt.ChatTemplate
	direct      prompt.ChatTemplate
}

func NewSynthesizer(cm model.BaseChatModel, temperature float32) *Synthesizer {
	return &Synthesizer{
		cm:          cm,
		temperature: temperature,
		withCtx:     newAnswerTemplate(true),
		direct:      newAnswerTemplate(false),
	}
}

// Synthesize 基于消息序列（以独立问题结尾）和可选上下文生成回答。
// 模型调用失败返回错误；输出为空时返回 ApologyMessage。
func (s *Synthesizer) Synthesize(ctx context.Context, msgs []*schema.Message, contextBlob, modelID string) (string, error) {
	tpl, vars := s.direct, map[string]any{"messages": msgs}
	if contextBlob != "" {
		tpl = s.withCtx
		vars["context"] = contextBlob
	}
	in, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("format answer template failed: %w", err)
	}

	out, err := s.cm.Generate(ctx, in, callOptions(s.temperature, modelID)...)
	if err != nil {
		return "", fmt.Errorf("answer generate failed: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return ApologyMessage, nil
	}
	return out.Content, nil
}
