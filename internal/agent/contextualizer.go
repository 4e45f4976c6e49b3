package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Contextualizer 结合历史把追问改写为独立问题。
type Contextualizer struct {
	cm          model.BaseChatModel
	temperature float32
	tpl         prompt.ChatTemplate
}

func NewContextualizer(cm model.BaseChatModel, temperature float32) *Contextualizer {
	return &Contextualizer{cm: cm, temperature: temperature, tpl: newContextualizeTemplate()}
}

// Rewrite 返回独立问题。调用失败直接返回错误，不退回原问题。
func (c *Contextualizer) Rewrite(ctx context.Context, chatHistory []*schema.Message, question, modelID string) (string, error) {
	msgs, err := c.tpl.Format(ctx, map[string]any{"chat_history": chatHistory})
	if err != nil {
		return "", fmt.Errorf("format contextualize template failed: %w", err)
	}
	msgs = append(msgs, schema.UserMessage(question))

	out, err := c.cm.Generate(ctx, msgs, callOptions(c.temperature, modelID)...)
	if err != nil {
		return "", fmt.Errorf("contextualize generate failed: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", fmt.Errorf("%w: empty standalone question", ErrMalformedOutput)
	}
	return strings.TrimSpace(out.Content), nil
}
