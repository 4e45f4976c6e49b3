package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// callOptions 为单次模型调用的公共参数。
func callOptions(temperature float32, modelID string) []model.Option {
	opts := []model.Option{model.WithTemperature(temperature)}
	if modelID != "" {
		opts = append(opts, model.WithModel(modelID))
	}
	return opts
}

// generateStructured 绑定单个工具并调用模型，返回该工具调用的参数 JSON。
// 模型未发起工具调用时退回读取正文中的 JSON（兼容不支持 function calling 的端点）。
func generateStructured(ctx context.Context, cm model.ToolCallingChatModel, tool *schema.ToolInfo,
	msgs []*schema.Message, opts ...model.Option) (string, error) {
	bound, err := cm.WithTools([]*schema.ToolInfo{tool})
	if err != nil {
		return "", fmt.Errorf("bind %s tool: %w", tool.Name, err)
	}

	msg, err := bound.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty %s response", ErrMalformedOutput, tool.Name)
	}

	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == tool.Name {
			return tc.Function.Arguments, nil
		}
	}

	content := stripCodeFence(msg.Content)
	if content == "" {
		return "", fmt.Errorf("%w: %s returned neither tool call nor content", ErrMalformedOutput, tool.Name)
	}
	return content, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// 去掉语言标记，例如 ```json
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
