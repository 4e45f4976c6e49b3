package ui

import (
	"context"

	"github.com/wwwzy/RagAgent/internal/agent"
)

// ChatBackend 为交互界面依赖的问答能力，由 agent.Service 实现。
type ChatBackend interface {
	Answer(ctx context.Context, req agent.Request) (agent.Response, error)
}

type ChatUI interface {
	Run(ctx context.Context, backend ChatBackend, opts ChatOptions) error
}

type ChatOptions struct {
	// SessionID 为空时由首轮回答分配，之后整个界面复用同一会话。
	SessionID string
	// ModelID 为空时使用服务默认模型。
	ModelID string
}

var _ ChatBackend = (*agent.Service)(nil)
