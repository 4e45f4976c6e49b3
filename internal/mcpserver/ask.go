// Package mcpserver 通过 MCP stdio 协议暴露问答能力，供编辑器与其他 Agent 调用。
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wwwzy/RagAgent/internal/agent"
)

const askToolName = "ask_docs"

// Answerer 为问答能力，由 *agent.Service 实现。
type Answerer interface {
	Answer(ctx context.Context, req agent.Request) (agent.Response, error)
}

// AskTool handles the ask_docs MCP tool.
type AskTool struct {
	svc    Answerer
	logger *slog.Logger
}

func NewAskTool(svc Answerer, logger *slog.Logger) *AskTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskTool{svc: svc, logger: logger}
}

// Definition returns the MCP tool definition for ask_docs.
func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool(askToolName,
		mcp.WithDescription(
			"Answer a question about the LangChain documentation. Follow-up questions can reuse "+
				"the session_id returned by a previous call to keep conversational context.",
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session returned by a previous call; omit to start a new session"),
		),
		mcp.WithString("model",
			mcp.Description("Model identifier; defaults to the configured model"),
		),
	)
}

// Handle processes the ask_docs tool call.
func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := strings.TrimSpace(req.GetString("question", ""))
	if question == "" {
		return mcp.NewToolResultError("'question' is required"), nil
	}

	resp, err := t.svc.Answer(ctx, agent.Request{
		Question:  question,
		SessionID: req.GetString("session_id", ""),
		ModelID:   req.GetString("model", ""),
	})
	if err != nil {
		if errors.Is(err, agent.ErrEmptyQuestion) {
			return mcp.NewToolResultError("'question' is required"), nil
		}
		t.logger.ErrorContext(ctx, "ask_docs failed", "error", err)
		return mcp.NewToolResultError("Chat error"), nil
	}

	var b strings.Builder
	b.WriteString(resp.Answer)
	fmt.Fprintf(&b, "\n\nsession_id: %s\nmodel: %s", resp.SessionID, resp.ModelID)
	return mcp.NewToolResultText(b.String()), nil
}
