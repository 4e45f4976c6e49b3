// Package api 提供问答服务的 HTTP 与 WebSocket 接口。
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wwwzy/RagAgent/internal/agent"
	"github.com/wwwzy/RagAgent/internal/session"
)

// chatErrorDetail 为流水线失败时返回给调用方的固定文案，不暴露内部错误。
const chatErrorDetail = "Chat error"

// ChatService 为传输层依赖的问答能力，由 *agent.Service 实现。
type ChatService interface {
	Answer(ctx context.Context, req agent.Request) (agent.Response, error)
	History(ctx context.Context, sessionID string) ([]session.Turn, error)
}

// Handler 持有各路由共用的依赖。
type Handler struct {
	svc            ChatService
	logger         *slog.Logger
	allowedOrigins []string
}

// HandlerOption 配置 Handler 的可选项。
type HandlerOption func(*Handler)

// WithAllowedOrigins 设置允许发起 WebSocket 握手的跨域来源，与 CORS 配置保持一致。
// 未设置时仅接受同源握手。
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		h.allowedOrigins = append([]string(nil), origins...)
	}
}

func NewHandler(svc ChatService, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{svc: svc, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"detail": message})
}
