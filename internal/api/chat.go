package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wwwzy/RagAgent/internal/agent"
	"github.com/wwwzy/RagAgent/internal/session"
)

const maxBodyBytes = 1 << 20

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

type turnView struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	SessionID string     `json:"session_id"`
	Turns     []turnView `json:"turns"`
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.Chat)
	r.Get("/sessions/{id}/history", h.SessionHistory)
	r.Get("/ws/chat", h.ChatSocket)
}

// Chat 处理单轮问答：POST /chat {question, session_id?, model?}。
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		Error(w, http.StatusBadRequest, "question is required")
		return
	}

	// 客户端断开不应打断已开始的作答与会话写入
	resp, err := h.svc.Answer(context.WithoutCancel(r.Context()), agent.Request{
		Question:  req.Question,
		SessionID: req.SessionID,
		ModelID:   req.Model,
	})
	if err != nil {
		if errors.Is(err, agent.ErrEmptyQuestion) {
			Error(w, http.StatusBadRequest, "question is required")
			return
		}
		h.logger.ErrorContext(r.Context(), "chat request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"session_id", req.SessionID,
			"error", err,
		)
		Error(w, http.StatusInternalServerError, chatErrorDetail)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// SessionHistory 返回会话记录：GET /sessions/{id}/history。
func (h *Handler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := h.svc.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrEmptySessionID) {
			Error(w, http.StatusBadRequest, "session id is required")
			return
		}
		h.logger.ErrorContext(r.Context(), "load session history failed", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "History error")
		return
	}

	out := historyResponse{SessionID: id, Turns: make([]turnView, 0, len(turns))}
	for _, t := range turns {
		out.Turns = append(out.Turns, turnView{
			Question:  t.Question,
			Answer:    t.Answer,
			Model:     t.ModelID,
			CreatedAt: t.CreatedAt,
		})
	}
	JSON(w, http.StatusOK, out)
}
