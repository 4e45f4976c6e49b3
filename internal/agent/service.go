package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/wwwzy/RagAgent/internal/history"
	"github.com/wwwzy/RagAgent/internal/session"
)

// Request 为一次问答请求。SessionID 为空时生成新会话，ModelID 为空时使用默认模型。
type Request struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	ModelID   string `json:"model,omitempty"`
}

type Response struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	ModelID   string `json:"model"`
}

// Service 串联会话存储、历史转换与问答流程图，对外提供 Answer。
type Service struct {
	store        session.Store
	runnable     compose.Runnable[AgentState, AgentState]
	defaultModel string
	handlers     []callbacks.Handler
	logger       *slog.Logger
}

type ServiceOption func(*Service)

func WithDefaultModel(id string) ServiceOption {
	return func(s *Service) { s.defaultModel = id }
}

// WithCallbacks 追加每次执行图时使用的回调（审计、日志）。
func WithCallbacks(h ...callbacks.Handler) ServiceOption {
	return func(s *Service) { s.handlers = append(s.handlers, h...) }
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(store session.Store, runnable compose.Runnable[AgentState, AgentState], opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is nil")
	}
	if runnable == nil {
		return nil, errors.New("runnable is nil")
	}
	s := &Service{
		store:    store,
		runnable: runnable,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultModel 返回未指定模型时使用的标识。
func (s *Service) DefaultModel() string { return s.defaultModel }

// Answer 执行一次完整问答：加载历史 -> 执行图 -> 追加本轮记录。
//
// 流程内任一阶段失败返回包装了 ErrPipelineFailed 的错误；回答生成后写会话失败
// 仍返回回答，只单独记录日志。
func (s *Service) Answer(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, ErrEmptyQuestion
	}

	sessionID := session.EnsureID(req.SessionID)
	modelID := req.ModelID
	if modelID == "" {
		modelID = s.defaultModel
	}
	traceID := uuid.NewString()
	ctx = WithTraceID(WithSessionID(ctx, sessionID), traceID)

	logger := s.logger.With("session_id", sessionID, "trace_id", traceID, "model", modelID)
	logger.InfoContext(ctx, "chat request received")

	msgs, err := history.Load(ctx, s.store, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "chat pipeline failed", "stage", "load_history", "question", question, "error", err)
		return Response{}, fmt.Errorf("%w: %w", ErrPipelineFailed, err)
	}

	var opts []compose.Option
	if len(s.handlers) > 0 {
		opts = append(opts, compose.WithCallbacks(s.handlers...))
	}
	final, err := s.runnable.Invoke(ctx, AgentState{
		SessionID: sessionID,
		ModelID:   modelID,
		Question:  question,
		Messages:  msgs,
	}, opts...)
	if err != nil {
		logger.ErrorContext(ctx, "chat pipeline failed", "question", question, "error", err)
		return Response{}, fmt.Errorf("%w: %w", ErrPipelineFailed, err)
	}

	answer := final.Answer()
	if strings.TrimSpace(answer) == "" {
		answer = ApologyMessage
	}

	if err := s.store.Append(ctx, sessionID, question, answer, modelID); err != nil {
		logger.ErrorContext(ctx, "persist conversation turn failed", "question", question, "error", err)
	}

	logger.InfoContext(ctx, "chat request completed",
		"route", string(final.Route()),
		"context_source", final.Source.String(),
	)
	return Response{Answer: answer, SessionID: sessionID, ModelID: modelID}, nil
}

// History 返回会话的完整记录。
func (s *Service) History(ctx context.Context, sessionID string) ([]session.Turn, error) {
	if sessionID == "" {
		return nil, session.ErrEmptySessionID
	}
	return s.store.Load(ctx, sessionID)
}
