package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/wwwzy/RagAgent/internal/storage"
)

const (
	auditTruncateLimit = 2048
)

// AuditStore 为写审计记录的最小接口，由 *storage.Storage 实现。
type AuditStore interface {
	InsertAuditRecord(ctx context.Context, rec *storage.AuditRecord) error
	UpdateAuditRecord(ctx context.Context, id uint64, up storage.AuditUpdate) error
}

type auditRecordKey struct{}

// stateSummary 为审计记录中节点输入/输出的摘要，不记录完整消息。
type stateSummary struct {
	Question   string `json:"question,omitempty"`
	Standalone string `json:"standalone,omitempty"`
	Route      Route  `json:"route,omitempty"`
	Retrieved  int    `json:"retrieved,omitempty"`
	Sufficient *bool  `json:"sufficient,omitempty"`
	Source     string `json:"source,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

// NewAuditHandler 返回一个 callbacks.Handler，在每个图节点执行前后写审计记录：
// 开始时插入 running 记录，结束时更新为 success/failed。写审计失败只记日志，不影响节点执行。
func NewAuditHandler(store AuditStore, logger *slog.Logger) callbacks.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	finish := func(ctx context.Context, status string, result string, runErr error) {
		rec, ok := ctx.Value(auditRecordKey{}).(*storage.AuditRecord)
		if !ok || rec == nil || rec.ID == 0 {
			return
		}
		finishedAt := time.Now().UTC()
		update := storage.AuditUpdate{
			Status:     &status,
			FinishedAt: &finishedAt,
		}
		if runErr != nil {
			e := truncate(runErr.Error(), auditTruncateLimit)
			update.ErrorMessage = &e
		} else {
			r := truncate(result, auditTruncateLimit)
			update.ResultJSON = &r
		}
		if err := store.UpdateAuditRecord(ctx, rec.ID, update); err != nil {
			logger.WarnContext(ctx, "update audit record failed", "action", rec.Action, "trace_id", rec.TraceID, "error", err)
		}
	}

	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			if !isGraphNode(info) {
				return ctx
			}
			rec := &storage.AuditRecord{
				TraceID:    GetTraceID(ctx),
				SessionID:  GetSessionID(ctx),
				Action:     info.Name,
				ParamsJSON: truncate(summarize(input), auditTruncateLimit),
				Status:     storage.AuditStatusRunning,
				StartedAt:  time.Now().UTC(),
			}
			if err := store.InsertAuditRecord(ctx, rec); err != nil {
				logger.WarnContext(ctx, "insert audit record failed", "action", rec.Action, "trace_id", rec.TraceID, "error", err)
				return ctx
			}
			return context.WithValue(ctx, auditRecordKey{}, rec)
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			if isGraphNode(info) {
				finish(ctx, storage.AuditStatusSuccess, summarize(output), nil)
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			if isGraphNode(info) {
				finish(ctx, storage.AuditStatusFailed, "", err)
			}
			return ctx
		}).
		Build()
}

// NewLogHandler 以 slog 记录节点的开始、结束与失败。
func NewLogHandler(logger *slog.Logger) callbacks.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			if isGraphNode(info) {
				logger.DebugContext(ctx, "node start", "node", info.Name, "trace_id", GetTraceID(ctx))
			}
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			if isGraphNode(info) {
				logger.DebugContext(ctx, "node end", "node", info.Name, "trace_id", GetTraceID(ctx), "state", summarize(output))
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			if isGraphNode(info) {
				logger.ErrorContext(ctx, "node failed", "node", info.Name, "trace_id", GetTraceID(ctx), "error", err)
			}
			return ctx
		}).
		Build()
}

func isGraphNode(info *callbacks.RunInfo) bool {
	return info != nil && info.Component == compose.ComponentOfLambda
}

func summarize(v any) string {
	st, ok := v.(AgentState)
	if !ok {
		return fmt.Sprintf("%T", v)
	}
	s := stateSummary{
		Question:   st.Question,
		Standalone: st.Standalone,
		Route:      st.Route(),
		Retrieved:  st.RetrievedCount,
		Sufficient: st.Sufficient,
	}
	if st.Source != ContextNone {
		s.Source = st.Source.String()
	}
	// 最后一条为 assistant 说明已生成回答
	if n := len(st.Messages); st.Standalone != "" && n > 0 && st.Messages[n-1].Role == schema.Assistant {
		s.Answer = st.Messages[n-1].Content
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%+v", s)
	}
	return string(b)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
