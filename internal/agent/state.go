package agent

import (
	"github.com/cloudwego/eino/schema"
	"github.com/wwwzy/RagAgent/internal/history"
)

// ContextSource 标记回答阶段使用的上下文来源，三者互斥。
type ContextSource int

const (
	ContextNone ContextSource = iota
	ContextRetrieval
	ContextWeb
)

func (s ContextSource) String() string {
	switch s {
	case ContextRetrieval:
		return "retrieval"
	case ContextWeb:
		return "web"
	default:
		return "none"
	}
}

// AgentState 为单次请求在 Graph 中流转的状态，不落库。
//
// 各节点按值接收并返回新值，With* 方法不修改接收者，消息切片也总是复制后追加。
type AgentState struct {
	SessionID string `json:"session_id"`
	ModelID   string `json:"model_id"`

	// Question 为用户原始问题，Standalone 为改写后的独立问题
	Question   string `json:"question"`
	Standalone string `json:"standalone"`

	// 历史消息 + 改写后的问题 + 最终回答，只追加
	Messages []*schema.Message `json:"messages"`

	Decision *RouteDecision `json:"decision,omitempty"`

	RetrievedContext string        `json:"retrieved_context,omitempty"`
	RetrievedCount   int           `json:"retrieved_count,omitempty"`
	Sufficient       *bool         `json:"sufficient,omitempty"`
	WebContext       string        `json:"web_context,omitempty"`
	Source           ContextSource `json:"source"`
}

// WithStandalone 写入独立问题，并以 user 消息追加到消息序列。
func (s AgentState) WithStandalone(q string) AgentState {
	s.Standalone = q
	s.Messages = history.Append(s.Messages, schema.UserMessage(q))
	return s
}

// WithRoute 写入路由结果，每个请求只允许一次。
func (s AgentState) WithRoute(d RouteDecision) (AgentState, error) {
	if s.Decision != nil {
		return s, ErrRouteAlreadySet
	}
	s.Decision = &d
	return s, nil
}

func (s AgentState) WithRetrieved(blob string, n int) AgentState {
	s.RetrievedContext = blob
	s.RetrievedCount = n
	s.Source = ContextRetrieval
	return s
}

func (s AgentState) WithJudgment(j SufficiencyJudgment) AgentState {
	v := j.Sufficient
	s.Sufficient = &v
	return s
}

// WithWeb 写入网页上下文，替换此前的检索上下文作为回答来源。
func (s AgentState) WithWeb(blob string) AgentState {
	s.WebContext = blob
	s.Source = ContextWeb
	return s
}

func (s AgentState) WithAnswer(text string) AgentState {
	s.Messages = history.Append(s.Messages, schema.AssistantMessage(text, nil))
	return s
}

// Route 返回已选择的策略，未路由时为空。
func (s AgentState) Route() Route {
	if s.Decision == nil {
		return ""
	}
	return s.Decision.Route
}

// SelectedContext 返回回答阶段应使用的唯一上下文。
func (s AgentState) SelectedContext() string {
	switch s.Source {
	case ContextRetrieval:
		return s.RetrievedContext
	case ContextWeb:
		return s.WebContext
	default:
		return ""
	}
}

// Answer 返回最后一条 assistant 消息。
func (s AgentState) Answer() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if m := s.Messages[i]; m != nil && m.Role == schema.Assistant {
			return m.Content
		}
	}
	return ""
}
