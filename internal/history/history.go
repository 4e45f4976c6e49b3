// Package history 在会话存储的问答记录与图内流转的角色消息之间做转换。
package history

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/wwwzy/RagAgent/internal/session"
)

// Loader 为读取会话记录的最小接口。
type Loader interface {
	Load(ctx context.Context, sessionID string) ([]session.Turn, error)
}

// Pair 为一轮问答的纯文本形式。
type Pair struct {
	Question string
	Answer   string
}

// Load 读取会话并按写入顺序转换为消息序列，存储错误原样向上传递。
func Load(ctx context.Context, store Loader, sessionID string) ([]*schema.Message, error) {
	turns, err := store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return FromTurns(turns), nil
}

// FromTurns 每轮依次产出一条 user 消息（问题）与一条 assistant 消息（回答）。
func FromTurns(turns []session.Turn) []*schema.Message {
	out := make([]*schema.Message, 0, 2*len(turns))
	for _, t := range turns {
		out = append(out,
			schema.UserMessage(t.Question),
			schema.AssistantMessage(t.Answer, nil),
		)
	}
	return out
}

// Append 返回追加了 msg 的新切片，不修改入参。
func Append(msgs []*schema.Message, msg ...*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs)+len(msg))
	out = append(out, msgs...)
	return append(out, msg...)
}

// ToPairs 为 FromTurns 的逆变换，要求消息严格按 user/assistant 交替。
func ToPairs(msgs []*schema.Message) ([]Pair, error) {
	if len(msgs)%2 != 0 {
		return nil, fmt.Errorf("history has odd message count %d", len(msgs))
	}
	out := make([]Pair, 0, len(msgs)/2)
	for i := 0; i < len(msgs); i += 2 {
		q, a := msgs[i], msgs[i+1]
		if q.Role != schema.User || a.Role != schema.Assistant {
			return nil, fmt.Errorf("history message %d: unexpected roles %s/%s", i, q.Role, a.Role)
		}
		out = append(out, Pair{Question: q.Content, Answer: a.Content})
	}
	return out, nil
}
