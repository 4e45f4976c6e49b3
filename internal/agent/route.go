package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Route 为单个问题的回答策略。
type Route string

const (
	// RouteRAG 检索知识库后回答。
	RouteRAG Route = "rag"
	// RouteAnswer 直接凭模型知识回答。
	RouteAnswer Route = "answer"
	// RouteWeb 检索网页后回答。
	RouteWeb Route = "web"
	// RouteEnd 为保留的提前结束分支，携带固定 reply，图中没有对应转移。
	RouteEnd Route = "end"
)

// RouteDecision 为路由的结构化判断结果。Reply 仅在 RouteEnd 时有值。
type RouteDecision struct {
	Route Route  `json:"route"`
	Reply string `json:"reply,omitempty"`
}

// SufficiencyJudgment 为检索上下文是否足以回答问题的判断。
type SufficiencyJudgment struct {
	Sufficient bool `json:"sufficient"`
}

type rawRouteDecision struct {
	Route *string `json:"route"`
	Reply *string `json:"reply"`
}

// DecodeRouteDecision 解析路由模型的参数 JSON。route 只接受三个字面量，
// 其余取值（包括保留的 end）都视为失败，不做纠正。
func DecodeRouteDecision(raw string) (RouteDecision, error) {
	var r rawRouteDecision
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return RouteDecision{}, fmt.Errorf("%w: decode route decision: %v", ErrMalformedOutput, err)
	}
	if r.Route == nil {
		return RouteDecision{}, fmt.Errorf("%w: route decision missing route", ErrMalformedOutput)
	}

	d := RouteDecision{Route: Route(strings.TrimSpace(*r.Route))}
	switch d.Route {
	case RouteRAG, RouteAnswer, RouteWeb:
		return d, nil
	case RouteEnd:
		if r.Reply != nil {
			d.Reply = *r.Reply
		}
		return d, fmt.Errorf("%w: %q", ErrReservedRoute, d.Route)
	default:
		return RouteDecision{}, fmt.Errorf("%w: unknown route %q", ErrMalformedOutput, *r.Route)
	}
}

type rawSufficiency struct {
	Sufficient *bool `json:"sufficient"`
}

// DecodeSufficiency 解析判定模型的参数 JSON，sufficient 缺失或非布尔均视为失败。
func DecodeSufficiency(raw string) (SufficiencyJudgment, error) {
	var r rawSufficiency
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return SufficiencyJudgment{}, fmt.Errorf("%w: decode sufficiency: %v", ErrMalformedOutput, err)
	}
	if r.Sufficient == nil {
		return SufficiencyJudgment{}, fmt.Errorf("%w: sufficiency missing field", ErrMalformedOutput)
	}
	return SufficiencyJudgment{Sufficient: *r.Sufficient}, nil
}
