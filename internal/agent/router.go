package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const routeToolName = "route_question"

var routeTool = &schema.ToolInfo{
	Name: routeToolName,
	Desc: "Select the strategy used to answer the question.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"route": {
			Type:     schema.String,
			Desc:     "rag: documentation lookup; answer: direct answer; web: web search",
			Enum:     []string{string(RouteRAG), string(RouteAnswer), string(RouteWeb)},
			Required: true,
		},
	}),
}

// Router 对独立问题做一次结构化分类。
type Router struct {
	cm          model.ToolCallingChatModel
	temperature float32
	tpl         prompt.ChatTemplate
}

func NewRouter(cm model.ToolCallingChatModel, temperature float32) *Router {
	return &Router{cm: cm, temperature: temperature, tpl: newRouteTemplate()}
}

func (r *Router) Route(ctx context.Context, question, modelID string) (RouteDecision, error) {
	msgs, err := r.tpl.Format(ctx, map[string]any{"tool": routeToolName})
	if err != nil {
		return RouteDecision{}, fmt.Errorf("format route template failed: %w", err)
	}
	msgs = append(msgs, schema.UserMessage(question))

	raw, err := generateStructured(ctx, r.cm, routeTool, msgs, callOptions(r.temperature, modelID)...)
	if err != nil {
		return RouteDecision{}, fmt.Errorf("route generate failed: %w", err)
	}
	return DecodeRouteDecision(raw)
}
