package agent

import (
	"context"
	"fmt"
)

// Pipeline 聚合各阶段依赖，由调用方注入（测试中替换为替身）。
type Pipeline struct {
	Contextualizer *Contextualizer
	Router         *Router
	Retrieval      *RetrievalEngine
	Judge          *Judge
	Web            *WebFallback
	Synthesizer    *Synthesizer
}

func (p *Pipeline) validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("pipeline is nil")
	case p.Contextualizer == nil:
		return fmt.Errorf("pipeline: contextualizer is nil")
	case p.Router == nil:
		return fmt.Errorf("pipeline: router is nil")
	case p.Retrieval == nil:
		return fmt.Errorf("pipeline: retrieval engine is nil")
	case p.Judge == nil:
		return fmt.Errorf("pipeline: judge is nil")
	case p.Web == nil:
		return fmt.Errorf("pipeline: web fallback is nil")
	case p.Synthesizer == nil:
		return fmt.Errorf("pipeline: synthesizer is nil")
	}
	return nil
}

// ContextualizeNode 入口节点：此时 Messages 仅含历史。
func (p *Pipeline) ContextualizeNode(ctx context.Context, state AgentState) (AgentState, error) {
	q, err := p.Contextualizer.Rewrite(ctx, state.Messages, state.Question, state.ModelID)
	if err != nil {
		return state, fmt.Errorf("contextualize: %w", err)
	}
	return state.WithStandalone(q), nil
}

func (p *Pipeline) RouterNode(ctx context.Context, state AgentState) (AgentState, error) {
	d, err := p.Router.Route(ctx, state.Standalone, state.ModelID)
	if err != nil {
		return state, fmt.Errorf("route: %w", err)
	}
	next, err := state.WithRoute(d)
	if err != nil {
		return state, fmt.Errorf("route: %w", err)
	}
	return next, nil
}

func (p *Pipeline) RetrieveNode(ctx context.Context, state AgentState) (AgentState, error) {
	if state.Decision == nil {
		return state, fmt.Errorf("retrieve: %w", ErrRouteNotSet)
	}
	blob, n, err := p.Retrieval.Retrieve(ctx, state.Standalone)
	if err != nil {
		return state, fmt.Errorf("retrieve: %w", err)
	}
	return state.WithRetrieved(blob, n), nil
}

func (p *Pipeline) JudgeNode(ctx context.Context, state AgentState) (AgentState, error) {
	j, err := p.Judge.Judge(ctx, state.Standalone, state.RetrievedContext, state.ModelID)
	if err != nil {
		return state, fmt.Errorf("judge: %w", err)
	}
	return state.WithJudgment(j), nil
}

func (p *Pipeline) WebSearchNode(ctx context.Context, state AgentState) (AgentState, error) {
	if state.Decision == nil {
		return state, fmt.Errorf("web search: %w", ErrRouteNotSet)
	}
	return state.WithWeb(p.Web.Search(ctx, state.Standalone)), nil
}

func (p *Pipeline) SynthesizeNode(ctx context.Context, state AgentState) (AgentState, error) {
	if state.Decision == nil {
		return state, fmt.Errorf("synthesize: %w", ErrRouteNotSet)
	}
	answer, err := p.Synthesizer.Synthesize(ctx, state.Messages, state.SelectedContext(), state.ModelID)
	if err != nil {
		return state, fmt.Errorf("synthesize: %w", err)
	}
	return state.WithAnswer(answer), nil
}
