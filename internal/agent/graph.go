package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
)

const (
	NodeContextualize = "contextualize"
	NodeRouter        = "router"
	NodeRetrieve      = "retrieve"
	NodeJudge         = "judge"
	NodeWebSearch     = "web_search"
	NodeSynthesize    = "synthesize"

	graphName = "rag_agent"
)

// BuildGraph 构建问答流程图：
//
//	contextualize -> router -> rag    -> retrieve -> judge -> (sufficient) synthesize
//	                                                        -> (otherwise)  web_search -> synthesize
//	                        -> web    -> web_search -> synthesize
//	                        -> answer -> synthesize
//
// 无论走哪条路径，synthesize 恰好执行一次。
func BuildGraph(ctx context.Context, p *Pipeline) (compose.Runnable[AgentState, AgentState], error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	g := compose.NewGraph[AgentState, AgentState]()

	// 1. 添加节点
	nodes := []struct {
		key string
		fn  func(context.Context, AgentState) (AgentState, error)
	}{
		{NodeContextualize, p.ContextualizeNode},
		{NodeRouter, p.RouterNode},
		{NodeRetrieve, p.RetrieveNode},
		{NodeJudge, p.JudgeNode},
		{NodeWebSearch, p.WebSearchNode},
		{NodeSynthesize, p.SynthesizeNode},
	}
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.key, compose.InvokableLambda(n.fn), compose.WithNodeName(n.key)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.key, err)
		}
	}

	// 2. 添加边
	edges := [][2]string{
		{compose.START, NodeContextualize},
		{NodeContextualize, NodeRouter},
		{NodeRetrieve, NodeJudge},
		{NodeWebSearch, NodeSynthesize},
		{NodeSynthesize, compose.END},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e[0], e[1], err)
		}
	}

	// 3. 添加分支
	err := g.AddBranch(NodeRouter, compose.NewGraphBranch(routeBranch, map[string]bool{
		NodeRetrieve:   true,
		NodeWebSearch:  true,
		NodeSynthesize: true,
	}))
	if err != nil {
		return nil, fmt.Errorf("add router branch: %w", err)
	}

	err = g.AddBranch(NodeJudge, compose.NewGraphBranch(judgeBranch, map[string]bool{
		NodeSynthesize: true,
		NodeWebSearch:  true,
	}))
	if err != nil {
		return nil, fmt.Errorf("add judge branch: %w", err)
	}

	// 4. 编译 Graph
	runnable, err := g.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	return runnable, nil
}

// routeBranch 对路由结果做穷举匹配，保留分支与未知值都直接失败。
func routeBranch(_ context.Context, state AgentState) (string, error) {
	if state.Decision == nil {
		return "", ErrRouteNotSet
	}
	switch state.Decision.Route {
	case RouteRAG:
		return NodeRetrieve, nil
	case RouteWeb:
		return NodeWebSearch, nil
	case RouteAnswer:
		return NodeSynthesize, nil
	case RouteEnd:
		return "", fmt.Errorf("%w: %q", ErrReservedRoute, state.Decision.Route)
	default:
		return "", fmt.Errorf("%w: unknown route %q", ErrMalformedOutput, state.Decision.Route)
	}
}

func judgeBranch(_ context.Context, state AgentState) (string, error) {
	if state.Sufficient == nil {
		return "", fmt.Errorf("%w: missing sufficiency judgment", ErrMalformedOutput)
	}
	if *state.Sufficient {
		return NodeSynthesize, nil
	}
	return NodeWebSearch, nil
}
