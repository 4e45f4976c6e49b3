package agent

import "errors"

var (
	// ErrPipelineFailed 包装流水线内任一阶段的失败，传输层据此返回不透明错误。
	ErrPipelineFailed = errors.New("chat pipeline failed")
	// ErrMalformedOutput 表示结构化判断返回了约定之外的值。
	ErrMalformedOutput = errors.New("malformed structured output")
	// ErrReservedRoute 表示路由结果为保留的提前结束分支，当前不接入图。
	ErrReservedRoute = errors.New("reserved route")
	// ErrEmptyQuestion 表示请求问题为空。
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrRouteAlreadySet 表示同一请求内路由被重复写入。
	ErrRouteAlreadySet = errors.New("route already set")
	// ErrRouteNotSet 表示回答阶段运行时尚未路由。
	ErrRouteNotSet = errors.New("route not set")
)
