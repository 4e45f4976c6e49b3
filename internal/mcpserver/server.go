package mcpserver

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

const serverName = "ragagent"

// New 创建注册了 ask_docs 工具的 MCP 服务。
func New(svc Answerer, version string, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	ask := NewAskTool(svc, logger)
	s.AddTool(ask.Definition(), ask.Handle)
	return s
}

// ServeStdio 在标准输入输出上运行服务，直到输入关闭。
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
