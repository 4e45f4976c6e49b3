package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/wwwzy/RagAgent/internal/mcpserver"
)

// version 由构建时 -ldflags 注入。
var version = "dev"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "以 MCP stdio 服务运行，对外提供 ask_docs 工具",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		s := mcpserver.New(a.service, version, logger)
		return mcpserver.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
