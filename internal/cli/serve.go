package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wwwzy/RagAgent/internal/api"
	"github.com/wwwzy/RagAgent/internal/retention"
)

var serveAddr string

// serveCmd 启动 HTTP/WebSocket 服务，并按配置运行后台清理任务。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 RagAgent HTTP 服务",
	Long: `启动问答 HTTP 服务（POST /chat、GET /sessions/{id}/history、GET /ws/chat、GET /health）。
retention.enabled 为 true 时同时在后台定期清理过期的会话与审计记录。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 上下文用于优雅退出
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// 2. 装配问答服务
		fmt.Println("正在初始化问答服务...")
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		// 3. 初始化清理任务
		retCfg := cfg.Retention
		retCfg.OnError = func(err error) {
			logger.Error("retention prune failed", "error", err)
		}
		collector, err := retention.NewCollector(a.storage, retCfg)
		if err != nil {
			return fmt.Errorf("创建 retention 采集器失败: %w", err)
		}
		mgr := retention.NewManager(retCfg, collector)
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("启动清理任务失败: %w", err)
		}

		// 4. 启动 HTTP 服务，阻塞到收到信号
		serverCfg := cfg.Server
		if serveAddr != "" {
			serverCfg.Addr = serveAddr
		}
		handler := api.NewRouter(
			api.NewHandler(a.service, logger, api.WithAllowedOrigins(serverCfg.CORSOrigins)),
			serverCfg.CORSOrigins,
		)
		srv := api.NewServer(serverCfg, handler, logger)

		fmt.Printf("RagAgent 已启动，监听 %s。按 Ctrl+C 停止。\n", serverCfg.Addr)
		runErr := srv.Run(ctx)

		// 5. 优雅停止
		stop()
		mgr.Stop()
		if err := mgr.Wait(); err != nil {
			return fmt.Errorf("清理任务停止时发生错误: %w", err)
		}
		if runErr != nil {
			return fmt.Errorf("HTTP 服务异常退出: %w", runErr)
		}

		fmt.Println("关闭完成。")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "监听地址，覆盖 server.addr")
}
