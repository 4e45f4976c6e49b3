package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wwwzy/RagAgent/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// rootCmd 是没有子命令时调用的基础命令
var rootCmd = &cobra.Command{
	Use:   "ragagent",
	Short: "RagAgent 是一个基于检索增强的文档问答服务",
	Long: `RagAgent 根据对话历史改写问题，检索文档知识库，
在知识库不足时回退到联网搜索，并按会话保存问答记录。`,
	SilenceUsage: true,
}

// Execute 将所有子命令添加到根命令并适当设置标志。
// 这由 main.main() 调用。它只需要对 rootCmd 调用一次。
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件（默认按 ./config.yaml、./configs/config.yaml、$HOME/.ragagent/config.yaml 搜索）")
}

// initConfig 加载 .env、配置文件和环境变量，并初始化全局日志。
func initConfig() {
	// .env 不存在时忽略，已存在的环境变量优先
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger = newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
}

// newLogger 日志统一写 stderr，stdout 留给对话输出和 MCP 协议。
func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
