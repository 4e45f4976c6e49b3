package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wwwzy/RagAgent/internal/tui"
	"github.com/wwwzy/RagAgent/internal/ui"
)

var (
	chatUI      string
	chatSession string
	chatModel   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "进入交互式对话模式",
	Long: `进入交互式问答模式，整个对话复用同一个会话。
通过 --session 可以继续之前的会话。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		var uiImpl ui.ChatUI
		log := logger
		switch chatUI {
		case "console", "":
			uiImpl = &ui.ConsoleChatUI{In: os.Stdin, Out: os.Stdout}
		case "tui":
			uiImpl = &tui.ChatUI{}
			// 全屏界面下日志会打乱画面
			log = slog.New(slog.NewTextHandler(io.Discard, nil))
		default:
			return fmt.Errorf("未知 ui 类型: %s (支持: console, tui)", chatUI)
		}

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		return uiImpl.Run(ctx, a.service, ui.ChatOptions{
			SessionID: chatSession,
			ModelID:   chatModel,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatUI, "ui", "console", "交互界面类型: console/tui")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "继续指定的会话")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "模型标识，默认使用 llm.model_id")
}
