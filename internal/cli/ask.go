package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wwwzy/RagAgent/internal/agent"
)

var (
	askSession string
	askModel   string
	askJSON    bool
)

// askCmd 单次问答，适合脚本调用。
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "回答一个问题后退出",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.service.Answer(ctx, agent.Request{
			Question:  strings.Join(args, " "),
			SessionID: askSession,
			ModelID:   askModel,
		})
		if err != nil {
			return err
		}

		if askJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		fmt.Println(resp.Answer)
		fmt.Fprintf(os.Stderr, "\nsession: %s  model: %s\n", resp.SessionID, resp.ModelID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askSession, "session", "", "会话 ID，为空时新建会话")
	askCmd.Flags().StringVar(&askModel, "model", "", "模型标识，默认使用 llm.model_id")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "以 JSON 输出 answer/session_id/model")
}
