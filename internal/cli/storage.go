package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/wwwzy/RagAgent/internal/retention"
	"github.com/wwwzy/RagAgent/internal/storage"
)

// storageCmd represents the storage command
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "管理存储和数据库",
	Long:  `提供查看数据库概况、查看会话记录、清理会话记录和审计记录的命令。`,
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "显示数据库统计概况",
	RunE:  runInfo,
}

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "按写入顺序显示会话的问答记录",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var pruneSessionsCmd = &cobra.Command{
	Use:   "prune-sessions",
	Short: "清理会话记录",
	Long:  `删除早于 --days 天的问答记录；不指定时使用配置文件中的 retention.turns.keep_for。`,
	RunE:  runPruneSessions,
}

// pruneAuditCmd represents the prune-audit command
var pruneAuditCmd = &cobra.Command{
	Use:   "prune-audit",
	Short: "清理审计记录",
	Long:  `删除早于 --days 天的审计记录；不指定时使用配置文件中的 retention.audit.keep_for。`,
	RunE:  runPruneAudit,
}

var (
	keepSessionDays int
	keepAuditDays   int
)

func init() {
	pruneSessionsCmd.Flags().IntVar(&keepSessionDays, "days", 0, "保留最近 N 天的记录")
	pruneAuditCmd.Flags().IntVar(&keepAuditDays, "days", 0, "保留最近 N 天的记录")

	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(infoCmd)
	storageCmd.AddCommand(historyCmd)
	storageCmd.AddCommand(pruneSessionsCmd)
	storageCmd.AddCommand(pruneAuditCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// 1. 获取数据库文件信息
	dbPath := cfg.Storage.Path
	if !filepath.IsAbs(dbPath) {
		if absPath, err := filepath.Abs(dbPath); err == nil {
			dbPath = absPath
		}
	}

	var dbSizeStr string
	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			dbSizeStr = "Not Found (Will be created on first run)"
		} else {
			dbSizeStr = fmt.Sprintf("Error: %v", err)
		}
	} else {
		sizeMB := float64(info.Size()) / 1024 / 1024
		dbSizeStr = fmt.Sprintf("%.2f MB (%s)", sizeMB, dbPath)
	}

	// 2. 连接数据库
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		fmt.Printf("Database File: %s\n", dbSizeStr)
		return fmt.Errorf("打开数据库失败: %w", err)
	}
	defer store.Close()

	// 3. 获取统计信息
	st, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("统计失败: %w", err)
	}

	// 4. 格式化输出
	fmt.Printf("Database File: %s\n", dbSizeStr)
	fmt.Printf("Session Driver: %s\n\n", cfg.Session.Driver)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Table\tCount")
	fmt.Fprintln(w, "-----\t-----")
	fmt.Fprintf(w, "Sessions\t%d\n", st.Sessions)
	fmt.Fprintf(w, "ConversationTurns\t%d\n", st.Turns)
	fmt.Fprintf(w, "AuditRecords\t%d\n", st.AuditRecords)
	return w.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("打开数据库失败: %w", err)
	}
	defer store.Close()

	// 会话可能在 redis 中，按配置的驱动读取
	sessions, err := newSessionStore(store, cfg.Session)
	if err != nil {
		return fmt.Errorf("创建会话存储失败: %w", err)
	}
	defer sessions.Close()

	turns, err := sessions.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("读取会话失败: %w", err)
	}
	if len(turns) == 0 {
		fmt.Printf("Session %s has no turns.\n", args[0])
		return nil
	}

	for i, t := range turns {
		fmt.Printf("#%d  %s  model=%s\n", i+1, t.CreatedAt.Local().Format(time.DateTime), t.ModelID)
		fmt.Printf("Q: %s\n", t.Question)
		fmt.Printf("A: %s\n\n", t.Answer)
	}
	return nil
}

func runPruneSessions(cmd *cobra.Command, args []string) error {
	policy := cfg.Retention.Turns
	if keepSessionDays > 0 {
		policy.KeepFor = time.Duration(keepSessionDays) * 24 * time.Hour
	}
	if policy.KeepFor <= 0 {
		return fmt.Errorf("must specify --days or set retention.turns.keep_for")
	}

	res, err := prune(retention.Config{Turns: policy}, "conversation turns", policy.KeepFor)
	if err != nil {
		return err
	}
	fmt.Printf("Prune completed. Deleted %d turns.\n", res.Turns)
	return nil
}

func runPruneAudit(cmd *cobra.Command, args []string) error {
	policy := cfg.Retention.Audit
	if keepAuditDays > 0 {
		policy.KeepFor = time.Duration(keepAuditDays) * 24 * time.Hour
	}
	if policy.KeepFor <= 0 {
		return fmt.Errorf("must specify --days or set retention.audit.keep_for")
	}

	res, err := prune(retention.Config{Audit: policy}, "audit records", policy.KeepFor)
	if err != nil {
		return err
	}
	fmt.Printf("Prune completed. Deleted %d records.\n", res.AuditRecords)
	return nil
}

// prune 复用后台清理的分批删除逻辑立即执行一轮。
func prune(policy retention.Config, what string, keep time.Duration) (retention.Result, error) {
	ctx := context.Background()

	fmt.Println("Opening database...")
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return retention.Result{}, fmt.Errorf("打开数据库失败: %w", err)
	}
	defer store.Close()

	policy.Workers = cfg.Retention.Workers
	policy.BatchRows = cfg.Retention.BatchRows
	policy.IdleSleep = cfg.Retention.IdleSleep

	collector, err := retention.NewCollector(store, policy)
	if err != nil {
		return retention.Result{}, err
	}

	now := time.Now().UTC()
	fmt.Printf("Pruning %s older than %s (before %s)...\n", what, keep, now.Add(-keep).Format(time.RFC3339))
	res, err := collector.Prune(ctx, now)
	if err != nil {
		return res, fmt.Errorf("清理失败: %w", err)
	}

	if st, err := store.Stats(ctx); err == nil {
		fmt.Printf("Remaining: %d turns, %d audit records\n", st.Turns, st.AuditRecords)
	}
	return res, nil
}
