package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wwwzy/RagAgent/internal/agent"
)

type ConsoleChatUI struct {
	In  io.Reader
	Out io.Writer
}

func (u *ConsoleChatUI) Run(ctx context.Context, backend ChatBackend, opts ChatOptions) error {
	in := u.In
	if in == nil {
		return fmt.Errorf("console ui: In is nil")
	}
	out := u.Out
	if out == nil {
		return fmt.Errorf("console ui: Out is nil")
	}

	reader := bufio.NewReader(in)
	sessionID := opts.SessionID

	fmt.Fprintln(out, "进入 RagAgent 对话模式。输入 exit/quit 退出。")
	if sessionID != "" {
		fmt.Fprintf(out, "会话: %s\n", sessionID)
	}
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "已退出。")
			return nil
		default:
		}

		fmt.Fprint(out, "你: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("读取输入失败: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit":
			fmt.Fprintln(out, "已退出。")
			return nil
		}

		resp, err := backend.Answer(ctx, agent.Request{
			Question:  line,
			SessionID: sessionID,
			ModelID:   opts.ModelID,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, "已退出。")
				return nil
			}
			// 单轮失败不结束会话，用户可以继续提问
			fmt.Fprintf(out, "助手: (出错) %v\n\n", err)
			continue
		}
		if sessionID == "" {
			sessionID = resp.SessionID
			fmt.Fprintf(out, "(会话: %s)\n", sessionID)
		}

		printAnswer(out, resp.Answer)
		fmt.Fprintln(out)
	}
}

func printAnswer(w io.Writer, answer string) {
	content := strings.TrimSpace(answer)
	if content == "" {
		fmt.Fprintln(w, "助手: (无文本输出)")
		return
	}
	fmt.Fprintf(w, "助手: %s\n", content)
}
