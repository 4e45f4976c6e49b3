package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"
	"github.com/wwwzy/RagAgent/internal/agent"
	"github.com/wwwzy/RagAgent/internal/ui"
)

type ChatUI struct{}

func (u *ChatUI) Run(ctx context.Context, backend ui.ChatBackend, opts ui.ChatOptions) error {
	m := newChatModel(ctx, backend, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type backendResultMsg struct {
	resp agent.Response
	err  error
}

type streamTickMsg struct{}
type cancelMsg struct{}

// entry 为界面上的一条气泡；错误提示不写入会话，只在本地展示。
type entry struct {
	role    schema.RoleType
	content string
	failed  bool
}

type chatModel struct {
	ctx     context.Context
	backend ui.ChatBackend
	opts    ui.ChatOptions

	sessionID string
	entries   []entry

	width  int
	height int

	viewport   viewport.Model
	input      textinput.Model
	spinner    spinner.Model
	thinking   bool
	followTail bool

	streaming  bool
	streamIdx  int
	streamPos  int
	streamFull string

	renderer *glamour.TermRenderer
}

func newChatModel(ctx context.Context, backend ui.ChatBackend, opts ui.ChatOptions) chatModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	ti := textinput.New()
	ti.Placeholder = "输入问题，回车发送"
	ti.Prompt = ""
	ti.Focus()

	vp := viewport.New(0, 0)
	vp.SetContent("")

	return chatModel{
		ctx:        ctx,
		backend:    backend,
		opts:       opts,
		sessionID:  opts.SessionID,
		viewport:   vp,
		input:      ti,
		spinner:    s,
		followTail: true,
		streamIdx:  -1,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitCancel(m.ctx))
}

func waitCancel(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return cancelMsg{}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cancelMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		inputHeight := 3
		footerHeight := 1
		chatHeight := m.height - inputHeight - footerHeight
		if chatHeight < 1 {
			chatHeight = 1
		}

		m.viewport.Width = m.width
		m.viewport.Height = chatHeight

		m.input.Width = max(10, m.width-4)

		m.resetMarkdownRenderer()
		m.updateViewportContent(m.renderChat())
		return m, nil

	case spinner.TickMsg:
		if m.thinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case backendResultMsg:
		m.thinking = false
		m.followTail = true
		if msg.err != nil {
			m.entries = append(m.entries, entry{
				role:    schema.Assistant,
				content: fmt.Sprintf("发生错误：%v", msg.err),
				failed:  true,
			})
			m.updateViewportContent(m.renderChat())
			return m, nil
		}

		if m.sessionID == "" {
			m.sessionID = msg.resp.SessionID
		}
		m.entries = append(m.entries, entry{role: schema.Assistant, content: msg.resp.Answer})
		m.startStreaming(len(m.entries) - 1)
		m.updateViewportContent(m.renderChat())
		if m.streaming {
			return m, streamTick()
		}
		return m, nil

	case streamTickMsg:
		if !m.streaming {
			return m, nil
		}
		m.streamPos = min(len(m.streamFull), m.streamPos+32)
		if m.streamPos >= len(m.streamFull) {
			m.streaming = false
		}
		m.updateViewportContent(m.renderChat())
		if m.streaming {
			return m, streamTick()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "pgup", "pageup":
			m.viewport.PageUp()
			m.followTail = false
			return m, nil
		case "pgdown", "pagedown":
			m.viewport.PageDown()
			if m.viewport.AtBottom() {
				m.followTail = true
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)

		if msg.String() == "enter" {
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.thinking {
				return m, cmd
			}
			switch strings.ToLower(text) {
			case "exit", "quit":
				return m, tea.Quit
			}

			m.entries = append(m.entries, entry{role: schema.User, content: text})
			m.followTail = true
			m.updateViewportContent(m.renderChat())

			m.input.SetValue("")
			m.thinking = true
			req := agent.Request{Question: text, SessionID: m.sessionID, ModelID: m.opts.ModelID}
			return m, tea.Batch(cmd, m.spinner.Tick, invokeBackend(m.ctx, m.backend, req))
		}

		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) View() string {
	title := "RagAgent Chat"
	if m.sessionID != "" {
		title += lipgloss.NewStyle().Faint(true).Render("  session " + m.sessionID)
	}
	header := lipgloss.NewStyle().Bold(true).Render(title)

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), m.inputView(), m.footerView())
}

func (m chatModel) footerView() string {
	left := "Enter 发送 | PgUp/PgDn 滚动 | Ctrl+C 退出"
	right := ""
	if m.thinking {
		right = m.spinner.View() + " Thinking..."
	}
	style := lipgloss.NewStyle().Width(m.width).Padding(0, 1)
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Left, left, lipgloss.NewStyle().Width(max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)-2)).Render(""), right))
}

func (m chatModel) inputView() string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(max(1, m.input.Width+2)).
		Render(m.input.View())
}

func (m *chatModel) updateViewportContent(content string) {
	oldYOffset := m.viewport.YOffset
	m.viewport.SetContent(content)
	if m.followTail {
		m.viewport.GotoBottom()
		return
	}
	m.viewport.SetYOffset(oldYOffset)
}

func invokeBackend(ctx context.Context, backend ui.ChatBackend, req agent.Request) tea.Cmd {
	return func() tea.Msg {
		resp, err := backend.Answer(ctx, req)
		return backendResultMsg{resp: resp, err: err}
	}
}

func streamTick() tea.Cmd {
	return tea.Tick(45*time.Millisecond, func(time.Time) tea.Msg { return streamTickMsg{} })
}

// startStreaming 以打字机效果逐段展示第 idx 条回答。
func (m *chatModel) startStreaming(idx int) {
	m.streaming = false
	m.streamIdx = -1
	m.streamFull = ""
	m.streamPos = 0

	if idx < 0 || idx >= len(m.entries) {
		return
	}
	content := m.entries[idx].content
	if strings.TrimSpace(content) == "" {
		return
	}
	m.streaming = true
	m.streamIdx = idx
	m.streamFull = content
	m.streamPos = min(len(content), 32)
}

func (m *chatModel) resetMarkdownRenderer() {
	if m.width <= 0 {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.bubbleMaxContentWidth()),
	)
	if err == nil {
		m.renderer = r
	}
}

func (m chatModel) renderChat() string {
	if m.width <= 0 {
		m.width = 80
	}

	var b strings.Builder
	for i, e := range m.entries {
		content := e.content
		if m.streaming && m.streamIdx == i {
			content = m.streamFull[:m.streamPos]
			if strings.TrimSpace(content) == "" {
				content = "…"
			}
		}
		content = strings.TrimRight(content, "\n")

		var line string
		switch {
		case e.role == schema.User:
			line = m.renderUser(content)
		case e.failed:
			line = m.renderNotice(content)
		default:
			line = m.renderAssistant(content)
		}
		b.WriteString(line)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m chatModel) bubbleMaxContentWidth() int {
	if m.width <= 0 {
		return 72
	}
	return max(20, m.width-8)
}

func (m chatModel) desiredContentWidth(s string) int {
	w := max(10, maxLineWidth(s))
	return min(m.bubbleMaxContentWidth(), w)
}

func (m chatModel) wrapToWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func maxLineWidth(s string) int {
	s = strings.TrimRight(s, "\n")
	if strings.TrimSpace(s) == "" {
		return 0
	}
	maxW := 0
	for _, line := range strings.Split(s, "\n") {
		if w := lipgloss.Width(strings.TrimRight(line, " ")); w > maxW {
			maxW = w
		}
	}
	return maxW
}

func (m chatModel) renderAssistant(content string) string {
	md := content
	if m.renderer != nil && strings.TrimSpace(md) != "" {
		if rendered, err := m.renderer.Render(md); err == nil {
			md = strings.TrimRight(rendered, "\n")
		}
	}
	md = m.wrapToWidth(md, m.desiredContentWidth(md))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1).
		MaxWidth(max(20, m.width-4)).
		Render(md)
}

func (m chatModel) renderUser(content string) string {
	content = m.wrapToWidth(content, m.desiredContentWidth(content))
	bubble := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("205")).
		Padding(0, 1).
		MaxWidth(max(20, m.width-4)).
		Render(content)
	return lipgloss.NewStyle().Width(m.width).Align(lipgloss.Right).Render(bubble)
}

func (m chatModel) renderNotice(content string) string {
	body := m.wrapToWidth(content, m.desiredContentWidth(content))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Foreground(lipgloss.Color("245")).
		Padding(0, 1).
		MaxWidth(max(20, m.width-4)).
		Render(body)
}
