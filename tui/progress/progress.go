// Package progress 在 stderr 上显示 Agent 运行状态（spinner + 当前工具）
package progress

import (
	"context"
	"fmt"
	"io"

	"cinema-agent/pubsub"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

// closedMsg 订阅通道已关闭
type closedMsg struct{}

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model 状态行模型
type Model struct {
	spinner   spinner.Model
	sub       <-chan pubsub.Event[adk.Message]
	running   bool
	done      bool
	text      string
	tool      string
	toolCalls int
}

// New 创建订阅 sub 的状态行
func New(sub <-chan pubsub.Event[adk.Message]) Model {
	s := spinner.New()
	s.Spinner = spinner.Jump
	s.Style = spinnerStyle

	return Model{
		spinner: s,
		sub:     sub,
		text:    "Waiting...",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent 等待下一个 Agent 事件的 Cmd
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sub
		if !ok {
			return closedMsg{}
		}
		return event
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case closedMsg:
		m.running = false
		m.done = true
		return m, tea.Quit

	case pubsub.Event[adk.Message]:
		m = m.apply(msg)
		if m.done {
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) apply(event pubsub.Event[adk.Message]) Model {
	msg := event.Payload
	switch event.Type {
	case pubsub.CreatedEvent:
		if msg == nil {
			return m
		}
		m.running = true
		switch msg.Role {
		case schema.User:
			m.text = "Analyzing the listings..."
		case schema.Tool:
			m.text = "Reading tool results..."
		case schema.Assistant:
			if len(msg.ToolCalls) == 0 {
				m.text = "Writing the answer..."
			}
		}
	case pubsub.UpdatedEvent:
		// 工具调用
		if msg != nil && msg.ToolName != "" {
			m.toolCalls++
			m.tool = msg.ToolName
			m.text = "Running"
		}
	case pubsub.FinishedEvent:
		m.running = false
		m.done = true
		m.text = "Done"
	}
	return m
}

func (m Model) View() string {
	if m.done {
		return dimStyle.Render(fmt.Sprintf("✓ %s (%d tool calls)", m.text, m.toolCalls)) + "\n"
	}

	line := m.text
	if m.tool != "" && m.text == "Running" {
		line = "Running " + toolStyle.Render(m.tool)
	}
	if m.running {
		line = fmt.Sprintf("%s %s", m.spinner.View(), line)
	}
	return line + dimStyle.Render(fmt.Sprintf(" · tools: %d", m.toolCalls)) + "\n"
}

// ToolCalls 返回已看到的工具调用数
func (m Model) ToolCalls() int { return m.toolCalls }

// Done 返回运行是否已结束
func (m Model) Done() bool { return m.done }

// Start 在后台运行状态行，返回的 stop 会等待程序退出
func Start(ctx context.Context, sub <-chan pubsub.Event[adk.Message], out io.Writer) (stop func()) {
	p := tea.NewProgram(New(sub),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()

	return func() {
		p.Quit()
		<-done
	}
}
