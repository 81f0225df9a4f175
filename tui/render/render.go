// Package render 把 Agent 的最终回答渲染成终端 Markdown
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Styles 回答的标题样式
type Styles struct {
	Header lipgloss.Style
	Footer lipgloss.Style
}

// DefaultStyles 默认样式
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Footer: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Renderer 回答渲染器
type Renderer struct {
	markdown *glamour.TermRenderer
	styles   Styles
}

// New 创建渲染器；style 为空时根据终端自动选择，width 为 0 时不换行
func New(style string, width int) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}

	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 Markdown 渲染器失败: %w", err)
	}
	return &Renderer{markdown: md, styles: DefaultStyles()}, nil
}

// Markdown 渲染 Markdown 内容，失败时返回原文
func (r *Renderer) Markdown(content string) string {
	if r.markdown == nil {
		return content
	}
	rendered, err := r.markdown.Render(content)
	if err != nil {
		return content
	}
	// glamour 会添加前后换行
	return strings.TrimSpace(rendered)
}

// Answer 渲染带标题的最终回答，reportPath 非空时附上报告位置
func (r *Renderer) Answer(title, content, reportPath string) string {
	var sb strings.Builder
	sb.WriteString(r.styles.Header.Render(title + ":"))
	sb.WriteString("\n\n")
	sb.WriteString(r.Markdown(content))
	sb.WriteString("\n")
	if reportPath != "" {
		sb.WriteString("\n")
		sb.WriteString(r.styles.Footer.Render("Report: " + reportPath))
		sb.WriteString("\n")
	}
	return sb.String()
}
