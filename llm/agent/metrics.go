package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
)

// Usage 累计的 token 用量
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// ToolMetric 单个工具的调用统计
type ToolMetric struct {
	CallCount    int
	SuccessCount int
	ErrorCount   int
	TotalTime    time.Duration
}

// RunMetrics 一次运行结束后的只读快照
type RunMetrics struct {
	AccumulatedUsage Usage
	CycleDurations   []time.Duration
	ToolMetrics      map[string]ToolMetric
	// ToolOrder 按首次使用顺序记录工具名
	ToolOrder []string
}

// ToolsUsed 返回首次使用顺序的工具名
func (m RunMetrics) ToolsUsed() []string {
	return append([]string{}, m.ToolOrder...)
}

// Metrics 通过 eino 回调收集 token、循环耗时和工具统计
type Metrics struct {
	now func() time.Time

	mu         sync.Mutex
	usage      Usage
	cycles     []time.Duration
	cycleStart time.Time
	cycleOpen  bool
	tools      map[string]*ToolMetric
	order      []string
}

// NewMetrics 创建空的指标收集器
func NewMetrics() *Metrics {
	return &Metrics{now: time.Now, tools: make(map[string]*ToolMetric)}
}

// StartCycle 开启新循环，同时结束上一个循环
func (m *Metrics) StartCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now()
	m.closeCycle(t)
	m.cycleStart = t
	m.cycleOpen = true
}

// EndCycle 结束当前循环
func (m *Metrics) EndCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCycle(m.now())
}

func (m *Metrics) closeCycle(t time.Time) {
	if !m.cycleOpen {
		return
	}
	m.cycles = append(m.cycles, t.Sub(m.cycleStart))
	m.cycleOpen = false
}

// AddUsage 累加一次模型调用的 token 用量
func (m *Metrics) AddUsage(input, output, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if total == 0 {
		total = input + output
	}
	m.usage.InputTokens += input
	m.usage.OutputTokens += output
	m.usage.TotalTokens += total
}

// RecordTool 记录一次工具调用
func (m *Metrics) RecordTool(name string, d time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tm, exists := m.tools[name]
	if !exists {
		tm = &ToolMetric{}
		m.tools[name] = tm
		m.order = append(m.order, name)
	}
	tm.CallCount++
	tm.TotalTime += d
	if ok {
		tm.SuccessCount++
	} else {
		tm.ErrorCount++
	}
}

// Snapshot 结束未关闭的循环并返回当前统计的副本
func (m *Metrics) Snapshot() RunMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCycle(m.now())

	out := RunMetrics{
		AccumulatedUsage: m.usage,
		CycleDurations:   append([]time.Duration{}, m.cycles...),
		ToolMetrics:      make(map[string]ToolMetric, len(m.tools)),
		ToolOrder:        append([]string{}, m.order...),
	}
	for name, tm := range m.tools {
		out.ToolMetrics[name] = *tm
	}
	return out
}

type toolStartKey struct{}

// Handler 返回挂到 eino 全局回调上的处理器
func (m *Metrics) Handler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			if info == nil {
				return ctx
			}
			switch info.Component {
			case components.ComponentOfChatModel:
				m.StartCycle()
			case components.ComponentOfTool:
				return context.WithValue(ctx, toolStartKey{}, m.now())
			}
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			if info == nil {
				return ctx
			}
			switch info.Component {
			case components.ComponentOfChatModel:
				if out := model.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
					m.AddUsage(out.TokenUsage.PromptTokens, out.TokenUsage.CompletionTokens, out.TokenUsage.TotalTokens)
				}
			case components.ComponentOfTool:
				ok := true
				if out := tool.ConvCallbackOutput(output); out != nil {
					ok = !strings.HasPrefix(out.Response, "[ERROR]")
				}
				m.RecordTool(info.Name, m.since(ctx), ok)
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, _ error) context.Context {
			if info != nil && info.Component == components.ComponentOfTool {
				m.RecordTool(info.Name, m.since(ctx), false)
			}
			return ctx
		}).
		Build()
}

func (m *Metrics) since(ctx context.Context) time.Duration {
	start, ok := ctx.Value(toolStartKey{}).(time.Time)
	if !ok {
		return 0
	}
	return m.now().Sub(start)
}

// Summary 运行结束时输出的三项指标
type Summary struct {
	TotalTokens      int
	ExecutionSeconds float64
	ToolsUsed        []string
}

// Summarize 汇总 token 总数、循环耗时（保留两位小数）和使用过的工具
func Summarize(m RunMetrics) Summary {
	var total time.Duration
	for _, d := range m.CycleDurations {
		total += d
	}
	return Summary{
		TotalTokens:      m.AccumulatedUsage.TotalTokens,
		ExecutionSeconds: math.Round(total.Seconds()*100) / 100,
		ToolsUsed:        m.ToolsUsed(),
	}
}

// LogSummary 以三行 info 日志输出汇总
func LogSummary(l *slog.Logger, s Summary) {
	l.Info(fmt.Sprintf("Total tokens: %d", s.TotalTokens))
	l.Info(fmt.Sprintf("Execution time: %.2f seconds", s.ExecutionSeconds))
	l.Info(fmt.Sprintf("Tools used: %v", s.ToolsUsed))
}
