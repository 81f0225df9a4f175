package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cinema-agent/logger"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time         { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMetrics() (*Metrics, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	m := NewMetrics()
	m.now = clock.now
	return m, clock
}

func TestMetrics_Cycles(t *testing.T) {
	m, clock := newTestMetrics()

	m.StartCycle()
	clock.advance(1500 * time.Millisecond)
	m.StartCycle()
	clock.advance(750 * time.Millisecond)
	m.EndCycle()
	m.EndCycle()

	m.StartCycle()
	clock.advance(time.Second)

	snap := m.Snapshot()
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 750 * time.Millisecond, time.Second}, snap.CycleDurations)
}

func TestMetrics_ToolsInFirstUseOrder(t *testing.T) {
	m, _ := newTestMetrics()

	m.RecordTool("browser", time.Second, true)
	m.RecordTool("calculator", time.Millisecond, true)
	m.RecordTool("browser", 2*time.Second, false)

	snap := m.Snapshot()
	assert.Equal(t, []string{"browser", "calculator"}, snap.ToolsUsed())
	assert.Equal(t, ToolMetric{CallCount: 2, SuccessCount: 1, ErrorCount: 1, TotalTime: 3 * time.Second}, snap.ToolMetrics["browser"])

	// snapshots are copies
	snap.ToolOrder[0] = "changed"
	assert.Equal(t, "browser", m.Snapshot().ToolOrder[0])
}

func TestMetrics_Handler(t *testing.T) {
	m, clock := newTestMetrics()
	h := m.Handler()
	ctx := context.Background()

	modelInfo := &callbacks.RunInfo{Name: "openai", Component: components.ComponentOfChatModel}
	h.OnStart(ctx, modelInfo, &model.CallbackInput{})
	clock.advance(2 * time.Second)
	h.OnEnd(ctx, modelInfo, &model.CallbackOutput{TokenUsage: &model.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}})

	calcInfo := &callbacks.RunInfo{Name: "calculator", Component: components.ComponentOfTool}
	toolCtx := h.OnStart(ctx, calcInfo, &tool.CallbackInput{ArgumentsInJSON: `{"expression": "1+1"}`})
	clock.advance(300 * time.Millisecond)
	h.OnEnd(toolCtx, calcInfo, &tool.CallbackOutput{Response: "1+1 = 2"})

	browserInfo := &callbacks.RunInfo{Name: "browser", Component: components.ComponentOfTool}
	toolCtx = h.OnStart(ctx, browserInfo, &tool.CallbackInput{})
	h.OnEnd(toolCtx, browserInfo, &tool.CallbackOutput{Response: "[ERROR] navigate: timeout"})
	toolCtx = h.OnStart(ctx, browserInfo, &tool.CallbackInput{})
	h.OnError(toolCtx, browserInfo, errors.New("boom"))

	h.OnStart(ctx, modelInfo, &model.CallbackInput{})
	clock.advance(500 * time.Millisecond)
	h.OnEnd(ctx, modelInfo, &model.CallbackOutput{TokenUsage: &model.TokenUsage{PromptTokens: 150, CompletionTokens: 30}})

	snap := m.Snapshot()
	assert.Equal(t, Usage{InputTokens: 250, OutputTokens: 50, TotalTokens: 300}, snap.AccumulatedUsage)
	assert.Equal(t, []time.Duration{2300 * time.Millisecond, 500 * time.Millisecond}, snap.CycleDurations)
	assert.Equal(t, []string{"calculator", "browser"}, snap.ToolOrder)
	assert.Equal(t, ToolMetric{CallCount: 1, SuccessCount: 1, TotalTime: 300 * time.Millisecond}, snap.ToolMetrics["calculator"])
	assert.Equal(t, 2, snap.ToolMetrics["browser"].ErrorCount)
}

func TestSummarize(t *testing.T) {
	s := Summarize(RunMetrics{
		AccumulatedUsage: Usage{TotalTokens: 48213},
		CycleDurations:   []time.Duration{12*time.Second + 4*time.Millisecond, 3*time.Second + 2*time.Millisecond},
		ToolOrder:        []string{"browser", "calculator", "file_write"},
	})

	assert.Equal(t, 48213, s.TotalTokens)
	assert.Equal(t, 15.01, s.ExecutionSeconds)
	assert.Equal(t, []string{"browser", "calculator", "file_write"}, s.ToolsUsed)
}

func TestLogSummary(t *testing.T) {
	var buf bytes.Buffer
	l, _ := logger.New(logger.Config{Output: &buf})

	LogSummary(l, Summary{TotalTokens: 1234, ExecutionSeconds: 2.5, ToolsUsed: []string{"browser", "calculator"}})

	out := buf.String()
	assert.Contains(t, out, `msg="Total tokens: 1234"`)
	assert.Contains(t, out, `msg="Execution time: 2.50 seconds"`)
	assert.Contains(t, out, `msg="Tools used: [browser calculator]"`)
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("level=INFO")))
}

func TestTranscript_CompressesToolResponses(t *testing.T) {
	tr := NewTranscript(100)
	long := strings.Repeat("Film line.\n", 30)

	tr.Add(nil)
	tr.Add(&schema.Message{Role: schema.Tool, Content: long, ToolName: "browser"})
	tr.Add(&schema.Message{Role: schema.Assistant, Content: long})

	msgs := tr.List()
	require.Len(t, msgs, 2)
	assert.Less(t, len(msgs[0].Content), len(long))
	assert.Contains(t, msgs[0].Content, "[Content truncated: original 330 chars")
	assert.Equal(t, "browser", msgs[0].ToolName)
	assert.Equal(t, long, msgs[1].Content)
}

func TestTranscript_KeepsMultiByteCharactersWhole(t *testing.T) {
	tr := NewTranscript(100)
	content := "a" + strings.Repeat("é", 100)

	tr.Add(&schema.Message{Role: schema.Tool, Content: content, ToolCallID: "call-1"})

	got := tr.List()[0]
	assert.True(t, utf8.ValidString(got.Content))
	assert.True(t, strings.HasPrefix(got.Content, "a"+strings.Repeat("é", 49)+"\n\n[Content truncated"))
	assert.Equal(t, "call-1", got.ToolCallID)
}
