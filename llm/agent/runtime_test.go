package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinema-agent/pubsub"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolCallEvent(name, args string) *adk.AgentEvent {
	msg := schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call-1",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
	return adk.EventFromMessage(msg, nil, schema.Assistant, "")
}

func newScriptedRuntime(t *testing.T, events ...*adk.AgentEvent) (*Runtime, *scriptedAgent) {
	t.Helper()
	agt := &scriptedAgent{events: events}
	rt, err := NewRuntime(context.Background(), RuntimeConfig{
		Factory: (&recordingFactory{agent: agt}).build,
		Agent:   MovieAdvisorConfig{Tools: newToolset(t)},
	})
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt, agt
}

func collect(ch <-chan pubsub.Event[adk.Message], n int) []pubsub.Event[adk.Message] {
	var out []pubsub.Event[adk.Message]
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case e := <-ch:
			out = append(out, e)
		case <-timeout:
			return out
		}
	}
	return out
}

func TestRuntime_Invoke(t *testing.T) {
	rt, agt := newScriptedRuntime(t,
		toolCallEvent("current_time", `{"timezone": "Europe/Madrid"}`),
		adk.EventFromMessage(schema.ToolMessage("2025-03-15T11:00:00+01:00 (Saturday)", "call-1"), nil, schema.Tool, "current_time"),
		adk.EventFromMessage(schema.AssistantMessage("| Title | Genre |", nil), nil, schema.Assistant, ""),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := rt.Broker().Subscribe(ctx)

	res, err := rt.Invoke(context.Background(), "Which film on Saturday?")
	require.NoError(t, err)

	assert.Equal(t, 1, agt.runs)
	assert.Equal(t, "| Title | Genre |", res.Answer)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Messages, 4)
	assert.Equal(t, schema.User, res.Messages[0].Role)
	assert.Equal(t, schema.Tool, res.Messages[2].Role)

	// user, tool call, tool update, tool result, answer, finished
	events := collect(sub, 6)
	require.Len(t, events, 6)
	assert.Equal(t, pubsub.CreatedEvent, events[0].Type)
	assert.Equal(t, "Which film on Saturday?", events[0].Payload.Content)
	assert.Equal(t, pubsub.UpdatedEvent, events[2].Type)
	assert.Equal(t, "current_time", events[2].Payload.ToolName)
	assert.Equal(t, pubsub.FinishedEvent, events[5].Type)
	assert.Equal(t, "| Title | Genre |", events[5].Payload.Content)
}

func TestRuntime_InvokeReturnsFirstError(t *testing.T) {
	rt, agt := newScriptedRuntime(t,
		toolCallEvent("browser", `{"action": "navigate"}`),
		&adk.AgentEvent{Err: errors.New("model throttled")},
		adk.EventFromMessage(schema.AssistantMessage("never reached", nil), nil, schema.Assistant, ""),
	)

	res, err := rt.Invoke(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model throttled")
	assert.Contains(t, err.Error(), "运行 Agent 失败")
	assert.Equal(t, 1, agt.runs, "no retry")
	require.NotNil(t, res)
	assert.Empty(t, res.Answer)
}

func TestRuntime_InvokeWithoutAnswerIsNotAnError(t *testing.T) {
	rt, _ := newScriptedRuntime(t, toolCallEvent("calculator", `{"expression": "1+1"}`))

	res, err := rt.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, res.Answer)
	assert.NotEmpty(t, res.Messages)
}

func TestRuntime_InvokeEmptyFinalMessageKeepsMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.AddUsage(40, 2, 0)
	metrics.RecordTool("file_write", time.Millisecond, true)

	agt := &scriptedAgent{events: []*adk.AgentEvent{
		toolCallEvent("file_write", `{"path": "reports/20250315.md", "content": "| Title |"}`),
		adk.EventFromMessage(schema.ToolMessage("ok", "call-1"), nil, schema.Tool, "file_write"),
		adk.EventFromMessage(schema.AssistantMessage("", nil), nil, schema.Assistant, ""),
	}}
	rt, err := NewRuntime(context.Background(), RuntimeConfig{
		Factory: (&recordingFactory{agent: agt}).build,
		Agent:   MovieAdvisorConfig{Tools: newToolset(t)},
		Metrics: metrics,
	})
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	res, err := rt.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, res.Answer)

	summary := Summarize(res.Metrics)
	assert.Equal(t, 42, summary.TotalTokens)
	assert.Equal(t, []string{"file_write"}, summary.ToolsUsed)
}
