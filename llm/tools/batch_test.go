package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoParams struct {
	Value string `json:"value"`
	Delay int    `json:"delay_ms"`
}

func echoTool(t *testing.T, name string) tool.InvokableTool {
	t.Helper()
	et, err := utils.InferTool(name, "echo", func(ctx context.Context, p echoParams) (string, error) {
		if p.Value == "fail" {
			return "", errors.New("boom")
		}
		select {
		case <-time.After(time.Duration(p.Delay) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return name + ":" + p.Value, nil
	})
	require.NoError(t, err)
	return et
}

func TestBatcher_PreservesOrder(t *testing.T) {
	b, err := NewBatcher(context.Background(), []tool.InvokableTool{echoTool(t, "a"), echoTool(t, "b")})
	require.NoError(t, err)

	results := b.Run(context.Background(), []BatchInvocation{
		{Name: "a", Arguments: map[string]any{"value": "1", "delay_ms": 60}},
		{Name: "b", Arguments: map[string]any{"value": "2", "delay_ms": 30}},
		{Name: "a", Arguments: map[string]any{"value": "3"}},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "a:1", results[0].Result)
	assert.Equal(t, "b:2", results[1].Result)
	assert.Equal(t, "a:3", results[2].Result)
	for _, r := range results {
		assert.Equal(t, string(StatusSuccess), r.Status)
	}
}

func TestBatcher_ReportsErrorsPerInvocation(t *testing.T) {
	b, err := NewBatcher(context.Background(), []tool.InvokableTool{echoTool(t, "a")})
	require.NoError(t, err)

	out, err := b.Batch(context.Background(), BatchParams{Invocations: []BatchInvocation{
		{Name: "a", Arguments: map[string]any{"value": "ok"}},
		{Name: "a", Arguments: map[string]any{"value": "fail"}},
		{Name: "missing"},
	}})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "[PARTIAL] "))

	var results []BatchResult
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(out, "[PARTIAL] ")), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "a:ok", results[0].Result)
	assert.Equal(t, string(StatusError), results[1].Status)
	assert.Contains(t, results[1].Error, "boom")
	assert.Contains(t, results[2].Error, `unknown tool "missing"`)
}

func TestBatcher_Limits(t *testing.T) {
	b, err := NewBatcher(context.Background(), []tool.InvokableTool{echoTool(t, "a")})
	require.NoError(t, err)

	out, _ := b.Batch(context.Background(), BatchParams{})
	assert.Contains(t, out, "[ERROR] invocations must not be empty")

	out, _ = b.Batch(context.Background(), BatchParams{Invocations: make([]BatchInvocation, MaxBatchInvocations+1)})
	assert.Contains(t, out, "too many invocations")

	_, err = NewBatcher(context.Background(), []tool.InvokableTool{echoTool(t, "a"), echoTool(t, "a")})
	assert.Error(t, err)
}

func TestBatchTool_OverCalculator(t *testing.T) {
	calc, err := GetCalculatorTool()
	require.NoError(t, err)
	bt, err := GetBatchTool(context.Background(), []tool.InvokableTool{calc})
	require.NoError(t, err)

	out, err := bt.InvokableRun(context.Background(),
		`{"invocations": [{"name": "calculator", "arguments": {"expression": "1 + 1"}}, {"name": "calculator", "arguments": {"expression": "2 * 3"}}]}`)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "1 + 1 = 2"), strings.Index(out, "2 * 3 = 6"))
	assert.NotContains(t, out, "[PARTIAL]")
}
