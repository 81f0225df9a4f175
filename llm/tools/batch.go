package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"golang.org/x/sync/errgroup"
)

const (
	// BatchToolName is the name of the batch executor tool
	BatchToolName = "batch"

	// MaxBatchInvocations caps how many calls one batch may carry
	MaxBatchInvocations = 20
	// batchConcurrency bounds parallel invocations inside one batch
	batchConcurrency = 4
)

// BatchInvocation is one tool call inside a batch.
type BatchInvocation struct {
	Name      string         `json:"name" jsonschema:"description=Name of the tool to invoke"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"description=Arguments object for the tool"`
}

// BatchParams defines parameters for the batch tool.
type BatchParams struct {
	Invocations []BatchInvocation `json:"invocations" jsonschema:"description=Tool calls to run in parallel"`
}

// BatchResult is the outcome of one invocation, reported in input order.
type BatchResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

const batchDescription = `Invoke several tools in parallel and collect their results.

Use it for independent calls, for example computing several values with calculator
or asking the time in more than one timezone. Results are returned in the same order
as the invocations; a failing call does not stop the others.

PARAMETERS:
- invocations (required): list of {"name": <tool name>, "arguments": {...}}

EXAMPLE:
{"invocations": [
  {"name": "calculator", "arguments": {"expression": "95 + 20"}},
  {"name": "current_time", "arguments": {"timezone": "Europe/Madrid"}}
]}`

// Batcher dispatches invocations to a fixed set of tools.
type Batcher struct {
	tools map[string]tool.InvokableTool
	names []string
}

// NewBatcher indexes tools by their declared names.
func NewBatcher(ctx context.Context, tools []tool.InvokableTool) (*Batcher, error) {
	b := &Batcher{tools: make(map[string]tool.InvokableTool, len(tools))}
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("read tool info: %w", err)
		}
		if _, dup := b.tools[info.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", info.Name)
		}
		b.tools[info.Name] = t
		b.names = append(b.names, info.Name)
	}
	return b, nil
}

// Run executes every invocation and returns their results in order.
func (b *Batcher) Run(ctx context.Context, invocations []BatchInvocation) []BatchResult {
	results := make([]BatchResult, len(invocations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, inv := range invocations {
		g.Go(func() error {
			results[i] = b.invoke(gctx, inv)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (b *Batcher) invoke(ctx context.Context, inv BatchInvocation) BatchResult {
	res := BatchResult{Name: inv.Name, Status: string(StatusError)}

	t, ok := b.tools[inv.Name]
	if !ok {
		res.Error = fmt.Sprintf("unknown tool %q; available: %s", inv.Name, strings.Join(b.names, ", "))
		return res
	}

	args := inv.Arguments
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		res.Error = fmt.Sprintf("encode arguments: %v", err)
		return res
	}

	out, err := t.InvokableRun(ctx, string(raw))
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Status = string(StatusSuccess)
	res.Result = out
	return res
}

// Batch implements the batch tool.
func (b *Batcher) Batch(ctx context.Context, params BatchParams) (string, error) {
	if len(params.Invocations) == 0 {
		return Error("invocations must not be empty")
	}
	if len(params.Invocations) > MaxBatchInvocations {
		return Errorf("too many invocations: %d (max %d)", len(params.Invocations), MaxBatchInvocations)
	}

	results := b.Run(ctx, params.Invocations)

	failed := 0
	for _, r := range results {
		if r.Status != string(StatusSuccess) {
			failed++
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return Errorf("encode results: %v", err)
	}
	if failed > 0 {
		return Partial(string(data), nil)
	}
	return Success(string(data), nil)
}

// GetBatchTool returns the batch tool over the given tools.
func GetBatchTool(ctx context.Context, tools []tool.InvokableTool) (tool.InvokableTool, error) {
	b, err := NewBatcher(ctx, tools)
	if err != nil {
		return nil, err
	}
	return utils.InferTool(BatchToolName, batchDescription, b.Batch)
}
