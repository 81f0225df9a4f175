package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ToolExtra keys for ToolInfo.Extra map
const (
	// ToolExtraCapability marks what kind of remote-style capability a tool provides.
	// Usage: Extra: map[string]any{tools.ToolExtraCapability: tools.CapabilityBrowser}
	ToolExtraCapability = "capability"
)

// Capability classifies tools that stand in for sandboxed services.
type Capability string

const (
	CapabilityNone            Capability = ""
	CapabilityBrowser         Capability = "browser"
	CapabilityCodeInterpreter Capability = "code_interpreter"
)

// ResultStatus represents the status of a tool execution
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
	StatusPartial ResultStatus = "partial"
)

// Metadata contains structured metadata about tool execution
type Metadata struct {
	// File operations
	FilePath  string `json:"file_path,omitempty"`
	ByteCount int    `json:"byte_count,omitempty"`

	// Code execution
	Language string `json:"language,omitempty"`
	Duration int64  `json:"duration_ms,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
	Timeout  bool   `json:"timeout,omitempty"`

	// Browser
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
}

// ToolResult represents a structured tool response
type ToolResult struct {
	Status   ResultStatus `json:"status"`
	Content  string       `json:"content"`
	Metadata *Metadata    `json:"metadata,omitempty"`
}

// String returns the formatted string representation for LLM consumption
func (r *ToolResult) String() string {
	var sb strings.Builder

	switch r.Status {
	case StatusError:
		sb.WriteString("[ERROR] ")
	case StatusPartial:
		sb.WriteString("[PARTIAL] ")
	}

	sb.WriteString(r.Content)

	if attrs := r.Metadata.attrs(); len(attrs) > 0 {
		sb.WriteString(fmt.Sprintf("\n\n<metadata %s />", strings.Join(attrs, " ")))
	}

	return sb.String()
}

func (md *Metadata) attrs() []string {
	if md == nil {
		return nil
	}

	var attrs []string
	if md.FilePath != "" {
		attrs = append(attrs, fmt.Sprintf("file=%s", md.FilePath))
	}
	if md.ByteCount > 0 {
		attrs = append(attrs, fmt.Sprintf("bytes=%d", md.ByteCount))
	}
	if md.Language != "" {
		attrs = append(attrs, fmt.Sprintf("lang=%s", md.Language))
	}
	if md.Duration > 0 {
		attrs = append(attrs, fmt.Sprintf("duration=%dms", md.Duration))
	}
	if md.ExitCode != 0 {
		attrs = append(attrs, fmt.Sprintf("exit=%d", md.ExitCode))
	}
	if md.Timeout {
		attrs = append(attrs, "timeout=true")
	}
	if md.URL != "" {
		attrs = append(attrs, fmt.Sprintf("url=%s", md.URL))
	}
	if md.Title != "" {
		attrs = append(attrs, fmt.Sprintf("title=%q", md.Title))
	}
	if md.StatusCode > 0 {
		attrs = append(attrs, fmt.Sprintf("status=%d", md.StatusCode))
	}
	if md.Cached {
		attrs = append(attrs, "cached=true")
	}
	return attrs
}

// JSON returns the JSON representation (for debugging/logging)
func (r *ToolResult) JSON() string {
	data, _ := json.MarshalIndent(r, "", "  ")
	return string(data)
}

// Success creates a successful tool result
func Success(content string, metadata *Metadata) (string, error) {
	return (&ToolResult{Status: StatusSuccess, Content: content, Metadata: metadata}).String(), nil
}

// Error creates an error tool result
func Error(content string) (string, error) {
	return (&ToolResult{Status: StatusError, Content: content}).String(), nil
}

// Errorf is Error with formatting.
func Errorf(format string, args ...any) (string, error) {
	return Error(fmt.Sprintf(format, args...))
}

// Partial creates a partial success tool result
func Partial(content string, metadata *Metadata) (string, error) {
	return (&ToolResult{Status: StatusPartial, Content: content, Metadata: metadata}).String(), nil
}

// ErrorHandler turns tool errors into tool results so the model can react to
// them instead of aborting the run.
func ErrorHandler() compose.ToolMiddleware {
	return compose.ToolMiddleware{
		Invokable: func(next compose.InvokableToolEndpoint) compose.InvokableToolEndpoint {
			return func(ctx context.Context, in *compose.ToolInput) (*compose.ToolOutput, error) {
				output, err := next(ctx, in)
				if err == nil {
					return output, nil
				}

				errStr := err.Error()
				// interrupts are part of the normal flow
				if strings.Contains(errStr, "interrupt signal") {
					return nil, err
				}
				if idx := strings.Index(errStr, "err="); idx != -1 {
					errStr = strings.TrimSpace(errStr[idx+4:])
				}
				return &compose.ToolOutput{Result: fmt.Sprintf("Error: %s", errStr)}, nil
			}
		},
	}
}

// capabilityTool decorates a tool's info with a capability marker.
type capabilityTool struct {
	tool.InvokableTool
	capability Capability
}

// WithCapability returns t with ToolInfo.Extra carrying the capability.
func WithCapability(t tool.InvokableTool, c Capability) tool.InvokableTool {
	return &capabilityTool{InvokableTool: t, capability: c}
}

func (c *capabilityTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	info, err := c.InvokableTool.Info(ctx)
	if err != nil {
		return nil, err
	}
	out := *info
	out.Extra = maps.Clone(info.Extra)
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra[ToolExtraCapability] = c.capability
	return &out, nil
}

// CapabilityOf reports the capability declared by t, if any.
func CapabilityOf(ctx context.Context, t tool.BaseTool) (Capability, error) {
	info, err := t.Info(ctx)
	if err != nil {
		return CapabilityNone, err
	}
	c, _ := info.Extra[ToolExtraCapability].(Capability)
	return c, nil
}
