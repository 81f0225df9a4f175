package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

const (
	// ThinkToolName is the name of the reflection tool
	ThinkToolName = "think"

	// DefaultThinkCycles is the default number of reflection rounds
	DefaultThinkCycles = 3
	// MaxThinkCycles caps the number of reflection rounds
	MaxThinkCycles = 5
)

// ThinkParams defines parameters for the reflection tool.
type ThinkParams struct {
	Thought      string `json:"thought" jsonschema:"description=The problem or intermediate conclusion to reflect on"`
	CycleCount   int    `json:"cycle_count,omitempty" jsonschema:"description=Number of reflection rounds (default 3; max 5)"`
	SystemPrompt string `json:"system_prompt,omitempty" jsonschema:"description=Optional role for the reflection such as 'You are a film critic'"`
}

const thinkDescription = `Reflect on a problem in several rounds before acting.

Each round reviews the previous one, looks for gaps or mistakes and refines the conclusion.
Use it to weigh ratings against personal preferences, or to plan the next browsing steps.

PARAMETERS:
- thought (required): What to reflect on
- cycle_count (optional): Rounds of reflection (default: 3, max: 5)
- system_prompt (optional): Perspective to adopt while reflecting`

const defaultReflectionRole = "You are a careful analyst. Think step by step, question assumptions and keep the answer concise."

// Thinker runs reflection rounds against a chat model.
type Thinker struct {
	model model.BaseChatModel
}

// NewThinker returns a Thinker backed by m.
func NewThinker(m model.BaseChatModel) *Thinker {
	return &Thinker{model: m}
}

// Think runs the reflection rounds and returns the last one.
func (t *Thinker) Think(ctx context.Context, params ThinkParams) (string, error) {
	thought := strings.TrimSpace(params.Thought)
	if thought == "" {
		return Error("thought parameter is required")
	}

	cycles := params.CycleCount
	if cycles <= 0 {
		cycles = DefaultThinkCycles
	}
	if cycles > MaxThinkCycles {
		cycles = MaxThinkCycles
	}

	role := params.SystemPrompt
	if role == "" {
		role = defaultReflectionRole
	}

	current := thought
	for i := 1; i <= cycles; i++ {
		prompt := fmt.Sprintf("Reflection round %d of %d.\n\nCurrent thinking:\n%s\n\n"+
			"Review it, point out anything missing or wrong, and write an improved version.", i, cycles, current)

		msg, err := t.model.Generate(ctx, []*schema.Message{
			schema.SystemMessage(role),
			schema.UserMessage(prompt),
		})
		if err != nil {
			return Errorf("reflection round %d failed: %v", i, err)
		}
		if content := strings.TrimSpace(msg.Content); content != "" {
			current = content
		}
	}

	return Success(current, nil)
}

// GetThinkTool returns the reflection tool bound to m.
func GetThinkTool(m model.BaseChatModel) (tool.InvokableTool, error) {
	if m == nil {
		return nil, fmt.Errorf("think tool requires a chat model")
	}
	return utils.InferTool(ThinkToolName, thinkDescription, NewThinker(m).Think)
}
