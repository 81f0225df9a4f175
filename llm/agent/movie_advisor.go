package agent

import (
	"context"
	"errors"
	"fmt"

	"cinema-agent/llm/tools"
	"cinema-agent/prompts"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
)

const (
	// AgentName is the name the advisor reports in events.
	AgentName = "MovieAdvisor"

	// DefaultMaxIterations bounds model calls within one run.
	DefaultMaxIterations = 50
)

// MovieAdvisorConfig holds dependencies for the movie advisor agent.
type MovieAdvisorConfig struct {
	ChatModel model.ToolCallingChatModel
	Tools     []tool.BaseTool

	// Instruction defaults to prompts.SystemPrompt.
	Instruction   string
	MaxIterations int
}

// AgentFactory builds the agent a Runtime drives.
type AgentFactory func(ctx context.Context, config *MovieAdvisorConfig) (adk.Agent, error)

// NewMovieAdvisorAgent creates the movie advisor agent using the provided configuration.
func NewMovieAdvisorAgent(ctx context.Context, config *MovieAdvisorConfig) (adk.Agent, error) {
	if config == nil {
		return nil, errors.New("config is nil")
	}
	if config.ChatModel == nil {
		return nil, errors.New("chat model is required")
	}

	instruction := config.Instruction
	if instruction == "" {
		instruction = prompts.SystemPrompt
	}
	maxIterations := config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	agent, err := adk.NewChatModelAgent(ctx, &adk.ChatModelAgentConfig{
		Name:        AgentName,
		Description: "Recommends films showing this weekend based on ratings and the user's viewing history.",
		Instruction: instruction,
		Model:       config.ChatModel,
		ToolsConfig: adk.ToolsConfig{
			ToolsNodeConfig: compose.ToolsNodeConfig{
				Tools:               config.Tools,
				ToolCallMiddlewares: []compose.ToolMiddleware{tools.ErrorHandler()},
			},
		},
		MaxIterations: maxIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s agent: %w", AgentName, err)
	}

	return agent, nil
}

// ValidateTools checks that exactly one tool provides each sandboxed capability.
func ValidateTools(ctx context.Context, list []tool.BaseTool) error {
	counts := map[tools.Capability]int{}
	for _, t := range list {
		c, err := tools.CapabilityOf(ctx, t)
		if err != nil {
			return fmt.Errorf("read tool info: %w", err)
		}
		counts[c]++
	}

	var errs []error
	for _, c := range []tools.Capability{tools.CapabilityBrowser, tools.CapabilityCodeInterpreter} {
		if n := counts[c]; n != 1 {
			errs = append(errs, fmt.Errorf("expected exactly one %s tool, got %d", c, n))
		}
	}
	return errors.Join(errs...)
}
