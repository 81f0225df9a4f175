package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// Supported chat model backends.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderQwen   = "qwen"
)

// ChatModelConfig defines the configuration for creating a chat model.
type ChatModelConfig struct {
	// Provider is one of openai (any OpenAI-compatible endpoint), gemini or qwen.
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxAttempts    int

	// HTTPClient overrides the client built from the timeout fields.
	HTTPClient *http.Client
}

// NewChatModel creates a tool-calling chat model for the configured provider.
func NewChatModel(ctx context.Context, config *ChatModelConfig) (model.ToolCallingChatModel, error) {
	if config == nil {
		return nil, fmt.Errorf("chat model config is nil")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required in config")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(TransportConfig{
			ConnectTimeout: config.ConnectTimeout,
			ReadTimeout:    config.ReadTimeout,
			MaxAttempts:    config.MaxAttempts,
		})
	}
	temperature := config.Temperature

	switch provider := strings.ToLower(config.Provider); provider {
	case "", ProviderOpenAI:
		if config.BaseURL == "" {
			return nil, fmt.Errorf("base URL is required for the %s provider", ProviderOpenAI)
		}
		return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			Temperature: &temperature,
			HTTPClient:  httpClient,
		})

	case ProviderGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     config.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		return geminiModel.NewChatModel(ctx, &geminiModel.Config{
			Client:      client,
			Model:       config.Model,
			Temperature: &temperature,
		})

	case ProviderQwen:
		return qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			Temperature: &temperature,
			HTTPClient:  httpClient,
		})

	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
