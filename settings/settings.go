// Package settings exposes the process-wide configuration of the movie
// advisor. Values come from environment variables (optionally populated from
// env/.env under the base directory) and from fixed constants.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Model client constants. They never depend on the environment.
const (
	Model            = "eu.anthropic.claude-sonnet-4-20250514-v1:0"
	ModelTemperature = float32(0.3)

	LLMReadTimeout    = 300 * time.Second
	LLMConnectTimeout = 60 * time.Second
	LLMMaxAttempts    = 10
)

// EnvFile is the env file location relative to the base directory.
var EnvFile = filepath.Join("env", ".env")

// DefaultFileWriteAllow is the allow-list used by the file_write tool when
// FILE_WRITE_ALLOW is not set.
var DefaultFileWriteAllow = []string{"reports/**"}

// Settings holds everything read at process start.
type Settings struct {
	BaseDir   string
	AWSRegion string

	Model             string
	ModelTemperature  float32
	LLMReadTimeout    time.Duration
	LLMConnectTimeout time.Duration
	LLMMaxAttempts    int

	// Provider selects the chat model backend: openai, gemini or qwen.
	Provider string
	APIKey   string
	BaseURL  string

	RedisAddr           string
	CozeLoopAPIToken    string
	CozeLoopWorkspaceID string

	BrowserEngine  string
	FileWriteAllow []string

	LogLevel  string
	LogFormat string
	LogFile   string

	Verbose  bool
	Progress bool
}

// BaseDir returns CINEMA_BASE_DIR when set, otherwise the working directory.
func BaseDir() (string, error) {
	if dir := os.Getenv("CINEMA_BASE_DIR"); dir != "" {
		return filepath.Abs(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return wd, nil
}

// Load reads the optional env file and then the environment.
// A missing env file is not an error; variables already present in the
// process environment take precedence over the file.
func Load() (*Settings, error) {
	baseDir, err := BaseDir()
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(filepath.Join(baseDir, EnvFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	return FromEnv(baseDir), nil
}

// FromEnv builds Settings from the current process environment.
func FromEnv(baseDir string) *Settings {
	s := &Settings{
		BaseDir:   baseDir,
		AWSRegion: os.Getenv("AWS_REGION"),

		Model:             Model,
		ModelTemperature:  ModelTemperature,
		LLMReadTimeout:    LLMReadTimeout,
		LLMConnectTimeout: LLMConnectTimeout,
		LLMMaxAttempts:    LLMMaxAttempts,

		Provider: strings.ToLower(os.Getenv("LLM_PROVIDER")),
		APIKey:   os.Getenv("LLM_API_KEY"),
		BaseURL:  os.Getenv("LLM_BASE_URL"),

		RedisAddr:           os.Getenv("REDIS_ADDR"),
		CozeLoopAPIToken:    os.Getenv("COZE_LOOP_API_TOKEN"),
		CozeLoopWorkspaceID: os.Getenv("COZELOOP_WORKSPACE_ID"),

		BrowserEngine:  strings.ToLower(os.Getenv("BROWSER_ENGINE")),
		FileWriteAllow: splitList(os.Getenv("FILE_WRITE_ALLOW")),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: os.Getenv("LOG_FORMAT"),
		LogFile:   os.Getenv("LOG_FILE"),

		Verbose:  envBool("AGENT_VERBOSE"),
		Progress: envBool("AGENT_PROGRESS"),
	}

	if s.Provider == "" {
		s.Provider = "openai"
	}
	if s.APIKey == "" {
		s.APIKey = os.Getenv("AWS_BEARER_TOKEN_BEDROCK")
	}
	if s.BaseURL == "" && s.Provider == "openai" && s.AWSRegion != "" {
		s.BaseURL = BedrockOpenAIEndpoint(s.AWSRegion)
	}
	if s.BrowserEngine == "" {
		s.BrowserEngine = "auto"
	}
	if len(s.FileWriteAllow) == 0 {
		s.FileWriteAllow = append([]string(nil), DefaultFileWriteAllow...)
	}

	return s
}

// BedrockOpenAIEndpoint returns the OpenAI-compatible Bedrock runtime URL for region.
func BedrockOpenAIEndpoint(region string) string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/openai/v1", region)
}

// ReportsDir is where the agent is told to save its daily report.
func (s *Settings) ReportsDir() string {
	return filepath.Join(s.BaseDir, "reports")
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
