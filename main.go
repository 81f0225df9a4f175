package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cinema-agent/llm/agent"
	"cinema-agent/llm/providers"
	"cinema-agent/llm/tools"
	"cinema-agent/logger"
	"cinema-agent/prompts"
	"cinema-agent/settings"
	"cinema-agent/tui/progress"
	"cinema-agent/tui/render"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	"github.com/cloudwego/eino/callbacks"
	"github.com/coze-dev/cozeloop-go"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()

	if err != nil {
		logger.L().Error("movie advisor failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context) error {
	cfg, err := settings.Load()
	if err != nil {
		return err
	}

	log := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})

	chatModel, err := providers.NewChatModel(ctx, &providers.ChatModelConfig{
		Provider:       cfg.Provider,
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Temperature:    cfg.ModelTemperature,
		ConnectTimeout: cfg.LLMConnectTimeout,
		ReadTimeout:    cfg.LLMReadTimeout,
		MaxAttempts:    cfg.LLMMaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("create chat model: %w", err)
	}

	toolset, err := tools.NewToolset(ctx, tools.ToolsetConfig{
		BaseDir:        cfg.BaseDir,
		FileWriteAllow: cfg.FileWriteAllow,
		ChatModel:      chatModel,
		BrowserEngine:  cfg.BrowserEngine,
		RedisAddr:      cfg.RedisAddr,
	})
	if err != nil {
		return fmt.Errorf("create tools: %w", err)
	}
	defer func() {
		if err := toolset.Close(); err != nil {
			log.Warn("release tools", "error", err)
		}
	}()

	metrics := agent.NewMetrics()
	handlers := []callbacks.Handler{metrics.Handler()}
	if cfg.CozeLoopAPIToken != "" && cfg.CozeLoopWorkspaceID != "" {
		client, err := cozeloop.NewClient(
			cozeloop.WithAPIToken(cfg.CozeLoopAPIToken),
			cozeloop.WithWorkspaceID(cfg.CozeLoopWorkspaceID),
		)
		if err != nil {
			return fmt.Errorf("create cozeloop client: %w", err)
		}
		// flush traces even when the run was interrupted
		defer client.Close(context.WithoutCancel(ctx))
		handlers = append(handlers, clc.NewLoopHandler(client))
		log.Debug("cozeloop tracing enabled")
	}
	callbacks.AppendGlobalHandlers(handlers...)

	rt, err := agent.NewRuntime(ctx, agent.RuntimeConfig{
		Agent: agent.MovieAdvisorConfig{
			ChatModel: chatModel,
			Tools:     toolset.Tools,
		},
		Metrics: metrics,
		Logger:  logger.Named("agent"),
		Verbose: cfg.Verbose,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	stopProgress := func() {}
	if cfg.Progress {
		stopProgress = progress.Start(ctx, rt.Broker().Subscribe(ctx), os.Stderr)
	}

	res, err := rt.Invoke(ctx, prompts.Question(cfg.BaseDir))
	stopProgress()
	if err != nil {
		return err
	}

	agent.LogSummary(log, agent.Summarize(res.Metrics))

	printAnswer(log, res.Answer, todaysReport(cfg))
	return nil
}

// todaysReport returns the report path for today when the agent wrote it.
func todaysReport(cfg *settings.Settings) string {
	path := filepath.Join(cfg.ReportsDir(), time.Now().Format("20060102")+".md")
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.L().Debug("stat report", "path", path, "error", err)
		}
		return ""
	}
	return path
}

func printAnswer(log *slog.Logger, answer, reportPath string) {
	r, err := render.New("auto", 100)
	if err != nil {
		log.Warn("markdown rendering disabled", "error", err)
		fmt.Println(answer)
		return
	}
	fmt.Print(r.Answer(agent.AgentName, answer, reportPath))
}
