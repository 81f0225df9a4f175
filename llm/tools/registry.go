package tools

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cinema-agent/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
)

// ToolsetConfig holds what the tools need from the process configuration.
type ToolsetConfig struct {
	BaseDir        string
	FileWriteAllow []string

	// ChatModel backs the think tool.
	ChatModel model.BaseChatModel

	BrowserEngine string
	// RedisAddr enables the page cache of the http browser engine.
	RedisAddr  string
	HTTPClient HTTPDoer

	// SandboxRoot is where code interpreter sessions are created (os.TempDir when empty).
	SandboxRoot string
}

// Toolset is the fixed list of tools handed to the agent, plus the resources
// they hold.
type Toolset struct {
	Tools []tool.BaseTool

	closers []io.Closer
}

// NewToolset builds the seven tools in their canonical order:
// calculator, think, current_time, file_write, batch, code_interpreter, browser.
func NewToolset(ctx context.Context, cfg ToolsetConfig) (*Toolset, error) {
	ts := &Toolset{}
	ok := false
	defer func() {
		if !ok {
			_ = ts.Close()
		}
	}()

	calculator, err := GetCalculatorTool()
	if err != nil {
		return nil, fmt.Errorf("calculator tool: %w", err)
	}
	think, err := GetThinkTool(cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("think tool: %w", err)
	}
	clock, err := GetCurrentTimeTool()
	if err != nil {
		return nil, fmt.Errorf("current_time tool: %w", err)
	}

	writer, err := NewFileWriter(cfg.BaseDir, cfg.FileWriteAllow)
	if err != nil {
		return nil, err
	}
	fileWrite, err := GetWriteFileTool(writer)
	if err != nil {
		return nil, fmt.Errorf("file_write tool: %w", err)
	}

	sandbox, err := NewSandbox(cfg.SandboxRoot)
	if err != nil {
		return nil, err
	}
	ts.closers = append(ts.closers, sandbox)
	interpreter, err := GetCodeInterpreterTool(sandbox)
	if err != nil {
		return nil, fmt.Errorf("code_interpreter tool: %w", err)
	}

	// the browser keeps one tab, so it stays out of batch
	batch, err := GetBatchTool(ctx, []tool.InvokableTool{calculator, think, clock, fileWrite, interpreter})
	if err != nil {
		return nil, fmt.Errorf("batch tool: %w", err)
	}

	var cache PageCache
	if cfg.RedisAddr != "" {
		rc, err := NewRedisPageCache(ctx, RedisCacheConfig{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Named("tools").Warn("page cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			cache = rc
			ts.closers = append(ts.closers, rc)
		}
	}

	engine, err := NewBrowserEngine(ctx, BrowserConfig{
		Engine:     cfg.BrowserEngine,
		Cache:      cache,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	ts.closers = append(ts.closers, engine)
	browser, err := GetBrowserTool(engine)
	if err != nil {
		return nil, fmt.Errorf("browser tool: %w", err)
	}
	logger.Named("tools").Debug("browser engine selected", "engine", engine.Name())

	ts.Tools = []tool.BaseTool{calculator, think, clock, fileWrite, batch, interpreter, browser}
	ok = true
	return ts, nil
}

// Close releases the browser, the page cache and the interpreter session, in
// reverse order of creation.
func (ts *Toolset) Close() error {
	var err error
	for i := len(ts.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, ts.closers[i].Close())
	}
	ts.closers = nil
	return err
}
