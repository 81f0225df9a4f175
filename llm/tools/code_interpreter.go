package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/google/uuid"
)

const (
	// CodeInterpreterToolName is the name of the sandboxed code execution tool
	CodeInterpreterToolName = "code_interpreter"

	DefaultCodeTimeout = 30 * time.Second
	MaxCodeTimeout     = 300 * time.Second

	// maxOutputBytes caps stdout and stderr separately
	maxOutputBytes = 64 * 1024
)

// Code interpreter actions.
const (
	ActionExecuteCode    = "execute_code"
	ActionExecuteCommand = "execute_command"
	ActionWriteFiles     = "write_files"
	ActionReadFiles      = "read_files"
	ActionListFiles      = "list_files"
)

// interpreters maps a language to the command that runs a script file.
var interpreters = map[string]struct {
	bin string
	ext string
}{
	"python":     {bin: "python3", ext: ".py"},
	"javascript": {bin: "node", ext: ".js"},
	"shell":      {bin: "sh", ext: ".sh"},
}

// SandboxFile is a file written into or read from the session directory.
type SandboxFile struct {
	Path string `json:"path" jsonschema:"description=Path relative to the session directory"`
	Text string `json:"text,omitempty" jsonschema:"description=File content"`
}

// CodeInterpreterParams defines parameters for the code interpreter tool.
type CodeInterpreterParams struct {
	Action    string        `json:"action" jsonschema:"description=One of execute_code or execute_command or write_files or read_files or list_files"`
	Language  string        `json:"language,omitempty" jsonschema:"description=Language for execute_code: python or javascript or shell (default python)"`
	Code      string        `json:"code,omitempty" jsonschema:"description=Source code for execute_code"`
	Command   string        `json:"command,omitempty" jsonschema:"description=Shell command for execute_command"`
	Files     []SandboxFile `json:"files,omitempty" jsonschema:"description=Files for write_files"`
	Paths     []string      `json:"paths,omitempty" jsonschema:"description=Paths for read_files"`
	Path      string        `json:"path,omitempty" jsonschema:"description=Directory for list_files (default is the session root)"`
	TimeoutMs int           `json:"timeout_ms,omitempty" jsonschema:"description=Timeout in milliseconds (default 30000; max 300000)"`
}

const codeInterpreterDescription = `Run code and shell commands in an isolated session directory.

ACTIONS:
- execute_code: run "code" written in "language" (python, javascript, shell)
- execute_command: run a shell command
- write_files: create files from "files" [{"path", "text"}]
- read_files: return the content of "paths"
- list_files: list files under "path"

All actions share one working directory for the whole session, so files written by
one call are visible to the next. Output is truncated to 64KB per stream.

EXAMPLES:
- {"action": "execute_code", "language": "python", "code": "print(sum([7.1, 8.4]) / 2)"}
- {"action": "execute_command", "command": "ls -la"}`

// Sandbox is a per-session working directory for subprocess execution.
type Sandbox struct {
	dir string

	mu     sync.Mutex
	closed bool
}

// NewSandbox creates a fresh session directory under root (os.TempDir when empty).
func NewSandbox(root string) (*Sandbox, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "cinema-session-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	return &Sandbox{dir: dir}, nil
}

// Dir returns the session directory.
func (s *Sandbox) Dir() string { return s.dir }

// Close removes the session directory.
func (s *Sandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return os.RemoveAll(s.dir)
}

func (s *Sandbox) resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return s.dir, nil
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("path %s must be relative to the session directory", p)
	}
	full := filepath.Join(s.dir, p)
	rel, err := filepath.Rel(s.dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the session directory", p)
	}
	return full, nil
}

// ExecResult is the outcome of one subprocess.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// cappedBuffer keeps the first limit bytes and counts the rest.
type cappedBuffer struct {
	buf     bytes.Buffer
	limit   int
	dropped int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.limit - c.buf.Len()
	if room <= 0 {
		c.dropped += len(p)
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.dropped += len(p) - room
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string {
	if c.dropped == 0 {
		return c.buf.String()
	}
	return fmt.Sprintf("%s\n... [truncated %d bytes]", c.buf.String(), c.dropped)
}

func clampTimeout(ms int) time.Duration {
	if ms <= 0 {
		return DefaultCodeTimeout
	}
	d := time.Duration(ms) * time.Millisecond
	if d > MaxCodeTimeout {
		return MaxCodeTimeout
	}
	return d
}

func (s *Sandbox) run(ctx context.Context, timeout time.Duration, name string, args ...string) (*ExecResult, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, name, args...)
	cmd.Dir = s.dir
	// children that inherit the pipes must not keep Wait blocked past the timeout
	cmd.WaitDelay = time.Second

	stdout := &cappedBuffer{limit: maxOutputBytes}
	stderr := &cappedBuffer{limit: maxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	res := &ExecResult{Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(cmdCtx.Err(), context.DeadlineExceeded):
			res.TimedOut = true
			res.ExitCode = -1
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			return nil, err
		}
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, nil
}

// ExecuteCode writes code to a script file in the session and runs it.
func (s *Sandbox) ExecuteCode(ctx context.Context, language, code string, timeout time.Duration) (*ExecResult, error) {
	if language == "" {
		language = "python"
	}
	interp, ok := interpreters[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", language)
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("code is required")
	}

	script := filepath.Join(s.dir, "snippet-"+uuid.NewString()[:8]+interp.ext)
	if err := os.WriteFile(script, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("write script: %w", err)
	}
	defer os.Remove(script)

	return s.run(ctx, timeout, interp.bin, script)
}

// ExecuteCommand runs a shell command in the session directory.
func (s *Sandbox) ExecuteCommand(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command is required")
	}
	return s.run(ctx, timeout, "sh", "-c", command)
}

// WriteFiles creates files inside the session.
func (s *Sandbox) WriteFiles(files []SandboxFile) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("files are required")
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		full, err := s.resolve(f.Path)
		if err != nil {
			return written, err
		}
		if full == s.dir {
			return written, fmt.Errorf("file path is required")
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(full, []byte(f.Text), 0o644); err != nil {
			return written, err
		}
		written = append(written, f.Path)
	}
	return written, nil
}

// ReadFiles returns the content of the given session files.
func (s *Sandbox) ReadFiles(paths []string) ([]SandboxFile, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("paths are required")
	}
	out := make([]SandboxFile, 0, len(paths))
	for _, p := range paths {
		full, err := s.resolve(p)
		if err != nil {
			return out, err
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return out, fmt.Errorf("read %s: %w", p, err)
		}
		out = append(out, SandboxFile{Path: p, Text: string(data)})
	}
	return out, nil
}

// ListFiles lists regular files below dir, relative to the session root.
func (s *Sandbox) ListFiles(dir string) ([]string, error) {
	root, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(s.dir, path)
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func formatExec(label string, res *ExecResult, timeout time.Duration) string {
	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteString(fmt.Sprintf("\nDuration: %v", res.Duration.Round(time.Millisecond)))
	if res.TimedOut {
		sb.WriteString(fmt.Sprintf("\nTimeout after %v", timeout))
	} else if res.ExitCode != 0 {
		sb.WriteString(fmt.Sprintf("\nExit code: %d", res.ExitCode))
	}
	if res.Stdout != "" {
		sb.WriteString("\nOutput:\n")
		sb.WriteString(res.Stdout)
	}
	if res.Stderr != "" {
		sb.WriteString("\nStderr:\n")
		sb.WriteString(res.Stderr)
	}
	if res.Stdout == "" && res.Stderr == "" && res.ExitCode == 0 && !res.TimedOut {
		sb.WriteString("\nCompleted successfully with no output")
	}
	return sb.String()
}

func execResult(label, language string, res *ExecResult, timeout time.Duration) (string, error) {
	md := &Metadata{
		Language: language,
		Duration: res.Duration.Milliseconds(),
		ExitCode: res.ExitCode,
		Timeout:  res.TimedOut,
	}
	content := formatExec(label, res, timeout)
	if res.TimedOut || res.ExitCode != 0 {
		return Partial(content, md)
	}
	return Success(content, md)
}

// Interpret implements the code interpreter tool.
func (s *Sandbox) Interpret(ctx context.Context, params CodeInterpreterParams) (string, error) {
	timeout := clampTimeout(params.TimeoutMs)

	switch params.Action {
	case ActionExecuteCode:
		lang := params.Language
		if lang == "" {
			lang = "python"
		}
		res, err := s.ExecuteCode(ctx, lang, params.Code, timeout)
		if err != nil {
			return Error(err.Error())
		}
		return execResult("Language: "+lang, lang, res, timeout)

	case ActionExecuteCommand:
		res, err := s.ExecuteCommand(ctx, params.Command, timeout)
		if err != nil {
			return Error(err.Error())
		}
		return execResult("Command: "+params.Command, "shell", res, timeout)

	case ActionWriteFiles:
		written, err := s.WriteFiles(params.Files)
		if err != nil {
			return Errorf("write_files: %v (written: %s)", err, strings.Join(written, ", "))
		}
		return Success(fmt.Sprintf("Wrote %d file(s): %s", len(written), strings.Join(written, ", ")), nil)

	case ActionReadFiles:
		files, err := s.ReadFiles(params.Paths)
		if err != nil {
			return Error(err.Error())
		}
		var sb strings.Builder
		for i, f := range files {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(fmt.Sprintf("=== %s ===\n%s", f.Path, f.Text))
		}
		return Success(sb.String(), nil)

	case ActionListFiles:
		files, err := s.ListFiles(params.Path)
		if err != nil {
			return Error(err.Error())
		}
		if len(files) == 0 {
			return Success("No files", nil)
		}
		return Success(strings.Join(files, "\n"), nil)

	default:
		return Errorf("unknown action %q; expected one of %s, %s, %s, %s, %s", params.Action,
			ActionExecuteCode, ActionExecuteCommand, ActionWriteFiles, ActionReadFiles, ActionListFiles)
	}
}

// GetCodeInterpreterTool returns the code interpreter tool bound to s.
func GetCodeInterpreterTool(s *Sandbox) (tool.InvokableTool, error) {
	t, err := utils.InferTool(CodeInterpreterToolName, codeInterpreterDescription, s.Interpret)
	if err != nil {
		return nil, err
	}
	return WithCapability(t, CapabilityCodeInterpreter), nil
}
