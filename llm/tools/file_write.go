package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

// FileWriteToolName is the name of the file writer tool
const FileWriteToolName = "file_write"

// WriteFileParams defines parameters for writing to a file.
type WriteFileParams struct {
	Path    string `json:"path" jsonschema:"description=The path of the file to write to. Relative paths are resolved against the base directory"`
	Content string `json:"content" jsonschema:"description=The content to write to the file"`
}

// writeDescription is the detailed tool description for the AI
const writeDescription = `Create or overwrite a file with given content.

CAPABILITIES:
- Create new files
- Overwrite existing files completely
- Automatically creates parent directories

RESTRICTIONS:
- The file must live inside the base directory
- Only paths matching the allowed patterns can be written (see error message when rejected)

PARAMETERS:
- path (required): The path of the file to write to
- content (required): The content to write to the file

EXAMPLES:
- Daily report: {"path": "reports/20250315.md", "content": "| Title | Genre |\n|---|---|"}`

// FileWriter writes files confined to a base directory and an allow-list.
type FileWriter struct {
	baseDir string
	allow   []string
}

// NewFileWriter returns a FileWriter rooted at baseDir. Patterns use doublestar
// syntax and are matched against slash-separated paths relative to baseDir.
func NewFileWriter(baseDir string, allow []string) (*FileWriter, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	for _, p := range allow {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid file write pattern %q", p)
		}
	}
	return &FileWriter{baseDir: abs, allow: allow}, nil
}

// Resolve returns the absolute target path, or an error when the path escapes
// the base directory or matches no allowed pattern.
func (w *FileWriter) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(w.baseDir, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(w.baseDir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside %s", path, w.baseDir)
	}

	slashRel := filepath.ToSlash(rel)
	for _, p := range w.allow {
		if doublestar.MatchUnvalidated(p, slashRel) {
			return target, nil
		}
	}
	return "", fmt.Errorf("path %s is not allowed; allowed patterns: %s", slashRel, strings.Join(w.allow, ", "))
}

// WriteFile writes content to a file.
func (w *FileWriter) WriteFile(_ context.Context, params WriteFileParams) (string, error) {
	target, err := w.Resolve(params.Path)
	if err != nil {
		return Error(err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Errorf("failed to create parent directories: %v", err)
	}
	if err := os.WriteFile(target, []byte(params.Content), 0o644); err != nil {
		return Errorf("failed to write file: %v", err)
	}

	return Success(fmt.Sprintf("Successfully wrote %s", target), &Metadata{
		FilePath:  target,
		ByteCount: len(params.Content),
	})
}

// GetWriteFileTool returns the write file tool.
func GetWriteFileTool(w *FileWriter) (tool.InvokableTool, error) {
	return utils.InferTool(FileWriteToolName, writeDescription, w.WriteFile)
}
