package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWriter(t *testing.T) (*FileWriter, string) {
	t.Helper()
	base := t.TempDir()
	w, err := NewFileWriter(base, []string{"reports/**"})
	require.NoError(t, err)
	return w, w.baseDir
}

func TestFileWriter_WritesReport(t *testing.T) {
	w, base := newWriter(t)

	out, err := w.WriteFile(context.Background(), WriteFileParams{
		Path:    "reports/20250315.md",
		Content: "| Title | Genre |\n",
	})
	require.NoError(t, err)

	target := filepath.Join(base, "reports", "20250315.md")
	assert.Contains(t, out, "Successfully wrote "+target)
	assert.Contains(t, out, "bytes=18")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "| Title | Genre |\n", string(data))
}

func TestFileWriter_Resolve(t *testing.T) {
	w, base := newWriter(t)

	got, err := w.Resolve(filepath.Join(base, "reports", "2025", "x.md"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "reports", "2025", "x.md"), got)

	for _, p := range []string{
		"",
		"notes.md",
		"../reports/x.md",
		"reports/../../x.md",
		"/etc/passwd",
		filepath.Join(base, "env", ".env"),
	} {
		_, err := w.Resolve(p)
		assert.Error(t, err, p)
	}
}

func TestFileWriter_ToolRejectsOutsidePaths(t *testing.T) {
	w, base := newWriter(t)
	fw, err := GetWriteFileTool(w)
	require.NoError(t, err)

	out, err := fw.InvokableRun(context.Background(), `{"path": "../escape.md", "content": "x"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "[ERROR]")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(base), "escape.md"))

	out, err = fw.InvokableRun(context.Background(), `{"path": "main.go", "content": "x"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "not allowed")
	assert.NoFileExists(t, filepath.Join(base, "main.go"))
}

func TestNewFileWriter_InvalidPattern(t *testing.T) {
	_, err := NewFileWriter(t.TempDir(), []string{"reports/["})
	assert.Error(t, err)
}
