package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolResult_String(t *testing.T) {
	out, err := Success("done", &Metadata{FilePath: "/tmp/r.md", ByteCount: 12})
	require.NoError(t, err)
	assert.Equal(t, "done\n\n<metadata file=/tmp/r.md bytes=12 />", out)

	out, _ = Errorf("bad %s", "input")
	assert.Equal(t, "[ERROR] bad input", out)

	out, _ = Partial("half", &Metadata{URL: "https://sadecines.com/", Cached: true})
	assert.Equal(t, "[PARTIAL] half\n\n<metadata url=https://sadecines.com/ cached=true />", out)
}

func TestErrorHandler(t *testing.T) {
	mw := ErrorHandler()

	failing := mw.Invokable(func(context.Context, *compose.ToolInput) (*compose.ToolOutput, error) {
		return nil, errors.New("[LocalFunc] failed to invoke tool, toolName=browser, err=dial tcp: refused")
	})
	out, err := failing(context.Background(), &compose.ToolInput{Name: "browser"})
	require.NoError(t, err)
	assert.Equal(t, "Error: dial tcp: refused", out.Result)

	interrupted := mw.Invokable(func(context.Context, *compose.ToolInput) (*compose.ToolOutput, error) {
		return nil, errors.New("interrupt signal")
	})
	_, err = interrupted(context.Background(), &compose.ToolInput{})
	assert.Error(t, err)
}
