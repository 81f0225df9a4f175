package agent

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

// DefaultMaxToolResponse 工具响应在记录中保留的最大字符数
const DefaultMaxToolResponse = 2000

// Transcript 记录一次运行中的全部消息
type Transcript struct {
	mu              sync.RWMutex
	msgs            []adk.Message
	maxToolResponse int // 工具响应最大长度（字符数），0 表示不截断
}

// NewTranscript 创建一个新的运行记录
func NewTranscript(maxToolResponse int) *Transcript {
	return &Transcript{maxToolResponse: maxToolResponse}
}

// Add 添加一条消息（工具结果会被压缩）
func (t *Transcript) Add(msg adk.Message) {
	if msg == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg.Role == schema.Tool {
		msg = t.compressToolResponse(msg)
	}
	t.msgs = append(t.msgs, msg)
}

// compressToolResponse 压缩工具响应消息
func (t *Transcript) compressToolResponse(msg adk.Message) adk.Message {
	limit := t.maxToolResponse
	// 内容不大时直接返回
	if limit <= 0 || len(msg.Content) <= limit {
		return msg
	}

	originalLen := len(msg.Content)
	// 不在多字节字符中间截断
	for limit > 0 && !utf8.RuneStart(msg.Content[limit]) {
		limit--
	}
	truncated := msg.Content[:limit]

	// 尝试在句号、换行符处截断
	cutoff := limit
	for _, bp := range []string{".\n", "\n\n", ". ", "\n"} {
		if idx := strings.LastIndex(truncated, bp); idx > limit/2 {
			cutoff = idx + len(bp)
			break
		}
	}

	compressed := msg.Content[:cutoff] + fmt.Sprintf(
		"\n\n[Content truncated: original %d chars -> %d chars, saved %.1f%%]",
		originalLen,
		cutoff,
		float64(originalLen-cutoff)/float64(originalLen)*100,
	)

	return &schema.Message{
		Role:       msg.Role,
		Content:    compressed,
		ToolCallID: msg.ToolCallID,
		ToolName:   msg.ToolName,
	}
}

// List 返回消息副本
func (t *Transcript) List() []adk.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]adk.Message, len(t.msgs))
	copy(result, t.msgs)
	return result
}

// Len 返回已记录的消息数
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}
