package pubsub

// EventType 标识事件在生命周期中的阶段
type EventType string

const (
	// CreatedEvent 新消息产生（用户输入、模型回复）
	CreatedEvent EventType = "created"
	// UpdatedEvent 进行中的状态变化（工具调用、工具结果）
	UpdatedEvent EventType = "updated"
	// FinishedEvent 一次 Agent 调用结束
	FinishedEvent EventType = "finished"
)

// Event 携带事件类型与类型安全的载荷
type Event[T any] struct {
	Type    EventType
	Payload T
}
