package pubsub

import (
	"context"
	"sync"
)

// DefaultBufferSize 每个订阅者通道的默认缓冲区大小
const DefaultBufferSize = 64

// Broker 基于内存的发布/订阅实现，T 为事件载荷类型。
// Publish 永不阻塞：订阅者缓冲区满时该订阅者会丢失这条事件。
type Broker[T any] struct {
	mu         sync.RWMutex
	subs       map[chan Event[T]]struct{}
	done       chan struct{}
	bufferSize int
}

// NewBroker 使用默认缓冲区大小创建 Broker
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](DefaultBufferSize)
}

// NewBrokerWithBuffer 使用指定的订阅通道缓冲区大小创建 Broker
func NewBrokerWithBuffer[T any](bufferSize int) *Broker[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
	}
}

// Subscribe 注册订阅者。ctx 结束或 Broker 关闭时通道会被关闭。
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed() {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}
		b.unsubscribe(sub)
	}()

	return sub
}

func (b *Broker[T]) unsubscribe(sub chan Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub)
	}
}

// Publish 向所有订阅者分发事件
func (b *Broker[T]) Publish(t EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed() {
		return
	}

	event := Event[T]{Type: t, Payload: payload}
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount 返回当前活跃的订阅者数量
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown 关闭 Broker 及所有订阅通道，可重复调用
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed() {
		return
	}
	close(b.done)

	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub)
	}
}

// closed 需在持有锁时调用
func (b *Broker[T]) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
