package event

import (
	"sync"

	"github.com/google/uuid"
)

// EventType 定义事件类型
type EventType string

const (
	// EventBatchProgress carries a batch.Status after every finished item.
	EventBatchProgress EventType = "batch_progress"
	// EventBatchComplete carries the final batch.Status.
	EventBatchComplete EventType = "batch_complete"
	// EventLibraryChanged is published after any add, refresh, edit or delete.
	EventLibraryChanged EventType = "library_changed"
)

// Topics lists every event type, in the order SSE clients subscribe to them.
func Topics() []EventType {
	return []EventType{EventBatchProgress, EventBatchComplete, EventLibraryChanged}
}

// Event 代表一个系统事件
type Event struct {
	Type    EventType
	Payload interface{}
}

// Handler 处理事件的函数签名
type Handler func(event Event)

// Bus 事件总线接口
type Bus interface {
	Subscribe(topic EventType, handler Handler) string // 返回 Subscription ID
	Unsubscribe(topic EventType, subID string)
	Publish(topic EventType, payload interface{})
}

type handlerWrapper struct {
	ID      string
	Handler Handler
}

// InMemoryBus 简单的内存事件总线实现
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]handlerWrapper
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[EventType][]handlerWrapper),
	}
}

func (b *InMemoryBus) Subscribe(topic EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.handlers[topic] = append(b.handlers[topic], handlerWrapper{ID: id, Handler: handler})
	return id
}

func (b *InMemoryBus) Unsubscribe(topic EventType, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wrappers := b.handlers[topic]
	kept := make([]handlerWrapper, 0, len(wrappers))
	for _, w := range wrappers {
		if w.ID != subID {
			kept = append(kept, w)
		}
	}
	b.handlers[topic] = kept
}

// Publish 异步执行所有 Handler，避免阻塞发布者
func (b *InMemoryBus) Publish(topic EventType, payload interface{}) {
	b.mu.RLock()
	wrappers := b.handlers[topic]
	b.mu.RUnlock()

	evt := Event{Type: topic, Payload: payload}
	for _, w := range wrappers {
		go w.Handler(evt)
	}
}

// Nop drops every event. Used where no bus is wired.
type Nop struct{}

func (Nop) Subscribe(EventType, Handler) string { return "" }
func (Nop) Unsubscribe(EventType, string)       {}
func (Nop) Publish(EventType, interface{})      {}
