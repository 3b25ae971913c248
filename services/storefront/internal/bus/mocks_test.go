package bus

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt/events"
)

type publishedMessage struct {
	Topic string
	Msg   []byte
}

// MockPublisher records every publication
type MockPublisher struct {
	mu          sync.Mutex
	Published   []publishedMessage
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	m.Published = append(m.Published, publishedMessage{Topic: topic, Msg: msg})
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	return nil
}

// MockSubscriber keeps the registered handlers so tests can fire them
type MockSubscriber struct {
	Handlers map[string]events.HandlerFunc
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{Handlers: make(map[string]events.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	m.Handlers[topic] = handler
	return nil
}
