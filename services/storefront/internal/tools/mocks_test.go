package tools

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt"
)

type publishedMessage struct {
	Topic string
	Msg   []byte
}

// MockPublisher is a mock implementation of events.Publisher that records publications
type MockPublisher struct {
	mu          sync.Mutex
	Published   []publishedMessage
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
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

func (m *MockPublisher) ByTopic(topic string) []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []publishedMessage
	for _, p := range m.Published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// MockLogger is a no-op apt.Logger that records the fields bound through With.
type MockLogger struct {
	mu     *sync.Mutex
	fields *[][]any
}

func NewMockLogger() *MockLogger {
	return &MockLogger{mu: &sync.Mutex{}, fields: &[][]any{}}
}

func (m *MockLogger) Debug(v ...any)                 {}
func (m *MockLogger) Debugf(format string, a ...any) {}
func (m *MockLogger) Info(v ...any)                  {}
func (m *MockLogger) Infof(format string, a ...any)  {}
func (m *MockLogger) Error(v ...any)                 {}
func (m *MockLogger) Errorf(format string, a ...any) {}
func (m *MockLogger) SetLogLevel(level apt.LogLevel) {}

func (m *MockLogger) With(args ...any) apt.Logger {
	m.mu.Lock()
	*m.fields = append(*m.fields, args)
	m.mu.Unlock()
	return m
}

// Field returns the last value bound to key, or nil.
func (m *MockLogger) Field(key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found any
	for _, args := range *m.fields {
		for i := 0; i+1 < len(args); i += 2 {
			if args[i] == key {
				found = args[i+1]
			}
		}
	}
	return found
}
