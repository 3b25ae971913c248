package order

import (
	"context"
	"sync"
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

func (m *MockPublisher) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.Published {
		if p.Topic == topic {
			n++
		}
	}
	return n
}

func (m *MockPublisher) Last() publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Published) == 0 {
		return publishedMessage{}
	}
	return m.Published[len(m.Published)-1]
}

// MockStorage is an in-memory Storage with optional failure hooks
type MockStorage struct {
	mu         sync.Mutex
	records    map[string][]byte
	LoadFunc   func(ctx context.Context, key string) ([]byte, error)
	SaveFunc   func(ctx context.Context, key string, data []byte) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{records: make(map[string][]byte)}
}

func (m *MockStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[key], nil
}

func (m *MockStorage) Save(ctx context.Context, key string, data []byte) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, key, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = data
	return nil
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *MockStorage) Get(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[key]
}
