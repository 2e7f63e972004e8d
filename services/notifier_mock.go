package services

import (
	"context"
	"sync"
)

// MockNotifier records notifications instead of sending them
type MockNotifier struct {
	mu   sync.Mutex
	sent []StatusNotification
	err  error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// FailWith makes every following send return err
func (m *MockNotifier) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockNotifier) SendOrderNotification(_ context.Context, n StatusNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications
func (m *MockNotifier) Sent() []StatusNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StatusNotification, len(m.sent))
	copy(out, m.sent)
	return out
}
