package notify

import (
	"context"
	"sync"
)

// Memory collects messages in memory. It exists for tests and for running
// the service without a configured sink.
type Memory struct {
	mu       sync.Mutex
	messages []string
}

// NewMemory builds an in-memory notifier.
func NewMemory() *Memory {
	return &Memory{}
}

// Notify records the message.
func (m *Memory) Notify(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

// Messages returns a copy of everything notified so far.
func (m *Memory) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}
