package notification

import (
	"context"
	"sync"
)

// MockNotifier records delivered events for tests.
type MockNotifier struct {
	NotifierName string
	Err          error

	mu     sync.Mutex
	events []Event
}

// NewMockNotifier creates a recording notifier.
func NewMockNotifier(name string) *MockNotifier {
	return &MockNotifier{NotifierName: name}
}

func (m *MockNotifier) Name() string { return m.NotifierName }

func (m *MockNotifier) Notify(_ context.Context, event Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockNotifier) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
