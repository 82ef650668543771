package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// deliveryTimeout bounds one notifier call.
const deliveryTimeout = 10 * time.Second

// Service fans events out to every registered notifier. Delivery is
// asynchronous; a slow or failing transport never blocks the caller.
type Service struct {
	logger zerolog.Logger

	mu        sync.RWMutex
	notifiers []Notifier
	wg        sync.WaitGroup
}

// NewService creates the notification service.
func NewService(logger zerolog.Logger) *Service {
	return &Service{
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// Register adds a notifier.
func (s *Service) Register(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// Notify dispatches the event to every notifier and returns immediately.
func (s *Service) Notify(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.mu.RLock()
	targets := make([]Notifier, len(s.notifiers))
	copy(targets, s.notifiers)
	s.mu.RUnlock()

	for _, n := range targets {
		s.wg.Add(1)
		go func(n Notifier) {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			defer cancel()
			if err := n.Notify(ctx, event); err != nil {
				s.logger.Warn().Err(err).
					Str("notifier", n.Name()).
					Str("event", string(event.Type)).
					Msg("Notification delivery failed")
			}
		}(n)
	}
}

// Flush waits for in-flight deliveries, used by tests and shutdown.
func (s *Service) Flush() {
	s.wg.Wait()
}

// Test sends a test event through one named notifier synchronously.
func (s *Service) Test(ctx context.Context, name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notifiers {
		if n.Name() == name {
			return n.Notify(ctx, Event{
				Type:      EventTest,
				Message:   "Test notification",
				Timestamp: time.Now().UTC(),
			})
		}
	}
	return nil
}
