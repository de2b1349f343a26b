package testutil

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// EventRecorder is an event bus subscriber that keeps every event it is
// handed, for assertions on what a ledger operation published
type EventRecorder struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	fail   error
}

// NewEventRecorder subscribes to types, or to everything when none are given
func NewEventRecorder(types ...string) *EventRecorder {
	return &EventRecorder{types: types}
}

// EventTypes implements shared.EventHandler
func (r *EventRecorder) EventTypes() []string {
	return r.types
}

// Handle records event and returns the error set with FailWith
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.fail
}

// FailWith makes later Handle calls return err. nil restores success.
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

// Events returns a copy of everything recorded so far
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// EventsOfType returns the recorded events of eventType in arrival order
func (r *EventRecorder) EventsOfType(eventType string) []shared.DomainEvent {
	var out []shared.DomainEvent
	for _, e := range r.Events() {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events were recorded
func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Clear forgets the recorded events
func (r *EventRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// WaitForEvents polls until r holds at least n events or timeout passes
func (r *EventRecorder) WaitForEvents(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for r.Count() < n {
		select {
		case <-deadline:
			return false
		case <-tick.C:
		}
	}
	return true
}

// ReceiptEvent is a bare event raised by a random receipt
func ReceiptEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Receipt", uuid.New())
	return &e
}
