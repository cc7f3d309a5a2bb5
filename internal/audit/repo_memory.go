package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepo is an in-process Repository for tests and local runs.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns every stored event, oldest first.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// EventsOfKind returns the stored events of kind k, oldest first.
func (r *MemoryRepo) EventsOfKind(k Kind) []Event {
	return slices.DeleteFunc(r.Events(), func(e Event) bool { return e.Kind != k })
}
