package classes

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory catalogue for tests and local runs.
type MemoryRepo struct {
	mu       sync.Mutex
	classes  map[string]Class
	subjects map[string]Subject
	links    map[string][]string // class_id -> subject ids
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		classes:  map[string]Class{},
		subjects: map[string]Subject{},
		links:    map[string][]string{},
	}
}

func (r *MemoryRepo) PutClass(c Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[c.ID] = c
}

// Teach links subject to classID, adding the subject if it is new.
func (r *MemoryRepo) Teach(classID string, subject Subject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[subject.ID] = subject
	for _, id := range r.links[classID] {
		if id == subject.ID {
			return
		}
	}
	r.links[classID] = append(r.links[classID], subject.ID)
}

func (r *MemoryRepo) List(ctx context.Context) ([]Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, classID string) (Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classes[classID]
	if !ok {
		return Class{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Subjects(ctx context.Context, classID string) ([]Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subject, 0, len(r.links[classID]))
	for _, id := range r.links[classID] {
		out = append(out, r.subjects[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
