package topics

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory topic catalogue for tests and local runs.
type MemoryRepo struct {
	mu        sync.Mutex
	topics    map[string]Topic
	completed map[string]bool // key: topic_id|user_id
}

func NewMemoryRepo(seed ...Topic) *MemoryRepo {
	r := &MemoryRepo{topics: map[string]Topic{}, completed: map[string]bool{}}
	for _, t := range seed {
		r.topics[t.ID] = t
	}
	return r
}

func (r *MemoryRepo) Put(t Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[t.ID] = t
}

// MarkCompleted flags a topic as done for a learner in listings.
func (r *MemoryRepo) MarkCompleted(topicID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[topicID+"|"+userID] = true
}

func (r *MemoryRepo) Get(ctx context.Context, topicID string) (Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[topicID]
	if !ok {
		return Topic{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) ListByClassSubject(ctx context.Context, classID, subjectID, userID string) ([]Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Topic, 0)
	for _, t := range r.topics {
		if t.Class.ID != classID || t.Subject.ID != subjectID {
			continue
		}
		t.Completed = r.completed[t.ID+"|"+userID]
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}
