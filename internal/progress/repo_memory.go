package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps progress and awarded xp in memory. For tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]Record // key: topic_id|user_id
	xp      map[string]int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: map[string]Record{}, xp: map[string]int{}}
}

func (r *MemoryRepo) MarkComplete(ctx context.Context, topicID, userID string, at time.Time, xp int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := topicID + "|" + userID
	rec, ok := r.records[key]
	first := !ok || !rec.Completed
	r.records[key] = Record{TopicID: topicID, UserID: userID, Completed: true, LastAttempt: at}
	if first {
		r.xp[userID] += xp
	}
	return first, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAttempt.After(out[j].LastAttempt) })
	return out, nil
}

// XP reports the xp awarded to userID through this repo.
func (r *MemoryRepo) XP(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.xp[userID]
}

func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
