package profiles

import (
	"context"
	"sync"
	"time"
)

// Source serves the current learner's profile to handlers. Reads are cached
// per learner for a short TTL; Refetch bypasses the cache.
type Source struct {
	svc   *Service
	ttl   time.Duration
	clock func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

type cached struct {
	p  Profile
	at time.Time
}

func NewSource(svc *Service, ttl time.Duration) *Source {
	return &Source{svc: svc, ttl: ttl, clock: time.Now, cache: map[string]cached{}}
}

func (s *Source) Current(ctx context.Context, externalID string) (Profile, error) {
	s.mu.Lock()
	c, ok := s.cache[externalID]
	s.mu.Unlock()
	if ok && s.clock().Sub(c.at) < s.ttl {
		return c.p, nil
	}
	return s.Refetch(ctx, externalID)
}

func (s *Source) Refetch(ctx context.Context, externalID string) (Profile, error) {
	p, err := s.svc.Get(ctx, externalID)
	if err != nil {
		s.Invalidate(externalID)
		return Profile{}, err
	}
	s.mu.Lock()
	s.cache[externalID] = cached{p: p, at: s.clock()}
	s.mu.Unlock()
	return p, nil
}

// SetClass changes the learner's class and drops the cached profile so the
// next read sees it.
func (s *Source) SetClass(ctx context.Context, externalID, classID string) (Profile, error) {
	p, err := s.svc.SetClass(ctx, externalID, classID)
	s.Invalidate(externalID)
	return p, err
}

// Invalidate drops a cached profile, e.g. after a webhook changed it.
func (s *Source) Invalidate(externalID string) {
	s.mu.Lock()
	delete(s.cache, externalID)
	s.mu.Unlock()
}
