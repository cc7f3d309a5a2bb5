package profiles

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory profile store for tests and local runs.
type MemoryRepo struct {
	mu       sync.Mutex
	profiles map[string]Profile // key: external_id
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{profiles: map[string]Profile{}} }

func (r *MemoryRepo) GetByExternalID(ctx context.Context, externalID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[externalID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, p Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.profiles[p.ExternalID]; ok {
		cur.Email = p.Email
		cur.FullName = p.FullName
		cur.AvatarURL = p.AvatarURL
		r.profiles[p.ExternalID] = cur
		return cur, nil
	}
	p.XP = 0
	r.profiles[p.ExternalID] = p
	return p, nil
}

func (r *MemoryRepo) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.profiles[externalID]
	delete(r.profiles, externalID)
	return ok, nil
}

func (r *MemoryRepo) SetClass(ctx context.Context, externalID, classID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[externalID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	p.ClassID = classID
	r.profiles[externalID] = p
	return p, nil
}

func (r *MemoryRepo) TopByXP(ctx context.Context, limit int) ([]Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if p.Role == RoleStudent {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AddXP bumps a stored profile's xp. Test helper for leaderboard setups.
func (r *MemoryRepo) AddXP(externalID string, xp int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[externalID]; ok {
		p.XP += xp
		r.profiles[externalID] = p
	}
}
