package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("profiles: not found")
	ErrInvalidRequest = errors.New("profiles: invalid request")
)

type Repository interface {
	GetByExternalID(ctx context.Context, externalID string) (Profile, error)
	// Upsert inserts p or, on external_id conflict, refreshes only the
	// provider-owned fields. It returns the stored row.
	Upsert(ctx context.Context, p Profile) (Profile, error)
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
	// SetClass records the learner's class and returns the stored row.
	SetClass(ctx context.Context, externalID, classID string) (Profile, error)
	TopByXP(ctx context.Context, limit int) ([]Profile, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Get(ctx context.Context, externalID string) (Profile, error) {
	if strings.TrimSpace(externalID) == "" {
		return Profile{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Profile{}, errors.New("profiles: repository not configured")
	}
	return s.repo.GetByExternalID(ctx, externalID)
}

// Sync mirrors a provider user into a profile. New profiles start as
// students with zero xp.
func (s *Service) Sync(ctx context.Context, id Identity) (Profile, error) {
	if strings.TrimSpace(id.ExternalID) == "" {
		return Profile{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Profile{}, errors.New("profiles: repository not configured")
	}
	return s.repo.Upsert(ctx, Profile{
		ID:         uuid.NewString(),
		ExternalID: id.ExternalID,
		Email:      id.Email,
		FullName:   strings.TrimSpace(id.FullName),
		AvatarURL:  id.AvatarURL,
		Role:       RoleStudent,
		CreatedAt:  s.clock().UTC(),
	})
}

// Delete removes the profile for a deleted provider user. Deleting an
// unknown user is not an error since deliveries repeat.
func (s *Service) Delete(ctx context.Context, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return ErrInvalidRequest
	}
	if s.repo == nil {
		return errors.New("profiles: repository not configured")
	}
	_, err := s.repo.DeleteByExternalID(ctx, externalID)
	return err
}

// SetClass moves the learner into classID. The caller checks the class
// exists.
func (s *Service) SetClass(ctx context.Context, externalID, classID string) (Profile, error) {
	externalID, classID = strings.TrimSpace(externalID), strings.TrimSpace(classID)
	if externalID == "" || classID == "" {
		return Profile{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Profile{}, errors.New("profiles: repository not configured")
	}
	return s.repo.SetClass(ctx, externalID, classID)
}

// Leaderboard returns the top learners by xp.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if s.repo == nil {
		return nil, errors.New("profiles: repository not configured")
	}
	return s.repo.TopByXP(ctx, limit)
}
