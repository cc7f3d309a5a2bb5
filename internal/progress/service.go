package progress

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrInvalidRequest = errors.New("progress: invalid request")

// Repository persists progress records.
//
// MarkComplete must upsert on (topic_id, user_id) and award xp to the
// learner's profile in the same transaction, only when the row was not
// already completed. It reports whether this call was the first completion.
type Repository interface {
	MarkComplete(ctx context.Context, topicID, userID string, at time.Time, xp int) (first bool, err error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// MarkComplete records a finished tutoring session for the learner.
// Repeated calls only refresh last_attempt.
func (s *Service) MarkComplete(ctx context.Context, topicID, userID string) error {
	if strings.TrimSpace(topicID) == "" || strings.TrimSpace(userID) == "" {
		return ErrInvalidRequest
	}
	if s.repo == nil {
		return errors.New("progress: repository not configured")
	}
	_, err := s.repo.MarkComplete(ctx, topicID, userID, s.clock().UTC(), CompletionXP)
	return err
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("progress: repository not configured")
	}
	return s.repo.ListByUser(ctx, userID)
}
