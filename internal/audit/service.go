// Package audit keeps an append-only trail of session lifecycle steps and
// profile syncs.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository stores events. It has no update or delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

var (
	ErrInvalidEvent  = errors.New("audit: event needs a user id and a kind")
	ErrNotConfigured = errors.New("audit: repository not configured")
)

// Service stamps and stores events.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Append fills ID and CreatedAt when unset and stores e.
func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return ErrNotConfigured
	}
	if !e.valid() {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogSession records a step of a learner's session, e.g. "call started".
func (s *Service) LogSession(ctx context.Context, userID, topicID, message string) error {
	return s.Append(ctx, Event{
		Kind:    KindSession,
		UserID:  userID,
		Source:  SourceSession,
		TopicID: topicID,
		Message: message,
	})
}

// LogUserSync records a profile change mirrored from the auth provider.
// metadata must be a JSON object or empty.
func (s *Service) LogUserSync(ctx context.Context, userID, eventType, metadata string) error {
	if metadata != "" && !json.Valid([]byte(metadata)) {
		return ErrInvalidEvent
	}
	return s.Append(ctx, Event{
		Kind:     KindUserSync,
		UserID:   userID,
		Source:   SourceAuthWebhook,
		Message:  eventType,
		Metadata: metadata,
	})
}
