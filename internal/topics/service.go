package topics

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound       = errors.New("topics: not found")
	ErrInvalidRequest = errors.New("topics: invalid request")
)

type Repository interface {
	Get(ctx context.Context, topicID string) (Topic, error)
	ListByClassSubject(ctx context.Context, classID, subjectID, userID string) ([]Topic, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) Get(ctx context.Context, topicID string) (Topic, error) {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return Topic{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Topic{}, errors.New("topics: repository not configured")
	}
	return s.repo.Get(ctx, topicID)
}

// List returns a class/subject's topics in lesson order with the learner's
// completion flags.
func (s *Service) List(ctx context.Context, classID, subjectID, userID string) ([]Topic, error) {
	if strings.TrimSpace(classID) == "" || strings.TrimSpace(subjectID) == "" {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("topics: repository not configured")
	}
	return s.repo.ListByClassSubject(ctx, classID, subjectID, userID)
}
