// Package classes serves the class catalogue and the subjects taught in
// each class.
package classes

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound       = errors.New("classes: not found")
	ErrInvalidRequest = errors.New("classes: invalid request")
)

type Repository interface {
	// List returns every class ordered by name.
	List(ctx context.Context) ([]Class, error)
	Get(ctx context.Context, classID string) (Class, error)
	// Subjects returns the subjects linked to classID ordered by name.
	Subjects(ctx context.Context, classID string) ([]Subject, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) List(ctx context.Context) ([]Class, error) {
	if s.repo == nil {
		return nil, errors.New("classes: repository not configured")
	}
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, classID string) (Class, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return Class{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Class{}, errors.New("classes: repository not configured")
	}
	return s.repo.Get(ctx, classID)
}

// Subjects lists what is taught in classID. An unknown class is ErrNotFound
// rather than an empty list.
func (s *Service) Subjects(ctx context.Context, classID string) ([]Subject, error) {
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}
	return s.repo.Subjects(ctx, strings.TrimSpace(classID))
}
