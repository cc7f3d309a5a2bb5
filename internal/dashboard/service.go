package dashboard

import (
	"context"
	"errors"
	"time"

	"tutor-platform/internal/classes"
	"tutor-platform/internal/profiles"
	"tutor-platform/internal/progress"
)

var ErrInvalidRequest = errors.New("dashboard: invalid request")

type ProgressLister interface {
	ListByUser(ctx context.Context, userID string) ([]progress.Record, error)
}

type ProfileReader interface {
	Get(ctx context.Context, externalID string) (profiles.Profile, error)
	Leaderboard(ctx context.Context, limit int) ([]profiles.Profile, error)
}

// ClassCatalog resolves the learner's class and its subjects.
type ClassCatalog interface {
	Get(ctx context.Context, classID string) (classes.Class, error)
	Subjects(ctx context.Context, classID string) ([]classes.Subject, error)
}

type Service struct {
	progress ProgressLister
	profiles ProfileReader
	catalog  ClassCatalog
	clock    func() time.Time
}

func NewService(progress ProgressLister, profiles ProfileReader, catalog ClassCatalog) *Service {
	return &Service{progress: progress, profiles: profiles, catalog: catalog, clock: time.Now}
}

func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	if req.UserID == "" {
		return Summary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() && req.Range.To.IsZero() {
		now := s.clock().UTC()
		req.Range = TimeRange{From: now.AddDate(0, 0, -7), To: now}
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return Summary{}, ErrInvalidRequest
	}
	if s.progress == nil || s.profiles == nil {
		return Summary{}, errors.New("dashboard: dependencies not configured")
	}

	out := Summary{UserID: req.UserID, Range: req.Range, Subjects: []classes.Subject{}}

	p, err := s.profiles.Get(ctx, req.UserID)
	switch {
	case err == nil:
		out.FullName = p.FullName
		out.XP = p.XP
		if err := s.fillClass(ctx, &out, p.ClassID); err != nil {
			return Summary{}, err
		}
	case errors.Is(err, profiles.ErrNotFound):
		// Webhook sync may lag behind the first sign-in.
	default:
		return Summary{}, err
	}

	rows, err := s.progress.ListByUser(ctx, req.UserID)
	if err != nil {
		return Summary{}, err
	}
	for _, r := range rows {
		out.TopicsAttempted++
		if r.Completed {
			out.TopicsCompleted++
			if !r.LastAttempt.Before(req.Range.From) && r.LastAttempt.Before(req.Range.To) {
				out.CompletedInRange++
			}
		}
		if out.LastActivity == nil || r.LastAttempt.After(*out.LastActivity) {
			last := r.LastAttempt
			out.LastActivity = &last
		}
	}
	return out, nil
}

func (s *Service) fillClass(ctx context.Context, out *Summary, classID string) error {
	if classID == "" || s.catalog == nil {
		return nil
	}
	c, err := s.catalog.Get(ctx, classID)
	if errors.Is(err, classes.ErrNotFound) {
		// The class was removed after the learner picked it.
		return nil
	}
	if err != nil {
		return err
	}
	subjects, err := s.catalog.Subjects(ctx, classID)
	if err != nil {
		return err
	}
	out.Class = &c
	out.Subjects = subjects
	return nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if s.profiles == nil {
		return nil, errors.New("dashboard: dependencies not configured")
	}
	top, err := s.profiles.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(top))
	for i, p := range top {
		out = append(out, LeaderboardEntry{
			Rank:      i + 1,
			UserID:    p.ExternalID,
			FullName:  p.FullName,
			AvatarURL: p.AvatarURL,
			XP:        p.XP,
		})
	}
	return out, nil
}
