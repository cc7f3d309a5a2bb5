package dashboard

import (
	"time"

	"tutor-platform/internal/classes"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SummaryRequest asks for one learner's dashboard figures.
// A zero Range defaults to the trailing seven days.
type SummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type Summary struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name,omitempty"`
	XP       int    `json:"xp"`

	TopicsAttempted  int `json:"topics_attempted"`
	TopicsCompleted  int `json:"topics_completed"`
	CompletedInRange int `json:"completed_in_range"`

	Range        TimeRange  `json:"range"`
	LastActivity *time.Time `json:"last_activity,omitempty"`

	// Class and Subjects are empty until the learner picks a class.
	Class    *classes.Class    `json:"class,omitempty"`
	Subjects []classes.Subject `json:"subjects"`
}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	XP        int    `json:"xp"`
}
