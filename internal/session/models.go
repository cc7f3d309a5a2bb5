// Package session implements the voice-tutoring call lifecycle: a state
// machine layered over a hosted voice provider's event stream, the derived
// snapshot the session screen renders, and the progress write-back issued
// when a call ends.
package session

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the call lifecycle phase.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseActive     Phase = "active"
	PhaseEnding     Phase = "ending"
)

// StatusKind classifies the transient status banner.
type StatusKind string

const (
	StatusInfo     StatusKind = "info"
	StatusProgress StatusKind = "progress"
	StatusError    StatusKind = "error"
)

// CallContext is the per-call context handed to the provider at start.
// It is copied into the controller and never changes while the call runs.
type CallContext struct {
	UserID  string `json:"user_id"`
	TopicID string `json:"topic_id"`

	LearnerName string `json:"learner_name"`
	TopicTitle  string `json:"topic_title"`
	SubjectName string `json:"subject_name"`
	ClassName   string `json:"class_name"`
}

// Overrides are the assistant variable values for this call.
func (c CallContext) Overrides() Overrides {
	return Overrides{Variables: map[string]string{
		"name":    c.LearnerName,
		"topic":   c.TopicTitle,
		"subject": c.SubjectName,
		"class":   c.ClassName,
	}}
}

// validate returns the user-facing status for missing context, or "".
func (c CallContext) validate() (string, error) {
	if strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.LearnerName) == "" {
		return "User information not available", fmt.Errorf("%w: learner", ErrMissingContext)
	}
	var missing []string
	if strings.TrimSpace(c.TopicID) == "" {
		missing = append(missing, "topic id")
	}
	if strings.TrimSpace(c.TopicTitle) == "" {
		missing = append(missing, "topic")
	}
	if strings.TrimSpace(c.SubjectName) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(c.ClassName) == "" {
		missing = append(missing, "class")
	}
	if len(missing) > 0 {
		return "Topic data not available", fmt.Errorf("%w: %s", ErrMissingContext, strings.Join(missing, ", "))
	}
	return "", nil
}

// Snapshot is the state the session screen renders.
type Snapshot struct {
	Phase           Phase      `json:"phase"`
	IsRecording     bool       `json:"is_recording"`
	IsAISpeaking    bool       `json:"is_ai_speaking"`
	IsMuted         bool       `json:"is_muted"`
	DurationSeconds int        `json:"duration_seconds"`
	StatusMessage   string     `json:"status_message,omitempty"`
	StatusKind      StatusKind `json:"status_kind,omitempty"`

	TopicID     string `json:"topic_id,omitempty"`
	TopicTitle  string `json:"topic_title,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	ClassName   string `json:"class_name,omitempty"`

	JoinURL string `json:"join_url,omitempty"`
}

// Busy reports whether a call handle is in use.
func (s Snapshot) Busy() bool { return s.Phase != PhaseIdle }

// Duration renders DurationSeconds as mm:ss.
func (s Snapshot) Duration() string {
	return FormatDuration(time.Duration(s.DurationSeconds) * time.Second)
}

// FormatDuration renders d as zero-padded minutes and seconds.
// Minutes keep growing past 59 rather than rolling into hours.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
