package audit

import "time"

// Kind classifies an audit event.
type Kind string

const (
	KindSession  Kind = "session"
	KindUserSync Kind = "user_sync"
)

// Sources that write audit events.
const (
	SourceSession     = "session"
	SourceAuthWebhook = "auth_webhook"
)

// Event is one append-only audit record about a learner. Events are never
// updated; recording them must not block a call or a webhook.
type Event struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	UserID  string `json:"user_id"`
	Source  string `json:"source,omitempty"`
	TopicID string `json:"topic_id,omitempty"`
	Message string `json:"message,omitempty"`

	// Metadata is a JSON object, stored as jsonb.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (e Event) valid() bool {
	return e.UserID != "" && e.Kind != ""
}
