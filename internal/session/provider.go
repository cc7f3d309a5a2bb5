package session

import (
	"context"
	"errors"
)

var (
	ErrMissingContext = errors.New("session: required call context missing")
	ErrClosed         = errors.New("session: controller closed")
)

// EventType names the provider's event stream.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
)

// Message types that count as the assistant talking.
const (
	MessageConversation = "conversation"
	MessageResponse     = "response"
	MessageTranscript   = "transcript"
)

// Message is the payload of an EventMessage.
type Message struct {
	Type       string `json:"type"`
	Role       string `json:"role,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Event is one item of the provider's event stream.
type Event struct {
	Type    EventType
	Message *Message
	Err     error
}

// Handler consumes provider events.
type Handler func(Event)

// Overrides are per-call assistant settings passed at start.
type Overrides struct {
	Variables map[string]string `json:"variableValues"`
}

// Provider is the voice SDK contract the controller consumes.
// Start and Stop are requests; their outcome is reported through the event
// stream. A returned error means the request itself failed.
type Provider interface {
	Start(ctx context.Context, assistantID string, overrides Overrides) error
	Stop(ctx context.Context) error
	// Subscribe registers h for every event and returns a function that
	// removes it. The returned function is safe to call more than once.
	Subscribe(h Handler) (unsubscribe func())
}

// ProgressStore marks a topic complete for a learner. Implementations must
// upsert on (topicID, userID).
type ProgressStore interface {
	MarkComplete(ctx context.Context, topicID, userID string) error
}

// Joiner is implemented by providers whose calls are joined by the client
// at a URL, e.g. a web call room.
type Joiner interface {
	JoinURL() string
}
