package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tutor-platform/internal/session"
)

// Envelope is the body of a provider server message request.
type Envelope struct {
	Message ServerMessage `json:"message"`
}

// ServerMessage captures the subset of server message fields we map.
type ServerMessage struct {
	Type string `json:"type"`
	Call struct {
		ID string `json:"id"`
	} `json:"call"`

	// status-update, speech-update
	Status      string `json:"status,omitempty"`
	EndedReason string `json:"endedReason,omitempty"`

	// speech-update, transcript
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	TranscriptType string `json:"transcriptType,omitempty"`
}

func ParseEnvelope(raw []byte) (ServerMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ServerMessage{}, fmt.Errorf("decode server message: %w", err)
	}
	if env.Message.Type == "" {
		return ServerMessage{}, errors.New("server message: missing type")
	}
	return env.Message, nil
}

// Events maps the message onto the session event contract. Messages with no
// session meaning map to nothing.
func (m ServerMessage) Events() []session.Event {
	switch m.Type {
	case "status-update":
		switch m.Status {
		case "in-progress":
			return []session.Event{{Type: session.EventCallStart}}
		case "ended":
			return endedEvents(m.EndedReason)
		}
	case "end-of-call-report":
		return endedEvents(m.EndedReason)
	case "speech-update":
		switch m.Status {
		case "started":
			return []session.Event{{Type: session.EventSpeechStart}}
		case "stopped":
			return []session.Event{{Type: session.EventSpeechEnd}}
		}
	case "conversation-update":
		return []session.Event{message(session.MessageConversation, m)}
	case "model-output":
		return []session.Event{message(session.MessageResponse, m)}
	case "transcript":
		return []session.Event{message(session.MessageTranscript, m)}
	case "hang":
		return []session.Event{{Type: session.EventError, Err: errors.New("assistant stopped responding")}}
	}
	return nil
}

// endedEvents reports an error-flavoured end reason before the end itself.
func endedEvents(reason string) []session.Event {
	if strings.Contains(strings.ToLower(reason), "error") {
		return []session.Event{
			{Type: session.EventError, Err: errors.New(reason)},
			{Type: session.EventCallEnd},
		}
	}
	return []session.Event{{Type: session.EventCallEnd}}
}

func message(kind string, m ServerMessage) session.Event {
	return session.Event{Type: session.EventMessage, Message: &session.Message{
		Type:       kind,
		Role:       m.Role,
		Transcript: m.Transcript,
	}}
}
