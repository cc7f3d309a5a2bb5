package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor-platform/internal/session"
)

func TestServerMessage_Events(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []session.EventType
		msg  string
	}{
		{"in progress", `{"message":{"type":"status-update","status":"in-progress"}}`, []session.EventType{session.EventCallStart}, ""},
		{"ringing ignored", `{"message":{"type":"status-update","status":"ringing"}}`, nil, ""},
		{"ended", `{"message":{"type":"status-update","status":"ended","endedReason":"customer-ended-call"}}`, []session.EventType{session.EventCallEnd}, ""},
		{"ended with error", `{"message":{"type":"status-update","status":"ended","endedReason":"pipeline-error-openai-llm-failed"}}`, []session.EventType{session.EventError, session.EventCallEnd}, ""},
		{"end of call report", `{"message":{"type":"end-of-call-report","endedReason":"assistant-ended-call"}}`, []session.EventType{session.EventCallEnd}, ""},
		{"speech started", `{"message":{"type":"speech-update","status":"started","role":"assistant"}}`, []session.EventType{session.EventSpeechStart}, ""},
		{"speech stopped", `{"message":{"type":"speech-update","status":"stopped","role":"user"}}`, []session.EventType{session.EventSpeechEnd}, ""},
		{"conversation", `{"message":{"type":"conversation-update"}}`, []session.EventType{session.EventMessage}, session.MessageConversation},
		{"model output", `{"message":{"type":"model-output"}}`, []session.EventType{session.EventMessage}, session.MessageResponse},
		{"transcript", `{"message":{"type":"transcript","role":"user","transcript":"half of four"}}`, []session.EventType{session.EventMessage}, session.MessageTranscript},
		{"hang", `{"message":{"type":"hang"}}`, []session.EventType{session.EventError}, ""},
		{"tool calls ignored", `{"message":{"type":"tool-calls"}}`, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseEnvelope([]byte(tt.raw))
			require.NoError(t, err)

			evs := m.Events()
			var got []session.EventType
			for _, ev := range evs {
				got = append(got, ev.Type)
				if ev.Type == session.EventError {
					assert.Error(t, ev.Err)
				}
			}
			assert.Equal(t, tt.want, got)
			if tt.msg != "" {
				require.NotNil(t, evs[0].Message)
				assert.Equal(t, tt.msg, evs[0].Message.Type)
			}
		})
	}
}

func TestServerMessage_TranscriptCarriesText(t *testing.T) {
	m, err := ParseEnvelope([]byte(`{"message":{"type":"transcript","role":"user","transcript":"half of four"}}`))
	require.NoError(t, err)
	ev := m.Events()[0]
	assert.Equal(t, "half of four", ev.Message.Transcript)
	assert.Equal(t, "user", ev.Message.Role)
}

func TestParseEnvelope_Rejects(t *testing.T) {
	_, err := ParseEnvelope([]byte(`not json`))
	assert.Error(t, err)
	_, err = ParseEnvelope([]byte(`{"message":{}}`))
	assert.Error(t, err)
}
