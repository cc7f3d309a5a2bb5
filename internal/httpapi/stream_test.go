package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tutor-platform/internal/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, api *testAPI) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(api.router)
	t.Cleanup(srv.Close)
	return dialStreamAt(t, api, srv)
}

func dialStreamAt(t *testing.T, api *testAPI, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/session/stream?access_token=" + api.token(t, learner)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until match accepts one or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(StreamFrame) bool) StreamFrame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var f StreamFrame
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func inPhase(p session.Phase) func(StreamFrame) bool {
	return func(f StreamFrame) bool {
		return f.Type == FrameSnapshot && f.Session != nil && f.Session.Phase == p
	}
}

func TestStream_DrivesCall(t *testing.T) {
	api := newTestAPI(t)
	conn := dialStream(t, api)

	first := readUntil(t, conn, func(StreamFrame) bool { return true })
	require.Equal(t, FrameSnapshot, first.Type)
	assert.Equal(t, session.PhaseIdle, first.Session.Phase)
	assert.Equal(t, 1, api.sessions.Len())

	require.NoError(t, conn.WriteJSON(StreamAction{Action: ActionStart, TopicID: "topic_1"}))
	active := readUntil(t, conn, inPhase(session.PhaseActive))
	assert.Equal(t, "Fractions", active.Session.TopicTitle)

	require.NoError(t, conn.WriteJSON(StreamAction{Action: ActionMute}))
	readUntil(t, conn, func(f StreamFrame) bool { return f.Session != nil && f.Session.IsMuted })

	require.NoError(t, conn.WriteJSON(StreamAction{Action: ActionEnd}))
	ended := readUntil(t, conn, func(f StreamFrame) bool {
		return f.Session != nil && f.Session.Phase == session.PhaseIdle && f.Session.StatusMessage == "Call ended"
	})
	assert.Zero(t, ended.Session.DurationSeconds)
}

func TestStream_ReportsActionErrors(t *testing.T) {
	api := newTestAPI(t)
	conn := dialStream(t, api)

	require.NoError(t, conn.WriteJSON(StreamAction{Action: "dance"}))
	f := readUntil(t, conn, func(f StreamFrame) bool { return f.Type == FrameError })
	assert.Equal(t, "unknown action dance", f.Error)

	require.NoError(t, conn.WriteJSON(StreamAction{Action: ActionStart}))
	f = readUntil(t, conn, func(f StreamFrame) bool { return f.Type == FrameError })
	assert.Equal(t, "topic_id required", f.Error)

	require.NoError(t, conn.WriteJSON(StreamAction{Action: ActionStart, TopicID: "nope"}))
	f = readUntil(t, conn, func(f StreamFrame) bool { return f.Type == FrameError })
	assert.Equal(t, "not found", f.Error)
}

func TestStream_DisconnectReleasesSession(t *testing.T) {
	api := newTestAPI(t)
	conn := dialStream(t, api)

	readUntil(t, conn, func(StreamFrame) bool { return true })
	require.NoError(t, conn.WriteJSON(StreamAction{Action: ActionStart, TopicID: "topic_1"}))
	readUntil(t, conn, inPhase(session.PhaseActive))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return api.sessions.Len() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestStream_SecondStreamKeepsSessionAlive(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	t.Cleanup(srv.Close)

	first := dialStreamAt(t, api, srv)
	readUntil(t, first, func(StreamFrame) bool { return true })
	second := dialStreamAt(t, api, srv)
	readUntil(t, second, func(StreamFrame) bool { return true })
	require.Eventually(t, func() bool { return api.sessions.Views(learner.UserID) == 2 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, second.WriteJSON(StreamAction{Action: ActionStart, TopicID: "topic_1"}))
	readUntil(t, second, inPhase(session.PhaseActive))

	require.NoError(t, first.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return api.sessions.Views(learner.UserID) == 1 }, 3*time.Second, 10*time.Millisecond)

	// The call survives on the remaining stream.
	require.NoError(t, second.WriteJSON(StreamAction{Action: ActionMute}))
	f := readUntil(t, second, func(f StreamFrame) bool {
		return f.Type == FrameSnapshot && f.Session != nil && f.Session.IsMuted
	})
	assert.Equal(t, session.PhaseActive, f.Session.Phase)
	assert.Equal(t, 1, api.sessions.Len())
}

func TestStream_ReportsEveryErrorInABurst(t *testing.T) {
	api := newTestAPI(t)
	conn := dialStream(t, api)
	readUntil(t, conn, func(StreamFrame) bool { return true })

	const burst = 12
	for i := 0; i < burst; i++ {
		require.NoError(t, conn.WriteJSON(StreamAction{Action: "dance"}))
	}
	for i := 0; i < burst; i++ {
		f := readUntil(t, conn, func(f StreamFrame) bool { return f.Type == FrameError })
		assert.Equal(t, "unknown action dance", f.Error)
	}
}
