package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tutor-platform/internal/httpapi"
	"tutor-platform/internal/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamURL(t *testing.T) {
	cases := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/v1/session/stream"},
		{in: "https://api.example.com/", want: "wss://api.example.com/v1/session/stream"},
		{in: "https://api.example.com/tutor", want: "wss://api.example.com/tutor/v1/session/stream"},
		{in: "ftp://x", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := StreamURL(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStreamClient(t *testing.T) {
	gotAuth := make(chan string, 1)
	gotAction := make(chan httpapi.StreamAction, 1)

	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(httpapi.StreamFrame{Type: httpapi.FrameSnapshot, Session: &session.Snapshot{Phase: session.PhaseIdle}})
		var a httpapi.StreamAction
		if err := conn.ReadJSON(&a); err != nil {
			return
		}
		gotAction <- a
		_ = conn.WriteJSON(httpapi.StreamFrame{Type: httpapi.FrameError, Error: "not found"})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.URL, "tok")
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "Bearer tok", <-gotAuth)

	msg := c.Next()()
	require.IsType(t, SnapshotMsg{}, msg)
	assert.Equal(t, session.PhaseIdle, msg.(SnapshotMsg).Snapshot.Phase)

	require.NoError(t, c.Send(httpapi.StreamAction{Action: httpapi.ActionStart, TopicID: "nope"}))
	assert.Equal(t, "nope", (<-gotAction).TopicID)

	assert.Equal(t, ServerErrorMsg{Text: "not found"}, c.Next()())

	require.NoError(t, c.Close())
	assert.IsType(t, DisconnectedMsg{}, c.Next()())
}
