package tui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tutor-platform/internal/httpapi"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	streamPath = "/v1/session/stream"
	writeWait  = 5 * time.Second
)

// StreamClient is a Conn over the API's session WebSocket.
type StreamClient struct {
	conn   *websocket.Conn
	msgs   chan tea.Msg
	writeM sync.Mutex

	closeOnce sync.Once
}

// StreamURL turns the API base URL into the session stream URL.
func StreamURL(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	u.Path += streamPath
	return u.String(), nil
}

// Dial opens the session stream with a bearer token.
func Dial(ctx context.Context, apiURL, token string) (*StreamClient, error) {
	target, err := StreamURL(apiURL)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, h)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial session stream: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial session stream: %w", err)
	}

	c := &StreamClient{conn: conn, msgs: make(chan tea.Msg, 16)}
	go c.readLoop()
	return c, nil
}

func (c *StreamClient) readLoop() {
	defer close(c.msgs)
	for {
		var f httpapi.StreamFrame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, net.ErrClosed) {
				c.msgs <- DisconnectedMsg{}
			} else {
				c.msgs <- DisconnectedMsg{Err: err}
			}
			return
		}
		switch f.Type {
		case httpapi.FrameSnapshot:
			if f.Session != nil {
				c.msgs <- SnapshotMsg{Snapshot: *f.Session}
			}
		case httpapi.FrameError:
			c.msgs <- ServerErrorMsg{Text: f.Error}
		}
	}
}

// Next implements Conn.
func (c *StreamClient) Next() tea.Cmd {
	return func() tea.Msg {
		m, ok := <-c.msgs
		if !ok {
			return DisconnectedMsg{}
		}
		return m
	}
}

// Send implements Conn.
func (c *StreamClient) Send(a httpapi.StreamAction) error {
	c.writeM.Lock()
	defer c.writeM.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(a); err != nil {
		return fmt.Errorf("send %s: %w", a.Action, err)
	}
	return nil
}

// Close says goodbye and closes the socket. The server then tears the
// session view down, stopping any live call.
func (c *StreamClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeM.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(writeWait))
		c.writeM.Unlock()
		err = c.conn.Close()
	})
	return err
}
