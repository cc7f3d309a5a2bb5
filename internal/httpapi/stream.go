package httpapi

import (
	"context"
	"net/http"
	"time"

	"tutor-platform/internal/auth"
	"tutor-platform/internal/session"
	"tutor-platform/pkg/channels"
	"tutor-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxActionBytes = 4096
)

// Client actions on the session stream.
const (
	ActionStart = "start"
	ActionEnd   = "end"
	ActionMute  = "mute"
)

// Frame types pushed by the server.
const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// StreamAction is a client request on the session stream.
type StreamAction struct {
	Action  string `json:"action"`
	TopicID string `json:"topic_id,omitempty"`
}

// StreamFrame is one server message on the session stream.
type StreamFrame struct {
	Type    string            `json:"type"`
	Session *session.Snapshot `json:"session,omitempty"`
	Error   string            `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Stream serves the session screen over a WebSocket. The server pushes a
// snapshot on every change and once a second while a call is active; the
// client drives the call with StreamAction messages. Several streams for one
// learner share the session; the last one to disconnect tears it down.
func (h Handlers) Stream(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
		return
	}
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	log := logger.FromGin(c).With("user_id", id.UserID)

	ctrl, detach, err := h.Sessions.Attach(ctx, id.UserID)
	if err != nil {
		h.fail(c, err, "session open failed")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn("websocket upgrade failed", "err", err)
		detach(ctx)
		return
	}
	defer conn.Close()
	log.Info("session stream opened")

	snaps, unwatch := ctrl.Watch()
	errs := make(chan string, 4)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(conn, snaps, errs, done)
	}()

	conn.SetReadLimit(maxActionBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var a StreamAction
		if err := conn.ReadJSON(&a); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("session stream read failed", "err", err)
			}
			break
		}
		if msg := h.apply(ctx, ctrl, id, a); msg != "" {
			// Blocks while the writer catches up; gives up if it is gone.
			if err := channels.SendWithTimeout[string](errs, msg, writeWait); err != nil {
				log.Debug("stream error frame dropped", "err", err)
			}
		}
	}

	close(done)
	unwatch()
	<-writerDone
	detach(ctx)
	log.Info("session stream closed")
}

// apply runs one client action and returns the error text to report, if any.
func (h Handlers) apply(ctx context.Context, ctrl *session.Controller, id auth.Identity, a StreamAction) string {
	switch a.Action {
	case ActionStart:
		if a.TopicID == "" {
			return "topic_id required"
		}
		_, err := h.startTopic(ctx, id, a.TopicID)
		return streamError(err)
	case ActionEnd:
		return streamError(ctrl.End(ctx))
	case ActionMute:
		ctrl.ToggleMute()
		return ""
	default:
		return "unknown action " + a.Action
	}
}

func streamError(err error) string {
	if err == nil {
		return ""
	}
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		return err.Error()
	}
	return msg
}

// writeLoop is the only writer on conn. It returns when snaps closes, done
// closes or a write fails, and closes conn so the reader unblocks.
func writeLoop(conn *websocket.Conn, snaps <-chan session.Snapshot, errs <-chan string, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case s, ok := <-snaps:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(StreamFrame{Type: FrameSnapshot, Session: &s}); err != nil {
				return
			}
		case msg := <-errs:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(StreamFrame{Type: FrameError, Error: msg}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
