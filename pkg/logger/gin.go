package logger

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-Id"
	ginLoggerKey    = "logger"
)

// quietPaths are polled by probes and only logged at debug.
var quietPaths = map[string]bool{
	"/healthz": true,
}

// Middleware gives each request a logger tagged with request_id, reachable
// through FromGin and From, and writes one access line when the handler
// returns. For the session stream that line marks the socket closing.
func Middleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(headerRequestID, rid)

		reqLog := l.With("request_id", rid)
		c.Set(ginLoggerKey, reqLog)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLog))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", route),
			slog.Int("status", status),
			slog.Duration("elapsed", time.Since(started)),
		}
		if isUpgrade(c.Request) {
			attrs = append(attrs, slog.Bool("websocket", true))
		}
		// Set by auth.RequireAccessToken.
		if uid := c.GetString("user_id"); uid != "" {
			attrs = append(attrs, slog.String("user_id", uid))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		reqLog.LogAttrs(c.Request.Context(), accessLevel(route, status, len(c.Errors) > 0), "request", attrs...)
	}
}

func accessLevel(route string, status int, hasErrors bool) slog.Level {
	switch {
	case hasErrors || status >= http.StatusInternalServerError:
		return slog.LevelError
	case quietPaths[route] && status < http.StatusBadRequest:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// FromGin returns the request logger set by Middleware, or slog.Default.
func FromGin(c *gin.Context) *slog.Logger {
	v, _ := c.Get(ginLoggerKey)
	if l, ok := v.(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
