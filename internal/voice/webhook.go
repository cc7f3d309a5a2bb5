package voice

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutor-platform/pkg/logger"
)

// SecretHeader carries the shared secret on provider server messages.
const SecretHeader = "X-Vapi-Secret"

const maxMessageBytes = 1 << 20

// WebhookHandler receives provider server messages, maps them to session
// events and routes them to the owning call handle.
//
// No business logic here.
type WebhookHandler struct {
	Secret    string
	Directory *Directory
}

func (h WebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Directory == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "voice directory not configured"})
		return
	}
	if h.Secret != "" {
		got := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			log.Warn("voice webhook rejected", "reason", "bad secret")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	msg, err := ParseEnvelope(raw)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid message"})
		return
	}

	evs := msg.Events()
	if len(evs) > 0 && !h.Directory.Deliver(msg.Call.ID, evs) {
		log.Debug("voice message for unknown call", "call_id", msg.Call.ID, "type", msg.Type)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
