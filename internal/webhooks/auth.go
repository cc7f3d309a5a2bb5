// Package webhooks mirrors auth-provider user lifecycle events into learner
// profiles. Deliveries are at-least-once; every write is an upsert or an
// idempotent delete.
package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"

	"tutor-platform/internal/profiles"
	"tutor-platform/pkg/logger"
)

const maxPayloadBytes = 1 << 20

// UserEvent is the subset of an auth-provider user event we read.
type UserEvent struct {
	Type string   `json:"type"`
	Data UserData `json:"data"`
}

type UserData struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Identity converts the payload into the provider-owned profile fields.
func (d UserData) Identity() profiles.Identity {
	email := ""
	if len(d.EmailAddresses) > 0 {
		email = d.EmailAddresses[0].EmailAddress
	}
	return profiles.Identity{
		ExternalID: d.ID,
		Email:      email,
		FullName:   strings.TrimSpace(d.FirstName + " " + d.LastName),
		AvatarURL:  d.ImageURL,
	}
}

type ProfileSyncer interface {
	Sync(ctx context.Context, id profiles.Identity) (profiles.Profile, error)
	Delete(ctx context.Context, externalID string) error
}

type AuditLogger interface {
	LogUserSync(ctx context.Context, userID, message, metadata string) error
}

// ProfileCache is told when a profile changed underneath it.
type ProfileCache interface {
	Invalidate(externalID string)
}

// AuthHandler verifies svix-signed user events and applies them.
type AuthHandler struct {
	Verifier *svix.Webhook
	Profiles ProfileSyncer
	Audit    AuditLogger
	Cache    ProfileCache
}

// NewAuthHandler builds a handler for the signing secret ("whsec_...").
func NewAuthHandler(secret string, p ProfileSyncer, a AuditLogger, cache ProfileCache) (*AuthHandler, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("auth webhook secret: %w", err)
	}
	return &AuthHandler{Verifier: wh, Profiles: p, Audit: a, Cache: cache}, nil
}

func (h *AuthHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Verifier == nil || h.Profiles == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "auth webhook not configured"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if err := h.Verifier.Verify(payload, c.Request.Header); err != nil {
		log.Warn("auth webhook signature rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var ev UserEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if ev.Data.ID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing user id"})
		return
	}

	ctx := c.Request.Context()
	switch ev.Type {
	case "user.created", "user.updated":
		if _, err := h.Profiles.Sync(ctx, ev.Data.Identity()); err != nil {
			log.Error("profile upsert failed", "user_id", ev.Data.ID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile sync failed"})
			return
		}
	case "user.deleted":
		if err := h.Profiles.Delete(ctx, ev.Data.ID); err != nil {
			log.Error("profile delete failed", "user_id", ev.Data.ID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile delete failed"})
			return
		}
	default:
		log.Debug("auth webhook ignored", "type", ev.Type)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if h.Cache != nil {
		h.Cache.Invalidate(ev.Data.ID)
	}
	h.audit(c, ev)
	log.Info("auth webhook applied", "type", ev.Type, "user_id", ev.Data.ID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) audit(c *gin.Context, ev UserEvent) {
	if h.Audit == nil {
		return
	}
	meta, _ := json.Marshal(map[string]string{"svix_id": c.GetHeader("svix-id")})
	if err := h.Audit.LogUserSync(c.Request.Context(), ev.Data.ID, ev.Type, string(meta)); err != nil {
		logger.FromGin(c).Warn("auth webhook audit failed", "err", err)
	}
}
