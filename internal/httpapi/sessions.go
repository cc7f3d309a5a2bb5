package httpapi

import (
	"context"
	"errors"
	"net/http"

	"tutor-platform/internal/auth"
	"tutor-platform/internal/session"
	"tutor-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// --- Sessions ---

// StartSession opens the caller's session view and starts a call about the
// topic. The call connects asynchronously; the response carries the
// snapshot as of the request, usually in the connecting phase.
func (h Handlers) StartSession(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
		return
	}
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}

	ctrl, err := h.startTopic(c.Request.Context(), id, c.Param("topic_id"))
	if err != nil {
		if ctrl != nil && errors.Is(err, session.ErrMissingContext) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "session": ctrl.Snapshot()})
			return
		}
		h.fail(c, err, "session start failed")
		return
	}
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

func (h Handlers) EndSession(c *gin.Context) {
	ctrl, ok := h.currentSession(c)
	if !ok {
		return
	}
	if err := ctrl.End(c.Request.Context()); err != nil {
		h.fail(c, err, "session end failed")
		return
	}
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

func (h Handlers) ToggleMute(c *gin.Context) {
	ctrl, ok := h.currentSession(c)
	if !ok {
		return
	}
	ctrl.ToggleMute()
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h Handlers) GetSession(c *gin.Context) {
	ctrl, ok := h.currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// CloseSession tears the caller's session view down, stopping any live call.
func (h Handlers) CloseSession(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	if err := h.Sessions.Release(c.Request.Context(), userID); err != nil {
		h.fail(c, err, "session close failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) currentSession(c *gin.Context) (*session.Controller, bool) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
		return nil, false
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return nil, false
	}
	ctrl, ok := h.Sessions.Get(userID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no open session"})
		return nil, false
	}
	return ctrl, true
}

// startTopic fills a missing display name from the stored profile before
// handing off to the registry. Tokens minted by the auth provider may omit it.
func (h Handlers) startTopic(ctx context.Context, id auth.Identity, topicID string) (*session.Controller, error) {
	if id.DisplayName == "" && h.Profiles != nil {
		p, err := h.Profiles.Current(ctx, id.UserID)
		if err != nil {
			logger.From(ctx).Warn("profile lookup for display name failed", "user_id", id.UserID, "err", err)
		} else {
			id.DisplayName = p.FullName
		}
	}
	return h.Sessions.StartTopic(ctx, id, topicID)
}
