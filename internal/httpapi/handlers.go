package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"tutor-platform/internal/auth"
	"tutor-platform/internal/classes"
	"tutor-platform/internal/dashboard"
	"tutor-platform/internal/profiles"
	"tutor-platform/internal/progress"
	"tutor-platform/internal/session"
	"tutor-platform/internal/topics"
	"tutor-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Profiles  *profiles.Source
	Classes   *classes.Service
	Topics    *topics.Service
	Progress  *progress.Service
	Dashboard *dashboard.Service
	Sessions  *session.Registry
}

// --- Profile ---

// Me returns the caller's profile. ?refresh=1 bypasses the cache.
func (h Handlers) Me(c *gin.Context) {
	if h.Profiles == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profiles not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}

	var p profiles.Profile
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		p, err = h.Profiles.Refetch(c.Request.Context(), userID)
	} else {
		p, err = h.Profiles.Current(c.Request.Context(), userID)
	}
	if err != nil {
		h.fail(c, err, "profile lookup failed")
		return
	}
	c.JSON(http.StatusOK, p)
}

type setClassRequest struct {
	ClassID string `json:"class_id" binding:"required"`
}

// SetClass moves the caller into another class.
func (h Handlers) SetClass(c *gin.Context) {
	if h.Profiles == nil || h.Classes == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profiles not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req setClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "class_id required"})
		return
	}
	if _, err := h.Classes.Get(c.Request.Context(), req.ClassID); err != nil {
		if errors.Is(err, classes.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown class"})
			return
		}
		h.fail(c, err, "class lookup failed")
		return
	}
	p, err := h.Profiles.SetClass(c.Request.Context(), userID, req.ClassID)
	if err != nil {
		h.fail(c, err, "class update failed")
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- Classes ---

func (h Handlers) ListClasses(c *gin.Context) {
	if h.Classes == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "classes not configured"})
		return
	}
	list, err := h.Classes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "class listing failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": list})
}

// --- Topics ---

func (h Handlers) GetTopic(c *gin.Context) {
	if h.Topics == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "topics not configured"})
		return
	}
	t, err := h.Topics.Get(c.Request.Context(), c.Param("topic_id"))
	if err != nil {
		h.fail(c, err, "topic lookup failed")
		return
	}
	c.JSON(http.StatusOK, t)
}

// ListTopics lists a class/subject's topics with the caller's completion flags.
func (h Handlers) ListTopics(c *gin.Context) {
	if h.Topics == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "topics not configured"})
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	list, err := h.Topics.List(c.Request.Context(), c.Query("class_id"), c.Query("subject_id"), userID)
	if err != nil {
		h.fail(c, err, "topic listing failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": list})
}

// --- Progress ---

func (h Handlers) ListProgress(c *gin.Context) {
	if h.Progress == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "progress not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	rows, err := h.Progress.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "progress lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows})
}

// --- Dashboard ---

func (h Handlers) GetDashboard(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	sum, err := h.Dashboard.Summary(c.Request.Context(), dashboard.SummaryRequest{UserID: userID})
	if err != nil {
		h.fail(c, err, "dashboard failed")
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h Handlers) GetLeaderboard(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries, err := h.Dashboard.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err, "leaderboard failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// fail maps service errors onto HTTP statuses. Unknown errors are logged and
// reported with the generic message.
func (h Handlers) fail(c *gin.Context, err error, generic string) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error(generic, "err", err)
		msg = generic
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, profiles.ErrNotFound),
		errors.Is(err, topics.ErrNotFound),
		errors.Is(err, classes.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, session.ErrNoSession):
		return http.StatusNotFound, "no open session"
	case errors.Is(err, topics.ErrInvalidRequest),
		errors.Is(err, progress.ErrInvalidRequest),
		errors.Is(err, dashboard.ErrInvalidRequest),
		errors.Is(err, profiles.ErrInvalidRequest),
		errors.Is(err, classes.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, session.ErrMissingContext):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, session.ErrSessionElsewhere):
		return http.StatusConflict, "session already open elsewhere"
	case errors.Is(err, session.ErrClosed):
		return http.StatusConflict, "session closed"
	case errors.Is(err, session.ErrShuttingDown):
		return http.StatusServiceUnavailable, "shutting down"
	default:
		return http.StatusInternalServerError, ""
	}
}
