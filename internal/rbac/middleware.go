package rbac

import (
	"net/http"
	"slices"

	"tutor-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole admits callers whose role claim is one of allowed. Admins
// are always admitted so support staff can inspect learner endpoints.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowed = slices.Clone(allowed)
	return requireRole(func(role string) bool {
		return IsAdmin(role) || slices.Contains(allowed, role)
	})
}

// RequireLearner admits only roles that can hold tutoring sessions. Admins
// are not learners and are refused.
func RequireLearner() gin.HandlerFunc {
	return requireRole(IsLearner)
}

func requireRole(admit func(role string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		switch {
		case err != nil || role == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
		case !admit(role):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not permitted", "role": role})
		default:
			c.Next()
		}
	}
}
