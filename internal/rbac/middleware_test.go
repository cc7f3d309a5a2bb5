package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tutor-platform/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serveWithRole(role string, guard gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), auth.Identity{UserID: "u", Role: role})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w
}

func TestRequireAnyRole(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{RoleStudent, http.StatusOK},
		{RoleParent, http.StatusForbidden},
		{RoleAdmin, http.StatusOK},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := serveWithRole(tc.role, RequireAnyRole(RoleStudent))
		assert.Equal(t, tc.want, w.Code, "role %q", tc.role)
	}
}

func TestRequireAnyRole_ForbiddenNamesRole(t *testing.T) {
	w := serveWithRole(RoleTeacher, RequireAnyRole(RoleStudent))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"teacher"`)
}

func TestRequireLearner(t *testing.T) {
	assert.Equal(t, http.StatusOK, serveWithRole(RoleStudent, RequireLearner()).Code)
	assert.Equal(t, http.StatusForbidden, serveWithRole(RoleAdmin, RequireLearner()).Code)
	assert.Equal(t, http.StatusUnauthorized, serveWithRole("", RequireLearner()).Code)
}
