package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tutor-platform/internal/auth"
	"tutor-platform/internal/classes"
	"tutor-platform/internal/config"
	"tutor-platform/internal/dashboard"
	"tutor-platform/internal/profiles"
	"tutor-platform/internal/progress"
	"tutor-platform/internal/rbac"
	"tutor-platform/internal/session"
	"tutor-platform/internal/topics"
	"tutor-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider connects on Start and confirms the end on Stop.
type stubProvider struct {
	mu       sync.Mutex
	next     int
	handlers map[int]session.Handler
}

func (p *stubProvider) Start(ctx context.Context, assistantID string, o session.Overrides) error {
	p.emit(session.Event{Type: session.EventCallStart})
	return nil
}

func (p *stubProvider) Stop(ctx context.Context) error {
	p.emit(session.Event{Type: session.EventCallEnd})
	return nil
}

func (p *stubProvider) Subscribe(h session.Handler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handlers == nil {
		p.handlers = map[int]session.Handler{}
	}
	id := p.next
	p.next++
	p.handlers[id] = h
	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

func (p *stubProvider) emit(ev session.Event) {
	p.mu.Lock()
	hs := make([]session.Handler, 0, len(p.handlers))
	for _, h := range p.handlers {
		hs = append(hs, h)
	}
	p.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

type testAPI struct {
	router   *gin.Engine
	auth     *auth.Manager
	profiles *profiles.Service
	progress *progress.MemoryRepo
	sessions *session.Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := auth.NewManager(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	topicRepo := topics.NewMemoryRepo(topics.Topic{
		ID:      "topic_1",
		Title:   "Fractions",
		Class:   topics.Ref{ID: "class_5", Name: "Class 5"},
		Subject: topics.Ref{ID: "math", Name: "Mathematics"},
	})
	topicSvc := topics.NewService(topicRepo)
	progressRepo := progress.NewMemoryRepo()
	progressSvc := progress.NewService(progressRepo)
	profileSvc := profiles.NewService(profiles.NewMemoryRepo())
	classRepo := classes.NewMemoryRepo()
	classRepo.PutClass(classes.Class{ID: "class_6", Name: "Class 6"})
	classRepo.PutClass(classes.Class{ID: "class_5", Name: "Class 5"})
	classRepo.Teach("class_5", classes.Subject{ID: "math", Name: "Mathematics"})
	classSvc := classes.NewService(classRepo)

	reg := session.NewRegistry(session.RegistryConfig{
		NewProvider: func() session.Provider { return &stubProvider{} },
		Progress:    progressSvc,
		Topics:      topicSvc,
		Logger:      logger.Discard(),
	})
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })

	h := Handlers{
		Profiles:  profiles.NewSource(profileSvc, time.Minute),
		Classes:   classSvc,
		Topics:    topicSvc,
		Progress:  progressSvc,
		Dashboard: dashboard.NewService(progressSvc, profileSvc, classSvc),
		Sessions:  reg,
	}

	r := gin.New()
	v1 := r.Group("/v1", auth.RequireAccessToken(mgr), rbac.RequireAnyRole(rbac.RoleStudent))
	v1.GET("/me", h.Me)
	v1.PUT("/me/class", h.SetClass)
	v1.GET("/classes", h.ListClasses)
	v1.GET("/topics", h.ListTopics)
	v1.GET("/topics/:topic_id", h.GetTopic)
	v1.GET("/progress", h.ListProgress)
	v1.GET("/dashboard", h.GetDashboard)
	v1.GET("/leaderboard", h.GetLeaderboard)
	v1.POST("/sessions/:topic_id/start", h.StartSession)
	v1.POST("/session/end", h.EndSession)
	v1.POST("/session/mute", h.ToggleMute)
	v1.GET("/session", h.GetSession)
	v1.DELETE("/session", h.CloseSession)
	v1.GET("/session/stream", h.Stream)

	return &testAPI{router: r, auth: mgr, profiles: profileSvc, progress: progressRepo, sessions: reg}
}

func (a *testAPI) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := a.auth.Issue(time.Now(), id)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(method, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) doJSON(method, path, tok, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) snapshot(t *testing.T, tok string) session.Snapshot {
	t.Helper()
	w := a.do(http.MethodGet, "/v1/session", tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var s session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

var learner = auth.Identity{UserID: "user_1", DisplayName: "Asha", Role: rbac.RoleStudent}

func TestMe_RequiresToken(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(http.MethodGet, "/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, learner)

	w := api.do(http.MethodGet, "/v1/me", tok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := api.profiles.Sync(context.Background(), profiles.Identity{ExternalID: "user_1", Email: "asha@example.com", FullName: "Asha Rao"})
	require.NoError(t, err)

	w = api.do(http.MethodGet, "/v1/me?refresh=1", tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p profiles.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Asha Rao", p.FullName)
}

func TestClasses(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(http.MethodGet, "/v1/classes", api.token(t, learner))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Classes []classes.Class `json:"classes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Classes, 2)
	assert.Equal(t, "Class 5", body.Classes[0].Name)
	assert.Equal(t, "Class 6", body.Classes[1].Name)
}

func TestSetClass(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, learner)

	w := api.doJSON(http.MethodPut, "/v1/me/class", tok, `{"class_id":"class_5"}`)
	assert.Equal(t, http.StatusNotFound, w.Code, "no profile yet")

	_, err := api.profiles.Sync(context.Background(), profiles.Identity{ExternalID: "user_1", FullName: "Asha Rao"})
	require.NoError(t, err)
	// Warm the profile cache before the change.
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/v1/me", tok).Code)

	assert.Equal(t, http.StatusBadRequest, api.doJSON(http.MethodPut, "/v1/me/class", tok, `{}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, api.doJSON(http.MethodPut, "/v1/me/class", tok, `{"class_id":"class_9"}`).Code)

	w = api.doJSON(http.MethodPut, "/v1/me/class", tok, `{"class_id":"class_5"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/v1/me", tok)
	require.Equal(t, http.StatusOK, w.Code)
	var p profiles.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "class_5", p.ClassID)

	w = api.do(http.MethodGet, "/v1/dashboard", tok)
	require.Equal(t, http.StatusOK, w.Code)
	var sum dashboard.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	require.NotNil(t, sum.Class)
	assert.Equal(t, "Class 5", sum.Class.Name)
	require.Len(t, sum.Subjects, 1)
	assert.Equal(t, "Mathematics", sum.Subjects[0].Name)
}

func TestTopics(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, learner)

	w := api.do(http.MethodGet, "/v1/topics/topic_1", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fractions")

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/v1/topics/nope", tok).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/v1/topics", tok).Code)

	w = api.do(http.MethodGet, "/v1/topics?class_id=class_5&subject_id=math", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "topic_1")
}

func TestLeaderboard_Limit(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, learner)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/v1/leaderboard?limit=x", tok).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/v1/leaderboard?limit=5", tok).Code)
}

func TestSession_RoleRequired(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, auth.Identity{UserID: "p1", DisplayName: "Parent", Role: rbac.RoleParent})

	w := api.do(http.MethodPost, "/v1/sessions/topic_1/start", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSession_Lifecycle(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, learner)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/v1/session", tok).Code)

	w := api.do(http.MethodPost, "/v1/sessions/topic_1/start", tok)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		return api.snapshot(t, tok).Phase == session.PhaseActive
	}, 2*time.Second, 10*time.Millisecond)

	w = api.do(http.MethodPost, "/v1/session/mute", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, api.snapshot(t, tok).IsMuted)

	w = api.do(http.MethodPost, "/v1/session/end", tok)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		s := api.snapshot(t, tok)
		return s.Phase == session.PhaseIdle && s.StatusMessage == "Call ended"
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		rows, err := api.progress.ListByUser(context.Background(), "user_1")
		return err == nil && len(rows) == 1 && rows[0].Completed
	}, 2*time.Second, 10*time.Millisecond)

	w = api.do(http.MethodGet, "/v1/progress", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "topic_1")

	w = api.do(http.MethodGet, "/v1/dashboard", tok)
	require.Equal(t, http.StatusOK, w.Code)
	var sum dashboard.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.TopicsCompleted)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/v1/session", tok).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/v1/session", tok).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/v1/session", tok).Code)
}

func TestStartSession_UnknownTopic(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, learner)

	w := api.do(http.MethodPost, "/v1/sessions/nope/start", tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, api.sessions.Len())
}

func TestStartSession_DisplayName(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, auth.Identity{UserID: "user_2", Role: rbac.RoleStudent})

	w := api.do(http.MethodPost, "/v1/sessions/topic_1/start", tok)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "User information not available")

	_, err := api.profiles.Sync(context.Background(), profiles.Identity{ExternalID: "user_2", Email: "ravi@example.com", FullName: "Ravi"})
	require.NoError(t, err)

	w = api.do(http.MethodPost, "/v1/sessions/topic_1/start", tok)
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
}
