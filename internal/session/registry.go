package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tutor-platform/internal/auth"
	"tutor-platform/internal/topics"
)

var (
	ErrSessionElsewhere = errors.New("session: learner already has a session open elsewhere")
	ErrShuttingDown     = errors.New("session: registry shutting down")
	ErrNoSession        = errors.New("session: no open session")
)

// TopicSource resolves the topic a session is about.
type TopicSource interface {
	Get(ctx context.Context, topicID string) (topics.Topic, error)
}

// Auditor records session lifecycle events. Failures are logged only.
type Auditor interface {
	LogSession(ctx context.Context, userID, topicID, message string) error
}

// RegistryConfig wires a Registry.
type RegistryConfig struct {
	NewProvider func() Provider
	Progress    ProgressStore
	Topics      TopicSource
	Guard       Guard
	Audit       Auditor
	Options     Options
	Logger      *slog.Logger
}

// Registry keeps at most one controller per learner.
type Registry struct {
	cfg RegistryConfig
	log *slog.Logger

	mu       sync.Mutex
	closed   bool
	sessions map[string]*Controller
	// opening holds learners whose guard acquire is in flight.
	opening map[string]chan struct{}
	// views counts attached session streams per controller.
	views map[*Controller]int
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Guard == nil {
		cfg.Guard = NopGuard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = cfg.Logger
	}
	return &Registry{
		cfg:      cfg,
		log:      cfg.Logger.With("component", "session_registry"),
		sessions: make(map[string]*Controller),
		opening:  make(map[string]chan struct{}),
		views:    make(map[*Controller]int),
	}
}

// Open returns the learner's controller, creating it when none is open on
// this instance. A learner holding a session on another instance is refused.
// The guard is acquired without holding the registry lock.
func (r *Registry) Open(ctx context.Context, userID string) (*Controller, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", ErrMissingContext)
	}

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrShuttingDown
		}
		if c, ok := r.sessions[userID]; ok {
			r.mu.Unlock()
			return c, nil
		}
		wait, busy := r.opening[userID]
		if !busy {
			break
		}
		r.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	done := make(chan struct{})
	r.opening[userID] = done
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.opening, userID)
		r.mu.Unlock()
		close(done)
	}()

	ok, err := r.cfg.Guard.Acquire(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("acquire session guard: %w", err)
	}
	if !ok {
		return nil, ErrSessionElsewhere
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		if err := r.cfg.Guard.Release(ctx, userID); err != nil {
			r.log.Warn("session guard release failed", "user_id", userID, "err", err)
		}
		return nil, ErrShuttingDown
	}
	c := New(r.cfg.NewProvider(), r.cfg.Progress, r.cfg.Options)
	r.sessions[userID] = c
	r.mu.Unlock()

	r.log.Info("session opened", "user_id", userID)
	return c, nil
}

// Attach opens the learner's session for a stream. Streams share one
// controller; detach closes it once the last stream has gone.
func (r *Registry) Attach(ctx context.Context, userID string) (*Controller, func(context.Context), error) {
	c, err := r.Open(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	if r.sessions[userID] != c {
		// Released between Open and here.
		r.mu.Unlock()
		return nil, nil, ErrNoSession
	}
	r.views[c]++
	r.mu.Unlock()

	var once sync.Once
	detach := func(ctx context.Context) {
		once.Do(func() { r.detach(ctx, userID, c) })
	}
	return c, detach, nil
}

func (r *Registry) detach(ctx context.Context, userID string, c *Controller) {
	r.mu.Lock()
	n, ok := r.views[c]
	if !ok {
		// Already released explicitly.
		r.mu.Unlock()
		return
	}
	if n > 1 {
		r.views[c] = n - 1
		r.mu.Unlock()
		return
	}
	delete(r.views, c)
	current := r.sessions[userID] == c
	if current {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()

	if current {
		r.closeOne(ctx, userID, c)
	}
}

// Views reports how many streams are attached to the learner's session.
func (r *Registry) Views(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[userID]
	if !ok {
		return 0
	}
	return r.views[c]
}

// Get returns the learner's open controller, if any.
func (r *Registry) Get(userID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[userID]
	return c, ok
}

// StartTopic opens the learner's session and starts a call about topicID,
// building the call context from the caller identity and the topic.
func (r *Registry) StartTopic(ctx context.Context, id auth.Identity, topicID string) (*Controller, error) {
	if r.cfg.Topics == nil {
		return nil, errors.New("session: topic source not configured")
	}
	t, err := r.cfg.Topics.Get(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("load topic: %w", err)
	}

	c, err := r.Open(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	call := CallContext{
		UserID:      id.UserID,
		TopicID:     t.ID,
		LearnerName: id.DisplayName,
		TopicTitle:  t.Title,
		SubjectName: t.Subject.Name,
		ClassName:   t.Class.Name,
	}
	started, err := c.start(ctx, call)
	if err != nil {
		return c, err
	}
	if started {
		r.audit(ctx, id.UserID, t.ID, "call started")
	}
	return c, nil
}

// Release tears down the learner's session regardless of attached streams:
// the controller is closed, stopping any live call, and the guard slot is
// freed.
func (r *Registry) Release(ctx context.Context, userID string) error {
	r.mu.Lock()
	c, ok := r.sessions[userID]
	if ok {
		delete(r.sessions, userID)
		delete(r.views, c)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	r.closeOne(ctx, userID, c)
	return nil
}

// Shutdown closes every open session. Each close is best-effort; Shutdown
// then waits for pending progress writes until ctx is done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	open := r.sessions
	r.sessions = make(map[string]*Controller)
	r.views = make(map[*Controller]int)
	r.mu.Unlock()

	for userID, c := range open {
		r.closeOne(ctx, userID, c)
	}

	var errs []error
	for userID, c := range open {
		if err := c.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait session %s: %w", userID, err))
		}
	}
	r.log.Info("session registry shut down", "closed", len(open))
	return errors.Join(errs...)
}

// Len reports how many sessions are open on this instance.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) closeOne(ctx context.Context, userID string, c *Controller) {
	topicID := c.Snapshot().TopicID
	if err := c.Close(ctx); err != nil {
		r.log.Warn("session close failed", "user_id", userID, "err", err)
	}
	if err := r.cfg.Guard.Release(ctx, userID); err != nil {
		r.log.Warn("session guard release failed", "user_id", userID, "err", err)
	}
	r.audit(ctx, userID, topicID, "session closed")
	r.log.Info("session released", "user_id", userID)
}

func (r *Registry) audit(ctx context.Context, userID, topicID, msg string) {
	if r.cfg.Audit == nil {
		return
	}
	if err := r.cfg.Audit.LogSession(ctx, userID, topicID, msg); err != nil {
		r.log.Warn("session audit failed", "user_id", userID, "err", err)
	}
}
