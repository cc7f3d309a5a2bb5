package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tutor-platform/pkg/channels"
)

const (
	DefaultSpeakingTimeout = 3 * time.Second
	DefaultInfoStatusTTL   = 3 * time.Second
	DefaultErrorStatusTTL  = 5 * time.Second
	DefaultConnectTimeout  = 30 * time.Second
	DefaultEndTimeout      = 10 * time.Second
	DefaultTickInterval    = time.Second
	DefaultProgressTimeout = 10 * time.Second
)

// Options tune a Controller. Zero values take the defaults above.
type Options struct {
	AssistantID string

	SpeakingTimeout time.Duration
	InfoStatusTTL   time.Duration
	ErrorStatusTTL  time.Duration

	// ConnectTimeout bounds the connecting phase. Negative disables it.
	ConnectTimeout time.Duration
	// EndTimeout bounds the wait for the provider to confirm an end.
	// Negative disables it.
	EndTimeout time.Duration

	TickInterval    time.Duration
	ProgressTimeout time.Duration

	Now    func() time.Time
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.SpeakingTimeout <= 0 {
		o.SpeakingTimeout = DefaultSpeakingTimeout
	}
	if o.InfoStatusTTL <= 0 {
		o.InfoStatusTTL = DefaultInfoStatusTTL
	}
	if o.ErrorStatusTTL <= 0 {
		o.ErrorStatusTTL = DefaultErrorStatusTTL
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.EndTimeout == 0 {
		o.EndTimeout = DefaultEndTimeout
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.ProgressTimeout <= 0 {
		o.ProgressTimeout = DefaultProgressTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Controller owns one learner's call lifecycle.
//
// Every transition runs under mu. Provider requests are issued on their own
// goroutines and settle back through the same lock tagged with the call
// generation, so completions from an earlier call are dropped.
type Controller struct {
	provider Provider
	progress ProgressStore
	opts     Options
	log      *slog.Logger

	unsubscribe func()
	unsubOnce   sync.Once

	mu         sync.Mutex
	closed     bool
	gen        uint64
	call       CallContext
	phase      Phase
	started    bool
	recording  bool
	speaking   bool
	muted      bool
	activeAt   time.Time
	status     string
	statusKind StatusKind

	speakSeq    uint64
	statusSeq   uint64
	speakTimer  *time.Timer
	statusTimer *time.Timer
	phaseTimer  *time.Timer
	tickStop    chan struct{}

	// starting is set while a provider start request is in flight. A stop
	// requested meanwhile waits in pendingStop so it cannot overtake it.
	starting    bool
	pendingStop *stopRequest

	watchers map[chan Snapshot]struct{}

	taskMu   sync.Mutex
	taskN    int
	taskIdle chan struct{} // closed when taskN drops to zero
}

type stopRequest struct {
	ctx   context.Context
	onErr func(error)
}

// New returns an idle controller already subscribed to provider events.
// progress may be nil, in which case ended calls are not recorded.
func New(provider Provider, progress ProgressStore, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		provider: provider,
		progress: progress,
		opts:     opts,
		log:      opts.Logger.With("component", "session"),
		phase:    PhaseIdle,
		watchers: make(map[chan Snapshot]struct{}),
	}
	c.unsubscribe = provider.Subscribe(c.handle)
	return c
}

// Start requests a new call. It returns before the provider answers; the
// outcome arrives as a phase change. Start is a no-op unless idle.
func (c *Controller) Start(ctx context.Context, call CallContext) error {
	_, err := c.start(ctx, call)
	return err
}

// start is Start that also reports whether a provider start was issued.
func (c *Controller) start(ctx context.Context, call CallContext) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrClosed
	}
	if c.phase != PhaseIdle || c.starting {
		c.log.Debug("start ignored", "phase", c.phase, "starting", c.starting)
		return false, nil
	}
	if msg, err := call.validate(); err != nil {
		c.setStatusLocked(msg, StatusError)
		c.notifyLocked()
		return false, err
	}

	c.gen++
	gen := c.gen
	c.call = call
	c.phase = PhaseConnecting
	c.started = false
	c.setStatusLocked("Starting call...", StatusProgress)
	c.armPhaseTimerLocked(c.opts.ConnectTimeout, func() { c.onConnectTimeout(gen) })
	c.notifyLocked()

	overrides := call.Overrides()
	reqCtx := context.WithoutCancel(ctx)
	c.starting = true
	c.goTask(func() {
		err := c.provider.Start(reqCtx, c.opts.AssistantID, overrides)
		c.onStartReturned(gen, err)
	})

	c.log.Info("call starting", "user_id", call.UserID, "topic_id", call.TopicID)
	return true, nil
}

// End requests the provider to stop the current call. It is a no-op when
// idle or already ending.
func (c *Controller) End(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.phase != PhaseConnecting && c.phase != PhaseActive {
		return nil
	}

	gen := c.gen
	c.phase = PhaseEnding
	c.stopTickerLocked()
	c.setStatusLocked("Ending call...", StatusProgress)
	c.armPhaseTimerLocked(c.opts.EndTimeout, func() { c.onEndTimeout(gen) })
	c.notifyLocked()

	c.requestStopLocked(context.WithoutCancel(ctx), func(err error) { c.onStopFailed(gen, err) })
	return nil
}

// ToggleMute flips the local mute flag and returns the new value.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.muted
	}
	c.muted = !c.muted
	c.notifyLocked()
	return c.muted
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Watch returns a channel that receives the latest snapshot on every change
// and every tick while active. A slow reader only ever sees the newest value.
// The channel is closed by cancel or Close.
func (c *Controller) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.watchers[ch] = struct{}{}
	_ = channels.SendLatest(ch, c.snapshotLocked())

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.watchers[ch]; ok {
				delete(c.watchers, ch)
				close(ch)
			}
		})
	}
}

// Close tears the controller down. Provider listeners are removed first so
// no event mutates state afterwards; a connecting or active call then gets
// exactly one stop request. Stop failures are logged, not returned.
func (c *Controller) Close(ctx context.Context) error {
	c.unsubOnce.Do(c.unsubscribe)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	needStop := c.phase == PhaseConnecting || c.phase == PhaseActive
	userID := c.call.UserID
	logStopErr := func(err error) {
		c.log.Warn("stop on teardown failed", "user_id", userID, "err", err)
	}
	if needStop && c.starting {
		c.pendingStop = &stopRequest{ctx: context.WithoutCancel(ctx), onErr: logStopErr}
		needStop = false
	}
	c.resetLocked()
	c.stopStatusTimerLocked()
	for ch := range c.watchers {
		delete(c.watchers, ch)
		close(ch)
	}
	c.mu.Unlock()

	if needStop {
		c.runStop(&stopRequest{ctx: ctx, onErr: logStopErr})
	}
	return nil
}

// Wait blocks until detached provider requests and progress writes finish
// or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.taskMu.Lock()
	if c.taskN == 0 {
		c.taskMu.Unlock()
		return nil
	}
	idle := c.taskIdle
	c.taskMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	switch ev.Type {
	case EventCallStart:
		if c.phase != PhaseConnecting {
			c.log.Debug("call-start ignored", "phase", c.phase)
			return
		}
		c.phase = PhaseActive
		c.started = true
		c.activeAt = c.opts.Now()
		c.stopTimer(&c.phaseTimer)
		c.setStatusLocked("Call connected", StatusInfo)
		c.startTickerLocked(c.gen)
		c.log.Info("call connected", "user_id", c.call.UserID, "topic_id", c.call.TopicID)

	case EventCallEnd:
		if c.phase == PhaseIdle {
			return
		}
		c.finishLocked("Call ended", StatusInfo)

	case EventSpeechStart:
		if c.phase == PhaseIdle {
			return
		}
		c.recording = true

	case EventSpeechEnd:
		c.recording = false

	case EventMessage:
		if c.phase == PhaseIdle || ev.Message == nil {
			return
		}
		if ev.Message.Type != MessageConversation && ev.Message.Type != MessageResponse {
			return
		}
		c.markSpeakingLocked()

	case EventError:
		msg := "unknown error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		c.log.Warn("provider error", "user_id", c.call.UserID, "phase", c.phase, "err", ev.Err)
		if c.started {
			// A connected call still counts as held; the call-end that
			// usually follows finds the controller idle.
			c.finishLocked("Call error: "+msg, StatusError)
			break
		}
		c.resetLocked()
		c.setStatusLocked("Call error: "+msg, StatusError)

	default:
		c.log.Debug("unknown provider event", "type", ev.Type)
		return
	}

	c.notifyLocked()
}

func (c *Controller) onStartReturned(gen uint64, err error) {
	c.mu.Lock()
	c.starting = false
	pending := c.pendingStop
	c.pendingStop = nil

	if err != nil {
		// Nothing was started, so a pending stop has nothing to do.
		if !c.closed && gen == c.gen {
			c.log.Warn("call start failed", "user_id", c.call.UserID, "err", err)
			switch c.phase {
			case PhaseConnecting:
				c.resetLocked()
				c.setStatusLocked(fmt.Sprintf("Failed to start call: %v", err), StatusError)
				c.notifyLocked()
			case PhaseEnding:
				c.finishLocked("Call ended", StatusInfo)
				c.notifyLocked()
			}
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if pending != nil {
		c.runStop(pending)
	}
}

func (c *Controller) onStopFailed(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen || c.phase != PhaseEnding {
		return
	}
	c.log.Error("call stop failed", "user_id", c.call.UserID, "err", err)
	c.finishLocked("Failed to end call", StatusError)
	c.notifyLocked()
}

func (c *Controller) onConnectTimeout(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen || c.phase != PhaseConnecting {
		return
	}
	c.log.Warn("call connect timed out", "user_id", c.call.UserID, "after", c.opts.ConnectTimeout)
	c.resetLocked()
	c.setStatusLocked("Call error: connection timed out", StatusError)
	c.notifyLocked()

	c.requestStopLocked(context.Background(), func(err error) {
		c.log.Warn("stop after connect timeout failed", "err", err)
	})
}

func (c *Controller) onEndTimeout(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen || c.phase != PhaseEnding {
		return
	}
	c.log.Warn("provider never confirmed call end", "user_id", c.call.UserID, "after", c.opts.EndTimeout)
	c.finishLocked("Call ended", StatusInfo)
	c.notifyLocked()
}

// finishLocked returns to idle after a call ends. The phase checks in the
// callers make this run once per call; the progress write only happens for
// calls that actually connected.
func (c *Controller) finishLocked(msg string, kind StatusKind) {
	started := c.started
	call := c.call
	c.resetLocked()
	c.setStatusLocked(msg, kind)
	if started {
		c.writeProgressLocked(call)
	}
	c.log.Info("call finished", "user_id", call.UserID, "topic_id", call.TopicID, "status", msg)
}

// resetLocked drops to idle and clears every per-call flag and timer except
// the status banner.
func (c *Controller) resetLocked() {
	c.phase = PhaseIdle
	c.started = false
	c.recording = false
	c.speaking = false
	c.activeAt = time.Time{}
	c.speakSeq++
	c.stopTimer(&c.speakTimer)
	c.stopTimer(&c.phaseTimer)
	c.stopTickerLocked()
}

// requestStopLocked issues one provider stop, deferred until an in-flight
// start returns.
func (c *Controller) requestStopLocked(ctx context.Context, onErr func(error)) {
	req := &stopRequest{ctx: ctx, onErr: onErr}
	if c.starting {
		c.pendingStop = req
		return
	}
	c.goTask(func() { c.runStop(req) })
}

func (c *Controller) runStop(req *stopRequest) {
	if err := c.provider.Stop(req.ctx); err != nil && req.onErr != nil {
		req.onErr(err)
	}
}

func (c *Controller) writeProgressLocked(call CallContext) {
	if c.progress == nil {
		return
	}
	c.goTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.ProgressTimeout)
		defer cancel()
		if err := c.progress.MarkComplete(ctx, call.TopicID, call.UserID); err != nil {
			c.log.Error("progress write failed", "user_id", call.UserID, "topic_id", call.TopicID, "err", err)
		}
	})
}

func (c *Controller) markSpeakingLocked() {
	c.speaking = true
	c.speakSeq++
	seq := c.speakSeq
	c.stopTimer(&c.speakTimer)
	c.speakTimer = time.AfterFunc(c.opts.SpeakingTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || seq != c.speakSeq {
			return
		}
		c.speaking = false
		c.notifyLocked()
	})
}

func (c *Controller) setStatusLocked(msg string, kind StatusKind) {
	c.status = msg
	c.statusKind = kind
	c.statusSeq++
	seq := c.statusSeq
	c.stopStatusTimerLocked()

	// Progress banners stay until the phase they describe is left.
	if kind == StatusProgress {
		return
	}
	ttl := c.opts.InfoStatusTTL
	if kind == StatusError {
		ttl = c.opts.ErrorStatusTTL
	}
	c.statusTimer = time.AfterFunc(ttl, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || seq != c.statusSeq {
			return
		}
		c.status = ""
		c.statusKind = ""
		c.notifyLocked()
	})
}

func (c *Controller) stopStatusTimerLocked() {
	c.stopTimer(&c.statusTimer)
}

func (c *Controller) armPhaseTimerLocked(d time.Duration, fn func()) {
	c.stopTimer(&c.phaseTimer)
	if d < 0 {
		return
	}
	c.phaseTimer = time.AfterFunc(d, fn)
}

func (c *Controller) stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (c *Controller) startTickerLocked(gen uint64) {
	c.stopTickerLocked()
	stop := make(chan struct{})
	c.tickStop = stop
	interval := c.opts.TickInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				if !c.closed && gen == c.gen && c.phase == PhaseActive {
					c.notifyLocked()
				}
				c.mu.Unlock()
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.tickStop != nil {
		close(c.tickStop)
		c.tickStop = nil
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:         c.phase,
		IsRecording:   c.recording,
		IsAISpeaking:  c.speaking,
		IsMuted:       c.muted,
		StatusMessage: c.status,
		StatusKind:    c.statusKind,
	}
	if c.phase != PhaseIdle {
		s.TopicID = c.call.TopicID
		s.TopicTitle = c.call.TopicTitle
		s.SubjectName = c.call.SubjectName
		s.ClassName = c.call.ClassName
		if j, ok := c.provider.(Joiner); ok {
			s.JoinURL = j.JoinURL()
		}
	}
	if c.phase == PhaseActive && !c.activeAt.IsZero() {
		if d := c.opts.Now().Sub(c.activeAt); d > 0 {
			s.DurationSeconds = int(d / time.Second)
		}
	}
	return s
}

func (c *Controller) notifyLocked() {
	if len(c.watchers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for ch := range c.watchers {
		if err := channels.SendLatest(ch, snap); err != nil {
			c.log.Debug("snapshot dropped", "err", err)
		}
	}
}

// goTask runs fn detached from the caller. A panic in fn is logged so a
// misbehaving provider or store cannot take the process down.
func (c *Controller) goTask(fn func()) {
	c.taskMu.Lock()
	if c.taskN == 0 {
		c.taskIdle = make(chan struct{})
	}
	c.taskN++
	c.taskMu.Unlock()

	go func() {
		defer func() {
			c.taskMu.Lock()
			c.taskN--
			if c.taskN == 0 {
				close(c.taskIdle)
			}
			c.taskMu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("session task panicked", "panic", r)
			}
		}()
		fn()
	}()
}
