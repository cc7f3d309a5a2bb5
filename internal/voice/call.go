package voice

import (
	"context"
	"errors"
	"sync"

	"tutor-platform/internal/session"
)

var ErrCallInProgress = errors.New("voice: call already started")

// Call is one web call handle. It satisfies session.Provider: Start creates
// the call, Stop hangs it up, and server messages routed by the Directory are
// fanned out to subscribers.
type Call struct {
	client *Client

	mu       sync.Mutex
	handlers map[int]session.Handler
	nextID   int

	id         string
	controlURL string
	joinURL    string

	starting    bool
	stopPending bool
}

func newCall(client *Client) *Call {
	return &Call{client: client, handlers: map[int]session.Handler{}}
}

func (c *Call) Start(ctx context.Context, assistantID string, overrides session.Overrides) error {
	c.mu.Lock()
	if c.starting || c.id != "" {
		c.mu.Unlock()
		return ErrCallInProgress
	}
	c.starting = true
	c.stopPending = false
	c.mu.Unlock()

	wc, err := c.client.CreateWebCall(ctx, assistantID, overrides)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		c.mu.Unlock()
		return err
	}
	stop := c.stopPending
	c.stopPending = false
	if !stop {
		c.id = wc.ID
		c.controlURL = wc.Monitor.ControlURL
		c.joinURL = wc.WebCallURL
	}
	c.mu.Unlock()

	if stop {
		// Stop arrived while the create request was in flight.
		if err := c.client.EndCall(ctx, wc.Monitor.ControlURL); err != nil {
			c.client.log.Warn("ending abandoned call failed", "call_id", wc.ID, "err", err)
		}
		c.emit(session.Event{Type: session.EventCallEnd})
		return nil
	}

	c.client.calls.register(wc.ID, c)
	c.client.log.Info("web call created", "call_id", wc.ID)
	return nil
}

func (c *Call) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.starting {
		c.stopPending = true
		c.mu.Unlock()
		return nil
	}
	id, url := c.id, c.controlURL
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	return c.client.EndCall(ctx, url)
}

func (c *Call) Subscribe(h session.Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.handlers, id)
		})
	}
}

// ID is the provider call id, empty until the call is created.
func (c *Call) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// JoinURL is the url a client joins to carry the call audio.
func (c *Call) JoinURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joinURL
}

func (c *Call) deliver(evs []session.Event) {
	for _, ev := range evs {
		c.emit(ev)
		if ev.Type == session.EventCallEnd {
			c.release()
		}
	}
}

// release forgets the finished call so the handle can start another.
func (c *Call) release() {
	c.mu.Lock()
	id := c.id
	c.id, c.controlURL, c.joinURL = "", "", ""
	c.mu.Unlock()
	if id != "" {
		c.client.calls.unregister(id)
	}
}

// emit calls subscribers without holding mu so handlers may call back.
func (c *Call) emit(ev session.Event) {
	c.mu.Lock()
	hs := make([]session.Handler, 0, len(c.handlers))
	for _, h := range c.handlers {
		hs = append(hs, h)
	}
	c.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}
