package session

import (
	"context"
	"sync"
	"time"
)

type fakeProvider struct {
	mu sync.Mutex

	handlers map[int]Handler
	next     int
	last     Handler

	starts    int
	stops     int
	startErr  error
	startGate chan struct{}
	stopErr   error
	assistant string
	overrides Overrides
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{handlers: map[int]Handler{}}
}

func (p *fakeProvider) Start(ctx context.Context, assistantID string, o Overrides) error {
	p.mu.Lock()
	p.starts++
	p.assistant = assistantID
	p.overrides = o
	gate, err := p.startGate, p.startErr
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (p *fakeProvider) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return p.stopErr
}

func (p *fakeProvider) Subscribe(h Handler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.handlers[id] = h
	p.last = h
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

func (p *fakeProvider) emit(ev Event) {
	p.mu.Lock()
	hs := make([]Handler, 0, len(p.handlers))
	for _, h := range p.handlers {
		hs = append(hs, h)
	}
	p.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (p *fakeProvider) startCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}

func (p *fakeProvider) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *fakeProvider) listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers)
}

func (p *fakeProvider) lastOverrides() Overrides {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overrides
}

type fakeProgress struct {
	mu     sync.Mutex
	writes []string
	err    error
}

func (f *fakeProgress) MarkComplete(ctx context.Context, topicID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, topicID+"|"+userID)
	return f.err
}

func (f *fakeProgress) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeProgress) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
