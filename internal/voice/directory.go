package voice

import (
	"sync"
	"time"

	"tutor-platform/internal/session"
)

// DefaultMaxCallAge bounds how long a call whose end message never arrived
// stays routable.
const DefaultMaxCallAge = 2 * time.Hour

// Directory routes server messages to live call handles by call id.
type Directory struct {
	maxAge time.Duration
	clock  func() time.Time

	mu    sync.Mutex
	calls map[string]entry
}

type entry struct {
	call *Call
	at   time.Time
}

func NewDirectory(maxAge time.Duration) *Directory {
	if maxAge <= 0 {
		maxAge = DefaultMaxCallAge
	}
	return &Directory{maxAge: maxAge, clock: time.Now, calls: map[string]entry{}}
}

func (d *Directory) register(id string, c *Call) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock()
	for k, e := range d.calls {
		if now.Sub(e.at) > d.maxAge {
			delete(d.calls, k)
		}
	}
	d.calls[id] = entry{call: c, at: now}
}

func (d *Directory) unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.calls, id)
}

// Deliver hands evs to the call registered under id. It reports false for
// unknown calls, which is normal for redelivered messages.
func (d *Directory) Deliver(id string, evs []session.Event) bool {
	d.mu.Lock()
	e, ok := d.calls[id]
	d.mu.Unlock()
	if !ok {
		return false
	}
	e.call.deliver(evs)
	return true
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}
