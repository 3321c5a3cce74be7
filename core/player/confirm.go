package player

import (
	"sync"
	"time"

	"BerryBox/logger"
)

// confirmation is a single pending play confirmation. It resolves
// terminally exactly once: success when the daemon's playing event
// arrives, failure when the deadline passes first.
type confirmation struct {
	contextURI string
	ch         chan bool
	timer      *time.Timer
	once       sync.Once
}

func (c *confirmation) terminate(ok bool) {
	c.once.Do(func() {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.ch <- ok
	})
}

// ConfirmationRegistry tracks at most one pending confirmation per
// context URI. Registering a context replaces (and fails) any previous
// pending handle for it, enforcing the at-most-one invariant
// structurally.
type ConfirmationRegistry struct {
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*confirmation
}

// NewConfirmationRegistry creates a registry with the given
// confirmation deadline.
func NewConfirmationRegistry(timeout time.Duration) *ConfirmationRegistry {
	return &ConfirmationRegistry{
		timeout: timeout,
		pending: make(map[string]*confirmation),
	}
}

// Register arms a confirmation for a context and returns a channel that
// receives exactly one terminal result. The deadline always fires if no
// matching playing event arrives, so a play request can never hang.
func (r *ConfirmationRegistry) Register(contextURI string) <-chan bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.pending[contextURI]; ok {
		delete(r.pending, contextURI)
		old.terminate(false)
	}

	c := &confirmation{
		contextURI: contextURI,
		ch:         make(chan bool, 1),
	}
	c.timer = time.AfterFunc(r.timeout, func() {
		r.expire(contextURI, c)
	})
	r.pending[contextURI] = c
	return c.ch
}

// Resolve completes the pending confirmation for a context with
// success. Returns whether one was pending.
func (r *ConfirmationRegistry) Resolve(contextURI string) bool {
	r.mu.Lock()
	c, ok := r.pending[contextURI]
	if ok {
		delete(r.pending, contextURI)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.terminate(true)
	logger.Debug("play confirmed", logger.String("context", contextURI))
	return true
}

// Cancel fails the pending confirmation for a context, if any. Used
// when the play request itself could not be issued.
func (r *ConfirmationRegistry) Cancel(contextURI string) {
	r.mu.Lock()
	c, ok := r.pending[contextURI]
	if ok {
		delete(r.pending, contextURI)
	}
	r.mu.Unlock()

	if ok {
		c.terminate(false)
	}
}

func (r *ConfirmationRegistry) expire(contextURI string, c *confirmation) {
	r.mu.Lock()
	if r.pending[contextURI] == c {
		delete(r.pending, contextURI)
	}
	r.mu.Unlock()

	c.terminate(false)
	logger.Warn("play confirmation timed out", logger.String("context", contextURI))
}
