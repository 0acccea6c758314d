// Package notify holds transient, read-once notices for the dashboard.
package notify

import (
	"sync"
	"time"
)

const (
	defaultMaxAge = 60 * time.Second
	maxPending    = 20
)

type Notice struct {
	Type    string    `json:"type"` // "error", "success"
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives user-facing notices.
type Notifier interface {
	Error(message string)
}

// Center queues notices until they are drained or expire.
type Center struct {
	mu      sync.Mutex
	pending []Notice
	errors  uint64
	maxAge  time.Duration
	now     func() time.Time
}

func NewCenter(maxAge time.Duration) *Center {
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	return &Center{maxAge: maxAge, now: time.Now}
}

func (c *Center) Error(message string) {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
	c.push("error", message)
}

// Errors counts every error raised so far, including collapsed duplicates
// and notices already drained.
func (c *Center) Errors() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

func (c *Center) Success(message string) {
	c.push("success", message)
}

func (c *Center) push(typ, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Repeated failures from the poller collapse into one notice.
	for i, n := range c.pending {
		if n.Type == typ && n.Message == message {
			c.pending[i].At = c.now()
			return
		}
	}
	c.pending = append(c.pending, Notice{Type: typ, Message: message, At: c.now()})
	if len(c.pending) > maxPending {
		c.pending = c.pending[len(c.pending)-maxPending:]
	}
}

// Drain returns the live notices and forgets them.
func (c *Center) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.maxAge)
	out := make([]Notice, 0, len(c.pending))
	for _, n := range c.pending {
		if n.At.After(cutoff) {
			out = append(out, n)
		}
	}
	c.pending = nil
	return out
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Error(string) {}
