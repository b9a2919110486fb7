package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription is the handle returned by OnAuthStateChange. Unsubscribe is
// idempotent; once it returns, its callback is never invoked again, even if a
// poll was in flight at the time.
type Subscription struct {
	id     string
	client *Client
	fn     func(Event, *Session)

	mu      sync.Mutex
	removed bool
}

// Unsubscribe releases the registration. It must not be called from within
// the subscription's own callback. Calling it after Client.Close is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	s.removed = true
	s.mu.Unlock()

	if s.client != nil {
		s.client.detach(s.id)
	}
}

func (s *Subscription) markRemoved() {
	s.mu.Lock()
	s.removed = true
	s.mu.Unlock()
}

// deliver invokes the callback unless the subscription was removed. Holding
// the mutex across the call makes Unsubscribe wait for an in-flight delivery.
func (s *Subscription) deliver(event Event, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed || s.fn == nil {
		return
	}
	s.fn(event, sess)
}

// OnAuthStateChange registers a callback and starts (or reuses) the shared
// session poller. On every detected change the callback receives an event tag
// and the new session value. The returned handle unsubscribes the callback.
func (c *Client) OnAuthStateChange(fn func(Event, *Session)) *Subscription {
	sub := &Subscription{id: uuid.NewString(), client: c, fn: fn}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.markRemoved()
		return sub
	}
	c.subs[sub.id] = sub
	c.ensurePollerLocked()
	c.mu.Unlock()

	return sub
}

func (c *Client) detach(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subs, id)
	if len(c.subs) == 0 && c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

func (c *Client) ensurePollerLocked() {
	if c.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	c.pollStop = stop
	go c.pollLoop(stop)
}

// pollLoop runs ticks sequentially on one goroutine, so two ticks can never
// interleave their compare-and-swap of the cached session.
func (c *Client) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.pollTick()
		}
	}
}

// pollTick fetches the session once, swaps the cache on change and notifies
// the current subscribers. Fetch failures are absorbed for the tick.
func (c *Client) pollTick() {
	sess, err := c.fetchSession(context.Background())
	if err != nil {
		c.logger.Debug("auth: session poll failed", "error", err)
		return
	}

	c.mu.Lock()
	if sessionEqual(c.session, sess) {
		c.mu.Unlock()
		return
	}
	c.session = sess
	subs := make([]*Subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	event := EventSignedOut
	if sess != nil {
		event = EventSignedIn
	}
	for _, sub := range subs {
		sub.deliver(event, sess)
	}
}
