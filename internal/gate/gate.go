// Package gate implements the grace period that holds autonomous answering
// back so a human operator can answer first.
package gate

import (
	"fmt"
	"sync"
	"time"
)

// Key identifies a question within one store. Question ids are only unique
// per store, so the store name is part of the key.
type Key struct {
	Store      string
	QuestionID int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Store, k.QuestionID)
}

// Gate tracks when each question was first observed. State is in-memory and
// lives for the process lifetime only. Safe for concurrent use; stores are
// polled in parallel.
type Gate struct {
	now func() time.Time

	mu        sync.Mutex
	firstSeen map[Key]time.Time
}

// New creates a Gate using the given clock. A nil clock means time.Now.
func New(now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		now:       now,
		firstSeen: make(map[Key]time.Time),
	}
}

// Observe records the first-seen timestamp for a question. The timestamp is
// set exactly once; later calls for the same key are no-ops.
func (g *Gate) Observe(key Key) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observeLocked(key)
}

func (g *Gate) observeLocked(key Key) {
	if _, ok := g.firstSeen[key]; !ok {
		g.firstSeen[key] = g.now()
	}
}

// FirstSeen returns when the question was first observed.
func (g *Gate) FirstSeen(key Key) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.firstSeen[key]
	return t, ok
}

// ShouldAnswer reports whether the grace period for a question has elapsed.
// A zero threshold means answering may proceed immediately. When the answer
// is no, remaining is the wait left, for display. An unobserved question is
// observed now.
func (g *Gate) ShouldAnswer(key Key, threshold time.Duration) (open bool, remaining time.Duration) {
	if threshold <= 0 {
		return true, 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.observeLocked(key)
	elapsed := g.now().Sub(g.firstSeen[key])
	if elapsed >= threshold {
		return true, 0
	}
	return false, threshold - elapsed
}
