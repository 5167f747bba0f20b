// Package progress tracks per-decode live counters and exposes a push-style
// snapshot subscription so a long multi-hop decode can be observed while it
// runs.
package progress

import (
	"context"
	"sync"
	"time"
)

// Entry is a stable, read-only view of one decode key's progress. Once
// Active is false, no further mutations occur for that key.
type Entry struct {
	Label          string
	ChunksFound    int
	EstimatedTotal *int
	DepTotal       *int
	DepDone        int
	Active         bool
	StartedAt      time.Time
	UpdatedAt      time.Time
}

// Tracker owns the live snapshot set for every in-flight (and recently
// completed) decode key. It is the only mutator of that set; all other
// components only read snapshots.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]*Entry)}
}

// Start registers key as an active decode with the given label, if it does
// not already exist. Re-starting an already-active key is a no-op so that
// concurrent idempotent decoders for the same id don't reset each other's
// counters.
func (t *Tracker) Start(key, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[key]; ok {
		return
	}
	now := time.Now()
	t.entries[key] = &Entry{
		Label:     label,
		Active:    true,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Update accumulates newly-found chunks and grows the estimated total
// monotonically. chunksFoundDelta is the number of chunks found in this
// hop; lastRemainingSeen is the most recent remaining-chunks marker the
// chain walker observed (used to derive a growing total estimate).
func (t *Tracker) Update(key string, chunksFoundDelta int, lastRemainingSeen int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil || !e.Active {
		return
	}

	e.ChunksFound += chunksFoundDelta

	estimate := e.ChunksFound + lastRemainingSeen
	if e.EstimatedTotal == nil || estimate > *e.EstimatedTotal {
		e.EstimatedTotal = &estimate
	}

	e.UpdatedAt = time.Now()
}

// SetDependencyPlan records the total dependency count once known. It is
// expected to be called at most once per key.
func (t *Tracker) SetDependencyPlan(key string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil || !e.Active {
		return
	}
	e.DepTotal = &total
	e.UpdatedAt = time.Now()
}

// IncrementDependencyDone advances the dependency-done counter after a
// dependency recursion completes.
func (t *Tracker) IncrementDependencyDone(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil || !e.Active {
		return
	}
	e.DepDone++
	e.UpdatedAt = time.Now()
}

// Complete marks key inactive without clearing its counters.
func (t *Tracker) Complete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil {
		return
	}
	e.Active = false
	e.UpdatedAt = time.Now()
}

// Snapshot returns a stable copy of key's current state.
func (t *Tracker) Snapshot(key string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// Subscribe polls key's snapshot at the given interval and streams it on
// the returned channel until ctx is canceled or the entry becomes
// inactive, in which case the final snapshot is sent before the channel is
// closed. This is what the external HTTP surface (out of scope here) would
// drive to stream progress to a client.
func (t *Tracker) Subscribe(ctx context.Context, key string, interval time.Duration) <-chan Entry {
	out := make(chan Entry)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			snap, ok := t.Snapshot(key)
			if ok {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
				if !snap.Active {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}
