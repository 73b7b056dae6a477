package tracking

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/kodit-ai/kodit/domain/task"
)

var (
	_ Reporter  = (*Cooldown)(nil)
	_ io.Closer = (*Cooldown)(nil)
)

// Cooldown throttles a Reporter to at most one delivery per interval per
// status ID. Terminal states always pass through immediately; the newest
// throttled status is flushed when the interval elapses or on Close.
type Cooldown struct {
	inner    Reporter
	interval time.Duration
	mu       sync.Mutex
	entries  map[string]*cooldownEntry
}

type cooldownEntry struct {
	lastFlush time.Time
	pending   *task.Status
	timer     *time.Timer
}

// NewCooldown wraps inner with a minimum per-status delivery interval.
func NewCooldown(inner Reporter, interval time.Duration) *Cooldown {
	return &Cooldown{
		inner:    inner,
		interval: interval,
		entries:  make(map[string]*cooldownEntry),
	}
}

// OnChange delivers or defers the status depending on the cooldown window.
func (c *Cooldown) OnChange(ctx context.Context, status task.Status) error {
	id := status.ID()

	c.mu.Lock()

	if status.State().IsTerminal() {
		if entry := c.entries[id]; entry != nil {
			if entry.timer != nil {
				entry.timer.Stop()
			}
			delete(c.entries, id)
		}
		c.mu.Unlock()
		return c.inner.OnChange(ctx, status)
	}

	entry, ok := c.entries[id]
	if !ok {
		entry = &cooldownEntry{}
		c.entries[id] = entry
	}

	if time.Since(entry.lastFlush) >= c.interval {
		if entry.timer != nil {
			entry.timer.Stop()
			entry.timer = nil
		}
		entry.pending = nil
		entry.lastFlush = time.Now()
		c.mu.Unlock()
		return c.inner.OnChange(ctx, status)
	}

	pending := status
	entry.pending = &pending
	if entry.timer == nil {
		remaining := c.interval - time.Since(entry.lastFlush)
		entry.timer = time.AfterFunc(remaining, func() { c.flush(id) })
	}

	c.mu.Unlock()
	return nil
}

// Close stops all timers and flushes anything still pending.
func (c *Cooldown) Close() error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*cooldownEntry)
	c.mu.Unlock()

	for _, entry := range entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		if entry.pending != nil {
			_ = c.inner.OnChange(context.Background(), *entry.pending)
		}
	}
	return nil
}

func (c *Cooldown) flush(id string) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok || entry.pending == nil {
		if ok {
			entry.timer = nil
		}
		c.mu.Unlock()
		return
	}

	status := *entry.pending
	entry.pending = nil
	entry.lastFlush = time.Now()
	entry.timer = nil
	c.mu.Unlock()

	_ = c.inner.OnChange(context.Background(), status)
}
