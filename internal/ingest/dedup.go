// Package ingest normalizes inbound webhook deliveries and hands them to
// the conversation flow, suppressing duplicate deliveries.
package ingest

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DedupTTL is how long a processed message id suppresses redelivery.
	DedupTTL = 5 * time.Minute

	// SweepInterval is how often expired dedup entries are removed.
	SweepInterval = time.Minute
)

// DedupCache remembers recently seen message ids. Entries live in process
// memory only; a restart resets the cache, so the guarantee is at most once
// within the TTL, not exactly once.
type DedupCache struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration

	stop chan struct{}
	done chan struct{}

	// NowFunc is replaceable in tests.
	NowFunc func() time.Time
}

// NewDedupCache creates a cache with the default TTL. Call Start to run the
// background sweep and Stop on shutdown.
func NewDedupCache() *DedupCache {
	return &DedupCache{
		seen:    make(map[string]time.Time),
		ttl:     DedupTTL,
		NowFunc: time.Now,
	}
}

// Seen reports whether the id was marked within the TTL.
func (c *DedupCache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.seen[id]
	if !ok {
		return false
	}
	if c.NowFunc().Sub(at) > c.ttl {
		delete(c.seen, id)
		return false
	}
	return true
}

// MarkIfNew records the id and reports whether it was new, in one critical
// section so two concurrent deliveries of the same id cannot both win.
// Called before processing begins so a slow or crashing handler does not
// let the same delivery run twice.
func (c *DedupCache) MarkIfNew(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.NowFunc()
	if at, ok := c.seen[id]; ok && now.Sub(at) <= c.ttl {
		return false
	}
	c.seen[id] = now
	return true
}

// Start launches the background sweep removing expired entries.
func (c *DedupCache) Start() {
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// Stop halts the background sweep and waits for it to exit.
func (c *DedupCache) Stop() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
}

func (c *DedupCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.NowFunc()
	removed := 0
	for id, at := range c.seen {
		if now.Sub(at) > c.ttl {
			delete(c.seen, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("DedupCache.sweep: removed expired entries", "removed", removed, "remaining", len(c.seen))
	}
}
