package connector

import (
	"context"
	"sync"
	"time"
)

// Base bundles the per-instance rate limiter and the one-way abliteration
// flag shared by all connector variants. Embed it and call RateLimit at the
// top of every operation.
type Base struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastCallAt  time.Time
	abliterated bool
}

// NewBase constructs shared connector state with the given minimum inter-call
// interval. A zero or negative interval disables rate limiting.
func NewBase(minInterval time.Duration) Base {
	return Base{minInterval: minInterval}
}

// RateLimit blocks until the interval since this instance's previous call has
// elapsed, then stamps the call time. Each instance limits independently, so
// connectors for different backends never contend. Returns early with the
// context error when ctx is cancelled while waiting.
func (b *Base) RateLimit(ctx context.Context) error {
	if b.minInterval <= 0 {
		return nil
	}
	b.mu.Lock()
	wait := b.minInterval - time.Since(b.lastCallAt)
	if wait > 0 {
		b.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		b.mu.Lock()
	}
	b.lastCallAt = time.Now()
	b.mu.Unlock()
	return nil
}

// MarkAbliterated flips the abliteration flag. The transition is one-way;
// repeated calls are no-ops.
func (b *Base) MarkAbliterated() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.abliterated = true
}

// Abliterated reports whether abliteration has been applied to this instance.
func (b *Base) Abliterated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.abliterated
}
