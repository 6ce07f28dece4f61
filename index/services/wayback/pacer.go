package wayback

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Pacer spaces requests so that at least minInterval elapses between them.
// archive.org rate-limits aggressively; retries handle 429s after the fact,
// the pacer keeps us from triggering them in the first place.
type Pacer struct {
	clock       clock.Clock
	minInterval time.Duration

	mu   sync.Mutex
	next time.Time
}

func NewPacer(clk clock.Clock, minInterval time.Duration) *Pacer {
	return &Pacer{
		clock:       clk,
		minInterval: minInterval,
	}
}

// Wait blocks until the caller may issue the next request, or until ctx is done.
// Waiters are granted slots in the order they call Wait.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := p.clock.Now()
	var wait time.Duration
	if p.next.After(now) {
		wait = p.next.Sub(now)
		p.next = p.next.Add(p.minInterval)
	} else {
		p.next = now.Add(p.minInterval)
	}
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := p.clock.Timer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
