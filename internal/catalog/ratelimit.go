package catalog

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between outbound requests to one
// catalog. Every client call routes through Wait, so requests to a catalog
// are serialized and spaced regardless of which phase issued them.
type Pacer struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

// NewPacer creates a pacer with the given minimum inter-request interval.
// A non-positive interval disables pacing.
func NewPacer(minInterval time.Duration) *Pacer {
	return &Pacer{minInterval: minInterval}
}

// Wait blocks until the minimum interval since the previous request has
// elapsed, returning early if the context is cancelled. The reservation is
// taken before sleeping so concurrent callers queue behind each other.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.minInterval <= 0 {
		return nil
	}
	p.mu.Lock()
	now := time.Now()
	next := p.last.Add(p.minInterval)
	if next.Before(now) {
		next = now
	}
	p.last = next
	p.mu.Unlock()

	return SleepWithContext(ctx, time.Until(next))
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits, timeouts, connection errors).
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	message := strings.ToLower(err.Error())
	if strings.Contains(message, "429") || strings.Contains(message, "rate limit") {
		return true
	}
	for _, code := range []string{"502", "503", "504"} {
		if strings.Contains(message, code) {
			return true
		}
	}
	transientTokens := []string{
		"timeout",
		"deadline exceeded",
		"client.timeout exceeded",
		"connection reset",
		"connection refused",
		"temporary failure",
		"awaiting headers",
	}
	for _, token := range transientTokens {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
