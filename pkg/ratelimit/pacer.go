// Package ratelimit implements server-directed request pacing. The Zotero
// API signals backoff pressure through Retry-After and Backoff headers;
// this package parses those values and serializes outbound requests behind
// a shared pacing deadline so that a busy upstream is never hammered.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request pacing.
var (
	pacingDelaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zotero_pacing_delays_total",
		Help: "Total number of requests delayed by server pacing",
	})

	pacingWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zotero_pacing_wait_seconds",
		Help:    "Time spent waiting for server pacing deadlines",
		Buckets: prometheus.DefBuckets,
	})
)

// Pacer tracks the server-requested wait deadline shared by all requests
// of a client. It is safe for concurrent use.
type Pacer struct {
	mu     sync.Mutex
	until  time.Time
	logger zerolog.Logger

	// now is overridable for tests.
	now func() time.Time
}

// NewPacer creates a pacer with no deadline in effect.
func NewPacer(logger zerolog.Logger) *Pacer {
	return &Pacer{
		logger: logger,
		now:    time.Now,
	}
}

// Observe records a server-requested wait. The deadline only ever moves
// forward; a shorter wait never truncates one already in effect.
func (p *Pacer) Observe(wait time.Duration) {
	if wait <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	deadline := p.now().Add(wait)
	if deadline.After(p.until) {
		p.until = deadline
		p.logger.Debug().
			Dur("wait", wait).
			Time("until", deadline).
			Msg("Server pacing deadline extended")
	}
}

// ObserveHeader parses a Retry-After header value and records the wait.
// Returns false if the value is empty or malformed.
func (p *Pacer) ObserveHeader(value string) bool {
	wait, ok := ParseRetryAfter(value, p.now())
	if !ok {
		return false
	}
	p.Observe(wait)
	return true
}

// Pending returns the remaining wait before the next request may be sent.
// Zero means no pacing is in effect.
func (p *Pacer) Pending() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	wait := p.until.Sub(p.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// Wait blocks until any pacing deadline has passed or the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	wait := p.Pending()
	if wait <= 0 {
		return nil
	}

	pacingDelaysTotal.Inc()
	pacingWaitSeconds.Observe(wait.Seconds())
	p.logger.Info().
		Dur("wait", wait).
		Msg("Pacing request behind server-requested delay")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
