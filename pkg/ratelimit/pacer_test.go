package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPacer(clock *fakeClock) *Pacer {
	p := NewPacer(zerolog.Nop())
	p.now = clock.Now
	return p
}

func TestPacerObserveExtendsDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	p := newTestPacer(clock)

	p.Observe(2 * time.Second)
	if got := p.Pending(); got != 2*time.Second {
		t.Fatalf("Pending() = %v, want %v", got, 2*time.Second)
	}

	// A shorter wait must not truncate the existing deadline.
	p.Observe(1 * time.Second)
	if got := p.Pending(); got != 2*time.Second {
		t.Errorf("Pending() after shorter observe = %v, want %v", got, 2*time.Second)
	}

	// A longer wait extends it.
	p.Observe(5 * time.Second)
	if got := p.Pending(); got != 5*time.Second {
		t.Errorf("Pending() after longer observe = %v, want %v", got, 5*time.Second)
	}
}

func TestPacerObserveIgnoresNonPositive(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	p := newTestPacer(clock)

	p.Observe(0)
	p.Observe(-time.Second)

	if got := p.Pending(); got != 0 {
		t.Errorf("Pending() = %v, want 0", got)
	}
}

func TestPacerDeadlineExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	p := newTestPacer(clock)

	p.Observe(1 * time.Second)
	clock.Advance(2 * time.Second)

	if got := p.Pending(); got != 0 {
		t.Errorf("Pending() after expiry = %v, want 0", got)
	}
}

func TestPacerObserveHeader(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	p := newTestPacer(clock)

	if !p.ObserveHeader("3") {
		t.Fatal("ObserveHeader(\"3\") = false, want true")
	}
	if got := p.Pending(); got != 3*time.Second {
		t.Errorf("Pending() = %v, want %v", got, 3*time.Second)
	}

	if p.ObserveHeader("garbage") {
		t.Error("ObserveHeader(\"garbage\") = true, want false")
	}
	if got := p.Pending(); got != 3*time.Second {
		t.Errorf("Pending() after malformed header = %v, want %v", got, 3*time.Second)
	}
}

func TestPacerWaitWithoutDeadline(t *testing.T) {
	p := NewPacer(zerolog.Nop())

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Wait() without deadline took %v, want immediate return", elapsed)
	}
}

func TestPacerWaitBlocksUntilDeadline(t *testing.T) {
	p := NewPacer(zerolog.Nop())
	p.Observe(30 * time.Millisecond)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Wait() returned after %v, want at least 25ms", elapsed)
	}
}

func TestPacerWaitRespectsContext(t *testing.T) {
	p := NewPacer(zerolog.Nop())
	p.Observe(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait() took %v after cancellation, want prompt return", elapsed)
	}
}

func TestPacerConcurrentObserve(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	p := newTestPacer(clock)

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(seconds int) {
			defer wg.Done()
			p.Observe(time.Duration(seconds) * time.Second)
		}(i)
	}
	wg.Wait()

	if got := p.Pending(); got != 10*time.Second {
		t.Errorf("Pending() = %v, want %v", got, 10*time.Second)
	}
}
