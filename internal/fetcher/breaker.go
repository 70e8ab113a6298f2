package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while a provider's breaker is rejecting calls.
var ErrCircuitOpen = errors.New("fetcher: circuit open")

// CircuitState is the state of a provider breaker.
type CircuitState int

// Breaker states.
const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerFetcher stops calling a provider after Threshold consecutive
// failures and lets a single probe through once ResetTimeout has elapsed.
// Blocked pages and caller cancellation do not count as provider failures.
type BreakerFetcher struct {
	name         string
	next         Fetcher
	threshold    int
	resetTimeout time.Duration

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	probing  bool
	gen      uint64
	nowFunc  func() time.Time
}

// WithBreaker wraps f. A threshold <= 0 returns f unchanged.
func WithBreaker(name string, f Fetcher, threshold int, resetTimeout time.Duration) Fetcher {
	if threshold <= 0 {
		return f
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &BreakerFetcher{
		name:         name,
		next:         f,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		nowFunc:      time.Now,
	}
}

// State returns the current breaker state.
func (b *BreakerFetcher) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.nowFunc().Sub(b.openedAt) >= b.resetTimeout {
		return CircuitHalfOpen
	}
	return b.state
}

// Fetch implements Fetcher.
func (b *BreakerFetcher) Fetch(ctx context.Context, url string) (string, error) {
	tk, err := b.allow()
	if err != nil {
		return "", err
	}
	content, err := b.next.Fetch(ctx, url)
	b.record(ctx, tk, err)
	return content, err
}

// ticket identifies the breaker generation a call was admitted under.
// Only the probe ticket may settle a half-open circuit.
type ticket struct {
	gen   uint64
	probe bool
}

func (b *BreakerFetcher) allow() (ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if b.nowFunc().Sub(b.openedAt) < b.resetTimeout {
			return ticket{}, eris.Wrapf(ErrCircuitOpen, "fetcher: %s", b.name)
		}
		b.transition(CircuitHalfOpen)
		b.probing = true
		return ticket{gen: b.gen, probe: true}, nil
	case CircuitHalfOpen:
		if b.probing {
			return ticket{}, eris.Wrapf(ErrCircuitOpen, "fetcher: %s probe in flight", b.name)
		}
		b.probing = true
		return ticket{gen: b.gen, probe: true}, nil
	default:
		return ticket{gen: b.gen}, nil
	}
}

func (b *BreakerFetcher) record(ctx context.Context, tk ticket, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Calls admitted before the last transition no longer speak for the
	// provider's current state.
	if tk.gen != b.gen {
		return
	}
	neutral := err != nil && (errors.Is(err, ErrBlocked) || ctx.Err() != nil)

	if tk.probe {
		b.probing = false
		switch {
		case neutral:
		case err == nil:
			b.failures = 0
			b.transition(CircuitClosed)
		default:
			b.openedAt = b.nowFunc()
			b.transition(CircuitOpen)
		}
		return
	}

	if b.state != CircuitClosed || neutral {
		return
	}
	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.nowFunc()
		b.transition(CircuitOpen)
	}
}

func (b *BreakerFetcher) transition(to CircuitState) {
	from := b.state
	b.state = to
	b.gen++
	zap.L().Info("fetcher: circuit state change",
		zap.String("provider", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}
