package retry

import (
	"fmt"
	"sync"
	"time"

	ncerr "wifiecho/internal/errors"
)

// State is a breaker position.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are refused until the cooldown ends
	StateHalfOpen              // one trial call decides
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker].  Zero fields take the defaults
// noted beside them.
type BreakerConfig struct {
	Threshold   int           // consecutive failures that open the breaker (5)
	Cooldown    time.Duration // first open period (1s)
	MaxCooldown time.Duration // cap for the doubling open period (30s)

	// OnStateChange runs after each transition, outside the lock.
	OnStateChange func(from, to State)
}

// Breaker stops a loop from spinning on an error that keeps recurring,
// such as accept failing with EMFILE.  After Threshold consecutive
// failures it refuses calls for a cooldown, then lets a single trial
// through.  A failed trial reopens it with twice the cooldown; a
// successful one closes it and restores the initial cooldown.
type Breaker struct {
	threshold   int
	base        time.Duration
	maxCooldown time.Duration
	onChange    func(from, to State)
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	cooldown time.Duration
	openedAt time.Time
	trial    bool
}

// NewBreaker returns a closed Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Second
	}
	if cfg.MaxCooldown < cfg.Cooldown {
		cfg.MaxCooldown = max(30*time.Second, cfg.Cooldown)
	}
	return &Breaker{
		threshold:   cfg.Threshold,
		base:        cfg.Cooldown,
		maxCooldown: cfg.MaxCooldown,
		onChange:    cfg.OnStateChange,
		now:         time.Now,
		cooldown:    cfg.Cooldown,
	}
}

// Execute calls fn unless the breaker is open, in which case it returns
// an error wrapping errors.ErrCircuitOpen without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Cooldown returns how long an open breaker keeps refusing calls.  It
// is zero unless the breaker is open.
func (b *Breaker) Cooldown() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return 0
	}
	return max(b.cooldown-b.now().Sub(b.openedAt), 0)
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// ── internal ─────────────────────────────────────────────────────────

func (b *Breaker) admit() error {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case StateOpen:
		left := b.cooldown - b.now().Sub(b.openedAt)
		if left > 0 {
			failures := b.failures
			b.mu.Unlock()
			return fmt.Errorf("%w: %d consecutive failures, retry in %v",
				ncerr.ErrCircuitOpen, failures, left.Truncate(time.Millisecond))
		}
		b.state = StateHalfOpen
		b.trial = true
	case StateHalfOpen:
		if b.trial {
			b.mu.Unlock()
			return fmt.Errorf("%w: trial call in flight", ncerr.ErrCircuitOpen)
		}
		b.trial = true
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state
	b.trial = false
	switch {
	case err == nil:
		b.failures = 0
		b.state = StateClosed
		b.cooldown = b.base
	case from == StateHalfOpen:
		b.failures++
		b.cooldown = min(2*b.cooldown, b.maxCooldown)
		b.state = StateOpen
		b.openedAt = b.now()
	default:
		b.failures++
		if b.failures >= b.threshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}
