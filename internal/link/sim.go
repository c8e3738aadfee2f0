package link

import (
	"context"
	"sync"
	"time"

	ncerr "wifiecho/internal/errors"
)

// SimOptions configures a simulated radio.
type SimOptions struct {
	// AcceptSSID and AcceptPassphrase, when AcceptSSID is non-empty,
	// are the only credentials the simulated access point admits.
	AcceptSSID       string
	AcceptPassphrase string

	// AddressDelay is how long after association the address appears.
	AddressDelay time.Duration
}

// Sim is an in-memory radio.  Tests drive it with Drop and FailConnect;
// host runs use it to exercise the supervisor without hardware.
type Sim struct {
	opts SimOptions

	mu       sync.Mutex
	creds    Credentials
	started  bool
	closed   bool
	up       bool
	addr     bool
	gen      int // bumped on every association change
	connects int
	failures []error
	changed  chan struct{}
}

// NewSim returns a stopped, disassociated Sim.
func NewSim(opts SimOptions) *Sim {
	return &Sim{opts: opts, changed: make(chan struct{})}
}

// broadcast wakes every waiter.  Caller holds s.mu.
func (s *Sim) broadcast() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Sim) SetCredentials(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ncerr.ErrDriverClosed
	}
	s.creds = creds
	return nil
}

func (s *Sim) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ncerr.ErrDriverClosed
	}
	s.started = true
	return nil
}

// Connect associates immediately unless a failure is queued or the
// credentials are rejected.  The address follows after AddressDelay.
func (s *Sim) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ncerr.ErrDriverClosed
	case !s.started:
		return ncerr.ErrDriverStopped
	}
	s.connects++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	if s.opts.AcceptSSID != "" &&
		(s.creds.SSID != s.opts.AcceptSSID || s.creds.Passphrase != s.opts.AcceptPassphrase) {
		return ncerr.ErrAuthFailed
	}
	if s.up {
		return nil
	}

	s.up = true
	s.gen++
	if s.opts.AddressDelay <= 0 {
		s.addr = true
	} else {
		gen := s.gen
		time.AfterFunc(s.opts.AddressDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.gen == gen && s.up && !s.closed {
				s.addr = true
				s.broadcast()
			}
		})
	}
	s.broadcast()
	return nil
}

func (s *Sim) IsUp() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ncerr.ErrDriverClosed
	}
	return s.up, nil
}

func (s *Sim) HasAddress() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ncerr.ErrDriverClosed
	}
	return s.up && s.addr, nil
}

func (s *Sim) WaitWhile(ctx context.Context, cond func() (bool, error), timeout time.Duration) error {
	return waitLoop(ctx, cond, timeout, func() <-chan struct{} {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.changed
	})
}

// Close disassociates and makes every further call fail.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.up, s.addr = false, false
	s.broadcast()
	return nil
}

// ── Test controls ────────────────────────────────────────────────────

// Drop simulates losing the access point.
func (s *Sim) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.up {
		return
	}
	s.up, s.addr = false, false
	s.gen++
	s.broadcast()
}

// FailConnect queues err to be returned by the next Connect call.
// Queued errors are consumed in order.
func (s *Sim) FailConnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

// Connects returns how many times Connect has been called.
func (s *Sim) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// Credentials returns the last credentials applied.
func (s *Sim) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}
