// Package supervisor keeps the wireless link connected.
//
// A Supervisor runs the reconnect loop against a link.Driver: wait
// while the link is up, connect, wait for an address, repeat.  Failed
// attempts fall back to Down and are retried with exponential backoff;
// failures no retry can cure (rejected credentials, a closed driver)
// end the loop.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	ncerr "wifiecho/internal/errors"
	"wifiecho/internal/link"
	"wifiecho/internal/retry"
	"wifiecho/util"
)

// Config holds the supervisor's static inputs.
type Config struct {
	Credentials link.Credentials

	// ConnectTimeout bounds each wait for an address after connect.
	// Zero waits forever.
	ConnectTimeout time.Duration

	// MaxConnectAttempts bounds consecutive failed attempts before the
	// supervisor gives up.  Zero retries forever.
	MaxConnectAttempts int

	RetryInitial time.Duration
	RetryMax     time.Duration

	// OnStateChange, if set, is called after every transition.
	OnStateChange func(from, to LinkState)
}

// Supervisor drives one link.Driver.  Operations are sequential: a
// second call while one is running fails with ErrSupervisorBusy, and
// every call after StayConnected fails with ErrSupervisorDone.
type Supervisor struct {
	drv    link.Driver
	cfg    Config
	logger *util.Logger

	mu       sync.Mutex
	state    LinkState
	busy     bool
	terminal bool
}

// New returns a Supervisor in the Down state.
func New(drv link.Driver, cfg Config, logger *util.Logger) *Supervisor {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 30 * time.Second
	}
	return &Supervisor{drv: drv, cfg: cfg, logger: logger, state: Down}
}

// State returns the current link state.
func (s *Supervisor) State() LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Configure applies the credentials and starts the driver.  Driver
// errors are returned as is; nothing here is retried.
func (s *Supervisor) Configure(ctx context.Context) error {
	if err := s.enter(false); err != nil {
		return err
	}
	defer s.leave()

	ssid := s.cfg.Credentials.SSID
	if err := s.drv.SetCredentials(s.cfg.Credentials); err != nil {
		return ncerr.WrapLink("configure", ssid, err)
	}
	if err := s.drv.Start(ctx); err != nil {
		return ncerr.WrapLink("start", ssid, err)
	}
	s.logger.Info("link configured for %q", ssid)
	return nil
}

// InitialConnect runs the reconnect loop until the link first comes up
// with an address.
func (s *Supervisor) InitialConnect(ctx context.Context) error {
	if err := s.enter(false); err != nil {
		return err
	}
	defer s.leave()

	// A link that is already associated and addressed is adopted.
	if s.State() == Down {
		up, err := s.drv.HasAddress()
		if err != nil {
			return ncerr.WrapLink("wait", s.cfg.Credentials.SSID, err)
		}
		if up {
			s.logger.Info("link already up, adopting it")
			if err := s.setState(Connecting); err != nil {
				return err
			}
			return s.setState(Up)
		}
	}
	return s.loop(ctx, true)
}

// StayConnected runs the reconnect loop forever.  It is terminal: once
// called, the supervisor accepts no further operations.  It returns nil
// when ctx is cancelled and an error only when reconnecting has failed
// for good.
func (s *Supervisor) StayConnected(ctx context.Context) error {
	if err := s.enter(true); err != nil {
		return err
	}
	defer s.leave()

	err := s.loop(ctx, false)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Supervisor) enter(terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return ncerr.ErrSupervisorDone
	}
	if s.busy {
		return ncerr.ErrSupervisorBusy
	}
	s.busy = true
	if terminal {
		s.terminal = true
	}
	return nil
}

func (s *Supervisor) leave() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// loop is the reconnect cycle.  Each pass waits out a live link, then
// retries connect until an address is assigned.
func (s *Supervisor) loop(ctx context.Context, exitAfterFirst bool) error {
	ssid := s.cfg.Credentials.SSID
	for {
		if err := s.drv.WaitWhile(ctx, s.drv.IsUp, 0); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ncerr.WrapLink("wait", ssid, err)
		}
		if s.State() == Up {
			s.logger.Warn("link to %q lost", ssid)
			if err := s.setState(Down); err != nil {
				return err
			}
		}

		if err := s.backoff().Do(ctx, func(attempt int) error {
			return s.attempt(ctx, attempt)
		}); err != nil {
			return err
		}
		if exitAfterFirst {
			return nil
		}
	}
}

// attempt performs one Down -> Connecting -> Up pass.
func (s *Supervisor) attempt(ctx context.Context, n int) error {
	ssid := s.cfg.Credentials.SSID
	if err := s.setState(Connecting); err != nil {
		return retry.Permanent(err)
	}
	s.logger.Verbose("connecting to %q (attempt %d)", ssid, n)

	if err := s.drv.Connect(ctx); err != nil {
		return s.fail(ctx, "connect", err)
	}

	// Keep waiting for an address only while the association holds.
	noAddress := func() (bool, error) {
		has, err := s.drv.HasAddress()
		if err != nil || has {
			return false, err
		}
		up, err := s.drv.IsUp()
		if err != nil {
			return false, err
		}
		if !up {
			return false, ncerr.ErrLinkLost
		}
		return true, nil
	}
	if err := s.drv.WaitWhile(ctx, noAddress, s.cfg.ConnectTimeout); err != nil {
		return s.fail(ctx, "wait", err)
	}

	if err := s.setState(Up); err != nil {
		return retry.Permanent(err)
	}
	s.logger.Info("connected to %q", ssid)
	return nil
}

// fail routes a failed attempt back to Down and classifies the error
// for the backoff loop.
func (s *Supervisor) fail(ctx context.Context, op string, err error) error {
	if serr := s.setState(Down); serr != nil {
		return retry.Permanent(serr)
	}
	lerr := ncerr.WrapLink(op, s.cfg.Credentials.SSID, err)
	if ctx.Err() != nil {
		return retry.Permanent(ctx.Err())
	}
	if ncerr.IsPermanentLink(err) {
		s.logger.Error("%v", lerr)
		return retry.Permanent(lerr)
	}
	return lerr
}

func (s *Supervisor) backoff() *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: s.cfg.RetryInitial,
		MaxDelay:     s.cfg.RetryMax,
		Multiplier:   2.0,
		MaxAttempts:  s.cfg.MaxConnectAttempts,
		Jitter:       true,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			s.logger.Warn("%v; retrying in %v", err, wait.Round(time.Millisecond))
		},
	}
}

func (s *Supervisor) setState(to LinkState) error {
	s.mu.Lock()
	from := s.state
	if !CanTransition(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("link state %s -> %s not allowed", from, to)
	}
	s.state = to
	hook := s.cfg.OnStateChange
	s.mu.Unlock()

	s.logger.Debug("link state %s -> %s", from, to)
	if hook != nil {
		hook(from, to)
	}
	return nil
}
