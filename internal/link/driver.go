// Package link abstracts the wireless network interface that the
// supervisor drives: credential setup, association, and observation of
// the link and address state.
package link

//go:generate go tool mockgen -destination=./mocks/driver_mock.go -package=mocks . Driver

import (
	"context"
	"fmt"
	"time"

	ncerr "wifiecho/internal/errors"
	"wifiecho/util"
)

// Credentials is the static network name and passphrase pair.
type Credentials struct {
	SSID       string
	Passphrase string
}

// Driver is a wireless interface the supervisor can configure, connect
// and observe.  IsUp reports association with the access point;
// HasAddress reports that the link is up and an IP address is assigned.
type Driver interface {
	SetCredentials(creds Credentials) error
	Start(ctx context.Context) error
	Connect(ctx context.Context) error
	IsUp() (bool, error)
	HasAddress() (bool, error)

	// WaitWhile blocks while cond reports true, re-evaluating it each
	// time the driver observes a state change.  A zero timeout waits
	// forever; an expired one returns errors.ErrTimeout.
	WaitWhile(ctx context.Context, cond func() (bool, error), timeout time.Duration) error

	Close() error
}

// Driver names accepted by Open.
const (
	DriverSim   = "sim"
	DriverNMCLI = "nmcli"
)

// nmcli defaults.
const (
	DefaultPoll  = 500 * time.Millisecond
	DefaultIface = "wlan0"
)

// Options configures the driver returned by Open.
type Options struct {
	Interface    string        // host interface for nmcli
	PollInterval time.Duration // nmcli state poll period
	AddressDelay time.Duration // sim: delay between association and address
	Logger       *util.Logger
}

// Open returns the driver registered under name.
func Open(name string, opts Options) (Driver, error) {
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	switch name {
	case DriverSim, "":
		return NewSim(SimOptions{AddressDelay: opts.AddressDelay}), nil
	case DriverNMCLI:
		return NewNM(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ncerr.ErrUnknownDriver, name, DriverSim, DriverNMCLI)
	}
}

// waitLoop evaluates cond until it reports false.  wake returns a
// channel that fires when cond may have changed; it is taken before
// each evaluation so that no change is missed in between.
func waitLoop(ctx context.Context, cond func() (bool, error), timeout time.Duration, wake func() <-chan struct{}) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		ch := wake()
		hold, err := cond()
		if err != nil {
			return err
		}
		if !hold {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ncerr.ErrTimeout
		case <-ch:
		}
	}
}
