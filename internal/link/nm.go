package link

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	ncerr "wifiecho/internal/errors"
	"wifiecho/util"
)

// ifaceState is the part of a host interface the driver observes.
type ifaceState struct {
	up    bool
	addrs []net.Addr
}

// NM drives a Linux wireless interface through NetworkManager's nmcli.
// Link and address state are polled from the kernel interface table.
type NM struct {
	iface  string
	poll   time.Duration
	logger *util.Logger

	// run executes nmcli; lookup reads interface state.  Both are
	// replaced in tests.
	run    func(ctx context.Context, args ...string) ([]byte, error)
	lookup func(name string) (ifaceState, error)

	mu      sync.Mutex
	creds   Credentials
	started bool
	closed  bool
}

// NewNM returns an NM driver for opts.Interface.
func NewNM(opts Options) *NM {
	if opts.Interface == "" {
		opts.Interface = DefaultIface
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPoll
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	return &NM{
		iface:  opts.Interface,
		poll:   opts.PollInterval,
		logger: opts.Logger,
		run:    runNMCLI,
		lookup: lookupInterface,
	}
}

func runNMCLI(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "nmcli", args...).CombinedOutput()
}

func lookupInterface(name string) (ifaceState, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return ifaceState{}, fmt.Errorf("interface %s: %w", name, err)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return ifaceState{}, fmt.Errorf("interface %s addresses: %w", name, err)
	}
	return ifaceState{
		up:    ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagRunning != 0,
		addrs: addrs,
	}, nil
}

func (d *NM) SetCredentials(creds Credentials) error {
	if creds.SSID == "" {
		return fmt.Errorf("nmcli: empty SSID")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ncerr.ErrDriverClosed
	}
	d.creds = creds
	return nil
}

// Start switches the radio on and checks that the interface exists.
func (d *NM) Start(ctx context.Context) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ncerr.ErrDriverClosed
	}

	if out, err := d.run(ctx, "radio", "wifi", "on"); err != nil {
		return nmcliError(err, out)
	}
	if _, err := d.lookup(d.iface); err != nil {
		return err
	}

	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	d.logger.Verbose("nmcli: radio on, interface %s", d.iface)
	return nil
}

// Connect asks NetworkManager to associate with the configured network.
// nmcli blocks until activation finishes or its own wait expires.
func (d *NM) Connect(ctx context.Context) error {
	d.mu.Lock()
	creds, started, closed := d.creds, d.started, d.closed
	d.mu.Unlock()
	switch {
	case closed:
		return ncerr.ErrDriverClosed
	case !started:
		return ncerr.ErrDriverStopped
	}

	args := []string{"--wait", strconv.Itoa(30), "device", "wifi", "connect", creds.SSID}
	if creds.Passphrase != "" {
		args = append(args, "password", creds.Passphrase)
	}
	args = append(args, "ifname", d.iface)

	d.logger.Debug("nmcli: connecting %s to %q", d.iface, creds.SSID)
	out, err := d.run(ctx, args...)
	if err != nil {
		if isAuthRejection(out) {
			return fmt.Errorf("%w: %s", ncerr.ErrAuthFailed, strings.TrimSpace(string(out)))
		}
		return nmcliError(err, out)
	}
	return nil
}

func (d *NM) IsUp() (bool, error) {
	st, err := d.state()
	if err != nil {
		return false, err
	}
	return st.up, nil
}

// HasAddress reports a routable (non link-local) IP on a running link.
func (d *NM) HasAddress() (bool, error) {
	st, err := d.state()
	if err != nil {
		return false, err
	}
	if !st.up {
		return false, nil
	}
	for _, a := range st.addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ipn.IP.IsGlobalUnicast() || ipn.IP.IsPrivate() {
			return true, nil
		}
	}
	return false, nil
}

func (d *NM) state() (ifaceState, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ifaceState{}, ncerr.ErrDriverClosed
	}
	return d.lookup(d.iface)
}

func (d *NM) WaitWhile(ctx context.Context, cond func() (bool, error), timeout time.Duration) error {
	return waitLoop(ctx, cond, timeout, func() <-chan struct{} {
		ch := make(chan struct{})
		time.AfterFunc(d.poll, func() { close(ch) })
		return ch
	})
}

// Close marks the driver closed.  The NetworkManager connection itself
// is left as is.
func (d *NM) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func nmcliError(err error, out []byte) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("nmcli: %w", err)
	}
	return fmt.Errorf("nmcli: %w: %s", err, msg)
}

// isAuthRejection matches the messages nmcli prints when the access
// point refuses the passphrase.
func isAuthRejection(out []byte) bool {
	s := strings.ToLower(string(out))
	return strings.Contains(s, "secrets were required") ||
		strings.Contains(s, "802-11-wireless-security.psk") ||
		strings.Contains(s, "invalid password")
}
