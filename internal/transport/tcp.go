package transport

import (
	"context"
	"net"
	"time"

	ncerr "wifiecho/internal/errors"
)

// TCPDialer establishes plain TCP connections.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration // 0 = OS default, negative disables
}

// Dial connects to address over TCP.  Small payloads are sent without
// Nagle delay so that round-trip timings are meaningful.
func (d *TCPDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, ncerr.Wrap("dial", address, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true) //nolint:errcheck
	}
	return conn, nil
}

// TCPListener binds TCP listeners.
type TCPListener struct {
	KeepAlive time.Duration // 0 = OS default, negative disables
}

// Listen binds address ("host:port", port 0 for ephemeral).
func (l *TCPListener) Listen(ctx context.Context, address string) (net.Listener, error) {
	lc := net.ListenConfig{KeepAlive: l.KeepAlive}
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, ncerr.Wrap("listen", address, err)
	}
	return ln, nil
}
