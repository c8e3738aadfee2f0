package core

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"time"

	"wifiecho/internal/discovery"
	ncerr "wifiecho/internal/errors"
	"wifiecho/internal/retry"
	"wifiecho/internal/transport"
	"wifiecho/util"
)

// ProbeStats summarises a probe run.
type ProbeStats struct {
	Rounds int
	Bytes  int
	Min    time.Duration
	Max    time.Duration
	Total  time.Duration
}

// Avg returns the mean round-trip time.
func (s ProbeStats) Avg() time.Duration {
	if s.Rounds == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Rounds)
}

func (s *ProbeStats) add(rtt time.Duration, n int) {
	if s.Rounds == 0 || rtt < s.Min {
		s.Min = rtt
	}
	if rtt > s.Max {
		s.Max = rtt
	}
	s.Rounds++
	s.Bytes += n
	s.Total += rtt
}

// ProbeMode dials an echo server, sends a payload Count times and
// checks that exactly the same bytes come back each time.
type ProbeMode struct {
	Dialer   transport.Dialer
	Target   string // host:port; ignored when Discover is set
	Discover bool
	Instance string // mDNS instance to look for ("" = any)
	Payload  []byte
	Size     int // >0 sends Size fresh random bytes per round
	Count    int
	Timeout  time.Duration // per dial and per round trip
	Retries  int           // dial attempts
	Logger   *util.Logger

	// Stats is filled in by Run.
	Stats ProbeStats

	lookup func(ctx context.Context, name string) (*discovery.Instance, error)
}

// Run performs the probe.  An echo that differs from what was sent
// fails with errors.ErrEchoMismatch.
func (m *ProbeMode) Run(ctx context.Context) error {
	addr, err := m.resolve(ctx)
	if err != nil {
		return err
	}

	conn, err := m.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	m.Logger.Verbose("connected to %s", conn.RemoteAddr())

	count := m.Count
	if count < 1 {
		count = 1
	}
	for round := 1; round <= count; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.round(conn, round); err != nil {
			return err
		}
	}

	m.Logger.Info("%d rounds, %d bytes, rtt min/avg/max = %v/%v/%v",
		m.Stats.Rounds, m.Stats.Bytes, m.Stats.Min, m.Stats.Avg(), m.Stats.Max)
	return nil
}

func (m *ProbeMode) resolve(ctx context.Context) (string, error) {
	if !m.Discover {
		return m.Target, nil
	}
	lookup := m.lookup
	if lookup == nil {
		lookup = discovery.Lookup
	}
	inst, err := lookup(ctx, m.Instance)
	if err != nil {
		return "", fmt.Errorf("discover: %w", err)
	}
	m.Logger.Info("found %q at %s", inst.Name, inst.Addr())
	return inst.Addr(), nil
}

func (m *ProbeMode) dial(ctx context.Context, addr string) (net.Conn, error) {
	b := &retry.Backoff{
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  m.Retries,
		Jitter:       true,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			m.Logger.Verbose("dial attempt %d failed: %v; retrying in %v", attempt, err, wait.Round(time.Millisecond))
		},
	}

	var conn net.Conn
	err := b.Do(ctx, func(attempt int) error {
		dctx := ctx
		if m.Timeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(ctx, m.Timeout)
			defer cancel()
		}
		c, err := m.Dialer.Dial(dctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return conn, nil
}

func (m *ProbeMode) payload() ([]byte, error) {
	if m.Size <= 0 {
		return m.Payload, nil
	}
	p := make([]byte, m.Size)
	if _, err := rand.Read(p); err != nil {
		return nil, fmt.Errorf("random payload: %w", err)
	}
	return p, nil
}

func (m *ProbeMode) round(conn net.Conn, n int) error {
	sent, err := m.payload()
	if err != nil {
		return err
	}
	if m.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(m.Timeout)) //nolint:errcheck
	}

	start := time.Now()
	// Write and read concurrently so payloads larger than the socket
	// buffers cannot deadlock against the echo.
	werr := make(chan error, 1)
	go func() {
		_, err := conn.Write(sent)
		werr <- err
	}()

	got := make([]byte, len(sent))
	_, rerr := io.ReadFull(conn, got)
	if err := <-werr; err != nil {
		return ncerr.Wrap("write", conn.RemoteAddr().String(), err)
	}
	if rerr != nil {
		return ncerr.Wrap("read", conn.RemoteAddr().String(), rerr)
	}
	rtt := time.Since(start)

	if !bytes.Equal(got, sent) {
		return fmt.Errorf("%w: round %d, %d bytes", ncerr.ErrEchoMismatch, n, len(sent))
	}
	m.Stats.add(rtt, len(sent))
	m.Logger.Info("%d bytes from %s: round=%d time=%v", len(sent), conn.RemoteAddr(), n, rtt.Round(time.Microsecond))
	return nil
}
