package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"wifiecho/internal/capability"
	ncerr "wifiecho/internal/errors"
	"wifiecho/internal/retry"
	"wifiecho/internal/session"
	"wifiecho/util"
)

// startServer runs s on an ephemeral loopback port and returns its
// address plus a channel carrying ListenAndServe's result.
func startServer(t *testing.T, ctx context.Context, s *Server) (string, <-chan error) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe(ctx) }()

	select {
	case <-s.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server not ready")
	}
	return s.Addr().String(), errCh
}

func newEchoServer(logger *util.Logger, maxConns int) *Server {
	return New(Config{Address: "127.0.0.1:0", MaxConns: maxConns}, nil, &capability.Echo{}, logger)
}

// TestServer_Ping is the basic interactive scenario: send "ping",
// read "ping", close, and nothing is logged as a problem.
func TestServer_Ping(t *testing.T) {
	var logs syncBuffer
	logger := util.NewLogger(2)
	logger.SetOutput(&logs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, errCh := startServer(t, ctx, newEchoServer(logger, 0))

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Write([]byte("ping")) //nolint:errcheck

	buf := make([]byte, 4)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "ping" {
		t.Errorf("got %q, want %q", buf, "ping")
	}
	conn.Close()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe after cancel = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down in time")
	}

	if out := logs.String(); strings.Contains(out, "ERROR") || strings.Contains(out, "WARN") {
		t.Errorf("clean session logged a problem:\n%s", out)
	}
}

// TestServer_ConcurrentClients checks that five clients talking at
// once each get back exactly their own bytes.
func TestServer_ConcurrentClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := startServer(t, ctx, newEchoServer(nil, 0))

	const clients = 5
	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
			if err != nil {
				errs <- fmt.Errorf("client %d dial: %w", id, err)
				return
			}
			defer conn.Close()

			msg := bytes.Repeat([]byte(fmt.Sprintf("client-%d;", id)), 300)
			go func() {
				conn.Write(msg)                  //nolint:errcheck
				conn.(*net.TCPConn).CloseWrite() //nolint:errcheck
			}()
			conn.SetReadDeadline(time.Now().Add(3 * time.Second))
			got, err := io.ReadAll(conn)
			if err != nil {
				errs <- fmt.Errorf("client %d read: %w", id, err)
				return
			}
			if !bytes.Equal(got, msg) {
				errs <- fmt.Errorf("client %d got %d bytes of foreign or reordered data", id, len(got))
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// blockCap holds every connection open until released.
type blockCap struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockCap) Handle(ctx context.Context, sess *session.Session) error {
	b.entered <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestServer_FullHandlerSetRefuses(t *testing.T) {
	var logs syncBuffer
	logger := util.NewLogger(1)
	logger.SetOutput(&logs)

	bc := &blockCap{entered: make(chan struct{}, 4), release: make(chan struct{})}
	s := New(Config{Address: "127.0.0.1:0", MaxConns: 1}, nil, bc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := startServer(t, ctx, s)

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer first.Close()
	<-bc.entered

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := second.Read(make([]byte, 1)); err == nil {
		t.Error("refused connection was readable")
	}
	if !strings.Contains(logs.String(), "refusing connection") {
		t.Errorf("refusal not logged:\n%s", logs.String())
	}

	// Once the first handler returns, new connections are served again.
	close(bc.release)
	waitFor(t, func() bool { return s.Active() == 0 })
	time.Sleep(20 * time.Millisecond) // errgroup releases its slot after the handler returns
	third, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer third.Close()
	select {
	case <-bc.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("third connection not handled")
	}
}

func TestServer_CancelStopsHandlers(t *testing.T) {
	bc := &blockCap{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := New(Config{Address: "127.0.0.1:0"}, nil, bc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	addr, errCh := startServer(t, ctx, s)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	<-bc.entered

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	if n := s.Active(); n != 0 {
		t.Errorf("%d handlers still active", n)
	}
	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Error("listener still accepting after shutdown")
	}
}

func TestServer_BindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	s := New(Config{Address: taken.Addr().String()}, nil, &capability.Echo{}, nil)
	err = s.ListenAndServe(context.Background())
	var ne *ncerr.NetworkError
	if !errors.As(err, &ne) || ne.Op != "listen" {
		t.Fatalf("ListenAndServe = %v, want listen NetworkError", err)
	}
}

// ── Accept error handling ────────────────────────────────────────────

// flakyListener fails Accept with the queued errors, then blocks until
// closed.
type flakyListener struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	closes int
	closed chan struct{}
	once   sync.Once
}

func newFlakyListener(errs ...error) *flakyListener {
	return &flakyListener{errs: errs, closed: make(chan struct{})}
}

func (l *flakyListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	l.calls++
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		l.mu.Unlock()
		return nil, err
	}
	l.mu.Unlock()
	<-l.closed
	return nil, net.ErrClosed
}

func (l *flakyListener) Close() error {
	l.mu.Lock()
	l.closes++
	l.mu.Unlock()
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *flakyListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 12345}
}

func (l *flakyListener) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *flakyListener) Closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

func emfile() error {
	return &net.OpError{Op: "accept", Net: "tcp", Err: syscall.EMFILE}
}

func TestServe_TransientAcceptErrorsAbsorbed(t *testing.T) {
	ln := newFlakyListener(emfile(), emfile(), emfile())
	s := New(Config{
		Breaker: retry.BreakerConfig{Threshold: 2, Cooldown: 20 * time.Millisecond},
	}, nil, &capability.Echo{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	waitFor(t, func() bool { return ln.Calls() >= 4 })
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServe_FatalAcceptError(t *testing.T) {
	fatal := errors.New("listener torn down by kernel")
	ln := newFlakyListener(fatal)
	s := New(Config{}, nil, &capability.Echo{}, nil)

	err := s.Serve(context.Background(), ln)
	if !errors.Is(err, fatal) {
		t.Fatalf("Serve = %v, want %v", err, fatal)
	}
	var ne *ncerr.NetworkError
	if !errors.As(err, &ne) || ne.Op != "accept" {
		t.Errorf("error %v is not an accept NetworkError", err)
	}
}

// TestServe_FatalAcceptErrorReleasesWatcher verifies that once Serve
// returns on a fatal accept error, cancelling the still-live context no
// longer reaches the listener.
func TestServe_FatalAcceptErrorReleasesWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln := newFlakyListener(errors.New("listener torn down by kernel"))
	s := New(Config{}, nil, &capability.Echo{}, nil)
	if err := s.Serve(ctx, ln); err == nil {
		t.Fatal("Serve returned nil on a fatal accept error")
	}
	if got := ln.Closes(); got != 1 {
		t.Fatalf("Close calls after Serve = %d, want 1", got)
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	if got := ln.Closes(); got != 1 {
		t.Errorf("Close calls after cancel = %d, want 1", got)
	}
}

// ── helpers ──────────────────────────────────────────────────────────

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
