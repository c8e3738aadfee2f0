// Package server runs the echo accept loop: bind, accept, hand each
// connection to a capability on its own goroutine, repeat.
package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"wifiecho/internal/capability"
	ncerr "wifiecho/internal/errors"
	"wifiecho/internal/retry"
	"wifiecho/internal/session"
	"wifiecho/internal/transport"
	"wifiecho/util"
)

// Defaults applied by New.
const (
	DefaultMaxConns      = 64
	DefaultShutdownGrace = 2 * time.Second
)

// Config controls the accept loop.
type Config struct {
	Address       string        // host:port to bind
	MaxConns      int           // live handler bound
	ShutdownGrace time.Duration // how long to wait for handlers on exit

	// Breaker tunes how repeated accept failures pause the loop.
	Breaker retry.BreakerConfig
}

// Server accepts connections and runs a Capability on each.
type Server struct {
	cfg      Config
	listener transport.Listener
	handler  capability.Capability
	logger   *util.Logger
	breaker  *retry.Breaker

	active atomic.Int64
	ready  chan struct{}
	once   sync.Once
	mu     sync.Mutex
	addr   net.Addr
}

// New returns a Server.  ln binds the address; h handles connections.
func New(cfg Config, ln transport.Listener, h capability.Capability, logger *util.Logger) *Server {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if ln == nil {
		ln = &transport.TCPListener{}
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	s := &Server{
		cfg:      cfg,
		listener: ln,
		handler:  h,
		logger:   logger,
		ready:    make(chan struct{}),
	}
	bcfg := cfg.Breaker
	bcfg.OnStateChange = func(from, to retry.State) {
		s.logger.Debug("accept breaker %s -> %s", from, to)
	}
	s.breaker = retry.NewBreaker(bcfg)
	return s
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Active returns the number of running handlers.
func (s *Server) Active() int { return int(s.active.Load()) }

// ListenAndServe binds the configured address and serves until ctx is
// cancelled.  A bind failure is returned immediately.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.listener.Listen(ctx, s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled or a non-transient accept
// error occurs.  It closes ln before returning.  Cancellation is a
// clean stop and returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })
	s.logger.Info("echo server listening on %s", ln.Addr())

	// Shut the listener down when the context expires.
	stop := util.CloseOnDone(ctx, ln)
	defer stop()

	var handlers errgroup.Group
	handlers.SetLimit(s.cfg.MaxConns)
	defer s.drain(&handlers)

	for {
		var conn net.Conn
		err := s.breaker.Execute(func() error {
			var aerr error
			conn, aerr = ln.Accept()
			return aerr
		})
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			switch {
			case ncerr.Is(err, ncerr.ErrCircuitOpen):
				s.logger.Warn("accept paused: %v", err)
				sleepCtx(ctx, s.breaker.Cooldown())
				continue
			case ncerr.IsTemporary(err):
				s.logger.Verbose("transient accept error: %v", err)
				continue
			}
			return ncerr.Wrap("accept", ln.Addr().String(), err)
		}

		sess := session.New(conn, s.logger)
		if !handlers.TryGo(func() error {
			s.serveConn(ctx, sess)
			return nil
		}) {
			sess.Logger.Warn("refusing connection: %v (limit %d)", ncerr.ErrHandlerSetFull, s.cfg.MaxConns)
			sess.Close()
		}
	}
}

func (s *Server) serveConn(ctx context.Context, sess *session.Session) {
	s.active.Add(1)
	defer s.active.Add(-1)
	defer sess.Close()

	sess.Logger.Verbose("connection accepted")
	// Errors are logged by the capability; nothing escalates from here.
	_ = s.handler.Handle(ctx, sess)
	sess.Logger.Verbose("connection closed")
}

// drain waits up to the shutdown grace for live handlers.
func (s *Server) drain(g *errgroup.Group) {
	done := make(chan struct{})
	go func() {
		g.Wait() //nolint:errcheck
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.logger.Warn("%d handlers still running after %v", s.Active(), s.cfg.ShutdownGrace)
	}
}

// sleepCtx sleeps for at most d, returning early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
