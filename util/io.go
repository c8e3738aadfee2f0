package util

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
)

// CloseOnDone closes c once ctx is cancelled, unblocking any pending
// read or write on it.  The returned stop function releases the watcher
// without closing c; it is safe to call more than once.
func CloseOnDone(ctx context.Context, c io.Closer) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

// IsHarmless returns true for errors that are expected when a peer
// hangs up or the connection is torn down during shutdown.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsTimeout reports whether err is a deadline expiry on a connection.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
