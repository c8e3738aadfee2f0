package capability

import (
	"context"
	"time"

	ncerr "wifiecho/internal/errors"
	"wifiecho/internal/session"
	"wifiecho/util"
)

// Echo writes every chunk read from the connection straight back to it.
// Reads are at most BufSize bytes, and each chunk is written in full
// before the next read.
type Echo struct {
	BufSize     int           // 0 = util.EchoBufSize
	IdleTimeout time.Duration // 0 = wait for data forever
}

// Handle echoes until the peer closes.  A clean close returns nil.
// Read and write failures are logged here and returned; the caller
// has nothing further to do with them.
func (e *Echo) Handle(ctx context.Context, sess *session.Session) error {
	stop := util.CloseOnDone(ctx, sess.Conn)
	defer stop()

	buf, release := e.buffer()
	defer release()

	var total int64
	for {
		if e.IdleTimeout > 0 {
			sess.Conn.SetReadDeadline(time.Now().Add(e.IdleTimeout)) //nolint:errcheck
		}
		n, err := sess.Conn.Read(buf)
		if n > 0 {
			if _, werr := sess.Conn.Write(buf[:n]); werr != nil {
				return e.finish(ctx, sess, "write", werr, total)
			}
			total += int64(n)
			sess.Logger.Debug("echoed %d bytes", n)
		}
		if err != nil {
			return e.finish(ctx, sess, "read", err, total)
		}
		if n == 0 {
			sess.Logger.Verbose("empty read, closing after %d bytes", total)
			return nil
		}
	}
}

func (e *Echo) buffer() ([]byte, func()) {
	if e.BufSize <= 0 || e.BufSize == util.EchoBufSize {
		p := util.GetBuf()
		return *p, func() { util.PutBuf(p) }
	}
	return make([]byte, e.BufSize), func() {}
}

// finish classifies the error that ended the echo loop.
func (e *Echo) finish(ctx context.Context, sess *session.Session, op string, err error, total int64) error {
	switch {
	case ctx.Err() != nil && util.IsHarmless(err):
		sess.Logger.Verbose("shutdown, closing after %d bytes", total)
		return nil
	case util.IsHarmless(err):
		sess.Logger.Verbose("peer closed after %d bytes", total)
		return nil
	case util.IsTimeout(err) && e.IdleTimeout > 0:
		sess.Logger.Info("idle for %v, closing after %d bytes", e.IdleTimeout, total)
		return nil
	}
	nerr := ncerr.Wrap(op, sess.Conn.RemoteAddr().String(), err)
	sess.Logger.Warn("%v", nerr)
	return nerr
}
