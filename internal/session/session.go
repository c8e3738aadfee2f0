// Package session represents a single accepted connection: its id, the
// stream itself, and a logger tagged with that id.  A session is owned
// by exactly one handler and closed when the handler returns.
package session

import (
	"net"

	"github.com/google/uuid"

	"wifiecho/util"
)

// Session encapsulates the runtime context for a single connection.
type Session struct {
	ID     string
	Conn   net.Conn
	Logger *util.Logger
}

// New creates a Session with a fresh id.  Log lines written through
// the session's Logger carry the id and the peer address.
func New(conn net.Conn, logger *util.Logger) *Session {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	id := uuid.NewString()
	return &Session{
		ID:     id,
		Conn:   conn,
		Logger: logger.With("conn", id, "peer", conn.RemoteAddr().String()),
	}
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.Conn.Close()
}
