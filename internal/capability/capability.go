// Package capability defines what happens over an accepted
// connection.  A Capability operates on a Session rather than a raw
// net.Conn, which keeps it testable and independent of how the
// connection was obtained.
package capability

import (
	"context"

	"wifiecho/internal/session"
)

// Capability handles a single connection.
type Capability interface {
	// Handle runs against the given session until the peer is done,
	// an I/O error occurs or ctx is cancelled.  It does not close the
	// session.
	Handle(ctx context.Context, sess *session.Session) error
}
