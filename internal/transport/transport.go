// Package transport opens the TCP endpoints used by the echo server and
// the probe client.  What happens over a connection is the capability
// layer's job.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections.
type Dialer interface {
	// Dial establishes a connection to address.
	Dial(ctx context.Context, address string) (net.Conn, error)
}

// Listener binds inbound endpoints.
type Listener interface {
	// Listen binds address and returns a listener ready to accept.
	Listen(ctx context.Context, address string) (net.Listener, error)
}
