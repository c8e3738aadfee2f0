// Package core is the orchestration layer.  It composes the link
// supervisor, the echo server and the probe client into complete
// operational modes and provides a builder that selects the right mode
// from a Config.
//
// Architecture layers (bottom → top):
//
//	link / transport  →  capability  →  session  →  supervisor / server  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of wifiecho (serve or
// probe).  Each mode owns its full lifecycle from setup to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
