// Package core is the orchestration layer.  It composes transports,
// the board server and the client into complete operational modes and
// provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  client / server  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete operational mode of whiteboard (serve or
// connect).  Each mode owns its full lifecycle from startup to
// teardown and returns when ctx is cancelled.
type Mode interface {
	Run(ctx context.Context) error
}
