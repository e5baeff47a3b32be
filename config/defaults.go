package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the board server's TCP port.
	DefaultPort = 4444

	// DefaultHost is dialled when neither a host nor a PIN is given.
	DefaultHost = "127.0.0.1"

	// DefaultBoard is the board every server starts with.
	DefaultBoard = "default"

	// DefaultTransport is the client transport: "tcp" or "ws".
	DefaultTransport = "tcp"

	// DefaultConnectTimeout bounds a single dial attempt.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRequestTimeout bounds each request/reply round trip.
	DefaultRequestTimeout = 500 * time.Millisecond

	// DefaultWriteTimeout bounds each line the server writes to a client.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultOutboxSize is how many broadcasts a slow client may lag by
	// before the server starts dropping them.
	DefaultOutboxSize = 256

	// DefaultCanvasWidth and DefaultCanvasHeight size the local surface.
	DefaultCanvasWidth  = 800
	DefaultCanvasHeight = 600

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultKeepAliveInterval is the SSH keepalive interval.
	DefaultKeepAliveInterval = 30 * time.Second

	// PINLength is the number of digits in a connect PIN.
	PINLength = 6
)
