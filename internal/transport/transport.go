// Package transport moves protocol lines between a client and the board
// server.  A Conn carries whole lines, so the layers above never deal
// with framing: over a byte stream (TCP, or a channel through an SSH
// tunnel) lines are newline-terminated, and over a websocket each text
// message is one line.
package transport

import (
	"context"
	"errors"
	"time"
)

// MaxLineLength bounds a single inbound line.  Longer lines fail the
// read with ErrLineTooLong.
const MaxLineLength = 64 * 1024

// ErrLineTooLong is returned by ReadLine when a peer sends a line longer
// than MaxLineLength.
var ErrLineTooLong = errors.New("transport: line too long")

// Conn is a bidirectional line channel.
//
// ReadLine must only be called from one goroutine.  WriteLine is safe for
// concurrent use; lines never interleave.  Close unblocks a pending
// ReadLine, which then returns an error satisfying util.IsClosed.
type Conn interface {
	// ReadLine blocks for the next line, without its terminator.  It
	// returns io.EOF once the peer has closed the connection.
	ReadLine() (string, error)

	// WriteLine sends line followed by a terminator.
	WriteLine(line string) error

	// Close closes the connection.  Further calls return nil.
	Close() error

	// RemoteAddr describes the peer for logs.
	RemoteAddr() string
}

// Dialer opens line connections to a board server.  Implementations
// include a plain TCP dialer, a websocket dialer and an SSH-tunnelled
// dialer that routes through a gateway.
type Dialer interface {
	// Dial connects to address.
	Dial(ctx context.Context, address string) (Conn, error)

	// Close releases long-lived resources held by the dialer (an SSH
	// session, for example).  Stateless dialers return nil.
	Close() error
}

// DefaultConnectTimeout bounds connection establishment when a dialer
// has no explicit timeout.
const DefaultConnectTimeout = 5 * time.Second
