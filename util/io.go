package util

import (
	"errors"
	"io"
	"net"
	"strings"
)

// IsClosed returns true for errors that are expected when a connection
// is torn down on purpose: EOF, a closed pipe or a closed socket.
// Reader loops use it to tell a normal disconnect from a transport
// failure worth logging.
func IsClosed(err error) bool {
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

// TrimLine strips the trailing "\n" or "\r\n" from a line read with
// bufio.Reader.ReadString, so peers that terminate lines the Windows way
// decode the same as everyone else.
func TrimLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
