package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	wberr "whiteboard/internal/errors"
)

// TCPDialer establishes plain TCP connections, optionally binding to a
// specific source port.
type TCPDialer struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
	LocalPort    int // optional source-port binding (0 = ephemeral)
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, address string) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dialer := net.Dialer{Timeout: timeout}

	if d.LocalPort > 0 {
		a, err := net.ResolveTCPAddr("tcp", fmt.Sprintf(":%d", d.LocalPort))
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, wberr.Wrap("dial", address, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		// Draw lines are tiny and latency-sensitive.
		_ = tc.SetNoDelay(true)
	}
	return NewStreamConn(conn, d.WriteTimeout), nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
