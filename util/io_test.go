package util

import (
	"fmt"
	"io"
	"net"
	"testing"
)

func TestIsClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"eof", io.EOF, true},
		{"wrapped eof", fmt.Errorf("read: %w", io.EOF), true},
		{"net closed", net.ErrClosed, true},
		{"closed pipe", io.ErrClosedPipe, true},
		{"op error closed", &net.OpError{Op: "read", Net: "tcp", Err: net.ErrClosed}, true},
		{"unexpected eof", io.ErrUnexpectedEOF, false},
		{"other", fmt.Errorf("connection reset by peer"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClosed(tt.err); got != tt.want {
				t.Errorf("IsClosed(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsClosed_RealConn(t *testing.T) {
	a, b := net.Pipe()
	b.Close()
	a.Close()

	_, err := a.Read(make([]byte, 1))
	if !IsClosed(err) {
		t.Errorf("read on closed pipe should be classified closed: %v", err)
	}
}

func TestTrimLine(t *testing.T) {
	for in, want := range map[string]string{
		"boards a b\n":   "boards a b",
		"boards a b\r\n": "boards a b",
		"boards":         "boards",
		"\n":             "",
	} {
		if got := TrimLine(in); got != want {
			t.Errorf("TrimLine(%q) = %q, want %q", in, got, want)
		}
	}
}
