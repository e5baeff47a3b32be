package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"testing"
)

func TestDecodeError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  DecodeError
		want string
	}{
		{
			name: "reason only",
			err:  DecodeError{Line: "boards?", Reason: "unknown kind"},
			want: `decode "boards?": unknown kind`,
		},
		{
			name: "with cause",
			err:  DecodeError{Line: "draw b drawLineSegment x", Reason: "field x1", Err: strconv.ErrSyntax},
			want: `decode "draw b drawLineSegment x": field x1: invalid syntax`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsDecode(t *testing.T) {
	err := fmt.Errorf("listener: %w", Decode("x", "unknown kind", nil))
	if !IsDecode(err) {
		t.Error("wrapped DecodeError should be detected")
	}
	if IsDecode(io.EOF) {
		t.Error("io.EOF is not a decode error")
	}
	if !stderrors.Is(Decode("x", "bad", strconv.ErrRange), strconv.ErrRange) {
		t.Error("DecodeError should unwrap to its cause")
	}
}

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "dial", Addr: "10.0.1.2:4444", Err: io.EOF, Retryable: true},
			want: "dial 10.0.1.2:4444: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "write", Addr: "10.0.1.2:4444", Err: fmt.Errorf("broken pipe")},
			want: "write 10.0.1.2:4444: broken pipe",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSSHError_Format(t *testing.T) {
	err := WrapSSH("handshake", "bastion.example.com", 22, fmt.Errorf("connection refused"))
	want := "ssh handshake bastion.example.com:22: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !stderrors.Is(err, err.Err) {
		t.Error("should unwrap to inner error")
	}
}

func TestConfigError_Format(t *testing.T) {
	err := ConfigError{
		Field:   "pin",
		Value:   "12a456",
		Message: "must be 6 digits",
		Hint:    "the PIN is shown by the server at startup",
	}
	want := "config: --pin=12a456: must be 6 digits\n  hint: the PIN is shown by the server at startup"
	if got := err.Error(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF}, false},
		{"refused dial", &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("refused")}, true},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrTimeout, ErrNotConnected, ErrNotRegistered, ErrClosed, ErrRequestPending,
		ErrCircuitOpen, ErrInvalidName, ErrColorRange, ErrTunnelClosed,
		ErrAuthFailed, ErrHostKeyMismatch,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && stderrors.Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
