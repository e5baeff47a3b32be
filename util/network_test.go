package util

import (
	"net"
	"testing"
)

func TestFormatAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"10.0.1.2", 4444, "10.0.1.2:4444"},
		{"::1", 4444, "[::1]:4444"},
		{"board.local", 80, "board.local:80"},
	}
	for _, tt := range tests {
		if got := FormatAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("FormatAddr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if port < 1 || port > 65535 {
		t.Errorf("port %d out of range", port)
	}
}

func TestLocalIPv4(t *testing.T) {
	ip := net.ParseIP(LocalIPv4())
	if ip == nil || ip.To4() == nil {
		t.Fatalf("LocalIPv4 returned a non-IPv4 value")
	}
}

func TestIsVirtualIface(t *testing.T) {
	for name, want := range map[string]bool{
		"eth0":            false,
		"wlan0":           false,
		"vmnet8":          true,
		"VirtualBox Host": true,
		"docker0":         true,
		"en0":             false,
	} {
		if got := isVirtualIface(name); got != want {
			t.Errorf("isVirtualIface(%q) = %v, want %v", name, got, want)
		}
	}
}
