package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the WHITEBOARD_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// syntax ("750ms") or a bare number of milliseconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty,
// well-formed env vars override the existing value.  Call it BEFORE CLI
// flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("WHITEBOARD_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("WHITEBOARD_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("WHITEBOARD_HTTP_PORT"); v > 0 {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("WHITEBOARD_PIN"); v != "" {
		cfg.PIN = v
	}
	if v := os.Getenv("WHITEBOARD_TRANSPORT"); v != "" {
		cfg.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("WHITEBOARD_BOARDS"); v != "" {
		cfg.Boards = SplitList(v)
	}
	if v := os.Getenv("WHITEBOARD_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("WHITEBOARD_BOARD"); v != "" {
		cfg.Board = v
	}
	if v := envDuration("WHITEBOARD_CONNECT_TIMEOUT"); v > 0 {
		cfg.ConnectTimeout = v
	}
	if v := envDuration("WHITEBOARD_REQUEST_TIMEOUT"); v > 0 {
		cfg.RequestTimeout = v
	}

	// SSH tunnel
	if v := os.Getenv("WHITEBOARD_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("WHITEBOARD_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("WHITEBOARD_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("WHITEBOARD_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("WHITEBOARD_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("WHITEBOARD_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("WHITEBOARD_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
