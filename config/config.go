// Package config defines the runtime configuration for whiteboard and
// provides helpers for deriving server addresses from PINs and parsing
// tunnel specifications.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	wberr "whiteboard/internal/errors"
)

// Config holds every tuneable for one whiteboard process, server or
// client.
type Config struct {
	// ── Mode ─────────────────────────────────────────────────────────
	Serve bool // run the board server instead of a client

	// ── Server ───────────────────────────────────────────────────────
	Port         int      // TCP port served (serve) or dialled (connect)
	HTTPPort     int      // HTTP/websocket front; 0 disables it
	Boards       []string // boards created at startup
	OutboxSize   int
	WriteTimeout time.Duration

	// ── Client ───────────────────────────────────────────────────────
	Host           string
	PIN            string // six digits, alternative to Host
	Transport      string // "tcp" or "ws"
	User           string // register on connect when set
	Board          string // board joined with User
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	CanvasWidth    int
	CanvasHeight   int

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw [user@]host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string
	KeepAlive      time.Duration

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		Boards:         []string{DefaultBoard},
		OutboxSize:     DefaultOutboxSize,
		WriteTimeout:   DefaultWriteTimeout,
		Transport:      DefaultTransport,
		Board:          DefaultBoard,
		ConnectTimeout: DefaultConnectTimeout,
		RequestTimeout: DefaultRequestTimeout,
		CanvasWidth:    DefaultCanvasWidth,
		CanvasHeight:   DefaultCanvasHeight,
		KeepAlive:      DefaultKeepAliveInterval,
	}
}

// ServerAddress is the host:port a client should dial.  A PIN, when
// set, takes precedence over Host and is resolved against localIP.
func (c *Config) ServerAddress(localIP string) (string, error) {
	if c.PIN != "" {
		host, err := PINAddress(localIP, c.PIN)
		if err != nil {
			return "", err
		}
		return net.JoinHostPort(host, strconv.Itoa(c.Port)), nil
	}
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port)), nil
}

// ── PIN ──────────────────────────────────────────────────────────────

// PINAddress maps a six-digit PIN onto the local /16: the first two
// octets come from localIP and the PIN supplies the last two, three
// digits each.  "192.168.5.7" with PIN "001042" gives "192.168.1.42".
func PINAddress(localIP, pin string) (string, error) {
	if len(pin) != PINLength || strings.Trim(pin, "0123456789") != "" {
		return "", fmt.Errorf("PIN %q must be %d digits", pin, PINLength)
	}
	third, _ := strconv.Atoi(pin[:3])
	fourth, _ := strconv.Atoi(pin[3:])
	if third > 255 || fourth > 255 {
		return "", fmt.Errorf("PIN %q does not name an address (each half must be ≤ 255)", pin)
	}
	ip := net.ParseIP(localIP).To4()
	if ip == nil {
		return "", fmt.Errorf("local address %q is not IPv4", localIP)
	}
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], third, fourth), nil
}

// PINFor is the inverse of PINAddress: the PIN clients on the same /16
// use to reach ip.
func PINFor(ip string) (string, error) {
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return "", fmt.Errorf("address %q is not IPv4", ip)
	}
	return fmt.Sprintf("%03d%03d", v4[2], v4[3]), nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the Tunnel* fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return err
	}
	c.TunnelEnabled = true
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.  The
// returned error is a *errors.ConfigError carrying a hint.
func (c *Config) Validate() error {
	if err := validPort("port", c.Port); err != nil {
		return err
	}
	if c.Serve {
		return c.validateServe()
	}
	return c.validateConnect()
}

func (c *Config) validateServe() error {
	if c.HTTPPort != 0 {
		if err := validPort("http", c.HTTPPort); err != nil {
			return err
		}
		if c.HTTPPort == c.Port {
			return &wberr.ConfigError{
				Field: "http", Value: c.HTTPPort,
				Message: "must differ from --port",
				Hint:    "the TCP listener already uses that port",
			}
		}
	}
	for _, b := range c.Boards {
		if b == "" || strings.ContainsAny(b, " \t\r\n") {
			return &wberr.ConfigError{
				Field: "boards", Value: b,
				Message: "board names must be non-empty and contain no whitespace",
				Hint:    "separate several boards with commas: --boards default,room1",
			}
		}
	}
	if c.TunnelEnabled {
		return &wberr.ConfigError{
			Field:   "tunnel",
			Message: "serving through an SSH tunnel is not supported",
			Hint:    "run the server on the gateway side and connect with -T instead",
		}
	}
	return nil
}

func (c *Config) validateConnect() error {
	if c.PIN != "" && c.Host != "" {
		return &wberr.ConfigError{
			Field: "pin", Value: c.PIN,
			Message: "--pin and a host are mutually exclusive",
			Hint:    "give either a host to dial or the six-digit PIN shown by the server",
		}
	}
	if c.PIN != "" {
		if _, err := PINAddress("10.0.0.1", c.PIN); err != nil {
			return &wberr.ConfigError{Field: "pin", Value: c.PIN, Message: err.Error(),
				Hint: "a PIN is six digits, e.g. 001042"}
		}
	}
	switch c.Transport {
	case "tcp":
	case "ws":
		if c.TunnelEnabled {
			return &wberr.ConfigError{
				Field: "transport", Value: c.Transport,
				Message: "websocket transport cannot run through the SSH tunnel",
				Hint:    "drop --ws, or drop -T and reach the HTTP front directly",
			}
		}
	default:
		return &wberr.ConfigError{
			Field: "transport", Value: c.Transport,
			Message: "unknown transport",
			Hint:    `use "tcp" or "ws"`,
		}
	}
	if c.RequestTimeout <= 0 {
		return &wberr.ConfigError{
			Field: "request-timeout", Value: c.RequestTimeout,
			Message: "must be positive",
			Hint:    "the default is " + DefaultRequestTimeout.String(),
		}
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return &wberr.ConfigError{
			Field:   "size",
			Value:   fmt.Sprintf("%dx%d", c.CanvasWidth, c.CanvasHeight),
			Message: "canvas dimensions must be positive",
		}
	}
	if c.User != "" && c.Board == "" {
		return &wberr.ConfigError{
			Field:   "board",
			Message: "a board is required to register a user",
			Hint:    "add --board " + DefaultBoard,
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &wberr.ConfigError{
			Field:   "tunnel",
			Message: "tunnel host is required",
			Hint:    "use -T [user@]host[:port]",
		}
	}
	return nil
}

func validPort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &wberr.ConfigError{
			Field: field, Value: port,
			Message: "port out of range 1-65535",
			Hint:    fmt.Sprintf("the default board server port is %d", DefaultPort),
		}
	}
	return nil
}
