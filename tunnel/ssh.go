package tunnel

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	wberr "whiteboard/internal/errors"
	"whiteboard/util"
)

// SSHConfig holds everything needed to dial an SSH gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// KeepAlive is the interval between keepalive@openssh.com probes.
	// A probe that fails marks the tunnel dead.  Zero disables probing.
	KeepAlive time.Duration

	// Prompt reads a secret (password or key passphrase) from the user.
	// Nil reads from the controlling terminal.
	Prompt func(prompt string) ([]byte, error)
}

// Addr returns the gateway's host:port.
func (c *SSHConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SSHTunnel implements Tunnel over one ssh.Client.
type SSHTunnel struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.RWMutex
	client *ssh.Client
	alive  bool
	done   chan struct{} // closed by Close; stops keepalive
}

// NewSSHTunnel creates a tunnel that is ready to Connect.
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 10 * time.Second
	}
	return &SSHTunnel{config: cfg, logger: logger.With("tunnel")}
}

// Connect dials the gateway and completes the SSH handshake.  ctx bounds
// the TCP dial and the handshake.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	cfg := t.config
	authMethods, err := BuildAuthMethods(cfg)
	if err != nil {
		return wberr.WrapSSH("auth", cfg.Host, cfg.Port, fmt.Errorf("%w: %v", wberr.ErrAuthFailed, err))
	}
	hkCallback, err := hostKeyCallback(cfg)
	if err != nil {
		return wberr.WrapSSH("hostkey", cfg.Host, cfg.Port, err)
	}

	addr := cfg.Addr()
	t.logger.Debug("dialing %s as %s", addr, cfg.User)

	dialer := net.Dialer{Timeout: cfg.ConnTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return wberr.Wrap("dial", addr, err)
	}

	// ssh.NewClientConn has no context; bound it with a deadline and
	// unblock it on cancellation.
	deadline := time.Now().Add(cfg.ConnTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = tcpConn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = tcpConn.SetDeadline(time.Unix(1, 0)) })

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         cfg.ConnTimeout,
	})
	stop()
	if err != nil {
		tcpConn.Close()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return wberr.WrapSSH("handshake", cfg.Host, cfg.Port, err)
	}
	_ = tcpConn.SetDeadline(time.Time{})

	client := ssh.NewClient(sshConn, chans, reqs)
	done := make(chan struct{})

	t.mu.Lock()
	t.client = client
	t.alive = true
	t.done = done
	t.mu.Unlock()

	go t.monitor(client)
	if cfg.KeepAlive > 0 {
		go t.keepalive(client, cfg.KeepAlive, done)
	}
	t.logger.Verbose("connected to %s", addr)
	return nil
}

// Dial forwards a connection through the tunnel.
func (t *SSHTunnel) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	t.mu.RLock()
	client, alive := t.client, t.alive
	t.mu.RUnlock()

	if !alive || client == nil {
		return nil, wberr.ErrTunnelClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.logger.Debug("forwarding %s %s", network, address)
	conn, err := client.Dial(network, address)
	if err != nil {
		return nil, wberr.Wrap("dial", address, fmt.Errorf("via %s: %w", t.config.Addr(), err))
	}
	return conn, nil
}

// Close shuts down the SSH connection.  It is safe to call more than
// once.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alive = false
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// IsAlive reports whether the tunnel is still connected.
func (t *SSHTunnel) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alive
}

// monitor blocks until the SSH connection ends and clears the alive
// flag.
func (t *SSHTunnel) monitor(client *ssh.Client) {
	err := client.Wait()
	t.markDead(client)
	if err != nil {
		t.logger.Debug("closed: %v", err)
	} else {
		t.logger.Debug("closed")
	}
}

// keepalive probes the gateway until done is closed or a probe fails.
func (t *SSHTunnel) keepalive(client *ssh.Client, every time.Duration, done <-chan struct{}) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				t.logger.Warn("keepalive to %s failed: %v", t.config.Addr(), err)
				t.markDead(client)
				client.Close()
				return
			}
		}
	}
}

func (t *SSHTunnel) markDead(client *ssh.Client) {
	t.mu.Lock()
	if t.client == client {
		t.alive = false
	}
	t.mu.Unlock()
}
