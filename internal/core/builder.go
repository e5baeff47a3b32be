package core

import (
	"fmt"

	"whiteboard/canvas"
	"whiteboard/client"
	"whiteboard/config"
	"whiteboard/internal/metrics"
	"whiteboard/internal/transport"
	"whiteboard/tunnel"
	"whiteboard/util"
)

// Build constructs the appropriate Mode from the given configuration.
// cfg must already be validated.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Serve {
		return buildServe(cfg, logger), nil
	}
	return buildConnect(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger) *ServeMode {
	m := &ServeMode{
		Address:      fmt.Sprintf(":%d", cfg.Port),
		Boards:       cfg.Boards,
		OutboxSize:   cfg.OutboxSize,
		WriteTimeout: cfg.WriteTimeout,
		Logger:       logger,
		Metrics:      metrics.New(),
	}
	if cfg.HTTPPort > 0 {
		m.HTTPAddress = fmt.Sprintf(":%d", cfg.HTTPPort)
	}
	return m
}

func buildConnect(cfg *config.Config, logger *util.Logger) (*ConnectMode, error) {
	address, err := cfg.ServerAddress(util.LocalIPv4())
	if err != nil {
		return nil, err
	}
	return &ConnectMode{
		Dialer:  buildDialer(cfg, logger),
		Address: address,
		User:    cfg.User,
		Board:   cfg.Board,
		Options: client.Options{
			RequestTimeout: cfg.RequestTimeout,
			Surface:        canvas.New(cfg.CanvasWidth, cfg.CanvasHeight),
			Logger:         logger,
			Metrics:        metrics.New(),
		},
		Logger: logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.ConnectTimeout,
			KeepAlive:     cfg.KeepAlive,
		}, logger)
	}

	if cfg.Transport == "ws" {
		return &transport.WSDialer{Timeout: cfg.ConnectTimeout}
	}

	return &transport.TCPDialer{Timeout: cfg.ConnectTimeout}
}
