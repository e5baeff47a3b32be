package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"whiteboard/config"
	"whiteboard/internal/metrics"
	"whiteboard/server"
	"whiteboard/util"
)

// shutdownGrace bounds how long the HTTP front waits for in-flight
// API requests on shutdown.
const shutdownGrace = 2 * time.Second

// ServeMode runs the board server: the line protocol on a TCP port and,
// optionally, the HTTP front with the websocket endpoint.
type ServeMode struct {
	Address      string // ":port" for the line protocol
	HTTPAddress  string // ":port" for the HTTP front; empty disables it
	Boards       []string
	OutboxSize   int
	WriteTimeout time.Duration
	Logger       *util.Logger
	Metrics      *metrics.Collector

	// Ready, when set, is called with the bound addresses once both
	// listeners are up.  httpAddr is empty without the HTTP front.
	Ready func(tcpAddr, httpAddr string)
}

// Run serves until ctx is cancelled, then disconnects every client.
func (m *ServeMode) Run(ctx context.Context) error {
	srv := server.New(server.Options{
		Boards:       m.Boards,
		OutboxSize:   m.OutboxSize,
		WriteTimeout: m.WriteTimeout,
		Logger:       m.Logger,
		Metrics:      m.Metrics,
	})
	defer srv.Close()

	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.Address, err)
	}

	var (
		httpSrv  *http.Server
		httpAddr string
		httpErr  = make(chan error, 1)
	)
	if m.HTTPAddress != "" {
		hl, err := net.Listen("tcp", m.HTTPAddress)
		if err != nil {
			ln.Close()
			return fmt.Errorf("listen on %s: %w", m.HTTPAddress, err)
		}
		httpAddr = hl.Addr().String()
		httpSrv = &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() { httpErr <- httpSrv.Serve(hl) }()
		m.Logger.Verbose("http front on %s", httpAddr)
	}

	m.announce(ln.Addr())
	if m.Ready != nil {
		m.Ready(ln.Addr().String(), httpAddr)
	}

	tcpErr := make(chan error, 1)
	go func() { tcpErr <- srv.Serve(ctx, ln) }()

	select {
	case <-ctx.Done():
	case err = <-tcpErr:
		tcpErr <- err
	case err = <-httpErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("http front: %w", err)
		}
	}

	if httpSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		_ = httpSrv.Shutdown(sctx)
		cancel()
	}
	srv.Close()
	if serveErr := <-tcpErr; err == nil {
		err = serveErr
	}
	m.Logger.Verbose("server stopped; %s", m.Metrics.JSON())
	return err
}

// announce tells users how to reach the server, including the PIN for
// clients on the same network.
func (m *ServeMode) announce(addr net.Addr) {
	port := 0
	if ta, ok := addr.(*net.TCPAddr); ok {
		port = ta.Port
	}
	ip := util.LocalIPv4()
	m.Logger.Info("serving boards on %s", util.FormatAddr(ip, port))
	if pin, err := config.PINFor(ip); err == nil {
		m.Logger.Info("connect with: whiteboard connect --pin %s -p %d", pin, port)
	}
}
