// Package server is the board authority: it owns every board, its
// command log and the set of registered users, and fans draw commands
// out to the clients on each board.
//
// Clients reach it over plain TCP (one protocol line per text line) or
// over a websocket on the HTTP front (one line per text message).  Both
// transports feed the same Authority.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"whiteboard/internal/metrics"
	"whiteboard/internal/transport"
	"whiteboard/protocol"
	"whiteboard/util"
)

// Options configures a Server.
type Options struct {
	Boards       []string      // initial boards; DefaultBoard when empty
	OutboxSize   int           // per-connection broadcast backlog
	WriteTimeout time.Duration // bound on each line written to a client
	Logger       *util.Logger
	Metrics      *metrics.Collector
}

// Server accepts client connections and serves the line protocol
// against one Authority.
type Server struct {
	opts    Options
	auth    *Authority
	logger  *util.Logger
	metrics *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a server with its initial boards created.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	logger := opts.Logger.With("server")
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:    opts,
		auth:    NewAuthority(opts.Boards, logger),
		logger:  logger,
		metrics: opts.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Authority exposes the server state for inspection.
func (s *Server) Authority() *Authority { return s.auth }

// Metrics returns the collector the server counts into; it may be nil.
func (s *Server) Metrics() *metrics.Collector { return s.metrics }

// Serve accepts TCP connections on ln until ctx is cancelled or Close
// is called.  Each connection is served on its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	s.logger.Verbose("listening on %s (tcp)", ln.Addr())

	// Shut the listener down when either context ends.
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	stopServer := context.AfterFunc(s.ctx, func() { ln.Close() })
	defer stopServer()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.logger.Verbose("connection from %s", nc.RemoteAddr())
		if tc, ok := nc.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(transport.NewStreamConn(nc, s.opts.WriteTimeout))
		}()
	}
}

// ServeConn runs the protocol on conn until the client exits, the
// connection fails or the server is closed.  It owns conn and closes it.
func (s *Server) ServeConn(conn transport.Conn) {
	p := newPeer(conn, s.opts.OutboxSize, s.logger, s.metrics)
	s.metrics.ConnectionOpened()
	p.logger.Verbose("serving %s", conn.RemoteAddr())

	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer func() {
		stop()
		s.auth.leave(p)
		p.finish()
		s.metrics.ConnectionClosed()
		p.logger.Verbose("closed %s", conn.RemoteAddr())
	}()

	for {
		line, err := conn.ReadLine()
		if err != nil {
			if !util.IsClosed(err) {
				p.logger.Warn("read: %v", err)
				s.metrics.RecordError(err.Error())
			}
			return
		}
		s.metrics.LineReceived()
		p.logger.Debug("← %s", line)

		msg, err := protocol.ParseRequest(line)
		if err != nil {
			p.logger.Warn("%v", err)
			s.metrics.DecodeFailed(err.Error())
			continue
		}
		if s.auth.handle(p, msg) {
			return
		}
	}
}

// Close disconnects every client and waits for the TCP connection
// goroutines to finish.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}
