// Package client is the client half of the whiteboard synchronization
// layer.
//
// A Client owns one connection to the board server and three moving
// parts: a Sender that serializes every outbound line, a Listener that
// reads and dispatches every inbound line, and a Registry of Trackers
// that pairs each blocking request with its reply.  Request methods
// block for at most the request timeout.  Draw and switch are
// fire-and-forget.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"whiteboard/canvas"
	wberr "whiteboard/internal/errors"
	"whiteboard/internal/metrics"
	"whiteboard/internal/retry"
	"whiteboard/internal/session"
	"whiteboard/internal/transport"
	"whiteboard/protocol"
	"whiteboard/util"
)

// DefaultRequestTimeout bounds every request/reply round trip.
const DefaultRequestTimeout = 500 * time.Millisecond

// Surface is the local raster a client draws on.  *canvas.Surface
// implements it.
type Surface interface {
	Apply(cmd protocol.Command) error
	Clear()
}

// Options configures a Client.  The zero value is usable.
type Options struct {
	RequestTimeout time.Duration
	QueueSize      int
	Breaker        *retry.CircuitBreakerConfig
	Surface        Surface // default: a blank canvas.Surface of default size
	Logger         *util.Logger
	Metrics        *metrics.Collector
}

func (o *Options) defaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.Surface == nil {
		o.Surface = canvas.New(canvas.DefaultWidth, canvas.DefaultHeight)
	}
	if o.Logger == nil {
		o.Logger = util.NewLogger(0)
	}
}

// Client is one session with a board server.  All methods are safe for
// concurrent use.
type Client struct {
	opts     Options
	conn     transport.Conn
	state    *session.State
	registry *Registry
	sender   *Sender
	listener *Listener
	logger   *util.Logger
	metrics  *metrics.Collector

	// board orders board changes and local surface writes against the
	// listener's draws.
	board sync.Mutex

	// life is cancelled once the listener stops.
	life    context.Context
	endLife context.CancelFunc

	stopping atomic.Bool
	killOnce sync.Once
}

// New starts a client on an established connection.
func New(conn transport.Conn, opts Options) *Client {
	opts.defaults()
	logger := opts.Logger.With("client")
	c := &Client{
		opts:     opts,
		conn:     conn,
		state:    session.New(),
		registry: NewRegistry(),
		logger:   logger,
		metrics:  opts.Metrics,
	}
	c.life, c.endLife = context.WithCancel(context.Background())
	c.sender = NewSender(conn, opts.QueueSize, retry.NewCircuitBreaker(opts.Breaker),
		logger.With("sender"), opts.Metrics)
	c.listener = NewListener(conn, c.state, c.registry, opts.Surface, &c.board,
		logger.With("listener"), opts.Metrics)
	opts.Metrics.ConnectionOpened()
	go func() {
		c.listener.Run()
		c.endLife()
		opts.Metrics.ConnectionClosed()
	}()
	return c
}

// Dial connects to address with d, retrying refused connections with
// the connect backoff, and starts a client on the result.
func Dial(ctx context.Context, d transport.Dialer, address string, opts Options) (*Client, error) {
	opts.defaults()
	b := retry.ConnectBackoff()
	b.OnRetry = func(attempt int, wait time.Duration, err error) {
		opts.Metrics.ConnectRetry()
		opts.Logger.Verbose("connect attempt %d to %s failed (%v); retrying in %v",
			attempt, address, err, wait.Round(time.Millisecond))
	}
	var conn transport.Conn
	err := b.Do(ctx, func(int) error {
		var err error
		conn, err = d.Dial(ctx, address)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}
	opts.Logger.Verbose("connected to %s", conn.RemoteAddr())
	return New(conn, opts), nil
}

// State returns the live session state.
func (c *Client) State() *session.State { return c.state }

// Surface returns the surface draws are applied to.
func (c *Client) Surface() Surface { return c.opts.Surface }

// Done is closed once the connection is gone and the listener has
// stopped.
func (c *Client) Done() <-chan struct{} { return c.listener.Done() }

// ── requests ─────────────────────────────────────────────────────────

// CheckAndAddUser registers name on the server and joins board.  It
// reports true only when the server created the user and the session
// now has both a username and a board.
func (c *Client) CheckAndAddUser(ctx context.Context, name, board string) (bool, error) {
	line, err := protocol.CheckAndAddUser{User: name, Board: board}.Line()
	if err != nil {
		return false, err
	}
	msg, err := c.request(ctx, KeyCheckUser, line)
	if err != nil {
		return false, err
	}
	res, ok := msg.(protocol.CheckResult)
	return ok && res.Created && res.User == name && c.state.Registered(), nil
}

// ListBoards asks for the board list.  On timeout it returns the last
// list received along with ErrTimeout.
func (c *Client) ListBoards(ctx context.Context) ([]string, error) {
	msg, err := c.request(ctx, KeyBoards, protocol.KindBoards)
	if err != nil {
		return c.state.Boards(), err
	}
	return msg.(protocol.BoardsReply).Boards, nil
}

// CreateBoard asks the server to create a board.  A second CreateBoard
// for the same name while the first is outstanding fails at once with
// ErrRequestPending.
func (c *Client) CreateBoard(ctx context.Context, name string) (bool, error) {
	line, err := protocol.NewBoard{Name: name}.Line()
	if err != nil {
		return false, err
	}
	msg, err := c.request(ctx, NewBoardKey(name), line)
	if err != nil {
		return false, err
	}
	return msg.(protocol.NewBoardResult).Successful, nil
}

// ListUsers asks for the users on the current board.  On timeout it
// returns the last list received along with ErrTimeout.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	board := c.state.Board()
	if board == "" {
		return nil, wberr.ErrNotRegistered
	}
	line, err := protocol.UsersRequest{Board: board}.Line()
	if err != nil {
		return nil, err
	}
	msg, err := c.request(ctx, UsersKey(board), line)
	if err != nil {
		return c.state.Users(), err
	}
	return msg.(protocol.UsersReply).Users, nil
}

// request sends line and waits for the reply filed under k.
func (c *Client) request(ctx context.Context, k Key, line string) (protocol.Message, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, k, line)
}

func (c *Client) roundTrip(ctx context.Context, k Key, line string) (protocol.Message, error) {
	tr, err := c.registry.Acquire(k)
	if err != nil {
		return nil, err
	}
	defer c.registry.Release(k)

	// A dropped connection ends the wait early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.life, cancel)
	defer stop()

	if err := c.sender.Send(ctx, line); err != nil {
		return nil, c.waitErr(err)
	}
	msg, err := tr.Wait(ctx, c.opts.RequestTimeout)
	if err != nil {
		if errors.Is(err, wberr.ErrTimeout) {
			c.metrics.Timeout()
			c.logger.Verbose("%s: no reply within %v", k, c.opts.RequestTimeout)
		}
		return msg, c.waitErr(err)
	}
	return msg, nil
}

// waitErr reports ErrNotConnected for waits cut short by a disconnect.
func (c *Client) waitErr(err error) error {
	if errors.Is(err, context.Canceled) && !c.state.Connected() {
		return wberr.ErrNotConnected
	}
	return err
}

func (c *Client) usable() error {
	if c.stopping.Load() {
		return wberr.ErrClosed
	}
	if !c.state.Connected() {
		return wberr.ErrNotConnected
	}
	return nil
}

// ── fire-and-forget ──────────────────────────────────────────────────

// SwitchBoard moves this user to board name.  The surface is cleared
// and the current board changed before the switch goes out, so the
// server's replay of the new board lands on a blank surface and is not
// discarded as foreign.
func (c *Client) SwitchBoard(name string) error {
	if err := c.usable(); err != nil {
		return err
	}
	if !c.state.Registered() {
		return wberr.ErrNotRegistered
	}
	c.board.Lock()
	defer c.board.Unlock()
	line, err := protocol.Switch{User: c.state.Username(), From: c.state.Board(), To: name}.Line()
	if err != nil {
		return err
	}
	prev := c.state.SetBoard(name)
	c.opts.Surface.Clear()
	c.logger.Verbose("switching %s → %s", prev, name)
	return c.sender.Post(line)
}

// SendDraw applies cmd locally, then sends it to the current board.  The
// server echoes it back, and applying it again leaves the surface
// unchanged.
func (c *Client) SendDraw(cmd protocol.Command) error {
	if err := c.usable(); err != nil {
		return err
	}
	if !c.state.Registered() {
		return wberr.ErrNotRegistered
	}
	c.board.Lock()
	defer c.board.Unlock()
	line, err := protocol.Draw{Board: c.state.Board(), Command: cmd}.Line()
	if err != nil {
		return err
	}
	if err := c.opts.Surface.Apply(cmd); err != nil {
		return err
	}
	return c.sender.Post(line)
}

// DrawSegment draws a segment with the current pen: the selected color
// and width, or the background color while erasing.
func (c *Client) DrawSegment(x1, y1, x2, y2 int) error {
	col, w := c.state.Pen(canvas.Background)
	return c.SendDraw(protocol.DrawLineSegment{X1: x1, Y1: y1, X2: x2, Y2: y2, Color: col, Width: w})
}

// ClearBoard wipes the current board for everyone on it.
func (c *Client) ClearBoard() error {
	return c.SendDraw(protocol.Clear{})
}

// ── pen ──────────────────────────────────────────────────────────────

// SetColor selects the pen color.  Colors that cannot be encoded on the
// wire are refused with ErrColorRange.
func (c *Client) SetColor(col protocol.Color) error { return c.state.SetColor(col) }

// SetWidth selects the pen width, which must be positive and finite.
func (c *Client) SetWidth(w float32) error { return c.state.SetWidth(w) }

func (c *Client) SetErasing(on bool) { c.state.SetErasing(on) }

// ── shutdown ─────────────────────────────────────────────────────────

// Exit announces a graceful disconnect, waits for the acknowledgment and
// closes the connection whether or not the ack arrived.  Calls after
// the first return ErrClosed.
func (c *Client) Exit(ctx context.Context) error {
	err := wberr.ErrClosed
	c.killOnce.Do(func() {
		c.stopping.Store(true)
		err = c.goodbye(ctx)
		c.shutdown()
	})
	return err
}

// Kill tears the client down.  If a user is registered it first tries
// the exit round trip, bounded by the request timeout.  Kill is
// idempotent and returns once the listener and writer have stopped.
func (c *Client) Kill() {
	c.killOnce.Do(func() {
		c.stopping.Store(true)
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
		defer cancel()
		if err := c.goodbye(ctx); err != nil {
			c.logger.Verbose("exit: %v", err)
		}
		c.shutdown()
	})
	<-c.listener.Done()
}

func (c *Client) goodbye(ctx context.Context) error {
	if !c.state.Connected() || !c.state.Registered() {
		return nil
	}
	line, err := protocol.Exit{User: c.state.Username()}.Line()
	if err != nil {
		return err
	}
	_, err = c.roundTrip(ctx, KeyExit, line)
	return err
}

func (c *Client) shutdown() {
	c.sender.Close()
	if err := c.conn.Close(); err != nil && !util.IsClosed(err) {
		c.logger.Debug("close: %v", err)
	}
	<-c.listener.Done()
}
