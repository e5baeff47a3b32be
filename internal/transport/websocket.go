package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	wberr "whiteboard/internal/errors"
	"whiteboard/util"
)

// WSConn carries one protocol line per websocket text message.
type WSConn struct {
	ws     *websocket.Conn
	remote string

	wmu          sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewWSConn wraps an established websocket.  The server side passes the
// connection returned by websocket.Upgrader.Upgrade.
func NewWSConn(ws *websocket.Conn, writeTimeout time.Duration) *WSConn {
	ws.SetReadLimit(MaxLineLength)
	return &WSConn{ws: ws, remote: ws.RemoteAddr().String(), writeTimeout: writeTimeout}
}

// ReadLine returns the next text message.  A normal close from the peer
// reads as io.EOF.  Binary messages are skipped.
func (c *WSConn) ReadLine() (string, error) {
	for {
		mt, p, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure,
				websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return "", io.EOF
			}
			if errors.Is(err, websocket.ErrReadLimit) {
				return "", ErrLineTooLong
			}
			return "", err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return util.TrimLine(string(p)), nil
	}
}

func (c *WSConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(line))
}

// Close sends a close frame (best effort) and closes the socket.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *WSConn) RemoteAddr() string { return c.remote }

// ── dialer ───────────────────────────────────────────────────────────

// WSPath is the endpoint the board server exposes for websocket clients.
const WSPath = "/ws"

// WSDialer connects to the server's websocket endpoint.
type WSDialer struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
}

// Dial accepts either a full ws:// or wss:// URL or a bare host:port, in
// which case ws://host:port/ws is used.
func (d *WSDialer) Dial(ctx context.Context, address string) (Conn, error) {
	u, err := WSURL(address)
	if err != nil {
		return nil, err
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ws, resp, err := dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, wberr.Wrap("dial", u, err)
	}
	return NewWSConn(ws, d.WriteTimeout), nil
}

// Close is a no-op.
func (d *WSDialer) Close() error { return nil }

// WSURL normalises address into a websocket URL.
func WSURL(address string) (string, error) {
	if !strings.Contains(address, "://") {
		return "ws://" + address + WSPath, nil
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("websocket address %q: %w", address, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("websocket address %q: unsupported scheme %q", address, u.Scheme)
	}
	if u.Path == "" {
		u.Path = WSPath
	}
	return u.String(), nil
}
