package transport

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// StreamConn frames lines over a net.Conn with "\n" terminators.  A
// trailing "\r" on inbound lines is dropped.
type StreamConn struct {
	conn    net.Conn
	scanner *bufio.Scanner

	wmu          sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewStreamConn wraps conn.  A positive writeTimeout bounds each
// WriteLine so a peer that stops reading cannot block the writer
// forever.
func NewStreamConn(conn net.Conn, writeTimeout time.Duration) *StreamConn {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), MaxLineLength)
	return &StreamConn{conn: conn, scanner: sc, writeTimeout: writeTimeout}
}

func (c *StreamConn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return c.scanner.Text(), nil
	}
	err := c.scanner.Err()
	switch {
	case err == nil:
		return "", io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return "", ErrLineTooLong
	}
	return "", err
}

func (c *StreamConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	_, err := c.conn.Write(buf)
	return err
}

func (c *StreamConn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.conn.Close() })
	return c.closeErr
}

func (c *StreamConn) RemoteAddr() string {
	if a := c.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return "unknown"
}
