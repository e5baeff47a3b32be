package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	wberr "whiteboard/internal/errors"
	"whiteboard/internal/metrics"
	"whiteboard/internal/retry"
	"whiteboard/util"
)

// recordConn is a transport.Conn that records writes and never has
// anything to read.
type recordConn struct {
	mu       sync.Mutex
	lines    []string
	writeErr error
	delay    time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

func newRecordConn() *recordConn { return &recordConn{closed: make(chan struct{})} }

func (c *recordConn) ReadLine() (string, error) {
	<-c.closed
	return "", io.EOF
}

func (c *recordConn) WriteLine(line string) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.lines = append(c.lines, line)
	return nil
}

func (c *recordConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *recordConn) RemoteAddr() string { return "record" }

func (c *recordConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func newTestSender(conn *recordConn, cfg *retry.CircuitBreakerConfig, m *metrics.Collector) *Sender {
	return NewSender(conn, 4, retry.NewCircuitBreaker(cfg), util.NewLogger(0), m)
}

func TestSenderPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := newRecordConn()
	m := metrics.New()
	s := newTestSender(conn, nil, m)

	var want []string
	for i := 0; i < 50; i++ {
		line := fmt.Sprintf("line%d", i)
		want = append(want, line)
		require.NoError(t, s.Post(line))
	}
	s.Close()

	assert.Equal(t, want, conn.written())
	assert.EqualValues(t, 50, m.Snapshot().LinesOut)
}

func TestSenderConcurrentSendsAllWritten(t *testing.T) {
	conn := newRecordConn()
	s := newTestSender(conn, nil, nil)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Send(context.Background(), fmt.Sprintf("l%d", i)))
		}(i)
	}
	wg.Wait()
	assert.Len(t, conn.written(), 20)
}

func TestSenderSendReturnsWriteError(t *testing.T) {
	conn := newRecordConn()
	conn.writeErr = io.ErrClosedPipe
	m := metrics.New()
	s := newTestSender(conn, &retry.CircuitBreakerConfig{MaxFailures: 10}, m)
	defer s.Close()

	err := s.Send(context.Background(), "boards")
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.EqualValues(t, 1, m.Snapshot().ErrorsTotal)
}

func TestSenderClosedRejects(t *testing.T) {
	s := newTestSender(newRecordConn(), nil, nil)
	s.Close()
	s.Close()

	assert.ErrorIs(t, s.Post("boards"), wberr.ErrClosed)
	assert.ErrorIs(t, s.Send(context.Background(), "boards"), wberr.ErrClosed)
	select {
	case <-s.Done():
	default:
		t.Fatal("writer still running after Close")
	}
}

func TestSenderBreakerOpens(t *testing.T) {
	conn := newRecordConn()
	conn.writeErr = errors.New("broken pipe")
	s := newTestSender(conn, &retry.CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute}, nil)
	defer s.Close()

	ctx := context.Background()
	assert.EqualError(t, s.Send(ctx, "a"), "broken pipe")
	assert.EqualError(t, s.Send(ctx, "b"), "broken pipe")
	assert.ErrorIs(t, s.Send(ctx, "c"), wberr.ErrCircuitOpen)
}

func TestSenderSendHonoursContext(t *testing.T) {
	conn := newRecordConn()
	conn.delay = 200 * time.Millisecond
	s := newTestSender(conn, nil, nil)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Send(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
