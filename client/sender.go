package client

import (
	"context"
	"errors"
	"sync"

	wberr "whiteboard/internal/errors"
	"whiteboard/internal/metrics"
	"whiteboard/internal/retry"
	"whiteboard/internal/transport"
	"whiteboard/util"
)

// DefaultQueueSize is the number of lines the sender buffers before
// Post and Send block.
const DefaultQueueSize = 256

type outbound struct {
	line   string
	result chan error // nil for Post
}

// Sender serializes all writes to a connection through one goroutine.
// Lines are written in the order they were queued and never interleave.
type Sender struct {
	conn    transport.Conn
	queue   chan outbound
	breaker *retry.CircuitBreaker
	logger  *util.Logger
	metrics *metrics.Collector

	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSender starts the writer goroutine for conn.
func NewSender(conn transport.Conn, queueSize int, breaker *retry.CircuitBreaker,
	logger *util.Logger, m *metrics.Collector) *Sender {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if breaker == nil {
		breaker = retry.NewCircuitBreaker(nil)
	}
	s := &Sender{
		conn:    conn,
		queue:   make(chan outbound, queueSize),
		breaker: breaker,
		logger:  logger,
		metrics: m,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Send queues line and waits until it has been written.  The write error,
// if any, is returned to the caller.
func (s *Sender) Send(ctx context.Context, line string) error {
	res := make(chan error, 1)
	if err := s.enqueue(ctx, outbound{line: line, result: res}); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-s.done:
		// The writer may have finished our line just before exiting.
		select {
		case err := <-res:
			return err
		default:
			return wberr.ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues line without waiting for the write.  Write failures are
// logged and counted.  Post blocks only while the queue is full.
func (s *Sender) Post(line string) error {
	return s.enqueue(context.Background(), outbound{line: line})
}

func (s *Sender) enqueue(ctx context.Context, m outbound) error {
	select {
	case <-s.closing:
		return wberr.ErrClosed
	default:
	}
	select {
	case s.queue <- m:
		return nil
	case <-s.closing:
		return wberr.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting lines, writes whatever is already queued and
// waits for the writer to exit.  It does not close the connection.
func (s *Sender) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
	<-s.done
}

// Done is closed when the writer goroutine has exited.
func (s *Sender) Done() <-chan struct{} { return s.done }

func (s *Sender) run() {
	defer close(s.done)
	for {
		select {
		case m := <-s.queue:
			s.write(m)
		case <-s.closing:
			for {
				select {
				case m := <-s.queue:
					s.write(m)
				default:
					return
				}
			}
		}
	}
}

func (s *Sender) write(m outbound) {
	err := s.breaker.Execute(func() error { return s.conn.WriteLine(m.line) })
	if err == nil {
		s.metrics.LineSent()
		s.logger.Debug("→ %s", m.line)
	} else if errors.Is(err, wberr.ErrCircuitOpen) {
		s.logger.Debug("dropped %q: %v", m.line, err)
	} else {
		s.metrics.RecordError(err.Error())
		s.logger.Warn("write %q: %v", m.line, err)
	}
	if m.result != nil {
		m.result <- err
	}
}
