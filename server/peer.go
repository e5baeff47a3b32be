package server

import (
	"sync"

	"github.com/google/uuid"

	"whiteboard/internal/metrics"
	"whiteboard/internal/transport"
	"whiteboard/util"
)

// DefaultOutboxSize is the number of queued broadcasts a connection may
// fall behind by before further broadcasts to it are dropped.
const DefaultOutboxSize = 256

// peer is one client connection.  Replies and replays are always
// queued; broadcasts are dropped once the outbox holds limit lines, so a
// slow client only hurts itself.
type peer struct {
	id     string
	conn   transport.Conn
	logger *util.Logger
	m      *metrics.Collector

	// user and board are guarded by Authority.mu.
	user  string
	board string

	mu       sync.Mutex
	queue    []string
	limit    int
	draining bool // no more lines accepted; close after flushing
	wake     chan struct{}
	done     chan struct{}
}

func newPeer(conn transport.Conn, limit int, logger *util.Logger, m *metrics.Collector) *peer {
	if limit <= 0 {
		limit = DefaultOutboxSize
	}
	id := uuid.NewString()
	p := &peer{
		id:     id,
		conn:   conn,
		logger: logger.With(id[:8]),
		m:      m,
		limit:  limit,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go p.writeLoop()
	return p
}

// reply queues a line the client is waiting for.
func (p *peer) reply(line string) bool { return p.push(line, true) }

// broadcast queues a line unless the outbox is full.
func (p *peer) broadcast(line string) bool {
	if p.push(line, false) {
		return true
	}
	p.m.BroadcastDropped()
	p.logger.Warn("outbox full, dropped %q", line)
	return false
}

func (p *peer) push(line string, essential bool) bool {
	p.mu.Lock()
	if p.draining || (!essential && len(p.queue) >= p.limit) {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, line)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// finish stops accepting lines, flushes what is queued and then closes
// the connection.  It returns once the writer has exited.
func (p *peer) finish() {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
	<-p.done
}

func (p *peer) take() (lines []string, last bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines, p.queue = p.queue, nil
	return lines, p.draining
}

func (p *peer) writeLoop() {
	defer close(p.done)
	defer p.conn.Close()

	broken := false
	for range p.wake {
		lines, last := p.take()
		for _, line := range lines {
			if broken {
				break
			}
			if err := p.conn.WriteLine(line); err != nil {
				if !util.IsClosed(err) {
					p.logger.Warn("write: %v", err)
					p.m.RecordError(err.Error())
				}
				// A timed-out write leaves the read side open, so close
				// the connection to end the reader and release the user.
				// Later lines are discarded.
				_ = p.conn.Close()
				broken = true
				break
			}
			p.m.LineSent()
			p.logger.Debug("→ %s", line)
		}
		if last {
			return
		}
	}
}
