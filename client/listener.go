package client

import (
	"sync"

	"whiteboard/internal/metrics"
	"whiteboard/internal/session"
	"whiteboard/internal/transport"
	"whiteboard/protocol"
	"whiteboard/util"
)

// Listener reads server lines until the connection ends and dispatches
// each one: replies update the session and wake their requester, draw
// broadcasts for the current board go to the surface.
type Listener struct {
	conn     transport.Conn
	state    *session.State
	registry *Registry
	surface  Surface
	boardMu  *sync.Mutex // held across the board check and the apply
	logger   *util.Logger
	metrics  *metrics.Collector

	done chan struct{}
}

// NewListener prepares a listener.  Call Run (usually in its own
// goroutine) to start reading.  boardMu must be the lock the caller
// holds while changing the current board or writing the surface.
func NewListener(conn transport.Conn, state *session.State, reg *Registry, surface Surface,
	boardMu *sync.Mutex, logger *util.Logger, m *metrics.Collector) *Listener {
	return &Listener{
		conn:     conn,
		state:    state,
		registry: reg,
		surface:  surface,
		boardMu:  boardMu,
		logger:   logger,
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (l *Listener) Done() <-chan struct{} { return l.done }

// Run reads until EOF or a read error, then marks the session
// disconnected.  Malformed lines are logged and skipped.
func (l *Listener) Run() {
	defer close(l.done)
	defer l.state.MarkDisconnected()

	for {
		line, err := l.conn.ReadLine()
		if err != nil {
			if util.IsClosed(err) {
				l.logger.Verbose("connection to %s closed", l.conn.RemoteAddr())
			} else {
				l.logger.Warn("read from %s: %v", l.conn.RemoteAddr(), err)
				l.metrics.RecordError(err.Error())
			}
			return
		}
		l.metrics.LineReceived()
		l.logger.Debug("← %s", line)
		l.dispatch(line)
	}
}

func (l *Listener) dispatch(line string) {
	msg, err := protocol.ParseReply(line)
	if err != nil {
		l.logger.Warn("%v", err)
		l.metrics.DecodeFailed(err.Error())
		return
	}

	switch m := msg.(type) {
	case protocol.CheckResult:
		if m.Created {
			l.state.Register(m.User, m.Board)
		}
		l.registry.Complete(KeyCheckUser, m)

	case protocol.NewBoardResult:
		if m.Successful {
			l.addBoard(m.Name)
		}
		l.registry.Complete(NewBoardKey(m.Name), m)

	case protocol.BoardsReply:
		l.state.SetBoards(m.Boards)
		l.registry.Complete(KeyBoards, m)

	case protocol.UsersReply:
		if m.Board == l.state.Board() {
			l.state.SetUsers(m.Users)
		}
		l.registry.Complete(UsersKey(m.Board), m)

	case protocol.ExitAck:
		l.registry.Complete(KeyExit, m)

	case protocol.Draw:
		l.draw(m)
	}
}

// draw applies m if it belongs to the current board.  A switch cannot
// slip in between the check and the apply.
func (l *Listener) draw(m protocol.Draw) {
	l.boardMu.Lock()
	defer l.boardMu.Unlock()
	if !m.AppliesTo(l.state.Board()) {
		l.logger.Debug("discarding draw for board %q", m.Board)
		return
	}
	if err := l.surface.Apply(m.Command); err != nil {
		l.logger.Warn("apply %s: %v", m.Command.Op(), err)
	}
}

func (l *Listener) addBoard(name string) {
	boards := l.state.Boards()
	for _, b := range boards {
		if b == name {
			return
		}
	}
	l.state.SetBoards(append(boards, name))
}
