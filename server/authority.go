package server

import (
	"sort"
	"sync"

	"whiteboard/protocol"
	"whiteboard/util"
)

// DefaultBoard is created at startup when no initial boards are given.
const DefaultBoard = "default"

type board struct {
	name  string
	log   []protocol.Command
	peers map[*peer]struct{}
}

// Authority is the single source of truth for boards, their command
// logs and the registered users.  Every check-then-act happens under one
// lock, and replies, replays and broadcasts are queued while it is held,
// so each client observes the same order the authority applied.
type Authority struct {
	mu     sync.Mutex
	order  []string
	boards map[string]*board
	users  map[string]*peer
	logger *util.Logger
}

// NewAuthority creates the given boards in order.  Duplicate and
// invalid names are skipped.  With no usable names it creates
// DefaultBoard.
func NewAuthority(initial []string, logger *util.Logger) *Authority {
	a := &Authority{
		boards: make(map[string]*board),
		users:  make(map[string]*peer),
		logger: logger,
	}
	for _, name := range initial {
		if protocol.ValidateName(name) != nil {
			logger.Warn("skipping invalid board name %q", name)
			continue
		}
		a.addBoardLocked(name)
	}
	if len(a.order) == 0 {
		a.addBoardLocked(DefaultBoard)
	}
	return a
}

func (a *Authority) addBoardLocked(name string) bool {
	if _, ok := a.boards[name]; ok {
		return false
	}
	a.boards[name] = &board{name: name, peers: make(map[*peer]struct{})}
	a.order = append(a.order, name)
	return true
}

// ── queries ──────────────────────────────────────────────────────────

// Boards returns board names in creation order.
func (a *Authority) Boards() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

// Users returns the sorted usernames on board.  An unknown board has no
// users.
func (a *Authority) Users(board string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usersLocked(board)
}

func (a *Authority) usersLocked(name string) []string {
	b, ok := a.boards[name]
	if !ok {
		return []string{}
	}
	users := make([]string, 0, len(b.peers))
	for p := range b.peers {
		users = append(users, p.user)
	}
	sort.Strings(users)
	return users
}

// Log returns a copy of board's command log.
func (a *Authority) Log(board string) ([]protocol.Command, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.boards[board]
	if !ok {
		return nil, false
	}
	return append([]protocol.Command(nil), b.log...), true
}

// ── request handling ─────────────────────────────────────────────────

// handle applies one client request.  It reports true when the
// connection should be closed once its outbox is flushed.
func (a *Authority) handle(p *peer, msg protocol.Message) (closeAfter bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch m := msg.(type) {
	case protocol.CheckAndAddUser:
		a.checkAndAddUserLocked(p, m)
	case protocol.NewBoard:
		created := a.addBoardLocked(m.Name)
		if created {
			p.logger.Verbose("created board %s", m.Name)
		}
		send(p, protocol.NewBoardResult{Name: m.Name, Successful: created})
	case protocol.BoardsRequest:
		send(p, protocol.BoardsReply{Boards: append([]string(nil), a.order...)})
	case protocol.UsersRequest:
		send(p, protocol.UsersReply{Board: m.Board, Users: a.usersLocked(m.Board)})
	case protocol.Switch:
		a.switchLocked(p, m)
	case protocol.Draw:
		a.drawLocked(p, m)
	case protocol.Exit:
		if m.User != p.user {
			p.logger.Warn("exit for %q from connection registered as %q", m.User, p.user)
		}
		a.leaveLocked(p)
		send(p, protocol.ExitAck{User: m.User})
		return true
	}
	return false
}

func (a *Authority) checkAndAddUserLocked(p *peer, m protocol.CheckAndAddUser) {
	b, boardOK := a.boards[m.Board]
	_, taken := a.users[m.User]
	created := boardOK && !taken && p.user == ""
	send(p, protocol.CheckResult{User: m.User, Board: m.Board, Created: created})
	if !created {
		p.logger.Verbose("refused user %s on %s (board exists: %v, name taken: %v)",
			m.User, m.Board, boardOK, taken)
		return
	}
	a.users[m.User] = p
	p.user = m.User
	a.joinLocked(p, b)
	p.logger.Info("%s joined %s", m.User, m.Board)
}

func (a *Authority) switchLocked(p *peer, m protocol.Switch) {
	if p.user == "" || m.User != p.user {
		p.logger.Warn("switch for %q from connection registered as %q", m.User, p.user)
		return
	}
	to, ok := a.boards[m.To]
	if !ok {
		p.logger.Warn("%s cannot switch to unknown board %s", p.user, m.To)
		return
	}
	if from, ok := a.boards[p.board]; ok {
		delete(from.peers, p)
	}
	a.joinLocked(p, to)
	p.logger.Verbose("%s switched %s → %s", p.user, m.From, m.To)
}

// joinLocked puts p on b and replays b's log to it.
func (a *Authority) joinLocked(p *peer, b *board) {
	p.board = b.name
	b.peers[p] = struct{}{}
	for _, cmd := range b.log {
		send(p, protocol.Draw{Board: b.name, Command: cmd})
	}
}

func (a *Authority) drawLocked(p *peer, m protocol.Draw) {
	if p.user == "" {
		p.logger.Warn("draw from unregistered connection dropped")
		return
	}
	b, ok := a.boards[m.Board]
	if !ok {
		p.logger.Warn("draw for unknown board %s", m.Board)
		return
	}
	if _, ok := m.Command.(protocol.Clear); ok {
		b.log = nil
	} else {
		b.log = append(b.log, m.Command)
	}
	line, err := m.Line()
	if err != nil {
		p.logger.Warn("re-encode draw: %v", err)
		return
	}
	for q := range b.peers {
		q.broadcast(line)
	}
}

// leave forgets p's user, if any.  It is safe to call more than once.
func (a *Authority) leave(p *peer) {
	a.mu.Lock()
	a.leaveLocked(p)
	a.mu.Unlock()
}

func (a *Authority) leaveLocked(p *peer) {
	if b, ok := a.boards[p.board]; ok {
		delete(b.peers, p)
	}
	if p.user != "" && a.users[p.user] == p {
		delete(a.users, p.user)
		p.logger.Info("%s left", p.user)
	}
	p.user, p.board = "", ""
}

func send(p *peer, m protocol.Message) {
	line, err := m.Line()
	if err != nil {
		p.logger.Warn("encode %s reply: %v", m.Kind(), err)
		return
	}
	p.reply(line)
}
