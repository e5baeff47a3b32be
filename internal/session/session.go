// Package session holds the client-side view of one connection's
// lifecycle: who we are, which board we are on, the last lists the
// server sent, and the local pen settings.
//
// State is written by the inbound listener (replies) and by local UI
// calls, and read by everything else, so every accessor takes the lock
// and slice getters return copies.
package session

import (
	"sync"

	"whiteboard/protocol"
)

// Default pen settings.
const (
	DefaultColor = protocol.Black
	DefaultWidth = float32(10)
)

// State is the mutable client session.  The zero value is not ready for
// use; call New.
type State struct {
	mu sync.RWMutex

	username  string
	board     string
	boards    []string
	users     []string
	erasing   bool
	color     protocol.Color
	width     float32
	connected bool
}

// New returns a connected session with default pen settings and no
// identity.
func New() *State {
	return &State{
		color:     DefaultColor,
		width:     DefaultWidth,
		connected: true,
	}
}

// Snapshot is a consistent copy of State.
type Snapshot struct {
	Username  string
	Board     string
	Boards    []string
	Users     []string
	Erasing   bool
	Color     protocol.Color
	Width     float32
	Connected bool
}

// Snapshot returns a copy of every field taken under one lock.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Username:  s.username,
		Board:     s.board,
		Boards:    clone(s.boards),
		Users:     clone(s.users),
		Erasing:   s.erasing,
		Color:     s.color,
		Width:     s.width,
		Connected: s.connected,
	}
}

// ── identity ─────────────────────────────────────────────────────────

func (s *State) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *State) Board() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Register records the identity confirmed by a successful check reply.
func (s *State) Register(user, board string) {
	s.mu.Lock()
	s.username, s.board = user, board
	s.mu.Unlock()
}

// Registered reports whether both a username and a board are set.
func (s *State) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username != "" && s.board != ""
}

// SetBoard changes the current board and returns the previous one.
func (s *State) SetBoard(board string) (prev string) {
	s.mu.Lock()
	prev, s.board = s.board, board
	s.mu.Unlock()
	return prev
}

// ── server lists ─────────────────────────────────────────────────────

func (s *State) Boards() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.boards)
}

func (s *State) SetBoards(boards []string) {
	s.mu.Lock()
	s.boards = clone(boards)
	s.mu.Unlock()
}

func (s *State) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.users)
}

func (s *State) SetUsers(users []string) {
	s.mu.Lock()
	s.users = clone(users)
	s.mu.Unlock()
}

// ── pen ──────────────────────────────────────────────────────────────

// SetColor fails for colors that cannot be sent, leaving the pen as is.
func (s *State) SetColor(c protocol.Color) error {
	if _, err := protocol.EncodeColor(c); err != nil {
		return err
	}
	s.mu.Lock()
	s.color = c
	s.mu.Unlock()
	return nil
}

// SetWidth fails for widths that are not positive and finite.
func (s *State) SetWidth(w float32) error {
	if err := protocol.ValidWidth(w); err != nil {
		return err
	}
	s.mu.Lock()
	s.width = w
	s.mu.Unlock()
	return nil
}

func (s *State) SetErasing(on bool) {
	s.mu.Lock()
	s.erasing = on
	s.mu.Unlock()
}

// Pen returns the color and width the next stroke should use.  While
// erasing, the color is bg.
func (s *State) Pen(bg protocol.Color) (protocol.Color, float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.erasing {
		return bg, s.width
	}
	return s.color, s.width
}

// ── lifecycle ────────────────────────────────────────────────────────

func (s *State) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// MarkDisconnected records that the connection is gone.  It reports
// whether this call made the transition.
func (s *State) MarkDisconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.connected
	s.connected = false
	return was
}

func clone(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
