package protocol

import (
	"fmt"

	wberr "whiteboard/internal/errors"
)

// Message is one decoded protocol line.
type Message interface {
	// Kind returns the first token of the line.
	Kind() string
	// Line encodes the message, validating every name it carries.
	Line() (string, error)
}

// ── client → server ──────────────────────────────────────────────────

// CheckAndAddUser asks the server to register User (if the name is free)
// and place it on Board.
type CheckAndAddUser struct {
	User  string
	Board string
}

func (CheckAndAddUser) Kind() string { return KindCheckAndAddUser }
func (m CheckAndAddUser) Line() (string, error) {
	return Encode(KindCheckAndAddUser, m.User, m.Board)
}

// NewBoard asks the server to create a board called Name.
type NewBoard struct {
	Name string
}

func (NewBoard) Kind() string { return KindNewBoard }
func (m NewBoard) Line() (string, error) {
	return Encode(KindNewBoard, m.Name)
}

// BoardsRequest asks for the full board list.
type BoardsRequest struct{}

func (BoardsRequest) Kind() string          { return KindBoards }
func (BoardsRequest) Line() (string, error) { return KindBoards, nil }

// UsersRequest asks for the users currently on Board.
type UsersRequest struct {
	Board string
}

func (UsersRequest) Kind() string { return KindUsers }
func (m UsersRequest) Line() (string, error) {
	return Encode(KindUsers, m.Board)
}

// Switch moves User from board From to board To.
type Switch struct {
	User string
	From string
	To   string
}

func (Switch) Kind() string { return KindSwitch }
func (m Switch) Line() (string, error) {
	return Encode(KindSwitch, m.User, m.From, m.To)
}

// Exit announces a graceful disconnect.  The server acknowledges with
// the same line.
type Exit struct {
	User string
}

func (Exit) Kind() string { return KindExit }
func (m Exit) Line() (string, error) {
	return Encode(KindExit, m.User)
}

// ── both directions ──────────────────────────────────────────────────

// Draw carries a Command issued against Board.  Clients send it to the
// server, which rebroadcasts it to every client on that board.
type Draw struct {
	Board   string
	Command Command
}

func (Draw) Kind() string { return KindDraw }
func (m Draw) Line() (string, error) {
	toks, err := EncodeCommand(m.Command)
	if err != nil {
		return "", err
	}
	return Encode(KindDraw, append([]string{m.Board}, toks...)...)
}

// AppliesTo reports whether the command targets board.
func (m Draw) AppliesTo(board string) bool {
	return board != "" && m.Board == board
}

// ── server → client ──────────────────────────────────────────────────

// CheckResult answers CheckAndAddUser.
type CheckResult struct {
	User    string
	Board   string
	Created bool
}

func (CheckResult) Kind() string { return KindCheck }
func (m CheckResult) Line() (string, error) {
	return Encode(KindCheck, m.User, m.Board, formatBool(m.Created))
}

// NewBoardResult answers NewBoard.
type NewBoardResult struct {
	Name       string
	Successful bool
}

func (NewBoardResult) Kind() string { return KindNewBoard }
func (m NewBoardResult) Line() (string, error) {
	return Encode(KindNewBoard, m.Name, formatBool(m.Successful))
}

// BoardsReply lists every board on the server.
type BoardsReply struct {
	Boards []string
}

func (BoardsReply) Kind() string { return KindBoards }
func (m BoardsReply) Line() (string, error) {
	return Encode(KindBoards, m.Boards...)
}

// UsersReply lists the users on Board.  An empty board yields a line
// with no trailing tokens after the board name.
type UsersReply struct {
	Board string
	Users []string
}

func (UsersReply) Kind() string { return KindUsers }
func (m UsersReply) Line() (string, error) {
	return Encode(KindUsers, append([]string{m.Board}, m.Users...)...)
}

// ExitAck acknowledges Exit.
type ExitAck struct {
	User string
}

func (ExitAck) Kind() string { return KindExit }
func (m ExitAck) Line() (string, error) {
	return Encode(KindExit, m.User)
}

// ── decoding ─────────────────────────────────────────────────────────

// ParseRequest decodes a client → server line.
func ParseRequest(line string) (Message, error) {
	kind, f, err := Split(line)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindCheckAndAddUser:
		if err := arity(line, f, 2); err != nil {
			return nil, err
		}
		return CheckAndAddUser{User: f[0], Board: f[1]}, nil
	case KindNewBoard:
		if err := arity(line, f, 1); err != nil {
			return nil, err
		}
		return NewBoard{Name: f[0]}, nil
	case KindBoards:
		if err := arity(line, f, 0); err != nil {
			return nil, err
		}
		return BoardsRequest{}, nil
	case KindUsers:
		if err := arity(line, f, 1); err != nil {
			return nil, err
		}
		return UsersRequest{Board: f[0]}, nil
	case KindSwitch:
		if err := arity(line, f, 3); err != nil {
			return nil, err
		}
		return Switch{User: f[0], From: f[1], To: f[2]}, nil
	case KindDraw:
		return parseDraw(line, f)
	case KindExit:
		if err := arity(line, f, 1); err != nil {
			return nil, err
		}
		return Exit{User: f[0]}, nil
	}
	return nil, wberr.Decode(line, "unknown request kind", nil)
}

// ParseReply decodes a server → client line.
func ParseReply(line string) (Message, error) {
	kind, f, err := Split(line)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindCheck:
		if err := arity(line, f, 3); err != nil {
			return nil, err
		}
		created, err := parseBool(line, "created", f[2])
		if err != nil {
			return nil, err
		}
		return CheckResult{User: f[0], Board: f[1], Created: created}, nil
	case KindNewBoard:
		if err := arity(line, f, 2); err != nil {
			return nil, err
		}
		ok, err := parseBool(line, "successful", f[1])
		if err != nil {
			return nil, err
		}
		return NewBoardResult{Name: f[0], Successful: ok}, nil
	case KindBoards:
		return BoardsReply{Boards: f}, nil
	case KindUsers:
		if len(f) < 1 {
			return nil, wberr.Decode(line, "users reply without board name", nil)
		}
		return UsersReply{Board: f[0], Users: f[1:]}, nil
	case KindDraw:
		return parseDraw(line, f)
	case KindExit:
		if err := arity(line, f, 1); err != nil {
			return nil, err
		}
		return ExitAck{User: f[0]}, nil
	}
	return nil, wberr.Decode(line, "unknown reply kind", nil)
}

func parseDraw(line string, f []string) (Message, error) {
	if len(f) < 2 {
		return nil, wberr.Decode(line, "draw wants a board and a command", nil)
	}
	cmd, err := ParseCommand(line, f[1:])
	if err != nil {
		return nil, err
	}
	return Draw{Board: f[0], Command: cmd}, nil
}

func arity(line string, fields []string, want int) error {
	if len(fields) != want {
		return wberr.Decode(line,
			fmt.Sprintf("want %d field(s), got %d", want, len(fields)), nil)
	}
	return nil
}
