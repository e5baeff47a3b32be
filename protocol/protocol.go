/*
Package protocol implements the whiteboard wire codec.

Every message is a single line of whitespace-separated ASCII tokens; the
first token is the message kind.  There is no escaping, so board and user
names must not contain whitespace and are rejected before encoding.

Client → server:

	checkAndAddUser <user> <board>
	newBoard <name>
	boards
	users <board>
	switch <user> <oldBoard> <newBoard>
	draw <board> <op> <args...>
	exit <user>

Server → client:

	check <user> <board> <created>
	newBoard <name> <successful>
	boards <name>*
	users <board> <name>*
	draw <board> <op> <args...>
	exit <user>

Replies carry no request id: a reply is matched to its request by kind
(and name, for newBoard), so at most one request per kind may be in
flight from a client.
*/
package protocol

import (
	"strconv"
	"strings"
	"unicode"

	wberr "whiteboard/internal/errors"
)

// Message kinds, the first token of every line.
const (
	KindCheckAndAddUser = "checkAndAddUser"
	KindCheck           = "check"
	KindNewBoard        = "newBoard"
	KindBoards          = "boards"
	KindUsers           = "users"
	KindSwitch          = "switch"
	KindDraw            = "draw"
	KindExit            = "exit"
)

// Encode joins kind and args into one protocol line (without the
// trailing newline).  Every token must be non-empty and free of
// whitespace.
func Encode(kind string, args ...string) (string, error) {
	if err := ValidateName(kind); err != nil {
		return "", err
	}
	for _, a := range args {
		if err := ValidateName(a); err != nil {
			return "", err
		}
	}
	if len(args) == 0 {
		return kind, nil
	}
	return kind + " " + strings.Join(args, " "), nil
}

// Split tokenizes line into its kind and the remaining fields.
func Split(line string) (kind string, fields []string, err error) {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return "", nil, wberr.Decode(line, "empty line", nil)
	}
	return toks[0], toks[1:], nil
}

// ValidateName reports whether s can travel as a single token.
func ValidateName(s string) error {
	if s == "" {
		return wberr.ErrInvalidName
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return &nameError{name: s}
	}
	return nil
}

type nameError struct{ name string }

func (e *nameError) Error() string {
	return "name " + strconv.Quote(e.name) + " contains whitespace"
}

func (e *nameError) Unwrap() error { return wberr.ErrInvalidName }

// formatBool and parseBool use the lowercase true/false spelling.
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func parseBool(line, field, tok string) (bool, error) {
	switch strings.ToLower(tok) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, wberr.Decode(line, field+": not a boolean", nil)
}
