package server

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"whiteboard/protocol"
)

// BoardExport is a portable snapshot of one board.
type BoardExport struct {
	Board    string          `json:"board" cbor:"board"`
	Users    []string        `json:"users" cbor:"users"`
	Commands []ExportCommand `json:"commands" cbor:"commands"`
}

// ExportCommand is the structured form of a protocol.Command.
type ExportCommand struct {
	Op    string  `json:"op" cbor:"op"`
	X1    int     `json:"x1,omitempty" cbor:"x1,omitempty"`
	Y1    int     `json:"y1,omitempty" cbor:"y1,omitempty"`
	X2    int     `json:"x2,omitempty" cbor:"x2,omitempty"`
	Y2    int     `json:"y2,omitempty" cbor:"y2,omitempty"`
	Color int32   `json:"color,omitempty" cbor:"color,omitempty"`
	Width float32 `json:"width,omitempty" cbor:"width,omitempty"`
}

// ExportOf converts a command for export.
func ExportOf(cmd protocol.Command) ExportCommand {
	switch c := cmd.(type) {
	case protocol.DrawLineSegment:
		return ExportCommand{
			Op: c.Op(),
			X1: c.X1, Y1: c.Y1, X2: c.X2, Y2: c.Y2,
			Color: int32(c.Color),
			Width: c.Width,
		}
	case protocol.Clear:
		return ExportCommand{Op: c.Op()}
	}
	return ExportCommand{Op: cmd.Op()}
}

// Command converts an exported command back.
func (e ExportCommand) Command() (protocol.Command, error) {
	switch e.Op {
	case protocol.OpDrawLineSegment:
		return protocol.DrawLineSegment{
			X1: e.X1, Y1: e.Y1, X2: e.X2, Y2: e.Y2,
			Color: protocol.Color(e.Color),
			Width: e.Width,
		}, nil
	case protocol.OpClear:
		return protocol.Clear{}, nil
	}
	return nil, fmt.Errorf("unknown command op %q", e.Op)
}

// Export snapshots board.  It reports false for an unknown board.
func (a *Authority) Export(board string) (BoardExport, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.boards[board]
	if !ok {
		return BoardExport{}, false
	}
	out := BoardExport{
		Board:    board,
		Users:    a.usersLocked(board),
		Commands: make([]ExportCommand, 0, len(b.log)),
	}
	for _, cmd := range b.log {
		out.Commands = append(out.Commands, ExportOf(cmd))
	}
	return out, true
}

// ── transcoders ──────────────────────────────────────────────────────

// Transcoder serializes board exports.
type Transcoder interface {
	Encode(BoardExport) ([]byte, error)
	Decode([]byte) (BoardExport, error)
	ContentType() string
}

// JSONTranscoder encodes exports as JSON.
type JSONTranscoder struct{}

func (JSONTranscoder) Encode(e BoardExport) ([]byte, error) { return json.Marshal(e) }

func (JSONTranscoder) Decode(data []byte) (e BoardExport, err error) {
	err = json.Unmarshal(data, &e)
	return
}

func (JSONTranscoder) ContentType() string { return "application/json" }

// CBORTranscoder encodes exports as CBOR.
type CBORTranscoder struct{}

func (CBORTranscoder) Encode(e BoardExport) ([]byte, error) { return cbor.Marshal(e) }

func (CBORTranscoder) Decode(data []byte) (e BoardExport, err error) {
	err = cbor.Unmarshal(data, &e)
	return
}

func (CBORTranscoder) ContentType() string { return "application/cbor" }

// TranscoderFor returns the transcoder for a format name.  The empty
// name selects JSON.
func TranscoderFor(format string) (Transcoder, bool) {
	switch format {
	case "", "json":
		return JSONTranscoder{}, true
	case "cbor":
		return CBORTranscoder{}, true
	}
	return nil, false
}
