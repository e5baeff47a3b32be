package protocol

import (
	"fmt"
	"math"
	"strconv"

	wberr "whiteboard/internal/errors"
)

// Command operation names, the first token after the board name in a
// draw line.
const (
	OpDrawLineSegment = "drawLineSegment"
	OpClear           = "clear"
)

// Command is one board operation.  The set of commands is closed: the
// only implementations are the types in this file, and consumers apply
// them with an exhaustive type switch.  Commands are immutable values.
type Command interface {
	// Op returns the wire operation name.
	Op() string
	// Args returns the wire tokens following the operation name.
	Args() ([]string, error)

	command()
}

// DrawLineSegment strokes a straight line between two pixel positions.
type DrawLineSegment struct {
	X1, Y1 int
	X2, Y2 int
	Color  Color
	Width  float32
}

func (DrawLineSegment) Op() string { return OpDrawLineSegment }

func (d DrawLineSegment) Args() ([]string, error) {
	if err := ValidWidth(d.Width); err != nil {
		return nil, err
	}
	col, err := EncodeColor(d.Color)
	if err != nil {
		return nil, err
	}
	return []string{
		strconv.Itoa(d.X1),
		strconv.Itoa(d.Y1),
		strconv.Itoa(d.X2),
		strconv.Itoa(d.Y2),
		col,
		strconv.FormatFloat(float64(d.Width), 'f', -1, 32),
	}, nil
}

func (DrawLineSegment) command() {}

// Clear wipes the board back to blank.
type Clear struct{}

func (Clear) Op() string              { return OpClear }
func (Clear) Args() ([]string, error) { return nil, nil }
func (Clear) command()                {}

// EncodeCommand returns the op name followed by its arguments.
func EncodeCommand(cmd Command) ([]string, error) {
	if cmd == nil {
		return nil, fmt.Errorf("nil command")
	}
	args, err := cmd.Args()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Op(), err)
	}
	return append([]string{cmd.Op()}, args...), nil
}

// ParseCommand decodes the tokens following the board name of a draw
// line.  line is only used for error reporting.
func ParseCommand(line string, toks []string) (Command, error) {
	if len(toks) == 0 {
		return nil, wberr.Decode(line, "missing command", nil)
	}
	op, args := toks[0], toks[1:]
	switch op {
	case OpDrawLineSegment:
		return parseLineSegment(line, args)
	case OpClear:
		if len(args) != 0 {
			return nil, wberr.Decode(line, "clear takes no arguments", nil)
		}
		return Clear{}, nil
	}
	return nil, wberr.Decode(line, "unknown command "+strconv.Quote(op), nil)
}

func parseLineSegment(line string, args []string) (Command, error) {
	if len(args) != 6 {
		return nil, wberr.Decode(line,
			fmt.Sprintf("drawLineSegment wants 6 arguments, got %d", len(args)), nil)
	}
	var pts [4]int
	for i, name := range [4]string{"x1", "y1", "x2", "y2"} {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, wberr.Decode(line, name, err)
		}
		pts[i] = v
	}
	col, err := DecodeColor(args[4])
	if err != nil {
		return nil, wberr.Decode(line, "color", err)
	}
	w, err := strconv.ParseFloat(args[5], 32)
	if err != nil {
		return nil, wberr.Decode(line, "width", err)
	}
	if err := ValidWidth(float32(w)); err != nil {
		return nil, wberr.Decode(line, "width", err)
	}
	return DrawLineSegment{
		X1: pts[0], Y1: pts[1], X2: pts[2], Y2: pts[3],
		Color: col,
		Width: float32(w),
	}, nil
}

// ValidWidth rejects widths that are not positive and finite.
func ValidWidth(w float32) error {
	f := float64(w)
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("stroke width %v must be a positive finite number", w)
	}
	return nil
}
