package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"whiteboard/canvas"
	"whiteboard/client"
	wberr "whiteboard/internal/errors"
	"whiteboard/protocol"
)

const replHelp = `commands:
  join <user> <board>       register and join a board
  boards                    list boards
  users                     list users on the current board
  new <board>               create a board
  switch <board>            move to another board
  draw <x1> <y1> <x2> <y2>  draw a segment with the current pen
  color <#rrggbb|name|n>    set the pen color
  width <w>                 set the pen width
  erase on|off              draw with the background color
  clear                     clear the current board for everyone
  save <file.png>           write the local canvas as PNG
  status                    show the session
  exit                      leave and disconnect
`

// namedColors are accepted by the color command.
var namedColors = map[string]protocol.Color{
	"black":   protocol.Black,
	"white":   protocol.White,
	"red":     protocol.RGB(255, 0, 0),
	"green":   protocol.RGB(0, 128, 0),
	"blue":    protocol.RGB(0, 0, 255),
	"yellow":  protocol.RGB(255, 255, 0),
	"orange":  protocol.RGB(255, 165, 0),
	"magenta": protocol.RGB(255, 0, 255),
	"cyan":    protocol.RGB(0, 255, 255),
	"gray":    protocol.RGB(128, 128, 128),
}

type repl struct {
	c   *client.Client
	out io.Writer
}

// exec runs one command line.  quit is true after exit.
func (r *repl) exec(ctx context.Context, line string) (quit bool, err error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(f[0]), f[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprint(r.out, replHelp)

	case "join":
		if len(args) != 2 {
			return false, usage("join <user> <board>")
		}
		ok, err := r.c.CheckAndAddUser(ctx, args[0], args[1])
		if err != nil {
			return false, err
		}
		if !ok {
			fmt.Fprintf(r.out, "cannot join %s as %s: name taken or no such board\n", args[1], args[0])
			return false, nil
		}
		fmt.Fprintf(r.out, "joined %s as %s\n", args[1], args[0])

	case "boards":
		boards, err := r.c.ListBoards(ctx)
		r.list("boards", boards, err)
		return false, ignoreTimeout(err)

	case "users":
		users, err := r.c.ListUsers(ctx)
		r.list("users", users, err)
		return false, ignoreTimeout(err)

	case "new":
		if len(args) != 1 {
			return false, usage("new <board>")
		}
		ok, err := r.c.CreateBoard(ctx, args[0])
		if err != nil {
			return false, err
		}
		if ok {
			fmt.Fprintf(r.out, "created %s\n", args[0])
		} else {
			fmt.Fprintf(r.out, "board %s already exists\n", args[0])
		}

	case "switch":
		if len(args) != 1 {
			return false, usage("switch <board>")
		}
		return false, r.c.SwitchBoard(args[0])

	case "draw":
		if len(args) != 4 {
			return false, usage("draw <x1> <y1> <x2> <y2>")
		}
		var p [4]int
		for i, a := range args {
			if p[i], err = strconv.Atoi(a); err != nil {
				return false, fmt.Errorf("coordinate %q is not an integer", a)
			}
		}
		return false, r.c.DrawSegment(p[0], p[1], p[2], p[3])

	case "color":
		if len(args) != 1 {
			return false, usage("color <#rrggbb|name|n>")
		}
		col, err := ParseColor(args[0])
		if err != nil {
			return false, err
		}
		return false, r.c.SetColor(col)

	case "width":
		if len(args) != 1 {
			return false, usage("width <w>")
		}
		w, err := strconv.ParseFloat(args[0], 32)
		if err != nil || w <= 0 {
			return false, fmt.Errorf("width %q must be a positive number", args[0])
		}
		return false, r.c.SetWidth(float32(w))

	case "erase":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return false, usage("erase on|off")
		}
		r.c.SetErasing(args[0] == "on")

	case "clear":
		return false, r.c.ClearBoard()

	case "save":
		if len(args) != 1 {
			return false, usage("save <file.png>")
		}
		return false, r.save(args[0])

	case "status":
		s := r.c.State().Snapshot()
		fmt.Fprintf(r.out, "user=%s board=%s color=%s width=%g erasing=%v connected=%v\n",
			orDash(s.Username), orDash(s.Board), s.Color, s.Width, s.Erasing, s.Connected)

	case "exit", "quit":
		if err := r.c.Exit(ctx); err != nil && !errors.Is(err, wberr.ErrClosed) {
			fmt.Fprintf(r.out, "exit: %v\n", err)
		}
		fmt.Fprintln(r.out, "bye")
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

// list prints a list reply.  A timed-out request prints the cached
// list marked stale.
func (r *repl) list(name string, items []string, err error) {
	if err != nil && !errors.Is(err, wberr.ErrTimeout) {
		return
	}
	suffix := ""
	if err != nil {
		suffix = " (stale: no reply)"
	}
	if len(items) == 0 {
		fmt.Fprintf(r.out, "%s: none%s\n", name, suffix)
		return
	}
	fmt.Fprintf(r.out, "%s: %s%s\n", name, strings.Join(items, " "), suffix)
}

func (r *repl) save(path string) error {
	s, ok := r.c.Surface().(*canvas.Surface)
	if !ok {
		return errors.New("this client has no raster surface to save")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "saved %s\n", path)
	return nil
}

// ParseColor accepts "#rrggbb", "#aarrggbb", a color name, or the signed
// 32-bit ARGB integer itself.
func ParseColor(s string) (protocol.Color, error) {
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || (len(hex) != 6 && len(hex) != 8) {
			return 0, fmt.Errorf("color %q: want #rrggbb or #aarrggbb", s)
		}
		if len(hex) == 6 {
			v |= 0xFF000000
		}
		return protocol.Color(int32(uint32(v))), nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: unknown name or number", s)
	}
	return protocol.Color(n), nil
}

func ignoreTimeout(err error) error {
	if errors.Is(err, wberr.ErrTimeout) {
		return nil
	}
	return err
}

func usage(s string) error { return fmt.Errorf("usage: %s", s) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
