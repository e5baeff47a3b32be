package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"whiteboard/client"
	wberr "whiteboard/internal/errors"
	"whiteboard/internal/transport"
	"whiteboard/util"
)

// ConnectMode dials a board server, optionally registers a user, and
// drives the client from a line-oriented command prompt.
type ConnectMode struct {
	Dialer  transport.Dialer
	Address string
	User    string // registered on connect when non-empty
	Board   string
	Options client.Options
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.  When both
	// are defaulted and stdin is a terminal, the prompt runs with line
	// editing.  Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

// lineReader yields one command per call.
type lineReader interface {
	ReadLine() (string, error)
}

type scanReader struct{ sc *bufio.Scanner }

func (r scanReader) ReadLine() (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// prompt picks the command source.  The returned func restores the
// terminal.
func (m *ConnectMode) prompt() (lineReader, io.Writer, func()) {
	if m.Stdin == nil && m.Stdout == nil {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			if old, err := term.MakeRaw(fd); err == nil {
				t := term.NewTerminal(struct {
					io.Reader
					io.Writer
				}{os.Stdin, os.Stdout}, "whiteboard> ")
				return t, t, func() { _ = term.Restore(fd, old) }
			}
		}
	}
	in, out := m.Stdin, m.Stdout
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return scanReader{bufio.NewScanner(in)}, out, func() {}
}

// Run connects and processes commands until the input ends, the user
// exits, the server hangs up or ctx is cancelled.  The client is killed
// on the way out, which says goodbye if a user is registered.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s", m.Address)
	c, err := client.Dial(ctx, m.Dialer, m.Address, m.Options)
	if err != nil {
		return err
	}
	defer c.Kill()

	in, out, restore := m.prompt()
	defer restore()

	if m.User != "" {
		ok, err := c.CheckAndAddUser(ctx, m.User, m.Board)
		if err != nil {
			return fmt.Errorf("register %s: %w", m.User, err)
		}
		if !ok {
			return fmt.Errorf("cannot register %s on %s: name taken or no such board", m.User, m.Board)
		}
		fmt.Fprintf(out, "joined %s as %s\n", m.Board, m.User)
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			line, err := in.ReadLine()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}()

	r := &repl{c: c, out: out}
	for {
		select {
		case <-ctx.Done():
			m.Logger.Verbose("interrupted")
			return nil
		case <-c.Done():
			return fmt.Errorf("%s: %w", m.Address, wberr.ErrNotConnected)
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		case line := <-lines:
			quit, err := r.exec(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}
