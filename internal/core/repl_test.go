package core

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"whiteboard/protocol"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    protocol.Color
		wantErr bool
	}{
		{"black", protocol.Black, false},
		{"WHITE", protocol.White, false},
		{"red", protocol.RGB(255, 0, 0), false},
		{"#ff0000", protocol.RGB(255, 0, 0), false},
		{"#00ff00", protocol.RGB(0, 255, 0), false},
		{"#80ff0000", protocol.Color(int32(-0x7f010000)), false},
		{"-16777216", protocol.Black, false},
		{"0", protocol.Color(0), false},
		{"#fff", 0, true},
		{"#gggggg", 0, true},
		{"mauve", 0, true},
		{"4294967295", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestRepl_ArgumentErrors covers commands rejected before anything is
// sent, so no client is needed.
func TestRepl_ArgumentErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"draw 1 2 3", "usage: draw"},
		{"draw 1 2 3 x", `coordinate "x"`},
		{"width 0", "positive number"},
		{"width thick", "positive number"},
		{"erase maybe", "usage: erase"},
		{"color", "usage: color"},
		{"color mauve", "unknown name"},
		{"join alice", "usage: join"},
		{"new", "usage: new"},
		{"switch a b", "usage: switch"},
		{"save", "usage: save"},
		{"frobnicate", "unknown command"},
	}
	r := &repl{out: &bytes.Buffer{}}
	for _, tt := range tests {
		quit, err := r.exec(context.Background(), tt.line)
		if quit {
			t.Errorf("%q: quit = true", tt.line)
		}
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: err = %v, want containing %q", tt.line, err, tt.want)
		}
	}
}

func TestRepl_HelpAndBlank(t *testing.T) {
	out := &bytes.Buffer{}
	r := &repl{out: out}

	if _, err := r.exec(context.Background(), "   "); err != nil {
		t.Errorf("blank line: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("blank line printed %q", out.String())
	}
	if _, err := r.exec(context.Background(), "HELP"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "draw <x1> <y1> <x2> <y2>") {
		t.Errorf("help output:\n%s", out.String())
	}
}
