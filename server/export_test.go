package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard/protocol"
)

func TestTranscodersRoundTrip(t *testing.T) {
	in := BoardExport{
		Board: "room1",
		Users: []string{"alice", "bob"},
		Commands: []ExportCommand{
			ExportOf(protocol.DrawLineSegment{X1: -3, Y1: 0, X2: 799, Y2: 599, Color: protocol.White, Width: 0.5}),
			ExportOf(protocol.DrawLineSegment{X1: 1, Y1: 2, X2: 3, Y2: 4, Color: protocol.Black, Width: 12}),
		},
	}
	for _, format := range []string{"json", "cbor"} {
		t.Run(format, func(t *testing.T) {
			tc, ok := TranscoderFor(format)
			require.True(t, ok)
			data, err := tc.Encode(in)
			require.NoError(t, err)
			out, err := tc.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestExportCommandConversion(t *testing.T) {
	cmds := []protocol.Command{
		protocol.DrawLineSegment{X1: 1, Y1: 2, X2: 3, Y2: 4, Color: protocol.RGB(1, 2, 3), Width: 1.25},
		protocol.Clear{},
	}
	for _, cmd := range cmds {
		got, err := ExportOf(cmd).Command()
		require.NoError(t, err)
		assert.Equal(t, cmd, got)
	}

	_, err := ExportCommand{Op: "spray"}.Command()
	assert.Error(t, err)
}

func TestTranscoderForUnknown(t *testing.T) {
	_, ok := TranscoderFor("xml")
	assert.False(t, ok)
	tc, ok := TranscoderFor("")
	require.True(t, ok)
	assert.Equal(t, "application/json", tc.ContentType())
}
