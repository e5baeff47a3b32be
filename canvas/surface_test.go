package canvas

import (
	"bytes"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard/protocol"
)

var red = protocol.RGB(0xFF, 0, 0)

func TestNew_Blank(t *testing.T) {
	s := New(0, 0)
	assert.Equal(t, image.Rect(0, 0, DefaultWidth, DefaultHeight), s.Bounds())
	assert.Equal(t, Background, s.At(0, 0))
	assert.Equal(t, Background, s.At(DefaultWidth-1, DefaultHeight-1))
	assert.Equal(t, Background, s.At(-5, 10000), "outside reads as background")
}

func TestApply_Segment(t *testing.T) {
	s := New(100, 100)
	require.NoError(t, s.Apply(protocol.DrawLineSegment{X1: 10, Y1: 50, X2: 90, Y2: 50, Color: red, Width: 4}))

	for _, x := range []int{10, 30, 50, 70, 90} {
		assert.Equal(t, red, s.At(x, 50), "on the line at x=%d", x)
		assert.Equal(t, red, s.At(x, 51), "inside the stroke at x=%d", x)
	}
	assert.Equal(t, red, s.At(9, 50), "round cap extends past the start")
	assert.Equal(t, Background, s.At(50, 40))
	assert.Equal(t, Background, s.At(50, 60))
	assert.Equal(t, Background, s.At(0, 0))
}

func TestApply_Dot(t *testing.T) {
	s := New(20, 20)
	require.NoError(t, s.Apply(protocol.DrawLineSegment{X1: 5, Y1: 5, X2: 5, Y2: 5, Color: protocol.Black, Width: 1}))
	assert.Equal(t, protocol.Black, s.At(5, 5))
	assert.Equal(t, Background, s.At(7, 5))
}

func TestApply_TranslucentDrawnOpaque(t *testing.T) {
	s := New(20, 20)
	half := protocol.Color(0x400000FF) // alpha 0x40, blue
	require.NoError(t, s.Apply(protocol.DrawLineSegment{X1: 2, Y1: 10, X2: 18, Y2: 10, Color: half, Width: 3}))
	assert.Equal(t, half.Opaque(), s.At(10, 10))
}

func TestApply_Idempotent(t *testing.T) {
	cmds := []protocol.Command{
		protocol.DrawLineSegment{X1: 3, Y1: 7, X2: 77, Y2: 41, Color: red, Width: 10},
		protocol.DrawLineSegment{X1: 60, Y1: 5, X2: 12, Y2: 90, Color: protocol.Black, Width: 2.5},
		protocol.DrawLineSegment{X1: 40, Y1: 40, X2: 41, Y2: 40, Color: protocol.White, Width: 0.3},
	}
	s := New(100, 100)
	for _, c := range cmds {
		require.NoError(t, s.Apply(c))
	}
	once := s.Image()

	for _, c := range cmds {
		require.NoError(t, s.Apply(c))
	}
	assert.True(t, bytes.Equal(once.Pix, s.Image().Pix), "second application changed pixels")
}

func TestApply_OffCanvas(t *testing.T) {
	s := New(50, 50)
	before := s.Image()
	require.NoError(t, s.Apply(protocol.DrawLineSegment{X1: -500, Y1: -500, X2: -400, Y2: -450, Color: red, Width: 5}))
	assert.True(t, bytes.Equal(before.Pix, s.Image().Pix))

	// Partially visible strokes are clipped, not rejected.
	require.NoError(t, s.Apply(protocol.DrawLineSegment{X1: -20, Y1: 25, X2: 20, Y2: 25, Color: red, Width: 3}))
	assert.Equal(t, red, s.At(0, 25))
}

func TestApply_Clear(t *testing.T) {
	s := New(30, 30)
	require.NoError(t, s.Apply(protocol.DrawLineSegment{X1: 0, Y1: 0, X2: 29, Y2: 29, Color: red, Width: 6}))
	require.Equal(t, red, s.At(15, 15))

	require.NoError(t, s.Apply(protocol.Clear{}))
	blank := New(30, 30).Image()
	assert.True(t, bytes.Equal(blank.Pix, s.Image().Pix))
}

func TestApply_Nil(t *testing.T) {
	assert.Error(t, New(10, 10).Apply(nil))
}

func TestImage_IsCopy(t *testing.T) {
	s := New(10, 10)
	img := s.Image()
	img.Pix[0] = 0
	assert.Equal(t, Background, s.At(0, 0))
}

func TestWritePNG(t *testing.T) {
	s := New(40, 30)
	require.NoError(t, s.Apply(protocol.DrawLineSegment{X1: 5, Y1: 5, X2: 35, Y2: 25, Color: red, Width: 3}))

	var buf bytes.Buffer
	require.NoError(t, s.WritePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Bounds(), img.Bounds())

	r, g, b, a := img.At(5, 5).RGBA()
	assert.Equal(t, [4]uint32{0xFFFF, 0, 0, 0xFFFF}, [4]uint32{r, g, b, a})
}

func TestApply_Concurrent(t *testing.T) {
	s := New(200, 200)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = s.Apply(protocol.DrawLineSegment{X1: i * 20, Y1: j * 10, X2: i*20 + 15, Y2: j * 10, Color: red, Width: 2})
				_ = s.At(i, j)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, red, s.At(0, 0))
}
