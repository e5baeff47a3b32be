// Package canvas holds the client-side raster copy of a board.
//
// Commands are rasterized with golang.org/x/image/vector.  Coverage is
// thresholded to a binary mask before painting, so every pixel ends up
// either untouched or exactly the stroke color.  Applying the same
// command twice therefore leaves the image bit-identical, which the
// client relies on when the server echoes its own draws back.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	"golang.org/x/image/vector"

	"whiteboard/protocol"
)

// Default surface size, matching the drawing area of the desktop client.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Background is the color of a blank board.  Erasing paints with it.
const Background = protocol.White

// coverageThreshold is the minimum rasterizer coverage (out of 0xFF)
// for a pixel to be painted.
const coverageThreshold = 0x80

// Surface is a fixed-size RGBA canvas.  All methods are safe for
// concurrent use; Apply calls are serialized.
type Surface struct {
	mu  sync.Mutex
	img *image.RGBA
}

// New returns a blank surface of the given size.  Non-positive
// dimensions fall back to the defaults.
func New(width, height int) *Surface {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	s := &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
	s.fill()
	return s
}

// Bounds returns the surface rectangle.
func (s *Surface) Bounds() image.Rectangle { return s.img.Rect }

// Apply rasterizes cmd onto the surface.
func (s *Surface) Apply(cmd protocol.Command) error {
	switch c := cmd.(type) {
	case protocol.DrawLineSegment:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stroke(c)
		return nil
	case protocol.Clear:
		s.Clear()
		return nil
	case nil:
		return fmt.Errorf("canvas: nil command")
	}
	return fmt.Errorf("canvas: unsupported command %T", cmd)
}

// Clear resets every pixel to the background color.
func (s *Surface) Clear() {
	s.mu.Lock()
	s.fill()
	s.mu.Unlock()
}

// At returns the color of pixel (x, y).  Points outside the surface
// report the background.
func (s *Surface) At(x, y int) protocol.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !(image.Point{X: x, Y: y}).In(s.img.Rect) {
		return Background
	}
	c := s.img.RGBAAt(x, y)
	return protocol.Color(int32(uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)))
}

// Image returns a copy of the current pixels.
func (s *Surface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := image.NewRGBA(s.img.Rect)
	copy(cp.Pix, s.img.Pix)
	return cp
}

// WritePNG encodes a snapshot of the surface to w.
func (s *Surface) WritePNG(w io.Writer) error {
	return png.Encode(w, s.Image())
}

func (s *Surface) fill() {
	draw.Draw(s.img, s.img.Rect, image.NewUniform(Background), image.Point{}, draw.Src)
}

// stroke paints a segment with round caps.  Caller holds s.mu.
func (s *Surface) stroke(c protocol.DrawLineSegment) {
	r := float64(c.Width) / 2
	if r < 0.5 || math.IsNaN(r) {
		r = 0.5
	}
	// Pixel (x, y) covers [x, x+1); stroke through its center.
	x1, y1 := float64(c.X1)+0.5, float64(c.Y1)+0.5
	x2, y2 := float64(c.X2)+0.5, float64(c.Y2)+0.5

	box := image.Rect(
		int(math.Floor(math.Min(x1, x2)-r))-1,
		int(math.Floor(math.Min(y1, y2)-r))-1,
		int(math.Ceil(math.Max(x1, x2)+r))+1,
		int(math.Ceil(math.Max(y1, y2)+r))+1,
	).Intersect(s.img.Rect)
	if box.Empty() {
		return
	}

	mask := strokeMask(box, x1, y1, x2, y2, r)
	src := image.NewUniform(color.Color(c.Color.Opaque()))
	// Over with an opaque source and a 0/0xFF mask writes the source
	// exactly or leaves the pixel alone.
	draw.DrawMask(s.img, box, src, image.Point{}, mask, image.Point{}, draw.Over)
}

// strokeMask rasterizes the stadium around (x1,y1)-(x2,y2) with radius r
// into a binary alpha mask covering box.  The outline is one convex loop:
// a half circle around the end point followed by a half circle around
// the start point, so no sub-paths overlap.
func strokeMask(box image.Rectangle, x1, y1, x2, y2, r float64) *image.Alpha {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length == 0 {
		dx, dy, length = 1, 0, 1
	}
	// Angle of the left-hand normal (-dy, dx).
	theta := math.Atan2(dx/length, -dy/length)

	steps := int(math.Ceil(r * 2))
	if steps < 8 {
		steps = 8
	} else if steps > 64 {
		steps = 64
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	z.DrawOp = draw.Src
	first := true
	arc := func(cx, cy, from float64) {
		for i := 0; i <= steps; i++ {
			phi := from - math.Pi*float64(i)/float64(steps)
			px := float32(cx + r*math.Cos(phi) - ox)
			py := float32(cy + r*math.Sin(phi) - oy)
			if first {
				z.MoveTo(px, py)
				first = false
				continue
			}
			z.LineTo(px, py)
		}
	}
	arc(x2, y2, theta)
	arc(x1, y1, theta-math.Pi)
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	for i, a := range mask.Pix {
		if a >= coverageThreshold {
			mask.Pix[i] = 0xFF
		} else {
			mask.Pix[i] = 0
		}
	}
	return mask
}
