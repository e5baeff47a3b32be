package protocol

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	wberr "whiteboard/internal/errors"
)

// Color is a signed 32-bit ARGB value (alpha in the top byte), the
// representation the drawing clients exchange.  Opaque colors are
// therefore negative.
type Color int32

// ColorBias is added to a Color before it goes on the wire so that every
// opaque color travels as a non-negative integer; decoders subtract it.
// Opaque black encodes as 0 and opaque white as 16777215.
const ColorBias = 1 << 24

// Well-known colors.
const (
	Black Color = -16777216 // 0xFF000000
	White Color = -1        // 0xFFFFFFFF
)

// RGB builds an opaque Color from 8-bit channels.
func RGB(r, g, b uint8) Color {
	return Color(int32(uint32(0xFF)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)))
}

// RGBA implements color.Color.  The stored value is straight (not
// premultiplied) ARGB.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{
		R: uint8(uint32(c) >> 16),
		G: uint8(uint32(c) >> 8),
		B: uint8(uint32(c)),
		A: uint8(uint32(c) >> 24),
	}.RGBA()
}

// Opaque returns c with its alpha forced to 0xFF.  The surface paints
// without blending, so translucent colors are drawn opaque.
func (c Color) Opaque() Color {
	return Color(int32(uint32(c) | 0xFF000000))
}

func (c Color) String() string {
	return fmt.Sprintf("#%08x", uint32(c))
}

// EncodeColor returns the biased wire token for c.
func EncodeColor(c Color) (string, error) {
	biased := int64(c) + ColorBias
	if biased < 0 {
		return "", fmt.Errorf("%w: %s", wberr.ErrColorRange, c)
	}
	return strconv.FormatInt(biased, 10), nil
}

// DecodeColor reverses EncodeColor.
func DecodeColor(tok string) (Color, error) {
	biased, err := strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, err
	}
	v := int64(biased) - ColorBias
	if biased > math.MaxInt64 || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s", wberr.ErrColorRange, tok)
	}
	return Color(v), nil
}
