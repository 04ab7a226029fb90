package render

import (
	"image/color"
	"testing"

	"sumdoc/internal/geom"
)

var (
	white = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	black = color.RGBA{0, 0, 0, 0xFF}
)

func TestFillClipsToBuffer(t *testing.T) {
	fb := NewFrameBuffer(4, 3)
	fb.Fill(geom.Rect{X: -2, Y: 1, W: 4, H: 10}, white)
	if got := fb.At(1, 2); got != white {
		t.Fatalf("expected filled pixel, got %v", got)
	}
	if got := fb.At(2, 1); got != (color.RGBA{}) {
		t.Fatalf("fill leaked past its right edge: %v", got)
	}
	if got := fb.At(9, 9); got != (color.RGBA{}) {
		t.Fatalf("outside pixel must be transparent, got %v", got)
	}
}

func TestClipRestrictsFill(t *testing.T) {
	fb := NewFrameBuffer(10, 10)
	fb.Clip(geom.Rect{X: 2, Y: 2, W: 3, H: 3})
	fb.Fill(fb.Bounds(), white)
	fb.Unclip()
	if fb.At(1, 1) != (color.RGBA{}) || fb.At(5, 5) != (color.RGBA{}) {
		t.Fatalf("fill escaped the clip")
	}
	if fb.At(4, 4) != white {
		t.Fatalf("clip interior not filled")
	}
	fb.Fill(geom.Rect{X: 9, Y: 9, W: 1, H: 1}, black)
	if fb.At(9, 9) != black {
		t.Fatalf("unclip did not restore the full buffer")
	}
}

func TestBlendMixesOverBackground(t *testing.T) {
	fb := NewFrameBuffer(2, 1)
	fb.Clear(white)
	fb.Blend(geom.Rect{W: 1, H: 1}, color.RGBA{0, 0, 0, 0x80})
	got := fb.At(0, 0)
	if got.R < 0x7E || got.R > 0x80 || got.A != 0xFF {
		t.Fatalf("expected mid grey, got %v", got)
	}
	if fb.At(1, 0) != white {
		t.Fatalf("blend touched a pixel outside its rect")
	}
}

func TestStrokeLeavesInteriorUntouched(t *testing.T) {
	fb := NewFrameBuffer(5, 5)
	fb.Stroke(fb.Bounds(), 1, black)
	for _, p := range [][2]int{{0, 0}, {4, 0}, {0, 4}, {4, 4}, {2, 0}} {
		if fb.At(p[0], p[1]) != black {
			t.Fatalf("border pixel %v not stroked", p)
		}
	}
	if fb.At(2, 2) != (color.RGBA{}) {
		t.Fatalf("interior painted")
	}
}
