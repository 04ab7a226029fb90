package render

import (
	"image/color"

	"sumdoc/internal/geom"
)

// FrameBuffer is the CPU-side RGBA surface the chrome is painted into
// before it is uploaded to the window in one WritePixels call.
type FrameBuffer struct {
	W      int
	H      int
	Pixels []uint8 // RGBA

	clip geom.Rect
}

func NewFrameBuffer(w, h int) *FrameBuffer {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	fb := &FrameBuffer{W: w, H: h, Pixels: make([]uint8, w*h*4)}
	fb.clip = fb.Bounds()
	return fb
}

func (fb *FrameBuffer) Bounds() geom.Rect { return geom.Rect{W: fb.W, H: fb.H} }

// Clip restricts every later fill to r until Unclip is called.
func (fb *FrameBuffer) Clip(r geom.Rect) {
	fb.clip = intersect(fb.Bounds(), r)
}

func (fb *FrameBuffer) Unclip() { fb.clip = fb.Bounds() }

func (fb *FrameBuffer) Clear(c color.RGBA) {
	for i := 0; i < len(fb.Pixels); i += 4 {
		fb.Pixels[i+0] = c.R
		fb.Pixels[i+1] = c.G
		fb.Pixels[i+2] = c.B
		fb.Pixels[i+3] = c.A
	}
}

func (fb *FrameBuffer) Fill(r geom.Rect, c color.RGBA) {
	r = intersect(fb.clip, r)
	for row := r.Y; row < r.Bottom(); row++ {
		off := (row*fb.W + r.X) * 4
		for col := 0; col < r.W; col++ {
			idx := off + col*4
			fb.Pixels[idx+0] = c.R
			fb.Pixels[idx+1] = c.G
			fb.Pixels[idx+2] = c.B
			fb.Pixels[idx+3] = c.A
		}
	}
}

// Blend paints c over r using c.A as coverage. Selection and highlight
// tints go through here so the text underneath stays visible.
func (fb *FrameBuffer) Blend(r geom.Rect, c color.RGBA) {
	if c.A == 0xFF {
		fb.Fill(r, c)
		return
	}
	r = intersect(fb.clip, r)
	a := uint32(c.A)
	for row := r.Y; row < r.Bottom(); row++ {
		off := (row*fb.W + r.X) * 4
		for col := 0; col < r.W; col++ {
			idx := off + col*4
			fb.Pixels[idx+0] = mix(fb.Pixels[idx+0], c.R, a)
			fb.Pixels[idx+1] = mix(fb.Pixels[idx+1], c.G, a)
			fb.Pixels[idx+2] = mix(fb.Pixels[idx+2], c.B, a)
			fb.Pixels[idx+3] = 0xFF
		}
	}
}

func mix(dst, src uint8, a uint32) uint8 {
	return uint8((uint32(src)*a + uint32(dst)*(255-a) + 127) / 255)
}

func (fb *FrameBuffer) Stroke(r geom.Rect, line int, c color.RGBA) {
	if line <= 0 {
		line = 1
	}
	fb.Fill(geom.Rect{X: r.X, Y: r.Y, W: r.W, H: line}, c)
	fb.Fill(geom.Rect{X: r.X, Y: r.Bottom() - line, W: r.W, H: line}, c)
	fb.Fill(geom.Rect{X: r.X, Y: r.Y, W: line, H: r.H}, c)
	fb.Fill(geom.Rect{X: r.Right() - line, Y: r.Y, W: line, H: r.H}, c)
}

// At returns the pixel at x, y; outside the buffer it is transparent.
func (fb *FrameBuffer) At(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= fb.W || y >= fb.H {
		return color.RGBA{}
	}
	i := (y*fb.W + x) * 4
	return color.RGBA{fb.Pixels[i], fb.Pixels[i+1], fb.Pixels[i+2], fb.Pixels[i+3]}
}

func intersect(a, b geom.Rect) geom.Rect {
	x0, y0 := max(a.X, b.X), max(a.Y, b.Y)
	x1, y1 := min(a.Right(), b.Right()), min(a.Bottom(), b.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return geom.Rect{X: x0, Y: y0}
	}
	return geom.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
