// Package measure provides the text metrics shared by the renderer and the
// off-screen measurement box used for pagination.
package measure

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type Size struct {
	W int
	H int
}

// Metrics is the minimal font contract needed for wrapping.
type Metrics interface {
	Advance(s string) int
	LineHeight() int
}

type Style struct {
	Bold   bool
	Italic bool
	Mono   bool
}

type Face struct {
	face    font.Face
	sizePt  float64
	lineGap int
}

var (
	parseOnce sync.Once
	parsed    map[Style]*opentype.Font
	parseErr  error
)

func loadFonts() {
	parsed = map[Style]*opentype.Font{}
	sources := map[Style][]byte{
		{}:                         goregular.TTF,
		{Bold: true}:               gobold.TTF,
		{Italic: true}:             goitalic.TTF,
		{Bold: true, Italic: true}: gobolditalic.TTF,
		{Mono: true}:               gomono.TTF,
	}
	for st, ttf := range sources {
		f, err := opentype.Parse(ttf)
		if err != nil {
			parseErr = fmt.Errorf("parse font %+v: %w", st, err)
			return
		}
		parsed[st] = f
	}
}

// NewFace returns a face at sizePt (72 DPI, so points equal pixels).
func NewFace(sizePt float64, st Style) (*Face, error) {
	parseOnce.Do(loadFonts)
	if parseErr != nil {
		return nil, parseErr
	}
	if sizePt <= 0 {
		return nil, fmt.Errorf("measure: font size must be positive, got %.1f", sizePt)
	}
	if st.Mono {
		st = Style{Mono: true}
	}
	base := parsed[st]
	if base == nil {
		base = parsed[Style{}]
	}
	face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: sizePt, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("measure: new face: %w", err)
	}
	gap := int(sizePt * 0.4)
	if gap < 2 {
		gap = 2
	}
	return &Face{face: face, sizePt: sizePt, lineGap: gap}, nil
}

func (f *Face) Font() font.Face { return f.face }
func (f *Face) SizePt() float64 { return f.sizePt }

func (f *Face) Advance(s string) int {
	if f == nil || f.face == nil || s == "" {
		return 0
	}
	// 26.6 fixed point to pixels, rounded.
	px := (int(font.MeasureString(f.face, s)) + 32) >> 6
	if px < 0 {
		px = 0
	}
	return px
}

func (f *Face) Ascent() int {
	return f.face.Metrics().Ascent.Round()
}

func (f *Face) LineHeight() int {
	m := f.face.Metrics()
	return m.Ascent.Round() + m.Descent.Round() + f.lineGap
}

// Fixed is a monospace grid: every rune is CharW wide.
type Fixed struct {
	CharW int
	LineH int
}

func (f Fixed) Advance(s string) int { return utf8.RuneCountInString(s) * f.CharW }
func (f Fixed) LineHeight() int      { return f.LineH }

// Wrap breaks text into visual lines no wider than width, the way a
// pre-wrap block does: hard breaks at '\n', soft breaks after the last space
// that fits, and mid-word breaks when a word alone overflows.
func Wrap(m Metrics, text string, width int) []string {
	if text == "" {
		return nil
	}
	paras := strings.Split(text, "\n")
	if len(paras) > 1 && paras[len(paras)-1] == "" {
		// A closing newline ends the last line; it does not open a new one.
		paras = paras[:len(paras)-1]
	}
	var out []string
	for _, para := range paras {
		out = append(out, wrapParagraph(m, para, width)...)
	}
	return out
}

func wrapParagraph(m Metrics, para string, width int) []string {
	if para == "" || width <= 0 {
		return []string{para}
	}
	var lines []string
	runes := []rune(para)
	start := 0
	lineW := 0
	lastSpace := -1
	for i := 0; i < len(runes); i++ {
		rw := m.Advance(string(runes[i]))
		if lineW+rw > width && i > start {
			brk := i
			if lastSpace >= start && lastSpace < i-1 {
				brk = lastSpace + 1
			}
			lines = append(lines, string(runes[start:brk]))
			start = brk
			lastSpace = -1
			lineW = m.Advance(string(runes[start : i+1]))
			if unicode.IsSpace(runes[i]) {
				lastSpace = i
			}
			continue
		}
		lineW += rw
		if unicode.IsSpace(runes[i]) {
			lastSpace = i
		}
	}
	lines = append(lines, string(runes[start:]))
	return lines
}

// Box is the off-screen measurement element: a block of fixed width laid
// out with the same metrics as the visible page.
type Box struct {
	m     Metrics
	width int
}

func NewBox(m Metrics, width int) *Box {
	return &Box{m: m, width: width}
}

func (b *Box) Width() int { return b.width }

func (b *Box) Measure(text string) Size {
	lines := Wrap(b.m, text, b.width)
	s := Size{H: len(lines) * b.m.LineHeight()}
	for _, l := range lines {
		if w := b.m.Advance(l); w > s.W {
			s.W = w
		}
	}
	return s
}
