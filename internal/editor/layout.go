package editor

import (
	"sumdoc/internal/geom"
	"sumdoc/internal/measure"
)

const (
	BlockIndent = 16
	CellPadding = 6
)

// extenter is implemented by embeds that know their own rendered size.
type extenter interface {
	Extent(avail, lineH int) (w, h int)
}

// Layout holds one box per item in document coordinates.
type Layout struct {
	boxes  []geom.Rect
	height int
}

func (s *State) Metrics() measure.Metrics { return s.metrics }
func (s *State) Width() int               { return s.width }

func (s *State) SetWidth(w int) {
	if w > 0 && w != s.width {
		s.width = w
		s.Invalidate()
	}
}

// SetMetrics swaps the font metrics, e.g. after a font size change.
func (s *State) SetMetrics(m measure.Metrics) {
	if m != nil {
		s.metrics = m
		s.Invalidate()
	}
}

func (s *State) Invalidate() { s.layout = nil }

func (s *State) Scroll() int { return s.scrollY }

func (s *State) SetScroll(y int) {
	if y < 0 {
		y = 0
	}
	s.scrollY = y
}

func (s *State) ContentHeight() int { return s.ensureLayout().height }

func (s *State) ensureLayout() *Layout {
	if s.layout == nil {
		s.layout = layoutItems(s.items, s.metrics, s.width)
	}
	return s.layout
}

// NaturalRowHeight is the height of a table row holding one line.
func (s *State) NaturalRowHeight() int { return s.metrics.LineHeight() + CellPadding }

func layoutItems(items []Item, m measure.Metrics, width int) *Layout {
	lineH := m.LineHeight()
	l := &Layout{boxes: make([]geom.Rect, len(items))}
	y := 0
	for i := 0; i < len(items); {
		end := lineEnd(items, i)
		if end < 0 {
			end = len(items) - 1
		}
		indent := 0
		if items[end].Line != LinePlain {
			indent = BlockIndent
		}
		x, rowH := indent, lineH
		prevEmbed := false
		for j := i; j <= end; j++ {
			it := items[j]
			switch {
			case it.Embed != nil:
				if x > indent {
					y += rowH
				}
				w, h := embedExtent(it.Embed, width-indent, lineH)
				l.boxes[j] = geom.Rect{X: indent, Y: y, W: w, H: h}
				x, rowH = indent+w, h
				prevEmbed = true
			case it.IsNewline():
				l.boxes[j] = geom.Rect{X: x, Y: y, W: 0, H: rowH}
				y += rowH
			default:
				adv := m.Advance(string(it.R))
				if prevEmbed || (x+adv > width && x > indent) {
					y += rowH
					x, rowH = indent, lineH
					prevEmbed = false
				}
				l.boxes[j] = geom.Rect{X: x, Y: y, W: adv, H: lineH}
				x += adv
			}
		}
		if !items[end].IsNewline() {
			y += rowH
		}
		i = end + 1
	}
	l.height = y
	return l
}

func embedExtent(e Embed, avail, lineH int) (int, int) {
	switch v := e.(type) {
	case *Table:
		w, h := 0, 0
		for _, cw := range v.Widths(avail) {
			w += cw
		}
		for _, rh := range v.Heights(lineH + CellPadding) {
			h += rh
		}
		return w, h
	case extenter:
		return v.Extent(avail, lineH)
	default:
		return avail, 2 * lineH
	}
}

// Box is the item's rectangle in document coordinates.
func (s *State) Box(index int) (geom.Rect, bool) {
	l := s.ensureLayout()
	if index < 0 || index >= len(l.boxes) {
		return geom.Rect{}, false
	}
	return l.boxes[index], true
}

// ToViewport converts document coordinates to the scrolled viewport.
func (s *State) ToViewport(r geom.Rect) geom.Rect {
	return r.Offset(0, -s.scrollY)
}

// Bounds is the primary geometry query. It has no answer for ranges
// touching an embed; callers fall back to NativeRect.
func (s *State) Bounds(index, length int) (geom.Rect, bool) {
	l := s.ensureLayout()
	if index < 0 || length < 0 || index+length > len(l.boxes) || index >= len(l.boxes) {
		return geom.Rect{}, false
	}
	if length == 0 {
		if s.items[index].Embed != nil {
			return geom.Rect{}, false
		}
		b := l.boxes[index]
		return s.ToViewport(geom.Rect{X: b.X, Y: b.Y, W: 0, H: b.H}), true
	}
	out := l.boxes[index]
	for i := index; i < index+length; i++ {
		if s.items[i].Embed != nil {
			return geom.Rect{}, false
		}
		out = out.Union(l.boxes[i])
	}
	return s.ToViewport(out), true
}

// NativeRect is the bounding rectangle of the glyphs a native text
// selection would paint: text only, embeds and line ends ignored.
func (s *State) NativeRect(index, length int) (geom.Rect, bool) {
	l := s.ensureLayout()
	start := clampIndex(index, len(l.boxes))
	end := clampIndex(index+length, len(l.boxes))
	var out geom.Rect
	found := false
	for i := start; i < end; i++ {
		it := s.items[i]
		if it.Embed != nil || it.IsNewline() {
			continue
		}
		if !found {
			out, found = l.boxes[i], true
			continue
		}
		out = out.Union(l.boxes[i])
	}
	if !found {
		return geom.Rect{}, false
	}
	return s.ToViewport(out), true
}

// TableGeom is a table's rendered geometry in viewport coordinates.
type TableGeom struct {
	Index int
	Rect  geom.Rect
	Rows  []geom.Rect
	Cols  []int
}

func (s *State) TableGeometry(t *Table) (TableGeom, bool) {
	index := s.IndexOf(t)
	if index < 0 {
		return TableGeom{}, false
	}
	box, _ := s.Box(index)
	box = s.ToViewport(box)
	g := TableGeom{Index: index, Rect: box, Cols: t.Widths(s.width - s.indentAt(index))}
	y := box.Y
	for _, h := range t.Heights(s.NaturalRowHeight()) {
		g.Rows = append(g.Rows, geom.Rect{X: box.X, Y: y, W: box.W, H: h})
		y += h
	}
	return g, true
}

// CellRect is the viewport rectangle of one cell.
func (g TableGeom) CellRect(row, col int) geom.Rect {
	if row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Cols) {
		return geom.Rect{}
	}
	x := g.Rect.X
	for c := 0; c < col; c++ {
		x += g.Cols[c]
	}
	r := g.Rows[row]
	return geom.Rect{X: x, Y: r.Y, W: g.Cols[col], H: r.H}
}

func (s *State) indentAt(index int) int {
	if s.LineFormatAt(index) != LinePlain {
		return BlockIndent
	}
	return 0
}

type Hit struct {
	Index int
	Table *Table
	Row   int
	Col   int
}

func (h Hit) InTable() bool { return h.Table != nil }

// HitTest maps a viewport point to the nearest caret index. Points over a
// table also resolve the cell (Row/Col are -1 outside the grid).
func (s *State) HitTest(x, y int) Hit {
	l := s.ensureLayout()
	dy := y + s.scrollY
	last := len(l.boxes) - 1
	if len(l.boxes) == 0 || dy < 0 {
		return Hit{Index: 0, Row: -1, Col: -1}
	}
	best := -1
	for i, b := range l.boxes {
		if dy < b.Y || dy >= b.Bottom() {
			continue
		}
		it := s.items[i]
		if it.Embed != nil && b.Contains(x, dy) {
			h := Hit{Index: i, Row: -1, Col: -1}
			if t, ok := it.Embed.(*Table); ok {
				h.Table = t
				h.Row, h.Col = s.cellAt(t, x, y)
			}
			return h
		}
		if x < b.X+b.W/2 {
			return Hit{Index: i, Row: -1, Col: -1}
		}
		best = i
	}
	if best < 0 {
		return Hit{Index: last, Row: -1, Col: -1}
	}
	if !s.items[best].IsNewline() && s.items[best].Embed == nil {
		best++
	}
	return Hit{Index: min(best, last), Row: -1, Col: -1}
}

func (s *State) cellAt(t *Table, x, y int) (int, int) {
	g, ok := s.TableGeometry(t)
	if !ok {
		return -1, -1
	}
	row, col := -1, -1
	for r, rr := range g.Rows {
		if y >= rr.Y && y < rr.Bottom() {
			row = r
			break
		}
	}
	cx := g.Rect.X
	for c, w := range g.Cols {
		if x >= cx && x < cx+w {
			col = c
			break
		}
		cx += w
	}
	return row, col
}
