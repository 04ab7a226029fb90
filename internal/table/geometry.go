// Package table drives pointer interaction with tables in the editor:
// hover and active tracking, the add row/column overlay and drag resizing
// of rows and columns.
package table

import (
	"time"

	"sumdoc/internal/config"
	"sumdoc/internal/editor"
	"sumdoc/internal/geom"
)

const (
	Edge         = 12
	MinRowHeight = 24
	MinColWidth  = 40
	MaxRows      = 100
	MaxCols      = 10
	HideDelay    = 180 * time.Millisecond
)

type Limits struct {
	Edge         int
	MinRowHeight int
	MinColWidth  int
	MaxRows      int
	MaxCols      int
	HideDelay    time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		Edge:         Edge,
		MinRowHeight: MinRowHeight,
		MinColWidth:  MinColWidth,
		MaxRows:      MaxRows,
		MaxCols:      MaxCols,
		HideDelay:    HideDelay,
	}
}

func LimitsFrom(c config.Table) Limits {
	return Limits{
		Edge:         c.EdgePx,
		MinRowHeight: c.MinRowHeightPx,
		MinColWidth:  c.MinColWidthPx,
		MaxRows:      c.MaxRows,
		MaxCols:      c.MaxCols,
		HideDelay:    c.HideDelay(),
	}
}

// ColumnWidths returns the rendered widths of g's columns.
func ColumnWidths(g editor.TableGeom) []int {
	return append([]int(nil), g.Cols...)
}

// RowRects returns g's row rectangles relative to the table's top-left
// corner, the space RowBoundaryAt works in.
func RowRects(g editor.TableGeom) []geom.Rect {
	out := make([]geom.Rect, len(g.Rows))
	for r, rr := range g.Rows {
		out[r] = geom.Rect{X: rr.X - g.Rect.X, Y: rr.Y - g.Rect.Y, W: rr.W, H: rr.H}
	}
	return out
}

// ColumnBoundaryAt reports which column's right edge lies within edge of
// x, where x is measured from the table's left side. The closest boundary
// wins when several qualify.
func ColumnBoundaryAt(widths []int, x, edge int) (int, bool) {
	best, bestDist := -1, edge+1
	sum := 0
	for k, w := range widths {
		sum += w
		if d := geom.Abs(x - sum); d <= edge && d < bestDist {
			best, bestDist = k, d
		}
	}
	return best, best >= 0
}

// RowBoundaryAt reports whether y is within edge of the bottom of the row
// under it, with y and rows measured from the table's top (see RowRects).
// A row owns its bottom border line, so y == bottom still counts as that
// row.
func RowBoundaryAt(rows []geom.Rect, y, edge int) (int, bool) {
	for r, rr := range rows {
		if y <= rr.Y || y > rr.Bottom() {
			continue
		}
		if geom.Abs(y-rr.Bottom()) <= edge {
			return r, true
		}
		return -1, false
	}
	return -1, false
}

type leafSource interface {
	Selection() (editor.Range, bool)
	Leaf(index int) (editor.Leaf, bool)
}

// ActiveTable resolves the table holding the caret.
func ActiveTable(s leafSource) (*editor.Table, int, bool) {
	sel, ok := s.Selection()
	if !ok {
		return nil, -1, false
	}
	leaf, ok := s.Leaf(sel.Index)
	if !ok {
		return nil, -1, false
	}
	t, ok := leaf.Table()
	if !ok {
		return nil, -1, false
	}
	return t, sel.Index, true
}

// SyncColgroup gives t exactly one column width and one row height slot per
// column and row, and switches it to fixed layout. It reports whether
// anything changed.
func SyncColgroup(t *editor.Table) bool {
	rows, cols := t.Size()
	changed := !t.FixedLayout
	t.FixedLayout = true
	if len(t.ColWidths) != cols {
		t.ColWidths = resize(t.ColWidths, cols)
		changed = true
	}
	if len(t.RowHeights) != rows {
		t.RowHeights = resize(t.RowHeights, rows)
		changed = true
	}
	return changed
}

func resize(s []int, n int) []int {
	if len(s) >= n {
		return s[:n]
	}
	return append(s, make([]int, n-len(s))...)
}
