package table

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sumdoc/internal/editor"
	"sumdoc/internal/geom"
	"sumdoc/internal/loop"
	"sumdoc/internal/measure"
	"sumdoc/internal/platform"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type alerts []string

func (a *alerts) Alert(msg string) { *a = append(*a, msg) }

// setup builds a 600px wide surface holding one 3x3 table at index 0, so
// columns are 200px and rows 24px.
func setup(t *testing.T, opts ...Option) (*editor.State, *editor.Table, *loop.Loop, *Controller, func()) {
	t.Helper()
	s := editor.NewState(editor.WithMetrics(measure.Fixed{CharW: 8, LineH: 18}, 600))
	tbl := s.Tables().InsertTable(3, 3)
	l := loop.New(epoch)
	c, dispose := Attach(s, l, opts...)
	return s, tbl, l, c, dispose
}

func pointer(s *editor.State, typ platform.EventType, x, y int, inEditor bool) {
	s.Dispatch(&platform.Event{Type: typ, X: x, Y: y, InEditor: inEditor})
}

func TestColumnBoundaryHits(t *testing.T) {
	widths := []int{100, 150, 80}
	sum := 0
	for k, w := range widths {
		mid := sum + w/2
		if _, ok := ColumnBoundaryAt(widths, mid, Edge); ok {
			t.Fatalf("midpoint of column %d must not hit", k)
		}
		sum += w
		for _, dx := range []int{-Edge, -1, 0, 1, Edge} {
			got, ok := ColumnBoundaryAt(widths, sum+dx, Edge)
			if !ok || got != k {
				t.Fatalf("x=%d: expected boundary %d, got %d %v", sum+dx, k, got, ok)
			}
		}
		if got, ok := ColumnBoundaryAt(widths, sum+Edge+1, Edge); ok && got == k {
			t.Fatalf("x=%d: outside the edge band", sum+Edge+1)
		}
	}
	if _, ok := ColumnBoundaryAt(widths, 0, Edge); ok {
		t.Fatalf("left edge is not a resize handle")
	}
}

func TestRowBoundaryUsesRowUnderPointer(t *testing.T) {
	rows := []geom.Rect{{Y: 0, H: 40}, {Y: 40, H: 40}}
	cases := []struct {
		y    int
		want int
		hit  bool
	}{
		{40, 0, true},
		{30, 0, true},
		{20, 0, false},
		{41, -1, false},
		{75, 1, true},
		{90, -1, false},
	}
	for _, tc := range cases {
		got, ok := RowBoundaryAt(rows, tc.y, Edge)
		if ok != tc.hit || got != tc.want {
			t.Fatalf("y=%d: got %d %v, want %d %v", tc.y, got, ok, tc.want, tc.hit)
		}
	}
}

func TestBoundariesShareTableSpace(t *testing.T) {
	g := editor.TableGeom{
		Rect: geom.Rect{X: 30, Y: 100, W: 300, H: 80},
		Cols: []int{100, 200},
		Rows: []geom.Rect{{X: 30, Y: 100, W: 300, H: 40}, {X: 30, Y: 140, W: 300, H: 40}},
	}
	want := []geom.Rect{{W: 300, H: 40}, {Y: 40, W: 300, H: 40}}
	if diff := cmp.Diff(want, RowRects(g)); diff != "" {
		t.Fatalf("row rects (-want +got):\n%s", diff)
	}
	// Viewport point on the corner shared by column 0 and row 0.
	x, y := 130, 140
	if k, ok := ColumnBoundaryAt(ColumnWidths(g), x-g.Rect.X, Edge); !ok || k != 0 {
		t.Fatalf("column boundary: got %d %v", k, ok)
	}
	if r, ok := RowBoundaryAt(RowRects(g), y-g.Rect.Y, Edge); !ok || r != 0 {
		t.Fatalf("row boundary: got %d %v", r, ok)
	}
	if _, ok := RowBoundaryAt(RowRects(g), y, Edge); ok {
		t.Fatalf("viewport y must not be read as table space")
	}
}

func TestSyncColgroup(t *testing.T) {
	tbl := editor.NewTable(2, 3)
	if !SyncColgroup(tbl) {
		t.Fatalf("first sync must change the table")
	}
	if len(tbl.ColWidths) != 3 || len(tbl.RowHeights) != 2 || !tbl.FixedLayout {
		t.Fatalf("unexpected colgroup %+v", tbl)
	}
	if SyncColgroup(tbl) {
		t.Fatalf("second sync must be a no-op")
	}
	tbl.ColWidths = []int{1, 2, 3, 4, 5}
	SyncColgroup(tbl)
	if diff := cmp.Diff([]int{1, 2, 3}, tbl.ColWidths); diff != "" {
		t.Fatalf("extra cols not removed (-want +got):\n%s", diff)
	}
}

func TestColumnLimitRejects(t *testing.T) {
	var got alerts
	s, tbl, _, c, dispose := setup(t, WithAlerter(&got))
	defer dispose()
	for i := 0; i < 7; i++ {
		if err := c.AddColumn(Right); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if _, cols := tbl.Size(); cols != MaxCols {
		t.Fatalf("expected %d columns, got %d", MaxCols, cols)
	}

	err := c.AddColumn(Right)
	if !errors.Is(err, ErrColumnLimit) {
		t.Fatalf("expected ErrColumnLimit, got %v", err)
	}
	if _, cols := tbl.Size(); cols != MaxCols {
		t.Fatalf("rejected insert changed the table: %d columns", cols)
	}
	if len(got) != 1 {
		t.Fatalf("expected one alert, got %v", got)
	}
	if s.IndexOf(tbl) != 0 {
		t.Fatalf("table moved")
	}
}

func TestRowLimitHoldsAcrossInsertions(t *testing.T) {
	var got alerts
	_, tbl, _, c, dispose := setup(t, WithAlerter(&got))
	defer dispose()
	rejected := 0
	for i := 0; i < 120; i++ {
		side := Below
		if i%2 == 0 {
			side = Above
		}
		if err := c.AddRow(side); errors.Is(err, ErrRowLimit) {
			rejected++
		}
	}
	rows, _ := tbl.Size()
	if rows != MaxRows {
		t.Fatalf("expected %d rows, got %d", MaxRows, rows)
	}
	if rejected != 23 || len(got) != 23 {
		t.Fatalf("expected 23 rejections, got %d (alerts %d)", rejected, len(got))
	}
}

func TestAddWithoutActiveTableIsNoop(t *testing.T) {
	var got alerts
	s, tbl, _, c, dispose := setup(t, WithAlerter(&got))
	defer dispose()
	s.SetSelection(1, 0, editor.SourceUser)
	if err := c.AddRow(Below); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := c.AddColumn(Left); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if rows, cols := tbl.Size(); rows != 3 || cols != 3 || len(got) != 0 {
		t.Fatalf("table changed without focus: %dx%d alerts=%v", rows, cols, got)
	}
}

func TestHoverHideIsDebounced(t *testing.T) {
	s, tbl, l, c, dispose := setup(t)
	defer dispose()
	s.Blur(editor.SourceUser)
	if c.State() != None || c.Overlay().Visible {
		t.Fatalf("expected no overlay without focus, got %v", c.State())
	}

	pointer(s, platform.EventPointerMove, 100, 30, true)
	if c.State() != Hovered || c.Overlay().Table != tbl {
		t.Fatalf("expected hovered, got %v", c.State())
	}
	want := geom.Rect{X: 0, Y: 0, W: 600, H: 72}
	if c.Overlay().Rect != want {
		t.Fatalf("overlay at %+v, want %+v", c.Overlay().Rect, want)
	}

	pointer(s, platform.EventPointerMove, 100, 200, true)
	if !c.HidePending() {
		t.Fatalf("leaving the table must schedule a hide")
	}
	l.Advance(HideDelay - 10*time.Millisecond)
	if !c.Overlay().Visible {
		t.Fatalf("overlay hidden before the delay")
	}
	pointer(s, platform.EventPointerMove, 100, 30, true)
	l.Advance(time.Second)
	if c.State() != Hovered || !c.Overlay().Visible {
		t.Fatalf("re-entering must cancel the hide")
	}

	pointer(s, platform.EventPointerMove, 100, 200, true)
	l.Advance(HideDelay)
	if c.State() != None || c.Overlay().Visible {
		t.Fatalf("expected hidden overlay, got %v", c.State())
	}
}

func TestEnteringControlsKeepsOverlay(t *testing.T) {
	s, _, l, c, dispose := setup(t)
	defer dispose()
	s.Blur(editor.SourceUser)
	pointer(s, platform.EventPointerMove, 100, 30, true)
	pointer(s, platform.EventPointerMove, 100, -10, true)
	if c.HidePending() {
		t.Fatalf("moving onto the controls must not schedule a hide")
	}
	l.Advance(time.Second)
	if !c.Overlay().Visible {
		t.Fatalf("overlay hidden while pointer is on its controls")
	}
}

func TestActiveTableStaysVisible(t *testing.T) {
	s, tbl, l, c, dispose := setup(t)
	defer dispose()
	if c.State() != Active || c.Overlay().Table != tbl {
		t.Fatalf("caret in table must activate it, got %v", c.State())
	}
	pointer(s, platform.EventPointerMove, 100, 30, true)
	pointer(s, platform.EventPointerMove, 100, 200, true)
	l.Advance(time.Second)
	if c.State() != Active || !c.Overlay().Visible {
		t.Fatalf("active table lost its overlay: %v", c.State())
	}

	s.SetSelection(1, 0, editor.SourceUser)
	if c.State() != None {
		t.Fatalf("moving the caret out must deactivate, got %v", c.State())
	}
}

func TestRowResizeDrag(t *testing.T) {
	s, tbl, _, c, dispose := setup(t)
	defer dispose()
	s.Blur(editor.SourceUser)

	pointer(s, platform.EventPointerDown, 100, 22, true)
	if c.State() != ResizingRow || c.Cursor() != CursorRowResize {
		t.Fatalf("expected row resize, got %v", c.State())
	}
	win := s.Window()
	if win.Count(platform.EventPointerMove) != 1 || win.Count(platform.EventPointerUp) != 1 {
		t.Fatalf("drag listeners not on the window")
	}

	// Outside the editor the drag keeps going.
	pointer(s, platform.EventPointerMove, 100, 52, false)
	if tbl.RowHeights[0] != 54 {
		t.Fatalf("expected height 54, got %v", tbl.RowHeights)
	}
	pointer(s, platform.EventPointerMove, 100, -40, false)
	if tbl.RowHeights[0] != MinRowHeight {
		t.Fatalf("height must clamp to %d, got %v", MinRowHeight, tbl.RowHeights)
	}
	pointer(s, platform.EventPointerUp, 100, -40, false)
	if win.Count(platform.EventPointerMove) != 0 || win.Count(platform.EventPointerUp) != 0 {
		t.Fatalf("drag listeners left behind")
	}
	if c.State() != Hovered || c.Cursor() != CursorDefault {
		t.Fatalf("expected hovered after drag, got %v", c.State())
	}
}

func TestColumnResizeDrag(t *testing.T) {
	s, tbl, _, c, dispose := setup(t)
	defer dispose()

	pointer(s, platform.EventPointerMove, 198, 30, true)
	if c.Cursor() != CursorColResize {
		t.Fatalf("expected column cursor, got %v", c.Cursor())
	}
	pointer(s, platform.EventPointerDown, 198, 30, true)
	if c.State() != ResizingCol {
		t.Fatalf("expected column resize, got %v", c.State())
	}
	if !tbl.FixedLayout {
		t.Fatalf("resizing must switch to fixed layout")
	}
	pointer(s, platform.EventPointerMove, 150, 30, true)
	if diff := cmp.Diff([]int{152, 200, 200}, tbl.ColWidths); diff != "" {
		t.Fatalf("widths (-want +got):\n%s", diff)
	}
	pointer(s, platform.EventPointerMove, 0, 30, true)
	if tbl.ColWidths[0] != MinColWidth {
		t.Fatalf("width must clamp to %d, got %v", MinColWidth, tbl.ColWidths)
	}
	pointer(s, platform.EventPointerUp, 0, 30, true)
	if c.State() != Active {
		t.Fatalf("expected active after drag, got %v", c.State())
	}
	g, _ := s.TableGeometry(tbl)
	if g.Cols[0] != MinColWidth {
		t.Fatalf("layout ignores the new width: %v", g.Cols)
	}
}

func TestColumnAddedAfterResizeKeepsUsableWidth(t *testing.T) {
	s, tbl, _, c, dispose := setup(t)
	defer dispose()

	pointer(s, platform.EventPointerDown, 198, 30, true)
	pointer(s, platform.EventPointerMove, 210, 30, true)
	pointer(s, platform.EventPointerUp, 210, 30, true)
	if err := c.AddColumn(Right); err != nil {
		t.Fatalf("add column: %v", err)
	}
	if diff := cmp.Diff([]int{212, 212, 200, 200}, tbl.ColWidths); diff != "" {
		t.Fatalf("widths (-want +got):\n%s", diff)
	}
	g, ok := s.TableGeometry(tbl)
	if !ok {
		t.Fatalf("table has no geometry")
	}
	for k, w := range g.Cols {
		if w < MinColWidth {
			t.Fatalf("column %d rendered %dpx: %v", k, w, g.Cols)
		}
	}
}

func TestDeletedTableClearsOverlay(t *testing.T) {
	s, _, _, c, dispose := setup(t)
	defer dispose()
	s.DeleteText(0, 1, editor.SourceUser)
	if c.State() != None || c.Overlay().Visible {
		t.Fatalf("deleted table still tracked: %v", c.State())
	}
}

func TestDisposeDetachesEverything(t *testing.T) {
	s := editor.NewState()
	s.Tables().InsertTable(3, 3)
	s.Blur(editor.SourceUser)
	subs := s.Subscribers()
	l := loop.New(epoch)
	c, dispose := Attach(s, l)

	pointer(s, platform.EventPointerMove, 10, 10, true)
	pointer(s, platform.EventPointerMove, 10, 500, true)
	if l.Pending() != 1 {
		t.Fatalf("expected a pending hide timer")
	}
	g, _ := s.TableGeometry(c.Overlay().Table)
	pointer(s, platform.EventPointerDown, g.Cols[0], 10, true)

	dispose()
	dispose()
	if n := s.Root().Total() + s.Window().Total(); n != 0 {
		t.Fatalf("%d listeners left after dispose", n)
	}
	if s.Subscribers() != subs {
		t.Fatalf("editor subscriptions left after dispose")
	}
	if l.Pending() != 0 {
		t.Fatalf("hide timer left after dispose")
	}
}

func TestLimitsFromConfig(t *testing.T) {
	lim := DefaultLimits()
	lim.MaxCols = 4
	var got alerts
	_, tbl, _, c, dispose := setup(t, WithLimits(lim), WithAlerter(&got))
	defer dispose()
	c.AddColumn(Left)
	if err := c.AddColumn(Left); !errors.Is(err, ErrColumnLimit) {
		t.Fatalf("expected limit at 4, got %v", err)
	}
	if _, cols := tbl.Size(); cols != 4 {
		t.Fatalf("expected 4 columns, got %d", cols)
	}
}
