package table

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sumdoc/internal/editor"
	"sumdoc/internal/geom"
	"sumdoc/internal/platform"
)

var (
	ErrRowLimit    = errors.New("table: row limit reached")
	ErrColumnLimit = errors.New("table: column limit reached")
)

// ControlBar is the height of the add row/column strip drawn above a table.
const ControlBar = 24

type State int

const (
	None State = iota
	Hovered
	Active
	ResizingRow
	ResizingCol
)

func (s State) String() string {
	switch s {
	case Hovered:
		return "hovered"
	case Active:
		return "active"
	case ResizingRow:
		return "resizing-row"
	case ResizingCol:
		return "resizing-col"
	default:
		return "none"
	}
}

type Cursor int

const (
	CursorDefault Cursor = iota
	CursorRowResize
	CursorColResize
)

type Side int

const (
	Above Side = iota
	Below
	Left
	Right
)

// Overlay is where the host draws the table controls, in viewport
// coordinates.
type Overlay struct {
	Visible  bool
	Table    *editor.Table
	Rect     geom.Rect
	Controls geom.Rect
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// Surface is what the controller needs from the editing surface.
type Surface interface {
	Root() *platform.Target
	Window() *platform.Target
	Selection() (editor.Range, bool)
	Leaf(index int) (editor.Leaf, bool)
	IndexOf(e editor.Embed) int
	HitTest(x, y int) editor.Hit
	TableGeometry(t *editor.Table) (editor.TableGeom, bool)
	Tables() *editor.TableModule
	Touch(index int, src editor.Source)
	OnSelectionChange(fn func(editor.SelectionChange)) func()
	OnTextChange(fn func(editor.TextChange)) func()
}

// Timers is the part of the event loop used for the hide debounce.
type Timers interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

type drag struct {
	table   *editor.Table
	index   int
	slot    int
	start   int
	size    int
	release []func()
}

// Controller owns all table interaction state for one editing surface.
type Controller struct {
	s      Surface
	timers Timers
	lim    Limits
	alert  Alerter
	log    *slog.Logger

	state      State
	hovered    *editor.Table
	active     *editor.Table
	overlay    Overlay
	cursor     Cursor
	cancelHide func()
	drag       *drag
	detach     []func()
}

type Option func(*Controller)

func WithLimits(l Limits) Option       { return func(c *Controller) { c.lim = l } }
func WithAlerter(a Alerter) Option     { return func(c *Controller) { c.alert = a } }
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

// Attach wires the controller to s and returns it with the func that
// removes every listener, the pending hide timer and any drag in progress.
func Attach(s Surface, timers Timers, opts ...Option) (*Controller, func()) {
	c := &Controller{
		s:      s,
		timers: timers,
		lim:    DefaultLimits(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	root, win := s.Root(), s.Window()
	c.detach = append(c.detach,
		root.Listen(platform.EventPointerMove, platform.Bubble, c.pointerMove),
		root.Listen(platform.EventPointerDown, platform.Bubble, c.pointerDown),
		root.Listen(platform.EventPointerLeave, platform.Bubble, c.pointerLeave),
		win.Listen(platform.EventScroll, platform.Bubble, func(*platform.Event) { c.Refresh() }),
		win.Listen(platform.EventResize, platform.Bubble, func(*platform.Event) { c.Refresh() }),
		s.OnSelectionChange(func(editor.SelectionChange) { c.selectionChanged() }),
		s.OnTextChange(func(editor.TextChange) { c.Refresh() }),
	)
	c.selectionChanged()

	disposed := false
	return c, func() {
		if disposed {
			return
		}
		disposed = true
		c.endDrag()
		c.stopHide()
		for _, fn := range c.detach {
			fn()
		}
		c.detach = nil
	}
}

func (c *Controller) State() State      { return c.state }
func (c *Controller) Overlay() Overlay  { return c.overlay }
func (c *Controller) Cursor() Cursor    { return c.cursor }
func (c *Controller) HidePending() bool { return c.cancelHide != nil }

func (c *Controller) pointerMove(ev *platform.Event) {
	if c.drag != nil {
		return
	}
	hit := c.s.HitTest(ev.X, ev.Y)
	if hit.InTable() {
		c.stopHide()
		c.hovered = hit.Table
		c.settle()
		c.cursor = c.cursorAt(hit.Table, ev.X, ev.Y)
		return
	}
	c.cursor = CursorDefault
	if c.overlay.Visible && c.overlay.Controls.Contains(ev.X, ev.Y) {
		c.stopHide()
		return
	}
	if c.hovered != nil {
		c.scheduleHide()
	}
}

func (c *Controller) pointerLeave(*platform.Event) {
	if c.drag != nil {
		return
	}
	c.cursor = CursorDefault
	if c.hovered != nil {
		c.scheduleHide()
	}
}

func (c *Controller) cursorAt(t *editor.Table, x, y int) Cursor {
	g, ok := c.s.TableGeometry(t)
	if !ok {
		return CursorDefault
	}
	if _, ok := ColumnBoundaryAt(ColumnWidths(g), x-g.Rect.X, c.lim.Edge); ok {
		return CursorColResize
	}
	if _, ok := RowBoundaryAt(RowRects(g), y-g.Rect.Y, c.lim.Edge); ok {
		return CursorRowResize
	}
	return CursorDefault
}

func (c *Controller) scheduleHide() {
	if c.cancelHide != nil {
		return
	}
	c.cancelHide = c.timers.AfterFunc(c.lim.HideDelay, func() {
		c.cancelHide = nil
		c.hovered = nil
		c.settle()
	})
}

func (c *Controller) stopHide() {
	if c.cancelHide != nil {
		c.cancelHide()
		c.cancelHide = nil
	}
}

// settle picks the resting state from the active and hovered tables.
func (c *Controller) settle() {
	switch {
	case c.drag != nil:
	case c.active != nil:
		c.state = Active
		c.show(c.active)
	case c.hovered != nil:
		c.state = Hovered
		c.show(c.hovered)
	default:
		c.state = None
		c.overlay = Overlay{}
	}
}

func (c *Controller) selectionChanged() {
	t, _, ok := ActiveTable(c.s)
	if ok {
		c.active = t
		c.stopHide()
	} else {
		c.active = nil
	}
	c.settle()
}

func (c *Controller) show(t *editor.Table) {
	g, ok := c.s.TableGeometry(t)
	if !ok {
		c.overlay = Overlay{}
		return
	}
	c.overlay = Overlay{
		Visible:  true,
		Table:    t,
		Rect:     g.Rect,
		Controls: geom.Rect{X: g.Rect.X, Y: g.Rect.Y - ControlBar, W: g.Rect.W, H: ControlBar},
	}
}

// Refresh re-reads geometry after layout, scroll or document changes and
// drops tables that are no longer in the document.
func (c *Controller) Refresh() {
	if c.hovered != nil && c.s.IndexOf(c.hovered) < 0 {
		c.hovered = nil
	}
	if c.active != nil && c.s.IndexOf(c.active) < 0 {
		c.active = nil
	}
	if c.drag != nil && c.s.IndexOf(c.drag.table) < 0 {
		c.endDrag()
	}
	if c.overlay.Table != nil {
		SyncColgroup(c.overlay.Table)
	}
	c.settle()
}

func (c *Controller) pointerDown(ev *platform.Event) {
	if c.drag != nil {
		return
	}
	hit := c.s.HitTest(ev.X, ev.Y)
	if !hit.InTable() {
		return
	}
	g, ok := c.s.TableGeometry(hit.Table)
	if !ok {
		return
	}
	t := hit.Table
	d := &drag{table: t, index: g.Index}
	if k, ok := ColumnBoundaryAt(ColumnWidths(g), ev.X-g.Rect.X, c.lim.Edge); ok {
		SyncColgroup(t)
		// Pin every column so only the dragged one moves.
		copy(t.ColWidths, g.Cols)
		d.slot, d.start, d.size = k, ev.X, g.Cols[k]
		c.state = ResizingCol
		c.cursor = CursorColResize
	} else if r, ok := RowBoundaryAt(RowRects(g), ev.Y-g.Rect.Y, c.lim.Edge); ok {
		SyncColgroup(t)
		d.slot, d.start, d.size = r, ev.Y, g.Rows[r].H
		c.state = ResizingRow
		c.cursor = CursorRowResize
	} else {
		return
	}
	ev.PreventDefault()
	c.stopHide()
	c.hovered = t
	c.drag = d
	win := c.s.Window()
	d.release = []func(){
		win.Listen(platform.EventPointerMove, platform.Capture, c.dragMove),
		win.Listen(platform.EventPointerUp, platform.Capture, c.dragEnd),
	}
	c.log.Debug("table resize start", "state", c.state, "slot", d.slot, "size", d.size)
}

func (c *Controller) dragMove(ev *platform.Event) {
	d := c.drag
	if d == nil {
		return
	}
	switch {
	case c.state == ResizingRow && d.slot < len(d.table.RowHeights):
		d.table.RowHeights[d.slot] = max(c.lim.MinRowHeight, d.size+ev.Y-d.start)
	case c.state == ResizingCol && d.slot < len(d.table.ColWidths):
		d.table.ColWidths[d.slot] = max(c.lim.MinColWidth, d.size+ev.X-d.start)
	}
	ev.StopPropagation()
	c.s.Touch(d.index, editor.SourceSilent)
}

func (c *Controller) dragEnd(ev *platform.Event) {
	if c.drag == nil {
		return
	}
	ev.StopPropagation()
	c.endDrag()
	c.Refresh()
}

func (c *Controller) endDrag() {
	if c.drag == nil {
		return
	}
	for _, fn := range c.drag.release {
		fn()
	}
	c.log.Debug("table resize end", "slot", c.drag.slot)
	c.drag = nil
	c.cursor = CursorDefault
}

// AddRow inserts a row next to the focused cell of the active table. With
// no active table it does nothing.
func (c *Controller) AddRow(side Side) error {
	t, _, ok := ActiveTable(c.s)
	mod := c.s.Tables()
	if !ok || mod == nil {
		return nil
	}
	if rows, _ := t.Size(); rows+1 > c.lim.MaxRows {
		c.reject(fmt.Sprintf("행은 최대 %d개까지 추가할 수 있습니다.", c.lim.MaxRows))
		return fmt.Errorf("%w: %d rows", ErrRowLimit, rows)
	}
	if side == Above {
		mod.InsertRowAbove()
	} else {
		mod.InsertRowBelow()
	}
	c.Refresh()
	return nil
}

// AddColumn inserts a column next to the focused cell of the active table.
func (c *Controller) AddColumn(side Side) error {
	t, _, ok := ActiveTable(c.s)
	mod := c.s.Tables()
	if !ok || mod == nil {
		return nil
	}
	if _, cols := t.Size(); cols+1 > c.lim.MaxCols {
		c.reject(fmt.Sprintf("열은 최대 %d개까지 추가할 수 있습니다.", c.lim.MaxCols))
		return fmt.Errorf("%w: %d columns", ErrColumnLimit, cols)
	}
	if side == Left {
		mod.InsertColumnLeft()
	} else {
		mod.InsertColumnRight()
	}
	c.Refresh()
	return nil
}

func (c *Controller) reject(msg string) {
	c.log.Info("table limit", "msg", msg)
	if c.alert != nil {
		c.alert.Alert(msg)
	}
}
