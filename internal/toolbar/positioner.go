// Package toolbar places the floating format toolbar under the current
// selection and applies format commands to the range it was opened for.
package toolbar

import (
	"log/slog"

	"sumdoc/internal/config"
	"sumdoc/internal/editor"
	"sumdoc/internal/geom"
	"sumdoc/internal/platform"
)

const (
	Width = 280
	Gap   = 10
)

// Surface is the editing surface as seen by the positioner.
type Surface interface {
	Window() *platform.Target
	Selection() (editor.Range, bool)
	Bounds(index, length int) (geom.Rect, bool)
	Item(index int) (editor.Item, bool)
	FormatText(index, length int, mut func(*editor.Attr), src editor.Source)
	OnSelectionChange(fn func(editor.SelectionChange)) func()
}

// NativeSelection answers the bounding rectangle a native text selection
// would paint for a range.
type NativeSelection interface {
	NativeRect(index, length int) (geom.Rect, bool)
}

// OpenState reports whether another floating editor owns the selection,
// such as the math popover.
type OpenState interface {
	IsOpen() bool
}

// Position is the toolbar's top-left corner relative to the container.
type Position struct {
	Visible bool
	Left    int
	Top     int
	Width   int
}

type Positioner struct {
	s      Surface
	native NativeSelection
	guard  OpenState
	log    *slog.Logger

	width, gap int
	originX    int
	originY    int
	containerW int

	pos   Position
	saved *editor.Range
}

type Option func(*Positioner)

func WithNative(n NativeSelection) Option { return func(p *Positioner) { p.native = n } }
func WithGuard(g OpenState) Option        { return func(p *Positioner) { p.guard = g } }
func WithLogger(l *slog.Logger) Option    { return func(p *Positioner) { p.log = l } }

func WithConfig(c config.Toolbar) Option {
	return func(p *Positioner) {
		p.width, p.gap = c.WidthPx, c.GapPx
	}
}

// Attach listens for selection changes on both paths: the surface's own
// event and the window's native selectionchange. The native path is
// skipped while the guard is open.
func Attach(s Surface, opts ...Option) (*Positioner, func()) {
	p := &Positioner{s: s, width: Width, gap: Gap, log: slog.Default()}
	if n, ok := s.(NativeSelection); ok {
		p.native = n
	}
	for _, opt := range opts {
		opt(p)
	}
	win := s.Window()
	detach := []func(){
		s.OnSelectionChange(func(ch editor.SelectionChange) { p.update(ch.Range) }),
		win.Listen(platform.EventNativeSelectionChange, platform.Bubble, p.nativeChange),
		win.Listen(platform.EventScroll, platform.Bubble, func(*platform.Event) { p.Reposition() }),
		win.Listen(platform.EventResize, platform.Bubble, func(*platform.Event) { p.Reposition() }),
	}
	return p, func() {
		for _, fn := range detach {
			fn()
		}
		detach = nil
	}
}

// SetContainer records where the editor sits inside the toolbar's
// container and how wide the container is.
func (p *Positioner) SetContainer(originX, originY, width int) {
	p.originX, p.originY, p.containerW = originX, originY, width
}

func (p *Positioner) Position() Position { return p.pos }

// SavedRange is the non-empty range the toolbar was last shown for.
func (p *Positioner) SavedRange() (editor.Range, bool) {
	if p.saved == nil {
		return editor.Range{}, false
	}
	return *p.saved, true
}

func (p *Positioner) nativeChange(*platform.Event) {
	if p.guard != nil && p.guard.IsOpen() {
		return
	}
	sel, ok := p.s.Selection()
	if !ok {
		p.update(nil)
		return
	}
	p.update(&sel)
}

// Reposition recomputes the position for the saved range.
func (p *Positioner) Reposition() {
	if p.saved == nil {
		return
	}
	r := *p.saved
	p.update(&r)
}

func (p *Positioner) update(r *editor.Range) {
	if r == nil || r.Length == 0 {
		p.pos = Position{}
		p.saved = nil
		return
	}
	saved := *r
	p.saved = &saved
	rect, ok := p.s.Bounds(r.Index, r.Length)
	if !ok && p.native != nil {
		rect, ok = p.native.NativeRect(r.Index, r.Length)
	}
	if !ok {
		p.log.Debug("selection bounds unavailable", "index", r.Index, "length", r.Length)
		return
	}
	left := rect.X + p.originX
	if p.containerW > 0 {
		left = geom.Clamp(left, 0, p.containerW-p.width)
	}
	p.pos = Position{
		Visible: true,
		Left:    left,
		Top:     rect.Bottom() + p.originY + p.gap,
		Width:   p.width,
	}
}
