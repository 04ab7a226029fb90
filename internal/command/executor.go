package command

import (
	"context"
	"log/slog"

	"sumdoc/internal/editor"
	"sumdoc/internal/mathblock"
)

// TriggerScan bounds how far back from the caret a '/' is looked for.
const TriggerScan = 50

const (
	TableRows = 3
	TableCols = 3
)

// Surface is the part of the editing surface commands mutate.
type Surface interface {
	Selection() (editor.Range, bool)
	SetSelection(index, length int, src editor.Source)
	Length() int
	Text(index, length int) string
	InsertText(index int, text string, attr editor.Attr, src editor.Source) int
	InsertEmbed(index int, e editor.Embed, src editor.Source) int
	DeleteText(index, length int, src editor.Source) int
	FormatLine(index, length int, f editor.LineFormat, src editor.Source)
	IndexOf(e editor.Embed) int
	Tables() *editor.TableModule
}

// Scheduler is the event loop seen from a command.
type Scheduler interface {
	RequestFrame(fn func())
	Post(fn func())
}

// Picker asks the user for an image file. An empty path means cancelled.
type Picker interface {
	Pick(ctx context.Context) (string, error)
}

// Reader turns a picked file into an image node. A nil image means there
// is nothing to insert.
type Reader interface {
	Read(ctx context.Context, path string) (*editor.Image, error)
}

type Executor struct {
	surface Surface
	sched   Scheduler
	picker  Picker
	reader  Reader
	focus   func(*mathblock.Block)
	spawn   func(func())
	log     *slog.Logger
}

type Option func(*Executor)

func WithImageSource(p Picker, r Reader) Option {
	return func(e *Executor) { e.picker, e.reader = p, r }
}

// WithMathFocus sets what happens when a new math block should take focus,
// typically opening its editing popover.
func WithMathFocus(fn func(*mathblock.Block)) Option {
	return func(e *Executor) { e.focus = fn }
}

// WithSpawn replaces the goroutine launcher used for the image prompt.
func WithSpawn(fn func(func())) Option {
	return func(e *Executor) { e.spawn = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

func NewExecutor(surface Surface, sched Scheduler, opts ...Option) *Executor {
	e := &Executor{
		surface: surface,
		sched:   sched,
		spawn:   func(fn func()) { go fn() },
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TriggerStart finds the '/' that opened the trigger before cursor, looking
// back at most TriggerScan runes and never across a line break.
func TriggerStart(s interface{ Text(index, length int) string }, cursor int) (int, bool) {
	from := max(0, cursor-TriggerScan)
	rs := []rune(s.Text(from, cursor-from))
	for i := len(rs) - 1; i >= 0; i-- {
		switch rs[i] {
		case '/':
			return from + i, true
		case '\n':
			return 0, false
		}
	}
	return 0, false
}

// Execute runs a command at the caret. It reports whether anything was
// done; a missing surface or module is a silent no-op.
func (e *Executor) Execute(ctx context.Context, id ID) bool {
	if e == nil || e.surface == nil {
		return false
	}
	if _, ok := Lookup(id); !ok {
		e.log.Debug("unknown command", "id", id)
		return false
	}
	if id == Table && e.surface.Tables() == nil {
		e.log.Debug("table module unavailable")
		return false
	}
	if id == Image && (e.picker == nil || e.reader == nil) {
		e.log.Debug("image source unavailable")
		return false
	}
	sel, ok := e.surface.Selection()
	if !ok {
		e.log.Debug("command without selection", "id", id)
		return false
	}
	cursor := sel.Index
	if start, ok := TriggerStart(e.surface, cursor); ok {
		e.surface.DeleteText(start, cursor-start, editor.SourceUser)
		cursor = start
	}
	e.log.Debug("execute command", "id", id, "index", cursor)

	switch id {
	case Text:
		e.insertFormattedLine(cursor, editor.LineBlockquote)
	case Code:
		e.insertFormattedLine(cursor, editor.LineCodeBlock)
	case Math:
		e.insertMath(cursor)
	case Table:
		e.insertTable(cursor)
	case Image:
		e.insertImage(ctx)
	}
	return true
}

func (e *Executor) insertFormattedLine(index int, f editor.LineFormat) {
	e.surface.InsertText(index, "\n", editor.Attr{}, editor.SourceUser)
	e.surface.FormatLine(index+1, 0, f, editor.SourceUser)
	e.surface.SetSelection(index+1, 0, editor.SourceSilent)
}

func (e *Executor) insertMath(index int) {
	block := mathblock.New("")
	e.surface.InsertEmbed(index, block, editor.SourceUser)
	e.surface.InsertText(index+1, "\n", editor.Attr{}, editor.SourceUser)
	e.surface.SetSelection(index+2, 0, editor.SourceSilent)
	if e.sched == nil {
		return
	}
	e.sched.RequestFrame(func() {
		// An edit in between may have removed the block.
		if e.surface.IndexOf(block) < 0 || e.focus == nil {
			return
		}
		e.focus(block)
	})
}

func (e *Executor) insertTable(index int) {
	e.surface.SetSelection(index, 0, editor.SourceSilent)
	e.surface.Tables().InsertTable(TableRows, TableCols)
	e.surface.SetSelection(e.surface.Length(), 0, editor.SourceSilent)
}

// insertImage prompts off the loop and posts the insertion back. The
// insertion point is read again after the prompt.
func (e *Executor) insertImage(ctx context.Context) {
	e.spawn(func() {
		path, err := e.picker.Pick(ctx)
		if err != nil {
			e.log.Warn("image pick failed", "err", err)
			return
		}
		if path == "" {
			return
		}
		img, err := e.reader.Read(ctx, path)
		if err != nil {
			e.log.Warn("image read failed", "path", path, "err", err)
			return
		}
		if img == nil || img.Src == "" {
			return
		}
		e.sched.Post(func() {
			index := e.surface.Length() - 1
			if sel, ok := e.surface.Selection(); ok {
				index = sel.Index
			}
			e.surface.InsertEmbed(index, img, editor.SourceUser)
			e.surface.InsertText(index+1, "\n", editor.Attr{}, editor.SourceUser)
			e.surface.SetSelection(index+2, 0, editor.SourceUser)
		})
	})
}

// HandleEnter is the second trigger path: Enter on a line whose text
// before the caret is exactly "/table" replaces that line with a table.
// It reports whether Enter was consumed.
func (e *Executor) HandleEnter() bool {
	if e == nil || e.surface == nil || e.surface.Tables() == nil {
		return false
	}
	sel, ok := e.surface.Selection()
	if !ok || sel.Length > 0 {
		return false
	}
	cmd, _ := Lookup(Table)
	n := len([]rune(cmd.Trigger))
	start := sel.Index - n
	if start < 0 || e.surface.Text(start, n) != cmd.Trigger {
		return false
	}
	if start > 0 && e.surface.Text(start-1, 1) != "\n" {
		return false
	}
	e.surface.DeleteText(start, n, editor.SourceUser)
	e.insertTable(start)
	return true
}
