package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sqweek/dialog"

	"sumdoc/internal/assist"
	"sumdoc/internal/command"
	"sumdoc/internal/config"
	"sumdoc/internal/editor"
	"sumdoc/internal/geom"
	"sumdoc/internal/loop"
	"sumdoc/internal/mathblock"
	"sumdoc/internal/measure"
	"sumdoc/internal/media"
	"sumdoc/internal/paginate"
	"sumdoc/internal/platform"
	"sumdoc/internal/render"
	"sumdoc/internal/table"
	"sumdoc/internal/toolbar"
	"sumdoc/internal/ui"
	"sumdoc/pkg/sumdoc"
)

type actionButton struct {
	id     string
	label  string
	r      geom.Rect
	active bool
}

// replyPicker lists the options of an assistant reply until one is chosen.
type replyPicker struct {
	resp   assist.Response
	cursor int
	rows   []geom.Rect
}

type App struct {
	cfg   config.Config
	log   *slog.Logger
	theme ui.Theme

	state    *editor.State
	loop     *loop.Loop
	ctx      context.Context
	cancel   context.CancelFunc
	tables   *table.Controller
	toolbar  *toolbar.Positioner
	exec     *command.Executor
	dropdown command.Dropdown
	popover  *mathblock.Popover
	math     mathblock.Renderer
	pager    *paginate.Pager
	detach   []func()

	faces  *faceBank
	images *imageCache
	labels *labelCache

	frameBuffer *render.FrameBuffer
	canvas      *ebiten.Image
	docLayer    *ebiten.Image

	uiScales   []float32
	uiScaleIdx int
	fontSizePt float64
	layout     ui.Layout
	meta       sumdoc.Metadata
	filePath   string
	password   string
	status     string
	frameTick  uint64

	showHelp    bool
	helpRect    geom.Rect
	showPages   bool
	pagesScroll int
	prompt      *prompt
	reply       *replyPicker

	undoHistory []editor.Snapshot
	redoHistory []editor.Snapshot
	maxHistory  int

	topActions     []actionButton
	toolbarActions []actionButton
	formatButtons  []actionButton
	tableButtons   []actionButton
	dropdownRows   []geom.Rect

	pointerIn     bool
	lastX, lastY  int
	dragSelecting bool
	dragAnchor    int

	screenW int
	screenH int
}

func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	face, err := measure.NewFace(cfg.Page.FontSizePt, measure.Style{})
	if err != nil {
		return nil, fmt.Errorf("load document font: %w", err)
	}
	a := &App{
		cfg:         cfg,
		log:         log,
		theme:       ui.DefaultTheme(),
		state:       editor.NewState(editor.WithMetrics(face, cfg.Page.ContentWidth())),
		loop:        loop.New(time.Now()),
		popover:     mathblock.NewPopover(),
		math:        mathblock.NewTreeBlood(),
		faces:       newFaceBank(cfg.Page.FontSizePt),
		images:      newImageCache(log),
		labels:      newLabelCache(),
		uiScales:    []float32{1.0, 1.25, 1.5, 2.0},
		fontSizePt:  cfg.Page.FontSizePt,
		meta:        sumdoc.NewDocument("", "Untitled").Metadata,
		status:      "Untitled summary",
		maxHistory:  200,
		undoHistory: make([]editor.Snapshot, 0, 64),
		redoHistory: make([]editor.Snapshot, 0, 64),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.pager, err = paginate.NewPager(a.state.PlainText(), cfg.Page.FontSizePt, cfg.Page.ContentHeight(), paginate.FaceBox(cfg.Page.ContentWidth()))
	if err != nil {
		return nil, fmt.Errorf("paginate: %w", err)
	}
	a.attach()
	a.state.SetSelection(0, 0, editor.SourceSilent)
	return a, nil
}

// attach wires the controllers to the editing surface. The surface lives
// as long as the App; new and opened documents are loaded into it.
func (a *App) attach() {
	tables, disposeTables := table.Attach(a.state, a.loop,
		table.WithLimits(table.LimitsFrom(a.cfg.Table)),
		table.WithAlerter(dialogAlerter{title: a.cfg.Window.Title}),
		table.WithLogger(a.log),
	)
	bar, disposeBar := toolbar.Attach(a.state,
		toolbar.WithGuard(a.popover),
		toolbar.WithConfig(a.cfg.Toolbar),
		toolbar.WithLogger(a.log),
	)
	a.tables, a.toolbar = tables, bar
	a.exec = command.NewExecutor(a.state, a.loop,
		command.WithImageSource(media.NewPicker(), media.NewReader()),
		command.WithMathFocus(a.openMathPrompt),
		command.WithLogger(a.log),
	)
	a.detach = append(a.detach,
		disposeTables,
		disposeBar,
		a.state.OnTextChange(func(editor.TextChange) { a.pager.Edit(a.state.PlainText()) }),
		a.state.OnSelectionChange(func(ch editor.SelectionChange) {
			if ch.Range != nil {
				a.dropdown.Update(a.state, ch.Range.Index)
			} else {
				a.dropdown.Close()
			}
		}),
	)
}

func (a *App) Run() error {
	ebiten.SetWindowTitle(a.cfg.Window.Title)
	ebiten.SetWindowSize(a.cfg.Window.WidthPx, a.cfg.Window.HeightPx)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(640, 480, -1, -1)
	defer a.Close()
	if err := ebiten.RunGame(a); err != nil {
		return fmt.Errorf("run game loop: %w", err)
	}
	return nil
}

// Close stops pending image prompts and detaches every controller.
func (a *App) Close() {
	a.cancel()
	for _, fn := range a.detach {
		fn()
	}
	a.detach = nil
}

func (a *App) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	a.screenW, a.screenH = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

func (a *App) scale() float32 { return a.uiScales[a.uiScaleIdx] }

func (a *App) Update() error {
	a.frameTick++
	a.loop.Tick(time.Now())
	a.syncViewport()

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)

	if a.prompt != nil {
		a.handlePrompt(ctrl)
		return nil
	}
	if a.reply != nil {
		a.handleReply()
		return nil
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		switch {
		case a.showHelp:
			a.showHelp = false
		case a.dropdown.IsOpen():
			a.dropdown.Close()
		case a.showPages:
			a.showPages = false
		}
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		a.showHelp = !a.showHelp
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		a.invokeAction("pages")
	}
	if a.showHelp {
		if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
			x, y := ebiten.CursorPosition()
			if !a.helpRect.Contains(x, y) {
				a.showHelp = false
			}
		}
		return nil
	}

	a.handlePointer(shift)
	a.handleWheel()
	if a.handleKeys(ctrl, shift) {
		a.ensureCaretVisible()
	}
	return nil
}

// syncViewport recomputes the chrome layout and tells the surface about
// size changes the same way a window resize event would.
func (a *App) syncViewport() {
	w, h := a.screenW, a.screenH
	if w <= 0 || h <= 0 {
		w, h = a.cfg.Window.WidthPx, a.cfg.Window.HeightPx
	}
	l := ui.ComputeLayout(w, h, a.theme, a.scale(), a.cfg.Page)
	if l == a.layout {
		return
	}
	a.layout = l
	a.state.SetWidth(l.Content.W)
	a.toolbar.SetContainer(l.Content.X, l.Content.Y, w)
	a.state.Dispatch(&platform.Event{Type: platform.EventResize, Width: w, Height: h})
}

// resetPages re-flows the pages from a freshly loaded document. Edits go to
// the live page and only setFontSize re-flows otherwise.
func (a *App) resetPages() {
	if err := a.pager.Reset(a.state.PlainText()); err != nil {
		a.log.Warn("paginate", "err", err)
	}
}

func (a *App) handlePointer(shift bool) {
	x, y := ebiten.CursorPosition()
	c := a.layout.Content
	vx, vy := x-c.X, y-c.Y
	ov := a.tables.Overlay()
	inside := !a.showPages && (c.Contains(x, y) || ov.Visible && ov.Controls.Contains(vx, vy))

	if x != a.lastX || y != a.lastY {
		a.lastX, a.lastY = x, y
		a.state.Dispatch(&platform.Event{Type: platform.EventPointerMove, X: vx, Y: vy, InEditor: inside})
		if a.pointerIn && !inside {
			a.state.Dispatch(&platform.Event{Type: platform.EventPointerLeave, X: vx, Y: vy, InEditor: true})
		}
		if a.dragSelecting && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
			hit := a.state.HitTest(vx, vy)
			a.state.SetSelection(a.dragAnchor, hit.Index-a.dragAnchor, editor.SourceUser)
		}
	}
	a.pointerIn = inside
	a.updateCursorShape(inside)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if a.clickChrome(x, y) {
			return
		}
		if !inside {
			return
		}
		ev := &platform.Event{Type: platform.EventPointerDown, X: vx, Y: vy, InEditor: true, Shift: shift}
		a.state.Dispatch(ev)
		if ev.DefaultPrevented() {
			return
		}
		a.placeCaret(vx, vy, shift)
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		a.state.Dispatch(&platform.Event{Type: platform.EventPointerUp, X: vx, Y: vy, InEditor: inside})
		if a.dragSelecting {
			a.dragSelecting = false
			a.state.Dispatch(&platform.Event{Type: platform.EventNativeSelectionChange})
		}
	}
}

func (a *App) updateCursorShape(inside bool) {
	switch a.tables.Cursor() {
	case table.CursorColResize:
		ebiten.SetCursorShape(ebiten.CursorShapeEWResize)
	case table.CursorRowResize:
		ebiten.SetCursorShape(ebiten.CursorShapeNSResize)
	default:
		if inside {
			ebiten.SetCursorShape(ebiten.CursorShapeText)
		} else {
			ebiten.SetCursorShape(ebiten.CursorShapeDefault)
		}
	}
}

func (a *App) placeCaret(vx, vy int, shift bool) {
	hit := a.state.HitTest(vx, vy)
	if hit.InTable() && hit.Row >= 0 && hit.Col >= 0 {
		a.state.FocusCell(hit.Index, hit.Row, hit.Col)
		return
	}
	if it, ok := a.state.Item(hit.Index); ok {
		if b, ok := it.Embed.(*mathblock.Block); ok {
			a.state.SetSelection(hit.Index, 0, editor.SourceUser)
			a.openMathPrompt(b)
			return
		}
	}
	if sel, ok := a.state.Selection(); ok && shift {
		a.state.SetSelection(sel.Index, hit.Index-sel.Index, editor.SourceUser)
		a.dragAnchor = sel.Index
	} else {
		a.state.SetSelection(hit.Index, 0, editor.SourceUser)
		a.dragAnchor = hit.Index
	}
	a.dragSelecting = true
}

// clickChrome routes a click to floating controls and bars. Floating
// controls come first because they are drawn over the document.
func (a *App) clickChrome(x, y int) bool {
	if a.dropdown.IsOpen() {
		items := a.dropdown.Items()
		for i, r := range a.dropdownRows {
			if r.Contains(x, y) && i < len(items) {
				a.runCommand(items[i].ID)
				return true
			}
		}
	}
	for _, btn := range a.formatButtons {
		if btn.r.Contains(x, y) {
			a.invokeAction(btn.id)
			return true
		}
	}
	for _, btn := range a.tableButtons {
		if btn.r.Contains(x, y) {
			a.invokeAction(btn.id)
			return true
		}
	}
	for _, btn := range a.topActions {
		if btn.r.Contains(x, y) {
			a.invokeAction(btn.id)
			return true
		}
	}
	for _, btn := range a.toolbarActions {
		if btn.r.Contains(x, y) {
			a.invokeAction(btn.id)
			return true
		}
	}
	return false
}

func (a *App) handleWheel() {
	_, wy := ebiten.Wheel()
	if wy == 0 {
		return
	}
	delta := int(wy * 42)
	if a.showPages {
		limit := max(ui.SheetsHeight(a.cfg.Page, a.pager.Len())-a.layout.Page.H, 0)
		a.pagesScroll = geom.Clamp(a.pagesScroll-delta, 0, limit)
		return
	}
	a.scrollTo(a.state.Scroll() - delta)
}

func (a *App) scrollTo(y int) {
	limit := max(a.state.ContentHeight()-a.layout.Content.H+a.state.Metrics().LineHeight(), 0)
	y = geom.Clamp(y, 0, limit)
	if y == a.state.Scroll() {
		return
	}
	a.state.SetScroll(y)
	a.state.Dispatch(&platform.Event{Type: platform.EventScroll, DeltaY: y})
}

func (a *App) ensureCaretVisible() {
	sel, ok := a.state.Selection()
	if !ok {
		return
	}
	box, ok := a.state.Box(sel.End())
	if !ok {
		return
	}
	scroll, h := a.state.Scroll(), a.layout.Content.H
	switch {
	case box.Y < scroll:
		a.scrollTo(box.Y)
	case box.Bottom() > scroll+h:
		a.scrollTo(box.Bottom() - h)
	}
}

// handleKeys applies keyboard input and reports whether anything moved
// or changed.
func (a *App) handleKeys(ctrl, shift bool) bool {
	pressed := inpututil.IsKeyJustPressed
	if ctrl {
		switch {
		case pressed(ebiten.KeyZ):
			a.undo()
		case pressed(ebiten.KeyY):
			a.redo()
		case pressed(ebiten.KeyN):
			a.invokeAction("new")
		case pressed(ebiten.KeyO):
			a.invokeAction("open")
		case pressed(ebiten.KeyS) && shift:
			a.invokeAction("save_as")
		case pressed(ebiten.KeyS):
			a.invokeAction("save")
		case pressed(ebiten.KeyP):
			a.invokeAction("export")
		case pressed(ebiten.KeyL):
			a.invokeAction("lock")
		case pressed(ebiten.KeyA):
			a.state.SelectAll()
		case pressed(ebiten.KeyC):
			a.copySelection(false)
		case pressed(ebiten.KeyX):
			a.copySelection(true)
		case pressed(ebiten.KeyV) && shift:
			a.invokeAction("reply")
		case pressed(ebiten.KeyV):
			a.paste()
		case pressed(ebiten.KeyB):
			a.invokeAction("bold")
		case pressed(ebiten.KeyI):
			a.invokeAction("italic")
		case pressed(ebiten.KeyU):
			a.invokeAction("underline")
		case pressed(ebiten.KeyH) && shift:
			a.invokeAction("highlight")
		case pressed(ebiten.KeyK) && shift:
			a.invokeAction("code")
		case pressed(ebiten.KeyEqual) || pressed(ebiten.KeyKPAdd):
			a.invokeAction("scale_up")
		case pressed(ebiten.KeyMinus) || pressed(ebiten.KeyKPSubtract):
			a.invokeAction("scale_down")
		case pressed(ebiten.KeyPeriod):
			a.invokeAction("font_up")
		case pressed(ebiten.KeyComma):
			a.invokeAction("font_down")
		case pressed(ebiten.KeyArrowLeft):
			a.state.MoveWord(-1)
		case pressed(ebiten.KeyArrowRight):
			a.state.MoveWord(1)
		default:
			return false
		}
		return true
	}
	if a.showPages {
		return false
	}

	if a.dropdown.IsOpen() {
		switch {
		case pressed(ebiten.KeyArrowUp):
			a.dropdown.Move(-1)
			return false
		case pressed(ebiten.KeyArrowDown):
			a.dropdown.Move(1)
			return false
		case pressed(ebiten.KeyEnter) || pressed(ebiten.KeyKPEnter):
			if cmd, ok := a.dropdown.Selected(); ok {
				a.runCommand(cmd.ID)
				return true
			}
			a.dropdown.Close()
		}
	}

	handled := true
	switch {
	case pressed(ebiten.KeyArrowLeft):
		a.state.MoveCaret(-1, shift)
	case pressed(ebiten.KeyArrowRight):
		a.state.MoveCaret(1, shift)
	case pressed(ebiten.KeyArrowUp):
		a.moveLine(-1, shift)
	case pressed(ebiten.KeyArrowDown):
		a.moveLine(1, shift)
	case pressed(ebiten.KeyHome):
		a.moveLineEdge(false, shift)
	case pressed(ebiten.KeyEnd):
		a.moveLineEdge(true, shift)
	case pressed(ebiten.KeyEnter) || pressed(ebiten.KeyKPEnter):
		a.pushUndoSnapshot()
		if a.exec.HandleEnter() {
			a.status = "Inserted table"
		} else {
			a.state.TypeText("\n")
		}
	case pressed(ebiten.KeyBackspace):
		a.pushUndoSnapshot()
		a.state.Backspace()
	case pressed(ebiten.KeyDelete):
		a.pushUndoSnapshot()
		a.state.DeleteForward()
	case pressed(ebiten.KeyTab):
		if !a.moveCell(shift) {
			a.pushUndoSnapshot()
			a.state.TypeText("    ")
		}
	default:
		handled = false
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x20 || r == 0x7F || !utf8.ValidRune(r) {
			continue
		}
		a.pushUndoSnapshot()
		a.state.TypeText(string(r))
		handled = true
		if r != '/' {
			continue
		}
		if _, _, inCell := a.state.FocusedCell(); inCell {
			continue
		}
		if sel, ok := a.state.Selection(); ok {
			a.dropdown.Open(sel.Index - 1)
		}
	}
	return handled
}

// moveLine moves the caret one visual line up or down, keeping its x.
func (a *App) moveLine(dir int, extend bool) {
	sel, ok := a.state.Selection()
	if !ok {
		return
	}
	caret := sel.Index
	if extend {
		caret = sel.End()
	}
	box, ok := a.state.Box(caret)
	if !ok {
		return
	}
	lineH := a.state.Metrics().LineHeight()
	y := box.Y - a.state.Scroll() - lineH/2
	if dir > 0 {
		y = box.Bottom() - a.state.Scroll() + lineH/2
	}
	hit := a.state.HitTest(box.X, y)
	if extend {
		a.state.SetSelection(sel.Index, hit.Index-sel.Index, editor.SourceUser)
		return
	}
	a.state.SetSelection(hit.Index, 0, editor.SourceUser)
}

func (a *App) moveLineEdge(end, extend bool) {
	sel, ok := a.state.Selection()
	if !ok {
		return
	}
	box, ok := a.state.Box(sel.Index)
	if !ok {
		return
	}
	x := 0
	if end {
		x = a.state.Width() + 1
	}
	hit := a.state.HitTest(x, box.Y-a.state.Scroll()+box.H/2)
	if extend {
		a.state.SetSelection(sel.Index, hit.Index-sel.Index, editor.SourceUser)
		return
	}
	a.state.SetSelection(hit.Index, 0, editor.SourceUser)
}

// moveCell steps the focused table cell forward (or back with shift).
func (a *App) moveCell(back bool) bool {
	t, c, ok := a.state.FocusedCell()
	if !ok {
		return false
	}
	rows, cols := t.Size()
	next := c.Row*cols + c.Col + 1
	if back {
		next = c.Row*cols + c.Col - 1
	}
	if next >= 0 && next < rows*cols {
		a.state.FocusCell(a.state.IndexOf(t), next/cols, next%cols)
	}
	return true
}

// runCommand executes a slash command the same way the dropdown does.
func (a *App) runCommand(id command.ID) {
	a.pushUndoSnapshot()
	a.dropdown.Close()
	if !a.exec.Execute(a.ctx, id) {
		a.status = "Command unavailable: " + string(id)
		return
	}
	a.log.Debug("command executed", "id", id)
	a.status = "Inserted " + string(id)
}

// insertCommand types the trigger at the caret and executes it, so the
// toolbar buttons share the slash-command path.
func (a *App) insertCommand(id command.ID) {
	cmd, ok := command.Lookup(id)
	if !ok {
		return
	}
	if _, _, inCell := a.state.FocusedCell(); inCell {
		a.status = "Leave the table before inserting a block"
		return
	}
	if _, ok := a.state.Selection(); !ok {
		a.state.SetSelection(a.state.Length()-1, 0, editor.SourceUser)
	}
	a.pushUndoSnapshot()
	a.state.TypeText(cmd.Trigger)
	a.dropdown.Close()
	if !a.exec.Execute(a.ctx, id) {
		a.status = "Command unavailable: " + string(id)
	}
}

func (a *App) openMathPrompt(b *mathblock.Block) {
	if b == nil || a.state.IndexOf(b) < 0 {
		return
	}
	a.popover.Open(b)
	a.dragSelecting = false
	a.prompt = &prompt{
		title:   "Math (LaTeX)",
		input:   b.Tex(),
		preview: true,
		onEdit:  a.popover.SetDraft,
		submit: func(tex string) error {
			a.pushUndoSnapshot()
			a.popover.SetDraft(tex)
			if !a.popover.Commit(a.state) {
				return errBlockGone
			}
			return nil
		},
		cancel: a.popover.Cancel,
	}
}

var errBlockGone = errors.New("the math block was removed")

func (a *App) toggleMark(m toolbar.Mark) {
	if _, ok := a.toolbar.SavedRange(); !ok {
		a.status = "Select text to format"
		return
	}
	a.pushUndoSnapshot()
	a.toolbar.Toggle(m)
}

func (a *App) copySelection(cut bool) {
	sel, ok := a.state.Selection()
	if !ok || sel.Length == 0 {
		return
	}
	text := strings.ReplaceAll(a.state.SelectedText(), string(editor.ObjectReplacement), "")
	if err := clipboard.WriteAll(text); err != nil {
		a.fail("Copy", err)
		return
	}
	if cut {
		a.pushUndoSnapshot()
		a.state.DeleteText(sel.Index, sel.Length, editor.SourceUser)
		a.state.SetSelection(sel.Index, 0, editor.SourceUser)
	}
}

func (a *App) paste() {
	text, err := clipboard.ReadAll()
	if err != nil {
		a.fail("Paste", err)
		return
	}
	if text == "" {
		return
	}
	a.pushUndoSnapshot()
	a.state.TypeText(text)
}

// pasteReply reads an assistant reply from the clipboard and applies it.
// Option lists open a picker first.
func (a *App) pasteReply() {
	raw, err := clipboard.ReadAll()
	if err != nil {
		a.fail("Reply", err)
		return
	}
	resp := assist.Classify([]byte(raw))
	a.log.Debug("assistant reply", "kind", resp.Kind)
	switch resp.Kind {
	case assist.SelectionList:
		a.reply = &replyPicker{resp: resp}
	case assist.Fallback:
		a.status = "Reply not understood"
	default:
		a.applyReply(resp)
	}
}

func (a *App) applyReply(resp assist.Response) {
	a.pushUndoSnapshot()
	changed, err := assist.Apply(a.state, resp)
	if err != nil {
		a.fail("Reply", err)
		return
	}
	if changed {
		a.status = "Applied " + resp.Kind.String()
	}
}

func (a *App) handleReply() {
	r := a.reply
	n := len(r.resp.Options)
	choose := -1
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		a.reply = nil
		return
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		r.cursor = (r.cursor - 1 + n) % n
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		r.cursor = (r.cursor + 1) % n
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyKPEnter):
		choose = r.cursor
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		x, y := ebiten.CursorPosition()
		for i, row := range r.rows {
			if row.Contains(x, y) {
				choose = i
			}
		}
		if choose < 0 {
			a.reply = nil
			return
		}
	}
	if choose < 0 {
		return
	}
	a.reply = nil
	if resp, ok := r.resp.Choose(choose); ok {
		a.applyReply(resp)
	}
}

func (a *App) invokeAction(id string) {
	switch id {
	case "new":
		a.newDocument()
	case "open":
		if err := a.openDocumentDialog(); err != nil {
			a.fail("Open", err)
		}
	case "save":
		if err := a.saveDocument(false); err != nil {
			a.fail("Save", err)
		}
	case "save_as":
		if err := a.saveDocument(true); err != nil {
			a.fail("Save As", err)
		}
	case "export":
		if err := a.exportPDF(); err != nil {
			a.fail("Export", err)
		}
	case "lock":
		a.askSavePassword()
	case "reply":
		a.pasteReply()
	case "undo":
		a.undo()
	case "redo":
		a.redo()
	case "pages":
		a.showPages = !a.showPages
		a.pagesScroll = 0
		a.dropdown.Close()
	case "help":
		a.showHelp = !a.showHelp
	case "scale_up", "scale_down":
		delta := 1
		if id == "scale_down" {
			delta = -1
		}
		a.uiScaleIdx = geom.Clamp(a.uiScaleIdx+delta, 0, len(a.uiScales)-1)
		a.faces.resetUI()
		a.status = fmt.Sprintf("UI scale %.0f%%", a.scale()*100)
	case "font_up":
		a.setFontSize(a.fontSizePt + 1)
	case "font_down":
		a.setFontSize(a.fontSizePt - 1)
	case "bold":
		a.toggleMark(toolbar.Bold)
	case "italic":
		a.toggleMark(toolbar.Italic)
	case "underline":
		a.toggleMark(toolbar.Underline)
	case "highlight":
		a.toggleMark(toolbar.Highlight)
	case "code":
		a.toggleMark(toolbar.Code)
	case "row_above", "row_below":
		side := table.Below
		if id == "row_above" {
			side = table.Above
		}
		a.pushUndoSnapshot()
		if err := a.tables.AddRow(side); err != nil {
			a.status = err.Error()
		}
	case "col_left", "col_right":
		side := table.Right
		if id == "col_left" {
			side = table.Left
		}
		a.pushUndoSnapshot()
		if err := a.tables.AddColumn(side); err != nil {
			a.status = err.Error()
		}
	default:
		if cmd, ok := command.Lookup(command.ID(strings.TrimPrefix(id, "cmd_"))); ok {
			a.insertCommand(cmd.ID)
		}
	}
}

func (a *App) setFontSize(pt float64) {
	pt = max(8, min(pt, 48))
	if pt == a.fontSizePt {
		return
	}
	face, err := measure.NewFace(pt, measure.Style{})
	if err != nil {
		a.fail("Font size", err)
		return
	}
	a.fontSizePt = pt
	a.faces.reset(pt)
	a.state.SetMetrics(face)
	a.state.Dispatch(&platform.Event{Type: platform.EventResize, Width: a.screenW, Height: a.screenH})
	if _, err := a.pager.SetFontSize(pt); err != nil {
		a.log.Warn("paginate", "err", err)
	}
	a.status = fmt.Sprintf("Font size %.0fpt", pt)
}

func (a *App) pushUndoSnapshot() {
	a.undoHistory = append(a.undoHistory, a.state.Snapshot())
	if len(a.undoHistory) > a.maxHistory {
		a.undoHistory = a.undoHistory[1:]
	}
	a.redoHistory = a.redoHistory[:0]
}

func (a *App) undo() {
	if len(a.undoHistory) == 0 {
		return
	}
	last := a.undoHistory[len(a.undoHistory)-1]
	a.undoHistory = a.undoHistory[:len(a.undoHistory)-1]
	a.redoHistory = append(a.redoHistory, a.state.Snapshot())
	a.state.Restore(last)
	a.dropdown.Close()
}

func (a *App) redo() {
	if len(a.redoHistory) == 0 {
		return
	}
	last := a.redoHistory[len(a.redoHistory)-1]
	a.redoHistory = a.redoHistory[:len(a.redoHistory)-1]
	a.undoHistory = append(a.undoHistory, a.state.Snapshot())
	a.state.Restore(last)
	a.dropdown.Close()
}

// fail reports err in the status bar. A cancelled dialog is not an error.
func (a *App) fail(action string, err error) {
	if errors.Is(err, dialog.ErrCancelled) {
		a.status = action + " cancelled"
		return
	}
	a.log.Warn(strings.ToLower(action)+" failed", "err", err)
	a.status = action + " failed: " + err.Error()
}
