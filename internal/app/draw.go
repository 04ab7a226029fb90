package app

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font"

	"sumdoc/internal/command"
	"sumdoc/internal/editor"
	"sumdoc/internal/geom"
	"sumdoc/internal/mathblock"
	"sumdoc/internal/measure"
	"sumdoc/internal/render"
	"sumdoc/internal/toolbar"
	"sumdoc/internal/ui"
)

var topActionDefs = []actionButton{
	{id: "new", label: "New"},
	{id: "open", label: "Open"},
	{id: "save", label: "Save"},
	{id: "save_as", label: "Save As"},
	{id: "export", label: "Export PDF"},
	{id: "lock", label: "Lock"},
	{id: "reply", label: "Paste Reply"},
	{id: "pages", label: "Pages"},
	{id: "undo", label: "Undo"},
	{id: "redo", label: "Redo"},
	{id: "help", label: "Help"},
}

var toolbarActionDefs = []actionButton{
	{id: "cmd_math", label: "/math"},
	{id: "cmd_table", label: "/table"},
	{id: "cmd_code", label: "/code"},
	{id: "cmd_text", label: "/text"},
	{id: "cmd_image", label: "/image"},
	{id: "font_down", label: "A-"},
	{id: "font_up", label: "A+"},
}

var formatDefs = []struct {
	id    string
	label string
	mark  toolbar.Mark
}{
	{"bold", "B", toolbar.Bold},
	{"italic", "I", toolbar.Italic},
	{"underline", "U", toolbar.Underline},
	{"highlight", "H", toolbar.Highlight},
	{"code", "</>", toolbar.Code},
}

var tableButtonDefs = []actionButton{
	{id: "row_above", label: "+Row above"},
	{id: "row_below", label: "+Row below"},
	{id: "col_left", label: "+Col left"},
	{id: "col_right", label: "+Col right"},
}

var helpLines = []string{
	"Type / to open the block menu: /math /table /code /text /image",
	"Enter on an empty line after /table inserts a 3x3 table",
	"Tab / Shift+Tab move between table cells",
	"Drag a table border to resize a row or column",
	"Select text for the format bar: Ctrl+B I U, Ctrl+Shift+H highlight, Ctrl+Shift+K code",
	"Click a formula to edit its LaTeX source",
	"Ctrl+N new, Ctrl+O open, Ctrl+S save, Ctrl+Shift+S save as",
	"Ctrl+L set a password, Ctrl+P export PDF",
	"Ctrl+Shift+V apply an assistant reply from the clipboard",
	"Ctrl+Z undo, Ctrl+Y redo, Ctrl+= / Ctrl+- UI scale, Ctrl+. / Ctrl+, font size",
	"F2 paginated view, F1 this help, Ctrl+Q quit",
}

func (a *App) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if a.frameBuffer == nil || a.frameBuffer.W != w || a.frameBuffer.H != h {
		a.frameBuffer = render.NewFrameBuffer(w, h)
		a.canvas = ebiten.NewImage(w, h)
	}
	l := a.layout
	fb := a.frameBuffer

	ui.DrawShell(fb, l, a.theme)
	menuFace := a.faces.ui(11, false, a.scale())
	toolbarFace := a.faces.ui(11, false, a.scale())
	statusFace := a.faces.ui(10, false, a.scale())

	a.layoutTopActions(menuFace)
	a.layoutToolbarActions(toolbarFace)
	a.drawButtonBackgrounds()
	a.formatButtons = a.formatButtons[:0]
	a.tableButtons = a.tableButtons[:0]
	a.dropdownRows = a.dropdownRows[:0]

	if a.showPages {
		a.drawPageSheets()
	} else {
		ui.DrawSheet(fb, l.Page, a.theme, a.scale())
		a.drawDocumentBlocks()
	}

	a.canvas.WritePixels(fb.Pixels)
	screen.DrawImage(a.canvas, nil)

	a.drawButtonLabels(screen, menuFace, a.topActions, a.theme.MenuText)
	a.drawButtonLabels(screen, toolbarFace, a.toolbarActions, a.theme.Text)
	text.Draw(screen, fmt.Sprintf("%.0fpt", a.fontSizePt), toolbarFace,
		a.lastToolbarRight()+int(10*a.scale()), l.MenuH+l.ToolbarH/2+5, a.theme.Muted)

	if a.showPages {
		a.drawPagesText(screen)
	} else {
		a.drawDocumentText(screen)
		a.drawTableOverlay(screen, toolbarFace)
		a.drawFormatBar(screen, toolbarFace)
		a.drawDropdown(screen, toolbarFace)
	}
	a.drawStatus(screen, statusFace, w, h)
	a.drawReplyPicker(screen, toolbarFace)
	a.drawPrompt(screen)
	if a.showHelp {
		a.drawHelp(screen, toolbarFace)
	} else {
		a.helpRect = geom.Rect{}
	}
}

func (a *App) layoutTopActions(face font.Face) {
	s := a.scale()
	pad, gap := int(9*s), int(4*s)
	x := int(8 * s)
	y := int(4 * s)
	bh := a.layout.MenuH - 2*y
	a.topActions = a.topActions[:0]
	for _, def := range topActionDefs {
		bw := textWidth(face, def.label) + 2*pad
		def.r = geom.Rect{X: x, Y: y, W: bw, H: bh}
		def.active = def.id == "pages" && a.showPages || def.id == "help" && a.showHelp
		a.topActions = append(a.topActions, def)
		x += bw + gap
	}
}

func (a *App) layoutToolbarActions(face font.Face) {
	s := a.scale()
	pad, gap := int(10*s), int(6*s)
	x := int(8 * s)
	y := a.layout.MenuH + int(5*s)
	bh := a.layout.ToolbarH - int(10*s)
	a.toolbarActions = a.toolbarActions[:0]
	for i, def := range toolbarActionDefs {
		if i == 5 {
			x += int(14 * s)
		}
		bw := textWidth(face, def.label) + 2*pad
		def.r = geom.Rect{X: x, Y: y, W: bw, H: bh}
		a.toolbarActions = append(a.toolbarActions, def)
		x += bw + gap
	}
}

func (a *App) lastToolbarRight() int {
	if n := len(a.toolbarActions); n > 0 {
		return a.toolbarActions[n-1].r.Right()
	}
	return 0
}

func (a *App) drawButtonBackgrounds() {
	fb := a.frameBuffer
	for _, btn := range a.topActions {
		c := a.theme.TopButton
		if btn.active {
			c = a.theme.Caret
		}
		fb.Fill(btn.r, c)
	}
	for _, btn := range a.toolbarActions {
		fb.Fill(btn.r, a.theme.Control)
		fb.Stroke(btn.r, 1, a.theme.Border)
	}
}

func (a *App) drawButtonLabels(screen *ebiten.Image, face font.Face, buttons []actionButton, clr color.RGBA) {
	for _, btn := range buttons {
		drawCentered(screen, btn.label, face, btn.r, clr)
	}
}

// lineMetrics places glyphs inside the editor's line boxes.
type lineMetrics struct {
	lineH    int
	baseline int
}

func (a *App) docLineMetrics() lineMetrics {
	lm := lineMetrics{lineH: a.state.Metrics().LineHeight()}
	f := a.faces.get(measure.Style{})
	if f == nil {
		lm.baseline = lm.lineH - 4
		return lm
	}
	m := f.Font().Metrics()
	lm.baseline = m.Ascent.Round() + (lm.lineH-m.Ascent.Round()-m.Descent.Round())/2
	return lm
}

// viewBox is the item's box in viewport coordinates.
func (a *App) viewBox(index int) (geom.Rect, bool) {
	b, ok := a.state.Box(index)
	if !ok {
		return geom.Rect{}, false
	}
	b = a.state.ToViewport(b)
	if b.Bottom() < 0 || b.Y > a.layout.Content.H {
		return b, false
	}
	return b, true
}

// drawDocumentBlocks paints everything behind the glyphs: block
// backgrounds, marks, tables, embeds, the selection and the caret.
func (a *App) drawDocumentBlocks() {
	fb := a.frameBuffer
	c := a.layout.Content
	fb.Clip(c)
	defer fb.Unclip()
	toScreen := func(r geom.Rect) geom.Rect { return r.Offset(c.X, c.Y) }

	n := a.state.Length()
	start := 0
	for i := 0; i < n; i++ {
		it, _ := a.state.Item(i)
		if !it.IsNewline() && i < n-1 {
			continue
		}
		if it.Line != editor.LinePlain {
			a.drawLineBlock(start, i, it.Line, toScreen)
		}
		start = i + 1
	}

	focusTable, focus, inCell := a.state.FocusedCell()
	for i := 0; i < n; i++ {
		box, visible := a.viewBox(i)
		if !visible {
			continue
		}
		it, _ := a.state.Item(i)
		switch e := it.Embed.(type) {
		case nil:
			if it.Attr.Code {
				fb.Fill(toScreen(box), a.theme.CodeBg)
			}
			if it.Attr.Highlight {
				fb.Blend(toScreen(box), a.theme.Highlight)
			}
		case *editor.Table:
			g, ok := a.state.TableGeometry(e)
			if !ok {
				continue
			}
			rows, cols := e.Size()
			for r := 0; r < rows; r++ {
				for col := 0; col < cols; col++ {
					fb.Stroke(toScreen(g.CellRect(r, col)), 1, a.theme.Grid)
				}
			}
			if inCell && focusTable == e {
				fb.Stroke(toScreen(g.CellRect(focus.Row, focus.Col)), 2, a.theme.Accent)
			}
		case *mathblock.Block:
			r := toScreen(box)
			fb.Fill(r, a.theme.CodeBg)
			fb.Stroke(r, 1, a.theme.Border)
			if a.popover.IsOpen() && a.popover.Block() == e {
				fb.Stroke(r, 2, a.theme.Accent)
			}
		case *editor.Image:
			if a.images.get(e) == nil {
				r := toScreen(box)
				fb.Fill(r, a.theme.Control)
				fb.Stroke(r, 1, a.theme.Border)
			}
		}
	}

	sel, ok := a.state.Selection()
	if !ok {
		return
	}
	for i := sel.Index; i < sel.End(); i++ {
		box, visible := a.viewBox(i)
		if !visible {
			continue
		}
		if box.W == 0 {
			box.W = 4
		}
		fb.Blend(toScreen(box), a.theme.Selection)
	}
	if sel.Length == 0 && !inCell && (a.frameTick/30)%2 == 0 {
		if box, visible := a.viewBox(sel.Index); visible {
			it, _ := a.state.Item(sel.Index)
			if it.IsEmbed() {
				fb.Stroke(toScreen(box), 2, a.theme.Caret)
				return
			}
			fb.Fill(geom.Rect{X: c.X + box.X, Y: c.Y + box.Y, W: max(int(2*a.scale()), 1), H: box.H}, a.theme.Caret)
		}
	}
}

// drawLineBlock paints the background of the lines from..to, which share
// one block format.
func (a *App) drawLineBlock(from, to int, f editor.LineFormat, toScreen func(geom.Rect) geom.Rect) {
	var span geom.Rect
	found := false
	for i := from; i <= to; i++ {
		b, ok := a.state.Box(i)
		if !ok {
			continue
		}
		if !found {
			span, found = b, true
			continue
		}
		span = span.Union(b)
	}
	if !found {
		return
	}
	span = a.state.ToViewport(span)
	top, bottom := span.Y, span.Bottom()
	if bottom < 0 || top > a.layout.Content.H {
		return
	}
	r := toScreen(geom.Rect{X: 0, Y: top, W: a.state.Width(), H: bottom - top})
	switch f {
	case editor.LineCodeBlock:
		a.frameBuffer.Fill(r, a.theme.CodeBg)
		a.frameBuffer.Stroke(r, 1, a.theme.Border)
	case editor.LineBlockquote:
		a.frameBuffer.Fill(geom.Rect{X: r.X, Y: r.Y, W: max(int(4*a.scale()), 2), H: r.H}, a.theme.QuoteBar)
	}
}

// segment is a run of glyphs drawn with one face on one visual line.
type segment struct {
	text  []rune
	attr  editor.Attr
	code  bool
	x, y  int
	width int
}

func (a *App) drawDocumentText(screen *ebiten.Image) {
	c := a.layout.Content
	if c.W <= 0 || c.H <= 0 {
		return
	}
	if a.docLayer == nil || a.docLayer.Bounds().Dx() != c.W || a.docLayer.Bounds().Dy() != c.H {
		a.docLayer = ebiten.NewImage(c.W, c.H)
	}
	a.docLayer.Clear()
	lm := a.docLineMetrics()

	var seg *segment
	spanEnd := -1
	var lineFmt editor.LineFormat
	flush := func() {
		if seg != nil && len(seg.text) > 0 {
			a.drawSegment(seg, lm)
		}
		seg = nil
	}
	n := a.state.Length()
	for i := 0; i < n; i++ {
		box, visible := a.viewBox(i)
		it, _ := a.state.Item(i)
		if !visible || it.IsNewline() || it.IsEmbed() {
			flush()
			if visible && it.IsEmbed() {
				a.drawEmbedContent(it.Embed, box, lm)
			}
			continue
		}
		if i > spanEnd {
			spanEnd, lineFmt = a.lineSpan(i)
		}
		code := it.Attr.Code || lineFmt == editor.LineCodeBlock
		if seg != nil && seg.attr == it.Attr && seg.code == code && seg.y == box.Y && seg.x+seg.width == box.X {
			seg.text = append(seg.text, it.R)
			seg.width += box.W
			continue
		}
		flush()
		seg = &segment{text: []rune{it.R}, attr: it.Attr, code: code, x: box.X, y: box.Y, width: box.W}
	}
	flush()

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(c.X), float64(c.Y))
	screen.DrawImage(a.docLayer, op)
}

// lineSpan finds the end of the line holding index and its block format.
func (a *App) lineSpan(index int) (int, editor.LineFormat) {
	n := a.state.Length()
	for i := index; i < n; i++ {
		if it, _ := a.state.Item(i); it.IsNewline() {
			return i, it.Line
		}
	}
	return n - 1, editor.LinePlain
}

func (a *App) drawSegment(seg *segment, lm lineMetrics) {
	face := a.faces.face(measure.Style{Bold: seg.attr.Bold, Italic: seg.attr.Italic, Mono: seg.code})
	baseline := seg.y + lm.baseline
	text.Draw(a.docLayer, string(seg.text), face, seg.x, baseline, a.theme.Text)
	if seg.attr.Underline {
		y := float64(baseline + 2)
		ebitenutil.DrawLine(a.docLayer, float64(seg.x), y, float64(seg.x+seg.width), y, a.theme.Text)
	}
}

func (a *App) drawEmbedContent(e editor.Embed, box geom.Rect, lm lineMetrics) {
	switch e := e.(type) {
	case *editor.Table:
		g, ok := a.state.TableGeometry(e)
		if !ok {
			return
		}
		face := a.faces.face(measure.Style{})
		metrics := a.state.Metrics()
		rows, cols := e.Size()
		for r := 0; r < rows; r++ {
			for col := 0; col < cols; col++ {
				cell := g.CellRect(r, col)
				y := cell.Y + editor.CellPadding/2
				for _, line := range measure.Wrap(metrics, e.CellText(r, col), cell.W-editor.CellPadding) {
					if y+lm.lineH > cell.Bottom()+lm.lineH/2 {
						break
					}
					text.Draw(a.docLayer, line, face, cell.X+editor.CellPadding/2, y+lm.baseline, a.theme.Text)
					y += lm.lineH
				}
			}
		}
	case *mathblock.Block:
		label := a.labels.get(e, a.math)
		face := a.faces.face(measure.Style{Italic: true})
		clr := a.theme.Text
		if e.Tex() == "" {
			clr = a.theme.Muted
		}
		x := box.X + max((box.W-textWidth(face, label))/2, 8)
		text.Draw(a.docLayer, label, face, x, box.Y+(box.H-lm.lineH)/2+lm.baseline, clr)
	case *editor.Image:
		img := a.images.get(e)
		if img == nil {
			face := a.faces.face(measure.Style{Italic: true})
			text.Draw(a.docLayer, "image unavailable", face, box.X+8, box.Y+lm.baseline, a.theme.Muted)
			return
		}
		iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
		if iw == 0 || ih == 0 {
			return
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(box.W)/float64(iw), float64(box.H)/float64(ih))
		op.GeoM.Translate(float64(box.X), float64(box.Y))
		op.Filter = ebiten.FilterLinear
		a.docLayer.DrawImage(img, op)
	}
}

func (a *App) drawTableOverlay(screen *ebiten.Image, face font.Face) {
	a.tableButtons = a.tableButtons[:0]
	ov := a.tables.Overlay()
	if !ov.Visible {
		return
	}
	c := a.layout.Content
	r := ov.Rect.Offset(c.X, c.Y)
	strokeScreen(screen, r, a.theme.Overlay)
	strokeScreen(screen, r.Inset(1), a.theme.Overlay)

	ctrl := ov.Controls.Offset(c.X, c.Y)
	if ctrl.W <= 0 || ctrl.H <= 0 {
		return
	}
	bw := ctrl.W / len(tableButtonDefs)
	for i, def := range tableButtonDefs {
		def.r = geom.Rect{X: ctrl.X + i*bw, Y: ctrl.Y, W: bw, H: ctrl.H}
		fillScreen(screen, def.r, a.theme.Control)
		strokeScreen(screen, def.r, a.theme.Border)
		drawCentered(screen, def.label, face, def.r, a.theme.Accent)
		a.tableButtons = append(a.tableButtons, def)
	}
}

func (a *App) drawFormatBar(screen *ebiten.Image, face font.Face) {
	a.formatButtons = a.formatButtons[:0]
	pos := a.toolbar.Position()
	if !pos.Visible || a.prompt != nil {
		return
	}
	h := int(30 * a.scale())
	bar := geom.Rect{X: pos.Left, Y: pos.Top, W: pos.Width, H: h}
	fillScreen(screen, bar.Offset(2, 2), a.theme.Shadow)
	fillScreen(screen, bar, a.theme.Popup)
	strokeScreen(screen, bar, a.theme.Border)
	bw := bar.W / len(formatDefs)
	for i, def := range formatDefs {
		r := geom.Rect{X: bar.X + i*bw, Y: bar.Y, W: bw, H: bar.H}
		active := a.toolbar.Active(def.mark)
		if active {
			fillScreen(screen, r.Inset(-2), a.theme.PopupHot)
		}
		drawCentered(screen, def.label, face, r, a.theme.Text)
		a.formatButtons = append(a.formatButtons, actionButton{id: def.id, label: def.label, r: r, active: active})
	}
}

func (a *App) drawDropdown(screen *ebiten.Image, face font.Face) {
	a.dropdownRows = a.dropdownRows[:0]
	if !a.dropdown.IsOpen() {
		return
	}
	c := a.layout.Content
	anchor, ok := a.state.Box(a.dropdown.Start())
	if !ok {
		return
	}
	anchor = a.state.ToViewport(anchor).Offset(c.X, c.Y)
	s := a.scale()
	rowH := int(26 * s)
	w := int(240 * s)
	items := a.dropdown.Items()
	rows := max(len(items), 1)
	box := geom.Rect{X: anchor.X, Y: anchor.Bottom() + int(4*s), W: w, H: rows*rowH + int(8*s)}
	if box.Bottom() > a.layout.StatusBar {
		box.Y = anchor.Y - box.H - int(4*s)
	}
	fillScreen(screen, box.Offset(2, 2), a.theme.Shadow)
	fillScreen(screen, box, a.theme.Popup)
	strokeScreen(screen, box, a.theme.Border)
	if len(items) == 0 {
		text.Draw(screen, "No matching block", face, box.X+int(10*s), box.Y+int(4*s)+rowH/2+5, a.theme.Muted)
		return
	}
	for i, cmd := range items {
		r := geom.Rect{X: box.X + 1, Y: box.Y + int(4*s) + i*rowH, W: box.W - 2, H: rowH}
		if i == a.dropdown.Highlighted() {
			fillScreen(screen, r, a.theme.PopupHot)
		}
		text.Draw(screen, commandRowLabel(cmd), face, r.X+int(10*s), r.Y+rowH/2+5, a.theme.Text)
		a.dropdownRows = append(a.dropdownRows, r)
	}
}

func commandRowLabel(cmd command.Command) string {
	switch cmd.ID {
	case command.Math:
		return cmd.Trigger + "   formula"
	case command.Table:
		return cmd.Trigger + "   3x3 table"
	case command.Code:
		return cmd.Trigger + "   code block"
	case command.Text:
		return cmd.Trigger + "   quote block"
	case command.Image:
		return cmd.Trigger + "   picture"
	}
	return cmd.Trigger
}

func (a *App) drawReplyPicker(screen *ebiten.Image, face font.Face) {
	r := a.reply
	if r == nil {
		return
	}
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	s := a.scale()
	rowH := int(28 * s)
	bw := min(int(560*s), w-40)
	bh := int(48*s) + len(r.resp.Options)*rowH + int(12*s)
	box := geom.Rect{X: (w - bw) / 2, Y: max((h-bh)/2, 8), W: bw, H: bh}
	fillScreen(screen, geom.Rect{W: w, H: h}, color.RGBA{A: 90})
	fillScreen(screen, box, a.theme.Popup)
	strokeScreen(screen, box, a.theme.Border)
	text.Draw(screen, "Choose a suggestion", a.faces.ui(12, true, s), box.X+int(16*s), box.Y+int(30*s), a.theme.Text)

	r.rows = r.rows[:0]
	for i, opt := range r.resp.Options {
		row := geom.Rect{X: box.X + 8, Y: box.Y + int(44*s) + i*rowH, W: box.W - 16, H: rowH}
		if i == r.cursor {
			fillScreen(screen, row, a.theme.PopupHot)
		}
		text.Draw(screen, fmt.Sprintf("%d. %s", i+1, opt), face, row.X+8, row.Y+rowH/2+5, a.theme.Text)
		r.rows = append(r.rows, row)
	}
}

func (a *App) drawHelp(screen *ebiten.Image, face font.Face) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	s := a.scale()
	lineH := int(22 * s)
	bw := int(60 * s)
	for _, line := range helpLines {
		bw = max(bw, textWidth(face, line)+int(40*s))
	}
	bw = min(bw, w-20)
	bh := int(56*s) + len(helpLines)*lineH
	a.helpRect = geom.Rect{X: (w - bw) / 2, Y: max((h-bh)/2, 8), W: bw, H: bh}
	fillScreen(screen, a.helpRect.Offset(3, 3), a.theme.Shadow)
	fillScreen(screen, a.helpRect, a.theme.Popup)
	strokeScreen(screen, a.helpRect, a.theme.Border)
	text.Draw(screen, "Keyboard and mouse", a.faces.ui(12, true, s), a.helpRect.X+int(20*s), a.helpRect.Y+int(30*s), a.theme.Text)
	y := a.helpRect.Y + int(56*s)
	for _, line := range helpLines {
		text.Draw(screen, line, face, a.helpRect.X+int(20*s), y, a.theme.Text)
		y += lineH
	}
}

func (a *App) drawStatus(screen *ebiten.Image, face font.Face, w, h int) {
	name := "Untitled"
	if a.filePath != "" {
		name = filepath.Base(a.filePath)
	}
	caret := 0
	if sel, ok := a.state.Selection(); ok {
		caret = sel.Index
	}
	left := fmt.Sprintf("[ %s ] [ Caret %d/%d ] [ %d pages ]", name, caret, a.state.Length(), a.pager.Len())
	if a.password != "" {
		left += " [ AES ]"
	}
	if st := a.tables.State().String(); st != "none" {
		left += " [ table " + st + " ]"
	}
	text.Draw(screen, left, face, 12, h-int(8*a.scale()), a.theme.Text)
	right := a.status
	x := max(w-textWidth(face, right)-12, textWidth(face, left)+40)
	text.Draw(screen, right, face, x, h-int(8*a.scale()), a.theme.Muted)
}

// drawPageSheets paints the paper of the paginated view.
func (a *App) drawPageSheets() {
	l := a.layout
	canvas := geom.Rect{Y: l.CanvasY, W: a.frameBuffer.W, H: l.CanvasH}
	a.frameBuffer.Clip(canvas)
	defer a.frameBuffer.Unclip()
	for _, sheet := range ui.PageSheets(l, a.cfg.Page, a.pager.Len(), a.pagesScroll) {
		if sheet.Bottom() < canvas.Y || sheet.Y > canvas.Bottom() {
			continue
		}
		ui.DrawSheet(a.frameBuffer, sheet, a.theme, a.scale())
	}
}

func (a *App) drawPagesText(screen *ebiten.Image) {
	l := a.layout
	canvas := image.Rect(0, l.CanvasY, screen.Bounds().Dx(), l.CanvasY+l.CanvasH)
	dst, ok := screen.SubImage(canvas).(*ebiten.Image)
	if !ok {
		return
	}
	f := a.faces.get(measure.Style{})
	if f == nil {
		return
	}
	page := a.cfg.Page
	lineH := f.LineHeight()
	caption := a.faces.ui(9, false, a.scale())
	pages := a.pager.Pages()
	for i, sheet := range ui.PageSheets(l, page, len(pages), a.pagesScroll) {
		if sheet.Bottom() < canvas.Min.Y || sheet.Y > canvas.Max.Y {
			continue
		}
		margin := page.MarginPx * sheet.W / page.WidthPx
		y := sheet.Y + margin + f.Ascent()
		for _, line := range measure.Wrap(f, pages[i], page.ContentWidth()) {
			text.Draw(dst, line, f.Font(), sheet.X+margin, y, a.theme.Text)
			y += lineH
		}
		label := fmt.Sprintf("%d / %d", i+1, len(pages))
		text.Draw(dst, label, caption, sheet.Right()-textWidth(caption, label)-margin, sheet.Bottom()-margin/2, a.theme.Muted)
	}
}

func textWidth(face font.Face, s string) int {
	if s == "" {
		return 0
	}
	return max((int(font.MeasureString(face, s))+32)>>6, 0)
}

func drawCentered(dst *ebiten.Image, label string, face font.Face, r geom.Rect, clr color.Color) {
	m := face.Metrics()
	ascent, descent := m.Ascent.Round(), m.Descent.Round()
	x := r.X + (r.W-textWidth(face, label))/2
	baseline := r.Y + (r.H+ascent+descent)/2 - descent
	text.Draw(dst, label, face, x, baseline, clr)
}

func fillScreen(dst *ebiten.Image, r geom.Rect, c color.Color) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	ebitenutil.DrawRect(dst, float64(r.X), float64(r.Y), float64(r.W), float64(r.H), c)
}

func strokeScreen(dst *ebiten.Image, r geom.Rect, c color.Color) {
	x0, y0 := float64(r.X), float64(r.Y)
	x1, y1 := float64(r.Right()), float64(r.Bottom())
	ebitenutil.DrawLine(dst, x0, y0, x1, y0, c)
	ebitenutil.DrawLine(dst, x0, y1, x1, y1, c)
	ebitenutil.DrawLine(dst, x0, y0, x0, y1, c)
	ebitenutil.DrawLine(dst, x1, y0, x1, y1, c)
}
