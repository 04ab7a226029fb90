package ui

import (
	"sumdoc/internal/config"
	"sumdoc/internal/geom"
	"sumdoc/internal/render"
)

// SheetGap separates stacked sheets in the paginated view.
const SheetGap = 16

// Layout is the window split into chrome bands and the paper column.
// Content is the editor viewport: editor coordinates are relative to its
// top-left corner.
type Layout struct {
	MenuH     int
	ToolbarH  int
	StatusH   int
	CanvasY   int
	CanvasH   int
	Page      geom.Rect
	Content   geom.Rect
	StatusBar int
}

func ComputeLayout(w, h int, theme Theme, scale float32, page config.Page) Layout {
	if scale <= 0 {
		scale = 1
	}

	dp := func(v int) int { return int(float32(v) * scale) }

	menuH := dp(theme.MenuHeightDp)
	toolbarH := dp(theme.ToolbarHeightDp)
	statusH := dp(theme.StatusHeightDp)
	margin := dp(theme.PageMarginDp)

	canvasY := menuH + toolbarH
	canvasH := max(h-canvasY-statusH, 0)

	pageW := min(page.WidthPx, w-margin*2)
	pageW = max(pageW, dp(320))
	pageH := max(canvasH-margin*2, dp(200))
	pageX := (w - pageW) / 2
	pageY := canvasY + margin

	padX := page.MarginPx
	if pageW < page.WidthPx {
		// Shrink the margins with the sheet so the text column survives.
		padX = page.MarginPx * pageW / page.WidthPx
	}
	padY := dp(24)
	content := geom.Rect{
		X: pageX + padX,
		Y: pageY + padY,
		W: max(pageW-padX*2, dp(100)),
		H: max(pageH-padY*2, dp(100)),
	}

	return Layout{
		MenuH:     menuH,
		ToolbarH:  toolbarH,
		StatusH:   statusH,
		CanvasY:   canvasY,
		CanvasH:   canvasH,
		Page:      geom.Rect{X: pageX, Y: pageY, W: pageW, H: pageH},
		Content:   content,
		StatusBar: h - statusH,
	}
}

// PageSheets stacks n sheets of the configured paper height down the
// canvas for the paginated view, scrolled up by scroll pixels.
func PageSheets(l Layout, page config.Page, n, scroll int) []geom.Rect {
	out := make([]geom.Rect, 0, n)
	y := l.Page.Y - scroll
	for i := 0; i < n; i++ {
		out = append(out, geom.Rect{X: l.Page.X, Y: y, W: l.Page.W, H: page.HeightPx})
		y += page.HeightPx + SheetGap
	}
	return out
}

// SheetsHeight is the scrollable height of n stacked sheets.
func SheetsHeight(page config.Page, n int) int {
	if n <= 0 {
		return 0
	}
	return n*page.HeightPx + (n-1)*SheetGap
}

func DrawShell(fb *render.FrameBuffer, layout Layout, theme Theme) {
	fb.Clear(theme.AppBackground)

	// Menu + toolbar
	fb.Fill(geom.Rect{W: fb.W, H: layout.MenuH}, theme.TopBar)
	fb.Fill(geom.Rect{Y: layout.MenuH, W: fb.W, H: layout.ToolbarH}, theme.Toolbar)
	fb.Stroke(geom.Rect{W: fb.W, H: layout.MenuH + layout.ToolbarH}, 1, theme.Border)

	fb.Fill(geom.Rect{Y: layout.CanvasY, W: fb.W, H: layout.CanvasH}, theme.Canvas)

	fb.Fill(geom.Rect{Y: layout.StatusBar, W: fb.W, H: layout.StatusH}, theme.StatusBar)
	fb.Stroke(geom.Rect{Y: layout.StatusBar, W: fb.W, H: layout.StatusH}, 1, theme.Border)
}

// DrawSheet paints one sheet of paper with its shadow and accent line.
func DrawSheet(fb *render.FrameBuffer, r geom.Rect, theme Theme, scale float32) {
	fb.Fill(r.Offset(2, 2), theme.Shadow)
	fb.Fill(r, theme.Page)
	fb.Stroke(r, 1, theme.Border)
	accentH := max(int(3*scale), 1)
	fb.Fill(geom.Rect{X: r.X, Y: r.Y, W: r.W, H: accentH}, theme.Accent)
}
