package app

import (
	"image/color"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"

	"sumdoc/internal/geom"
)

const promptMaxRunes = 512

// prompt is the single-line modal used for passwords and math source.
// submit keeps the prompt open when it returns an error.
type prompt struct {
	title   string
	input   string
	masked  bool
	preview bool
	errMsg  string
	submit  func(string) error
	cancel  func()
	onEdit  func(string)

	box       geom.Rect
	inputBox  geom.Rect
	okBox     geom.Rect
	cancelBox geom.Rect
}

func (a *App) closePrompt(cancelled bool) {
	p := a.prompt
	a.prompt = nil
	if cancelled && p != nil && p.cancel != nil {
		p.cancel()
	}
}

func (a *App) submitPrompt() {
	p := a.prompt
	if p.submit == nil {
		a.closePrompt(false)
		return
	}
	if err := p.submit(p.input); err != nil {
		p.errMsg = err.Error()
		return
	}
	if a.prompt == p {
		a.closePrompt(false)
	}
}

func (a *App) handlePrompt(ctrl bool) {
	p := a.prompt
	edited := false
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		a.closePrompt(true)
		return
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyKPEnter):
		a.submitPrompt()
		return
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		if p.input != "" {
			_, size := utf8.DecodeLastRuneInString(p.input)
			p.input = p.input[:len(p.input)-max(size, 1)]
			edited = true
		}
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyV):
		if clip, err := clipboard.ReadAll(); err == nil && clip != "" {
			p.input = clampRunes(p.input+strings.ReplaceAll(clip, "\n", " "), promptMaxRunes)
			edited = true
		}
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		switch {
		case p.okBox.Contains(x, y):
			a.submitPrompt()
			return
		case p.cancelBox.Contains(x, y) || !p.box.Contains(x, y):
			a.closePrompt(true)
			return
		}
	}
	if !ctrl {
		for _, r := range ebiten.AppendInputChars(nil) {
			if r < 0x20 || r == 0x7F || !utf8.ValidRune(r) {
				continue
			}
			p.input = clampRunes(p.input+string(r), promptMaxRunes)
			edited = true
		}
	}
	if edited {
		p.errMsg = ""
		if p.onEdit != nil {
			p.onEdit(p.input)
		}
	}
}

func clampRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (a *App) layoutPrompt(p *prompt, w, h int) {
	s := a.scale()
	pw := min(int(520*s), w-40)
	ph := min(int(200*s), h-40)
	if p.preview {
		ph = min(int(250*s), h-40)
	}
	px, py := (w-pw)/2, (h-ph)/2
	p.box = geom.Rect{X: px, Y: py, W: pw, H: ph}
	p.inputBox = geom.Rect{X: px + 20, Y: py + 60, W: pw - 40, H: 34}
	p.okBox = geom.Rect{X: px + pw - 186, Y: py + ph - 46, W: 80, H: 30}
	p.cancelBox = geom.Rect{X: px + pw - 96, Y: py + ph - 46, W: 80, H: 30}
}

func (a *App) drawPrompt(screen *ebiten.Image) {
	p := a.prompt
	if p == nil {
		return
	}
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	a.layoutPrompt(p, w, h)
	fillScreen(screen, geom.Rect{W: w, H: h}, color.RGBA{A: 90})
	fillScreen(screen, p.box, a.theme.Popup)
	strokeScreen(screen, p.box, a.theme.Border)

	titleFace := a.faces.ui(12, true, a.scale())
	face := a.faces.ui(11, false, a.scale())
	text.Draw(screen, p.title, titleFace, p.box.X+20, p.box.Y+34, a.theme.Text)

	fillScreen(screen, p.inputBox, a.theme.Page)
	strokeScreen(screen, p.inputBox, a.theme.Accent)
	shown := p.input
	if p.masked {
		shown = strings.Repeat("*", utf8.RuneCountInString(p.input))
	}
	if (a.frameTick/30)%2 == 0 {
		shown += "|"
	}
	text.Draw(screen, shown, face, p.inputBox.X+8, p.inputBox.Y+22, a.theme.Text)

	y := p.inputBox.Bottom() + 24
	if p.preview {
		text.Draw(screen, a.labels.preview(p.input, a.math), face, p.inputBox.X, y, a.theme.Muted)
		y += 28
	}
	if p.errMsg != "" {
		text.Draw(screen, p.errMsg, face, p.inputBox.X, y, a.theme.Error)
	}

	for _, b := range []struct {
		r     geom.Rect
		label string
	}{{p.okBox, "OK"}, {p.cancelBox, "Cancel"}} {
		fillScreen(screen, b.r, a.theme.Control)
		strokeScreen(screen, b.r, a.theme.Border)
		drawCentered(screen, b.label, face, b.r, a.theme.Text)
	}
}
