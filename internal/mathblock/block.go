// Package mathblock is the math embed: a block holding raw LaTeX that is
// rendered through a typesetting function and never edited as text.
package mathblock

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"sumdoc/internal/editor"
)

const (
	Kind        = "math"
	Placeholder = "수식을 입력하세요"
)

// Block is the embed node. Its only model attribute is the TeX source.
type Block struct {
	tex string
	out string
}

func New(tex string) *Block { return &Block{tex: tex} }

// Decode is the persistence codec for math values.
func Decode(value string) (editor.Embed, error) { return New(value), nil }

func (b *Block) Kind() string        { return Kind }
func (b *Block) Value() string       { return b.tex }
func (b *Block) Tex() string         { return b.tex }
func (b *Block) Clone() editor.Embed { return &Block{tex: b.tex, out: b.out} }

// SetTex replaces the source and drops the cached rendering.
func (b *Block) SetTex(tex string) {
	if tex == b.tex {
		return
	}
	b.tex = tex
	b.out = ""
}

func (b *Block) Extent(avail, lineH int) (int, int) {
	return avail, 2 * lineH
}

type Output struct {
	HTML        string
	Placeholder bool
	Failed      bool
}

// Render typesets the block in display mode. It never panics and never
// returns empty markup: an empty source gives the placeholder and any
// renderer failure gives an error placeholder.
func (b *Block) Render(r Renderer) (out Output) {
	if strings.TrimSpace(b.tex) == "" {
		return Output{HTML: placeholderHTML(), Placeholder: true}
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = Output{HTML: errorHTML(fmt.Sprint(rec)), Failed: true}
		}
	}()
	if r == nil {
		return Output{HTML: errorHTML("no renderer"), Failed: true}
	}
	res, err := r.Render(b.tex, Options{DisplayMode: true, ThrowOnError: false})
	if err != nil {
		return Output{HTML: errorHTML(err.Error()), Failed: true}
	}
	if strings.TrimSpace(res) == "" {
		return Output{HTML: errorHTML("empty output"), Failed: true}
	}
	b.out = res
	return Output{HTML: res}
}

// HTML is the serialised node. The wrapper is not content-editable so
// keystrokes cannot reach the rendered math.
func (b *Block) HTML() string {
	body := b.out
	if body == "" {
		body = b.Render(NewTreeBlood()).HTML
	}
	return fmt.Sprintf(`<div class="math-block" contenteditable="false" data-tex="%s">%s</div>`,
		html.EscapeString(b.tex), body)
}

func placeholderHTML() string {
	return `<span class="math-placeholder">` + Placeholder + `</span>`
}

func errorHTML(msg string) string {
	return `<span class="math-error">수식 오류: ` + html.EscapeString(msg) + `</span>`
}

// Label is the one-line text the host paints for a block.
func (b *Block) Label(r Renderer) string {
	out := b.Render(r)
	if out.Placeholder {
		return Placeholder
	}
	if txt := PlainText(out.HTML); txt != "" && !out.Failed {
		return txt
	}
	return b.tex
}
