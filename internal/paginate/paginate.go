// Package paginate splits document text into fixed-height pages.
package paginate

import (
	"strings"
	"unicode/utf8"

	"sumdoc/internal/measure"
)

// Sizer is the off-screen measurement element.
type Sizer interface {
	Measure(text string) measure.Size
}

// Paginate returns pages whose concatenation is text. Each page is the
// longest prefix of the remaining text whose measured height is at most
// pageHeight; a page holds at least one rune even if that rune alone is too
// tall, so the loop always terminates. There is always at least one page.
func Paginate(text string, box Sizer, pageHeight int) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []string{""}
	}
	pages := make([]string, 0, 4)
	start := 0
	for start < n {
		end := fitIndex(runes, start, box, pageHeight)
		pages = append(pages, string(runes[start:end]))
		start = end
	}
	return pages
}

func fitIndex(runes []rune, start int, box Sizer, pageHeight int) int {
	lo, hi := start+1, len(runes)
	fit := start + 1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if box.Measure(string(runes[start:mid])).H <= pageHeight {
			fit = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return fit
}

// BoxFor builds a measurement box for a font size.
type BoxFor func(fontSizePt float64) (Sizer, error)

// Pager owns the page list of the summary editor. Content edits go to a
// single live page; only a font size change re-flows the whole document.
type Pager struct {
	pages      []string
	fontSize   float64
	pageHeight int
	boxFor     BoxFor
}

func NewPager(text string, fontSizePt float64, pageHeight int, boxFor BoxFor) (*Pager, error) {
	p := &Pager{fontSize: fontSizePt, pageHeight: pageHeight, boxFor: boxFor}
	if err := p.reflow(text); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pager) reflow(text string) error {
	box, err := p.boxFor(p.fontSize)
	if err != nil {
		return err
	}
	p.pages = Paginate(text, box, p.pageHeight)
	return nil
}

func (p *Pager) Pages() []string {
	return append([]string(nil), p.pages...)
}

func (p *Pager) Len() int { return len(p.pages) }

func (p *Pager) FontSize() float64 { return p.fontSize }

// Text is the flattened document content across all pages.
func (p *Pager) Text() string {
	return strings.Join(p.pages, "")
}

// SetPage replaces one page's live content without re-flowing.
func (p *Pager) SetPage(i int, content string) bool {
	if i < 0 || i >= len(p.pages) {
		return false
	}
	p.pages[i] = content
	return true
}

// Edit brings the pages in line with next, the edited document text,
// without re-flowing. The changed span lands on the page where it starts;
// pages it covered are merged into that page. It returns the edited page,
// or -1 when the text is unchanged.
func (p *Pager) Edit(next string) int {
	prev := p.Text()
	if prev == next {
		return -1
	}
	o, n := []rune(prev), []rune(next)
	pre := 0
	for pre < len(o) && pre < len(n) && o[pre] == n[pre] {
		pre++
	}
	suf := 0
	for suf < len(o)-pre && suf < len(n)-pre && o[len(o)-1-suf] == n[len(n)-1-suf] {
		suf++
	}
	first, firstStart := p.pageAt(pre)
	last, lastStart := first, firstStart
	if oldEnd := len(o) - suf; oldEnd > pre {
		last, lastStart = p.pageAt(oldEnd - 1)
	}
	lastEnd := lastStart + utf8.RuneCountInString(p.pages[last])

	var b strings.Builder
	b.WriteString(string(o[firstStart:pre]))
	b.WriteString(string(n[pre : len(n)-suf]))
	b.WriteString(string(o[len(o)-suf : lastEnd]))
	p.SetPage(first, b.String())
	p.pages = append(p.pages[:first+1], p.pages[last+1:]...)
	if p.pages[first] == "" && len(p.pages) > 1 {
		p.pages = append(p.pages[:first], p.pages[first+1:]...)
		first = min(first, len(p.pages)-1)
	}
	return first
}

// pageAt finds the page holding rune offset i and that page's first rune
// offset. Offsets past the end belong to the last page.
func (p *Pager) pageAt(i int) (int, int) {
	off := 0
	for k, pg := range p.pages {
		n := utf8.RuneCountInString(pg)
		if i < off+n {
			return k, off
		}
		off += n
	}
	last := len(p.pages) - 1
	return last, off - utf8.RuneCountInString(p.pages[last])
}

// SetFontSize re-flows the flattened text when the size actually changes.
// It reports whether a re-flow happened.
func (p *Pager) SetFontSize(pt float64) (bool, error) {
	if pt == p.fontSize {
		return false, nil
	}
	prev := p.fontSize
	p.fontSize = pt
	if err := p.reflow(p.Text()); err != nil {
		p.fontSize = prev
		return false, err
	}
	return true, nil
}

// Reset replaces the whole document, e.g. after loading a new summary.
func (p *Pager) Reset(text string) error {
	return p.reflow(text)
}

// FaceBox is the BoxFor used by the host: a measurement box using the same
// font faces as the renderer at the page content width.
func FaceBox(contentWidth int) BoxFor {
	return func(pt float64) (Sizer, error) {
		face, err := measure.NewFace(pt, measure.Style{})
		if err != nil {
			return nil, err
		}
		return measure.NewBox(face, contentWidth), nil
	}
}
