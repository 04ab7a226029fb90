package toolbar

import "sumdoc/internal/editor"

type Mark int

const (
	Bold Mark = iota
	Italic
	Underline
	Highlight
	Code
)

func (m Mark) field(a *editor.Attr) *bool {
	switch m {
	case Italic:
		return &a.Italic
	case Underline:
		return &a.Underline
	case Highlight:
		return &a.Highlight
	case Code:
		return &a.Code
	default:
		return &a.Bold
	}
}

// Toggle flips m over the saved range: it is removed when every text item
// already carries it and added otherwise. It reports whether a range was
// available.
func (p *Positioner) Toggle(m Mark) bool {
	r, ok := p.SavedRange()
	if !ok {
		return false
	}
	on := !p.Active(m)
	p.s.FormatText(r.Index, r.Length, func(a *editor.Attr) { *m.field(a) = on }, editor.SourceUser)
	return true
}

// Active reports whether every text item in the saved range carries m.
func (p *Positioner) Active(m Mark) bool {
	r, ok := p.SavedRange()
	if !ok {
		return false
	}
	seen := false
	for i := r.Index; i < r.End(); i++ {
		it, ok := p.s.Item(i)
		if !ok || it.Embed != nil || it.IsNewline() {
			continue
		}
		attr := it.Attr
		if !*m.field(&attr) {
			return false
		}
		seen = true
	}
	return seen
}
