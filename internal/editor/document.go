package editor

import (
	"sort"
	"strings"
)

// ObjectReplacement stands in for an embed wherever the document is read
// as text, so text offsets and item indices always agree.
const ObjectReplacement = '\uFFFC'

type Attr struct {
	Bold      bool
	Italic    bool
	Underline bool
	Highlight bool
	Code      bool
}

type LineFormat uint8

const (
	LinePlain LineFormat = iota
	LineBlockquote
	LineCodeBlock
)

func (f LineFormat) String() string {
	switch f {
	case LineBlockquote:
		return "blockquote"
	case LineCodeBlock:
		return "code-block"
	default:
		return "plain"
	}
}

// Embed is an atomic node of the document: it occupies one index and is
// never edited as text.
type Embed interface {
	Kind() string
	// Value is the node's single stored attribute in string form.
	Value() string
	Clone() Embed
}

// Item is one index of the linear model: a rune or an embed.
type Item struct {
	R     rune
	Attr  Attr
	Line  LineFormat // only meaningful on '\n'
	Embed Embed
}

func (it Item) IsEmbed() bool   { return it.Embed != nil }
func (it Item) IsNewline() bool { return it.Embed == nil && it.R == '\n' }

// StyleRun is a maximal range of equally attributed text.
type StyleRun struct {
	Start int
	End   int
	Attr  Attr
}

func textItems(text string, attr Attr) []Item {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	out := make([]Item, 0, len(text))
	for _, r := range text {
		switch r {
		case ObjectReplacement:
			continue
		case '\n':
			out = append(out, Item{R: r})
			continue
		}
		out = append(out, Item{R: r, Attr: attr})
	}
	return out
}

func itemsText(items []Item) string {
	var b strings.Builder
	b.Grow(len(items))
	for _, it := range items {
		if it.Embed != nil {
			b.WriteRune(ObjectReplacement)
			continue
		}
		b.WriteRune(it.R)
	}
	return b.String()
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it
		if it.Embed != nil {
			out[i].Embed = it.Embed.Clone()
		}
	}
	return out
}

// runsOf coalesces adjacent items with equal attributes. Embeds break runs
// and never belong to one.
func runsOf(items []Item, from, to int) []StyleRun {
	from = clampIndex(from, len(items))
	to = clampIndex(to, len(items))
	runs := make([]StyleRun, 0, 4)
	for i := from; i < to; i++ {
		it := items[i]
		if it.Embed != nil {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].End == i && runs[n-1].Attr == it.Attr {
			runs[n-1].End = i + 1
			continue
		}
		runs = append(runs, StyleRun{Start: i, End: i + 1, Attr: it.Attr})
	}
	return runs
}

// applyRuns is the inverse of runsOf. Out-of-range or overlapping runs are
// clipped; the first run wins on overlap.
func applyRuns(items []Item, runs []StyleRun) {
	sorted := append([]StyleRun(nil), runs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	lastEnd := 0
	for _, r := range sorted {
		start := clampIndex(r.Start, len(items))
		end := clampIndex(r.End, len(items))
		if start < lastEnd {
			start = lastEnd
		}
		for i := start; i < end; i++ {
			if items[i].Embed == nil {
				items[i].Attr = r.Attr
			}
		}
		if end > lastEnd {
			lastEnd = end
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// lineEnd returns the index of the '\n' that terminates the line holding
// index, or -1 if there is none.
func lineEnd(items []Item, index int) int {
	for i := clampIndex(index, len(items)); i < len(items); i++ {
		if items[i].IsNewline() {
			return i
		}
	}
	return -1
}

// lineStart returns the index of the first item of the line holding index.
func lineStart(items []Item, index int) int {
	i := clampIndex(index, len(items))
	for i > 0 && !items[i-1].IsNewline() {
		i--
	}
	return i
}
