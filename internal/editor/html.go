package editor

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlEmbed is implemented by embeds with their own markup.
type htmlEmbed interface {
	HTML() string
}

// HTML serialises the document the way the page renders it: one block
// element per line, inline tags per style run, embeds as their own markup.
func (s *State) HTML() string {
	var b strings.Builder
	start := 0
	for start < len(s.items) {
		end := lineEnd(s.items, start)
		if end < 0 {
			end = len(s.items) - 1
		}
		writeLine(&b, s.items[start:end], s.items[end].Line)
		start = end + 1
	}
	return b.String()
}

func writeLine(b *strings.Builder, line []Item, f LineFormat) {
	openTag, closeTag := "<p>", "</p>"
	switch f {
	case LineBlockquote:
		openTag, closeTag = "<blockquote>", "</blockquote>"
	case LineCodeBlock:
		openTag, closeTag = "<pre>", "</pre>"
	}
	if len(line) == 1 && line[0].Embed != nil {
		writeEmbed(b, line[0].Embed)
		return
	}
	b.WriteString(openTag)
	if len(line) == 0 {
		b.WriteString("<br>")
	}
	for i := 0; i < len(line); {
		if line[i].Embed != nil {
			writeEmbed(b, line[i].Embed)
			i++
			continue
		}
		j := i
		for j < len(line) && line[j].Embed == nil {
			j++
		}
		for _, run := range runsOf(line, i, j) {
			writeRun(b, itemsText(line[run.Start:run.End]), run.Attr)
		}
		i = j
	}
	b.WriteString(closeTag)
}

func writeRun(b *strings.Builder, text string, a Attr) {
	type tag struct {
		on   bool
		name string
	}
	tags := []tag{{a.Bold, "strong"}, {a.Italic, "em"}, {a.Underline, "u"}, {a.Highlight, "mark"}, {a.Code, "code"}}
	for _, t := range tags {
		if t.on {
			b.WriteString("<" + t.name + ">")
		}
	}
	b.WriteString(html.EscapeString(text))
	for i := len(tags) - 1; i >= 0; i-- {
		if tags[i].on {
			b.WriteString("</" + tags[i].name + ">")
		}
	}
}

func writeEmbed(b *strings.Builder, e Embed) {
	if h, ok := e.(htmlEmbed); ok {
		b.WriteString(h.HTML())
		return
	}
	b.WriteString(`<span data-kind="` + html.EscapeString(e.Kind()) + `">`)
	b.WriteString(html.EscapeString(e.Value()))
	b.WriteString("</span>")
}
