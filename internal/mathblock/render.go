package mathblock

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Options struct {
	DisplayMode  bool
	ThrowOnError bool
}

// Renderer turns TeX source into HTML.
type Renderer interface {
	Render(src string, opts Options) (string, error)
}

var (
	ErrNoMath    = errors.New("mathblock: renderer produced no math")
	ErrMalformed = errors.New("mathblock: malformed formula")
)

// TreeBlood renders through goldmark with the treeblood MathML extension.
type TreeBlood struct {
	md goldmark.Markdown
}

func NewTreeBlood() *TreeBlood {
	return &TreeBlood{md: goldmark.New(goldmark.WithExtensions(treeblood.MathML()))}
}

func (t *TreeBlood) Render(src string, opts Options) (string, error) {
	delim := "$"
	if opts.DisplayMode {
		delim = "$$"
	}
	var buf bytes.Buffer
	if err := t.md.Convert([]byte(delim+src+delim), &buf); err != nil {
		return "", fmt.Errorf("mathblock: convert: %w", err)
	}
	out := buf.String()
	doc, err := html.Parse(strings.NewReader(out))
	if err != nil {
		return "", fmt.Errorf("mathblock: parse output: %w", err)
	}
	var hasMath, hasError bool
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch {
		case n.DataAtom == atom.Math || n.Data == "math":
			hasMath = true
		case n.Data == "merror":
			hasError = true
		}
	})
	if !hasMath {
		return "", ErrNoMath
	}
	if hasError && opts.ThrowOnError {
		return "", ErrMalformed
	}
	return out, nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// PlainText flattens rendered markup to its text content.
func PlainText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var b strings.Builder
	walk(doc, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
