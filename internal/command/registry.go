// Package command holds the slash-command catalog and the executor that
// turns a command into document edits.
package command

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

type ID string

const (
	Math  ID = "math"
	Table ID = "table"
	Code  ID = "code"
	Text  ID = "text"
	Image ID = "image"
)

type Command struct {
	ID          ID
	Trigger     string
	Label       string
	Description string
}

// catalog is fixed and ordered; the dropdown shows it in this order.
var catalog = []Command{
	{ID: Math, Trigger: "/math", Label: "수식", Description: "LaTeX 수식 블록"},
	{ID: Table, Trigger: "/table", Label: "표", Description: "3×3 표"},
	{ID: Code, Trigger: "/code", Label: "코드", Description: "코드 블록"},
	{ID: Text, Trigger: "/text", Label: "텍스트", Description: "인용 텍스트 블록"},
	{ID: Image, Trigger: "/image", Label: "이미지", Description: "이미지 파일 삽입"},
}

func All() []Command {
	return append([]Command(nil), catalog...)
}

func Lookup(id ID) (Command, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Command{}, false
}

// ByLabel finds a command by its display label.
func ByLabel(label string) (Command, bool) {
	want := fold(label)
	for _, c := range catalog {
		if fold(c.Label) == want {
			return c, true
		}
	}
	return Command{}, false
}

// Match filters the catalog against text typed after '/'. Prefix matches on
// the identifier come first, then substring matches on label and
// description. An empty filter returns everything.
func Match(filter string) []Command {
	f := strings.TrimPrefix(fold(filter), "/")
	if f == "" {
		return All()
	}
	var prefix, rest []Command
	for _, c := range catalog {
		switch {
		case strings.HasPrefix(string(c.ID), f) || strings.HasPrefix(strings.TrimPrefix(c.Trigger, "/"), f):
			prefix = append(prefix, c)
		case strings.Contains(fold(c.Label), f) || strings.Contains(fold(c.Description), f):
			rest = append(rest, c)
		}
	}
	return append(prefix, rest...)
}

// fold normalises user input: Hangul typed through an IME may arrive
// decomposed, so compare in NFC.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
