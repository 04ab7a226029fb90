// Package assist classifies loosely shaped assistant replies into a fixed
// set of response kinds and applies them to the document.
package assist

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"sumdoc/internal/editor"
)

type Kind int

const (
	Fallback Kind = iota
	PlainText
	SelectionList
	DeletionProposal
)

func (k Kind) String() string {
	switch k {
	case PlainText:
		return "plain-text"
	case SelectionList:
		return "selection-list"
	case DeletionProposal:
		return "deletion-proposal"
	default:
		return "fallback"
	}
}

// Deletion proposes removing Length items at Index. Text, when set, is what
// the assistant expects to find there.
type Deletion struct {
	Index  int    `json:"index"`
	Length int    `json:"length"`
	Text   string `json:"text,omitempty"`
}

// Response is exactly one of the known reply shapes; only the fields of
// its Kind are set.
type Response struct {
	Kind      Kind
	Text      string
	Options   []string
	Deletions []Deletion
	Raw       string
}

var (
	ErrStale   = errors.New("assist: proposal no longer matches the document")
	ErrOverlap = errors.New("assist: overlapping deletions")
)

type wire struct {
	Text      *string    `json:"text"`
	Content   *string    `json:"content"`
	Options   []string   `json:"options"`
	Choices   []string   `json:"choices"`
	Deletions []Deletion `json:"deletions"`
	Delete    []Deletion `json:"delete"`
}

// Classify resolves raw into a Response. Non-JSON replies are plain text;
// JSON that matches no known shape is a fallback carrying the raw reply.
func Classify(raw []byte) Response {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Response{Kind: Fallback}
	}
	switch trimmed[0] {
	case '{':
		var w wire
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return Response{Kind: Fallback, Raw: string(raw)}
		}
		return classifyObject(w, string(raw))
	case '[':
		var opts []string
		if err := json.Unmarshal(trimmed, &opts); err == nil && len(opts) > 0 {
			return Response{Kind: SelectionList, Options: opts}
		}
		var dels []Deletion
		if err := json.Unmarshal(trimmed, &dels); err == nil && validDeletions(dels) {
			return Response{Kind: DeletionProposal, Deletions: dels}
		}
		return Response{Kind: Fallback, Raw: string(raw)}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Response{Kind: PlainText, Text: s}
		}
		return Response{Kind: Fallback, Raw: string(raw)}
	}
	return Response{Kind: PlainText, Text: string(trimmed)}
}

func classifyObject(w wire, raw string) Response {
	if dels := append(w.Deletions, w.Delete...); validDeletions(dels) {
		return Response{Kind: DeletionProposal, Deletions: dels}
	}
	if opts := append(w.Options, w.Choices...); len(opts) > 0 {
		return Response{Kind: SelectionList, Options: opts}
	}
	for _, s := range []*string{w.Text, w.Content} {
		if s != nil && strings.TrimSpace(*s) != "" {
			return Response{Kind: PlainText, Text: *s}
		}
	}
	return Response{Kind: Fallback, Raw: raw}
}

func validDeletions(dels []Deletion) bool {
	if len(dels) == 0 {
		return false
	}
	for _, d := range dels {
		if d.Index < 0 || d.Length <= 0 {
			return false
		}
	}
	return true
}

// Choose turns option i of a selection list into plain text.
func (r Response) Choose(i int) (Response, bool) {
	if r.Kind != SelectionList || i < 0 || i >= len(r.Options) {
		return Response{}, false
	}
	return Response{Kind: PlainText, Text: r.Options[i]}, true
}

// Surface is the editing surface as seen by Apply.
type Surface interface {
	Selection() (editor.Range, bool)
	SetSelection(index, length int, src editor.Source)
	Length() int
	Text(index, length int) string
	InsertText(index int, text string, attr editor.Attr, src editor.Source) int
	DeleteText(index, length int, src editor.Source) int
}

// Apply performs r on s and reports whether the document changed. Plain
// text replaces the selection. Deletions are applied back to front so
// earlier indices stay valid; if any expected text no longer matches,
// nothing is deleted.
func Apply(s Surface, r Response) (bool, error) {
	switch r.Kind {
	case PlainText:
		if r.Text == "" {
			return false, nil
		}
		index := s.Length() - 1
		if sel, ok := s.Selection(); ok {
			index = sel.Index
			if sel.Length > 0 {
				s.DeleteText(sel.Index, sel.Length, editor.SourceUser)
			}
		}
		n := s.InsertText(index, r.Text, editor.Attr{}, editor.SourceUser)
		s.SetSelection(index+n, 0, editor.SourceUser)
		return true, nil
	case DeletionProposal:
		dels := append([]Deletion(nil), r.Deletions...)
		sort.SliceStable(dels, func(i, j int) bool { return dels[i].Index > dels[j].Index })
		for _, d := range dels {
			if d.Index+d.Length > s.Length()-1 {
				return false, ErrStale
			}
			if d.Text != "" && s.Text(d.Index, d.Length) != d.Text {
				return false, ErrStale
			}
		}
		for i := 1; i < len(dels); i++ {
			if dels[i].Index+dels[i].Length > dels[i-1].Index {
				return false, ErrOverlap
			}
		}
		for _, d := range dels {
			s.DeleteText(d.Index, d.Length, editor.SourceUser)
		}
		return true, nil
	}
	return false, nil
}
