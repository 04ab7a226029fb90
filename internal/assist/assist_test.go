package assist

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sumdoc/internal/editor"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Response
	}{
		{"empty", "  ", Response{Kind: Fallback}},
		{"bare text", "  안녕하세요 \n", Response{Kind: PlainText, Text: "안녕하세요"}},
		{"json string", `"hi"`, Response{Kind: PlainText, Text: "hi"}},
		{"text field", `{"text":"hi"}`, Response{Kind: PlainText, Text: "hi"}},
		{"content field", `{"content":"yo"}`, Response{Kind: PlainText, Text: "yo"}},
		{"options", `{"options":["a","b"]}`, Response{Kind: SelectionList, Options: []string{"a", "b"}}},
		{"string array", `["x","y"]`, Response{Kind: SelectionList, Options: []string{"x", "y"}}},
		{"deletions", `{"deletions":[{"index":1,"length":2}]}`,
			Response{Kind: DeletionProposal, Deletions: []Deletion{{Index: 1, Length: 2}}}},
		{"deletion array", `[{"index":0,"length":1,"text":"a"}]`,
			Response{Kind: DeletionProposal, Deletions: []Deletion{{Index: 0, Length: 1, Text: "a"}}}},
		{"bad deletion", `{"deletions":[{"index":-1,"length":2}]}`,
			Response{Kind: Fallback, Raw: `{"deletions":[{"index":-1,"length":2}]}`}},
		{"unknown object", `{"foo":1}`, Response{Kind: Fallback, Raw: `{"foo":1}`}},
		{"broken json", `{"text":`, Response{Kind: Fallback, Raw: `{"text":`}},
		{"empty array", `[]`, Response{Kind: Fallback, Raw: `[]`}},
	}
	for _, tc := range cases {
		got := Classify([]byte(tc.raw))
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s: (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestChooseOption(t *testing.T) {
	r := Classify([]byte(`{"choices":["one","two"]}`))
	got, ok := r.Choose(1)
	if !ok || got.Kind != PlainText || got.Text != "two" {
		t.Fatalf("unexpected choice %+v %v", got, ok)
	}
	if _, ok := r.Choose(2); ok {
		t.Fatalf("out of range choice accepted")
	}
	if _, ok := got.Choose(0); ok {
		t.Fatalf("plain text has no options")
	}
}

func state(text string) *editor.State {
	s := editor.NewState()
	s.InsertText(0, text, editor.Attr{}, editor.SourceAPI)
	return s
}

func TestApplyPlainTextReplacesSelection(t *testing.T) {
	s := state("hello world")
	s.SetSelection(6, 5, editor.SourceUser)
	changed, err := Apply(s, Response{Kind: PlainText, Text: "there"})
	if err != nil || !changed {
		t.Fatalf("apply: %v %v", changed, err)
	}
	if got := s.PlainText(); got != "hello there\n" {
		t.Fatalf("unexpected text %q", got)
	}
	if sel, _ := s.Selection(); sel.Index != 11 {
		t.Fatalf("caret must follow the insert, got %+v", sel)
	}
}

func TestApplyDeletionsBackToFront(t *testing.T) {
	s := state("abcdefgh")
	r := Response{Kind: DeletionProposal, Deletions: []Deletion{
		{Index: 1, Length: 2, Text: "bc"},
		{Index: 5, Length: 2, Text: "fg"},
	}}
	if _, err := Apply(s, r); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := s.PlainText(); got != "adeh\n" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestApplyRejectsStaleAndOverlapping(t *testing.T) {
	s := state("abcdefgh")
	stale := Response{Kind: DeletionProposal, Deletions: []Deletion{
		{Index: 1, Length: 2, Text: "bc"},
		{Index: 5, Length: 2, Text: "zz"},
	}}
	if _, err := Apply(s, stale); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	overlap := Response{Kind: DeletionProposal, Deletions: []Deletion{
		{Index: 1, Length: 4},
		{Index: 3, Length: 2},
	}}
	if _, err := Apply(s, overlap); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	past := Response{Kind: DeletionProposal, Deletions: []Deletion{{Index: 6, Length: 5}}}
	if _, err := Apply(s, past); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale past the end, got %v", err)
	}
	if got := s.PlainText(); got != "abcdefgh\n" {
		t.Fatalf("rejected proposal changed the document: %q", got)
	}
}

func TestApplyIgnoresListsAndFallback(t *testing.T) {
	s := state("x")
	for _, r := range []Response{{Kind: SelectionList, Options: []string{"a"}}, {Kind: Fallback, Raw: "?"}} {
		if changed, err := Apply(s, r); changed || err != nil {
			t.Fatalf("%v: unexpected apply %v %v", r.Kind, changed, err)
		}
	}
}
