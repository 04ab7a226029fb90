package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newText(t *testing.T, text string) *State {
	t.Helper()
	s := NewState()
	s.InsertText(0, text, Attr{}, SourceAPI)
	return s
}

func TestNewStateHasTrailingNewline(t *testing.T) {
	s := NewState()
	if s.Length() != 1 || s.Text(0, 1) != "\n" {
		t.Fatalf("expected a single newline, got %q", s.Text(0, s.Length()))
	}
	if _, ok := s.Selection(); ok {
		t.Fatalf("new surface must start without selection")
	}
}

func TestInsertAndDeleteEmitTextChange(t *testing.T) {
	s := NewState()
	var got []TextChange
	s.OnTextChange(func(ch TextChange) { got = append(got, ch) })

	s.InsertText(0, "hello", Attr{}, SourceAPI)
	s.DeleteText(1, 3, SourceUser)

	want := []TextChange{
		{Index: 0, Inserted: 5, Source: SourceAPI},
		{Index: 1, Deleted: 3, Source: SourceUser},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("text-change mismatch (-want +got):\n%s", diff)
	}
	if txt := s.Text(0, s.Length()); txt != "ho\n" {
		t.Fatalf("unexpected text %q", txt)
	}
}

func TestDeleteNeverRemovesFinalNewline(t *testing.T) {
	s := newText(t, "abc")
	s.DeleteText(0, 100, SourceAPI)
	if s.Length() != 1 || !s.items[0].IsNewline() {
		t.Fatalf("final newline removed: %q", s.Text(0, s.Length()))
	}
}

func TestInsertNormalisesLineEndings(t *testing.T) {
	s := newText(t, "a\r\nb\uFFFCc")
	if got := s.Text(0, s.Length()); got != "a\nbc\n" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestSelectionShiftsWithEdits(t *testing.T) {
	s := newText(t, "abcdef")
	var sources []Source
	s.OnSelectionChange(func(ch SelectionChange) { sources = append(sources, ch.Source) })

	s.SetSelection(3, 0, SourceUser)
	s.InsertText(0, "xy", Attr{}, SourceAPI)
	if sel, _ := s.Selection(); sel != (Range{Index: 5}) {
		t.Fatalf("insert before caret should shift it, got %+v", sel)
	}

	s.SetSelection(4, 3, SourceUser)
	s.DeleteText(1, 2, SourceAPI)
	if sel, _ := s.Selection(); sel != (Range{Index: 2, Length: 3}) {
		t.Fatalf("delete before selection should shift it, got %+v", sel)
	}

	s.DeleteText(3, 10, SourceAPI)
	if sel, _ := s.Selection(); sel != (Range{Index: 2, Length: 1}) {
		t.Fatalf("overlapping delete should trim selection, got %+v", sel)
	}

	want := []Source{SourceUser, SourceSilent, SourceUser, SourceSilent, SourceSilent}
	if diff := cmp.Diff(want, sources); diff != "" {
		t.Fatalf("selection sources mismatch (-want +got):\n%s", diff)
	}
}

func TestSetSelectionClampsAndBlur(t *testing.T) {
	s := newText(t, "abc")
	var last SelectionChange
	s.OnSelectionChange(func(ch SelectionChange) { last = ch })

	s.SetSelection(10, 5, SourceUser)
	if sel, _ := s.Selection(); sel != (Range{Index: 3}) {
		t.Fatalf("expected clamp to end, got %+v", sel)
	}
	s.Blur(SourceUser)
	if last.Range != nil || last.Old == nil || *last.Old != (Range{Index: 3}) {
		t.Fatalf("unexpected blur event %+v", last)
	}
}

func TestFormatTextAndRuns(t *testing.T) {
	s := newText(t, "bold plain")
	s.FormatText(0, 4, func(a *Attr) { a.Bold = true }, SourceUser)
	want := []StyleRun{
		{Start: 0, End: 4, Attr: Attr{Bold: true}},
		{Start: 4, End: 11},
	}
	if diff := cmp.Diff(want, s.Runs()); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatLineSetsTerminatingNewline(t *testing.T) {
	s := newText(t, "one\ntwo")
	s.FormatLine(5, 0, LineCodeBlock, SourceAPI)
	if f := s.LineFormatAt(5); f != LineCodeBlock {
		t.Fatalf("expected code-block, got %s", f)
	}
	if f := s.LineFormatAt(0); f != LinePlain {
		t.Fatalf("first line must stay plain, got %s", f)
	}
	s.FormatLine(0, 6, LineBlockquote, SourceAPI)
	if s.LineFormatAt(0) != LineBlockquote || s.LineFormatAt(6) != LineBlockquote {
		t.Fatalf("range format must touch every line")
	}
}

func TestTypingAndBackspace(t *testing.T) {
	s := NewState()
	s.SetSelection(0, 0, SourceUser)
	s.TypeText("hi there")
	if got := s.PlainText(); got != "hi there\n" {
		t.Fatalf("unexpected text %q", got)
	}
	s.Backspace()
	if sel, _ := s.Selection(); sel.Index != 7 || s.PlainText() != "hi ther\n" {
		t.Fatalf("backspace failed: %q at %+v", s.PlainText(), sel)
	}
	s.MoveWord(-1)
	if sel, _ := s.Selection(); sel.Index != 3 {
		t.Fatalf("word jump landed at %d", sel.Index)
	}
	s.SetSelection(0, 2, SourceUser)
	s.TypeText("yo")
	if got := s.PlainText(); got != "yo ther\n" {
		t.Fatalf("typing must replace the selection, got %q", got)
	}
}

func TestIndexOfTracksEmbedIdentity(t *testing.T) {
	s := newText(t, "ab")
	img := &Image{Src: "data:image/png;base64,AA=="}
	s.InsertEmbed(1, img, SourceAPI)
	if i := s.IndexOf(img); i != 1 {
		t.Fatalf("expected embed at 1, got %d", i)
	}
	if s.Text(0, 3) != "a\uFFFCb" {
		t.Fatalf("embed must read as object replacement")
	}
	if s.PlainText() != "ab\n" {
		t.Fatalf("plain text must drop embeds")
	}
	s.DeleteText(1, 1, SourceUser)
	if i := s.IndexOf(img); i != -1 {
		t.Fatalf("deleted embed still found at %d", i)
	}
}

func TestUnsubscribe(t *testing.T) {
	s := NewState()
	calls := 0
	off := s.OnTextChange(func(TextChange) { calls++ })
	offSel := s.OnSelectionChange(func(SelectionChange) {})
	s.InsertText(0, "a", Attr{}, SourceAPI)
	off()
	off()
	offSel()
	s.InsertText(0, "b", Attr{}, SourceAPI)
	if calls != 1 || s.Subscribers() != 0 {
		t.Fatalf("calls=%d subscribers=%d", calls, s.Subscribers())
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newText(t, "keep")
	s.SetSelection(2, 0, SourceUser)
	snap := s.Snapshot()
	s.InsertText(0, "drop ", Attr{}, SourceUser)
	s.Restore(snap)
	if s.PlainText() != "keep\n" {
		t.Fatalf("restore lost content: %q", s.PlainText())
	}
	if sel, _ := s.Selection(); sel.Index != 2 {
		t.Fatalf("restore lost selection: %+v", sel)
	}
}
