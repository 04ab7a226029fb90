package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sumdoc/pkg/sumdoc"
)

func TestInsertTableOnItsOwnLine(t *testing.T) {
	s := newText(t, "ab")
	s.SetSelection(2, 0, SourceUser)
	tbl := s.Tables().InsertTable(3, 3)

	if got := s.Text(0, s.Length()); got != "ab\n\uFFFC\n" {
		t.Fatalf("unexpected document %q", got)
	}
	if i := s.IndexOf(tbl); i != 3 {
		t.Fatalf("expected table at 3, got %d", i)
	}
	if rows, cols := tbl.Size(); rows != 3 || cols != 3 {
		t.Fatalf("expected 3x3, got %dx%d", rows, cols)
	}
	active, _, ok := s.Tables().Active()
	if !ok || active != tbl {
		t.Fatalf("caret must be inside the new table")
	}
}

func TestRowAndColumnInsertionFollowFocus(t *testing.T) {
	s := NewState()
	tbl := s.Tables().InsertTable(2, 2)
	if !s.FocusCell(s.IndexOf(tbl), 1, 1) {
		t.Fatalf("focus rejected")
	}
	tbl.Cells[1][1] = "x"

	s.Tables().InsertRowAbove()
	s.Tables().InsertColumnRight()
	if rows, cols := tbl.Size(); rows != 3 || cols != 3 {
		t.Fatalf("expected 3x3, got %dx%d", rows, cols)
	}
	if tbl.Focus != (Cell{Row: 2, Col: 1}) || tbl.Cells[2][1] != "x" {
		t.Fatalf("focus must follow its cell: %+v %q", tbl.Focus, tbl.Cells)
	}
	s.Tables().InsertColumnLeft()
	if tbl.Focus.Col != 2 || tbl.Cells[2][2] != "x" {
		t.Fatalf("left insert must shift focus: %+v", tbl.Focus)
	}
}

func TestInsertedColumnCopiesPinnedWidth(t *testing.T) {
	s := NewState()
	tbl := s.Tables().InsertTable(2, 3)
	tbl.ColWidths = []int{120, 90, 300}
	if !s.FocusCell(s.IndexOf(tbl), 0, 1) {
		t.Fatalf("focus rejected")
	}
	s.Tables().InsertColumnRight()
	s.Tables().InsertColumnLeft()
	if diff := cmp.Diff([]int{120, 90, 90, 90, 300}, tbl.ColWidths); diff != "" {
		t.Fatalf("widths (-want +got):\n%s", diff)
	}

	s2 := NewState()
	auto := s2.Tables().InsertTable(1, 2)
	s2.Tables().InsertColumnRight()
	if auto.ColWidths != nil {
		t.Fatalf("unsynchronised colgroup must stay empty: %v", auto.ColWidths)
	}
}

func TestTableOpsWithoutActiveTableAreNoops(t *testing.T) {
	s := newText(t, "plain")
	s.SetSelection(1, 0, SourceUser)
	if s.Tables().InsertRowBelow() || s.Tables().InsertColumnLeft() {
		t.Fatalf("table ops must report no active table")
	}
	if WithoutTables()(s); s.Tables() != nil {
		t.Fatalf("module should be removable")
	}
}

func TestTypingGoesIntoFocusedCell(t *testing.T) {
	s := NewState()
	tbl := s.Tables().InsertTable(2, 2)
	s.FocusCell(0, 0, 1)
	s.TypeText("hé")
	s.TypeText("y")
	s.Backspace()
	if tbl.CellText(0, 1) != "hé" {
		t.Fatalf("unexpected cell text %q", tbl.CellText(0, 1))
	}
	if s.Length() != 2 {
		t.Fatalf("cell typing must not touch the linear model")
	}
	s.SetSelection(1, 0, SourceUser)
	if _, _, ok := s.FocusedCell(); ok {
		t.Fatalf("leaving the table must drop cell focus")
	}
}

func TestDecodeTableRejectsRaggedRows(t *testing.T) {
	if _, err := DecodeTable(`{"cells":[["a","b"],["c"]]}`); err == nil {
		t.Fatalf("expected error for ragged rows")
	}
	if _, err := DecodeTable(`not json`); err == nil {
		t.Fatalf("expected error for bad json")
	}
}

func TestPersistRoundTrip(t *testing.T) {
	s := newText(t, "Title\nbody")
	s.FormatText(0, 5, func(a *Attr) { a.Bold = true; a.Underline = true }, SourceAPI)
	s.FormatLine(6, 0, LineBlockquote, SourceAPI)
	s.SetSelection(s.Length()-1, 0, SourceUser)
	tbl := s.Tables().InsertTable(2, 2)
	tbl.Cells[0][0] = "k"
	tbl.ColWidths = []int{120, 0}
	s.InsertEmbed(0, &Image{Src: "data:image/png;base64,AA=="}, SourceAPI)

	doc := s.ToFile(sumdoc.Metadata{Title: "t"})
	blob, err := sumdoc.Encode(doc, sumdoc.SaveOptions{Compression: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	loaded, err := sumdoc.Decode(blob, sumdoc.LoadOptions{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	restored := NewState()
	if err := restored.Load(loaded, DefaultCodecs()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(s.Text(0, s.Length()), restored.Text(0, restored.Length())); diff != "" {
		t.Fatalf("text mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.Runs(), restored.Runs()); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
	if restored.LineFormatAt(7) != LineBlockquote {
		t.Fatalf("line format lost")
	}
	leaf, _ := restored.Leaf(s.IndexOf(tbl))
	got, ok := leaf.Table()
	if !ok || got.Cells[0][0] != "k" || got.ColWidths[0] != 120 {
		t.Fatalf("table lost: %+v", leaf.Item)
	}
}

func TestLoadRejectsUnknownEmbed(t *testing.T) {
	doc := &sumdoc.Document{Text: "\uFFFC\n", Embeds: []sumdoc.EmbedEntry{{Offset: 0, Kind: "video", Value: "v"}}}
	if err := NewState().Load(doc, DefaultCodecs()); err == nil {
		t.Fatalf("expected unknown embed error")
	}
}
