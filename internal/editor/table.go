package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

const KindTable = "table"

var ErrBadTable = errors.New("editor: malformed table value")

type Cell struct {
	Row int
	Col int
}

// Table is the table primitive's node. Cells are model state; ColWidths
// (the colgroup), RowHeights and FixedLayout are presentational and are
// written directly by the interaction controller. A zero width or height
// means auto.
type Table struct {
	Cells       [][]string
	ColWidths   []int
	RowHeights  []int
	FixedLayout bool
	Focus       Cell
}

func NewTable(rows, cols int) *Table {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	t := &Table{Cells: make([][]string, rows), RowHeights: make([]int, rows)}
	for r := range t.Cells {
		t.Cells[r] = make([]string, cols)
	}
	return t
}

func (t *Table) Kind() string { return KindTable }

type tableValue struct {
	Cells      [][]string `json:"cells"`
	ColWidths  []int      `json:"cols,omitempty"`
	RowHeights []int      `json:"rows,omitempty"`
	Fixed      bool       `json:"fixed,omitempty"`
}

func (t *Table) Value() string {
	b, err := json.Marshal(tableValue{Cells: t.Cells, ColWidths: t.ColWidths, RowHeights: t.RowHeights, Fixed: t.FixedLayout})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (t *Table) Clone() Embed {
	c := &Table{
		Cells:       make([][]string, len(t.Cells)),
		ColWidths:   append([]int(nil), t.ColWidths...),
		RowHeights:  append([]int(nil), t.RowHeights...),
		FixedLayout: t.FixedLayout,
		Focus:       t.Focus,
	}
	for r := range t.Cells {
		c.Cells[r] = append([]string(nil), t.Cells[r]...)
	}
	return c
}

// DecodeTable is the persistence codec for table values.
func DecodeTable(value string) (Embed, error) {
	var v tableValue
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
	}
	if len(v.Cells) == 0 || len(v.Cells[0]) == 0 {
		return nil, ErrBadTable
	}
	cols := len(v.Cells[0])
	for _, row := range v.Cells {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: ragged rows", ErrBadTable)
		}
	}
	t := &Table{Cells: v.Cells, ColWidths: v.ColWidths, RowHeights: v.RowHeights, FixedLayout: v.Fixed}
	if len(t.RowHeights) != len(t.Cells) {
		t.RowHeights = make([]int, len(t.Cells))
	}
	return t, nil
}

func (t *Table) Size() (rows, cols int) {
	if len(t.Cells) == 0 {
		return 0, 0
	}
	return len(t.Cells), len(t.Cells[0])
}

func (t *Table) CellText(row, col int) string {
	if row < 0 || row >= len(t.Cells) || col < 0 || col >= len(t.Cells[row]) {
		return ""
	}
	return t.Cells[row][col]
}

// InsertRow inserts an empty row before row at.
func (t *Table) InsertRow(at int) {
	rows, cols := t.Size()
	at = clampIndex(at, rows)
	t.Cells = append(t.Cells[:at], append([][]string{make([]string, cols)}, t.Cells[at:]...)...)
	for len(t.RowHeights) < rows {
		t.RowHeights = append(t.RowHeights, 0)
	}
	t.RowHeights = append(t.RowHeights[:at], append([]int{0}, t.RowHeights[at:]...)...)
	if t.Focus.Row >= at {
		t.Focus.Row++
	}
}

// InsertColumn inserts an empty column before column at. The colgroup is
// left alone when it has not been synchronised yet; a pinned colgroup gives
// the new column the width of the focused one.
func (t *Table) InsertColumn(at int) {
	_, cols := t.Size()
	at = clampIndex(at, cols)
	for r := range t.Cells {
		row := t.Cells[r]
		t.Cells[r] = append(row[:at], append([]string{""}, row[at:]...)...)
	}
	if n := len(t.ColWidths); n > 0 {
		w := t.ColWidths[min(max(t.Focus.Col, 0), n-1)]
		at := clampIndex(at, n)
		t.ColWidths = append(t.ColWidths[:at], append([]int{w}, t.ColWidths[at:]...)...)
	}
	if t.Focus.Col >= at {
		t.Focus.Col++
	}
}

// Widths resolves the rendered column widths inside avail pixels: explicit
// widths are kept, auto columns share what is left.
func (t *Table) Widths(avail int) []int {
	_, cols := t.Size()
	out := make([]int, cols)
	used, auto := 0, 0
	for c := 0; c < cols; c++ {
		if c < len(t.ColWidths) && t.ColWidths[c] > 0 {
			out[c] = t.ColWidths[c]
			used += out[c]
			continue
		}
		auto++
	}
	if auto == 0 {
		return out
	}
	share := (avail - used) / auto
	if share < 1 {
		share = 1
	}
	for c := 0; c < cols; c++ {
		if out[c] == 0 {
			out[c] = share
		}
	}
	return out
}

// Heights resolves rendered row heights; natural is the height of a row
// holding one line of text.
func (t *Table) Heights(natural int) []int {
	rows, _ := t.Size()
	out := make([]int, rows)
	for r := range out {
		out[r] = natural
		if r < len(t.RowHeights) && t.RowHeights[r] > natural {
			out[r] = t.RowHeights[r]
		}
	}
	return out
}

func (t *Table) HTML() string {
	var b strings.Builder
	b.WriteString("<table")
	if t.FixedLayout {
		b.WriteString(` style="table-layout: fixed"`)
	}
	b.WriteString(">")
	if len(t.ColWidths) > 0 {
		b.WriteString("<colgroup>")
		for _, w := range t.ColWidths {
			if w > 0 {
				fmt.Fprintf(&b, `<col style="width: %dpx">`, w)
			} else {
				b.WriteString("<col>")
			}
		}
		b.WriteString("</colgroup>")
	}
	b.WriteString("<tbody>")
	for r, row := range t.Cells {
		if r < len(t.RowHeights) && t.RowHeights[r] > 0 {
			fmt.Fprintf(&b, `<tr style="height: %dpx">`, t.RowHeights[r])
		} else {
			b.WriteString("<tr>")
		}
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// TableModule is the table primitive registered on a surface.
type TableModule struct {
	s *State
}

// InsertTable inserts a rows×cols table on its own line at the selection
// (or the end of the document) and puts the caret in its first cell.
func (m *TableModule) InsertTable(rows, cols int) *Table {
	s := m.s
	index := len(s.items) - 1
	if sel, ok := s.Selection(); ok {
		index = sel.Index
	}
	if index > 0 && !s.items[index-1].IsNewline() {
		s.InsertText(index, "\n", Attr{}, SourceAPI)
		index++
	}
	t := NewTable(rows, cols)
	s.InsertEmbed(index, t, SourceAPI)
	if !s.items[index+1].IsNewline() {
		s.InsertText(index+1, "\n", Attr{}, SourceAPI)
	}
	s.FocusCell(index, 0, 0)
	return t
}

// Active is the table holding the caret, if any.
func (m *TableModule) Active() (*Table, int, bool) {
	sel, ok := m.s.Selection()
	if !ok {
		return nil, -1, false
	}
	leaf, ok := m.s.Leaf(sel.Index)
	if !ok {
		return nil, -1, false
	}
	t, ok := leaf.Table()
	if !ok {
		return nil, -1, false
	}
	return t, sel.Index, true
}

func (m *TableModule) InsertRowAbove() bool {
	return m.edit(func(t *Table) { t.InsertRow(t.Focus.Row) })
}

func (m *TableModule) InsertRowBelow() bool {
	return m.edit(func(t *Table) { t.InsertRow(t.Focus.Row + 1) })
}

func (m *TableModule) InsertColumnLeft() bool {
	return m.edit(func(t *Table) { t.InsertColumn(t.Focus.Col) })
}

func (m *TableModule) InsertColumnRight() bool {
	return m.edit(func(t *Table) { t.InsertColumn(t.Focus.Col + 1) })
}

func (m *TableModule) edit(fn func(*Table)) bool {
	t, index, ok := m.Active()
	if !ok {
		return false
	}
	fn(t)
	m.s.Touch(index, SourceUser)
	return true
}

// FocusCell puts the caret on the table at index and routes typing into
// the given cell.
func (s *State) FocusCell(index, row, col int) bool {
	leaf, ok := s.Leaf(index)
	if !ok {
		return false
	}
	t, ok := leaf.Table()
	if !ok {
		return false
	}
	rows, cols := t.Size()
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return false
	}
	t.Focus = Cell{Row: row, Col: col}
	s.SetSelection(index, 0, SourceUser)
	s.cellFocus = t
	return true
}

// FocusedCell returns the table and cell receiving typed text, if any.
func (s *State) FocusedCell() (*Table, Cell, bool) {
	if s.cellFocus == nil {
		return nil, Cell{}, false
	}
	return s.cellFocus, s.cellFocus.Focus, true
}

func (s *State) SetCellText(t *Table, row, col int, text string) bool {
	index := s.IndexOf(t)
	if index < 0 {
		return false
	}
	rows, cols := t.Size()
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return false
	}
	t.Cells[row][col] = text
	s.Touch(index, SourceUser)
	return true
}
