package editor

import (
	"unicode"

	"sumdoc/internal/measure"
	"sumdoc/internal/platform"
)

type Source string

const (
	SourceUser   Source = "user"
	SourceAPI    Source = "api"
	SourceSilent Source = "silent"
)

type Range struct {
	Index  int
	Length int
}

func (r Range) End() int { return r.Index + r.Length }

type TextChange struct {
	Index    int
	Inserted int
	Deleted  int
	Source   Source
}

// SelectionChange carries the new and previous ranges; nil means the
// editor has no selection (blurred).
type SelectionChange struct {
	Range  *Range
	Old    *Range
	Source Source
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// State is the editing surface: it owns the linear document model and the
// selection, publishes text-change and selection-change, and answers
// geometry queries from its layout.
type State struct {
	items []Item
	sel   *Range

	root   *platform.Target
	window *platform.Target

	nextSub   uint64
	textSubs  []subscription[TextChange]
	selSubs   []subscription[SelectionChange]
	tables    *TableModule
	cellFocus *Table

	metrics measure.Metrics
	width   int
	scrollY int
	layout  *Layout
}

type Option func(*State)

// WithMetrics sets the font metrics and content width used for layout.
func WithMetrics(m measure.Metrics, width int) Option {
	return func(s *State) {
		if m != nil {
			s.metrics = m
		}
		if width > 0 {
			s.width = width
		}
	}
}

// WithoutTables builds a surface with no table module registered.
func WithoutTables() Option {
	return func(s *State) { s.tables = nil }
}

func NewState(opts ...Option) *State {
	s := &State{
		items:   []Item{{R: '\n'}},
		root:    platform.NewTarget("editor"),
		window:  platform.NewTarget("window"),
		metrics: measure.Fixed{CharW: 8, LineH: 18},
		width:   640,
	}
	s.tables = &TableModule{s: s}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root is the editor element's event target.
func (s *State) Root() *platform.Target { return s.root }

// Window is the window-level event target.
func (s *State) Window() *platform.Target { return s.window }

// Dispatch routes a host event through window and editor targets.
func (s *State) Dispatch(ev *platform.Event) {
	platform.Dispatch(s.window, s.root, ev)
}

// Tables returns the table module or nil when none is registered.
func (s *State) Tables() *TableModule { return s.tables }

func (s *State) Length() int { return len(s.items) }

func (s *State) Item(index int) (Item, bool) {
	if index < 0 || index >= len(s.items) {
		return Item{}, false
	}
	return s.items[index], true
}

func (s *State) Items() []Item { return cloneItems(s.items) }

// Text returns length items from index; embeds read as ObjectReplacement.
func (s *State) Text(index, length int) string {
	start := clampIndex(index, len(s.items))
	end := clampIndex(index+length, len(s.items))
	if end < start {
		return ""
	}
	return itemsText(s.items[start:end])
}

// PlainText is the whole document with embeds removed.
func (s *State) PlainText() string {
	out := make([]rune, 0, len(s.items))
	for _, it := range s.items {
		if it.Embed == nil {
			out = append(out, it.R)
		}
	}
	return string(out)
}

func (s *State) Runs() []StyleRun { return runsOf(s.items, 0, len(s.items)) }

// IndexOf finds an embed by identity; -1 if it is no longer in the document.
func (s *State) IndexOf(e Embed) int {
	if e == nil {
		return -1
	}
	for i, it := range s.items {
		if it.Embed == e {
			return i
		}
	}
	return -1
}

// Leaf is the node under an index.
type Leaf struct {
	Index int
	Item  Item
}

func (l Leaf) Table() (*Table, bool) {
	t, ok := l.Item.Embed.(*Table)
	return t, ok
}

func (s *State) Leaf(index int) (Leaf, bool) {
	it, ok := s.Item(index)
	if !ok {
		return Leaf{}, false
	}
	return Leaf{Index: index, Item: it}, true
}

// Selection

func (s *State) Selection() (Range, bool) {
	if s.sel == nil {
		return Range{}, false
	}
	return *s.sel, true
}

func (s *State) clampRange(index, length int) Range {
	last := len(s.items) - 1
	if length < 0 {
		index += length
		length = -length
	}
	index = clampIndex(index, last)
	if index+length > last {
		length = last - index
	}
	return Range{Index: index, Length: length}
}

func (s *State) SetSelection(index, length int, src Source) {
	r := s.clampRange(index, length)
	s.setSelection(&r, src)
}

// Blur drops the selection.
func (s *State) Blur(src Source) {
	s.setSelection(nil, src)
}

func (s *State) setSelection(r *Range, src Source) {
	old := s.sel
	if rangesEqual(old, r) {
		return
	}
	s.sel = r
	if r == nil || s.cellFocus != nil && s.IndexOf(s.cellFocus) != r.Index {
		s.cellFocus = nil
	}
	s.emitSelection(SelectionChange{Range: copyRange(r), Old: copyRange(old), Source: src})
}

func rangesEqual(a, b *Range) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyRange(r *Range) *Range {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Events

func (s *State) OnTextChange(fn func(TextChange)) func() {
	s.nextSub++
	id := s.nextSub
	s.textSubs = append(s.textSubs, subscription[TextChange]{id: id, fn: fn})
	return func() { s.textSubs = removeSub(s.textSubs, id) }
}

func (s *State) OnSelectionChange(fn func(SelectionChange)) func() {
	s.nextSub++
	id := s.nextSub
	s.selSubs = append(s.selSubs, subscription[SelectionChange]{id: id, fn: fn})
	return func() { s.selSubs = removeSub(s.selSubs, id) }
}

// Subscribers reports the number of text-change and selection-change handlers.
func (s *State) Subscribers() int { return len(s.textSubs) + len(s.selSubs) }

func removeSub[T any](subs []subscription[T], id uint64) []subscription[T] {
	for i := range subs {
		if subs[i].id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

func (s *State) emitText(ch TextChange) {
	s.Invalidate()
	for _, sub := range append([]subscription[TextChange](nil), s.textSubs...) {
		sub.fn(ch)
	}
}

func (s *State) emitSelection(ch SelectionChange) {
	for _, sub := range append([]subscription[SelectionChange](nil), s.selSubs...) {
		sub.fn(ch)
	}
}

// Mutations

func (s *State) InsertText(index int, text string, attr Attr, src Source) int {
	ins := textItems(text, attr)
	return s.insertItems(index, ins, src)
}

func (s *State) InsertEmbed(index int, e Embed, src Source) int {
	if e == nil {
		return 0
	}
	return s.insertItems(index, []Item{{R: ObjectReplacement, Embed: e}}, src)
}

func (s *State) insertItems(index int, ins []Item, src Source) int {
	if len(ins) == 0 {
		return 0
	}
	index = clampIndex(index, len(s.items)-1)
	// A split line keeps its block format on both halves.
	split := s.LineFormatAt(index)
	for i := range ins {
		if ins[i].IsNewline() {
			ins[i].Line = split
		}
	}
	s.items = append(s.items[:index], append(ins, s.items[index:]...)...)
	s.emitText(TextChange{Index: index, Inserted: len(ins), Source: src})
	if s.sel != nil && s.sel.Index >= index {
		r := Range{Index: s.sel.Index + len(ins), Length: s.sel.Length}
		s.setSelection(&r, SourceSilent)
	}
	return len(ins)
}

// DeleteText removes up to length items from index. The final newline is
// never removed.
func (s *State) DeleteText(index, length int, src Source) int {
	r := s.clampRange(index, length)
	if r.Length == 0 {
		return 0
	}
	for i := r.Index; i < r.End(); i++ {
		if s.items[i].Embed == s.cellFocus && s.cellFocus != nil {
			s.cellFocus = nil
		}
	}
	s.items = append(s.items[:r.Index], s.items[r.End():]...)
	s.emitText(TextChange{Index: r.Index, Deleted: r.Length, Source: src})
	if s.sel != nil {
		sel := *s.sel
		switch {
		case sel.Index >= r.End():
			sel.Index -= r.Length
		case sel.End() <= r.Index:
		default:
			end := sel.End()
			if end > r.End() {
				end -= r.Length
			} else {
				end = r.Index
			}
			if sel.Index > r.Index {
				sel.Index = r.Index
			}
			sel.Length = end - sel.Index
		}
		s.setSelection(&sel, SourceSilent)
	}
	return r.Length
}

// FormatText applies mut to the inline attributes of text in the range.
func (s *State) FormatText(index, length int, mut func(*Attr), src Source) {
	r := s.clampRange(index, length)
	if r.Length == 0 || mut == nil {
		return
	}
	for i := r.Index; i < r.End(); i++ {
		if s.items[i].Embed != nil || s.items[i].IsNewline() {
			continue
		}
		mut(&s.items[i].Attr)
	}
	s.emitText(TextChange{Index: r.Index, Source: src})
}

// FormatLine sets the block format of every line touched by the range.
func (s *State) FormatLine(index, length int, f LineFormat, src Source) {
	r := s.clampRange(index, length)
	first := lineEnd(s.items, r.Index)
	last := lineEnd(s.items, r.End())
	if first < 0 {
		return
	}
	if last < first {
		last = first
	}
	for i := first; i <= last; i++ {
		if s.items[i].IsNewline() {
			s.items[i].Line = f
		}
	}
	s.emitText(TextChange{Index: first, Source: src})
}

// LineFormatAt returns the block format of the line holding index.
func (s *State) LineFormatAt(index int) LineFormat {
	end := lineEnd(s.items, index)
	if end < 0 {
		return LinePlain
	}
	return s.items[end].Line
}

// Touch re-renders the node at index without changing the model.
func (s *State) Touch(index int, src Source) {
	if index < 0 || index >= len(s.items) {
		return
	}
	s.emitText(TextChange{Index: index, Source: src})
}

// Editing helpers used by the host.

// TypeText replaces the selection with text and moves the caret past it.
func (s *State) TypeText(text string) {
	sel, ok := s.Selection()
	if !ok {
		return
	}
	if t, c, ok := s.FocusedCell(); ok {
		s.SetCellText(t, c.Row, c.Col, t.CellText(c.Row, c.Col)+text)
		return
	}
	if sel.Length > 0 {
		s.DeleteText(sel.Index, sel.Length, SourceUser)
	}
	attr := Attr{}
	if sel.Index > 0 {
		if prev := s.items[sel.Index-1]; prev.Embed == nil && !prev.IsNewline() {
			attr = prev.Attr
		}
	}
	n := s.InsertText(sel.Index, text, attr, SourceUser)
	s.SetSelection(sel.Index+n, 0, SourceUser)
}

func (s *State) Backspace() {
	sel, ok := s.Selection()
	if !ok {
		return
	}
	if t, c, ok := s.FocusedCell(); ok {
		rs := []rune(t.CellText(c.Row, c.Col))
		if len(rs) > 0 {
			s.SetCellText(t, c.Row, c.Col, string(rs[:len(rs)-1]))
		}
		return
	}
	if sel.Length > 0 {
		s.DeleteText(sel.Index, sel.Length, SourceUser)
		s.SetSelection(sel.Index, 0, SourceUser)
		return
	}
	if sel.Index == 0 {
		return
	}
	s.DeleteText(sel.Index-1, 1, SourceUser)
	s.SetSelection(sel.Index-1, 0, SourceUser)
}

func (s *State) DeleteForward() {
	sel, ok := s.Selection()
	if !ok {
		return
	}
	if sel.Length > 0 {
		s.DeleteText(sel.Index, sel.Length, SourceUser)
		return
	}
	s.DeleteText(sel.Index, 1, SourceUser)
	s.SetSelection(sel.Index, 0, SourceUser)
}

// MoveCaret moves the caret by delta items. With extend the anchor stays put.
func (s *State) MoveCaret(delta int, extend bool) {
	sel, ok := s.Selection()
	if !ok {
		s.SetSelection(0, 0, SourceUser)
		return
	}
	if extend {
		s.SetSelection(sel.Index, sel.Length+delta, SourceUser)
		return
	}
	target := sel.Index + delta
	if sel.Length > 0 {
		if delta > 0 {
			target = sel.End()
		} else {
			target = sel.Index
		}
	}
	s.SetSelection(target, 0, SourceUser)
}

// MoveWord jumps to the previous (dir < 0) or next word boundary.
func (s *State) MoveWord(dir int) {
	sel, ok := s.Selection()
	if !ok {
		return
	}
	pos := sel.Index
	if dir < 0 {
		for pos > 0 && !isWordItem(s.items[pos-1]) {
			pos--
		}
		for pos > 0 && isWordItem(s.items[pos-1]) {
			pos--
		}
	} else {
		last := len(s.items) - 1
		for pos < last && !isWordItem(s.items[pos]) {
			pos++
		}
		for pos < last && isWordItem(s.items[pos]) {
			pos++
		}
	}
	s.SetSelection(pos, 0, SourceUser)
}

func isWordItem(it Item) bool {
	return it.Embed == nil && (unicode.IsLetter(it.R) || unicode.IsDigit(it.R) || it.R == '_')
}

func (s *State) SelectAll() {
	s.SetSelection(0, len(s.items)-1, SourceUser)
}

func (s *State) SelectedText() string {
	sel, ok := s.Selection()
	if !ok || sel.Length == 0 {
		return ""
	}
	return s.Text(sel.Index, sel.Length)
}

// Snapshot captures the model and selection for undo.
type Snapshot struct {
	items []Item
	sel   *Range
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{items: cloneItems(s.items), sel: copyRange(s.sel)}
}

func (s *State) Restore(snap Snapshot) {
	if len(snap.items) == 0 {
		return
	}
	old := len(s.items)
	s.items = cloneItems(snap.items)
	s.cellFocus = nil
	s.emitText(TextChange{Index: 0, Inserted: len(s.items), Deleted: old, Source: SourceUser})
	s.setSelection(copyRange(snap.sel), SourceSilent)
}

// Reset replaces the document with items, e.g. after loading a file.
func (s *State) Reset(items []Item) {
	if len(items) == 0 || !items[len(items)-1].IsNewline() {
		items = append(items, Item{R: '\n'})
	}
	s.Restore(Snapshot{items: items, sel: &Range{}})
}
