package mathblock

import "sumdoc/internal/editor"

// Surface is what a commit needs from the editing surface.
type Surface interface {
	IndexOf(e editor.Embed) int
	Touch(index int, src editor.Source)
}

// Popover is the editing popover for one block at a time. Its open state
// is shared with the toolbar positioner.
type Popover struct {
	block *Block
	draft string
}

func NewPopover() *Popover { return &Popover{} }

// Open pre-fills the draft with the block's current source.
func (p *Popover) Open(b *Block) {
	if b == nil {
		return
	}
	p.block = b
	p.draft = b.Tex()
}

func (p *Popover) IsOpen() bool  { return p.block != nil }
func (p *Popover) Block() *Block { return p.block }
func (p *Popover) Draft() string { return p.draft }

func (p *Popover) SetDraft(s string) { p.draft = s }

// Commit writes the draft into the block and re-renders it. It fails when
// the block was deleted while the popover was open.
func (p *Popover) Commit(s Surface) bool {
	if p.block == nil {
		return false
	}
	b, draft := p.block, p.draft
	p.Cancel()
	index := s.IndexOf(b)
	if index < 0 {
		return false
	}
	b.SetTex(draft)
	s.Touch(index, editor.SourceUser)
	return true
}

func (p *Popover) Cancel() {
	p.block = nil
}
