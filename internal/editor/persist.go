package editor

import (
	"errors"
	"fmt"

	"sumdoc/pkg/sumdoc"
)

var ErrUnknownEmbed = errors.New("editor: unknown embed kind")

// Codec rebuilds an embed from its stored value.
type Codec func(value string) (Embed, error)

// Codecs maps embed kinds to their decoders.
type Codecs map[string]Codec

func DefaultCodecs() Codecs {
	return Codecs{KindTable: DecodeTable, KindImage: DecodeImage}
}

// ToFile converts the surface content to storage form.
func (s *State) ToFile(meta sumdoc.Metadata) *sumdoc.Document {
	doc := &sumdoc.Document{Metadata: meta, Text: itemsText(s.items)}
	for _, r := range runsOf(s.items, 0, len(s.items)) {
		if r.Attr == (Attr{}) {
			continue
		}
		doc.Runs = append(doc.Runs, sumdoc.StyleRun{
			Start: uint32(r.Start),
			End:   uint32(r.End),
			Attr: sumdoc.StyleAttr{
				Bold:      r.Attr.Bold,
				Italic:    r.Attr.Italic,
				Underline: r.Attr.Underline,
				Highlight: r.Attr.Highlight,
				Code:      r.Attr.Code,
			},
		})
	}
	for i, it := range s.items {
		switch {
		case it.Embed != nil:
			doc.Embeds = append(doc.Embeds, sumdoc.EmbedEntry{Offset: uint32(i), Kind: it.Embed.Kind(), Value: it.Embed.Value()})
		case it.IsNewline() && it.Line != LinePlain:
			doc.Lines = append(doc.Lines, sumdoc.LineEntry{Offset: uint32(i), Format: uint8(it.Line)})
		}
	}
	return doc
}

// FromFile rebuilds the item sequence of a stored document.
func FromFile(doc *sumdoc.Document, codecs Codecs) ([]Item, error) {
	if err := sumdoc.Validate(doc); err != nil {
		return nil, err
	}
	runes := []rune(doc.Text)
	items := make([]Item, len(runes))
	for i, r := range runes {
		items[i] = Item{R: r}
	}
	for _, e := range doc.Embeds {
		decode, ok := codecs[e.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEmbed, e.Kind)
		}
		emb, err := decode(e.Value)
		if err != nil {
			return nil, fmt.Errorf("decode %s embed at %d: %w", e.Kind, e.Offset, err)
		}
		items[e.Offset] = Item{R: ObjectReplacement, Embed: emb}
	}
	for _, l := range doc.Lines {
		f := LineFormat(l.Format)
		if f > LineCodeBlock {
			f = LinePlain
		}
		items[l.Offset].Line = f
	}
	runs := make([]StyleRun, 0, len(doc.Runs))
	for _, r := range doc.Runs {
		runs = append(runs, StyleRun{Start: int(r.Start), End: int(r.End), Attr: Attr{
			Bold:      r.Attr.Bold,
			Italic:    r.Attr.Italic,
			Underline: r.Attr.Underline,
			Highlight: r.Attr.Highlight,
			Code:      r.Attr.Code,
		}})
	}
	applyRuns(items, runs)
	return items, nil
}

// Load replaces the surface content with a stored document.
func (s *State) Load(doc *sumdoc.Document, codecs Codecs) error {
	items, err := FromFile(doc, codecs)
	if err != nil {
		return err
	}
	s.Reset(items)
	return nil
}
