package app

import (
	"log/slog"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sqweek/dialog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"sumdoc/internal/editor"
	"sumdoc/internal/mathblock"
	"sumdoc/internal/measure"
	"sumdoc/internal/media"
)

type uiKey struct {
	size  int
	bold  bool
	scale int
}

// faceBank caches document faces per style at the current font size and
// UI faces per size and scale.
type faceBank struct {
	pt      float64
	doc     map[measure.Style]*measure.Face
	uiFaces map[uiKey]font.Face
}

func newFaceBank(pt float64) *faceBank {
	return &faceBank{pt: pt, doc: map[measure.Style]*measure.Face{}, uiFaces: map[uiKey]font.Face{}}
}

func (b *faceBank) reset(pt float64) {
	b.pt = pt
	clear(b.doc)
}

func (b *faceBank) resetUI() { clear(b.uiFaces) }

// get returns nil only when the embedded fonts fail to parse.
func (b *faceBank) get(st measure.Style) *measure.Face {
	if f, ok := b.doc[st]; ok {
		return f
	}
	f, err := measure.NewFace(b.pt, st)
	if err != nil {
		return nil
	}
	b.doc[st] = f
	return f
}

func (b *faceBank) face(st measure.Style) font.Face {
	if f := b.get(st); f != nil {
		return f.Font()
	}
	return basicfont.Face7x13
}

func (b *faceBank) ui(size int, bold bool, scale float32) font.Face {
	key := uiKey{size: size, bold: bold, scale: int(math.Round(float64(scale * 1000)))}
	if f, ok := b.uiFaces[key]; ok {
		return f
	}
	mf, err := measure.NewFace(float64(size)*float64(scale), measure.Style{Bold: bold})
	if err != nil {
		return basicfont.Face7x13
	}
	b.uiFaces[key] = mf.Font()
	return mf.Font()
}

// imageCache decodes embedded pictures once per source. Undecodable
// sources are cached as nil so they are not retried every frame.
type imageCache struct {
	log    *slog.Logger
	images map[string]*ebiten.Image
}

func newImageCache(log *slog.Logger) *imageCache {
	return &imageCache{log: log, images: map[string]*ebiten.Image{}}
}

func (c *imageCache) get(im *editor.Image) *ebiten.Image {
	if img, ok := c.images[im.Src]; ok {
		return img
	}
	decoded, err := media.Decode(im.Src)
	if err != nil {
		c.log.Warn("image decode", "err", err)
		c.images[im.Src] = nil
		return nil
	}
	img := ebiten.NewImageFromImage(decoded)
	c.images[im.Src] = img
	return img
}

// labelCache memoises the typeset label of each formula source.
type labelCache struct {
	labels map[string]string
}

func newLabelCache() *labelCache { return &labelCache{labels: map[string]string{}} }

func (c *labelCache) get(b *mathblock.Block, r mathblock.Renderer) string {
	return c.preview(b.Tex(), r)
}

func (c *labelCache) preview(tex string, r mathblock.Renderer) string {
	if l, ok := c.labels[tex]; ok {
		return l
	}
	l := mathblock.New(tex).Label(r)
	if len(c.labels) > 256 {
		clear(c.labels)
	}
	c.labels[tex] = l
	return l
}

type dialogAlerter struct{ title string }

func (d dialogAlerter) Alert(msg string) {
	dialog.Message("%s", msg).Title(d.title).Info()
}
