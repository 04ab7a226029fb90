package editor

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
)

const KindImage = "image"

// Image is an embedded picture held as a data URL. W and H are the
// intrinsic size when known.
type Image struct {
	Src string
	W   int
	H   int
}

func (im *Image) Kind() string  { return KindImage }
func (im *Image) Value() string { return im.Src }

func (im *Image) Clone() Embed {
	c := *im
	return &c
}

// Extent scales the picture down to fit avail, keeping its aspect ratio.
func (im *Image) Extent(avail, lineH int) (int, int) {
	w, h := im.W, im.H
	if w <= 0 || h <= 0 {
		w, h = 240, 160
	}
	if avail > 0 && w > avail {
		h = h * avail / w
		w = avail
	}
	if h < lineH {
		h = lineH
	}
	return w, h
}

func (im *Image) HTML() string {
	if im.W > 0 && im.H > 0 {
		return fmt.Sprintf(`<img src="%s" width="%d" height="%d">`, html.EscapeString(im.Src), im.W, im.H)
	}
	return fmt.Sprintf(`<img src="%s">`, html.EscapeString(im.Src))
}

func DecodeImage(value string) (Embed, error) {
	if value == "" {
		return nil, errors.New("editor: empty image source")
	}
	return &Image{Src: value}, nil
}
