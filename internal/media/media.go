// Package media turns picked image files into data URL image nodes.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"

	"github.com/sqweek/dialog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"sumdoc/internal/editor"
)

// MaxBytes caps the size of an embedded image file.
const MaxBytes = 16 << 20

var (
	ErrNotImage = errors.New("media: not an image")
	ErrTooLarge = errors.New("media: image too large")
)

var imageExts = []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"}

// Picker prompts with the native open dialog.
type Picker struct {
	open func() (string, error)
}

func NewPicker() *Picker {
	return &Picker{open: func() (string, error) {
		return dialog.File().Title("이미지 선택").Filter("Images", imageExts...).Load()
	}}
}

// Pick returns the chosen path, or "" when the user cancelled.
func (p *Picker) Pick(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := p.open()
	if errors.Is(err, dialog.ErrCancelled) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("media: pick: %w", err)
	}
	return path, nil
}

// Reader loads image files from disk.
type Reader struct {
	MaxBytes int64
}

func NewReader() *Reader { return &Reader{MaxBytes: MaxBytes} }

func (r *Reader) Read(ctx context.Context, path string) (*editor.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("media: stat: %w", err)
	}
	if limit := r.MaxBytes; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("media: read: %w", err)
	}
	return DataURL(data)
}

// DataURL sniffs data's type and wraps it in an image node. The intrinsic
// size is filled in when the format can be decoded.
func DataURL(data []byte) (*editor.Image, error) {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mime)
	}
	img := &editor.Image{Src: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.W, img.H = cfg.Width, cfg.Height
	}
	return img, nil
}

// Decode reverses DataURL for painting: it decodes the picture held by a
// base64 data URL.
func Decode(src string) (image.Image, error) {
	head, payload, ok := strings.Cut(src, ",")
	if !ok || !strings.HasPrefix(head, "data:image/") || !strings.HasSuffix(head, ";base64") {
		return nil, fmt.Errorf("%w: not a base64 data URL", ErrNotImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return img, nil
}
