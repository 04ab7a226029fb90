package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sqweek/dialog"
	"golang.org/x/image/bmp"
)

func encoded(t *testing.T, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := enc(&buf, image.NewRGBA(image.Rect(0, 0, 12, 7))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDataURLKnowsFormatAndSize(t *testing.T) {
	cases := []struct {
		mime string
		enc  func(*bytes.Buffer, image.Image) error
	}{
		{"image/png", func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) }},
		{"image/bmp", func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) }},
	}
	for _, tc := range cases {
		img, err := DataURL(encoded(t, tc.enc))
		if err != nil {
			t.Fatalf("%s: %v", tc.mime, err)
		}
		if !strings.HasPrefix(img.Src, "data:"+tc.mime+";base64,") {
			t.Fatalf("%s: unexpected src prefix %.40q", tc.mime, img.Src)
		}
		if img.W != 12 || img.H != 7 {
			t.Fatalf("%s: expected 12x7, got %dx%d", tc.mime, img.W, img.H)
		}
	}
}

func TestDataURLRejectsText(t *testing.T) {
	if _, err := DataURL([]byte("just some words")); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}

func TestReaderLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	data := encoded(t, func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) })
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	img, err := NewReader().Read(context.Background(), path)
	if err != nil || img == nil || img.W != 12 {
		t.Fatalf("unexpected read %+v %v", img, err)
	}

	small := &Reader{MaxBytes: 8}
	if _, err := small.Read(context.Background(), path); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := NewReader().Read(context.Background(), filepath.Join(dir, "missing.png")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestReaderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewReader().Read(ctx, "whatever"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPickerCancelIsEmptyPath(t *testing.T) {
	p := &Picker{open: func() (string, error) { return "", dialog.ErrCancelled }}
	path, err := p.Pick(context.Background())
	if err != nil || path != "" {
		t.Fatalf("cancel must be an empty path, got %q %v", path, err)
	}

	boom := errors.New("no display")
	p = &Picker{open: func() (string, error) { return "", boom }}
	if _, err := p.Pick(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	p = &Picker{open: func() (string, error) { return "/tmp/a.png", nil }}
	if path, _ := p.Pick(context.Background()); path != "/tmp/a.png" {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestDecodeDataURL(t *testing.T) {
	img, err := DataURL(encoded(t, func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) }))
	if err != nil {
		t.Fatalf("data url: %v", err)
	}
	pic, err := Decode(img.Src)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := pic.Bounds(); b.Dx() != 12 || b.Dy() != 7 {
		t.Fatalf("unexpected bounds %v", b)
	}
	for _, src := range []string{"", "https://x/a.png", "data:image/png;base64,@@", "data:text/plain;base64,aGk="} {
		if _, err := Decode(src); !errors.Is(err, ErrNotImage) {
			t.Fatalf("%q: expected ErrNotImage, got %v", src, err)
		}
	}
}
