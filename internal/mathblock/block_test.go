package mathblock

import (
	"errors"
	"strings"
	"testing"

	"sumdoc/internal/editor"
)

type stubRenderer struct {
	out   string
	err   error
	panic bool
	calls int
	last  Options
}

func (s *stubRenderer) Render(src string, opts Options) (string, error) {
	s.calls++
	s.last = opts
	if s.panic {
		panic("boom")
	}
	return s.out, s.err
}

func TestRenderEmptyShowsPlaceholder(t *testing.T) {
	r := &stubRenderer{out: "<math></math>"}
	out := New("  ").Render(r)
	if !out.Placeholder || !strings.Contains(out.HTML, Placeholder) {
		t.Fatalf("expected placeholder, got %+v", out)
	}
	if r.calls != 0 {
		t.Fatalf("empty source must not reach the renderer")
	}
}

func TestRenderNeverFailsSilently(t *testing.T) {
	cases := []struct {
		name string
		r    Renderer
	}{
		{"error", &stubRenderer{err: errors.New("bad \\frac")}},
		{"panic", &stubRenderer{panic: true}},
		{"empty output", &stubRenderer{out: "  "}},
		{"nil renderer", nil},
	}
	for _, tc := range cases {
		out := New(`\frac{1}{`).Render(tc.r)
		if !out.Failed || out.HTML == "" || !strings.Contains(out.HTML, "math-error") {
			t.Fatalf("%s: expected error placeholder, got %+v", tc.name, out)
		}
	}
}

func TestRenderUsesDisplayModeWithoutThrowing(t *testing.T) {
	r := &stubRenderer{out: "<math>x</math>"}
	out := New("x").Render(r)
	if out.Failed || out.HTML != "<math>x</math>" {
		t.Fatalf("unexpected output %+v", out)
	}
	if r.last != (Options{DisplayMode: true, ThrowOnError: false}) {
		t.Fatalf("unexpected options %+v", r.last)
	}
}

func TestTreeBloodRendersMathML(t *testing.T) {
	out, err := NewTreeBlood().Render("x^2", Options{DisplayMode: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<math") {
		t.Fatalf("expected MathML, got %q", out)
	}
}

func TestTreeBloodMalformedSourceStillRenders(t *testing.T) {
	r := NewTreeBlood()
	for _, src := range []string{`\frac{1}{`, `}}}`, `\unknowncommand{x}`, `\left(`} {
		out := New(src).Render(r)
		if out.HTML == "" {
			t.Fatalf("%q: empty output", src)
		}
	}
}

func TestHTMLIsNotEditable(t *testing.T) {
	b := New(`a<b`)
	b.Render(&stubRenderer{out: "<math>a</math>"})
	got := b.HTML()
	if !strings.Contains(got, `contenteditable="false"`) || !strings.Contains(got, `data-tex="a&lt;b"`) {
		t.Fatalf("unexpected markup %s", got)
	}
}

func TestPlainTextFlattensMarkup(t *testing.T) {
	if got := PlainText("<math><mi>x</mi> <mo>+</mo>\n<mn>1</mn></math>"); got != "x + 1" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestPopoverCommitReplacesSource(t *testing.T) {
	s := editor.NewState()
	b := New("")
	s.InsertEmbed(0, b, editor.SourceAPI)
	var touched []editor.TextChange
	s.OnTextChange(func(ch editor.TextChange) { touched = append(touched, ch) })

	p := NewPopover()
	p.Open(b)
	if !p.IsOpen() || p.Draft() != "" {
		t.Fatalf("popover must open pre-filled")
	}
	p.SetDraft(`\sqrt{2}`)
	if !p.Commit(s) {
		t.Fatalf("commit failed")
	}
	if b.Tex() != `\sqrt{2}` || p.IsOpen() {
		t.Fatalf("commit did not apply: tex=%q open=%v", b.Tex(), p.IsOpen())
	}
	if len(touched) != 1 || touched[0].Index != 0 {
		t.Fatalf("expected one re-render event, got %+v", touched)
	}
}

func TestPopoverCommitAfterDeletion(t *testing.T) {
	s := editor.NewState()
	b := New("x")
	s.InsertEmbed(0, b, editor.SourceAPI)
	p := NewPopover()
	p.Open(b)
	s.DeleteText(0, 1, editor.SourceUser)
	p.SetDraft("y")
	if p.Commit(s) {
		t.Fatalf("commit must fail for a removed block")
	}
	if p.IsOpen() || b.Tex() != "x" {
		t.Fatalf("removed block must be left alone")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	e, err := Decode(`e^{i\pi}`)
	if err != nil || e.Kind() != Kind || e.Value() != `e^{i\pi}` {
		t.Fatalf("unexpected decode %v %v", e, err)
	}
}
