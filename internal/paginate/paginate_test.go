package paginate

import (
	"math/rand"
	"strings"
	"testing"

	"sumdoc/internal/measure"
)

type countingBox struct {
	inner Sizer
	calls int
}

func (c *countingBox) Measure(text string) measure.Size {
	c.calls++
	return c.inner.Measure(text)
}

func fixedBox(charW, lineH, width int) Sizer {
	return measure.NewBox(measure.Fixed{CharW: charW, LineH: lineH}, width)
}

func TestPaginateFiveEvenPages(t *testing.T) {
	text := strings.Repeat("A", 500)
	// 20 chars per line, 5 lines per page: 100 chars per page.
	pages := Paginate(text, fixedBox(10, 10, 200), 50)
	if len(pages) != 5 {
		t.Fatalf("expected 5 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if len([]rune(p)) != 100 {
			t.Fatalf("page %d has %d chars", i, len([]rune(p)))
		}
	}
	if strings.Join(pages, "") != text {
		t.Fatalf("concatenation does not reconstruct input")
	}
}

func TestPaginateEmptyDocument(t *testing.T) {
	pages := Paginate("", fixedBox(10, 10, 200), 50)
	if len(pages) != 1 || pages[0] != "" {
		t.Fatalf("expected a single empty page, got %q", pages)
	}
}

func TestPaginateOversizedCharacterTerminates(t *testing.T) {
	text := "abcdef"
	box := &countingBox{inner: fixedBox(10, 100, 200)}
	pages := Paginate(text, box, 50)
	if len(pages) != len(text) {
		t.Fatalf("expected one page per char, got %d", len(pages))
	}
	for _, p := range pages {
		if len(p) != 1 {
			t.Fatalf("expected single-char page, got %q", p)
		}
	}
}

func TestPaginateRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("ab c\n가나 ")
	for iter := 0; iter < 50; iter++ {
		n := rng.Intn(400)
		rs := make([]rune, n)
		for i := range rs {
			rs[i] = alphabet[rng.Intn(len(alphabet))]
		}
		text := string(rs)
		h := 10 + rng.Intn(80)
		box := fixedBox(7, 12, 90)
		pages := Paginate(text, box, h)
		if len(pages) == 0 {
			t.Fatalf("no pages for %q", text)
		}
		if len(pages) > n && n > 0 {
			t.Fatalf("more pages (%d) than runes (%d)", len(pages), n)
		}
		if strings.Join(pages, "") != text {
			t.Fatalf("round trip failed for %q", text)
		}
		for _, p := range pages {
			if len([]rune(p)) > 1 && box.Measure(p).H > h {
				t.Fatalf("page %q exceeds height %d", p, h)
			}
		}
	}
}

func TestPaginateUsesLogarithmicMeasurements(t *testing.T) {
	text := strings.Repeat("A", 1000)
	box := &countingBox{inner: fixedBox(10, 10, 200)}
	pages := Paginate(text, box, 50)
	// ceil(log2(1000)) + 1 measurements per page at most.
	if box.calls > len(pages)*11 {
		t.Fatalf("too many measurements: %d for %d pages", box.calls, len(pages))
	}
}

func TestPagerReflowsOnlyOnFontSizeChange(t *testing.T) {
	boxes := 0
	boxFor := func(pt float64) (Sizer, error) {
		boxes++
		return fixedBox(int(pt), 10, 200), nil
	}
	p, err := NewPager(strings.Repeat("A", 500), 10, 50, boxFor)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 5 {
		t.Fatalf("expected 5 pages, got %d", p.Len())
	}

	if !p.SetPage(0, strings.Repeat("B", 150)) {
		t.Fatalf("SetPage rejected a valid index")
	}
	if p.Len() != 5 || boxes != 1 {
		t.Fatalf("content edit must not re-flow (pages=%d boxes=%d)", p.Len(), boxes)
	}

	changed, err := p.SetFontSize(10)
	if err != nil || changed {
		t.Fatalf("same size must not re-flow: changed=%v err=%v", changed, err)
	}

	changed, err = p.SetFontSize(20)
	if err != nil || !changed {
		t.Fatalf("expected re-flow: changed=%v err=%v", changed, err)
	}
	// 10 chars per line, 5 lines: 50 chars per page over 550 chars.
	if p.Len() != 11 {
		t.Fatalf("expected 11 pages after re-flow, got %d", p.Len())
	}
	if got := p.Text(); got != strings.Repeat("B", 150)+strings.Repeat("A", 400) {
		t.Fatalf("re-flow lost content")
	}
}

func TestPagerEditKeepsSplitUntilFontSizeChange(t *testing.T) {
	boxes := 0
	boxFor := func(pt float64) (Sizer, error) {
		boxes++
		return fixedBox(int(pt), 10, 200), nil
	}
	text := strings.Repeat("A", 500)
	p, err := NewPager(text, 10, 50, boxFor)
	if err != nil {
		t.Fatal(err)
	}

	typed := text[:150] + "xyz" + text[150:]
	if got := p.Edit(typed); got != 1 {
		t.Fatalf("typing at 150 should edit page 1, got %d", got)
	}
	pages := p.Pages()
	if len(pages) != 5 || boxes != 1 {
		t.Fatalf("typing must not re-flow (pages=%d boxes=%d)", len(pages), boxes)
	}
	if pages[1] != strings.Repeat("A", 50)+"xyz"+strings.Repeat("A", 50) {
		t.Fatalf("edit landed in the wrong place: %q", pages[1])
	}
	for _, i := range []int{0, 2, 3, 4} {
		if len(pages[i]) != 100 {
			t.Fatalf("page %d changed to %d runes", i, len(pages[i]))
		}
	}
	if p.Text() != typed {
		t.Fatalf("pages no longer match the document")
	}
	if p.Edit(typed) != -1 {
		t.Fatalf("an unchanged document must not edit any page")
	}

	// Deleting across a page boundary folds the covered page into page 1.
	trimmed := strings.Repeat("A", 350)
	if got := p.Edit(trimmed); got != 1 {
		t.Fatalf("deletion should edit page 1, got %d", got)
	}
	if p.Len() != 4 || p.Text() != trimmed || boxes != 1 {
		t.Fatalf("unexpected pages after deletion: len=%d boxes=%d", p.Len(), boxes)
	}

	if _, err := p.SetFontSize(20); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 7 || boxes != 2 {
		t.Fatalf("font size change should re-flow into 7 pages, got %d (boxes=%d)", p.Len(), boxes)
	}
}

func TestPagerEditEmptiesAndRefillsDocument(t *testing.T) {
	p, err := NewPager("abc", 10, 50, func(pt float64) (Sizer, error) { return fixedBox(10, 10, 200), nil })
	if err != nil {
		t.Fatal(err)
	}
	p.Edit("")
	if p.Len() != 1 || p.Text() != "" {
		t.Fatalf("expected one empty page, got %q", p.Pages())
	}
	p.Edit("z")
	if got := p.Pages(); len(got) != 1 || got[0] != "z" {
		t.Fatalf("expected typing into the empty page, got %q", got)
	}
}
