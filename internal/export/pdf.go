// Package export writes the document's HTML rendition to PDF.
package export

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"sumdoc/internal/config"
)

// pxToPt converts CSS pixels to PDF points.
const pxToPt = 0.75

const (
	fontText = "Go"
	fontMono = "GoMono"
	indent   = 18
)

var ErrBadImage = errors.New("export: unreadable image")

type Options struct {
	Margins    float64
	FontSize   float64
	PageWidth  float64
	PageHeight float64
	Title      string
}

func DefaultOptions() Options {
	return Options{Margins: 40, FontSize: 14, PageWidth: 595.28, PageHeight: 841.89}
}

// OptionsFrom derives export options from the page configuration.
func OptionsFrom(p config.Page) Options {
	o := DefaultOptions()
	o.Margins = p.ExportMargins
	o.FontSize = p.FontSizePt
	o.PageWidth = float64(p.WidthPx) * pxToPt
	o.PageHeight = float64(p.HeightPx) * pxToPt
	return o
}

// DocumentOptions exports the open document: page geometry and margins
// from the configuration, type at the editor's current font size.
func DocumentOptions(p config.Page, fontSizePt float64, title string) Options {
	o := OptionsFrom(p)
	if fontSizePt > 0 {
		o.FontSize = fontSizePt
	}
	o.Title = title
	return o
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Margins <= 0 {
		o.Margins = d.Margins
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.PageWidth <= 0 || o.PageHeight <= 0 {
		o.PageWidth, o.PageHeight = d.PageWidth, d.PageHeight
	}
	return o
}

// PDF renders markup to w.
func PDF(w io.Writer, markup string, opts Options) error {
	pdf, err := render(markup, opts)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

// WriteFile renders markup into the file at path.
func WriteFile(path, markup string, opts Options) error {
	var buf bytes.Buffer
	if err := PDF(&buf, markup, opts); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

type inline struct {
	bold, italic, underline, highlight, code bool
}

type writer struct {
	pdf    *fpdf.Fpdf
	opts   Options
	lineH  float64
	style  inline
	images int
}

func render(markup string, opts Options) (*fpdf.Fpdf, error) {
	opts = opts.withDefaults()
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("export: parse: %w", err)
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: opts.PageWidth, Ht: opts.PageHeight},
	})
	pdf.AddUTF8FontFromBytes(fontText, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontText, "B", gobold.TTF)
	pdf.AddUTF8FontFromBytes(fontText, "I", goitalic.TTF)
	pdf.AddUTF8FontFromBytes(fontText, "BI", gobolditalic.TTF)
	pdf.AddUTF8FontFromBytes(fontMono, "", gomono.TTF)
	pdf.SetCreator("sumdoc", true)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	m := opts.Margins
	pdf.SetMargins(m, m, m)
	pdf.SetAutoPageBreak(true, m)
	pdf.AddPage()

	x := &writer{pdf: pdf, opts: opts, lineH: opts.FontSize * 1.4}
	x.setFont()
	if body := find(doc, atom.Body); body != nil {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			x.block(c)
		}
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return pdf, nil
}

func (x *writer) setFont() {
	if x.style.code {
		x.pdf.SetFont(fontMono, "", x.opts.FontSize*0.9)
	} else {
		style := ""
		if x.style.bold {
			style += "B"
		}
		if x.style.italic {
			style += "I"
		}
		if x.style.underline {
			style += "U"
		}
		x.pdf.SetFont(fontText, style, x.opts.FontSize)
	}
	if x.style.highlight {
		x.pdf.SetTextColor(176, 112, 0)
	} else {
		x.pdf.SetTextColor(0, 0, 0)
	}
}

func (x *writer) block(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			x.pdf.Write(x.lineH, n.Data)
			x.pdf.Ln(x.lineH)
		}
		return
	case html.ElementNode:
	default:
		return
	}
	switch n.DataAtom {
	case atom.P:
		x.inlineChildren(n)
		x.pdf.Ln(x.lineH)
	case atom.Blockquote:
		x.quote(n)
	case atom.Pre:
		x.pre(n)
	case atom.Table:
		x.table(n)
	case atom.Img:
		x.image(n)
		x.pdf.Ln(x.lineH / 2)
	case atom.Div:
		if hasClass(n, "math-block") {
			x.math(n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			x.block(c)
		}
	default:
		x.inlineChildren(n)
		x.pdf.Ln(x.lineH)
	}
}

func (x *writer) inlineChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		x.inline(c)
	}
}

func (x *writer) inline(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		x.pdf.Write(x.lineH, n.Data)
		return
	case html.ElementNode:
	default:
		return
	}
	saved := x.style
	switch n.DataAtom {
	case atom.Br:
		x.pdf.Ln(x.lineH)
		return
	case atom.Img:
		x.image(n)
		return
	case atom.Strong, atom.B:
		x.style.bold = true
	case atom.Em, atom.I:
		x.style.italic = true
	case atom.U:
		x.style.underline = true
	case atom.Mark:
		x.style.highlight = true
	case atom.Code:
		x.style.code = true
	}
	x.setFont()
	x.inlineChildren(n)
	x.style = saved
	x.setFont()
}

func (x *writer) quote(n *html.Node) {
	left, _, _, _ := x.pdf.GetMargins()
	top := x.pdf.GetY()
	x.pdf.SetLeftMargin(left + indent)
	x.pdf.SetX(left + indent)
	x.style.italic = true
	x.setFont()
	x.inlineChildren(n)
	x.pdf.Ln(x.lineH)
	x.style.italic = false
	x.setFont()
	x.pdf.SetLeftMargin(left)
	if bottom := x.pdf.GetY(); bottom > top {
		x.pdf.SetDrawColor(190, 190, 190)
		x.pdf.SetLineWidth(2)
		x.pdf.Line(left+4, top, left+4, bottom)
	}
}

func (x *writer) pre(n *html.Node) {
	saved := x.style
	x.style = inline{code: true}
	x.setFont()
	x.pdf.SetFillColor(244, 244, 244)
	x.pdf.MultiCell(0, x.lineH, textContent(n), "", "L", true)
	x.style = saved
	x.setFont()
}

func (x *writer) math(n *html.Node) {
	src := attr(n, "data-tex")
	if src == "" {
		src = strings.Join(strings.Fields(textContent(n)), " ")
	}
	x.pdf.SetFont(fontText, "I", x.opts.FontSize)
	x.pdf.MultiCell(0, x.lineH*1.5, src, "", "C", false)
	x.setFont()
}

func (x *writer) contentWidth() float64 {
	w, _ := x.pdf.GetPageSize()
	left, _, right, _ := x.pdf.GetMargins()
	return w - left - right
}

func (x *writer) table(n *html.Node) {
	var widths []float64
	var rows [][]string
	var heights []float64
	walk(n, func(c *html.Node) {
		if c.Type != html.ElementNode {
			return
		}
		switch c.DataAtom {
		case atom.Col:
			widths = append(widths, styleLength(attr(c, "style"), "width")*pxToPt)
		case atom.Tr:
			heights = append(heights, styleLength(attr(c, "style"), "height")*pxToPt)
			var cells []string
			for td := c.FirstChild; td != nil; td = td.NextSibling {
				if td.DataAtom == atom.Td || td.DataAtom == atom.Th {
					cells = append(cells, textContent(td))
				}
			}
			rows = append(rows, cells)
		}
	})
	cols := len(widths)
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return
	}
	cw := columnWidths(widths, cols, x.contentWidth())
	_, pageH := x.pdf.GetPageSize()
	_, _, _, bottom := x.pdf.GetMargins()
	for r, cells := range rows {
		h := max(x.lineH+4, heights[r])
		if x.pdf.GetY()+h > pageH-bottom {
			x.pdf.AddPage()
		}
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(cells) {
				text = x.fit(cells[c], cw[c]-4)
			}
			x.pdf.CellFormat(cw[c], h, text, "1", 0, "L", false, 0, "")
		}
		x.pdf.Ln(h)
	}
	x.pdf.Ln(x.lineH / 2)
}

// columnWidths keeps explicit widths, shares the rest among auto columns
// and scales everything down when the table is wider than avail.
func columnWidths(explicit []float64, cols int, avail float64) []float64 {
	out := make([]float64, cols)
	used, auto := 0.0, 0
	for c := range out {
		if c < len(explicit) && explicit[c] > 0 {
			out[c] = explicit[c]
			used += out[c]
		} else {
			auto++
		}
	}
	if auto > 0 {
		share := max((avail-used)/float64(auto), 20)
		for c := range out {
			if out[c] == 0 {
				out[c] = share
			}
		}
		used += share * float64(auto)
	}
	if used > avail {
		for c := range out {
			out[c] *= avail / used
		}
	}
	return out
}

// fit trims s until it is no wider than w.
func (x *writer) fit(s string, w float64) string {
	rs := []rune(s)
	for len(rs) > 0 && x.pdf.GetStringWidth(string(rs)) > w {
		rs = rs[:len(rs)-1]
	}
	return string(rs)
}

func (x *writer) image(n *html.Node) {
	data, typ, err := decodeDataURL(attr(n, "src"))
	if err != nil {
		x.pdf.Write(x.lineH, "[image]")
		return
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		x.pdf.Write(x.lineH, "[image]")
		return
	}
	x.images++
	name := "img" + strconv.Itoa(x.images)
	opts := fpdf.ImageOptions{ImageType: typ}
	x.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))

	w := float64(cfg.Width) * pxToPt
	h := float64(cfg.Height) * pxToPt
	if aw := attrInt(n, "width"); aw > 0 && cfg.Width > 0 {
		w = float64(aw) * pxToPt
		h = w * float64(cfg.Height) / float64(cfg.Width)
	}
	if avail := x.contentWidth(); w > avail {
		h = h * avail / w
		w = avail
	}
	left, _, _, _ := x.pdf.GetMargins()
	x.pdf.ImageOptions(name, left, -1, w, h, true, opts, 0, "")
}

// decodeDataURL returns the payload of a base64 data URL and the fpdf image
// type for it. Formats fpdf cannot embed are converted to PNG.
func decodeDataURL(src string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return nil, "", ErrBadImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", ErrBadImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	switch strings.TrimSuffix(meta, ";base64") {
	case "image/png":
		return data, "PNG", nil
	case "image/jpeg":
		return data, "JPG", nil
	case "image/gif":
		return data, "GIF", nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return buf.Bytes(), "PNG", nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func find(n *html.Node, a atom.Atom) *html.Node {
	var out *html.Node
	walk(n, func(c *html.Node) {
		if out == nil && c.Type == html.ElementNode && c.DataAtom == a {
			out = c
		}
	})
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func attrInt(n *html.Node, key string) int {
	v, _ := strconv.Atoi(attr(n, key))
	return v
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// styleLength reads a pixel length such as "width: 120px" from an inline
// style attribute. Missing or malformed values are zero.
func styleLength(style, prop string) float64 {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok || strings.TrimSpace(k) != prop {
			continue
		}
		v = strings.TrimSuffix(strings.TrimSpace(v), "px")
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
