package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Window  Window  `json:"window"`
	Page    Page    `json:"page"`
	Table   Table   `json:"table"`
	Toolbar Toolbar `json:"toolbar"`
	Logging Logging `json:"logging"`
}

type Window struct {
	Title    string `json:"title"`
	WidthPx  int    `json:"width_px"`
	HeightPx int    `json:"height_px"`
}

// Page describes the paper the pagination engine fills. Sizes are pixels at
// 100% zoom.
type Page struct {
	WidthPx       int     `json:"width_px"`
	HeightPx      int     `json:"height_px"`
	MarginPx      int     `json:"margin_px"`
	FontSizePt    float64 `json:"font_size_pt"`
	ExportMargins float64 `json:"export_margin_pt"`
}

type Table struct {
	EdgePx         int `json:"edge_px"`
	MinRowHeightPx int `json:"min_row_height_px"`
	MinColWidthPx  int `json:"min_col_width_px"`
	MaxRows        int `json:"max_rows"`
	MaxCols        int `json:"max_cols"`
	HideDelayMs    int `json:"hide_delay_ms"`
}

type Toolbar struct {
	WidthPx int `json:"width_px"`
	GapPx   int `json:"gap_px"`
}

type Logging struct {
	Level string `json:"level"`
}

func Defaults() Config {
	return Config{
		Window: Window{Title: "sumdoc", WidthPx: 1280, HeightPx: 860},
		Page: Page{
			WidthPx:       794,
			HeightPx:      1123,
			MarginPx:      72,
			FontSizePt:    14,
			ExportMargins: 40,
		},
		Table: Table{
			EdgePx:         12,
			MinRowHeightPx: 24,
			MinColWidthPx:  40,
			MaxRows:        100,
			MaxCols:        10,
			HideDelayMs:    180,
		},
		Toolbar: Toolbar{WidthPx: 280, GapPx: 10},
		Logging: Logging{Level: "info"},
	}
}

// Load reads path over Defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads JSON over Defaults, rejecting unknown fields.
func Decode(r io.Reader) (Config, error) {
	cfg := Defaults()
	raw, err := io.ReadAll(r)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var ErrInvalid = errors.New("config: invalid value")

func (c Config) Validate() error {
	checks := []struct {
		name string
		v    int
	}{
		{"page.width_px", c.Page.WidthPx},
		{"page.height_px", c.Page.HeightPx},
		{"table.edge_px", c.Table.EdgePx},
		{"table.min_row_height_px", c.Table.MinRowHeightPx},
		{"table.min_col_width_px", c.Table.MinColWidthPx},
		{"table.max_rows", c.Table.MaxRows},
		{"table.max_cols", c.Table.MaxCols},
		{"toolbar.width_px", c.Toolbar.WidthPx},
	}
	for _, ch := range checks {
		if ch.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, ch.name, ch.v)
		}
	}
	if c.Page.MarginPx < 0 || c.Page.MarginPx*2 >= c.Page.WidthPx || c.Page.MarginPx*2 >= c.Page.HeightPx {
		return fmt.Errorf("%w: page.margin_px %d does not fit the page", ErrInvalid, c.Page.MarginPx)
	}
	if c.Page.FontSizePt < 6 || c.Page.FontSizePt > 96 {
		return fmt.Errorf("%w: page.font_size_pt %.1f outside 6..96", ErrInvalid, c.Page.FontSizePt)
	}
	if c.Table.HideDelayMs < 0 {
		return fmt.Errorf("%w: table.hide_delay_ms must not be negative", ErrInvalid)
	}
	return nil
}

// ContentWidth is the width available to text inside the page margins.
func (p Page) ContentWidth() int { return p.WidthPx - 2*p.MarginPx }

// ContentHeight is the page height H used by the pagination engine.
func (p Page) ContentHeight() int { return p.HeightPx - 2*p.MarginPx }

func (t Table) HideDelay() time.Duration {
	return time.Duration(t.HideDelayMs) * time.Millisecond
}

func (l Logging) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the text logger used by the host.
func (l Logging) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l.SlogLevel()}))
}
