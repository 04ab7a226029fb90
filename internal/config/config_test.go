package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`{"table":{"max_cols":6,"edge_px":8},"logging":{"level":"debug"}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cfg.Table.MaxCols != 6 || cfg.Table.EdgePx != 8 {
		t.Fatalf("table overrides not applied: %+v", cfg.Table)
	}
	if cfg.Table.MaxRows != 100 {
		t.Fatalf("expected default max rows to survive, got %d", cfg.Table.MaxRows)
	}
	if cfg.Logging.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.Logging.SlogLevel())
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"tabel":{}}`)); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestValidateRejectsBadSizes(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"table":{"max_rows":0}}`))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	_, err = Decode(strings.NewReader(`{"page":{"margin_px":500}}`))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for margin, got %v", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Table.HideDelay() != 180*time.Millisecond {
		t.Fatalf("unexpected hide delay %v", cfg.Table.HideDelay())
	}
	if cfg.Page.ContentHeight() != 1123-144 {
		t.Fatalf("unexpected content height %d", cfg.Page.ContentHeight())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sumdoc.json")
	if err := os.WriteFile(path, []byte(`{"toolbar":{"width_px":300,"gap_px":12}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Toolbar.WidthPx != 300 || cfg.Toolbar.GapPx != 12 {
		t.Fatalf("unexpected toolbar config: %+v", cfg.Toolbar)
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Logging{Level: "warn"}.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected log output: %q", out)
	}
}
