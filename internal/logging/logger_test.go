package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"deckhand/internal/config"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logger.Info("probe completed", String(FieldDeck, "10.0.0.4"), Int("attempt", 1))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if record["msg"] != "probe completed" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Errorf("level = %v", record["level"])
	}
	if record[FieldDeck] != "10.0.0.4" {
		t.Errorf("deck = %v", record[FieldDeck])
	}
	if _, ok := record["ts"]; !ok {
		t.Error("missing ts field")
	}
}

func TestNewConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logger.Info("state changed", String("from", "Connected"), String("to", "Degraded"))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Errorf("missing level: %q", line)
	}
	if !strings.Contains(line, "state changed") {
		t.Errorf("missing message: %q", line)
	}
	if !strings.Contains(line, "from=Connected") || !strings.Contains(line, "to=Degraded") {
		t.Errorf("missing attrs: %q", line)
	}
}

func TestConsoleQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("clip loaded", String("clip", "interview take 2"))
	if !strings.Contains(buf.String(), `clip="interview take 2"`) {
		t.Fatalf("value not quoted: %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Debug("suppressed")
	logger.Info("suppressed too")
	logger.Warn("kept")

	lines := strings.Count(buf.String(), "\n")
	if lines != 1 {
		t.Fatalf("lines = %d, want 1:\n%s", lines, buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("unknown format accepted")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "error"
	if _, err := NewFromConfig(&cfg); err != nil {
		t.Fatalf("from config: %v", err)
	}
	if _, err := NewFromConfig(nil); err != nil {
		t.Fatalf("nil config: %v", err)
	}
}

func TestComponentLoggerTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	NewComponentLogger(logger, "health").Info("probe ok")
	if !strings.Contains(buf.String(), "component=health") {
		t.Fatalf("missing component tag: %q", buf.String())
	}

	if nop := NewComponentLogger(nil, "health"); nop == nil {
		t.Fatal("nil logger must yield a nop logger, not nil")
	}
}

func TestWithContextCarriesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithCorrelationID(context.Background(), "req-42")
	WithContext(ctx, logger).Info("command sent")
	if !strings.Contains(buf.String(), "correlation_id=req-42") {
		t.Fatalf("missing correlation id: %q", buf.String())
	}

	buf.Reset()
	WithContext(context.Background(), logger).Info("no correlation")
	if strings.Contains(buf.String(), "correlation_id") {
		t.Fatalf("unexpected correlation id: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopDiscardsEverything(t *testing.T) {
	logger := NewNop()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not enable any level")
	}
}
