package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		entries = append(entries, m)
	}
	return entries
}

func TestZerologAdapterLevels(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	l := NewLogger(&buf, "solver")
	l.Info("halo exchanged", Int("rank", 2), Duration("wait", 3*time.Millisecond))
	l.Debug("residual reduced", Float64("residual", 0.25))
	l.Error("peer lost", errors.New("connection reset"), String("peer", "127.0.0.1:9001"))

	entries := decodeLines(t, &buf)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	wantLevels := []string{"info", "debug", "error"}
	for i, e := range entries {
		if e["level"] != wantLevels[i] {
			t.Errorf("entry %d level = %v, want %s", i, e["level"], wantLevels[i])
		}
		if e["component"] != "solver" {
			t.Errorf("entry %d component = %v, want solver", i, e["component"])
		}
	}
	if entries[0]["rank"] != float64(2) {
		t.Errorf("rank = %v, want 2", entries[0]["rank"])
	}
	if entries[1]["residual"] != 0.25 {
		t.Errorf("residual = %v, want 0.25", entries[1]["residual"])
	}
	if entries[2]["error"] != "connection reset" || entries[2]["peer"] != "127.0.0.1:9001" {
		t.Errorf("error entry = %v", entries[2])
	}
}

func TestZerologAdapterGlobalLevel(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	l := NewLogger(&buf, "solver")
	l.Info("dropped")
	l.Debug("dropped")
	l.Error("kept", errors.New("boom"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["message"] != "kept" {
		t.Errorf("entries = %v, want only the error", entries)
	}
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, "heatcalc")
	child := base.With(String("run_id", "abc"), Int("rank", 1))
	child.Info("mesh connected")
	base.Info("parent untouched")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["run_id"] != "abc" || entries[0]["rank"] != float64(1) {
		t.Errorf("child entry = %v", entries[0])
	}
	if _, ok := entries[1]["run_id"]; ok {
		t.Errorf("parent entry carries child fields: %v", entries[1])
	}
}

func TestApplyFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapter(zerolog.New(&buf))
	l.Info("types",
		Field{Key: "b", Value: true},
		Field{Key: "i64", Value: int64(-4)},
		Field{Key: "cause", Value: errors.New("x")},
		Field{Key: "peers", Value: []string{"a", "b"}},
		Err(errors.New("y")),
	)

	e := decodeLines(t, &buf)[0]
	if e["b"] != true || e["i64"] != float64(-4) || e["cause"] != "x" || e["error"] != "y" {
		t.Errorf("entry = %v", e)
	}
	if peers, ok := e["peers"].([]any); !ok || len(peers) != 2 {
		t.Errorf("peers = %v", e["peers"])
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "heatcalc.log")
	l, closer := NewFileLogger(path, "heatcalc")
	l.Info("solve finished", Int("iterations", 12))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	entries := decodeLines(t, bytes.NewBuffer(data))
	if len(entries) != 1 || entries[0]["iterations"] != float64(12) {
		t.Errorf("entries = %v", entries)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("x", Int("a", 1))
	l.Debug("x")
	l.Error("x", errors.New("y"))
}
