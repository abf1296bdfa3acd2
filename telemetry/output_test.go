package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager(\"\") error: %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should disable output")
	}

	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("nil WriteTelemetry error: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close error: %v", err)
	}
}

func TestOutputManagerTelemetryHeaders(t *testing.T) {
	dir := t.TempDir()

	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}

	if err := om.WriteTelemetry(WindowStats{WindowEndTick: 150, Ants: 100}); err != nil {
		t.Fatalf("WriteTelemetry error: %v", err)
	}
	if err := om.WriteTelemetry(WindowStats{WindowEndTick: 300, Ants: 98}); err != nil {
		t.Fatalf("WriteTelemetry error: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 records", len(lines))
	}
	if !strings.Contains(lines[0], "window_end") {
		t.Errorf("first line should be a header, got %q", lines[0])
	}
	if strings.Contains(lines[1], "window_end") || strings.Contains(lines[2], "window_end") {
		t.Error("headers repeated in data rows")
	}
}

func TestOutputManagerPerf(t *testing.T) {
	dir := t.TempDir()

	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}

	pc := NewPerfCollector(4)
	pc.StartTick()
	pc.StartPhase(PhaseAgents)
	pc.EndTick()

	if err := om.WritePerf(pc.Stats(), 150); err != nil {
		t.Fatalf("WritePerf error: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatalf("reading perf.csv: %v", err)
	}
	if !strings.Contains(string(data), "agents_pct") {
		t.Error("perf.csv missing phase columns")
	}
}
