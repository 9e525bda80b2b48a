package declog

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stock-advisor/internal/types"
)

func sampleDecision() types.Decision {
	return types.Decision{
		Action:     types.Buy,
		Quantity:   12,
		Confidence: 0.81,
		Reasoning:  "Bullish consensus across researchers",
		AgentSignals: []types.AgentSignal{
			{AgentName: "technical_analyst", Signal: "bullish", Confidence: 0.7},
			{AgentName: "risk_manager", Signal: "buy", Confidence: 0.6},
		},
	}
}

func decisionFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, "decisions"))
	if err != nil {
		t.Fatalf("read decisions dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestAppendWritesDecisionLine(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ADVISOR_LOG_DIR", dir)

	if err := Append(FromDecision("run-1", "AAPL", sampleDecision())); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	names := decisionFiles(t, dir)
	if len(names) != 1 {
		t.Fatalf("Expected 1 decision file, got %v", names)
	}
	if filepath.Ext(names[0]) != ".jsonl" {
		t.Errorf("Expected .jsonl file, got %s", names[0])
	}

	data, err := os.ReadFile(filepath.Join(dir, "decisions", names[0]))
	if err != nil {
		t.Fatalf("read decision file: %v", err)
	}
	var got Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal decision line: %v", err)
	}
	if got.RunID != "run-1" {
		t.Errorf("Expected run_id run-1, got %s", got.RunID)
	}
	if got.Ticker != "AAPL" {
		t.Errorf("Expected ticker AAPL, got %s", got.Ticker)
	}
	if got.Action != "buy" || got.Quantity != 12 {
		t.Errorf("Expected buy 12, got %s %d", got.Action, got.Quantity)
	}
	if got.Time == "" {
		t.Error("Expected Append to stamp the entry time")
	}
	if got.Agents["technical_analyst"] != "bullish" || got.Agents["risk_manager"] != "buy" {
		t.Errorf("Expected agent signal map, got %v", got.Agents)
	}
}

func TestAppendAccumulatesLines(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ADVISOR_LOG_DIR", dir)

	for i := 0; i < 3; i++ {
		if err := Append(FromDecision("run-1", "MSFT", sampleDecision())); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	names := decisionFiles(t, dir)
	if len(names) != 1 {
		t.Fatalf("Expected one daily file, got %v", names)
	}
	data, err := os.ReadFile(filepath.Join(dir, "decisions", names[0]))
	if err != nil {
		t.Fatalf("read decision file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(lines))
	}
}

func TestFromDecisionWithoutSignals(t *testing.T) {
	e := FromDecision("", "TSLA", types.Decision{Action: types.Hold})
	if e.Agents != nil {
		t.Errorf("Expected nil agent map, got %v", e.Agents)
	}
	if e.Action != "hold" {
		t.Errorf("Expected hold, got %s", e.Action)
	}
}

func TestCompressOlderGzipsOldFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ADVISOR_LOG_DIR", dir)

	if err := Append(FromDecision("run-1", "AAPL", sampleDecision())); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	names := decisionFiles(t, dir)
	p := filepath.Join(dir, "decisions", names[0])
	original, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	old := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(p, old, old); err != nil {
		t.Fatalf("age file: %v", err)
	}

	if err := CompressOlder(7); err != nil {
		t.Fatalf("CompressOlder failed: %v", err)
	}

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Errorf("Expected original removed after compression, stat err = %v", err)
	}
	gz, err := os.Open(p + ".gz")
	if err != nil {
		t.Fatalf("open compressed file: %v", err)
	}
	defer gz.Close()
	gr, err := gzip.NewReader(gz)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gr.Close()
	restored, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read compressed content: %v", err)
	}
	if string(restored) != string(original) {
		t.Error("Expected compressed content to match the original file")
	}
}

func TestCompressOlderKeepsRecentFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ADVISOR_LOG_DIR", dir)

	if err := Append(FromDecision("run-1", "AAPL", sampleDecision())); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	names := decisionFiles(t, dir)
	p := filepath.Join(dir, "decisions", names[0])

	if err := CompressOlder(7); err != nil {
		t.Fatalf("CompressOlder failed: %v", err)
	}

	if _, err := os.Stat(p); err != nil {
		t.Errorf("Expected recent file untouched, stat err = %v", err)
	}
	if _, err := os.Stat(p + ".gz"); !os.IsNotExist(err) {
		t.Error("Expected no gzip for a recent file")
	}
}

func TestCompressOlderDisabled(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ADVISOR_LOG_DIR", dir)

	if err := Append(FromDecision("run-1", "AAPL", sampleDecision())); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := CompressOlder(0); err != nil {
		t.Fatalf("Expected disabled retention to be a no-op, got %v", err)
	}
	names := decisionFiles(t, dir)
	if len(names) != 1 || filepath.Ext(names[0]) != ".jsonl" {
		t.Errorf("Expected file left as-is, got %v", names)
	}
}
