// Package declog persists final advisor decisions as JSON lines under a
// date-partitioned directory so runs remain auditable offline.
package declog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stock-advisor/internal/types"
)

var mu sync.Mutex

// Entry is one logged decision. Time is stamped by Append.
type Entry struct {
	Time       string            `json:"time"`
	RunID      string            `json:"run_id,omitempty"`
	Ticker     string            `json:"ticker"`
	Action     string            `json:"action"`
	Quantity   int               `json:"quantity"`
	Confidence float64           `json:"confidence"`
	Reasoning  string            `json:"reasoning,omitempty"`
	Agents     map[string]string `json:"agents,omitempty"`
	Extra      map[string]any    `json:"extra,omitempty"`
}

// FromDecision flattens a finished run into an Entry. Agent signals
// collapse to a name-to-signal map; per-agent confidence stays in the
// run store, not the decision log.
func FromDecision(runID, ticker string, d types.Decision) Entry {
	var agents map[string]string
	if len(d.AgentSignals) > 0 {
		agents = make(map[string]string, len(d.AgentSignals))
		for _, s := range d.AgentSignals {
			agents[s.AgentName] = s.Signal
		}
	}
	return Entry{
		RunID:      runID,
		Ticker:     ticker,
		Action:     string(d.Action),
		Quantity:   d.Quantity,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		Agents:     agents,
	}
}

func logDir() string {
	if v := os.Getenv("ADVISOR_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "decisions", d+".jsonl")
}

// Append writes e as one JSON line to today's decision file, creating
// the directory and file as needed.
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	e.Time = now.Format("2006-01-02 15:04:05")
	p := dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips decision files whose modification time is older
// than retentionDays and removes the originals. Zero or negative
// retention disables compression.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := filepath.Join(logDir(), "decisions")
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			// A previous pass already compressed this file.
			_ = os.Remove(p)
			return nil
		}
		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()
		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			_ = os.Remove(p)
		} else {
			_ = gw.Close()
			_ = out.Close()
		}
		return nil
	})
}
