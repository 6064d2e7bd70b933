package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"circuitguard/internal/client"
	"circuitguard/internal/observability/metrics"
)

const (
	historyFilePrefix = "circuit-history-"
	historyFileSuffix = ".json"
	historyDateLayout = "2006-01-02"
)

// HistorySnapshot is one archived poll cycle.
type HistorySnapshot struct {
	Timestamp     time.Time                       `json:"timestamp"`
	Circuits      map[string]client.CircuitStatus `json:"circuits"`
	TotalCircuits int                             `json:"totalCircuits"`
	OpenCircuits  int                             `json:"openCircuits"`
}

// HistoryStore persists poll snapshots as one JSON array file per day,
// named circuit-history-YYYY-MM-DD.json, and prunes files older than the
// retention window.
type HistoryStore struct {
	dir           string
	retentionDays int
	now           func() time.Time
}

func NewHistoryStore(dir string, retentionDays int) *HistoryStore {
	return &HistoryStore{dir: dir, retentionDays: retentionDays, now: time.Now}
}

// Append adds a snapshot built from report to today's history file,
// creating the directory and file as needed.
func (s *HistoryStore) Append(report *client.StatusReport) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	now := s.now()
	path := filepath.Join(s.dir, historyFilePrefix+now.Format(historyDateLayout)+historyFileSuffix)

	var snapshots []HistorySnapshot
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &snapshots); err != nil {
			// A corrupt file must not block archiving; start over.
			snapshots = nil
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("reading history file: %w", err)
	}

	snapshots = append(snapshots, HistorySnapshot{
		Timestamp:     now,
		Circuits:      report.Circuits,
		TotalCircuits: report.TotalCircuits,
		OpenCircuits:  report.OpenCircuits,
	})

	out, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history snapshots: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	metrics.HistorySnapshotsTotal.Inc()
	return nil
}

// Prune removes history files older than the retention window. Unparseable
// file names are left alone.
func (s *HistoryStore) Prune() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("listing history directory: %w", err)
	}

	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, historyFilePrefix) || !strings.HasSuffix(name, historyFileSuffix) {
			continue
		}
		dateStr := strings.TrimSuffix(strings.TrimPrefix(name, historyFilePrefix), historyFileSuffix)
		day, err := time.Parse(historyDateLayout, dateStr)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
				return fmt.Errorf("removing expired history file %s: %w", name, err)
			}
		}
	}
	return nil
}
