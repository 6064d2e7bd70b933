package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circuitguard/internal/client"
)

func testReport(openCircuits int) *client.StatusReport {
	state := "closed"
	if openCircuits > 0 {
		state = "open"
	}
	return &client.StatusReport{
		Circuits: map[string]client.CircuitStatus{
			"auth": {State: state},
		},
		TotalCircuits: 1,
		OpenCircuits:  openCircuits,
	}
}

func TestHistoryAppendCreatesDailyFile(t *testing.T) {
	dir := t.TempDir()
	store := NewHistoryStore(dir, 30)
	store.now = func() time.Time { return time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC) }

	require.NoError(t, store.Append(testReport(1)))
	require.NoError(t, store.Append(testReport(0)))

	data, err := os.ReadFile(filepath.Join(dir, "circuit-history-2026-08-26.json"))
	require.NoError(t, err)

	var snapshots []HistorySnapshot
	require.NoError(t, json.Unmarshal(data, &snapshots))
	require.Len(t, snapshots, 2)
	assert.Equal(t, 1, snapshots[0].OpenCircuits)
	assert.Equal(t, 0, snapshots[1].OpenCircuits)
	assert.Equal(t, "open", snapshots[0].Circuits["auth"].State)
}

func TestHistoryAppendRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewHistoryStore(dir, 30)
	store.now = func() time.Time { return time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC) }

	path := filepath.Join(dir, "circuit-history-2026-08-26.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	require.NoError(t, store.Append(testReport(0)))

	var snapshots []HistorySnapshot
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &snapshots))
	assert.Len(t, snapshots, 1)
}

func TestHistoryPruneRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewHistoryStore(dir, 30)
	now := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	files := map[string]bool{
		"circuit-history-2026-08-25.json": true,  // 1 day old, kept
		"circuit-history-2026-07-27.json": true,  // 30 days old, kept
		"circuit-history-2026-07-26.json": false, // 31 days old, pruned
		"circuit-history-2026-01-01.json": false,
		"circuit-history-garbage.json":    true, // unparseable name, left alone
		"notes.txt":                       true,
	}
	for name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644))
	}

	require.NoError(t, store.Prune())

	for name, kept := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if kept {
			assert.NoError(t, err, "%s should survive pruning", name)
		} else {
			assert.True(t, os.IsNotExist(err), "%s should be pruned", name)
		}
	}
}

func TestHistoryPruneMissingDirIsNoop(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "absent"), 30)
	assert.NoError(t, store.Prune())
}
