package rollup

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/krep-fit/krep/internal/models"
	"github.com/krep-fit/krep/internal/wal"
)

func appendSessions(t *testing.T, walPath string, defIDs ...string) []models.Session {
	t.Helper()
	var sessions []models.Session
	for _, id := range defIDs {
		s := models.NewSession(id, time.Now(), 300)
		if err := wal.Append(walPath, s, wal.DefaultLockWait); err != nil {
			t.Fatalf("append %s failed: %v", id, err)
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse archive: %v", err)
	}
	return records
}

func TestRollupArchivesAndRetiresWAL(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "sessions.wal")
	csvPath := filepath.Join(dir, "sessions.csv")

	sessions := appendSessions(t, walPath, "emom_burpee_5m", "gtg_pullup_band", "mobility_hip_cars")
	walBytes, err := os.ReadFile(walPath)
	if err != nil {
		t.Fatalf("failed to snapshot WAL: %v", err)
	}

	count, err := Rollup(walPath, csvPath, wal.DefaultLockWait)
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if count != 3 {
		t.Errorf("rollup count = %d, want 3", count)
	}

	records := readCSV(t, csvPath)
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d records", len(records))
	}
	for i, col := range Header {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	for i, s := range sessions {
		if records[i+1][0] != s.ID.String() {
			t.Errorf("row %d id = %q, want %q", i, records[i+1][0], s.ID)
		}
		if records[i+1][1] != s.DefinitionID {
			t.Errorf("row %d definition = %q, want %q", i, records[i+1][1], s.DefinitionID)
		}
	}

	if _, err := os.Stat(walPath); !os.IsNotExist(err) {
		t.Error("WAL should no longer exist at its original path")
	}
	processed, err := os.ReadFile(walPath + ProcessedSuffix)
	if err != nil {
		t.Fatalf("processed segment missing: %v", err)
	}
	if string(processed) != string(walBytes) {
		t.Error("processed segment bytes differ from the rolled-up WAL")
	}
}

func TestRollupEmptyWALIsNoOp(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "empty.wal")
	csvPath := filepath.Join(dir, "sessions.csv")
	if err := os.WriteFile(walPath, nil, 0644); err != nil {
		t.Fatalf("failed to create empty WAL: %v", err)
	}

	count, err := Rollup(walPath, csvPath, wal.DefaultLockWait)
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if _, err := os.Stat(walPath); err != nil {
		t.Error("empty WAL should be left in place")
	}
	if _, err := os.Stat(csvPath); !os.IsNotExist(err) {
		t.Error("no archive should be created for an empty WAL")
	}
}

func TestRollupMissingWALIsNoOp(t *testing.T) {
	dir := t.TempDir()
	count, err := Rollup(filepath.Join(dir, "nope.wal"), filepath.Join(dir, "sessions.csv"), wal.DefaultLockWait)
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestRollupAppendsWithoutDuplicateHeader(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "sessions.wal")
	csvPath := filepath.Join(dir, "sessions.csv")

	appendSessions(t, walPath, "emom_burpee_5m")
	if _, err := Rollup(walPath, csvPath, wal.DefaultLockWait); err != nil {
		t.Fatalf("first rollup failed: %v", err)
	}
	// The previous segment is renamed, so a fresh WAL accumulates.
	appendSessions(t, walPath, "emom_kb_swing_5m")
	// Overwrites the first processed segment; acceptable for the test dir.
	if _, err := Rollup(walPath, csvPath, wal.DefaultLockWait); err != nil {
		t.Fatalf("second rollup failed: %v", err)
	}

	records := readCSV(t, csvPath)
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	headerCount := 0
	for _, r := range records {
		if r[0] == "id" {
			headerCount++
		}
	}
	if headerCount != 1 {
		t.Errorf("expected exactly one header row, got %d", headerCount)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"s1.wal.processed", "s2.wal.processed"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "keep.wal"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create keep.wal: %v", err)
	}

	removed, err := Cleanup(dir)
	if err != nil {
		t.Fatalf("first cleanup failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("first cleanup removed %d files, want 2", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.wal")); err != nil {
		t.Error("cleanup must not touch active WAL files")
	}

	removed, err = Cleanup(dir)
	if err != nil {
		t.Fatalf("second cleanup failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("second cleanup removed %d files, want 0", removed)
	}
}

func TestCleanupMissingDirIsNoOp(t *testing.T) {
	removed, err := Cleanup(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("cleanup of missing dir failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}
