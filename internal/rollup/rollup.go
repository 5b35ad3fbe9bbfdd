// Package rollup converts WAL entries into the tabular session archive and
// retires the WAL segment.
//
// Ordering is the safety invariant: the archive is flushed and fsynced
// before the WAL is renamed, so a crash between the two leaves the WAL
// intact and replayable. The WAL is renamed, never deleted; removing
// retired segments is a separate, explicitly invoked Cleanup step.
package rollup

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/krep-fit/krep/internal/flock"
	"github.com/krep-fit/krep/internal/models"
	"github.com/krep-fit/krep/internal/wal"
)

// ProcessedSuffix is appended to a WAL path when the segment is retired.
const ProcessedSuffix = ".processed"

// Header is the archive's CSV header row.
var Header = []string{"id", "definition_id", "performed_at", "started_at", "completed_at", "duration", "perceived_rpe", "avg_hr", "max_hr"}

// Rollup appends every WAL session to the CSV archive at csvPath and then
// renames the WAL to its processed name. An empty or missing WAL is a no-op.
// Returns the number of sessions rolled up.
func Rollup(walPath, csvPath string, lockWait time.Duration) (int, error) {
	sessions, err := wal.ReadAll(walPath, lockWait)
	if err != nil {
		return 0, fmt.Errorf("read wal for rollup: %w", err)
	}
	if len(sessions) == 0 {
		slog.Info("No sessions in WAL to roll up", "wal", walPath)
		return 0, nil
	}

	if err := appendToArchive(csvPath, sessions, lockWait); err != nil {
		return 0, err
	}

	// Only after the archive write is durable may the WAL be touched.
	processedPath := walPath + ProcessedSuffix
	if err := os.Rename(walPath, processedPath); err != nil {
		return 0, fmt.Errorf("retire wal %s: %w", walPath, err)
	}

	slog.Info("Rolled up WAL to archive", "count", len(sessions), "archive", csvPath, "processed", processedPath)
	return len(sessions), nil
}

func appendToArchive(csvPath string, sessions []models.Session, lockWait time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(csvPath), 0755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	f, err := os.OpenFile(csvPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", csvPath, err)
	}
	defer f.Close()

	release, err := flock.Exclusive(f, lockWait)
	if err != nil {
		return fmt.Errorf("lock archive for append: %w", err)
	}
	defer release()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive %s: %w", csvPath, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write archive header: %w", err)
		}
	}
	for _, s := range sessions {
		if err := w.Write(row(s)); err != nil {
			return fmt.Errorf("write archive row for session %s: %w", s.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush archive %s: %w", csvPath, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync archive %s: %w", csvPath, err)
	}
	return nil
}

func row(s models.Session) []string {
	return []string{
		s.ID.String(),
		s.DefinitionID,
		s.PerformedAt.UTC().Format(time.RFC3339),
		optionalTime(s.StartedAt),
		optionalTime(s.CompletedAt),
		optionalInt(s.ActualDurationSeconds),
		optionalInt(s.PerceivedRPE),
		optionalInt(s.AvgHR),
		optionalInt(s.MaxHR),
	}
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// Cleanup removes retired WAL segments ("*.processed") from dir. It is
// idempotent and irreversible, which is why it is decoupled from Rollup.
// Returns the number of files removed.
func Cleanup(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read wal directory %s: %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ProcessedSuffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return count, fmt.Errorf("remove processed wal %s: %w", path, err)
		}
		slog.Debug("Removed processed WAL segment", "path", path)
		count++
	}

	if count > 0 {
		slog.Info("Cleaned up processed WAL segments", "dir", dir, "count", count)
	}
	return count, nil
}
