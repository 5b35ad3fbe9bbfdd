// Package history merges the WAL and the CSV archive into one deduplicated,
// time-windowed view of recent sessions for the prescription engine.
package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/krep-fit/krep/internal/models"
	"github.com/krep-fit/krep/internal/wal"
)

// Load returns every session performed within the last windowDays before
// now, newest first. The WAL (not yet rolled up) is read before the archive;
// when a session somehow appears in both, the WAL copy wins. Either source
// may be absent, and malformed archive rows are skipped with a warning.
func Load(walPath, csvPath string, windowDays int, now time.Time, lockWait time.Duration) ([]models.Session, error) {
	cutoff := now.AddDate(0, 0, -windowDays)
	seen := make(map[uuid.UUID]struct{})
	var sessions []models.Session

	walSessions, err := wal.ReadAll(walPath, lockWait)
	if err != nil {
		return nil, fmt.Errorf("load history from wal: %w", err)
	}
	for _, s := range walSessions {
		if s.PerformedAt.Before(cutoff) {
			continue
		}
		seen[s.ID] = struct{}{}
		sessions = append(sessions, s)
	}

	archived, err := readArchive(csvPath)
	if err != nil {
		return nil, fmt.Errorf("load history from archive: %w", err)
	}
	for _, s := range archived {
		if s.PerformedAt.Before(cutoff) {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		sessions = append(sessions, s)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].PerformedAt.After(sessions[j].PerformedAt)
	})

	slog.Debug("Loaded session history", "count", len(sessions), "window_days", windowDays)
	return sessions, nil
}

// LastByMarker returns the most recent entry whose definition id contains
// any of the given category markers. Entries must be sorted newest first.
func LastByMarker(entries []models.HistoryEntry, markers ...string) (models.HistoryEntry, bool) {
	for _, e := range entries {
		for _, marker := range markers {
			if strings.Contains(e.Definition(), marker) {
				return e, true
			}
		}
	}
	return nil, false
}

// readArchive parses the CSV archive. A missing file contributes nothing;
// individually bad rows are logged and skipped.
func readArchive(path string) ([]models.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row length validated below

	var sessions []models.Session
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			slog.Warn("Skipping unreadable archive row", "path", path, "line", line, "error", err)
			continue
		}
		if line == 1 && len(record) > 0 && record[0] == "id" {
			continue // header
		}
		session, err := parseRow(record)
		if err != nil {
			slog.Warn("Skipping malformed archive row", "path", path, "line", line, "error", err)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func parseRow(record []string) (models.Session, error) {
	if len(record) < 9 {
		return models.Session{}, fmt.Errorf("expected 9 fields, got %d", len(record))
	}

	id, err := uuid.Parse(record[0])
	if err != nil {
		return models.Session{}, fmt.Errorf("invalid session id %q: %w", record[0], err)
	}
	performedAt, err := time.Parse(time.RFC3339, record[2])
	if err != nil {
		return models.Session{}, fmt.Errorf("invalid performed_at %q: %w", record[2], err)
	}

	session := models.Session{
		ID:           id,
		DefinitionID: record[1],
		PerformedAt:  performedAt,
	}
	if t, err := time.Parse(time.RFC3339, record[3]); err == nil {
		session.StartedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, record[4]); err == nil {
		session.CompletedAt = &t
	}
	session.ActualDurationSeconds = parseOptionalInt(record[5])
	session.PerceivedRPE = parseOptionalInt(record[6])
	session.AvgHR = parseOptionalInt(record[7])
	session.MaxHR = parseOptionalInt(record[8])
	return session, nil
}

func parseOptionalInt(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
