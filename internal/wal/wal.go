// Package wal implements the append-only write-ahead log of performed
// sessions.
//
// The WAL is the source of truth for a session until the archival rollup
// retires it. Records are one compact JSON document per line; a truncated
// final line (crash mid-write) is dropped by the reader rather than treated
// as fatal corruption. Every append is written, flushed, and fsynced before
// its exclusive lock is released, so concurrent appenders can neither
// interleave bytes within a record nor lose a completed one.
package wal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/krep-fit/krep/internal/flock"
	"github.com/krep-fit/krep/internal/models"
)

// DefaultLockWait bounds how long append and read wait on a contended lock.
const DefaultLockWait = 2 * time.Second

// Append durably records one performed session at the end of the WAL.
// Note the signature: only models.Session is accepted, so in-memory skip
// markers cannot reach the log.
func Append(path string, session models.Session, lockWait time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create wal directory: %w", err)
	}

	f, release, err := openLiveLocked(path, lockWait)
	if err != nil {
		return err
	}
	defer f.Close()
	defer release()

	line, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append session %s: %w", session.ID, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync wal %s: %w", path, err)
	}

	slog.Debug("Appended session to WAL", "session_id", session.ID, "definition_id", session.DefinitionID, "path", path)
	return nil
}

// openLiveLocked opens the WAL for appending and takes the exclusive lock,
// then verifies the locked file is still the one at path. A concurrent
// rollup may rename the WAL between open and lock; appending to the retired
// inode would strand the session in the processed segment, so on a mismatch
// the file is reopened (creating a fresh WAL when the rename left none).
func openLiveLocked(path string, lockWait time.Duration) (*os.File, func(), error) {
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open wal %s: %w", path, err)
		}
		release, err := flock.Exclusive(f, lockWait)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("lock wal for append: %w", err)
		}

		opened, err := f.Stat()
		if err != nil {
			release()
			f.Close()
			return nil, nil, fmt.Errorf("stat wal %s: %w", path, err)
		}
		current, err := os.Stat(path)
		if err == nil && os.SameFile(opened, current) {
			return f, release, nil
		}
		release()
		f.Close()
		if err != nil && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("stat wal %s: %w", path, err)
		}
		slog.Debug("WAL was retired while locking, reopening", "path", path)
	}
}

// ReadAll returns every parseable session in the WAL in append order. A
// missing file yields an empty slice. Malformed lines (including a partial
// final line left by a crash) are skipped with a warning; one bad record
// never fails the whole read.
func ReadAll(path string, lockWait time.Duration) ([]models.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	defer f.Close()

	release, err := flock.Shared(f, lockWait)
	if err != nil {
		return nil, fmt.Errorf("lock wal for read: %w", err)
	}
	defer release()

	var sessions []models.Session
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var session models.Session
		if err := json.Unmarshal(line, &session); err != nil {
			slog.Warn("Skipping malformed WAL line", "path", path, "line", lineNum, "error", err)
			continue
		}
		sessions = append(sessions, session)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wal %s: %w", path, err)
	}

	slog.Debug("Read sessions from WAL", "path", path, "count", len(sessions))
	return sessions, nil
}
