// Package state persists the user's progression state.
//
// The state file is a single JSON document replaced atomically on every
// save: the new content is written to a temp file in the same directory,
// fsynced, and renamed over the target, so a reader never observes a
// partially written file.
//
// Read policy: a missing, unreadable, or garbled state file degrades to the
// default state with a warning. Losing personalization must never prevent
// prescription; the write path stays strictly atomic regardless.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/krep-fit/krep/internal/flock"
	"github.com/krep-fit/krep/internal/models"
)

// DefaultLockWait bounds how long load and save wait on a contended lock.
const DefaultLockWait = 2 * time.Second

// Load reads the user state from path. Any read problem yields the default
// state, never an error that would block prescription.
func Load(path string, lockWait time.Duration) models.UserState {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No state file found, using default state", "path", path)
		} else {
			slog.Warn("Unable to open state file, using defaults", "path", path, "error", err)
		}
		return models.NewUserState()
	}
	defer f.Close()

	release, err := flock.Shared(f, lockWait)
	if err != nil {
		slog.Warn("Unable to lock state file, using defaults", "path", path, "error", err)
		return models.NewUserState()
	}
	defer release()

	var state models.UserState
	if err := json.NewDecoder(f).Decode(&state); err != nil {
		slog.Warn("Failed to parse state file, using defaults", "path", path, "error", err)
		return models.NewUserState()
	}
	if state.Progressions == nil {
		state.Progressions = make(map[string]models.ProgressionState)
	}

	slog.Debug("Loaded user state", "path", path, "progressions", len(state.Progressions))
	return state
}

// Save atomically replaces the state file with the given state. On any
// error the previous durable state is left unchanged.
func Save(path string, state models.UserState, lockWait time.Duration) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// No-ops after a successful rename.
		tmp.Close()
		os.Remove(tmpPath)
	}()

	release, err := flock.Exclusive(tmp, lockWait)
	if err != nil {
		return fmt.Errorf("lock temp state file: %w", err)
	}

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(state); err != nil {
		release()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		release()
		return fmt.Errorf("sync state file: %w", err)
	}
	release()

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace state file %s: %w", path, err)
	}

	slog.Debug("Saved user state", "path", path, "progressions", len(state.Progressions))
	return nil
}

// Update composes load, mutate, and save. It is not serializable across
// processes: two concurrent updaters may lose one update. That race is an
// accepted limitation of the single-user design.
func Update(path string, lockWait time.Duration, mutate func(*models.UserState) error) (models.UserState, error) {
	current := Load(path, lockWait)
	if err := mutate(&current); err != nil {
		return current, fmt.Errorf("mutate state: %w", err)
	}
	if err := Save(path, current, lockWait); err != nil {
		return current, err
	}
	return current, nil
}
