// Package config supplies krep's configuration: the data directory, the
// available equipment, and the progression ceilings.
//
// Configuration is layered (low to high precedence): built-in defaults, an
// optional YAML file, then KREP_* environment variables.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/krep-fit/krep/internal/progression"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DataDir is the root of the persisted layout (WAL, state, archive).
	DataDir string `koanf:"data_dir"`

	// Equipment lists the equipment available to the user.
	Equipment []string `koanf:"equipment"`

	// HistoryWindowDays bounds how far back the history loader looks.
	HistoryWindowDays int `koanf:"history_window_days"`

	// LockWait bounds how long the file stores wait on a contended lock
	// before returning a retryable timeout.
	LockWait time.Duration `koanf:"lock_wait"`

	// BurpeeRepCeiling caps burpee reps before the style ladder advances.
	BurpeeRepCeiling int `koanf:"burpee_rep_ceiling"`

	// SwingBaseReps and SwingMaxReps parameterize the swing progression.
	SwingBaseReps int `koanf:"swing_base_reps"`
	SwingMaxReps  int `koanf:"swing_max_reps"`

	// PullupMaxReps caps the pull-up rep progression.
	PullupMaxReps int `koanf:"pullup_max_reps"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		DataDir:           defaultDataDir(),
		Equipment:         []string{"kettlebell", "pullup_bar", "bands"},
		HistoryWindowDays: 7,
		LockWait:          2 * time.Second,
		BurpeeRepCeiling:  10,
		SwingBaseReps:     5,
		SwingMaxReps:      15,
		PullupMaxReps:     8,
	}
}

func defaultDataDir() string {
	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, "krep")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "krep-data"
	}
	return filepath.Join(home, ".local", "share", "krep")
}

// validate rejects configurations the stores and engine cannot run with.
func (c *Config) validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.HistoryWindowDays <= 0 {
		return errors.New("history_window_days must be positive")
	}
	if c.LockWait <= 0 {
		return errors.New("lock_wait must be positive")
	}
	if c.BurpeeRepCeiling <= 0 || c.SwingMaxReps <= 0 || c.PullupMaxReps <= 0 {
		return errors.New("progression ceilings must be positive")
	}
	return nil
}

// Limits exposes the progression ceilings in the form the upgrade rules take.
func (c *Config) Limits() progression.Limits {
	return progression.Limits{
		BurpeeRepCeiling: c.BurpeeRepCeiling,
		SwingBaseReps:    c.SwingBaseReps,
		SwingMaxReps:     c.SwingMaxReps,
		PullupMaxReps:    c.PullupMaxReps,
	}
}

// WALDir returns the directory holding the WAL and its retired segments.
func (c *Config) WALDir() string {
	return filepath.Join(c.DataDir, "wal")
}

// WALPath returns the active WAL file path.
func (c *Config) WALPath() string {
	return filepath.Join(c.WALDir(), "microdose_sessions.wal")
}

// StatePath returns the progression state file path.
func (c *Config) StatePath() string {
	return filepath.Join(c.WALDir(), "state.json")
}

// ArchivePath returns the tabular session archive path.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.DataDir, "sessions.csv")
}

// StrengthSignalPath returns the externally produced strength signal path.
func (c *Config) StrengthSignalPath() string {
	return filepath.Join(c.DataDir, "strength", "signal.json")
}
