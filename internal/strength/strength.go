// Package strength reads the externally produced strength-training signal.
//
// The file is owned by another system and read on every invocation. A
// missing or malformed signal never fails the caller; prescription simply
// proceeds without it.
package strength

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/krep-fit/krep/internal/models"
)

// Load reads the strength signal at path. Returns nil when the file is
// absent, unreadable, or malformed.
func Load(path string) *models.StrengthSignal {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("No strength signal file found", "path", path)
		} else {
			slog.Warn("Failed to read strength signal, ignoring", "path", path, "error", err)
		}
		return nil
	}

	var raw struct {
		LastSessionAt time.Time `json:"last_session_at"`
		SessionType   string    `json:"session_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("Failed to parse strength signal, ignoring", "path", path, "error", err)
		return nil
	}
	if raw.LastSessionAt.IsZero() {
		slog.Warn("Strength signal has no session timestamp, ignoring", "path", path)
		return nil
	}

	signal := &models.StrengthSignal{
		LastSessionAt: raw.LastSessionAt,
		SessionType:   models.ParseStrengthSessionType(raw.SessionType),
	}
	slog.Info("Loaded strength signal", "session_type", signal.SessionType, "last_session_at", signal.LastSessionAt)
	return signal
}
