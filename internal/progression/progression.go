// Package progression implements the per-movement intensity upgrade rules.
//
// Upgrades are triggered by explicit user feedback ("harder next time"),
// never by completing a session. Every rule is monotonic: the level counter
// only increases and reps stay inside the configured ceilings.
package progression

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/krep-fit/krep/internal/catalog"
	"github.com/krep-fit/krep/internal/models"
)

// Limits carries the caller-configured progression ceilings.
type Limits struct {
	BurpeeRepCeiling int
	SwingBaseReps    int
	SwingMaxReps     int
	PullupMaxReps    int
}

// DefaultLimits mirrors the built-in catalog's metric ranges.
func DefaultLimits() Limits {
	return Limits{
		BurpeeRepCeiling: 10,
		SwingBaseReps:    5,
		SwingMaxReps:     15,
		PullupMaxReps:    8,
	}
}

// Upgrade applies the movement-appropriate upgrade rule to the progression
// entry for defID, creating the entry lazily from the definition's declared
// defaults. The mutated state must be persisted by the caller.
func Upgrade(cat *catalog.Catalog, defID string, state *models.UserState, limits Limits, now time.Time) error {
	if defID == "" {
		return models.ErrEmptyDefinitionID
	}
	kind, err := cat.MovementKindFor(defID)
	if err != nil {
		return fmt.Errorf("resolve movement for upgrade: %w", err)
	}
	if kind == models.MovementMobilityDrill {
		slog.Warn("Mobility drills are not progressable, ignoring upgrade", "definition_id", defID)
		return nil
	}

	if state.Progressions == nil {
		state.Progressions = make(map[string]models.ProgressionState)
	}
	entry, ok := state.Progressions[defID]
	if !ok {
		entry = initialState(cat, defID)
	}

	switch kind {
	case models.MovementBurpee:
		upgradeBurpee(&entry, limits.BurpeeRepCeiling, now)
	case models.MovementSwing:
		upgradeSwing(&entry, limits.SwingBaseReps, limits.SwingMaxReps, now)
	case models.MovementPullup:
		upgradePullup(&entry, limits.PullupMaxReps, now)
	default:
		slog.Warn("No progression rule for movement kind", "definition_id", defID, "kind", kind)
		return nil
	}

	state.Progressions[defID] = entry
	slog.Info("Increased intensity", "definition_id", defID, "level", entry.Level, "reps", entry.Reps, "style", entry.Style)
	return nil
}

// initialState seeds a progression entry from the definition's first block.
func initialState(cat *catalog.Catalog, defID string) models.ProgressionState {
	entry := models.ProgressionState{Reps: 3}
	if def, ok := cat.Definition(defID); ok {
		if reps := def.DefaultReps(); reps > 0 {
			entry.Reps = reps
		}
		entry.Style = def.DefaultStyle()
	}
	return entry
}

// upgradeBurpee increments reps below the ceiling; at the ceiling it climbs
// the style ladder, resetting reps to a value appropriate to the harder
// style. At the final style further upgrades clamp reps at the ceiling.
func upgradeBurpee(entry *models.ProgressionState, ceiling int, now time.Time) {
	if entry.Reps < ceiling {
		entry.Reps++
		bump(entry, now)
		slog.Debug("Burpee progression: increased reps", "reps", entry.Reps)
		return
	}

	var nextStyle models.BurpeeStyle
	var nextReps int
	switch entry.Style.Burpee {
	case models.BurpeeFourCount:
		nextStyle, nextReps = models.BurpeeSixCount, 6
	case models.BurpeeSixCount:
		nextStyle, nextReps = models.BurpeeSixCountTwoPump, 5
	case models.BurpeeSixCountTwoPump:
		nextStyle, nextReps = models.BurpeeSeal, 4
	case models.BurpeeSeal:
		entry.Reps = ceiling
		bump(entry, now)
		slog.Debug("Burpee progression: at final style", "style", entry.Style.Burpee, "reps", entry.Reps)
		return
	default:
		// Entry predates style tracking; restart the ladder.
		nextStyle, nextReps = models.BurpeeFourCount, 3
	}

	entry.Style = models.MovementStyle{Burpee: nextStyle}
	entry.Reps = nextReps
	bump(entry, now)
	slog.Debug("Burpee progression: upgraded style", "style", nextStyle, "reps", nextReps)
}

// upgradeSwing applies the linear swing progression base+level+1, capped.
func upgradeSwing(entry *models.ProgressionState, baseReps, maxReps int, now time.Time) {
	if entry.Reps >= maxReps {
		slog.Debug("Swing progression: already at max", "reps", entry.Reps)
		return
	}
	entry.Reps = min(baseReps+entry.Level+1, maxReps)
	bump(entry, now)
	slog.Debug("Swing progression: increased reps", "reps", entry.Reps)
}

// upgradePullup increments reps to the ceiling. Band assistance is never
// auto-adjusted; reducing it is the user's call.
func upgradePullup(entry *models.ProgressionState, maxReps int, now time.Time) {
	if entry.Reps >= maxReps {
		slog.Debug("Pullup progression: already at max", "reps", entry.Reps)
		return
	}
	entry.Reps++
	bump(entry, now)
	slog.Debug("Pullup progression: increased reps", "reps", entry.Reps)
}

func bump(entry *models.ProgressionState, now time.Time) {
	entry.Level++
	at := now
	entry.LastUpgraded = &at
}
