// Package engine implements the prescription decision procedure.
//
// Prescribe is a pure function of the catalog and the caller-assembled
// context; it performs no I/O and holds no locks, so callers can run it
// outside any file lock. Category selection is an ordered list of
// guard/result rules evaluated top to bottom, first match wins, which keeps
// the precedence auditable rule by rule.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/krep-fit/krep/internal/catalog"
	"github.com/krep-fit/krep/internal/history"
	"github.com/krep-fit/krep/internal/models"
)

// ErrNoCandidates is returned when the chosen category has no definitions.
// With a validated catalog this indicates a caller-supplied custom catalog
// that lost a category.
var ErrNoCandidates = errors.New("no eligible microdose definitions in category")

const (
	// strengthOverrideWindow is how long a lower-body strength session
	// steers prescriptions away from leg-dominant conditioning.
	strengthOverrideWindow = 24 * time.Hour
	// vo2RecencyWindow is the minimum spacing between VO2 sessions before
	// another one is prescribed.
	vo2RecencyWindow = 4 * time.Hour
)

// Category markers used for inferring the category of a history entry from
// its definition id.
var (
	vo2Markers      = []string{"vo2", "emom"}
	gtgMarkers      = []string{"gtg"}
	mobilityMarkers = []string{"mobility"}
)

// Context bundles everything the engine may consult for one decision.
type Context struct {
	// Now is the decision time; all recency rules measure from it.
	Now time.Time
	// State is the user's persisted progression state.
	State models.UserState
	// Recent is the recent history, newest first. It holds performed
	// sessions plus any in-memory skip markers from this decision session.
	Recent []models.HistoryEntry
	// Strength is the external strength signal, nil when absent.
	Strength *models.StrengthSignal
	// Equipment lists available equipment. Currently informational only.
	Equipment []string
}

// Prescription is the engine's output: a definition plus the intensity to
// perform it at right now.
type Prescription struct {
	Definition models.MicrodoseDefinition
	Reps       int
	Style      models.MovementStyle
}

// Prescribe selects the next microdose. When target is non-nil it pins the
// category and only the within-category selection runs.
func Prescribe(cat *catalog.Catalog, ctx Context, target *models.Category) (Prescription, error) {
	var category models.Category
	if target != nil {
		category = *target
	} else {
		category = selectCategory(ctx)
	}

	slog.Info("Prescribing microdose", "category", category)

	def, err := selectDefinition(cat, ctx, category)
	if err != nil {
		return Prescription{}, err
	}

	reps, style := intensityFor(def, ctx.State)
	return Prescription{Definition: def, Reps: reps, Style: style}, nil
}

// categoryRule is one guard/result pair of the category decision list.
type categoryRule struct {
	name string
	eval func(ctx Context) (models.Category, bool)
}

// categoryRules is evaluated in order; the last rule always matches.
var categoryRules = []categoryRule{
	{"strength_override", ruleStrengthOverride},
	{"vo2_recency", ruleVo2Recency},
	{"rotation_fallback", ruleRotation},
}

func selectCategory(ctx Context) models.Category {
	for _, rule := range categoryRules {
		if category, ok := rule.eval(ctx); ok {
			slog.Debug("Category rule matched", "rule", rule.name, "category", category)
			return category
		}
	}
	// Unreachable: rotation always matches.
	return models.CategoryVo2
}

// ruleStrengthOverride prescribes GTG work when a lower-body strength
// session happened within the last 24 hours.
func ruleStrengthOverride(ctx Context) (models.Category, bool) {
	if ctx.Strength == nil {
		return "", false
	}
	age := ctx.Now.Sub(ctx.Strength.LastSessionAt)
	if ctx.Strength.SessionType == models.StrengthLower && age < strengthOverrideWindow {
		slog.Info("Recent lower-body strength session, preferring GTG", "age_hours", age.Hours())
		return models.CategoryGtg, true
	}
	return "", false
}

// ruleVo2Recency prescribes VO2 when no VO2 work appears in recent history
// or the most recent VO2 entry is older than four hours.
func ruleVo2Recency(ctx Context) (models.Category, bool) {
	last, ok := history.LastByMarker(ctx.Recent, vo2Markers...)
	if !ok {
		slog.Info("No recent VO2 sessions found, prescribing VO2")
		return models.CategoryVo2, true
	}
	if age := ctx.Now.Sub(last.OccurredAt()); age > vo2RecencyWindow {
		slog.Info("Last VO2 session outside recency window, prescribing VO2", "age_hours", age.Hours())
		return models.CategoryVo2, true
	}
	return "", false
}

// ruleRotation rotates away from the category of the most recent entry:
// Vo2 -> Gtg -> Mobility -> Vo2. Unknown or empty history defaults to Vo2.
func ruleRotation(ctx Context) (models.Category, bool) {
	if len(ctx.Recent) == 0 {
		return models.CategoryVo2, true
	}
	switch inferCategory(ctx.Recent[0].Definition()) {
	case models.CategoryVo2:
		return models.CategoryGtg, true
	case models.CategoryGtg:
		return models.CategoryMobility, true
	case models.CategoryMobility:
		return models.CategoryVo2, true
	default:
		return models.CategoryVo2, true
	}
}

// inferCategory guesses a history entry's category from its definition id.
// Returns "" when no marker matches.
func inferCategory(definitionID string) models.Category {
	for _, m := range vo2Markers {
		if strings.Contains(definitionID, m) {
			return models.CategoryVo2
		}
	}
	for _, m := range gtgMarkers {
		if strings.Contains(definitionID, m) {
			return models.CategoryGtg
		}
	}
	for _, m := range mobilityMarkers {
		if strings.Contains(definitionID, m) {
			return models.CategoryMobility
		}
	}
	return ""
}

// selectDefinition picks a definition within the category. Candidates are
// sorted by id so selection is deterministic.
func selectDefinition(cat *catalog.Catalog, ctx Context, category models.Category) (models.MicrodoseDefinition, error) {
	var candidates []models.MicrodoseDefinition
	for _, def := range cat.Microdoses {
		if def.Category == category {
			candidates = append(candidates, def)
		}
	}
	if len(candidates) == 0 {
		return models.MicrodoseDefinition{}, fmt.Errorf("%w: %s", ErrNoCandidates, category)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	switch category {
	case models.CategoryVo2:
		// Alternate away from the most recent VO2 definition performed.
		if last, ok := history.LastByMarker(ctx.Recent, vo2Markers...); ok {
			for _, def := range candidates {
				if def.ID != last.Definition() {
					return def, nil
				}
			}
		}
		return candidates[0], nil

	case models.CategoryGtg:
		// Single-definition catalogs are the norm here; with several this
		// reduces to always-first.
		return candidates[0], nil

	case models.CategoryMobility:
		// Round-robin driven by the persisted cursor.
		if cursor := ctx.State.LastMobilityDefID; cursor != "" {
			for i, def := range candidates {
				if def.ID == cursor {
					return candidates[(i+1)%len(candidates)], nil
				}
			}
		}
		return candidates[0], nil

	default:
		return models.MicrodoseDefinition{}, fmt.Errorf("%w: unknown category %s", ErrNoCandidates, category)
	}
}

// intensityFor returns the stored progression reps/style for the definition
// or falls back to the definition's declared defaults.
func intensityFor(def models.MicrodoseDefinition, state models.UserState) (int, models.MovementStyle) {
	if p, ok := state.Progressions[def.ID]; ok {
		return p.Reps, p.Style
	}
	return def.DefaultReps(), def.DefaultStyle()
}
