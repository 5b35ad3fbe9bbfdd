// Package catalog provides the built-in movements and microdose definitions.
//
// The catalog is constructed once, validated at startup, and read-only
// afterwards. An inconsistent catalog is a fatal startup error: the
// prescription engine refuses to operate on one.
package catalog

import (
	"fmt"
	"sync"

	"github.com/krep-fit/krep/internal/models"
)

// Catalog maps ids to movements and microdose definitions. Keys always equal
// the contained id field; Validate enforces this.
type Catalog struct {
	Movements  map[string]models.Movement
	Microdoses map[string]models.MicrodoseDefinition
}

// defaultCatalog is built once and shared by reference across the process.
var defaultCatalog = sync.OnceValue(Build)

// Default returns the cached built-in catalog. The returned value is shared
// and must not be mutated.
func Default() *Catalog {
	return defaultCatalog()
}

// Definition looks up a microdose definition by id.
func (c *Catalog) Definition(id string) (models.MicrodoseDefinition, bool) {
	def, ok := c.Microdoses[id]
	return def, ok
}

// Movement looks up a movement by id.
func (c *Catalog) Movement(id string) (models.Movement, bool) {
	m, ok := c.Movements[id]
	return m, ok
}

// MovementKindFor resolves the movement kind behind a definition's first
// block. Progression rules are selected by this kind.
func (c *Catalog) MovementKindFor(definitionID string) (models.MovementKind, error) {
	def, ok := c.Microdoses[definitionID]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnknownDefinition, definitionID)
	}
	if len(def.Blocks) == 0 {
		return "", fmt.Errorf("definition %s has no blocks", definitionID)
	}
	movement, ok := c.Movements[def.Blocks[0].MovementID]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnknownMovement, def.Blocks[0].MovementID)
	}
	return movement.Kind, nil
}

// Validate checks the catalog for consistency. It returns every problem
// found rather than stopping at the first one.
func (c *Catalog) Validate() []error {
	var errs []error

	for id, movement := range c.Movements {
		if id == "" || movement.ID == "" {
			errs = append(errs, fmt.Errorf("movement has empty id"))
		}
		if id != movement.ID {
			errs = append(errs, fmt.Errorf("movement key %q does not match movement id %q", id, movement.ID))
		}
		if movement.Name == "" {
			errs = append(errs, fmt.Errorf("movement %q has empty name", id))
		}
	}

	for id, def := range c.Microdoses {
		if id == "" || def.ID == "" {
			errs = append(errs, fmt.Errorf("microdose definition has empty id"))
		}
		if id != def.ID {
			errs = append(errs, fmt.Errorf("microdose key %q does not match definition id %q", id, def.ID))
		}
		if def.Name == "" {
			errs = append(errs, fmt.Errorf("microdose %q has empty name", id))
		}
		if !models.IsValidCategory(def.Category) {
			errs = append(errs, fmt.Errorf("microdose %q has unknown category %q", id, def.Category))
		}
		if len(def.Blocks) == 0 {
			errs = append(errs, fmt.Errorf("microdose %q has no blocks", id))
		}

		for _, block := range def.Blocks {
			if _, ok := c.Movements[block.MovementID]; !ok {
				errs = append(errs, fmt.Errorf("microdose %q references non-existent movement %q", id, block.MovementID))
			}
			for _, metric := range block.Metrics {
				switch metric.Type {
				case models.MetricReps:
					if metric.Default < metric.Min {
						errs = append(errs, fmt.Errorf("microdose %q: default reps %d < min %d", id, metric.Default, metric.Min))
					}
					if metric.Default > metric.Max {
						errs = append(errs, fmt.Errorf("microdose %q: default reps %d > max %d", id, metric.Default, metric.Max))
					}
					if metric.Min > metric.Max {
						errs = append(errs, fmt.Errorf("microdose %q: min reps %d > max %d", id, metric.Min, metric.Max))
					}
				case models.MetricBand:
					if metric.Band == "" {
						errs = append(errs, fmt.Errorf("microdose %q: band metric has empty default", id))
					}
				default:
					errs = append(errs, fmt.Errorf("microdose %q: unknown metric type %q", id, metric.Type))
				}
			}
		}
	}

	for _, category := range []models.Category{models.CategoryVo2, models.CategoryGtg, models.CategoryMobility} {
		found := false
		for _, def := range c.Microdoses {
			if def.Category == category {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("catalog has no %s microdoses", category))
		}
	}

	return errs
}

// Build constructs the built-in catalog. Prefer Default, which caches the
// result; Build is exported for tests that need a private copy to mutate.
func Build() *Catalog {
	movements := map[string]models.Movement{
		"kb_swing_2h": {
			ID:           "kb_swing_2h",
			Name:         "Kettlebell Swing (2-hand)",
			Kind:         models.MovementSwing,
			Tags:         []string{"vo2", "hinge", "posterior_chain"},
			ReferenceURL: "https://www.youtube.com/watch?v=YSxHifyI6s8",
		},
		"burpee": {
			ID:           "burpee",
			Name:         "Burpee",
			Kind:         models.MovementBurpee,
			DefaultStyle: models.MovementStyle{Burpee: models.BurpeeFourCount},
			Tags:         []string{"vo2", "full_body", "bodyweight"},
			ReferenceURL: "https://www.youtube.com/watch?v=TU8QYVW0gDU",
		},
		"pullup": {
			ID:           "pullup",
			Name:         "Pull-up",
			Kind:         models.MovementPullup,
			Tags:         []string{"gtg", "gtg_ok", "upper_body", "pull"},
			ReferenceURL: "https://www.youtube.com/watch?v=eGo4IYlbE5g",
		},
		"hip_cars": {
			ID:           "hip_cars",
			Name:         "Hip Controlled Articular Rotations (CARs)",
			Kind:         models.MovementMobilityDrill,
			Tags:         []string{"mobility", "hip", "gtg_ok"},
			ReferenceURL: "https://www.youtube.com/watch?v=mJRXBZGRzKg",
		},
		"shoulder_cars": {
			ID:           "shoulder_cars",
			Name:         "Shoulder Controlled Articular Rotations (CARs)",
			Kind:         models.MovementMobilityDrill,
			Tags:         []string{"mobility", "shoulder", "gtg_ok"},
			ReferenceURL: "https://www.youtube.com/watch?v=f9y1lOJ0v4A",
		},
	}

	microdoses := map[string]models.MicrodoseDefinition{
		"emom_kb_swing_5m": {
			ID:                       "emom_kb_swing_5m",
			Name:                     "5-Min EMOM: KB Swings (2-hand)",
			Category:                 models.CategoryVo2,
			SuggestedDurationSeconds: 300,
			Blocks: []models.MicrodoseBlock{{
				MovementID:          "kb_swing_2h",
				DurationHintSeconds: 60,
				Metrics: []models.MetricSpec{
					models.RepsMetric("reps", 5, 3, 15, 1, true),
				},
			}},
		},
		"emom_burpee_5m": {
			ID:                       "emom_burpee_5m",
			Name:                     "5-Min EMOM: Burpees",
			Category:                 models.CategoryVo2,
			SuggestedDurationSeconds: 300,
			Blocks: []models.MicrodoseBlock{{
				MovementID:          "burpee",
				MovementStyle:       models.MovementStyle{Burpee: models.BurpeeFourCount},
				DurationHintSeconds: 60,
				Metrics: []models.MetricSpec{
					models.RepsMetric("reps", 3, 2, 10, 1, true),
				},
			}},
		},
		"gtg_pullup_band": {
			ID:                       "gtg_pullup_band",
			Name:                     "GTG: Banded Pull-ups",
			Category:                 models.CategoryGtg,
			SuggestedDurationSeconds: 30,
			GtgFriendly:              true,
			Blocks: []models.MicrodoseBlock{{
				MovementID:          "pullup",
				MovementStyle:       models.MovementStyle{Band: "red"},
				DurationHintSeconds: 30,
				Metrics: []models.MetricSpec{
					models.RepsMetric("reps", 3, 1, 8, 1, true),
					models.BandMetric("band", "red", false),
				},
			}},
		},
		"mobility_hip_cars": {
			ID:                       "mobility_hip_cars",
			Name:                     "Hip CARs (3 reps each side)",
			Category:                 models.CategoryMobility,
			SuggestedDurationSeconds: 120,
			GtgFriendly:              true,
			Blocks: []models.MicrodoseBlock{{
				MovementID:          "hip_cars",
				DurationHintSeconds: 120,
				Metrics: []models.MetricSpec{
					models.RepsMetric("reps_per_side", 3, 2, 5, 1, false),
				},
			}},
		},
		"mobility_shoulder_cars": {
			ID:                       "mobility_shoulder_cars",
			Name:                     "Shoulder CARs (3 reps each side)",
			Category:                 models.CategoryMobility,
			SuggestedDurationSeconds: 120,
			GtgFriendly:              true,
			Blocks: []models.MicrodoseBlock{{
				MovementID:          "shoulder_cars",
				DurationHintSeconds: 120,
				Metrics: []models.MetricSpec{
					models.RepsMetric("reps_per_side", 3, 2, 5, 1, false),
				},
			}},
		},
	}

	return &Catalog{Movements: movements, Microdoses: microdoses}
}
