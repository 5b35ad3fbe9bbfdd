// Package models defines the core data structures for krep.
//
// It includes the movement and microdose catalog types, performed sessions,
// per-definition progression state, and the external strength signal. These
// types are shared across the persistence and prescription packages.
package models

import (
	"errors"
	"strings"
	"time"
)

// MovementKind classifies a movement for progression purposes.
type MovementKind string

const (
	// MovementSwing is a ballistic hinge movement (e.g. kettlebell swing).
	MovementSwing MovementKind = "swing"
	// MovementBurpee is an explosive bodyweight movement with style variants.
	MovementBurpee MovementKind = "burpee"
	// MovementPullup is a pull movement, optionally band-assisted.
	MovementPullup MovementKind = "pullup"
	// MovementMobilityDrill is a joint mobility drill.
	MovementMobilityDrill MovementKind = "mobility_drill"
)

// BurpeeStyle is one rung of the burpee style ladder, ordered easiest first.
type BurpeeStyle string

const (
	BurpeeFourCount       BurpeeStyle = "four_count"
	BurpeeSixCount        BurpeeStyle = "six_count"
	BurpeeSixCountTwoPump BurpeeStyle = "six_count_two_pump"
	BurpeeSeal            BurpeeStyle = "seal"
)

// MovementStyle describes how a movement is performed. The zero value means
// no style variation. At most one field is set: Burpee for burpee-kind
// movements, Band (a colour name) for band-assisted movements.
type MovementStyle struct {
	Burpee BurpeeStyle `json:"burpee,omitempty"`
	Band   string      `json:"band,omitempty"`
}

// IsZero reports whether the style carries no variation.
func (s MovementStyle) IsZero() bool {
	return s.Burpee == "" && s.Band == ""
}

// Movement is a named exercise in the static catalog.
type Movement struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Kind         MovementKind  `json:"kind"`
	DefaultStyle MovementStyle `json:"default_style"`
	Tags         []string      `json:"tags,omitempty"`
	ReferenceURL string        `json:"reference_url,omitempty"`
}

// MetricType discriminates the variants of a MetricSpec.
type MetricType string

const (
	// MetricReps is a repetition-range metric.
	MetricReps MetricType = "reps"
	// MetricBand is a band-selection metric.
	MetricBand MetricType = "band"
)

// MetricSpec describes one tunable parameter of a block. Reps metrics use
// Default/Min/Max/Step; band metrics use Band as the default colour.
type MetricSpec struct {
	Type         MetricType `json:"type"`
	Key          string     `json:"key"`
	Default      int        `json:"default,omitempty"`
	Min          int        `json:"min,omitempty"`
	Max          int        `json:"max,omitempty"`
	Step         int        `json:"step,omitempty"`
	Band         string     `json:"band,omitempty"`
	Progressable bool       `json:"progressable"`
}

// RepsMetric builds a repetition-range metric spec.
func RepsMetric(key string, def, min, max, step int, progressable bool) MetricSpec {
	return MetricSpec{
		Type:         MetricReps,
		Key:          key,
		Default:      def,
		Min:          min,
		Max:          max,
		Step:         step,
		Progressable: progressable,
	}
}

// BandMetric builds a band-selection metric spec.
func BandMetric(key, defaultBand string, progressable bool) MetricSpec {
	return MetricSpec{
		Type:         MetricBand,
		Key:          key,
		Band:         defaultBand,
		Progressable: progressable,
	}
}

// MicrodoseBlock is one work block within a microdose definition.
type MicrodoseBlock struct {
	MovementID          string        `json:"movement_id"`
	MovementStyle       MovementStyle `json:"movement_style"`
	DurationHintSeconds int           `json:"duration_hint_seconds"`
	Metrics             []MetricSpec  `json:"metrics"`
}

// Category groups microdose definitions by training intent.
type Category string

const (
	// CategoryVo2 is short high-intensity conditioning work.
	CategoryVo2 Category = "vo2"
	// CategoryGtg is grease-the-groove skill practice.
	CategoryGtg Category = "gtg"
	// CategoryMobility is joint mobility work.
	CategoryMobility Category = "mobility"
)

// IsValidCategory checks if the given category is supported.
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryVo2, CategoryGtg, CategoryMobility:
		return true
	default:
		return false
	}
}

// MicrodoseDefinition is a named workout built from one or more blocks.
type MicrodoseDefinition struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	Category                 Category         `json:"category"`
	SuggestedDurationSeconds int              `json:"suggested_duration_seconds"`
	GtgFriendly              bool             `json:"gtg_friendly"`
	Blocks                   []MicrodoseBlock `json:"blocks"`
	ReferenceURL             string           `json:"reference_url,omitempty"`
}

// DefaultReps returns the default value of the first reps metric in the
// definition's first block, or 0 if none is declared.
func (d MicrodoseDefinition) DefaultReps() int {
	if len(d.Blocks) == 0 {
		return 0
	}
	for _, m := range d.Blocks[0].Metrics {
		if m.Type == MetricReps {
			return m.Default
		}
	}
	return 0
}

// DefaultStyle returns the movement style of the definition's first block.
func (d MicrodoseDefinition) DefaultStyle() MovementStyle {
	if len(d.Blocks) == 0 {
		return MovementStyle{}
	}
	return d.Blocks[0].MovementStyle
}

// ProgressionState tracks per-definition intensity. Level only increases.
type ProgressionState struct {
	Reps         int           `json:"reps"`
	Style        MovementStyle `json:"style"`
	Level        int           `json:"level"`
	LastUpgraded *time.Time    `json:"last_upgraded,omitempty"`
}

// UserState is the persisted per-user aggregate: progression entries keyed
// by definition id plus the mobility round-robin cursor.
type UserState struct {
	Progressions      map[string]ProgressionState `json:"progressions"`
	LastMobilityDefID string                      `json:"last_mobility_def_id,omitempty"`
}

// NewUserState returns an empty state ready for use.
func NewUserState() UserState {
	return UserState{Progressions: make(map[string]ProgressionState)}
}

// StrengthSessionType classifies an external strength session.
type StrengthSessionType string

const (
	StrengthLower StrengthSessionType = "lower"
	StrengthUpper StrengthSessionType = "upper"
	StrengthFull  StrengthSessionType = "full"
)

// ParseStrengthSessionType maps the external system's free-form session type
// string onto the known variants. Unknown values are passed through
// lowercased so callers can still log and compare them.
func ParseStrengthSessionType(s string) StrengthSessionType {
	switch normalized := StrengthSessionType(strings.ToLower(strings.TrimSpace(s))); normalized {
	case StrengthLower, StrengthUpper, StrengthFull:
		return normalized
	case "full_body", "fullbody":
		return StrengthFull
	default:
		return normalized
	}
}

// StrengthSignal is the read-only external strength-training input.
type StrengthSignal struct {
	LastSessionAt time.Time           `json:"last_session_at"`
	SessionType   StrengthSessionType `json:"session_type"`
}

// Error variables for better error handling and testability.
var (
	ErrEmptyDefinitionID = errors.New("definition id cannot be empty")
	ErrUnknownDefinition = errors.New("unknown definition id")
	ErrUnknownMovement   = errors.New("unknown movement id")
)
