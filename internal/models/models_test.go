package models

import (
	"testing"
	"time"
)

func TestParseStrengthSessionType(t *testing.T) {
	cases := []struct {
		input string
		want  StrengthSessionType
	}{
		{"lower", StrengthLower},
		{"LOWER", StrengthLower},
		{"Upper", StrengthUpper},
		{"full", StrengthFull},
		{"full_body", StrengthFull},
		{"FullBody", StrengthFull},
		{" lower ", StrengthLower},
		{"custom_session", StrengthSessionType("custom_session")},
	}
	for _, tc := range cases {
		if got := ParseStrengthSessionType(tc.input); got != tc.want {
			t.Errorf("ParseStrengthSessionType(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range []Category{CategoryVo2, CategoryGtg, CategoryMobility} {
		if !IsValidCategory(c) {
			t.Errorf("IsValidCategory(%q) = false, want true", c)
		}
	}
	if IsValidCategory("cardio") {
		t.Error("IsValidCategory(\"cardio\") = true, want false")
	}
}

func TestDefinitionDefaults(t *testing.T) {
	def := MicrodoseDefinition{
		ID: "emom_test_5m",
		Blocks: []MicrodoseBlock{{
			MovementID:    "burpee",
			MovementStyle: MovementStyle{Burpee: BurpeeFourCount},
			Metrics: []MetricSpec{
				BandMetric("band", "red", false),
				RepsMetric("reps", 4, 2, 10, 1, true),
			},
		}},
	}

	if got := def.DefaultReps(); got != 4 {
		t.Errorf("DefaultReps() = %d, want 4", got)
	}
	if got := def.DefaultStyle(); got.Burpee != BurpeeFourCount {
		t.Errorf("DefaultStyle().Burpee = %q, want %q", got.Burpee, BurpeeFourCount)
	}

	empty := MicrodoseDefinition{ID: "empty"}
	if got := empty.DefaultReps(); got != 0 {
		t.Errorf("DefaultReps() on blockless definition = %d, want 0", got)
	}
	if got := empty.DefaultStyle(); !got.IsZero() {
		t.Errorf("DefaultStyle() on blockless definition = %+v, want zero", got)
	}
}

func TestNewSessionMintsUniqueIDs(t *testing.T) {
	now := time.Now()
	a := NewSession("emom_burpee_5m", now, 300)
	b := NewSession("emom_burpee_5m", now, 300)

	if a.ID == b.ID {
		t.Errorf("NewSession produced duplicate ids: %s", a.ID)
	}
	if a.DefinitionID != "emom_burpee_5m" {
		t.Errorf("DefinitionID = %q, want emom_burpee_5m", a.DefinitionID)
	}
	if a.StartedAt == nil || a.CompletedAt == nil {
		t.Error("NewSession should populate started/completed timestamps")
	}
	if a.ActualDurationSeconds != 300 {
		t.Errorf("ActualDurationSeconds = %d, want 300", a.ActualDurationSeconds)
	}
}

func TestHistoryEntryVariants(t *testing.T) {
	now := time.Now()
	session := NewSession("emom_kb_swing_5m", now, 300)
	skip := SkippedPrescription{DefinitionID: "gtg_pullup_band", ShownAt: now}

	entries := []HistoryEntry{session, skip}

	if entries[0].Definition() != "emom_kb_swing_5m" {
		t.Errorf("session entry Definition() = %q", entries[0].Definition())
	}
	if !entries[0].OccurredAt().Equal(now) {
		t.Errorf("session entry OccurredAt() = %v, want %v", entries[0].OccurredAt(), now)
	}
	if entries[1].Definition() != "gtg_pullup_band" {
		t.Errorf("skip entry Definition() = %q", entries[1].Definition())
	}
	if !entries[1].OccurredAt().Equal(now) {
		t.Errorf("skip entry OccurredAt() = %v, want %v", entries[1].OccurredAt(), now)
	}
}

func TestHistoryFromSessionsPreservesOrder(t *testing.T) {
	now := time.Now()
	sessions := []Session{
		NewSession("a", now, 1),
		NewSession("b", now.Add(-time.Hour), 2),
	}
	entries := HistoryFromSessions(sessions)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Definition() != "a" || entries[1].Definition() != "b" {
		t.Errorf("order not preserved: %q, %q", entries[0].Definition(), entries[1].Definition())
	}
}
