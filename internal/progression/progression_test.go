package progression

import (
	"errors"
	"testing"
	"time"

	"github.com/krep-fit/krep/internal/catalog"
	"github.com/krep-fit/krep/internal/models"
)

func upgradeN(t *testing.T, defID string, state *models.UserState, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := Upgrade(catalog.Default(), defID, state, DefaultLimits(), time.Now()); err != nil {
			t.Fatalf("upgrade %d failed: %v", i+1, err)
		}
	}
}

func TestBurpeeRepsIncreaseBelowCeiling(t *testing.T) {
	state := models.NewUserState()
	upgradeN(t, "emom_burpee_5m", &state, 1)

	entry := state.Progressions["emom_burpee_5m"]
	if entry.Reps != 4 {
		t.Errorf("reps = %d, want 4 (catalog default 3 plus one)", entry.Reps)
	}
	if entry.Style.Burpee != models.BurpeeFourCount {
		t.Errorf("style = %q, want four_count preserved", entry.Style.Burpee)
	}
	if entry.Level != 1 {
		t.Errorf("level = %d, want 1", entry.Level)
	}
	if entry.LastUpgraded == nil {
		t.Error("last_upgraded not stamped")
	}
}

func TestBurpeeStyleLadderAtCeiling(t *testing.T) {
	tests := []struct {
		style     models.BurpeeStyle
		wantStyle models.BurpeeStyle
		wantReps  int
	}{
		{models.BurpeeFourCount, models.BurpeeSixCount, 6},
		{models.BurpeeSixCount, models.BurpeeSixCountTwoPump, 5},
		{models.BurpeeSixCountTwoPump, models.BurpeeSeal, 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			state := models.NewUserState()
			state.Progressions["emom_burpee_5m"] = models.ProgressionState{
				Reps:  DefaultLimits().BurpeeRepCeiling,
				Style: models.MovementStyle{Burpee: tt.style},
				Level: 7,
			}
			upgradeN(t, "emom_burpee_5m", &state, 1)

			entry := state.Progressions["emom_burpee_5m"]
			if entry.Style.Burpee != tt.wantStyle {
				t.Errorf("style = %q, want %q", entry.Style.Burpee, tt.wantStyle)
			}
			if entry.Reps != tt.wantReps {
				t.Errorf("reps = %d, want %d", entry.Reps, tt.wantReps)
			}
			if entry.Level != 8 {
				t.Errorf("level = %d, want 8", entry.Level)
			}
		})
	}
}

func TestBurpeeSealClampsRepsButLevelStillClimbs(t *testing.T) {
	state := models.NewUserState()
	ceiling := DefaultLimits().BurpeeRepCeiling
	state.Progressions["emom_burpee_5m"] = models.ProgressionState{
		Reps:  ceiling,
		Style: models.MovementStyle{Burpee: models.BurpeeSeal},
		Level: 20,
	}
	upgradeN(t, "emom_burpee_5m", &state, 3)

	entry := state.Progressions["emom_burpee_5m"]
	if entry.Reps != ceiling {
		t.Errorf("reps = %d, want clamped at %d", entry.Reps, ceiling)
	}
	if entry.Style.Burpee != models.BurpeeSeal {
		t.Errorf("style = %q, want seal", entry.Style.Burpee)
	}
	if entry.Level != 23 {
		t.Errorf("level = %d, want 23", entry.Level)
	}
}

func TestBurpeeFullWalk(t *testing.T) {
	// Catalog default is 3 reps of four_count. Seven upgrades reach the
	// ceiling of 10, the eighth moves to six_count at 6 reps.
	state := models.NewUserState()
	upgradeN(t, "emom_burpee_5m", &state, 8)

	entry := state.Progressions["emom_burpee_5m"]
	if entry.Style.Burpee != models.BurpeeSixCount {
		t.Errorf("style = %q, want six_count after walking past the ceiling", entry.Style.Burpee)
	}
	if entry.Reps != 6 {
		t.Errorf("reps = %d, want 6", entry.Reps)
	}
	if entry.Level != 8 {
		t.Errorf("level = %d, want 8", entry.Level)
	}
}

func TestSwingProgressionIsLinear(t *testing.T) {
	state := models.NewUserState()
	upgradeN(t, "emom_kb_swing_5m", &state, 1)

	entry := state.Progressions["emom_kb_swing_5m"]
	// base 5, level 0 at upgrade time: 5+0+1.
	if entry.Reps != 6 {
		t.Errorf("reps = %d, want 6", entry.Reps)
	}

	upgradeN(t, "emom_kb_swing_5m", &state, 1)
	entry = state.Progressions["emom_kb_swing_5m"]
	if entry.Reps != 7 {
		t.Errorf("reps = %d, want 7", entry.Reps)
	}
}

func TestSwingStopsAtMax(t *testing.T) {
	state := models.NewUserState()
	max := DefaultLimits().SwingMaxReps
	state.Progressions["emom_kb_swing_5m"] = models.ProgressionState{Reps: max, Level: 9}

	upgradeN(t, "emom_kb_swing_5m", &state, 1)
	entry := state.Progressions["emom_kb_swing_5m"]
	if entry.Reps != max {
		t.Errorf("reps = %d, want unchanged %d", entry.Reps, max)
	}
	if entry.Level != 9 {
		t.Errorf("level = %d, want unchanged 9 at max", entry.Level)
	}
}

func TestSwingClampsNearMax(t *testing.T) {
	state := models.NewUserState()
	max := DefaultLimits().SwingMaxReps
	state.Progressions["emom_kb_swing_5m"] = models.ProgressionState{Reps: max - 1, Level: 30}

	upgradeN(t, "emom_kb_swing_5m", &state, 1)
	if got := state.Progressions["emom_kb_swing_5m"].Reps; got != max {
		t.Errorf("reps = %d, want clamped to %d", got, max)
	}
}

func TestPullupRepsIncreaseToCeiling(t *testing.T) {
	state := models.NewUserState()
	upgradeN(t, "gtg_pullup_band", &state, 1)

	entry := state.Progressions["gtg_pullup_band"]
	if entry.Reps != 4 {
		t.Errorf("reps = %d, want 4 (catalog default 3 plus one)", entry.Reps)
	}
	if entry.Style.Band != "red" {
		t.Errorf("band = %q, want the catalog default red preserved", entry.Style.Band)
	}

	max := DefaultLimits().PullupMaxReps
	state.Progressions["gtg_pullup_band"] = models.ProgressionState{Reps: max, Level: 5}
	upgradeN(t, "gtg_pullup_band", &state, 1)
	entry = state.Progressions["gtg_pullup_band"]
	if entry.Reps != max {
		t.Errorf("reps = %d, want unchanged %d at ceiling", entry.Reps, max)
	}
	if entry.Level != 5 {
		t.Errorf("level = %d, want unchanged at ceiling", entry.Level)
	}
}

func TestMobilityIsNotProgressable(t *testing.T) {
	state := models.NewUserState()
	if err := Upgrade(catalog.Default(), "mobility_hip_cars", &state, DefaultLimits(), time.Now()); err != nil {
		t.Fatalf("mobility upgrade should be a warning no-op, got %v", err)
	}
	if len(state.Progressions) != 0 {
		t.Errorf("mobility upgrade created %d progression entries, want none", len(state.Progressions))
	}
}

func TestUpgradeEmptyDefinitionID(t *testing.T) {
	state := models.NewUserState()
	err := Upgrade(catalog.Default(), "", &state, DefaultLimits(), time.Now())
	if !errors.Is(err, models.ErrEmptyDefinitionID) {
		t.Errorf("expected ErrEmptyDefinitionID, got %v", err)
	}
}

func TestUpgradeUnknownDefinition(t *testing.T) {
	state := models.NewUserState()
	err := Upgrade(catalog.Default(), "no_such_definition", &state, DefaultLimits(), time.Now())
	if !errors.Is(err, models.ErrUnknownDefinition) {
		t.Errorf("expected ErrUnknownDefinition, got %v", err)
	}
}

func TestUpgradeWithNilProgressionsMap(t *testing.T) {
	var state models.UserState
	if err := Upgrade(catalog.Default(), "emom_burpee_5m", &state, DefaultLimits(), time.Now()); err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	if state.Progressions["emom_burpee_5m"].Reps != 4 {
		t.Errorf("reps = %d, want 4", state.Progressions["emom_burpee_5m"].Reps)
	}
}
