// Command krep prescribes and records microdose workouts.
//
// Usage:
//
//	krep [now] [--category vo2|gtg|mobility] [--dry-run] [--auto-complete]
//	krep rollup [--cleanup]
//
// Both commands accept --data-dir to override the configured data directory.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/krep-fit/krep/internal/catalog"
	"github.com/krep-fit/krep/internal/config"
	"github.com/krep-fit/krep/internal/engine"
	"github.com/krep-fit/krep/internal/history"
	"github.com/krep-fit/krep/internal/models"
	"github.com/krep-fit/krep/internal/progression"
	"github.com/krep-fit/krep/internal/rollup"
	"github.com/krep-fit/krep/internal/state"
	"github.com/krep-fit/krep/internal/strength"
	"github.com/krep-fit/krep/internal/wal"
)

// maxSkipRounds bounds how often a declined prescription is re-rolled
// before giving up on the decision session.
const maxSkipRounds = 5

func main() {
	// Load .env if present; the real environment still wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "krep: %v\n", err)
		os.Exit(1)
	}
	initializeLogger(cfg.LogLevel)

	command, args := splitCommand(os.Args[1:])
	switch command {
	case "now":
		err = cmdNow(cfg, args)
	case "rollup":
		err = cmdRollup(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "krep: unknown command %q (expected \"now\" or \"rollup\")\n", command)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Command failed", "command", command, "error", err)
		fmt.Fprintf(os.Stderr, "krep: %v\n", err)
		os.Exit(1)
	}
}

// splitCommand peels the subcommand off the argument list, defaulting to
// "now" so a bare `krep` prescribes immediately.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "now", args
	}
	return args[0], args[1:]
}

func initializeLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func cmdNow(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("now", flag.ExitOnError)
	dataDir := fs.String("data-dir", cfg.DataDir, "override data directory")
	categoryFlag := fs.String("category", "", "target category (vo2, gtg, mobility)")
	dryRun := fs.Bool("dry-run", false, "show prescription without logging")
	autoComplete := fs.Bool("auto-complete", false, "mark the prescription done without prompting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.DataDir = *dataDir

	if err := os.MkdirAll(cfg.WALDir(), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	cat := catalog.Default()
	if errs := cat.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
		return fmt.Errorf("catalog validation failed with %d errors", len(errs))
	}

	userState := state.Load(cfg.StatePath(), cfg.LockWait)
	signal := strength.Load(cfg.StrengthSignalPath())

	sessions, err := history.Load(cfg.WALPath(), cfg.ArchivePath(), cfg.HistoryWindowDays, time.Now(), cfg.LockWait)
	if err != nil {
		return fmt.Errorf("load session history: %w", err)
	}

	target := parseCategory(*categoryFlag)

	ctx := engine.Context{
		Now:       time.Now(),
		State:     userState,
		Recent:    models.HistoryFromSessions(sessions),
		Strength:  signal,
		Equipment: cfg.Equipment,
	}

	if *dryRun {
		prescription, err := engine.Prescribe(cat, ctx, target)
		if err != nil {
			return fmt.Errorf("prescribe: %w", err)
		}
		displayPrescription(prescription)
		fmt.Println("\n[Dry run - not logging session]")
		return nil
	}

	respond := func(p engine.Prescription) userAction {
		displayPrescription(p)
		if *autoComplete {
			return actionDone
		}
		action := promptUserAction()
		if action == actionSkip {
			fmt.Println("\nSkipped. Finding another option...")
		}
		return action
	}

	prescription, action, decided, err := runDecision(cat, ctx, target, respond)
	if err != nil {
		return fmt.Errorf("prescribe: %w", err)
	}
	if !decided {
		fmt.Println("\nNothing appealing today - no session logged.")
		return nil
	}

	switch action {
	case actionHarder:
		return recordUpgrade(cfg, prescription.Definition.ID)
	default:
		return recordCompletion(cfg, prescription, ctx.Now)
	}
}

// runDecision drives the prescribe/respond cycle. Each skip prepends an
// in-memory marker to the recent view and re-prescribes, at most
// maxSkipRounds times; the marker never reaches any store. Returns
// decided=false when every round was skipped.
func runDecision(cat *catalog.Catalog, ctx engine.Context, target *models.Category, respond func(engine.Prescription) userAction) (engine.Prescription, userAction, bool, error) {
	for round := 0; round < maxSkipRounds; round++ {
		prescription, err := engine.Prescribe(cat, ctx, target)
		if err != nil {
			return engine.Prescription{}, actionSkip, false, err
		}

		action := respond(prescription)
		if action != actionSkip {
			return prescription, action, true, nil
		}
		ctx.Recent = append([]models.HistoryEntry{models.SkippedPrescription{
			DefinitionID: prescription.Definition.ID,
			ShownAt:      time.Now(),
		}}, ctx.Recent...)
	}
	return engine.Prescription{}, actionSkip, false, nil
}

// recordCompletion appends the performed session to the WAL and, for
// mobility work, advances the persisted round-robin cursor.
func recordCompletion(cfg *config.Config, p engine.Prescription, now time.Time) error {
	session := models.NewSession(p.Definition.ID, now, p.Definition.SuggestedDurationSeconds)
	if err := wal.Append(cfg.WALPath(), session, cfg.LockWait); err != nil {
		return fmt.Errorf("log session: %w", err)
	}

	if p.Definition.Category == models.CategoryMobility {
		_, err := state.Update(cfg.StatePath(), cfg.LockWait, func(s *models.UserState) error {
			s.LastMobilityDefID = p.Definition.ID
			return nil
		})
		if err != nil {
			return fmt.Errorf("advance mobility cursor: %w", err)
		}
	}

	fmt.Println("\n✓ Session logged!")
	return nil
}

// recordUpgrade applies the "harder next time" progression rules. No WAL
// write happens here; only the progression state changes.
func recordUpgrade(cfg *config.Config, definitionID string) error {
	updated, err := state.Update(cfg.StatePath(), cfg.LockWait, func(s *models.UserState) error {
		return progression.Upgrade(catalog.Default(), definitionID, s, cfg.Limits(), time.Now())
	})
	if err != nil {
		return fmt.Errorf("increase intensity: %w", err)
	}

	fmt.Println("\n✓ Intensity increased for next time!")
	if entry, ok := updated.Progressions[definitionID]; ok {
		fmt.Printf("  Level: %d\n", entry.Level)
		fmt.Printf("  Reps:  %d\n", entry.Reps)
	}
	return nil
}

func cmdRollup(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("rollup", flag.ExitOnError)
	dataDir := fs.String("data-dir", cfg.DataDir, "override data directory")
	cleanup := fs.Bool("cleanup", false, "remove processed WAL segments after rollup")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.DataDir = *dataDir

	if _, err := os.Stat(cfg.WALPath()); os.IsNotExist(err) {
		fmt.Println("No WAL file found - nothing to roll up.")
		return nil
	}

	count, err := rollup.Rollup(cfg.WALPath(), cfg.ArchivePath(), cfg.LockWait)
	if err != nil {
		return fmt.Errorf("rollup: %w", err)
	}
	fmt.Printf("✓ Rolled up %d sessions to archive\n", count)
	fmt.Printf("  Archive: %s\n", cfg.ArchivePath())

	if *cleanup {
		removed, err := rollup.Cleanup(cfg.WALDir())
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		if removed > 0 {
			fmt.Printf("✓ Cleaned up %d processed WAL segments\n", removed)
		}
	}
	return nil
}

func parseCategory(s string) *models.Category {
	if s == "" {
		return nil
	}
	c := models.Category(strings.ToLower(s))
	if !models.IsValidCategory(c) {
		fmt.Fprintf(os.Stderr, "Unknown category: %s. Using default selection.\n", s)
		return nil
	}
	return &c
}

type userAction int

const (
	actionDone userAction = iota
	actionSkip
	actionHarder
)

func promptUserAction() userAction {
	fmt.Println("─────────────────────────────────────────")
	fmt.Println("Press Enter when done")
	fmt.Println("  's' + Enter to skip")
	fmt.Println("  'h' + Enter to mark 'harder next time'")
	fmt.Print("> ")

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return actionDone
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "s":
		return actionSkip
	case "h":
		return actionHarder
	default:
		return actionDone
	}
}

func displayPrescription(p engine.Prescription) {
	fmt.Println("\n╭─────────────────────────────────────────╮")
	fmt.Printf("│  %s MICRODOSE\n", strings.ToUpper(string(p.Definition.Category)))
	fmt.Println("╰─────────────────────────────────────────╯")
	fmt.Println()
	fmt.Printf("  %s\n", p.Definition.Name)
	fmt.Printf("  Duration: ~%d seconds (%d min)\n",
		p.Definition.SuggestedDurationSeconds,
		p.Definition.SuggestedDurationSeconds/60)
	fmt.Println()

	if p.Reps > 0 {
		fmt.Printf("  → %d reps\n", p.Reps)
	}
	if p.Style.Burpee != "" {
		fmt.Printf("  → Style: %s\n", p.Style.Burpee)
	}
	if p.Style.Band != "" {
		fmt.Printf("  → Band: %s\n", p.Style.Band)
	}

	if p.Definition.ReferenceURL != "" {
		fmt.Println()
		fmt.Printf("  ℹ Reference: %s\n", p.Definition.ReferenceURL)
	}
	fmt.Println()
}
