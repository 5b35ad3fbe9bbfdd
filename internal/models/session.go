package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one performed microdose. It is created only when the user
// confirms completion and is immutable afterwards: the WAL is append-only
// and the archival rollup converts format without changing content.
type Session struct {
	ID                    uuid.UUID    `json:"id"`
	DefinitionID          string       `json:"definition_id"`
	PerformedAt           time.Time    `json:"performed_at"`
	StartedAt             *time.Time   `json:"started_at,omitempty"`
	CompletedAt           *time.Time   `json:"completed_at,omitempty"`
	ActualDurationSeconds int          `json:"actual_duration_seconds,omitempty"`
	MetricsRealized       []MetricSpec `json:"metrics_realized,omitempty"`
	PerceivedRPE          int          `json:"perceived_rpe,omitempty"`
	AvgHR                 int          `json:"avg_hr,omitempty"`
	MaxHR                 int          `json:"max_hr,omitempty"`
}

// NewSession mints a completed session for the given definition. The random
// 128-bit id makes collisions across concurrent invocations negligible.
func NewSession(definitionID string, performedAt time.Time, durationSeconds int) Session {
	at := performedAt
	return Session{
		ID:                    uuid.New(),
		DefinitionID:          definitionID,
		PerformedAt:           performedAt,
		StartedAt:             &at,
		CompletedAt:           &at,
		ActualDurationSeconds: durationSeconds,
	}
}

// SkippedPrescription records a prescription the user declined. It exists
// only in memory to perturb the recent-history view when re-prescribing
// within the same decision session. There is deliberately no persistence
// API that accepts it: the WAL, archive, and state stores take Session.
type SkippedPrescription struct {
	DefinitionID string
	ShownAt      time.Time
}

// HistoryEntry is the closed set of things that can appear in the engine's
// recent-history view: performed sessions and in-memory skip markers. The
// unexported marker method keeps the set closed to this package.
type HistoryEntry interface {
	// Definition returns the microdose definition id of the entry.
	Definition() string
	// OccurredAt returns when the session was performed or the skipped
	// prescription was shown.
	OccurredAt() time.Time

	historyEntry()
}

// Definition implements HistoryEntry.
func (s Session) Definition() string { return s.DefinitionID }

// OccurredAt implements HistoryEntry.
func (s Session) OccurredAt() time.Time { return s.PerformedAt }

func (Session) historyEntry() {}

// Definition implements HistoryEntry.
func (p SkippedPrescription) Definition() string { return p.DefinitionID }

// OccurredAt implements HistoryEntry.
func (p SkippedPrescription) OccurredAt() time.Time { return p.ShownAt }

func (SkippedPrescription) historyEntry() {}

// HistoryFromSessions adapts a slice of performed sessions to the entry view
// consumed by the prescription engine, preserving order.
func HistoryFromSessions(sessions []Session) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, s)
	}
	return entries
}
