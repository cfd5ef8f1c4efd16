package domain

import "time"

// LoadOutcome is the terminal result of a load cycle as written to the audit trail.
type LoadOutcome string

const (
	OutcomeReady      LoadOutcome = "ready"
	OutcomeFailed     LoadOutcome = "failed"
	OutcomeSuperseded LoadOutcome = "superseded"
)

// LoadAudit records one finished load cycle.
type LoadAudit struct {
	CycleID     string
	Network     string
	Viewer      Identity
	Outcome     LoadOutcome
	Phase       CampaignPhase // empty when the cycle failed before reading it
	FailedStage LoadState
	Error       string
	RosterSize  int
	RecordCount int
	Missing     []Identity
	Trail       []LoadState
	StartedAt   time.Time
	Duration    time.Duration
}
