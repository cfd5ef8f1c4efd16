package domain

// CampaignPhase is derived from the ledger's two independent phase flags.
type CampaignPhase string

const (
	PhaseNotStarted CampaignPhase = "not_started"
	PhaseInProgress CampaignPhase = "in_progress"
	PhaseConcluded  CampaignPhase = "concluded"
	// PhaseInvalid is reported when both flags are set. It is a state, not an error.
	PhaseInvalid CampaignPhase = "invalid"
)

// PhaseFlags are the raw booleans as read from the ledger.
type PhaseFlags struct {
	Started bool
	Ended   bool
}

// PhaseFromFlags is total over the four flag combinations.
func PhaseFromFlags(started, ended bool) CampaignPhase {
	switch {
	case !started && !ended:
		return PhaseNotStarted
	case started && !ended:
		return PhaseInProgress
	case !started && ended:
		return PhaseConcluded
	default:
		return PhaseInvalid
	}
}

// Phase recomputes the phase on every call; it is never stored separately.
func (f PhaseFlags) Phase() CampaignPhase {
	return PhaseFromFlags(f.Started, f.Ended)
}

// HasResults reports whether participant data belongs to this phase.
func (p CampaignPhase) HasResults() bool {
	return p == PhaseConcluded
}
