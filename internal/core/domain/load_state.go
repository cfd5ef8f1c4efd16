package domain

// LoadState tracks a single load cycle from Idle to a terminal state.
type LoadState string

const (
	StateIdle              LoadState = "idle"
	StateConnecting        LoadState = "connecting"
	StateResolvingIdentity LoadState = "resolving_identity"
	StateReadingPhase      LoadState = "reading_phase"
	StateFetchingRoster    LoadState = "fetching_roster"
	StateJoiningRecords    LoadState = "joining_records"
	StateReady             LoadState = "ready"
	StateFailed            LoadState = "failed"
)

// loadTransitions defines the allowed state machine transitions.
// Failed is reachable from every non-terminal state.
var loadTransitions = map[LoadState][]LoadState{
	StateIdle:              {StateConnecting, StateFailed},
	StateConnecting:        {StateResolvingIdentity, StateFailed},
	StateResolvingIdentity: {StateReadingPhase, StateFailed},
	StateReadingPhase:      {StateFetchingRoster, StateReady, StateFailed},
	StateFetchingRoster:    {StateJoiningRecords, StateFailed},
	StateJoiningRecords:    {StateReady, StateFailed},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s LoadState) CanTransitionTo(next LoadState) bool {
	for _, allowed := range loadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the cycle has finished. A new cycle never resumes a terminal one.
func (s LoadState) Terminal() bool {
	return s == StateReady || s == StateFailed
}
