package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection means no ledger session could be established, including
	// the case of no deployed contract at the resolved network.
	ErrConnection = errors.New("ledger connection unavailable")
	// ErrIdentityRead means the viewer or admin identity could not be read.
	ErrIdentityRead = errors.New("identity unreadable")
	// ErrPhaseRead means the phase flags could not be read.
	ErrPhaseRead = errors.New("campaign phase unreadable")
	// ErrRosterRead means the approved roster could not be read.
	ErrRosterRead = errors.New("approved roster unreadable")
	// ErrRecordUnavailable is returned by ledger sessions for a missing
	// participant record. The aggregator absorbs it.
	ErrRecordUnavailable = errors.New("participant record unavailable")

	ErrRefreshInProgress = errors.New("campaign refresh already in progress")
	ErrCycleSuperseded   = errors.New("load cycle superseded by a newer refresh")
)

// AggregationError is the only failure that escapes a load cycle.
// Stage is the state the cycle was in when it failed.
type AggregationError struct {
	Stage LoadState
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate campaign (%s): %v", e.Stage, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// Fail wraps cause under kind so that errors.Is matches both.
func Fail(stage LoadState, kind, cause error) *AggregationError {
	switch {
	case cause == nil:
		cause = kind
	case !errors.Is(cause, kind):
		cause = fmt.Errorf("%w: %w", kind, cause)
	}
	return &AggregationError{Stage: stage, Err: cause}
}
