package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

// cycle is the private in-flight state of one load. It is never shared
// between cycles.
type cycle struct {
	id        string
	state     domain.LoadState
	trail     []domain.LoadState
	startedAt time.Time
	log       zerolog.Logger

	network    string
	viewer     domain.Identity
	phase      domain.CampaignPhase
	rosterSize int
	missing    []domain.Identity
	failedAt   domain.LoadState
	superseded bool
}

func (s *CampaignService) newCycle(sel ports.NetworkSelector) *cycle {
	id := s.newCycleID()
	return &cycle{
		id:        id,
		state:     domain.StateIdle,
		trail:     []domain.LoadState{domain.StateIdle},
		startedAt: s.clock(),
		network:   sel.Network,
		viewer:    sel.Viewer,
		log:       s.log.With().Str("cycle_id", id).Str("network", sel.Network).Logger(),
	}
}

// advance records a state change. A terminal cycle never moves again.
func (c *cycle) advance(next domain.LoadState) {
	if c.state.Terminal() {
		c.log.Error().Str("from", string(c.state)).Str("to", string(next)).Msg("load cycle already finished")
		return
	}
	if !c.state.CanTransitionTo(next) {
		c.log.Error().Str("from", string(c.state)).Str("to", string(next)).Msg("invalid load state transition")
	}
	c.log.Trace().Str("from", string(c.state)).Str("to", string(next)).Msg("load state")
	c.state = next
	c.trail = append(c.trail, next)
}

// fail moves the cycle to Failed and returns the classified error.
func (c *cycle) fail(kind, cause error) error {
	c.failedAt = c.state
	c.advance(domain.StateFailed)
	return domain.Fail(c.failedAt, kind, cause)
}

func (c *cycle) toAudit(view *domain.CampaignView, err error, elapsed time.Duration) *domain.LoadAudit {
	a := &domain.LoadAudit{
		CycleID:    c.id,
		Network:    c.network,
		Viewer:     c.viewer,
		Phase:      c.phase,
		RosterSize: c.rosterSize,
		Missing:    c.missing,
		Trail:      c.trail,
		StartedAt:  c.startedAt,
		Duration:   elapsed,
	}
	switch {
	case c.superseded:
		a.Outcome = domain.OutcomeSuperseded
	case err != nil:
		a.Outcome = domain.OutcomeFailed
		a.FailedStage = c.failedAt
		a.Error = err.Error()
	default:
		a.Outcome = domain.OutcomeReady
		a.RecordCount = view.RecordCount()
	}
	return a
}
