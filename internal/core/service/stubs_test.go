package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory ledger stub with per-operation call counters
// ---------------------------------------------------------------------------

type stubLedger struct {
	mu sync.Mutex

	connectErr error
	network    string
	viewer     domain.Identity
	admin      domain.Identity
	viewerErr  error
	adminErr   error
	flags      domain.PhaseFlags
	phaseErr   error
	roster     domain.Roster
	rosterErr  error
	records    map[domain.Identity]domain.ParticipantRecord
	recordErrs map[domain.Identity]error

	// Hooks run outside the lock; n is the 1-based call number.
	onPhase  func(n int)
	onRecord func(ctx context.Context, id domain.Identity)

	calls       map[string]int
	recordOrder []domain.Identity
	selectors   []ports.NetworkSelector
	closed      int
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		network:    "5777",
		viewer:     "0xViewer",
		admin:      "0xAdmin",
		records:    make(map[domain.Identity]domain.ParticipantRecord),
		recordErrs: make(map[domain.Identity]error),
		calls:      make(map[string]int),
	}
}

// concluded seeds an ended campaign with one record per roster entry.
func (l *stubLedger) concluded(ids ...domain.Identity) *stubLedger {
	l.flags = domain.PhaseFlags{Ended: true}
	l.roster = ids
	for _, id := range ids {
		l.records[id] = domain.ParticipantRecord{Identity: id, BusinessName: "biz-" + id.String(), FundingAmountWei: "1000"}
	}
	return l
}

func (l *stubLedger) count(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

func (l *stubLedger) hit(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[op]++
	return l.calls[op]
}

func (l *stubLedger) Connect(_ context.Context, sel ports.NetworkSelector) (ports.LedgerSession, error) {
	l.hit(OpConnect)
	l.mu.Lock()
	l.selectors = append(l.selectors, sel)
	l.mu.Unlock()
	if l.connectErr != nil {
		return nil, l.connectErr
	}
	return &stubSession{ledger: l, viewerOverride: sel.Viewer}, nil
}

type stubSession struct {
	ledger         *stubLedger
	viewerOverride domain.Identity
}

func (s *stubSession) Network() string { return s.ledger.network }

func (s *stubSession) ViewerIdentity(context.Context) (domain.Identity, error) {
	s.ledger.hit(OpViewerIdentity)
	if s.ledger.viewerErr != nil {
		return "", s.ledger.viewerErr
	}
	if !s.viewerOverride.IsZero() {
		return s.viewerOverride, nil
	}
	return s.ledger.viewer, nil
}

func (s *stubSession) AdminIdentity(context.Context) (domain.Identity, error) {
	s.ledger.hit(OpAdminIdentity)
	return s.ledger.admin, s.ledger.adminErr
}

func (s *stubSession) ReadPhase(context.Context) (domain.PhaseFlags, error) {
	n := s.ledger.hit(OpReadPhase)
	if s.ledger.onPhase != nil {
		s.ledger.onPhase(n)
	}
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.ledger.flags, s.ledger.phaseErr
}

func (s *stubSession) ApprovedRoster(context.Context) (domain.Roster, error) {
	s.ledger.hit(OpApprovedRoster)
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if s.ledger.rosterErr != nil {
		return nil, s.ledger.rosterErr
	}
	return s.ledger.roster.Clone(), nil
}

func (s *stubSession) ParticipantRecord(ctx context.Context, id domain.Identity) (domain.ParticipantRecord, error) {
	s.ledger.hit(OpParticipantRecord)
	if s.ledger.onRecord != nil {
		s.ledger.onRecord(ctx, id)
	}
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	s.ledger.recordOrder = append(s.ledger.recordOrder, id)
	if err, ok := s.ledger.recordErrs[id]; ok {
		return domain.ParticipantRecord{}, err
	}
	rec, ok := s.ledger.records[id]
	if !ok {
		return domain.ParticipantRecord{}, fmt.Errorf("voterDetails(%s): %w", id, domain.ErrRecordUnavailable)
	}
	return rec, nil
}

func (s *stubSession) Close() error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	s.ledger.closed++
	return nil
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type stubAudit struct {
	mu      sync.Mutex
	err     error
	entries []*domain.LoadAudit
}

func (a *stubAudit) InsertLoad(_ context.Context, entry *domain.LoadAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return a.err
}

func (a *stubAudit) last() *domain.LoadAudit {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return nil
	}
	return a.entries[len(a.entries)-1]
}

type stubGuard struct {
	acquired   bool
	acquireErr error
	released   []string
}

func (g *stubGuard) Acquire(context.Context, string) (bool, error) {
	return g.acquired, g.acquireErr
}

func (g *stubGuard) Release(_ context.Context, key string) error {
	g.released = append(g.released, key)
	return nil
}

type stubRecorder struct {
	mu          sync.Mutex
	calls       map[string]int
	failedCalls map[string]int
	unavailable int
	outcomes    []domain.LoadOutcome
}

func newStubRecorder() *stubRecorder {
	return &stubRecorder{calls: map[string]int{}, failedCalls: map[string]int{}}
}

func (r *stubRecorder) LedgerCall(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	if err != nil {
		r.failedCalls[op]++
	}
}

func (r *stubRecorder) RecordUnavailable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable++
}

func (r *stubRecorder) CycleFinished(outcome domain.LoadOutcome, _ domain.CampaignPhase, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// sequentialIDs returns deterministic cycle ids: cycle-1, cycle-2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("cycle-%d", n)
	}
}
