package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

// Ledger operation names reported to the Recorder.
const (
	OpConnect           = "connect"
	OpViewerIdentity    = "viewer_identity"
	OpAdminIdentity     = "admin_identity"
	OpReadPhase         = "read_phase"
	OpApprovedRoster    = "approved_roster"
	OpParticipantRecord = "participant_record"
)

// RefreshGuard abstracts the cross-instance refresh lock (Redis).
type RefreshGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Recorder receives load-cycle measurements.
type Recorder interface {
	LedgerCall(op string, err error)
	RecordUnavailable()
	CycleFinished(outcome domain.LoadOutcome, phase domain.CampaignPhase, elapsed time.Duration)
}

// Options tunes a CampaignService. Zero values are usable.
type Options struct {
	// RecordConcurrency bounds parallel record fetches; <= 1 fetches sequentially.
	RecordConcurrency int
	Guard             RefreshGuard
	Audit             ports.LoadAuditRepository
	Recorder          Recorder
	Clock             func() time.Time
	NewCycleID        func() string
	// MaxSelectors caps the published snapshots kept in memory. Once reached,
	// the least recently used idle selector is evicted. Defaults to 256.
	MaxSelectors int
}

const defaultMaxSelectors = 256

// CampaignService aggregates ledger reads into CampaignViews.
type CampaignService struct {
	connector   ports.LedgerConnector
	concurrency int
	guard       RefreshGuard
	audit       ports.LoadAuditRepository
	recorder    Recorder
	clock       func() time.Time
	newCycleID  func() string
	log         zerolog.Logger

	mu       sync.Mutex
	slots    map[string]*viewSlot
	maxSlots int
	tick     uint64
}

// viewSlot holds the published snapshot for one selector.
type viewSlot struct {
	started  uint64 // generation of the newest started cycle
	inflight int
	view     *domain.CampaignView
	used     uint64 // service tick of the last begin or Current hit
}

var _ ports.CampaignService = (*CampaignService)(nil)

func NewCampaignService(connector ports.LedgerConnector, opts Options, log zerolog.Logger) *CampaignService {
	s := &CampaignService{
		connector:   connector,
		concurrency: opts.RecordConcurrency,
		guard:       opts.Guard,
		audit:       opts.Audit,
		recorder:    opts.Recorder,
		clock:       opts.Clock,
		newCycleID:  opts.NewCycleID,
		log:         log,
		slots:       make(map[string]*viewSlot),
		maxSlots:    opts.MaxSelectors,
	}
	if s.maxSlots <= 0 {
		s.maxSlots = defaultMaxSelectors
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	if s.newCycleID == nil {
		s.newCycleID = uuid.NewString
	}
	return s
}

// Load runs one isolated cycle. The returned view is never published.
func (s *CampaignService) Load(ctx context.Context, sel ports.NetworkSelector) (*domain.CampaignView, error) {
	c := s.newCycle(sel)
	view, err := s.execute(ctx, c, sel)
	s.finish(ctx, c, view, err)
	return view, err
}

// Refresh runs a new cycle and publishes the result for sel. When a newer
// cycle for the same selector was started meanwhile, the result is dropped
// and ErrCycleSuperseded is returned. A failed cycle leaves the previously
// published view in place.
func (s *CampaignService) Refresh(ctx context.Context, sel ports.NetworkSelector) (*domain.CampaignView, error) {
	key := sel.Key()

	// 1. Cross-instance guard: reject concurrent reloads, fail open on errors.
	if s.guard != nil {
		acquired, err := s.guard.Acquire(ctx, key)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("selector", key).Msg("refresh guard unavailable, refreshing anyway")
		case !acquired:
			return nil, domain.ErrRefreshInProgress
		default:
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
					s.log.Warn().Err(err).Str("selector", key).Msg("failed to release refresh guard")
				}
			}()
		}
	}

	// 2. Run the cycle under a fresh generation.
	gen := s.begin(key)
	c := s.newCycle(sel)
	view, err := s.execute(ctx, c, sel)

	// 3. Publish only if no newer cycle started (last-started-wins).
	if err == nil && !s.publish(key, gen, view) {
		c.superseded = true
		err = domain.ErrCycleSuperseded
		view = nil
	}
	s.end(key)
	s.finish(ctx, c, view, err)
	return view, err
}

// Current returns the latest published view for sel. While a refresh is in
// flight the previous view is returned flagged as loading; before the first
// cycle completes a bare loading view is returned.
func (s *CampaignService) Current(sel ports.NetworkSelector) (*domain.CampaignView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[sel.Key()]
	if !ok {
		return nil, false
	}
	s.tick++
	slot.used = s.tick
	switch {
	case slot.view == nil && slot.inflight > 0:
		return domain.LoadingView(), true
	case slot.view == nil:
		return nil, false
	case slot.inflight > 0:
		return slot.view.WithLoading(), true
	default:
		return slot.view, true
	}
}

func (s *CampaignService) begin(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok {
		if len(s.slots) >= s.maxSlots {
			s.evictIdle()
		}
		slot = &viewSlot{}
		s.slots[key] = slot
	}
	s.tick++
	slot.used = s.tick
	slot.started++
	slot.inflight++
	return slot.started
}

// evictIdle drops the least recently used selector with no cycle in flight.
// Callers hold s.mu. When every slot is busy the map grows past the cap.
func (s *CampaignService) evictIdle() {
	var (
		victim string
		oldest uint64
		found  bool
	)
	for key, slot := range s.slots {
		if slot.inflight > 0 {
			continue
		}
		if !found || slot.used < oldest {
			victim, oldest, found = key, slot.used, true
		}
	}
	if found {
		delete(s.slots, victim)
		s.log.Debug().Str("selector", victim).Msg("evicted idle campaign snapshot")
	}
}

func (s *CampaignService) end(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key].inflight--
}

func (s *CampaignService) publish(key string, gen uint64, view *domain.CampaignView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.slots[key]
	if gen != slot.started {
		return false
	}
	slot.view = view
	return true
}

// execute walks the load state machine against a fresh ledger session.
func (s *CampaignService) execute(ctx context.Context, c *cycle, sel ports.NetworkSelector) (*domain.CampaignView, error) {
	// 1. Session.
	c.advance(domain.StateConnecting)
	session, err := s.connector.Connect(ctx, sel)
	s.recorder.LedgerCall(OpConnect, err)
	if err != nil {
		return nil, c.fail(domain.ErrConnection, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			c.log.Warn().Err(err).Msg("failed to close ledger session")
		}
	}()
	c.network = session.Network()

	// 2. Identities, compared once per cycle.
	c.advance(domain.StateResolvingIdentity)
	viewer, err := session.ViewerIdentity(ctx)
	s.recorder.LedgerCall(OpViewerIdentity, err)
	if err != nil {
		return nil, c.fail(domain.ErrIdentityRead, err)
	}
	c.viewer = viewer

	admin, err := session.AdminIdentity(ctx)
	s.recorder.LedgerCall(OpAdminIdentity, err)
	if err != nil {
		return nil, c.fail(domain.ErrIdentityRead, err)
	}

	// 3. Phase. Contradictory flags still yield a view.
	c.advance(domain.StateReadingPhase)
	flags, err := session.ReadPhase(ctx)
	s.recorder.LedgerCall(OpReadPhase, err)
	if err != nil {
		return nil, c.fail(domain.ErrPhaseRead, err)
	}
	c.phase = flags.Phase()
	if c.phase == domain.PhaseInvalid {
		c.log.Warn().Msg("ledger reports campaign both started and ended")
	}

	snap := domain.ViewSnapshot{
		CycleID: c.id,
		Flags:   flags,
		Viewer:  viewer,
		Admin:   admin,
	}

	// 4. No participant data exists before conclusion.
	if !c.phase.HasResults() {
		c.advance(domain.StateReady)
		snap.LoadedAt = s.clock()
		return domain.NewCampaignView(snap), nil
	}

	// 5. Roster, then records in roster order.
	c.advance(domain.StateFetchingRoster)
	roster, err := session.ApprovedRoster(ctx)
	s.recorder.LedgerCall(OpApprovedRoster, err)
	if err != nil {
		return nil, c.fail(domain.ErrRosterRead, err)
	}
	c.rosterSize = len(roster)

	c.advance(domain.StateJoiningRecords)
	records, err := s.joinRecords(ctx, c, session, roster)
	if err != nil {
		return nil, c.fail(err, err)
	}

	// 6. Done.
	c.advance(domain.StateReady)
	snap.Roster = roster
	snap.Records = records
	snap.LoadedAt = s.clock()
	return domain.NewCampaignView(snap), nil
}

type fetchResult struct {
	record domain.ParticipantRecord
	err    error
}

// joinRecords fetches one record per distinct roster identity. Issuance
// follows roster order; the resulting mapping does not depend on completion
// order. Record-level failures are absorbed; only cancellation aborts.
func (s *CampaignService) joinRecords(ctx context.Context, c *cycle, session ports.LedgerSession, roster domain.Roster) (map[domain.Identity]domain.ParticipantRecord, error) {
	ids := distinct(roster)
	results := make([]fetchResult, len(ids))

	fetch := func(i int) {
		rec, err := session.ParticipantRecord(ctx, ids[i])
		s.recorder.LedgerCall(OpParticipantRecord, err)
		results[i] = fetchResult{record: rec, err: err}
	}

	if s.concurrency <= 1 {
		for i := range ids {
			if ctx.Err() != nil {
				break
			}
			c.log.Trace().Int("index", i).Str("participant", ids[i].String()).Msg("fetching participant record")
			fetch(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i := range ids {
			i := i
			c.log.Trace().Int("index", i).Str("participant", ids[i].String()).Msg("fetching participant record")
			g.Go(func() error {
				if ctx.Err() == nil {
					fetch(i)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make(map[domain.Identity]domain.ParticipantRecord, len(ids))
	for i, id := range ids {
		res := results[i]
		switch {
		case res.err == nil:
			rec := res.record
			rec.Identity = id
			records[id] = rec
		case errors.Is(res.err, domain.ErrRecordUnavailable):
			c.missing = append(c.missing, id)
			s.recorder.RecordUnavailable()
			c.log.Debug().Str("participant", id.String()).Msg("participant record missing, row omitted")
		default:
			c.missing = append(c.missing, id)
			s.recorder.RecordUnavailable()
			c.log.Warn().Err(res.err).Str("participant", id.String()).Msg("participant record fetch failed, row omitted")
		}
	}
	return records, nil
}

func distinct(roster domain.Roster) []domain.Identity {
	seen := make(map[domain.Identity]struct{}, len(roster))
	out := make([]domain.Identity, 0, len(roster))
	for _, id := range roster {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// finish logs, records and audits a terminal cycle. Audit failures are non-fatal.
func (s *CampaignService) finish(ctx context.Context, c *cycle, view *domain.CampaignView, err error) {
	elapsed := s.clock().Sub(c.startedAt)
	audit := c.toAudit(view, err, elapsed)

	s.recorder.CycleFinished(audit.Outcome, audit.Phase, elapsed)

	switch audit.Outcome {
	case domain.OutcomeReady:
		c.log.Info().
			Str("phase", string(audit.Phase)).
			Bool("viewer_admin", view.IsViewerAdmin()).
			Int("roster", audit.RosterSize).
			Int("records", audit.RecordCount).
			Int("missing", len(audit.Missing)).
			Dur("elapsed", elapsed).
			Msg("campaign view ready")
	case domain.OutcomeSuperseded:
		c.log.Info().Msg("campaign view discarded, newer cycle started")
	default:
		c.log.Error().Err(err).Str("stage", string(audit.FailedStage)).Msg("campaign load failed")
	}

	if s.audit == nil {
		return
	}
	if err := s.audit.InsertLoad(context.WithoutCancel(ctx), audit); err != nil {
		c.log.Warn().Err(err).Msg("failed to insert load audit")
	}
}

type nopRecorder struct{}

func (nopRecorder) LedgerCall(string, error) {}

func (nopRecorder) RecordUnavailable() {}

func (nopRecorder) CycleFinished(domain.LoadOutcome, domain.CampaignPhase, time.Duration) {}
