package ports

import (
	"context"

	"github.com/fundledger/campaign-results/internal/core/domain"
)

// NetworkSelector picks the ledger network and, optionally, the viewer.
// An empty Viewer lets the session resolve its own default account.
type NetworkSelector struct {
	Network string
	Viewer  domain.Identity
}

// Key identifies the snapshot slot a selector publishes into.
func (s NetworkSelector) Key() string {
	return s.Network + "|" + s.Viewer.String()
}

// LedgerConnector acquires read-only sessions against the campaign ledger.
// Connect fails with domain.ErrConnection when no provider is reachable or
// no campaign is deployed on the selected network.
type LedgerConnector interface {
	Connect(ctx context.Context, sel NetworkSelector) (LedgerSession, error)
}

// LedgerSession exposes the campaign reads. Every call is idempotent and
// safe to retry.
type LedgerSession interface {
	// Network returns the resolved network identity (e.g. a chain id).
	Network() string
	ViewerIdentity(ctx context.Context) (domain.Identity, error)
	ReadPhase(ctx context.Context) (domain.PhaseFlags, error)
	AdminIdentity(ctx context.Context) (domain.Identity, error)
	ApprovedRoster(ctx context.Context) (domain.Roster, error)
	// ParticipantRecord returns domain.ErrRecordUnavailable when the ledger
	// holds no entry for id.
	ParticipantRecord(ctx context.Context, id domain.Identity) (domain.ParticipantRecord, error)
	Close() error
}
