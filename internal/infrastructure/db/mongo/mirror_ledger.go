package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

// campaignDocument is the mirrored contract state for one network, keyed by
// network id.
type campaignDocument struct {
	Network       string   `bson:"_id"`
	Started       bool     `bson:"started"`
	Ended         bool     `bson:"ended"`
	Admin         string   `bson:"admin"`
	Approved      []string `bson:"approved"`
	DefaultViewer string   `bson:"default_viewer,omitempty"`
}

func (d campaignDocument) flags() domain.PhaseFlags {
	return domain.PhaseFlags{Started: d.Started, Ended: d.Ended}
}

func (d campaignDocument) roster() domain.Roster {
	roster := make(domain.Roster, len(d.Approved))
	for i, a := range d.Approved {
		roster[i] = addressOf(a)
	}
	return roster
}

type participantDocument struct {
	Network string                   `bson:"network"`
	Record  domain.ParticipantRecord `bson:",inline"`
}

// MirrorLedger serves campaign reads from a MongoDB copy of the contract
// state, kept current by an external indexer.
type MirrorLedger struct {
	campaigns    *mongo.Collection
	participants *mongo.Collection
	network      string
}

var _ ports.LedgerConnector = (*MirrorLedger)(nil)

// NewMirrorLedger reads from db. defaultNetwork is used for selectors that
// name no network.
func NewMirrorLedger(db *mongo.Database, defaultNetwork string) *MirrorLedger {
	return &MirrorLedger{
		campaigns:    db.Collection(collectionCampaigns),
		participants: db.Collection(collectionParticipants),
		network:      defaultNetwork,
	}
}

// Connect reads the campaign mirrored for the selected network. The session
// serves identities, phase and roster from that one document.
func (m *MirrorLedger) Connect(ctx context.Context, sel ports.NetworkSelector) (ports.LedgerSession, error) {
	network := sel.Network
	if network == "" {
		network = m.network
	}
	if network == "" {
		return nil, fmt.Errorf("%w: no network selected", domain.ErrConnection)
	}

	findCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc campaignDocument
	if err := m.campaigns.FindOne(findCtx, bson.M{"_id": network}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: no campaign mirrored for network %s", domain.ErrConnection, network)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return &mirrorSession{ledger: m, network: network, viewer: sel.Viewer, campaign: doc}, nil
}

// EnsureIndexes creates the participant lookup index.
func (m *MirrorLedger) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := m.participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "network", Value: 1}, {Key: "address", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type mirrorSession struct {
	ledger   *MirrorLedger
	network  string
	viewer   domain.Identity
	campaign campaignDocument
}

func (s *mirrorSession) Network() string { return s.network }

func (s *mirrorSession) ViewerIdentity(context.Context) (domain.Identity, error) {
	if !s.viewer.IsZero() {
		return addressOf(s.viewer.String()), nil
	}
	if strings.TrimSpace(s.campaign.DefaultViewer) == "" {
		return "", errors.New("no viewer identity supplied and none mirrored")
	}
	return addressOf(s.campaign.DefaultViewer), nil
}

func (s *mirrorSession) ReadPhase(context.Context) (domain.PhaseFlags, error) {
	return s.campaign.flags(), nil
}

func (s *mirrorSession) AdminIdentity(context.Context) (domain.Identity, error) {
	if strings.TrimSpace(s.campaign.Admin) == "" {
		return "", errors.New("campaign has no admin mirrored")
	}
	return addressOf(s.campaign.Admin), nil
}

func (s *mirrorSession) ApprovedRoster(context.Context) (domain.Roster, error) {
	return s.campaign.roster(), nil
}

func (s *mirrorSession) ParticipantRecord(ctx context.Context, id domain.Identity) (domain.ParticipantRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id = addressOf(id.String())
	filter := bson.M{"network": s.network, "address": bson.M{"$in": addressForms(id)}}
	var doc participantDocument
	if err := s.ledger.participants.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ParticipantRecord{}, fmt.Errorf("%w: %s", domain.ErrRecordUnavailable, id)
		}
		return domain.ParticipantRecord{}, err
	}
	rec := doc.Record
	rec.Identity = id
	return rec, nil
}

// Close is a no-op: the client is owned by the Store.
func (s *mirrorSession) Close() error { return nil }

// addressOf checksums hex addresses so that mirrored values compare equal to
// those read from the chain. Anything else is kept as trimmed text.
func addressOf(s string) domain.Identity {
	s = strings.TrimSpace(s)
	if common.IsHexAddress(s) {
		return domain.Identity(common.HexToAddress(s).Hex())
	}
	return domain.NewIdentity(s)
}

// addressForms lists the spellings an indexer may have stored for id:
// checksummed and lower-case hex.
func addressForms(id domain.Identity) []string {
	forms := []string{id.String()}
	if lower := strings.ToLower(id.String()); lower != forms[0] {
		forms = append(forms, lower)
	}
	return forms
}
