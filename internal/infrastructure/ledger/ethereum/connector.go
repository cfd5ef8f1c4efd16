package ethereum

import (
	"context"
	"errors"
	"fmt"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

// Config locates the campaign contract.
type Config struct {
	RPCURL string
	// Deployments maps chain id to the campaign contract address.
	Deployments map[string]common.Address
	// DefaultViewer is used when the selector names no viewer.
	DefaultViewer domain.Identity
}

// Connector opens read-only sessions against the deployed campaign contract.
type Connector struct {
	cfg  Config
	dial Dialer
	log  zerolog.Logger
}

var _ ports.LedgerConnector = (*Connector)(nil)

func NewConnector(cfg Config, dial Dialer, log zerolog.Logger) *Connector {
	if dial == nil {
		dial = DialRPC
	}
	return &Connector{cfg: cfg, dial: dial, log: log}
}

// Connect dials the node, resolves its chain id and checks that a contract
// is deployed at the address registered for that chain.
func (c *Connector) Connect(ctx context.Context, sel ports.NetworkSelector) (ports.LedgerSession, error) {
	backend, err := c.dial(ctx, c.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", domain.ErrConnection, c.cfg.RPCURL, err)
	}

	session, err := c.open(ctx, backend, sel)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return session, nil
}

func (c *Connector) open(ctx context.Context, backend Backend, sel ports.NetworkSelector) (*session, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read chain id: %w", domain.ErrConnection, err)
	}
	network := chainID.String()
	if sel.Network != "" && sel.Network != network {
		return nil, fmt.Errorf("%w: node serves network %s, requested %s", domain.ErrConnection, network, sel.Network)
	}

	contract, ok := c.cfg.Deployments[network]
	if !ok {
		return nil, fmt.Errorf("%w: campaign contract not deployed to detected network %s", domain.ErrConnection, network)
	}
	code, err := backend.CodeAt(ctx, contract, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read contract code: %w", domain.ErrConnection, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no contract code at %s on network %s", domain.ErrConnection, contract.Hex(), network)
	}

	c.log.Debug().
		Str("network", network).
		Str("contract", contract.Hex()).
		Msg("ledger session opened")

	return &session{
		backend:       backend,
		network:       network,
		contract:      contract,
		viewer:        sel.Viewer,
		defaultViewer: c.cfg.DefaultViewer,
	}, nil
}

type session struct {
	backend       Backend
	network       string
	contract      common.Address
	viewer        domain.Identity
	defaultViewer domain.Identity
}

func (s *session) Network() string { return s.network }

// ViewerIdentity prefers the selector's viewer, then the configured default,
// then the node's first account.
func (s *session) ViewerIdentity(ctx context.Context) (domain.Identity, error) {
	for _, candidate := range []domain.Identity{s.viewer, s.defaultViewer} {
		if candidate.IsZero() {
			continue
		}
		if !common.IsHexAddress(candidate.String()) {
			return "", fmt.Errorf("viewer %q is not an address", candidate)
		}
		return identityOf(common.HexToAddress(candidate.String())), nil
	}

	accounts, err := s.backend.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("eth_accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", errors.New("node exposes no accounts")
	}
	return identityOf(accounts[0]), nil
}

func (s *session) ReadPhase(ctx context.Context) (domain.PhaseFlags, error) {
	started, err := callBool(ctx, s, methodStart)
	if err != nil {
		return domain.PhaseFlags{}, err
	}
	ended, err := callBool(ctx, s, methodEnd)
	if err != nil {
		return domain.PhaseFlags{}, err
	}
	return domain.PhaseFlags{Started: started, Ended: ended}, nil
}

func (s *session) AdminIdentity(ctx context.Context) (domain.Identity, error) {
	out, err := s.call(ctx, methodAdmin)
	if err != nil {
		return "", err
	}
	admin, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", methodAdmin, out[0])
	}
	return identityOf(admin), nil
}

func (s *session) ApprovedRoster(ctx context.Context) (domain.Roster, error) {
	out, err := s.call(ctx, methodApproved)
	if err != nil {
		return nil, err
	}
	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", methodApproved, out[0])
	}
	roster := make(domain.Roster, len(addrs))
	for i, a := range addrs {
		roster[i] = identityOf(a)
	}
	return roster, nil
}

// ParticipantRecord reads voterDetails. A revert, a zero voter address or an
// unregistered entry all mean the ledger has no record for id.
func (s *session) ParticipantRecord(ctx context.Context, id domain.Identity) (domain.ParticipantRecord, error) {
	if !common.IsHexAddress(id.String()) {
		return domain.ParticipantRecord{}, fmt.Errorf("%w: %q is not an address", domain.ErrRecordUnavailable, id)
	}

	out, err := s.call(ctx, methodVoterDetails, common.HexToAddress(id.String()))
	if err != nil {
		if isRevert(err) {
			return domain.ParticipantRecord{}, fmt.Errorf("%w: %w", domain.ErrRecordUnavailable, err)
		}
		return domain.ParticipantRecord{}, err
	}
	details, err := decodeVoterDetails(out)
	if err != nil {
		return domain.ParticipantRecord{}, err
	}
	if details.VoterAddress == (common.Address{}) || !details.IsRegistered {
		return domain.ParticipantRecord{}, fmt.Errorf("%w: no application for %s", domain.ErrRecordUnavailable, id)
	}

	amount := "0"
	if details.FundingAmount != nil {
		amount = details.FundingAmount.String()
	}
	return domain.ParticipantRecord{
		Identity:         identityOf(details.VoterAddress),
		BusinessName:     details.BusinessName,
		OwnerName:        details.Name,
		Phone:            details.Phone,
		FundingAmountWei: amount,
		Purpose:          details.FundingPurpose,
		DocumentLink:     details.RegistrationDocLink,
	}, nil
}

func (s *session) Close() error {
	s.backend.Close()
	return nil
}

func (s *session) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := campaignABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := s.contract
	raw, err := s.backend.CallContract(ctx, geth.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := campaignABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

func callBool(ctx context.Context, s *session, method string) (bool, error) {
	out, err := s.call(ctx, method)
	if err != nil {
		return false, err
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected type %T", method, out[0])
	}
	return v, nil
}

// identityOf renders addresses in checksummed form so that identities read
// from different calls compare equal.
func identityOf(a common.Address) domain.Identity {
	return domain.Identity(a.Hex())
}

// revertErrorCode is the JSON-RPC code geth uses for a reverted eth_call.
const revertErrorCode = 3

// isRevert reports whether the node rejected the call because the contract
// reverted. Geth tags reverts with code 3; other nodes attach the revert data
// to a generic server error.
func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	var dataErr rpc.DataError
	return errors.As(err, &dataErr) && dataErr.ErrorData() != nil
}
