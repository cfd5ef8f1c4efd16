package ethereum

import (
	"context"
	"math/big"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of a JSON-RPC node the campaign reader needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call geth.CallMsg, blockNumber *big.Int) ([]byte, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	Close()
}

// Dialer opens a Backend for an RPC endpoint.
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

// DialRPC connects to a node over HTTP, WebSocket or IPC.
func DialRPC(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return &rpcBackend{client: client}, nil
}

type rpcBackend struct {
	client *ethclient.Client
}

func (b *rpcBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return b.client.ChainID(ctx)
}

func (b *rpcBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return b.client.CodeAt(ctx, account, blockNumber)
}

func (b *rpcBackend) CallContract(ctx context.Context, call geth.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return b.client.CallContract(ctx, call, blockNumber)
}

// Accounts returns the node-managed accounts (eth_accounts), first one being
// the default sender.
func (b *rpcBackend) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := b.client.Client().CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (b *rpcBackend) Close() {
	b.client.Close()
}
