package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
)

// Ledger is the on-chain source of truth for identity NFTs and scores
type Ledger interface {
	HasIdentityNFT(ctx context.Context, address string) (bool, error)
	Score(ctx context.Context, address string) (int64, error)
	SetScore(ctx context.Context, address string, score int64) error
}

// ContractCaller performs read-only contract calls (eth_call)
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}
