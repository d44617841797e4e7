package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
)

const identityNFTABI = `[{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

const registryABI = `[
{"inputs":[{"name":"user","type":"address"}],"name":"getResonance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"user","type":"address"},{"name":"newAmount","type":"uint256"}],"name":"adminAdjust","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var ErrReadOnly = errors.New("ledger has no operator key")

// Backend is what an ethclient.Client provides
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// EthLedger reads the identity NFT and the score registry and writes scores
// through adminAdjust
type EthLedger struct {
	backend   Backend
	nft       *bind.BoundContract
	registry  *bind.BoundContract
	operator  *bind.TransactOpts
	timeout   time.Duration
	txTimeout time.Duration
}

// NewEthLedger binds the contracts. operator may be nil for a read-only ledger.
func NewEthLedger(backend Backend, nftAddress, registryAddress common.Address, operator *bind.TransactOpts, timeout time.Duration) (*EthLedger, error) {
	nftABI, err := abi.JSON(strings.NewReader(identityNFTABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nft abi: %w", err)
	}
	regABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry abi: %w", err)
	}

	return &EthLedger{
		backend:   backend,
		nft:       bind.NewBoundContract(nftAddress, nftABI, backend, backend, backend),
		registry:  bind.NewBoundContract(registryAddress, regABI, backend, backend, backend),
		operator:  operator,
		timeout:   timeout,
		txTimeout: 2 * time.Minute,
	}, nil
}

var _ ports.Ledger = (*EthLedger)(nil)

// HasIdentityNFT reports whether the address holds at least one identity NFT
func (l *EthLedger) HasIdentityNFT(ctx context.Context, address string) (bool, error) {
	balance, err := l.callUint(ctx, l.nft, "balanceOf", address)
	if err != nil {
		return false, err
	}
	return balance.Sign() > 0, nil
}

// Score returns the on-chain score
func (l *EthLedger) Score(ctx context.Context, address string) (int64, error) {
	score, err := l.callUint(ctx, l.registry, "getResonance", address)
	if err != nil {
		return 0, err
	}
	return score.Int64(), nil
}

// SetScore writes score through adminAdjust and waits for the receipt
func (l *EthLedger) SetScore(ctx context.Context, address string, score int64) error {
	if l.operator == nil {
		return ErrReadOnly
	}

	ctx, cancel := context.WithTimeout(ctx, l.txTimeout)
	defer cancel()

	opts := *l.operator
	opts.Context = ctx
	tx, err := l.registry.Transact(&opts, "adminAdjust", common.HexToAddress(address), big.NewInt(score))
	if err != nil {
		return fmt.Errorf("failed to send adminAdjust: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, l.backend, tx)
	if err != nil {
		return fmt.Errorf("failed waiting for adminAdjust %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("adminAdjust %s reverted", tx.Hash().Hex())
	}

	log.Info().
		Str("tx", tx.Hash().Hex()).
		Uint64("block", receipt.BlockNumber.Uint64()).
		Int64("score", score).
		Msg("Score written on-chain")
	return nil
}

func (l *EthLedger) callUint(ctx context.Context, contract *bind.BoundContract, method, address string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, common.HexToAddress(address)); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s result length %d", method, len(out))
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}
