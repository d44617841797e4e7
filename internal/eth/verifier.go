// Package eth verifies wallet signatures over sign-in messages.
//
// Only one canonical message form is ever checked. Wallets that sign a
// different rendering of the same challenge (arguments swapped, message
// hex-encoded before signing) must be handled by the client, which retries
// with the form the wallet actually produced.
package eth

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
)

// Method names the strategy that accepted a signature
type Method string

const (
	MethodEOA            Method = "eoa"
	MethodContractWallet Method = "contract_wallet"
)

// Result of a signature verification
type Result struct {
	Valid  bool
	Method Method
}

// ecdsaSignatureLength is the r || s || v encoding produced by key-based wallets
const ecdsaSignatureLength = 65

const erc1271ABI = `[{"inputs":[{"name":"hash","type":"bytes32"},{"name":"signature","type":"bytes"}],"name":"isValidSignature","outputs":[{"name":"magicValue","type":"bytes4"}],"stateMutability":"view","type":"function"}]`

// ERC1271MagicValue is returned by isValidSignature for a valid signature
var ERC1271MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

var erc1271, _ = abi.JSON(strings.NewReader(erc1271ABI))

// Strategy checks a signature over a personal-message hash. It reports false
// for signatures it does not handle.
type Strategy interface {
	Method() Method
	Verify(ctx context.Context, address common.Address, hash []byte, signature []byte) (bool, error)
}

// Verifier tries its strategies in order; the first success wins
type Verifier struct {
	strategies []Strategy
}

// NewVerifier builds a verifier. Contract wallets are only supported when
// caller is non-nil.
func NewVerifier(caller ports.ContractCaller, callTimeout time.Duration) *Verifier {
	var strategies []Strategy
	if caller != nil {
		strategies = append(strategies, &ContractWalletStrategy{caller: caller, timeout: callTimeout})
	}
	strategies = append(strategies, EOAStrategy{})
	return &Verifier{strategies: strategies}
}

// Verify checks that signature over message was produced by address
func (v *Verifier) Verify(ctx context.Context, address, message, signature string) (Result, error) {
	if !common.IsHexAddress(address) {
		return Result{}, core.ErrInvalidAddress
	}
	addr := common.HexToAddress(address)

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) < ecdsaSignatureLength {
		return Result{}, fmt.Errorf("malformed signature: %w", core.ErrSignatureInvalid)
	}

	hash := accounts.TextHash([]byte(message))
	for _, s := range v.strategies {
		ok, err := s.Verify(ctx, addr, hash, sig)
		if err != nil {
			log.Debug().Err(err).Str("method", string(s.Method())).Str("address", core.ShortAddress(address)).Msg("verification strategy failed")
			continue
		}
		if ok {
			return Result{Valid: true, Method: s.Method()}, nil
		}
	}

	return Result{}, core.ErrSignatureInvalid
}

// EOAStrategy recovers the signer of a 65 byte ECDSA signature
type EOAStrategy struct{}

func (EOAStrategy) Method() Method { return MethodEOA }

func (EOAStrategy) Verify(_ context.Context, address common.Address, hash []byte, signature []byte) (bool, error) {
	if len(signature) != ecdsaSignatureLength {
		return false, nil
	}

	sig := make([]byte, ecdsaSignatureLength)
	copy(sig, signature)
	// Wallets commonly produce V as 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub) == address, nil
}

// ContractWalletStrategy asks the wallet contract itself (ERC-1271)
type ContractWalletStrategy struct {
	caller  ports.ContractCaller
	timeout time.Duration
}

func (*ContractWalletStrategy) Method() Method { return MethodContractWallet }

func (s *ContractWalletStrategy) Verify(ctx context.Context, address common.Address, hash []byte, signature []byte) (bool, error) {
	if len(signature) <= ecdsaSignatureLength {
		return false, nil
	}

	var digest [32]byte
	copy(digest[:], hash)
	data, err := erc1271.Pack("isValidSignature", digest, signature)
	if err != nil {
		return false, fmt.Errorf("pack isValidSignature: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &address, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("call isValidSignature: %w", err)
	}

	res, err := erc1271.Unpack("isValidSignature", out)
	if err != nil || len(res) != 1 {
		return false, fmt.Errorf("unpack isValidSignature: %w", err)
	}
	magic, ok := res[0].([4]byte)
	if !ok {
		return false, nil
	}
	return bytes.Equal(magic[:], ERC1271MagicValue[:]), nil
}
