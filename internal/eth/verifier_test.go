package eth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/aeralogin/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	wallet common.Address
	result [4]byte
	err    error
	calls  int
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if call.To == nil || *call.To != f.wallet {
		return nil, errors.New("execution reverted")
	}
	return erc1271.Methods["isValidSignature"].Outputs.Pack(f.result)
}

func signEOA(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func TestVerifyEOA(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	message := "example.com wants you to sign in with your Ethereum account:\n" + address + "\n\nNonce: abc123"
	sig := signEOA(t, key, message)

	v := NewVerifier(nil, time.Second)

	res, err := v.Verify(context.Background(), address, message, sig)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, MethodEOA, res.Method)

	// Address comparison is case-insensitive
	res, err = v.Verify(context.Background(), strings.ToLower(address), message, sig)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	// V as 0/1
	raw, _ := hexutil.Decode(sig)
	raw[crypto.RecoveryIDOffset] -= 27
	res, err = v.Verify(context.Background(), address, message, hexutil.Encode(raw))
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestVerifyEOAWrongSigner(t *testing.T) {
	key, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	message := "Nonce: abc123"

	v := NewVerifier(nil, time.Second)
	_, err := v.Verify(context.Background(), crypto.PubkeyToAddress(other.PublicKey).Hex(), message, signEOA(t, key, message))
	assert.ErrorIs(t, err, core.ErrSignatureInvalid)

	// Same signature over a different message
	_, err = v.Verify(context.Background(), crypto.PubkeyToAddress(key.PublicKey).Hex(), "Nonce: other", signEOA(t, key, message))
	assert.ErrorIs(t, err, core.ErrSignatureInvalid)
}

func TestVerifyMalformedInput(t *testing.T) {
	v := NewVerifier(nil, time.Second)
	address := "0x00000000000000000000000000000000000000aa"

	for _, sig := range []string{"", "0x", "not-hex", "0x1234", "0xzz" + strings.Repeat("00", 64)} {
		_, err := v.Verify(context.Background(), address, "msg", sig)
		assert.ErrorIs(t, err, core.ErrSignatureInvalid, sig)
	}

	_, err := v.Verify(context.Background(), "0x123", "msg", "0x"+strings.Repeat("00", 65))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestVerifyContractWallet(t *testing.T) {
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sig := hexutil.Encode(make([]byte, 390))
	message := "Nonce: abc123"

	caller := &fakeCaller{wallet: wallet, result: ERC1271MagicValue}
	v := NewVerifier(caller, time.Second)

	res, err := v.Verify(context.Background(), wallet.Hex(), message, sig)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, MethodContractWallet, res.Method)
	assert.Equal(t, 1, caller.calls)
}

func TestVerifyContractWalletFailsClosed(t *testing.T) {
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sig := hexutil.Encode(make([]byte, 390))

	tests := []struct {
		name   string
		caller *fakeCaller
	}{
		{name: "wrong magic value", caller: &fakeCaller{wallet: wallet, result: [4]byte{0xff, 0xff, 0xff, 0xff}}},
		{name: "rpc error", caller: &fakeCaller{wallet: wallet, err: context.DeadlineExceeded}},
		{name: "not a contract", caller: &fakeCaller{wallet: common.Address{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(tt.caller, time.Second)
			res, err := v.Verify(context.Background(), wallet.Hex(), "msg", sig)
			assert.ErrorIs(t, err, core.ErrSignatureInvalid)
			assert.False(t, res.Valid)
		})
	}
}

func TestVerifyLongSignatureWithoutCaller(t *testing.T) {
	v := NewVerifier(nil, time.Second)
	_, err := v.Verify(context.Background(), "0x1111111111111111111111111111111111111111", "msg", hexutil.Encode(make([]byte, 390)))
	assert.ErrorIs(t, err, core.ErrSignatureInvalid)
}
