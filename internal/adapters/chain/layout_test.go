package chain

import (
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solpath/quote-engine/internal/domain"
)

func encodePoolAccount(t *testing.T, raw poolAccountData) []byte {
	t.Helper()
	data, err := bin.MarshalBorsh(&raw)
	require.NoError(t, err)
	return data
}

func TestDecodePoolAccount(t *testing.T) {
	addr := solana.NewWallet().PublicKey()
	raw := poolAccountData{
		TokenMintA:  solana.NewWallet().PublicKey(),
		TokenMintB:  solana.NewWallet().PublicKey(),
		TokenVaultA: solana.NewWallet().PublicKey(),
		TokenVaultB: solana.NewWallet().PublicKey(),
		ReserveA:    1_000_000,
		ReserveB:    2_000_000,
		FeeRateBps:  30,
		CurveKind:   curveKindStableSwap,
		AmpFactor:   100,
	}

	state, err := DecodePoolAccount(addr, encodePoolAccount(t, raw))
	require.NoError(t, err)

	assert.Equal(t, addr, state.Address)
	assert.Equal(t, raw.TokenMintA, state.TokenMintA)
	assert.Equal(t, raw.TokenMintB, state.TokenMintB)
	assert.Equal(t, uint64(1_000_000), state.ReserveA)
	assert.Equal(t, uint64(2_000_000), state.ReserveB)
	assert.Equal(t, uint16(30), state.FeeRateBps)
	assert.Equal(t, domain.CurveStableSwap, state.Curve)
	assert.Equal(t, uint64(100), state.AmpFactor)
}

func TestDecodePoolAccountRejectsBadInput(t *testing.T) {
	addr := solana.NewWallet().PublicKey()

	_, err := DecodePoolAccount(addr, []byte{0x01, 0x02})
	assert.Error(t, err)

	unknownCurve := poolAccountData{CurveKind: 7, ReserveA: 1, ReserveB: 1}
	_, err = DecodePoolAccount(addr, encodePoolAccount(t, unknownCurve))
	assert.Error(t, err)

	zeroAmpStable := poolAccountData{CurveKind: curveKindStableSwap, AmpFactor: 0}
	_, err = DecodePoolAccount(addr, encodePoolAccount(t, zeroAmpStable))
	assert.Error(t, err)
}
