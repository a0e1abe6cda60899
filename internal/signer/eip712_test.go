package signer

import (
	"testing"

	"github.com/gxplatform/powminer/internal/contract"
	"github.com/gxplatform/powminer/internal/keyring"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestBuildMsgValueNeverUsesBase64OrHexForArrays(t *testing.T) {
	msg := contract.ExecuteMsg{CommitSolution: &contract.CommitSolution{}}
	mv, err := BuildMsgValue(msg, "inj1sender", "inj1contract", nil)
	require.NoError(t, err)
	require.Equal(t, "0", mv.Funds)
	require.Contains(t, mv.Msg, "[0,0,0")
	require.NotContains(t, mv.Msg, "base64")
}

func TestFundsStringEmptyIsZero(t *testing.T) {
	require.Equal(t, "0", FundsString(nil))
	require.Equal(t, "100inj", FundsString([]Coin{{Denom: "inj", Amount: "100"}}))
	require.Equal(t, "100inj,5usdt", FundsString([]Coin{{Denom: "inj", Amount: "100"}, {Denom: "usdt", Amount: "5"}}))
}

func TestSignProducesRecoverableSignatureShape(t *testing.T) {
	kr, err := keyring.FromMnemonic(testMnemonic)
	require.NoError(t, err)

	tx := sampleTx(t)
	signed, err := Sign(kr.PrivateKey(), TestnetDomain(), tx)
	require.NoError(t, err)
	require.Len(t, signed.Signature, 65)
	require.Contains(t, []byte{27, 28}, signed.Signature[64])
}

func TestHashStructTxDeterministicAcrossCalls(t *testing.T) {
	tx := sampleTx(t)
	h1 := hashStructTx(tx)
	h2 := hashStructTx(tx)
	require.Equal(t, h1, h2)
}

func sampleTx(t *testing.T) Tx {
	t.Helper()
	msg := contract.ExecuteMsg{CommitSolution: &contract.CommitSolution{}}
	mv, err := BuildMsgValue(msg, "inj1sender", "inj1contract", nil)
	require.NoError(t, err)
	return Tx{
		AccountNumber: "1",
		ChainID:       "injective-888",
		Fee: Fee{
			Amount: []Coin{{Denom: "inj", Amount: "1000000000000000"}},
			Gas:    "250000",
		},
		Memo: "",
		Msgs: []Msg{{Type: MsgTypeExecuteContractCompat, Value: mv}},
		Sequence:      "0",
		TimeoutHeight: "0",
	}
}
