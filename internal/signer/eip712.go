package signer

import (
	"crypto/ecdsa"
	"encoding/json"

	"github.com/gxplatform/powminer/internal/contract"
	"github.com/gxplatform/powminer/internal/keyring"
	"github.com/pkg/errors"
)

// MsgTypeExecuteContractCompat is the amino-style type string used for
// every message this client sends (spec §4.5).
const MsgTypeExecuteContractCompat = "wasmx/MsgExecuteContractCompat"

// BuildMsgValue serializes execMsg to JSON (as a string, never base64/hex
// for its byte-array fields) and assembles the MsgValue the EIP-712 Msg
// wraps, per spec §4.5's canonicalization rules.
func BuildMsgValue(execMsg contract.ExecuteMsg, sender, contractAddr string, funds []Coin) (MsgValue, error) {
	raw, err := json.Marshal(execMsg)
	if err != nil {
		return MsgValue{}, errors.Wrap(err, "signer: marshal ExecuteMsg")
	}
	return MsgValue{
		Sender:   sender,
		Contract: contractAddr,
		Msg:      string(raw),
		Funds:    FundsString(funds),
	}, nil
}

// SignedTx is the result of signing a Tx: the final EIP-712 digest and
// the 65-byte recoverable signature over it.
type SignedTx struct {
	Digest    [32]byte
	Signature [65]byte
}

// Sign computes the EIP-712 final digest (spec §4.5: keccak256(0x19 0x01
// || domainSeparator || hashStruct(Tx, tx))) and signs it with priv.
func Sign(priv *ecdsa.PrivateKey, domain Domain, tx Tx) (SignedTx, error) {
	separator := domain.Separator()
	structHash := hashStructTx(tx)

	digest := keccak256([]byte{0x19, 0x01}, separator[:], structHash[:])

	sig, err := keyring.Sign(priv, digest)
	if err != nil {
		return SignedTx{}, errors.Wrap(err, "signer: sign digest")
	}
	return SignedTx{Digest: digest, Signature: sig}, nil
}
