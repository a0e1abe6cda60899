package txbuilder

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// SignModeLegacyAminoJSON is cosmos-sdk's SIGN_MODE_LEGACY_AMINO_JSON enum
// value, required for EIP-712 signed transactions on this chain (spec §4.5).
const SignModeLegacyAminoJSON = 127

// Coin mirrors cosmos.base.v1beta1.Coin.
type Coin struct {
	Denom  string
	Amount string
}

func (c Coin) Marshal() []byte {
	var out []byte
	out = appendString(out, 1, c.Denom)
	out = appendString(out, 2, c.Amount)
	return out
}

// Any mirrors google.protobuf.Any.
type Any struct {
	TypeURL string
	Value   []byte
}

func (a Any) Marshal() []byte {
	var out []byte
	out = appendString(out, 1, a.TypeURL)
	out = appendBytesField(out, 2, a.Value)
	return out
}

// MsgExecuteContractCompat mirrors injective.wasmx.v1.MsgExecuteContractCompat.
// Its msg and funds fields are strings, not the cosmwasm-standard
// bytes/Coin[] (spec §4.5, §6, GLOSSARY).
type MsgExecuteContractCompat struct {
	Sender   string
	Contract string
	Msg      string
	Funds    string
}

const TypeURLMsgExecuteContractCompat = "/injective.wasmx.v1.MsgExecuteContractCompat"

func (m MsgExecuteContractCompat) Marshal() []byte {
	var out []byte
	out = appendString(out, 1, m.Sender)
	out = appendString(out, 2, m.Contract)
	out = appendString(out, 3, m.Msg)
	out = appendString(out, 4, m.Funds)
	return out
}

func (m MsgExecuteContractCompat) AsAny() Any {
	return Any{TypeURL: TypeURLMsgExecuteContractCompat, Value: m.Marshal()}
}

// ExtensionOptionsWeb3Tx advertises the Ethereum chain id for EIP-712
// signed transactions (spec §4.5).
type ExtensionOptionsWeb3Tx struct {
	TypedDataChainID uint64
}

const TypeURLExtensionOptionsWeb3Tx = "/injective.types.v1beta1.ExtensionOptionsWeb3Tx"

func (e ExtensionOptionsWeb3Tx) Marshal() []byte {
	var out []byte
	out = appendVarint(out, 1, e.TypedDataChainID)
	return out
}

func (e ExtensionOptionsWeb3Tx) AsAny() Any {
	return Any{TypeURL: TypeURLExtensionOptionsWeb3Tx, Value: e.Marshal()}
}

// EthSecp256k1PubKey mirrors the chain's ethsecp256k1.PubKey wire type: a
// single compressed 33-byte secp256k1 public key.
type EthSecp256k1PubKey struct {
	Key []byte // 33 bytes, compressed
}

const TypeURLEthSecp256k1PubKey = "/injective.crypto.v1beta1.ethsecp256k1.PubKey"

func (p EthSecp256k1PubKey) Marshal() []byte {
	return appendBytesField(nil, 1, p.Key)
}

func (p EthSecp256k1PubKey) AsAny() Any {
	return Any{TypeURL: TypeURLEthSecp256k1PubKey, Value: p.Marshal()}
}

// ModeInfoSingle mirrors ModeInfo{ Single{ mode } }.
type ModeInfoSingle struct {
	Mode int32
}

func (m ModeInfoSingle) marshalSingle() []byte {
	return appendVarint(nil, 1, uint64(m.Mode))
}

func (m ModeInfoSingle) Marshal() []byte {
	return appendMessage(nil, 1, m.marshalSingle())
}

// SignerInfo mirrors cosmos.tx.v1beta1.SignerInfo.
type SignerInfo struct {
	PublicKey Any
	ModeInfo  ModeInfoSingle
	Sequence  uint64
}

func (s SignerInfo) Marshal() []byte {
	var out []byte
	out = appendMessage(out, 1, s.PublicKey.Marshal())
	out = appendMessage(out, 2, s.ModeInfo.Marshal())
	out = appendVarint(out, 3, s.Sequence)
	return out
}

// Fee mirrors cosmos.tx.v1beta1.Fee.
type Fee struct {
	Amount   []Coin
	GasLimit uint64
}

func (f Fee) Marshal() []byte {
	var out []byte
	for _, c := range f.Amount {
		out = appendMessage(out, 1, c.Marshal())
	}
	out = appendVarint(out, 2, f.GasLimit)
	return out
}

// AuthInfo mirrors cosmos.tx.v1beta1.AuthInfo.
type AuthInfo struct {
	SignerInfos []SignerInfo
	Fee         Fee
}

func (a AuthInfo) Marshal() []byte {
	var out []byte
	for _, si := range a.SignerInfos {
		out = appendMessage(out, 1, si.Marshal())
	}
	out = appendMessage(out, 2, a.Fee.Marshal())
	return out
}

// TxBody mirrors cosmos.tx.v1beta1.TxBody, field 1023 for extension_options
// per the cosmos-sdk wire layout.
type TxBody struct {
	Messages         []Any
	Memo             string
	TimeoutHeight    uint64
	ExtensionOptions []Any
}

const extensionOptionsFieldNumber protowire.Number = 1023

func (b TxBody) Marshal() []byte {
	var out []byte
	for _, m := range b.Messages {
		out = appendMessage(out, 1, m.Marshal())
	}
	out = appendString(out, 2, b.Memo)
	out = appendVarint(out, 3, b.TimeoutHeight)
	for _, ext := range b.ExtensionOptions {
		out = appendMessage(out, extensionOptionsFieldNumber, ext.Marshal())
	}
	return out
}

// TxRaw mirrors cosmos.tx.v1beta1.TxRaw, the final signed wire format.
type TxRaw struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	Signatures    [][]byte
}

func (t TxRaw) Marshal() []byte {
	var out []byte
	out = appendBytesField(out, 1, t.BodyBytes)
	out = appendBytesField(out, 2, t.AuthInfoBytes)
	for _, sig := range t.Signatures {
		out = appendBytesField(out, 3, sig)
	}
	return out
}

// UnmarshalTxRaw decodes a TxRaw from wire bytes, used for the
// decode(encode(tx)) == tx round-trip law (spec §8).
func UnmarshalTxRaw(data []byte) (TxRaw, error) {
	var out TxRaw
	for len(data) > 0 {
		num, typ, value, rest, ok := consumeField(data)
		if !ok {
			return TxRaw{}, errors.New("txbuilder: malformed TxRaw")
		}
		data = rest
		if typ != protowire.BytesType {
			continue
		}
		switch num {
		case 1:
			out.BodyBytes = append([]byte{}, value...)
		case 2:
			out.AuthInfoBytes = append([]byte{}, value...)
		case 3:
			out.Signatures = append(out.Signatures, append([]byte{}, value...))
		}
	}
	return out, nil
}
