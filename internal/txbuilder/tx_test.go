package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTxRawRoundTrip(t *testing.T) {
	msg := MsgExecuteContractCompat{
		Sender:   "inj1sender",
		Contract: "inj1contract",
		Msg:      `{"commit_solution":{"commitment":[1,2,3]}}`,
		Funds:    "0",
	}
	body := BuildBody(msg, "", 0, 1439)
	authInfo := BuildAuthInfo([]byte{0x02, 0x03, 0x04}, 5, []Coin{{Denom: "inj", Amount: "250000000000000"}}, 250000)
	raw := Assemble(body, authInfo, []byte{0xAA, 0xBB})

	encoded := raw.Marshal()
	decoded, err := UnmarshalTxRaw(encoded)
	require.NoError(t, err)

	require.Equal(t, raw.BodyBytes, decoded.BodyBytes)
	require.Equal(t, raw.AuthInfoBytes, decoded.AuthInfoBytes)
	require.Equal(t, raw.Signatures, decoded.Signatures)

	reencoded := decoded.Marshal()
	require.Equal(t, encoded, reencoded)
}

func TestMsgExecuteContractCompatFieldsAreStrings(t *testing.T) {
	msg := MsgExecuteContractCompat{Sender: "s", Contract: "c", Msg: "m", Funds: "0"}
	b := msg.Marshal()
	require.NotEmpty(t, b)
	require.Equal(t, []byte{0x0a, 1, 's', 0x12, 1, 'c', 0x1a, 1, 'm', 0x22, 1, '0'}, b)
	any := msg.AsAny()
	require.Equal(t, TypeURLMsgExecuteContractCompat, any.TypeURL)
}
