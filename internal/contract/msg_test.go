package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecuteMsgCommitSolutionJSONShape(t *testing.T) {
	msg := ExecuteMsg{CommitSolution: &CommitSolution{}}
	for i := range msg.CommitSolution.Commitment {
		msg.CommitSolution.Commitment[i] = byte(i)
	}
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	require.Contains(t, string(b), `"commit_solution"`)
	require.Contains(t, string(b), "[0,1,2,3")
	require.NotContains(t, string(b), "base64")
}

func TestExecuteMsgRevealFieldOrderAndArrays(t *testing.T) {
	msg := ExecuteMsg{RevealSolution: &RevealSolution{}}
	for i := range msg.RevealSolution.Nonce {
		msg.RevealSolution.Nonce[i] = byte(i + 1)
	}
	for i := range msg.RevealSolution.Digest {
		msg.RevealSolution.Digest[i] = 10
	}
	for i := range msg.RevealSolution.Salt {
		msg.RevealSolution.Salt[i] = 20
	}
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	s := string(b)
	require.Less(t, indexOf(s, "nonce"), indexOf(s, "digest"))
	require.Less(t, indexOf(s, "digest"), indexOf(s, "salt"))
	require.Contains(t, s, `"nonce":[1,2,3,4,5,6,7,8]`)
}

func TestExecuteMsgRoundTripAllVariants(t *testing.T) {
	variants := []ExecuteMsg{
		{CommitSolution: &CommitSolution{}},
		{RevealSolution: &RevealSolution{}},
		{ClaimReward: &ClaimReward{EpochNumber: 42}},
		{FinalizeEpoch: &FinalizeEpoch{EpochNumber: 7}},
		{AdvanceEpoch: &AdvanceEpoch{}},
	}
	for _, v := range variants {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		var decoded ExecuteMsg
		require.NoError(t, json.Unmarshal(b, &decoded))
		b2, err := json.Marshal(decoded)
		require.NoError(t, err)
		require.JSONEq(t, string(b), string(b2))
	}
}

func TestAdvanceEpochExactShape(t *testing.T) {
	b, err := json.Marshal(ExecuteMsg{AdvanceEpoch: &AdvanceEpoch{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"advance_epoch":{}}`, string(b))
}

func TestCurrentEpochResponseDecodesTargetHash(t *testing.T) {
	raw := `{"epoch_number":5,"phase":{"commit":{"ends_at":100}},"difficulty":10,"start_block":1,"target_hash":[` + repeat32("7") + `]}`
	var resp CurrentEpochResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	require.Equal(t, uint64(5), resp.EpochNumber)
	require.NotNil(t, resp.Phase.Commit)
	for _, b := range resp.TargetHash {
		require.Equal(t, byte(7), b)
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func repeat32(v string) string {
	out := v
	for i := 1; i < 32; i++ {
		out += "," + v
	}
	return out
}
