package eventbus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionJSONShape(t *testing.T) {
	tr := Transition{Kind: "mining_phase", EpochNumber: 5, Phase: "committing", MinerAddress: "inj1miner"}
	data, err := json.Marshal(tr)
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"mining_phase","epoch_number":5,"phase":"committing","miner_address":"inj1miner"}`, string(data))
}

func TestPublishDoesNotPanicWhenRedisUnavailable(t *testing.T) {
	bus := New("127.0.0.1:1")
	defer bus.Close()
	require.NotPanics(t, func() {
		bus.Publish(Transition{Kind: "epoch_phase", EpochNumber: 1, Phase: "commit"})
	})
}
