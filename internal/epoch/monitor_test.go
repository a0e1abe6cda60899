package epoch

import (
	"context"
	"testing"
	"time"

	"github.com/gxplatform/powminer/internal/contract"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	responses []contract.CurrentEpochResponse
	height    uint64
	idx       int
}

func (f *fakeQuerier) CurrentEpoch(ctx context.Context) (contract.CurrentEpochResponse, error) {
	r := f.responses[f.idx]
	if f.idx < len(f.responses)-1 {
		f.idx++
	}
	return r, nil
}

func (f *fakeQuerier) LatestBlockHeight(ctx context.Context) (uint64, error) {
	return f.height, nil
}

func commitResp(epoch uint64) contract.CurrentEpochResponse {
	var r contract.CurrentEpochResponse
	r.EpochNumber = epoch
	r.Phase.Commit = &struct {
		EndsAt uint64 `json:"ends_at"`
	}{EndsAt: 100}
	r.Difficulty = 5
	return r
}

func TestMonitorEmitsOnlyOnChange(t *testing.T) {
	q := &fakeQuerier{responses: []contract.CurrentEpochResponse{commitResp(1), commitResp(1), commitResp(2)}, height: 10}
	m := NewMonitor(q, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Transition, 10)

	m.pollOnce(ctx, events)
	m.pollOnce(ctx, events) // same epoch/phase: must not emit again
	m.pollOnce(ctx, events) // epoch changed: emits

	close(events)
	var got []Transition
	for e := range events {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	require.Equal(t, uint64(1), got[0].Descriptor.EpochNumber)
	require.Equal(t, uint64(2), got[1].Descriptor.EpochNumber)
}

func TestDeadlineSeconds(t *testing.T) {
	require.Equal(t, float64(20), DeadlineSeconds(110, 100, 2))
	require.Equal(t, float64(0), DeadlineSeconds(90, 100, 2))
}
