package mining

import (
	metrics "github.com/rcrowley/go-metrics"
)

// hashrateMeter wraps a go-metrics Meter for the hashrate estimate
// (spec §4.2 "get_hashrate"), grounded directly in go-ethereum's
// ethash.hashrate field (_examples/other_examples/.../consensus-ethash-sealer.go.go),
// which is exactly a rcrowley/go-metrics Meter fed via Mark(attempts).
type hashrateMeter struct {
	meter metrics.Meter
}

func newHashrateMeter() *hashrateMeter {
	return &hashrateMeter{meter: metrics.NewMeter()}
}

func (h *hashrateMeter) mark(n int64) { h.meter.Mark(n) }

// rate returns the Meter's one-minute exponentially weighted moving
// average (Snapshot().Rate1()). It is not a ~5s sliding window: go-metrics
// exposes no sub-minute window, so the estimate lags changes in the
// actual hash rate by up to about a minute.
func (h *hashrateMeter) rate() float64 {
	return h.meter.Snapshot().Rate1()
}
