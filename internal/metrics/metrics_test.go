package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryRegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)
	r.QueueDepth.Set(3)
	r.Hashrate.Set(1234.5)
	r.CurrentEpoch.Set(7)
	r.CurrentPhase.WithLabelValues("commit").Set(1)
	r.RetryCount.Inc()
	r.TxSuccesses.WithLabelValues("commit").Inc()
	r.TxFailures.WithLabelValues("reveal").Inc()

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)
}
