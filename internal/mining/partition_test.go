package mining

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionDeterministic(t *testing.T) {
	p1 := ComputePartition("inj1testaddress123456789", 1287)
	p2 := ComputePartition("inj1testaddress123456789", 1287)
	require.Equal(t, p1, p2)

	span := p1.End - p1.Start
	require.InDelta(t, float64(slotSize), float64(span), 1)
}

func TestPartitionDiffersAcrossEpochs(t *testing.T) {
	p1 := ComputePartition("inj1testaddress123456789", 1287)
	p2 := ComputePartition("inj1testaddress123456789", 1288)
	require.NotEqual(t, p1, p2)
}

func TestPartitionDiffersAcrossAddresses(t *testing.T) {
	p1 := ComputePartition("inj1addr-one", 1)
	p2 := ComputePartition("inj1addr-two", 1)
	require.NotEqual(t, p1, p2)
}

func TestSplitCoversWholePartitionAcrossWrap(t *testing.T) {
	p := NoncePartition{Start: ^uint64(0) - 99, End: 50} // wraps past u64 max
	subs := p.Split(4)
	require.Len(t, subs, 4)
	require.Equal(t, p.Start, subs[0].Start)

	var total uint64
	for _, s := range subs {
		total += s.End - s.Start
	}
	require.Equal(t, p.End-p.Start, total)
}

func TestContainsHonorsWraparound(t *testing.T) {
	p := NoncePartition{Start: ^uint64(0) - 9, End: 5}
	require.True(t, p.Contains(^uint64(0)-1))
	require.True(t, p.Contains(1))
	require.False(t, p.Contains(100))
}
