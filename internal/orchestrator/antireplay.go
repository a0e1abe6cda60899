package orchestrator

import (
	"hash"
	"hash/fnv"

	"github.com/steakknife/bloomfilter"
)

// antiReplayCapacity is sized generously above any plausible number of
// distinct commitments a single long-running miner instance will form;
// a false positive means that commitment is never queued, and the
// Committing state waits until the chain phase advances past Commit.
const (
	antiReplayCapacity    = 1 << 16
	antiReplayFalsePositive = 1e-6
)

// antiReplayGuard is a soft optimization noted in the supplemented design:
// each commitment hash is added once its commit tx is queued, and a
// commitment already flagged is not queued again by this process
// (SPEC_FULL §B.10). The filter lives in memory only and starts empty
// on every process start, so marks do not survive a restart: a resumed
// Committing state re-queues its commit.
type antiReplayGuard struct {
	filter *bloomfilter.Filter
}

func newAntiReplayGuard() *antiReplayGuard {
	f, err := bloomfilter.NewOptimal(antiReplayCapacity, antiReplayFalsePositive)
	if err != nil {
		// NewOptimal only fails for invalid (non-positive) parameters;
		// the constants above are fixed and valid.
		panic(err)
	}
	return &antiReplayGuard{filter: f}
}

func commitmentHash(commitment [32]byte) hash.Hash64 {
	h := fnv.New64a()
	h.Write(commitment[:])
	return h
}

// markCommitted records commitment as committed.
func (g *antiReplayGuard) markCommitted(commitment [32]byte) {
	g.filter.Add(commitmentHash(commitment))
}

// alreadyCommitted reports whether commitment was previously marked in
// this process. A bloom filter gives no false negatives for marks it
// holds; a false positive (rate antiReplayFalsePositive) suppresses a
// commit that was never queued.
func (g *antiReplayGuard) alreadyCommitted(commitment [32]byte) bool {
	return g.filter.Contains(commitmentHash(commitment))
}
