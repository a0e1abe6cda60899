package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gxplatform/powminer/internal/epoch"
	"github.com/gxplatform/powminer/internal/mining"
	"github.com/gxplatform/powminer/internal/statestore"
	"github.com/gxplatform/powminer/internal/txmanager"
	"github.com/stretchr/testify/require"
)

var testCtx = context.Background()

// fakeHeights stands in for the chain client's live block-height query.
// Tests mutate height directly to simulate the chain tip advancing
// between ticks, independent of the cached epoch.Descriptor.
type fakeHeights struct {
	height uint64
}

func (f *fakeHeights) LatestBlockHeight(ctx context.Context) (uint64, error) {
	return f.height, nil
}

type fakeEngine struct {
	started   bool
	stopped   bool
	solutions chan mining.Solution
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{solutions: make(chan mining.Solution, 1)}
}

func (f *fakeEngine) Start(challenge [32]byte, difficulty uint8, partition mining.NoncePartition, workers int) {
	f.started = true
	f.stopped = false
}
func (f *fakeEngine) Stop()                      { f.stopped = true }
func (f *fakeEngine) GetHashrate() float64       { return 0 }
func (f *fakeEngine) Running() bool              { return f.started && !f.stopped }
func (f *fakeEngine) TryRecvSolution() (mining.Solution, bool) {
	select {
	case s := <-f.solutions:
		return s, true
	default:
		return mining.Solution{}, false
	}
}

type fakeTxQueue struct {
	nextID   uint64
	statuses map[uint64]txmanager.Status
	calls    []string
}

func newFakeTxQueue() *fakeTxQueue {
	return &fakeTxQueue{statuses: map[uint64]txmanager.Status{}}
}

func (q *fakeTxQueue) queue(kind string) uint64 {
	q.nextID++
	q.statuses[q.nextID] = txmanager.Status{State: txmanager.StatusSuccess}
	q.calls = append(q.calls, kind)
	return q.nextID
}

func (q *fakeTxQueue) QueueCommit(epoch uint64, commitment [32]byte) (uint64, error) { return q.queue("commit"), nil }
func (q *fakeTxQueue) QueueReveal(epoch uint64, nonce [8]byte, digest [16]byte, salt [32]byte) (uint64, error) {
	return q.queue("reveal"), nil
}
func (q *fakeTxQueue) QueueClaim(epoch uint64) (uint64, error)         { return q.queue("claim"), nil }
func (q *fakeTxQueue) QueueFinalizeEpoch(epoch uint64) (uint64, error) { return q.queue("finalize"), nil }
func (q *fakeTxQueue) QueueAdvanceEpoch() (uint64, error)              { return q.queue("advance"), nil }
func (q *fakeTxQueue) GetStatus(id uint64) (txmanager.Status, bool) {
	s, ok := q.statuses[id]
	return s, ok
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeEngine, *fakeTxQueue, *fakeHeights) {
	dir := t.TempDir()
	store := statestore.New[PersistedState](filepath.Join(dir, "state.json"))
	engine := newFakeEngine()
	txq := newFakeTxQueue()
	heights := &fakeHeights{}
	o := New("inj1testaddress123456789", 2, engine, txq, heights, store, nil, nil, nil, nil)
	return o, engine, txq, heights
}

// Scenario E (spec §8): persisted WaitingForRevealWindow resumes directly
// into Revealing without recomputing the solution.
func TestScenarioE_ResumeIntoReveal(t *testing.T) {
	o, _, txq, _ := newTestOrchestrator(t)
	rec := &CommitmentRecord{Epoch: 100, Nonce: [8]byte{1}, Digest: [16]byte{2}, Salt: [32]byte{3}}
	o.state = PersistedState{Epoch: 100, Phase: MiningPhase{Kind: PhaseWaitingForRevealWindow, Record: rec}}

	o.onTransition(epoch.Transition{Descriptor: epoch.Descriptor{EpochNumber: 100, Phase: epoch.PhaseReveal}})

	require.Equal(t, PhaseRevealing, o.state.Phase.Kind)
	require.Same(t, rec, o.state.Phase.Record)

	o.onTick(testCtx)
	require.Contains(t, txq.calls, "reveal")
}

// Scenario F (spec §8): persisted Committing state more than five epochs
// stale is discarded in favor of Idle.
func TestScenarioF_StaleStateDiscarded(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	rec := &CommitmentRecord{Epoch: 100}
	require.NoError(t, o.store.Save(PersistedState{Epoch: 100, Phase: MiningPhase{Kind: PhaseCommitting, Record: rec}}))

	require.NoError(t, o.Load(110))

	require.Equal(t, PhaseIdle, o.state.Phase.Kind)
	require.Equal(t, uint64(110), o.state.Epoch)
}

func TestLoadFreshStartsIdle(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	require.NoError(t, o.Load(5))
	require.Equal(t, PhaseIdle, o.state.Phase.Kind)
	require.Equal(t, uint64(5), o.state.Epoch)
}

func TestIdleToFindingSolutionOnCommitPhase(t *testing.T) {
	o, engine, _, _ := newTestOrchestrator(t)
	require.NoError(t, o.Load(1))

	o.onTransition(epoch.Transition{Descriptor: epoch.Descriptor{EpochNumber: 1, Phase: epoch.PhaseCommit, TargetHash: [32]byte{9}}})

	require.True(t, engine.started)
	require.Equal(t, PhaseFindingSolution, o.state.Phase.Kind)
}

func TestFindingSolutionToCommittingOnSolutionFound(t *testing.T) {
	o, engine, txq, _ := newTestOrchestrator(t)
	require.NoError(t, o.Load(1))
	o.onTransition(epoch.Transition{Descriptor: epoch.Descriptor{EpochNumber: 1, Phase: epoch.PhaseCommit}})

	engine.solutions <- mining.Solution{Nonce: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, Digest: [16]byte{10}}
	o.lastDescriptor = epoch.Descriptor{EpochNumber: 1, Phase: epoch.PhaseCommit}
	o.haveDescriptor = true
	o.onTick(testCtx)

	require.Equal(t, PhaseCommitting, o.state.Phase.Kind)
	require.NotNil(t, o.state.Phase.Record)
	require.Contains(t, txq.calls, "commit")
	require.True(t, engine.stopped)
}

func TestCommittingAbandonedIfPhaseAdvancesBeforeSuccess(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	rec := &CommitmentRecord{Epoch: 1}
	o.state = PersistedState{Epoch: 1, Phase: MiningPhase{Kind: PhaseCommitting, Record: rec}}

	o.onTransition(epoch.Transition{Descriptor: epoch.Descriptor{EpochNumber: 1, Phase: epoch.PhaseReveal}})

	require.Equal(t, PhaseIdle, o.state.Phase.Kind)
}

func TestMissedRevealWindowReturnsToIdleOrRestartsMining(t *testing.T) {
	o, engine, _, _ := newTestOrchestrator(t)
	rec := &CommitmentRecord{Epoch: 1}
	o.state = PersistedState{Epoch: 1, Phase: MiningPhase{Kind: PhaseWaitingForRevealWindow, Record: rec}}

	o.onTransition(epoch.Transition{Descriptor: epoch.Descriptor{EpochNumber: 2, Phase: epoch.PhaseCommit}})

	require.Equal(t, PhaseFindingSolution, o.state.Phase.Kind)
	require.True(t, engine.started)
}

// Per spec.md's transition table, the missed-window branch restarts
// FindingSolution unconditionally on epoch advance, even when the new
// epoch's sub-phase is not Commit (e.g. the chain is already mid-Reveal
// for the new epoch by the time this miner notices).
func TestMissedRevealWindowRestartsMiningEvenOutsideCommitPhase(t *testing.T) {
	o, engine, _, _ := newTestOrchestrator(t)
	rec := &CommitmentRecord{Epoch: 1}
	o.state = PersistedState{Epoch: 1, Phase: MiningPhase{Kind: PhaseWaitingForRevealWindow, Record: rec}}

	o.onTransition(epoch.Transition{Descriptor: epoch.Descriptor{EpochNumber: 2, Phase: epoch.PhaseReveal}})

	require.Equal(t, PhaseFindingSolution, o.state.Phase.Kind)
	require.True(t, engine.started)
	require.Equal(t, uint64(2), o.state.Epoch)
}

func TestRevealingToClaimingOnTxSuccess(t *testing.T) {
	o, _, txq, _ := newTestOrchestrator(t)
	rec := &CommitmentRecord{Epoch: 1}
	o.state = PersistedState{Epoch: 1, Phase: MiningPhase{Kind: PhaseRevealing, Record: rec}}
	o.lastDescriptor = epoch.Descriptor{EpochNumber: 1, Phase: epoch.PhaseReveal}
	o.haveDescriptor = true

	o.onTick(testCtx) // queues reveal
	require.Contains(t, txq.calls, "reveal")

	o.onTick(testCtx) // observes success, transitions
	require.Equal(t, PhaseClaiming, o.state.Phase.Kind)
	require.Equal(t, uint64(1), o.state.Phase.ClaimEpoch)
}

// The settlement-complete gate must come from a live height poll, not the
// height cached at phase entry: the descriptor here never changes (no
// Transition fires, since epoch/phase stay the same), but the chain tip
// keeps advancing underneath it every tick, exactly as it would in a real
// deployment while the monitor stays quiet mid-phase.
func TestClaimingToIdleAfterSettlementAndClaimSuccess(t *testing.T) {
	o, _, txq, heights := newTestOrchestrator(t)
	o.state = PersistedState{Epoch: 1, Phase: MiningPhase{Kind: PhaseClaiming, ClaimEpoch: 1}}
	o.lastDescriptor = epoch.Descriptor{EpochNumber: 1, Phase: epoch.PhaseSettlement, PhaseEndsAtBlock: 100}
	o.haveDescriptor = true

	heights.height = 98
	o.onTick(testCtx)
	require.Empty(t, txq.calls, "must not fire before the settlement block is actually reached")

	heights.height = 99
	o.onTick(testCtx)
	require.Empty(t, txq.calls)

	heights.height = 100
	o.onTick(testCtx)
	require.Contains(t, txq.calls, "finalize")
	require.Contains(t, txq.calls, "claim")

	o.onTick(testCtx)
	require.Equal(t, PhaseIdle, o.state.Phase.Kind)
}

func TestIdleQueuesAdvanceEpochAfterSettlementGrace(t *testing.T) {
	o, _, txq, heights := newTestOrchestrator(t)
	require.NoError(t, o.Load(1))
	o.lastDescriptor = epoch.Descriptor{EpochNumber: 1, Phase: epoch.PhaseSettlement, PhaseEndsAtBlock: 50}
	o.haveDescriptor = true

	heights.height = 49
	o.onTick(testCtx)
	require.Empty(t, txq.calls, "must not advance before the grace block is reached")

	heights.height = 50
	o.onTick(testCtx)
	require.Contains(t, txq.calls, "advance")
}

func TestComputeCommitmentMatchesScenarioB(t *testing.T) {
	nonce := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	var digest [16]byte
	for i := range digest {
		digest[i] = 10
	}
	var salt [32]byte
	for i := range salt {
		salt[i] = 20
	}
	c1 := computeCommitment(nonce, digest, salt)
	require.Len(t, c1, 32)

	swapped := [8]byte{8, 7, 6, 5, 4, 3, 2, 1}
	c2 := computeCommitment(swapped, digest, salt)
	require.NotEqual(t, c1, c2)
}
