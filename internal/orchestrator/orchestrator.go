package orchestrator

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/gxplatform/powminer/internal/debugapi"
	"github.com/gxplatform/powminer/internal/epoch"
	"github.com/gxplatform/powminer/internal/eventbus"
	"github.com/gxplatform/powminer/internal/logging"
	"github.com/gxplatform/powminer/internal/metrics"
	"github.com/gxplatform/powminer/internal/mining"
	"github.com/gxplatform/powminer/internal/statestore"
	"github.com/gxplatform/powminer/internal/txmanager"
	"golang.org/x/crypto/blake2b"
)

// Engine is the subset of *mining.Engine the orchestrator drives.
// Expressed as an interface so tests can substitute a fake search engine.
type Engine interface {
	Start(challenge [32]byte, requiredDifficulty uint8, partition mining.NoncePartition, workerCount int)
	Stop()
	TryRecvSolution() (mining.Solution, bool)
	GetHashrate() float64
	Running() bool
}

// TxQueue is the subset of *txmanager.Queue the orchestrator submits to.
type TxQueue interface {
	QueueCommit(epoch uint64, commitment [32]byte) (uint64, error)
	QueueReveal(epoch uint64, nonce [8]byte, digest [16]byte, salt [32]byte) (uint64, error)
	QueueClaim(epoch uint64) (uint64, error)
	QueueFinalizeEpoch(epoch uint64) (uint64, error)
	QueueAdvanceEpoch() (uint64, error)
	GetStatus(id uint64) (txmanager.Status, bool)
}

// BlockHeightQuerier is the narrow chain-tip lookup the orchestrator polls
// on every tick, independent of epoch.Monitor's phase/epoch-change dedup
// (Settlement's end-of-phase gates need a fresh height even while the
// descriptor itself hasn't changed). Satisfied by *chainclient.Client.
type BlockHeightQuerier interface {
	LatestBlockHeight(ctx context.Context) (uint64, error)
}

// Orchestrator is the sole mutator of PersistedState and the sole owner
// of the Mining Engine handle (spec §3 "Ownership", §4.1).
type Orchestrator struct {
	minerAddress string
	workerCount  int

	engine     Engine
	txQueue    TxQueue
	heights    BlockHeightQuerier // may be nil; falls back to the last observed height
	store      *statestore.Store[PersistedState]
	commitLog  *statestore.CommitmentLog // may be nil
	bus        *eventbus.Bus             // may be nil
	metricsReg *metrics.Registry         // may be nil
	debugSrv   *debugapi.Server          // may be nil
	log        *logging.Logger

	mu    sync.Mutex
	state PersistedState
	anti  *antiReplayGuard

	lastDescriptor  epoch.Descriptor
	lastBlockHeight uint64
	haveDescriptor  bool

	pendingTxID    uint64
	pendingTxKind  string
	hasPendingTx   bool
	finalizeQueued bool
}

// New constructs an Orchestrator. bus, metricsReg, and debugSrv are
// optional observability hooks (SPEC_FULL §B.8/§B.9) and may be nil.
func New(
	minerAddress string,
	workerCount int,
	engine Engine,
	txQueue TxQueue,
	heights BlockHeightQuerier,
	store *statestore.Store[PersistedState],
	commitLog *statestore.CommitmentLog,
	bus *eventbus.Bus,
	metricsReg *metrics.Registry,
	debugSrv *debugapi.Server,
) *Orchestrator {
	return &Orchestrator{
		minerAddress: minerAddress,
		workerCount:  workerCount,
		engine:       engine,
		txQueue:      txQueue,
		heights:      heights,
		store:        store,
		commitLog:    commitLog,
		bus:          bus,
		metricsReg:   metricsReg,
		debugSrv:     debugSrv,
		anti:         newAntiReplayGuard(),
		log:          logging.New("orchestrator"),
	}
}

// Load restores persisted state at startup, discarding it in favor of
// Idle if it is more than staleEpochThreshold epochs behind the current
// chain epoch (spec §4.1 edge-case policies).
func (o *Orchestrator) Load(currentChainEpoch uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	persisted, ok, err := o.store.Load()
	if err != nil {
		return err
	}
	if !ok {
		o.state = idleState(currentChainEpoch, nowUnix())
		return o.persistLocked()
	}
	if isStale(persisted.Epoch, currentChainEpoch) {
		o.log.Warnw("discarding stale persisted state", "persisted_epoch", persisted.Epoch, "current_epoch", currentChainEpoch)
		o.state = idleState(currentChainEpoch, nowUnix())
		return o.persistLocked()
	}
	o.state = persisted
	return nil
}

// CurrentPhase returns the in-memory mining phase for external reporting
// (debug surface, metrics).
func (o *Orchestrator) CurrentPhase() MiningPhase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Phase
}

// Run drains transition events and steady-state ticks until ctx is
// cancelled (spec §5 "suspension points": channel recv from the epoch
// monitor, channel recv from the engine, sleep between iterations).
func (o *Orchestrator) Run(ctx context.Context, transitions <-chan epoch.Transition, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}
			o.onTransition(t)
		case <-ticker.C:
			o.onTick(ctx)
		}
	}
}

func (o *Orchestrator) onTransition(t epoch.Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.lastDescriptor = t.Descriptor
	o.lastBlockHeight = t.CurrentBlockHeight
	o.haveDescriptor = true

	o.handlePhaseChangeLocked(t.Descriptor)
	o.publishTransitionLocked()
	o.reportDebugLocked()
}

// onTick drives the steady-state rows on a timer, independent of whether
// the epoch monitor has emitted a new Transition. Settlement-window gates
// (PhaseClaiming, PhaseIdle's AdvanceEpoch) key off the current block
// height, which must be polled fresh here: the monitor only emits a
// Transition on phase/epoch change (epoch.Supersedes), so the height
// cached from the last Transition stays frozen below phase_ends_at_block
// for as long as the chain remains in the same sub-phase.
func (o *Orchestrator) onTick(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.haveDescriptor {
		return
	}
	height := o.lastBlockHeight
	if o.heights != nil {
		h, err := o.heights.LatestBlockHeight(ctx)
		if err != nil {
			o.log.Warnw("failed to poll block height", "err", err)
		} else {
			height = h
			o.lastBlockHeight = h
		}
	}
	o.pollSteadyStateLocked(o.lastDescriptor, height)
	o.reportDebugLocked()
}

// handlePhaseChangeLocked applies the transition-table rows that fire
// only when the chain's epoch/phase actually changes (spec §4.1
// "Transitions").
func (o *Orchestrator) handlePhaseChangeLocked(desc epoch.Descriptor) {
	switch o.state.Phase.Kind {
	case PhaseIdle:
		if desc.Phase == epoch.PhaseCommit {
			o.startEngineLocked(desc)
		}

	case PhaseFindingSolution:
		if desc.EpochNumber != o.state.Epoch {
			o.engine.Stop()
			o.state.Epoch = desc.EpochNumber
			o.state.Phase = MiningPhase{Kind: PhaseIdle}
			o.persistLocked()
			if desc.Phase == epoch.PhaseCommit {
				o.startEngineLocked(desc)
			}
		}

	case PhaseCommitting:
		rec := o.state.Phase.Record
		if rec != nil && desc.EpochNumber == rec.Epoch && desc.Phase != epoch.PhaseCommit {
			o.log.Warnw("commit phase ended before success, abandoning", "epoch", rec.Epoch)
			o.clearPendingTx()
			o.state.Phase = MiningPhase{Kind: PhaseIdle}
			o.persistLocked()
		}

	case PhaseWaitingForRevealWindow:
		rec := o.state.Phase.Record
		if rec == nil {
			return
		}
		switch {
		case desc.EpochNumber == rec.Epoch && desc.Phase == epoch.PhaseReveal:
			o.state.Phase = MiningPhase{Kind: PhaseRevealing, Record: rec}
			o.persistLocked()
		case desc.EpochNumber > rec.Epoch:
			o.log.Warnw("missed reveal window", "committed_epoch", rec.Epoch, "current_epoch", desc.EpochNumber)
			o.startEngineLocked(desc)
		}

	case PhaseRevealing:
		rec := o.state.Phase.Record
		if rec != nil && desc.EpochNumber > rec.Epoch {
			o.state.Epoch = desc.EpochNumber
			o.state.Phase = MiningPhase{Kind: PhaseClaiming, ClaimEpoch: rec.Epoch}
			o.clearPendingTx()
			o.persistLocked()
		}

	case PhaseClaiming:
		// settlement completion is block-height driven; handled in
		// pollSteadyStateLocked regardless of phase change.
	}
}

// pollSteadyStateLocked applies the rows driven by engine/tx-manager
// progress rather than by a phase change (spec §4.1, §4.4).
func (o *Orchestrator) pollSteadyStateLocked(desc epoch.Descriptor, currentBlockHeight uint64) {
	switch o.state.Phase.Kind {
	case PhaseFindingSolution:
		sol, ok := o.engine.TryRecvSolution()
		if !ok {
			return
		}
		o.engine.Stop()

		var salt [32]byte
		if _, err := rand.Read(salt[:]); err != nil {
			o.log.Warnw("failed to generate salt", "err", err)
			return
		}
		commitment := computeCommitment(sol.Nonce, sol.Digest, salt)
		rec := CommitmentRecord{Epoch: o.state.Epoch, Nonce: sol.Nonce, Digest: sol.Digest, Salt: salt, Commitment: commitment}

		if o.commitLog != nil {
			if err := o.commitLog.Put(statestore.CommitmentRecord(rec)); err != nil {
				o.log.Warnw("failed to durably record commitment", "err", err)
			}
		}
		o.state.Phase = MiningPhase{Kind: PhaseCommitting, Record: &rec}
		o.persistLocked()

		if !o.anti.alreadyCommitted(commitment) {
			id, err := o.txQueue.QueueCommit(rec.Epoch, commitment)
			if err != nil {
				o.log.Warnw("failed to queue commit", "err", err)
				return
			}
			o.anti.markCommitted(commitment)
			o.trackTx(id, "commit")
		}

	case PhaseCommitting:
		rec := o.state.Phase.Record
		if rec == nil {
			return
		}
		if !o.hasPendingTx {
			if o.anti.alreadyCommitted(rec.Commitment) {
				return // already queued once by this process (e.g. a commit that then failed); not re-queued
			}
			id, err := o.txQueue.QueueCommit(rec.Epoch, rec.Commitment)
			if err != nil {
				return
			}
			o.anti.markCommitted(rec.Commitment)
			o.trackTx(id, "commit")
			return
		}
		status, ok := o.txQueue.GetStatus(o.pendingTxID)
		if !ok || status.State == txmanager.StatusPending || status.State == txmanager.StatusProcessing {
			return
		}
		o.clearPendingTx()
		if status.State == txmanager.StatusSuccess {
			o.state.Phase = MiningPhase{Kind: PhaseWaitingForRevealWindow, Record: rec}
			o.persistLocked()
		}
		// Failed commits stay in Committing. They are not re-queued, since
		// the anti-replay guard already holds the commitment; the state
		// stays put until the chain phase advances past Commit (handled in
		// handlePhaseChangeLocked, which then abandons).

	case PhaseRevealing:
		rec := o.state.Phase.Record
		if rec == nil {
			return
		}
		if !o.hasPendingTx {
			id, err := o.txQueue.QueueReveal(rec.Epoch, rec.Nonce, rec.Digest, rec.Salt)
			if err != nil {
				return
			}
			o.trackTx(id, "reveal")
			return
		}
		status, ok := o.txQueue.GetStatus(o.pendingTxID)
		if !ok || status.State == txmanager.StatusPending || status.State == txmanager.StatusProcessing {
			return
		}
		o.clearPendingTx()
		if o.commitLog != nil {
			_ = o.commitLog.Delete(rec.Epoch)
		}
		o.state.Phase = MiningPhase{Kind: PhaseClaiming, ClaimEpoch: rec.Epoch}
		o.persistLocked()

	case PhaseClaiming:
		if desc.Phase != epoch.PhaseSettlement || currentBlockHeight < desc.PhaseEndsAtBlock {
			return
		}
		if !o.finalizeQueued {
			if _, err := o.txQueue.QueueFinalizeEpoch(o.state.Phase.ClaimEpoch); err != nil {
				o.log.Warnw("failed to queue finalize_epoch", "err", err)
			}
			o.finalizeQueued = true
		}
		if !o.hasPendingTx {
			id, err := o.txQueue.QueueClaim(o.state.Phase.ClaimEpoch)
			if err != nil {
				return
			}
			o.trackTx(id, "claim")
			return
		}
		status, ok := o.txQueue.GetStatus(o.pendingTxID)
		if !ok || status.State == txmanager.StatusPending || status.State == txmanager.StatusProcessing {
			return
		}
		o.clearPendingTx()
		o.finalizeQueued = false
		o.state.Phase = MiningPhase{Kind: PhaseIdle}
		o.persistLocked()

	case PhaseIdle:
		if desc.Phase == epoch.PhaseSettlement && currentBlockHeight >= desc.PhaseEndsAtBlock {
			_, _ = o.txQueue.QueueAdvanceEpoch()
		}
	}
}

func (o *Orchestrator) startEngineLocked(desc epoch.Descriptor) {
	partition := mining.ComputePartition(o.minerAddress, desc.EpochNumber)
	o.engine.Start(desc.TargetHash, desc.Difficulty, partition, o.workerCount)
	o.state.Epoch = desc.EpochNumber
	o.state.Phase = MiningPhase{Kind: PhaseFindingSolution}
	o.persistLocked()
}

func (o *Orchestrator) trackTx(id uint64, kind string) {
	o.pendingTxID = id
	o.pendingTxKind = kind
	o.hasPendingTx = true
}

func (o *Orchestrator) clearPendingTx() {
	o.hasPendingTx = false
	o.pendingTxKind = ""
}

func (o *Orchestrator) persistLocked() error {
	o.state.LastSaved = nowUnix()
	return o.store.Save(o.state)
}

func (o *Orchestrator) publishTransitionLocked() {
	if o.bus == nil {
		return
	}
	o.bus.Publish(eventbus.Transition{
		Kind:         "mining_phase",
		EpochNumber:  o.state.Epoch,
		Phase:        o.state.Phase.Kind.String(),
		MinerAddress: o.minerAddress,
	})
}

func (o *Orchestrator) reportDebugLocked() {
	if o.debugSrv != nil {
		o.debugSrv.Update(debugapi.Snapshot{
			MiningPhase: o.state.Phase.Kind.String(),
			EpochNumber: o.state.Epoch,
			Hashrate:    o.engine.GetHashrate(),
		})
	}
	if o.metricsReg != nil {
		o.metricsReg.CurrentEpoch.Set(float64(o.state.Epoch))
		o.metricsReg.Hashrate.Set(o.engine.GetHashrate())
	}
}

// computeCommitment implements spec §3: commitment = truncate32(Blake2b-512(nonce||digest||salt)).
func computeCommitment(nonce [8]byte, digest [16]byte, salt [32]byte) [32]byte {
	var buf []byte
	buf = append(buf, nonce[:]...)
	buf = append(buf, digest[:]...)
	buf = append(buf, salt[:]...)
	sum := blake2b.Sum512(buf)
	var out [32]byte
	copy(out[:], sum[:32])
	return out
}

func nowUnix() int64 { return time.Now().Unix() }
