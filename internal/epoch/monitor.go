package epoch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gxplatform/powminer/internal/contract"
	"github.com/gxplatform/powminer/internal/logging"
	"github.com/pkg/errors"
	set "gopkg.in/fatih/set.v0"
)

// Querier is the subset of the Chain Client facade the monitor needs.
type Querier interface {
	CurrentEpoch(ctx context.Context) (contract.CurrentEpochResponse, error)
	LatestBlockHeight(ctx context.Context) (uint64, error)
}

// Transition is emitted whenever the observed epoch number or phase
// changes (spec §4.3).
type Transition struct {
	Descriptor          Descriptor
	CurrentBlockHeight   uint64
}

// Monitor periodically queries the mining contract for the current epoch
// (default every 2s, spec §4.3) and emits Transition events on change.
type Monitor struct {
	querier  Querier
	interval time.Duration
	log      *logging.Logger

	mu   sync.Mutex
	last *Descriptor

	// seen de-duplicates transition announcements for an (epoch,phase)
	// pair that is polled again before it actually changes
	// (SPEC_FULL §B.5, gopkg.in/fatih/set.v0).
	seen *set.Set
}

// NewMonitor constructs a Monitor polling querier every interval.
func NewMonitor(querier Querier, interval time.Duration) *Monitor {
	return &Monitor{
		querier:  querier,
		interval: interval,
		log:      logging.New("epoch-monitor"),
		seen:     set.New(set.ThreadSafe),
	}
}

// Run polls until ctx is cancelled, sending a Transition on events
// whenever the epoch/phase changes.
func (m *Monitor) Run(ctx context.Context, events chan<- Transition) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx, events)
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context, events chan<- Transition) {
	resp, err := m.querier.CurrentEpoch(ctx)
	if err != nil {
		m.log.Warnw("epoch query failed", "err", err)
		return
	}
	height, err := m.querier.LatestBlockHeight(ctx)
	if err != nil {
		m.log.Warnw("block height query failed", "err", err)
		return
	}

	desc, err := decodeDescriptor(resp)
	if err != nil {
		m.log.Warnw("malformed epoch response", "err", err)
		return
	}

	m.mu.Lock()
	supersedes := Supersedes(m.last, desc)
	if supersedes {
		m.last = &desc
	}
	m.mu.Unlock()

	if !supersedes {
		return
	}

	key := dedupeKey(desc)
	if m.seen.Has(key) {
		return
	}
	m.seen.Add(key)

	select {
	case events <- Transition{Descriptor: desc, CurrentBlockHeight: height}:
	case <-ctx.Done():
	}
}

func dedupeKey(d Descriptor) string {
	return d.Phase.String() + ":" + strconv.FormatUint(d.EpochNumber, 10)
}

func decodeDescriptor(resp contract.CurrentEpochResponse) (Descriptor, error) {
	var phase Phase
	var endsAt uint64
	switch {
	case resp.Phase.Commit != nil:
		phase, endsAt = PhaseCommit, resp.Phase.Commit.EndsAt
	case resp.Phase.Reveal != nil:
		phase, endsAt = PhaseReveal, resp.Phase.Reveal.EndsAt
	case resp.Phase.Settlement != nil:
		phase, endsAt = PhaseSettlement, resp.Phase.Settlement.EndsAt
	default:
		return Descriptor{}, errors.New("epoch: response has no recognized phase")
	}
	return Descriptor{
		EpochNumber:      resp.EpochNumber,
		Phase:            phase,
		PhaseEndsAtBlock: endsAt,
		Difficulty:       resp.Difficulty,
		StartBlock:       resp.StartBlock,
		TargetHash:       resp.TargetHash,
	}, nil
}

// DeadlineSeconds converts a phase's ends-at block height to a seconds
// estimate using the chain's known block time (spec §4.3).
func DeadlineSeconds(endsAtBlock, currentBlock uint64, blockTimeSeconds float64) float64 {
	if endsAtBlock <= currentBlock {
		return 0
	}
	return float64(endsAtBlock-currentBlock) * blockTimeSeconds
}
