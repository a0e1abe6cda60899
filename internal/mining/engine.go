package mining

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"
)

// solutionBufferSize bounds the solution channel; workers block briefly
// if the engine falls behind draining it.
const solutionBufferSize = 16

// Engine drives a pool of workers over one nonce partition for one
// challenge/difficulty pair (spec §4.2). It is owned exclusively by the
// orchestrator (spec §3 "Ownership").
type Engine struct {
	solver Solver

	mu        sync.Mutex
	running   bool
	shouldStop int32
	hashCount int64
	wg        sync.WaitGroup
	solutions chan Solution
	meter     *hashrateMeter
}

// NewEngine constructs an idle engine for the given Solver implementation.
func NewEngine(solver Solver) *Engine {
	return &Engine{solver: solver, meter: newHashrateMeter()}
}

// DefaultWorkerCount returns the configured worker count, bounded by
// available memory divided by the per-worker scratch size (SPEC_FULL §B.4),
// falling back to runtime.NumCPU() when configured is 0.
func DefaultWorkerCount(configured int, memoryCapBytes uint64) int {
	if configured > 0 {
		return clampByMemory(configured, memoryCapBytes)
	}
	return clampByMemory(runtime.NumCPU(), memoryCapBytes)
}

func clampByMemory(n int, capBytes uint64) int {
	if n < 1 {
		n = 1
	}
	available := capBytes
	if available == 0 {
		available = memory.TotalMemory()
	}
	if available == 0 {
		return n
	}
	maxByMemory := int(available / ScratchSize)
	if maxByMemory < 1 {
		maxByMemory = 1
	}
	if n > maxByMemory {
		return maxByMemory
	}
	return n
}

// Start begins searching partition for challenge at required difficulty
// using workerCount workers (spec §4.2). It must only be called on an
// idle engine — callers transitioning epochs must Stop() the previous
// run first (spec §4.2 "Restart discipline").
func (e *Engine) Start(challenge [32]byte, requiredDifficulty uint8, partition NoncePartition, workerCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	atomic.StoreInt32(&e.shouldStop, 0)
	atomic.StoreInt64(&e.hashCount, 0)
	e.solutions = make(chan Solution, solutionBufferSize)

	subranges := partition.Split(workerCount)
	for i, sub := range subranges {
		w := &worker{
			id:         i,
			solver:     e.solver,
			challenge:  challenge,
			difficulty: requiredDifficulty,
			partition:  sub,
			shouldStop: &e.shouldStop,
			hashCount:  &e.hashCount,
			solutions:  e.solutions,
			meter:      e.meter,
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			w.run()
		}()
	}
	e.running = true
}

// Stop signals all workers to halt, joins them, and drains any solutions
// left in the channel so they never leak into the next epoch's run
// (spec §4.2 "Restart discipline").
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	atomic.StoreInt32(&e.shouldStop, 1)
	// Keep receiving while joining: a worker blocked sending on a full
	// channel only sees shouldStop once its send completes.
	joined := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(joined)
	}()
wait:
	for {
		select {
		case <-e.solutions:
		case <-joined:
			break wait
		}
	}
	e.running = false

drain:
	for {
		select {
		case <-e.solutions:
		default:
			break drain
		}
	}
	close(e.solutions)
	e.solutions = nil
}

// TryRecvSolution is a non-blocking receive of a found solution.
func (e *Engine) TryRecvSolution() (Solution, bool) {
	e.mu.Lock()
	ch := e.solutions
	e.mu.Unlock()
	if ch == nil {
		return Solution{}, false
	}
	select {
	case sol, ok := <-ch:
		return sol, ok
	default:
		return Solution{}, false
	}
}

// GetHashrate returns the one-minute moving-average hashrate estimate in
// hashes/sec (see hashrateMeter).
func (e *Engine) GetHashrate() float64 { return e.meter.rate() }

// Running reports whether the engine currently has workers searching.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
