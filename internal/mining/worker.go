package mining

import (
	"runtime"
	"sync/atomic"
)

const (
	hashCounterBatch  = 10
	yieldEveryAttempts = 10_000
)

// worker iterates its assigned subrange of the nonce partition, calling
// the Solver on every nonce until stopped (spec §4.2 hot loop).
type worker struct {
	id         int
	solver     Solver
	challenge  [32]byte
	difficulty uint8
	partition  NoncePartition
	shouldStop *int32
	hashCount  *int64
	solutions  chan<- Solution
	meter      *hashrateMeter
}

func (w *worker) run() {
	scratch, err := newScratchBuffer(ScratchSize)
	if err != nil {
		// Without a scratch buffer this worker cannot search; it exits
		// and lets its peers (and the engine's overall progress checks)
		// carry the partition. A real deployment would alert on this.
		return
	}
	defer scratch.close()

	length := w.partition.End - w.partition.Start
	attempts := int64(0)

	for i := uint64(0); i < length; i++ {
		if atomic.LoadInt32(w.shouldStop) != 0 {
			break
		}
		nonce := w.partition.Start + i // wraps naturally past the u64 boundary

		attempts++
		if attempts%hashCounterBatch == 0 {
			atomic.AddInt64(w.hashCount, hashCounterBatch)
			w.meter.mark(hashCounterBatch)
		}
		if attempts%yieldEveryAttempts == 0 {
			runtime.Gosched()
		}

		digest, difficulty, ok := w.solver.Solve(w.challenge, nonce, scratch.bytes())
		if !ok {
			continue
		}
		if difficulty >= w.difficulty {
			sol := Solution{Digest: digest, Difficulty: difficulty}
			putNonceLE(sol.Nonce[:], nonce)
			w.solutions <- sol
			// Keep searching — spec §4.1 lets the engine decide when to
			// stop, since a higher-difficulty solution may still help.
		}
	}
	if rem := attempts % hashCounterBatch; rem != 0 {
		atomic.AddInt64(w.hashCount, rem)
		w.meter.mark(rem)
	}
}

func putNonceLE(dst []byte, nonce uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(nonce >> (8 * i))
	}
}
