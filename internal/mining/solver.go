package mining

// Solution is a candidate nonce whose digest met or exceeded the required
// difficulty (spec §3 "Solution").
type Solution struct {
	Nonce      [8]byte
	Digest     [16]byte
	Difficulty uint8
}

// Solver is the PoW inner function, treated as a black box per spec §1:
// "the PoW inner function itself ... is a black box". Implementations are
// supplied by the caller; this package only drives the search.
//
// scratch is the worker's preallocated, reused buffer — the function must
// not retain a reference to it beyond the call, since the engine reuses
// it for every attempt in the hot loop (spec §4.2).
type Solver interface {
	Solve(challenge [32]byte, nonce uint64, scratch []byte) (digest [16]byte, difficulty uint8, ok bool)
}

// ScratchSize is the per-worker scratch buffer size. The PoW function is
// described as memory-hungry (spec §4.2); this sizing is a placeholder
// the real equihash implementation would replace via a constructor option.
const ScratchSize = 1 << 20 // 1 MiB
