// Package mining implements the equihash-style PoW search engine: nonce
// partitioning, a worker pool, and the sliding hashrate estimate (spec §4.2).
package mining

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// NoncePartition is a half-open [Start, End) range of the u64 nonce
// space, wrapping at the u64 boundary (spec §4.2, §8 boundary behaviors).
type NoncePartition struct {
	Start uint64
	End   uint64
}

// slotSize is 2^64 / 1000 computed without overflow.
const slotSize = ^uint64(0) / 1000

// ComputePartition derives the byte-exact nonce partition for
// (minerAddress, epochNumber), matching the on-chain verifier (spec §4.2):
//
//	h      = Blake2b-512(minerAddress_utf8 || be64(epochNumber))
//	seed   = be64(h[0:8])
//	slot   = 2^64 / 1000
//	base   = (seed mod 1000) * slot
//	rotated = base + ((epochNumber * 37) mod 1000) * slot   (wrapping)
//	range  = [rotated, rotated + slot)                      (wrapping)
func ComputePartition(minerAddress string, epochNumber uint64) NoncePartition {
	var epochBytes [8]byte
	binary.BigEndian.PutUint64(epochBytes[:], epochNumber)

	h := blake2b.Sum512(append([]byte(minerAddress), epochBytes[:]...))
	seed := binary.BigEndian.Uint64(h[0:8])

	base := (seed % 1000) * slotSize
	rotation := (epochNumber * 37) % 1000 * slotSize
	rotated := base + rotation // wraps per spec, matching Go's uint64 overflow semantics

	return NoncePartition{Start: rotated, End: rotated + slotSize}
}

// Split divides p into n equal (modulo remainder-on-last) subranges for
// the worker pool, iterated in order by each worker (spec §4.2). Splitting
// is done on the wrapped length, not on raw Start/End comparison, since
// End may have wrapped past Start.
func (p NoncePartition) Split(n int) []NoncePartition {
	if n <= 0 {
		n = 1
	}
	length := p.End - p.Start // wrapping subtraction gives the true span even across the u64 boundary
	per := length / uint64(n)
	out := make([]NoncePartition, n)
	cur := p.Start
	for i := 0; i < n; i++ {
		end := cur + per
		if i == n-1 {
			end = p.Start + length
		}
		out[i] = NoncePartition{Start: cur, End: end}
		cur = end
	}
	return out
}

// Contains reports whether nonce falls within p, honoring wraparound.
func (p NoncePartition) Contains(nonce uint64) bool {
	if p.End >= p.Start {
		return nonce >= p.Start && nonce < p.End
	}
	// wrapped: valid if nonce is in [Start, max] or [0, End)
	return nonce >= p.Start || nonce < p.End
}
