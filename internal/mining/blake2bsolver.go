package mining

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Blake2bSolver is a placeholder Solver: the actual PoW inner function is
// a black box supplied by the contract's verifier (spec §1). It stands in
// for wiring the Engine end-to-end, computing difficulty as the count of
// leading zero bits in a Blake2b-256 digest of (challenge, nonce).
type Blake2bSolver struct{}

// Solve hashes challenge and nonce, writing the first 16 bytes of the
// digest into scratch[:16] and returning them alongside the leading-zero
// bit count. scratch must be at least 16 bytes; the caller owns its
// lifetime across the hot loop (spec §4.2).
func (Blake2bSolver) Solve(challenge [32]byte, nonce uint64, scratch []byte) (digest [16]byte, difficulty uint8, ok bool) {
	var nonceBytes [8]byte
	binary.LittleEndian.PutUint64(nonceBytes[:], nonce)

	sum := blake2b.Sum256(append(append([]byte{}, challenge[:]...), nonceBytes[:]...))
	copy(digest[:], sum[:16])
	if len(scratch) >= 16 {
		copy(scratch[:16], digest[:])
	}
	return digest, leadingZeroBits(digest[:]), true
}

func leadingZeroBits(b []byte) uint8 {
	var count uint8
	for _, by := range b {
		if by == 0 {
			count += 8
			continue
		}
		for mask := byte(0x80); mask > 0; mask >>= 1 {
			if by&mask != 0 {
				return count
			}
			count++
		}
	}
	if count > 255 {
		return 255
	}
	return count
}
