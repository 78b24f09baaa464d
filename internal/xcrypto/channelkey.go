package xcrypto

import (
	"bytes"
	"crypto/sha256"
)

// EntityID is the 32-byte identifier tag of an entity (spec §3).
type EntityID [32]byte

// Bytes returns the identifier as a byte slice.
func (id EntityID) Bytes() []byte {
	return id[:]
}

// Less reports whether id sorts strictly before other in lexicographic
// (unsigned big-endian) byte order.
func (id EntityID) Less(other EntityID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// IsLeft reports whether self is the canonical "left" side of a bilateral
// account with other: the lexicographically smaller entity id (spec §3,
// §9). This is the single source of truth for left/right ordering and must
// be used for debt side attribution, simultaneous-proposal tiebreaks, and
// channel-key construction alike — never re-derived ad hoc.
func IsLeft(self, other EntityID) bool {
	return self.Less(other)
}

// orderedPair returns (min, max) of a and b under EntityID.Less.
func orderedPair(a, b EntityID) (EntityID, EntityID) {
	if a.Less(b) {
		return a, b
	}
	return b, a
}

// ChannelKey derives the deterministic on-chain index for the bilateral
// account between a and b: sha256(min(a,b) || max(a,b)) (spec §3, §9).
func ChannelKey(a, b EntityID) Hash {
	lo, hi := orderedPair(a, b)

	h := sha256.New()
	h.Write(lo.Bytes())
	h.Write(hi.Bytes())

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
