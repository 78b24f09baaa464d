package xcrypto

// Merkle computes the root of a binary Merkle tree over leaves using
// pairwise keccak256 of concatenations, duplicating the last leaf on odd
// counts at each level (spec §4.1). An empty leaf set hashes to the
// keccak256 of the empty byte string, matching the degenerate single-leaf
// case of duplicating nothing.
func Merkle(leaves [][]byte) Hash {
	if len(leaves) == 0 {
		return Keccak256()
	}

	level := make([]Hash, len(leaves))
	for i, leaf := range leaves {
		level[i] = Keccak256(leaf)
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		next := make([]Hash, len(level)/2)
		for i := range next {
			left := level[2*i]
			right := level[2*i+1]
			next[i] = Keccak256(left.Bytes(), right.Bytes())
		}
		level = next
	}

	return level[0]
}
