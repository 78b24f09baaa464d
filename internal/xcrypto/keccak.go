// Package xcrypto is the cryptographic substrate shared by every tier of the
// XLN state machine: keccak256/RLP/Merkle for byte-exact compatibility with
// the on-chain jurisdiction contract, sha256 channel-key derivation, and BLS
// aggregate signature verification for hanko-authorized settlement batches.
package xcrypto

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Hash is a 32-byte keccak256 digest.
type Hash [32]byte

// Keccak256 hashes the concatenation of data using keccak256, the same
// primitive the jurisdiction contract uses for frame hashes (spec §4.1).
func Keccak256(data ...[]byte) Hash {
	var h Hash
	copy(h[:], crypto.Keccak256(data...))
	return h
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}
