package account

import "github.com/adimov-eth/xln-sub005/internal/xcrypto"

// Signature is an opaque signature over a state hash.
type Signature []byte

// Signer is implemented by whatever authenticates stateHash on behalf of an
// entity. Production callers wrap a real BLS/ECDSA key; TestSigner below
// simulates a signer by an explicit numeric id for use in tests only (spec
// §9 design note: never derive a signer identity from a string/signature
// prefix).
type Signer interface {
	Sign(hash xcrypto.Hash) (Signature, error)
}

// TestSigner is a test-only Signer that "signs" by encoding its own id
// alongside the hash. It must never be wired into a production entry point.
type TestSigner struct {
	ID uint64
}

// Sign implements Signer.
func (s TestSigner) Sign(hash xcrypto.Hash) (Signature, error) {
	sig := make([]byte, 8+32)
	for i := 0; i < 8; i++ {
		sig[i] = byte(s.ID >> (8 * (7 - i)))
	}
	copy(sig[8:], hash.Bytes())
	return sig, nil
}

// Message is the bilateral wire message (spec §4.2, §6): {from, to, height,
// newFrame?, newSignatures[], prevSignatures[], counter}.
type Message struct {
	From          xcrypto.EntityID
	To            xcrypto.EntityID
	Height        uint64
	NewFrame      *Frame
	NewSignatures []Signature
	PrevSignatures []Signature
	Counter       uint64
}
