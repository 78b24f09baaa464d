package entity

import "github.com/adimov-eth/xln-sub005/internal/xcrypto"

// Signature is an opaque signature a validator casts over a frame's state
// hash during the gather/precommit phases (spec §4.3). In production this
// wraps a BLS12-381 signature (internal/xcrypto's AggregateVerify/
// AggregateSignatures combine a quorum's individual Signatures into the
// hanko submitted to the jurisdiction contract, spec §6); TestSigner below
// simulates one for tests only.
type Signature []byte

// Signer is implemented by whatever authenticates a frame's state hash on
// behalf of one validator.
type Signer interface {
	Sign(hash xcrypto.Hash) (Signature, error)
}

// Verifier checks a Signature against a state hash, scoped to one named
// validator so a Replica can tell which validator a signature claims to be
// from.
type Verifier interface {
	Verify(id ValidatorID, hash xcrypto.Hash, sig Signature) bool
}

// TestSigner "signs" by encoding its own id alongside the hash, exactly
// mirroring account.TestSigner. It must never be wired into a production
// entry point.
type TestSigner struct {
	ID ValidatorID
}

// Sign implements Signer.
func (s TestSigner) Sign(hash xcrypto.Hash) (Signature, error) {
	sig := make([]byte, len(s.ID)+32)
	copy(sig, s.ID[:])
	copy(sig[len(s.ID):], hash.Bytes())
	return sig, nil
}

// TestVerifier checks that a TestSigner-produced signature's trailing 32
// bytes match hash and its leading id bytes match the claimed validator.
type TestVerifier struct{}

// Verify implements Verifier.
func (TestVerifier) Verify(id ValidatorID, hash xcrypto.Hash, sig Signature) bool {
	if len(sig) != len(id)+32 {
		return false
	}
	var claimed ValidatorID
	copy(claimed[:], sig[:len(id)])
	if claimed != id {
		return false
	}
	return string(sig[len(id):]) == string(hash.Bytes())
}

// Message is the entity-level consensus wire message, analogous to
// account.Message but carrying a per-phase signature set over a weighted
// validator quorum instead of a single counterparty signature (spec §4.3's
// four-phase Gather/Propose/Precommit/Commit protocol).
type Message struct {
	From ValidatorID
	// To nil broadcasts to every other validator (Propose, Commit); a
	// non-nil To targets exactly one validator directly (a Precommit sent
	// only to the proposer, spec §4.3 phase 3).
	To      *ValidatorID
	Height  uint64
	Phase   Phase
	Frame   *Frame
	Sig     Signature
	Signers map[ValidatorID]Signature
}

// Phase tags which of the four consensus phases a Message belongs to.
type Phase uint8

const (
	PhaseGather Phase = iota
	PhasePropose
	PhasePrecommit
	PhaseCommit
)
