package entity

import "github.com/adimov-eth/xln-sub005/internal/xcrypto"

// ValidatorID identifies a signer in an entity's validator set.
type ValidatorID = xcrypto.EntityID

// ValidatorSet is the configured weighted validator set for one entity
// (spec §4.3). The first entry in Order is the proposer; Shares assigns a
// weight to each validator; Threshold is an absolute share count a frame's
// accumulated signatures must reach or exceed to commit.
type ValidatorSet struct {
	Order     []ValidatorID
	Shares    map[ValidatorID]uint64
	Threshold uint64
}

// NewValidatorSet builds a ValidatorSet with the conventional
// ⌊2·totalShares/3⌋+1 threshold (67 for 100 total shares; spec §4.3).
// Callers needing a different
// threshold should set Threshold directly after construction.
func NewValidatorSet(order []ValidatorID, shares map[ValidatorID]uint64) *ValidatorSet {
	var total uint64
	for _, v := range order {
		total += shares[v]
	}
	threshold := (2*total)/3 + 1
	return &ValidatorSet{Order: order, Shares: shares, Threshold: threshold}
}

// Proposer returns the validator responsible for proposing, the first
// entry of Order.
func (vs *ValidatorSet) Proposer() ValidatorID {
	return vs.Order[0]
}

// IsValidator reports whether id holds a share in this set.
func (vs *ValidatorSet) IsValidator(id ValidatorID) bool {
	_, ok := vs.Shares[id]
	return ok
}

// QuorumReached sums Shares for the distinct signers present in signers and
// reports whether the sum meets or exceeds Threshold (spec §4.3 "Signature
// quorum check").
func (vs *ValidatorSet) QuorumReached(signers map[ValidatorID]Signature) bool {
	var sum uint64
	for id := range signers {
		sum += vs.Shares[id]
	}
	return sum >= vs.Threshold
}
