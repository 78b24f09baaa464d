package account

import (
	"math/big"

	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// HTLC is a pending conditional obligation created by an htlc_payment tx
// (spec §4.2). Amount follows the same sign convention as direct_payment:
// left→right is positive. The HTLC does not move OffDelta until it is
// resolved by RevealSecret; a timeout simply drops it, "refunding" the
// sender by never having debited them in the first place (spec §8 scenario
// 6).
type HTLC struct {
	ID        uint64
	TokenID   TokenID
	Amount    *big.Int
	HashLock  xcrypto.Hash
	Timeout   uint64
	CreatedAt uint64
}

// Clone returns a deep copy.
func (h *HTLC) Clone() *HTLC {
	cp := *h
	cp.Amount = new(big.Int).Set(h.Amount)
	return &cp
}
