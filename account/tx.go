package account

import (
	"math/big"

	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// TxKind tags the account-tx union (spec §4.2).
type TxKind uint8

const (
	TxAddDelta TxKind = iota
	TxDirectPayment
	TxHTLCPayment
	TxRevealSecret
	TxSetCreditLimit
	TxReserveToCollateral
)

// Side selects which canonical side (left or right, per xcrypto.IsLeft) a
// SetCreditLimit or ReserveToCollateral tx addresses, deterministically
// independent of which entity happens to apply the tx (spec §3, §9).
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

// applyState is the mutable scratch state a tx mutates while a frame is
// being built; it is discarded on rejection and only merged into the
// account machine's live state on commit.
type applyState struct {
	Deltas     map[TokenID]*Delta
	HTLCs      map[uint64]*HTLC
	NextHTLCID uint64
	SelfIsLeft bool
	Now        uint64
}

// Tx is the interface every account-level transaction kind implements.
type Tx interface {
	Kind() TxKind
	// Apply mutates st in place. A returned error means the tx is
	// rejected and st must not be considered mutated by the caller (the
	// caller always applies Tx against a scratch copy and discards it on
	// error, per spec §4.2 "Application of any tx must preserve all §3
	// invariants; otherwise the tx is rejected and not included.").
	Apply(st *applyState) error
}

func (st *applyState) delta(token TokenID) *Delta {
	d, ok := st.Deltas[token]
	if !ok {
		d = NewDelta()
		st.Deltas[token] = d
	}
	return d
}

// AddDeltaTx idempotently creates a Delta record for tokenID with the
// default credit limit (spec §4.2).
type AddDeltaTx struct {
	TokenID TokenID
}

func (AddDeltaTx) Kind() TxKind { return TxAddDelta }

func (tx AddDeltaTx) Apply(st *applyState) error {
	st.delta(tx.TokenID)
	return nil
}

// DirectPaymentTx shifts OffDelta by a signed amount; left→right is
// positive (spec §4.2).
type DirectPaymentTx struct {
	TokenID TokenID
	Amount  *big.Int
}

func (DirectPaymentTx) Kind() TxKind { return TxDirectPayment }

func (tx DirectPaymentTx) Apply(st *applyState) error {
	d := st.delta(tx.TokenID)
	next := d.Clone()
	next.OffDelta.Add(next.OffDelta, tx.Amount)
	if err := next.CheckInvariants(); err != nil {
		return err
	}
	st.Deltas[tx.TokenID] = next
	return nil
}

// HTLCPaymentTx creates a pending conditional obligation resolved by a
// matching RevealSecretTx before Timeout, or dropped (reverted) after it
// (spec §4.2).
type HTLCPaymentTx struct {
	TokenID  TokenID
	Amount   *big.Int
	HashLock xcrypto.Hash
	Timeout  uint64
}

func (HTLCPaymentTx) Kind() TxKind { return TxHTLCPayment }

func (tx HTLCPaymentTx) Apply(st *applyState) error {
	// Validate that resolving this HTLC by a reveal later (which adds
	// Amount to OffDelta, as RevealSecretTx does) would not, by itself,
	// be able to violate the capacity invariant: run the
	// hypothetical resolved state through CheckInvariants now so we never
	// admit an HTLC we could not honor.
	d := st.delta(tx.TokenID)
	hypothetical := d.Clone()
	hypothetical.OffDelta.Add(hypothetical.OffDelta, tx.Amount)
	if err := hypothetical.CheckInvariants(); err != nil {
		return err
	}

	id := st.NextHTLCID
	st.NextHTLCID++
	st.HTLCs[id] = &HTLC{
		ID:        id,
		TokenID:   tx.TokenID,
		Amount:    new(big.Int).Set(tx.Amount),
		HashLock:  tx.HashLock,
		Timeout:   tx.Timeout,
		CreatedAt: st.Now,
	}
	return nil
}

// RevealSecretTx resolves every still-pending HTLC in this account whose
// HashLock matches keccak256(preimage), provided the resolution happens
// strictly before the HTLC's timeout (spec §8 "reveal wins iff timestamp <
// timeout"). Per spec §9's open question, resolution is scoped to this one
// account's pending HTLCs only — it does not reach across accounts.
type RevealSecretTx struct {
	Preimage []byte
}

func (RevealSecretTx) Kind() TxKind { return TxRevealSecret }

func (tx RevealSecretTx) Apply(st *applyState) error {
	lock := xcrypto.Keccak256(tx.Preimage)

	var matched []*HTLC
	for _, h := range st.HTLCs {
		if h.HashLock == lock {
			matched = append(matched, h)
		}
	}
	if len(matched) == 0 {
		return ErrInvariantViolated
	}

	for _, h := range matched {
		if st.Now >= h.Timeout {
			// Expired: this reveal is too late for this HTLC,
			// leave it for timeout handling to drop.
			continue
		}

		d := st.delta(h.TokenID)
		next := d.Clone()
		next.OffDelta.Add(next.OffDelta, h.Amount)
		if err := next.CheckInvariants(); err != nil {
			return err
		}
		st.Deltas[h.TokenID] = next
		delete(st.HTLCs, h.ID)
	}
	return nil
}

// ExpireHTLCs drops every pending HTLC whose timeout has passed (now >=
// Timeout), refunding the sender by simply never having moved OffDelta
// (spec §4.2, §8 scenario 6). Called once per frame proposal, not a tx
// itself — timeouts are a function of the frame timestamp, not an
// authored message.
func ExpireHTLCs(htlcs map[uint64]*HTLC, now uint64) {
	for id, h := range htlcs {
		if now >= h.Timeout {
			delete(htlcs, id)
		}
	}
}

// SetCreditLimitTx sets LeftCreditLimit or RightCreditLimit deterministically
// by canonical side (spec §4.2).
type SetCreditLimitTx struct {
	TokenID TokenID
	Amount  *big.Int
	Side    Side
}

func (SetCreditLimitTx) Kind() TxKind { return TxSetCreditLimit }

func (tx SetCreditLimitTx) Apply(st *applyState) error {
	if tx.Amount.Sign() < 0 {
		return ErrInvariantViolated
	}

	d := st.delta(tx.TokenID)
	next := d.Clone()
	switch tx.Side {
	case SideLeft:
		next.LeftCreditLimit = new(big.Int).Set(tx.Amount)
	case SideRight:
		next.RightCreditLimit = new(big.Int).Set(tx.Amount)
	default:
		return ErrUnknownTx
	}
	if err := next.CheckInvariants(); err != nil {
		return err
	}
	st.Deltas[tx.TokenID] = next
	return nil
}

// ReserveToCollateralTx overrides Collateral and OnDelta to the absolute
// values supplied by a settlement event; it never adds to the existing
// values, so replaying the same event twice is a no-op (spec §4.2, §8
// idempotence law).
type ReserveToCollateralTx struct {
	TokenID    TokenID
	Collateral *big.Int
	OnDelta    *big.Int
	Side       Side
}

func (ReserveToCollateralTx) Kind() TxKind { return TxReserveToCollateral }

func (tx ReserveToCollateralTx) Apply(st *applyState) error {
	if tx.Collateral.Sign() < 0 {
		return ErrInvariantViolated
	}

	d := st.delta(tx.TokenID)
	next := d.Clone()
	next.Collateral = new(big.Int).Set(tx.Collateral)
	next.OnDelta = new(big.Int).Set(tx.OnDelta)
	if err := next.CheckInvariants(); err != nil {
		return err
	}
	st.Deltas[tx.TokenID] = next
	return nil
}
