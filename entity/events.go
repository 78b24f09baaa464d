package entity

import (
	"math/big"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// jEventKind tags the JEvent union for hashing and the wire codec.
type jEventKind uint8

const (
	jEventEntityRegistered jEventKind = iota
	jEventReserveUpdated
	jEventReserveToCollateral
	jEventSettlementProcessed
	jEventDisputeStarted
	jEventDisputeFinalized
)

// JEvent is one settlement event ingested from the jurisdiction chain
// (spec §4.4 "Settlement ingestion", §6 event list). Applying an event is
// always an absolute-value override, never an additive delta, so replaying
// the same event twice is a no-op (spec §8 idempotence law).
type JEvent interface {
	apply(st *State, now uint64) error
	encode() xcrypto.Raw
}

// EntityRegisteredEvent mirrors the jurisdiction contract's
// EntityRegistered(entityId, number, boardHash) event. XLN's off-chain
// state has no further bookkeeping for it beyond recording that
// registration occurred; callers that need the board hash retain the raw
// event from their watcher.
type EntityRegisteredEvent struct {
	EntityID  xcrypto.EntityID
	Number    uint64
	BoardHash xcrypto.Hash
}

func (e EntityRegisteredEvent) apply(st *State, now uint64) error {
	return nil
}

func (e EntityRegisteredEvent) encode() xcrypto.Raw {
	return xcrypto.EncodeList(
		xcrypto.EncodeUint(uint64(jEventEntityRegistered)),
		xcrypto.EncodeBytes(e.EntityID.Bytes()),
		xcrypto.EncodeUint(e.Number),
		xcrypto.EncodeBytes(e.BoardHash.Bytes()),
	)
}

// ReserveUpdatedEvent mirrors ReserveUpdated(entity, token, newAmount): an
// absolute override of the entity's on-chain reserve balance for token,
// FIFO-paying any outstanding debt out of the increase before the surplus
// updates Reserves (spec §4.5).
type ReserveUpdatedEvent struct {
	Entity    xcrypto.EntityID
	TokenID   account.TokenID
	NewAmount *big.Int
}

func (e ReserveUpdatedEvent) apply(st *State, now uint64) error {
	if e.Entity != st.Self {
		// This event concerns a different entity's reserve; nothing
		// for this replica to update.
		return nil
	}
	if e.NewAmount.Sign() < 0 {
		return ErrInvariantViolated
	}

	current := st.reserve(e.TokenID)
	increase := new(big.Int).Sub(e.NewAmount, current)
	if increase.Sign() <= 0 {
		// Not an increase (or a no-op replay): set the absolute value
		// directly, no debt to pay from a decrease.
		st.Reserves[e.TokenID] = new(big.Int).Set(e.NewAmount)
		return nil
	}

	_, leftover := st.debtQueue(e.TokenID).Settle(increase)
	st.Reserves[e.TokenID] = new(big.Int).Add(current, leftover)
	return nil
}

func (e ReserveUpdatedEvent) encode() xcrypto.Raw {
	return xcrypto.EncodeList(
		xcrypto.EncodeUint(uint64(jEventReserveUpdated)),
		xcrypto.EncodeBytes(e.Entity.Bytes()),
		xcrypto.EncodeUint(uint64(e.TokenID)),
		xcrypto.EncodeInt(e.NewAmount),
	)
}

// ReserveToCollateralEvent mirrors ReserveToCollateral(pair, token,
// collateral, ondelta): overrides the bilateral account's collateral and
// ondelta to the given absolute values (spec §4.2's reserve_to_collateral
// tx, §8 scenario 5).
type ReserveToCollateralEvent struct {
	Peer       xcrypto.EntityID
	TokenID    account.TokenID
	Collateral *big.Int
	OnDelta    *big.Int
	Side       account.Side
}

func (e ReserveToCollateralEvent) apply(st *State, now uint64) error {
	m := st.account(e.Peer)
	m.AddTx(account.ReserveToCollateralTx{
		TokenID:    e.TokenID,
		Collateral: e.Collateral,
		OnDelta:    e.OnDelta,
		Side:       e.Side,
	})
	return nil
}

func (e ReserveToCollateralEvent) encode() xcrypto.Raw {
	return xcrypto.EncodeList(
		xcrypto.EncodeUint(uint64(jEventReserveToCollateral)),
		xcrypto.EncodeBytes(e.Peer.Bytes()),
		xcrypto.EncodeUint(uint64(e.TokenID)),
		xcrypto.EncodeInt(e.Collateral),
		xcrypto.EncodeInt(e.OnDelta),
		xcrypto.EncodeUint(uint64(e.Side)),
	)
}

// SettlementDiff is one per-token line item of a SettlementProcessed event.
type SettlementDiff struct {
	TokenID    account.TokenID
	Collateral *big.Int
	OnDelta    *big.Int
}

// SettlementProcessedEvent mirrors SettlementProcessed(left, right, diffs):
// a batch of ReserveToCollateral-style absolute overrides applied together
// after an on-chain settlement between left and right.
type SettlementProcessedEvent struct {
	Left, Right xcrypto.EntityID
	Diffs       []SettlementDiff
	Side        account.Side
}

func (e SettlementProcessedEvent) apply(st *State, now uint64) error {
	var peer xcrypto.EntityID
	switch st.Self {
	case e.Left:
		peer = e.Right
	case e.Right:
		peer = e.Left
	default:
		return nil
	}

	m := st.account(peer)
	for _, d := range e.Diffs {
		m.AddTx(account.ReserveToCollateralTx{
			TokenID:    d.TokenID,
			Collateral: d.Collateral,
			OnDelta:    d.OnDelta,
			Side:       e.Side,
		})
	}
	return nil
}

func (e SettlementProcessedEvent) encode() xcrypto.Raw {
	diffItems := make([]xcrypto.Raw, len(e.Diffs))
	for i, d := range e.Diffs {
		diffItems[i] = xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(d.TokenID)),
			xcrypto.EncodeInt(d.Collateral),
			xcrypto.EncodeInt(d.OnDelta),
		)
	}
	return xcrypto.EncodeList(
		xcrypto.EncodeUint(uint64(jEventSettlementProcessed)),
		xcrypto.EncodeBytes(e.Left.Bytes()),
		xcrypto.EncodeBytes(e.Right.Bytes()),
		xcrypto.EncodeList(diffItems...),
		xcrypto.EncodeUint(uint64(e.Side)),
	)
}

// DisputeStartedEvent mirrors the jurisdiction's dispute-start outcome,
// opening (or reaffirming) a Dispute record against Peer.
type DisputeStartedEvent struct {
	Peer xcrypto.EntityID
}

func (e DisputeStartedEvent) apply(st *State, now uint64) error {
	st.Disputes[e.Peer] = &Dispute{Peer: e.Peer, Status: DisputeOpen, OpenedAt: now}
	return nil
}

func (e DisputeStartedEvent) encode() xcrypto.Raw {
	return xcrypto.EncodeList(
		xcrypto.EncodeUint(uint64(jEventDisputeStarted)),
		xcrypto.EncodeBytes(e.Peer.Bytes()),
	)
}

// DisputeFinalizedEvent mirrors the jurisdiction's dispute-finalize
// outcome, closing out a previously opened Dispute.
type DisputeFinalizedEvent struct {
	Peer xcrypto.EntityID
}

func (e DisputeFinalizedEvent) apply(st *State, now uint64) error {
	if d, ok := st.Disputes[e.Peer]; ok {
		d.Status = DisputeFinalized
		return nil
	}
	st.Disputes[e.Peer] = &Dispute{Peer: e.Peer, Status: DisputeFinalized, OpenedAt: now}
	return nil
}

func (e DisputeFinalizedEvent) encode() xcrypto.Raw {
	return xcrypto.EncodeList(
		xcrypto.EncodeUint(uint64(jEventDisputeFinalized)),
		xcrypto.EncodeBytes(e.Peer.Bytes()),
	)
}
