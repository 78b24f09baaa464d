package entity

import (
	"math/big"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// TxKind tags the entity-tx union (spec §4.3).
type TxKind uint8

const (
	TxImportReplica TxKind = iota
	TxOpenAccount
	TxDirectPayment
	TxHTLCPayment
	TxReserveToReserve
	TxRequestWithdrawal
	TxStartDispute
	TxJBroadcast
	TxProfileUpdate
	TxPlaceSwapOffer
	TxCancelSwapOffer
	TxAccountInput
	TxImportJ
)

// Tx is the interface every entity-level transaction kind implements.
type Tx interface {
	Kind() TxKind
	// Apply mutates st in place. A returned error rejects the tx: it is
	// excluded from the frame being built and st must be discarded by the
	// caller, matching account.Tx's contract (spec §4.3 "unknown tx kinds
	// are rejected").
	Apply(st *State, now uint64) error
}

// ImportReplicaTx bootstraps a replica's Profile from a snapshot, for a
// validator joining the set mid-flight rather than from entity genesis.
type ImportReplicaTx struct {
	Height   uint64
	Snapshot []byte
}

func (ImportReplicaTx) Kind() TxKind { return TxImportReplica }

func (tx ImportReplicaTx) Apply(st *State, now uint64) error {
	st.Profile = append([]byte(nil), tx.Snapshot...)
	st.ImportedSnapshotHeight = tx.Height
	return nil
}

// OpenAccountTx idempotently opens a bilateral account with Peer.
type OpenAccountTx struct {
	Peer xcrypto.EntityID
}

func (OpenAccountTx) Kind() TxKind { return TxOpenAccount }

func (tx OpenAccountTx) Apply(st *State, now uint64) error {
	st.account(tx.Peer)
	return nil
}

// DirectPaymentTx queues a direct_payment into the named peer account's own
// bilateral mempool; the bilateral consensus in account.Machine commits it
// independently of this entity frame.
type DirectPaymentTx struct {
	Peer    xcrypto.EntityID
	TokenID account.TokenID
	Amount  *big.Int
}

func (DirectPaymentTx) Kind() TxKind { return TxDirectPayment }

func (tx DirectPaymentTx) Apply(st *State, now uint64) error {
	if _, ok := st.Accounts[tx.Peer]; !ok {
		return ErrInvariantViolated
	}
	st.account(tx.Peer).AddTx(account.DirectPaymentTx{TokenID: tx.TokenID, Amount: tx.Amount})
	return nil
}

// HTLCPaymentTx queues an htlc_payment into the named peer account.
type HTLCPaymentTx struct {
	Peer     xcrypto.EntityID
	TokenID  account.TokenID
	Amount   *big.Int
	HashLock xcrypto.Hash
	Timeout  uint64
}

func (HTLCPaymentTx) Kind() TxKind { return TxHTLCPayment }

func (tx HTLCPaymentTx) Apply(st *State, now uint64) error {
	if _, ok := st.Accounts[tx.Peer]; !ok {
		return ErrInvariantViolated
	}
	st.account(tx.Peer).AddTx(account.HTLCPaymentTx{
		TokenID: tx.TokenID, Amount: tx.Amount, HashLock: tx.HashLock, Timeout: tx.Timeout,
	})
	return nil
}

// ReserveToReserveTx queues an on-chain reserve transfer instruction for
// the settlement submission path (spec §6 processBatch's reserveToReserve
// batch field).
type ReserveToReserveTx struct {
	To      xcrypto.EntityID
	TokenID account.TokenID
	Amount  *big.Int
}

func (ReserveToReserveTx) Kind() TxKind { return TxReserveToReserve }

func (tx ReserveToReserveTx) Apply(st *State, now uint64) error {
	if tx.Amount.Sign() <= 0 {
		return ErrInvariantViolated
	}
	st.PendingReserveTransfers = append(st.PendingReserveTransfers, ReserveTransfer{
		To: tx.To, TokenID: tx.TokenID, Amount: new(big.Int).Set(tx.Amount),
	})
	return nil
}

// RequestWithdrawalTx queues a withdrawal request for the settlement
// submission path.
type RequestWithdrawalTx struct {
	TokenID account.TokenID
	Amount  *big.Int
}

func (RequestWithdrawalTx) Kind() TxKind { return TxRequestWithdrawal }

func (tx RequestWithdrawalTx) Apply(st *State, now uint64) error {
	if tx.Amount.Sign() <= 0 {
		return ErrInvariantViolated
	}
	st.PendingWithdrawals = append(st.PendingWithdrawals, Withdrawal{
		TokenID: tx.TokenID, Amount: new(big.Int).Set(tx.Amount),
	})
	return nil
}

// StartDisputeTx opens a dispute against Peer's bilateral account.
type StartDisputeTx struct {
	Peer xcrypto.EntityID
}

func (StartDisputeTx) Kind() TxKind { return TxStartDispute }

func (tx StartDisputeTx) Apply(st *State, now uint64) error {
	if d, ok := st.Disputes[tx.Peer]; ok && d.Status == DisputeOpen {
		return ErrInvariantViolated
	}
	st.Disputes[tx.Peer] = &Dispute{Peer: tx.Peer, Status: DisputeOpen, OpenedAt: now}
	return nil
}

// JBroadcastTx queues an opaque payload for broadcast to the jurisdiction
// contract's mempool (e.g. a hanko-signed batch awaiting submission).
type JBroadcastTx struct {
	Payload []byte
}

func (JBroadcastTx) Kind() TxKind { return TxJBroadcast }

func (tx JBroadcastTx) Apply(st *State, now uint64) error {
	st.PendingBroadcasts = append(st.PendingBroadcasts, append([]byte(nil), tx.Payload...))
	return nil
}

// ProfileUpdateTx overwrites the replica's opaque Profile blob (name,
// metadata, routing hints — entity-defined, not interpreted here).
type ProfileUpdateTx struct {
	Profile []byte
}

func (ProfileUpdateTx) Kind() TxKind { return TxProfileUpdate }

func (tx ProfileUpdateTx) Apply(st *State, now uint64) error {
	st.Profile = append([]byte(nil), tx.Profile...)
	return nil
}

// PlaceSwapOfferTx creates a standing offer to sell SellAmount of SellToken
// for BuyAmount of BuyToken.
type PlaceSwapOfferTx struct {
	SellToken  account.TokenID
	SellAmount *big.Int
	BuyToken   account.TokenID
	BuyAmount  *big.Int
}

func (PlaceSwapOfferTx) Kind() TxKind { return TxPlaceSwapOffer }

func (tx PlaceSwapOfferTx) Apply(st *State, now uint64) error {
	if tx.SellAmount.Sign() <= 0 || tx.BuyAmount.Sign() <= 0 {
		return ErrInvariantViolated
	}
	id := st.nextOfferID
	st.nextOfferID++
	st.SwapOffers[id] = &SwapOffer{
		ID:         id,
		SellToken:  tx.SellToken,
		SellAmount: new(big.Int).Set(tx.SellAmount),
		BuyToken:   tx.BuyToken,
		BuyAmount:  new(big.Int).Set(tx.BuyAmount),
	}
	return nil
}

// CancelSwapOfferTx removes a previously placed swap offer.
type CancelSwapOfferTx struct {
	OfferID uint64
}

func (CancelSwapOfferTx) Kind() TxKind { return TxCancelSwapOffer }

func (tx CancelSwapOfferTx) Apply(st *State, now uint64) error {
	if _, ok := st.SwapOffers[tx.OfferID]; !ok {
		return ErrInvariantViolated
	}
	delete(st.SwapOffers, tx.OfferID)
	return nil
}

// AccountInputTx dispatches an inbound bilateral wire message to the named
// peer's account machine, queuing any reply for the transport layer to
// deliver (spec §4.3 "accountInput (inner bilateral message to dispatch)").
type AccountInputTx struct {
	Peer xcrypto.EntityID
	Msg  *account.Message
}

func (AccountInputTx) Kind() TxKind { return TxAccountInput }

func (tx AccountInputTx) Apply(st *State, now uint64) error {
	reply, err := st.account(tx.Peer).Receive(tx.Msg, now)
	if err != nil {
		return err
	}
	if reply != nil {
		st.OutboundAccountMessages = append(st.OutboundAccountMessages, reply)
	}
	return nil
}

// ImportJTx ingests one settlement event from the jurisdiction chain as an
// absolute-value override (spec §4.4 "Settlement ingestion").
type ImportJTx struct {
	Event JEvent
}

func (ImportJTx) Kind() TxKind { return TxImportJ }

func (tx ImportJTx) Apply(st *State, now uint64) error {
	return tx.Event.apply(st, now)
}
