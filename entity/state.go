package entity

import (
	"math/big"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/debt"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// DisputeStatus tracks the lifecycle of a startDispute tx (spec §4.3,
// §4.4's DisputeStarted/Finalized settlement events).
type DisputeStatus uint8

const (
	DisputeOpen DisputeStatus = iota
	DisputeFinalized
)

// Dispute records an in-flight or resolved dispute against a peer account.
type Dispute struct {
	Peer     xcrypto.EntityID
	Status   DisputeStatus
	OpenedAt uint64
}

// SwapOffer is a standing offer to exchange SellAmount of SellToken for
// BuyAmount of BuyToken, created by placeSwapOffer and removed by
// cancelSwapOffer or (in a fuller market-matching implementation) a fill.
type SwapOffer struct {
	ID         uint64
	SellToken  account.TokenID
	SellAmount *big.Int
	BuyToken   account.TokenID
	BuyAmount  *big.Int
}

// AccountFactory constructs the bilateral account machine for a newly
// opened peer relationship. The entity layer doesn't know how to sign or
// verify account frames itself — those concerns belong to whatever key
// material backs this entity — so State takes a factory rather than
// hardcoding account.TestSigner/TestVerifier (spec §9 design note).
type AccountFactory func(self, peer xcrypto.EntityID) *account.Machine

// State is one replica's application state: the reducer target for every
// entity-level tx kind (spec §4.3 "Tx processing").
type State struct {
	Self xcrypto.EntityID

	Profile []byte

	Accounts    map[xcrypto.EntityID]*account.Machine
	newAccount  AccountFactory
	SwapOffers  map[uint64]*SwapOffer
	nextOfferID uint64
	Disputes    map[xcrypto.EntityID]*Dispute

	// Reserves is this entity's on-chain reserve balance per token,
	// mirrored off-chain from ReserveUpdated settlement events (spec
	// §4.4, §4.5). Debts is the per-token FIFO debt queue paid out of
	// incoming reserve before any surplus updates Reserves.
	Reserves map[account.TokenID]*big.Int
	Debts    map[account.TokenID]*debt.Queue

	// Pending* accumulate instructions destined for the jurisdiction
	// contract or peer transport; the runtime/settlement layers drain and
	// clear these after a commit (spec §4.4, §6).
	PendingReserveTransfers []ReserveTransfer
	PendingWithdrawals      []Withdrawal
	PendingBroadcasts       [][]byte
	OutboundAccountMessages []*account.Message

	// ImportedSnapshotHeight records the height an importReplica tx last
	// bootstrapped this replica from, for idempotence/observability.
	ImportedSnapshotHeight uint64
}

// ReserveTransfer is a queued reserve_to_reserve instruction.
type ReserveTransfer struct {
	To      xcrypto.EntityID
	TokenID account.TokenID
	Amount  *big.Int
}

// Withdrawal is a queued requestWithdrawal instruction.
type Withdrawal struct {
	TokenID account.TokenID
	Amount  *big.Int
}

// NewState constructs an empty replica state for self, using factory to
// build bilateral account machines on demand.
func NewState(self xcrypto.EntityID, factory AccountFactory) *State {
	return &State{
		Self:       self,
		Accounts:   make(map[xcrypto.EntityID]*account.Machine),
		newAccount: factory,
		SwapOffers: make(map[uint64]*SwapOffer),
		Disputes:   make(map[xcrypto.EntityID]*Dispute),
		Reserves:   make(map[account.TokenID]*big.Int),
		Debts:      make(map[account.TokenID]*debt.Queue),
	}
}

// reserve returns (creating a zeroed entry if absent) the live reserve
// balance for tokenID.
func (s *State) reserve(tokenID account.TokenID) *big.Int {
	r, ok := s.Reserves[tokenID]
	if !ok {
		r = big.NewInt(0)
		s.Reserves[tokenID] = r
	}
	return r
}

// debtQueue returns (creating an empty one if absent) the FIFO debt queue
// for tokenID.
func (s *State) debtQueue(tokenID account.TokenID) *debt.Queue {
	q, ok := s.Debts[tokenID]
	if !ok {
		q = debt.NewQueue()
		s.Debts[tokenID] = q
	}
	return q
}

// Clone returns a deep-enough copy for scratch application during frame
// building: account machines are shared by reference (they run their own
// independent bilateral consensus and are not part of the entity frame's
// hash), everything else is copied.
func (s *State) Clone() *State {
	cp := &State{
		Self:                   s.Self,
		Profile:                append([]byte(nil), s.Profile...),
		Accounts:               make(map[xcrypto.EntityID]*account.Machine, len(s.Accounts)),
		newAccount:             s.newAccount,
		SwapOffers:             make(map[uint64]*SwapOffer, len(s.SwapOffers)),
		nextOfferID:            s.nextOfferID,
		Disputes:               make(map[xcrypto.EntityID]*Dispute, len(s.Disputes)),
		Reserves:               make(map[account.TokenID]*big.Int, len(s.Reserves)),
		Debts:                  make(map[account.TokenID]*debt.Queue, len(s.Debts)),
		ImportedSnapshotHeight: s.ImportedSnapshotHeight,
	}
	for k, v := range s.Accounts {
		cp.Accounts[k] = v
	}
	for k, v := range s.Reserves {
		cp.Reserves[k] = new(big.Int).Set(v)
	}
	for k, v := range s.Debts {
		cp.Debts[k] = v.Clone()
	}
	for k, v := range s.SwapOffers {
		offer := *v
		offer.SellAmount = new(big.Int).Set(v.SellAmount)
		offer.BuyAmount = new(big.Int).Set(v.BuyAmount)
		cp.SwapOffers[k] = &offer
	}
	for k, v := range s.Disputes {
		d := *v
		cp.Disputes[k] = &d
	}
	for _, rt := range s.PendingReserveTransfers {
		cp.PendingReserveTransfers = append(cp.PendingReserveTransfers, ReserveTransfer{
			To: rt.To, TokenID: rt.TokenID, Amount: new(big.Int).Set(rt.Amount),
		})
	}
	for _, w := range s.PendingWithdrawals {
		cp.PendingWithdrawals = append(cp.PendingWithdrawals, Withdrawal{
			TokenID: w.TokenID, Amount: new(big.Int).Set(w.Amount),
		})
	}
	for _, b := range s.PendingBroadcasts {
		cp.PendingBroadcasts = append(cp.PendingBroadcasts, append([]byte(nil), b...))
	}
	cp.OutboundAccountMessages = append(cp.OutboundAccountMessages, s.OutboundAccountMessages...)
	return cp
}

// account returns (creating via newAccount if absent) the bilateral
// account machine for peer.
func (s *State) account(peer xcrypto.EntityID) *account.Machine {
	m, ok := s.Accounts[peer]
	if !ok {
		m = s.newAccount(s.Self, peer)
		s.Accounts[peer] = m
	}
	return m
}
