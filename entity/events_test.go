package entity

import (
	"math/big"
	"testing"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/stretchr/testify/require"
)

func entityID(b byte) xcrypto.EntityID {
	var id xcrypto.EntityID
	id[0] = b
	return id
}

func newTestStateForEvents(self xcrypto.EntityID) *State {
	return NewState(self, func(self, peer xcrypto.EntityID) *account.Machine {
		return account.NewMachine(self, peer, account.TestSigner{ID: 1}, account.TestVerifier{})
	})
}

func TestReserveUpdatedEventPaysDebtFirst(t *testing.T) {
	self := entityID(0x01)
	creditor := entityID(0x02)
	st := newTestStateForEvents(self)

	st.debtQueue(1).Push(creditor, big.NewInt(40))

	ev := ReserveUpdatedEvent{Entity: self, TokenID: 1, NewAmount: big.NewInt(100)}
	require.NoError(t, ev.apply(st, 1))

	require.Equal(t, 0, st.reserve(1).Cmp(big.NewInt(60)), "40 of the 100 increase paid off debt, 60 surplus lands in reserve")
	require.Equal(t, 0, st.debtQueue(1).Outstanding().Cmp(big.NewInt(0)))
}

func TestReserveUpdatedEventIgnoresOtherEntity(t *testing.T) {
	self := entityID(0x01)
	other := entityID(0x03)
	st := newTestStateForEvents(self)

	ev := ReserveUpdatedEvent{Entity: other, TokenID: 1, NewAmount: big.NewInt(500)}
	require.NoError(t, ev.apply(st, 1))
	require.Equal(t, 0, st.reserve(1).Cmp(big.NewInt(0)))
}

func TestReserveUpdatedEventIsIdempotentOnReplay(t *testing.T) {
	self := entityID(0x01)
	st := newTestStateForEvents(self)

	ev := ReserveUpdatedEvent{Entity: self, TokenID: 1, NewAmount: big.NewInt(300)}
	require.NoError(t, ev.apply(st, 1))
	require.NoError(t, ev.apply(st, 2))
	require.Equal(t, 0, st.reserve(1).Cmp(big.NewInt(300)), "replaying the same absolute override twice is a no-op")
}

func TestDisputeStartedThenFinalized(t *testing.T) {
	self := entityID(0x01)
	peer := entityID(0x02)
	st := newTestStateForEvents(self)

	require.NoError(t, (DisputeStartedEvent{Peer: peer}).apply(st, 10))
	require.Equal(t, DisputeOpen, st.Disputes[peer].Status)

	require.NoError(t, (DisputeFinalizedEvent{Peer: peer}).apply(st, 20))
	require.Equal(t, DisputeFinalized, st.Disputes[peer].Status)
}

func TestImportJTxDispatchesToEvent(t *testing.T) {
	self := entityID(0x01)
	st := newTestStateForEvents(self)

	tx := ImportJTx{Event: ReserveUpdatedEvent{Entity: self, TokenID: 2, NewAmount: big.NewInt(10)}}
	require.NoError(t, tx.Apply(st, 1))
	require.Equal(t, 0, st.reserve(2).Cmp(big.NewInt(10)))
}
