package entity

import (
	"math/big"
	"testing"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/stretchr/testify/require"
)

func TestOpenAccountTxIsIdempotent(t *testing.T) {
	self, peer := entityID(0x01), entityID(0x02)
	st := newTestStateForEvents(self)

	require.NoError(t, (OpenAccountTx{Peer: peer}).Apply(st, 1))
	m := st.Accounts[peer]
	require.NotNil(t, m)

	require.NoError(t, (OpenAccountTx{Peer: peer}).Apply(st, 1))
	require.Same(t, m, st.Accounts[peer])
}

func TestDirectPaymentTxRequiresOpenAccount(t *testing.T) {
	self, peer := entityID(0x01), entityID(0x02)
	st := newTestStateForEvents(self)

	err := (DirectPaymentTx{Peer: peer, TokenID: 1, Amount: big.NewInt(10)}).Apply(st, 1)
	require.ErrorIs(t, err, ErrInvariantViolated)
}

func TestDirectPaymentTxQueuesIntoAccountMempool(t *testing.T) {
	self, peer := entityID(0x01), entityID(0x02)
	st := newTestStateForEvents(self)
	require.NoError(t, (OpenAccountTx{Peer: peer}).Apply(st, 1))

	require.NoError(t, (DirectPaymentTx{Peer: peer, TokenID: 1, Amount: big.NewInt(10)}).Apply(st, 1))
	require.Len(t, st.Accounts[peer].Mempool, 1)
}

func TestPlaceAndCancelSwapOffer(t *testing.T) {
	self := entityID(0x01)
	st := newTestStateForEvents(self)

	err := (PlaceSwapOfferTx{SellToken: 1, SellAmount: big.NewInt(10), BuyToken: 2, BuyAmount: big.NewInt(20)}).Apply(st, 1)
	require.NoError(t, err)
	require.Len(t, st.SwapOffers, 1)

	err = (CancelSwapOfferTx{OfferID: 0}).Apply(st, 1)
	require.NoError(t, err)
	require.Empty(t, st.SwapOffers)

	err = (CancelSwapOfferTx{OfferID: 0}).Apply(st, 1)
	require.ErrorIs(t, err, ErrInvariantViolated)
}

func TestStartDisputeTxRejectsDoubleOpen(t *testing.T) {
	self, peer := entityID(0x01), entityID(0x02)
	st := newTestStateForEvents(self)

	require.NoError(t, (StartDisputeTx{Peer: peer}).Apply(st, 1))
	err := (StartDisputeTx{Peer: peer}).Apply(st, 2)
	require.ErrorIs(t, err, ErrInvariantViolated)
}

func TestAccountInputTxQueuesReply(t *testing.T) {
	self, peer := entityID(0x01), entityID(0x02)
	st := newTestStateForEvents(self)
	require.NoError(t, (OpenAccountTx{Peer: peer}).Apply(st, 1))

	m := st.Accounts[peer]
	m.AddTx(account.DirectPaymentTx{TokenID: 1, Amount: big.NewInt(5)})
	proposeMsg, err := m.Propose(1)
	require.NoError(t, err)

	// Build a mirror account machine for peer to actually produce a valid
	// ack, since AccountInputTx dispatches into the real Machine.Receive.
	peerMachine := account.NewMachine(peer, self, account.TestSigner{ID: 2}, account.TestVerifier{})
	ack, err := peerMachine.Receive(proposeMsg, 1)
	require.NoError(t, err)
	require.NotNil(t, ack)

	tx := AccountInputTx{Peer: peer, Msg: ack}
	require.NoError(t, tx.Apply(st, 1))
	require.Len(t, st.OutboundAccountMessages, 0, "an ack commits locally and produces no further reply")
}
