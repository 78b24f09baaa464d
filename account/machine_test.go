package account

import (
	"math/big"
	"testing"

	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/stretchr/testify/require"
)

func testEntities(t *testing.T) (a, b xcrypto.EntityID) {
	t.Helper()
	a[0] = 0x01
	b[0] = 0x02
	require.True(t, xcrypto.IsLeft(a, b), "test fixture assumes a is canonical left")
	return a, b
}

func newPair(t *testing.T) (left, right *Machine) {
	t.Helper()
	a, b := testEntities(t)
	left = NewMachine(a, b, TestSigner{ID: 1}, TestVerifier{})
	right = NewMachine(b, a, TestSigner{ID: 2}, TestVerifier{})
	return left, right
}

// deliver runs one side's outbound message through the other's Receive,
// returning any reply. It's a thin helper for scripting a round trip in
// tests, not a transport implementation.
func deliver(t *testing.T, to *Machine, msg *Message, now uint64) *Message {
	t.Helper()
	if msg == nil {
		return nil
	}
	reply, err := to.Receive(msg, now)
	require.NoError(t, err)
	return reply
}

func TestBilateralPaymentHappyPath(t *testing.T) {
	left, right := newPair(t)

	// Open the token leg.
	left.AddTx(AddDeltaTx{TokenID: 0})
	msg1, err := left.Propose(1)
	require.NoError(t, err)
	reply1 := deliver(t, right, msg1, 1)
	require.NotNil(t, reply1)
	reply2 := deliver(t, left, reply1, 1)
	require.Nil(t, reply2)

	require.Equal(t, uint64(1), left.Height)
	require.Equal(t, uint64(1), right.Height)
	require.Equal(t, left.CurrentFrame.StateHash, right.CurrentFrame.StateHash)

	// Both sides extend 1000 of credit to each other (spec §8 scenario 1).
	left.AddTx(SetCreditLimitTx{TokenID: 0, Amount: big.NewInt(1000), Side: SideLeft})
	left.AddTx(SetCreditLimitTx{TokenID: 0, Amount: big.NewInt(1000), Side: SideRight})
	msg2, err := left.Propose(2)
	require.NoError(t, err)
	reply3 := deliver(t, right, msg2, 2)
	deliver(t, left, reply3, 2)

	require.Equal(t, uint64(2), left.Height)
	require.Equal(t, uint64(2), right.Height)

	// Left pays right 100 using that credit (spec §8 scenario 1).
	left.AddTx(DirectPaymentTx{TokenID: 0, Amount: big.NewInt(100)})
	msg3, err := left.Propose(3)
	require.NoError(t, err)
	reply4 := deliver(t, right, msg3, 3)
	deliver(t, left, reply4, 3)

	require.Equal(t, uint64(3), left.Height)
	require.Equal(t, uint64(3), right.Height)
	require.Equal(t, left.CurrentFrame.StateHash, right.CurrentFrame.StateHash)

	inC, outC, _, outPeer := left.Deltas[0].Breakdown(true)
	require.Equal(t, 0, outC.Cmp(big.NewInt(0)), "A outCollateral should be 0")
	require.Equal(t, 0, outPeer.Cmp(big.NewInt(100)), "A outPeerCredit should be 100")
	require.Equal(t, 0, inC.Cmp(big.NewInt(0)))

	leftForward, leftBackward := left.Capacities(0)
	require.Equal(t, 0, leftForward.Cmp(big.NewInt(900)))
	require.Equal(t, 0, leftBackward.Cmp(big.NewInt(1100)))

	rightForward, rightBackward := right.Capacities(0)
	require.Equal(t, 0, rightForward.Cmp(big.NewInt(1100)))
	require.Equal(t, 0, rightBackward.Cmp(big.NewInt(900)))
}

func TestSimultaneousProposalLeftWins(t *testing.T) {
	left, right := newPair(t)

	left.AddTx(AddDeltaTx{TokenID: 0})
	right.AddTx(AddDeltaTx{TokenID: 0})

	msgL, err := left.Propose(1)
	require.NoError(t, err)
	msgR, err := right.Propose(1)
	require.NoError(t, err)

	// Cross the wires: each side sees the other's concurrent proposal
	// before either ack arrives.
	replyFromLeft := deliver(t, left, msgR, 1)
	require.Nil(t, replyFromLeft, "left is canonical left and must ignore the conflicting incoming frame")
	require.NotNil(t, left.PendingFrame, "left keeps its own proposal pending")

	replyFromRight := deliver(t, right, msgL, 1)
	require.NotNil(t, replyFromRight, "right rolls back and acks left's frame")
	require.Nil(t, right.PendingFrame)
	require.Equal(t, uint64(1), right.Height)

	// Left's own proposal is then acked by right's reply, committing it.
	final := deliver(t, left, replyFromRight, 1)
	require.Nil(t, final)
	require.Nil(t, left.PendingFrame)
	require.Equal(t, uint64(1), left.Height)

	require.Equal(t, left.CurrentFrame.StateHash, right.CurrentFrame.StateHash)
}

func TestHTLCTimeoutRefund(t *testing.T) {
	left, right := newPair(t)

	left.AddTx(AddDeltaTx{TokenID: 0})
	msg1, err := left.Propose(1)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg1, 1), 1)

	left.AddTx(SetCreditLimitTx{TokenID: 0, Amount: big.NewInt(50), Side: SideRight})
	msg2, err := left.Propose(2)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg2, 2), 2)

	hashLock := xcrypto.Keccak256([]byte("preimage"))
	left.AddTx(HTLCPaymentTx{TokenID: 0, Amount: big.NewInt(50), HashLock: hashLock, Timeout: 10})
	msg3, err := left.Propose(3)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg3, 3), 3)

	require.Len(t, left.HTLCs, 1)
	require.Len(t, right.HTLCs, 1)

	// Nothing reveals the preimage before timeout 10; the next frame on
	// either side expires it without moving OffDelta.
	left.AddTx(AddDeltaTx{TokenID: 0})
	msg4, err := left.Propose(20)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg4, 20), 20)

	require.Empty(t, left.HTLCs)
	require.Empty(t, right.HTLCs)

	// The HTLC expired without resolving: offdelta never moved, so all
	// capacity granted by the earlier credit-limit increase is still
	// forward (available to push left->right), none of it backward.
	forward, backward := left.Capacities(0)
	require.Equal(t, 0, forward.Cmp(big.NewInt(50)))
	require.Equal(t, 0, backward.Cmp(big.NewInt(0)))
}

func TestHTLCRevealBeforeTimeout(t *testing.T) {
	left, right := newPair(t)

	left.AddTx(AddDeltaTx{TokenID: 0})
	msg1, err := left.Propose(1)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg1, 1), 1)

	left.AddTx(SetCreditLimitTx{TokenID: 0, Amount: big.NewInt(50), Side: SideRight})
	msg2, err := left.Propose(2)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg2, 2), 2)

	preimage := []byte("preimage")
	hashLock := xcrypto.Keccak256(preimage)
	left.AddTx(HTLCPaymentTx{TokenID: 0, Amount: big.NewInt(50), HashLock: hashLock, Timeout: 100})
	msg3, err := left.Propose(3)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg3, 3), 3)

	// Right reveals the preimage before timeout; right proposes the
	// resolution since it holds the preimage.
	right.AddTx(RevealSecretTx{Preimage: preimage})
	msg4, err := right.Propose(10)
	require.NoError(t, err)
	deliver(t, right, deliver(t, left, msg4, 10), 10)

	require.Empty(t, left.HTLCs)
	require.Empty(t, right.HTLCs)

	forward, backward := left.Capacities(0)
	require.Equal(t, 0, forward.Cmp(big.NewInt(0)))
	require.Equal(t, 0, backward.Cmp(big.NewInt(50)))
}

func TestReserveToCollateralIdempotent(t *testing.T) {
	left, right := newPair(t)

	left.AddTx(AddDeltaTx{TokenID: 0})
	msg1, err := left.Propose(1)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg1, 1), 1)

	settle := ReserveToCollateralTx{TokenID: 0, Collateral: big.NewInt(200), OnDelta: big.NewInt(0), Side: SideLeft}

	left.AddTx(settle)
	msg2, err := left.Propose(2)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg2, 2), 2)

	snapshot := left.Deltas[0].Clone()

	// Replaying the exact same settlement event is a no-op: it overrides
	// to the same absolute values.
	left.AddTx(settle)
	msg3, err := left.Propose(3)
	require.NoError(t, err)
	deliver(t, left, deliver(t, right, msg3, 3), 3)

	require.Equal(t, 0, snapshot.Collateral.Cmp(left.Deltas[0].Collateral))
	require.Equal(t, 0, snapshot.OnDelta.Cmp(left.Deltas[0].OnDelta))
}

func TestProposeNotReadyWhenMempoolEmpty(t *testing.T) {
	left, _ := newPair(t)
	_, err := left.Propose(1)
	require.ErrorIs(t, err, ErrNotReady)
}

func TestProposeNotReadyWithPendingFrame(t *testing.T) {
	left, _ := newPair(t)
	left.AddTx(AddDeltaTx{TokenID: 0})
	_, err := left.Propose(1)
	require.NoError(t, err)

	left.AddTx(AddDeltaTx{TokenID: 1})
	_, err = left.Propose(2)
	require.ErrorIs(t, err, ErrNotReady)
}

func TestReceiveRejectsReplayedCounter(t *testing.T) {
	left, right := newPair(t)

	left.AddTx(AddDeltaTx{TokenID: 0})
	msg1, err := left.Propose(1)
	require.NoError(t, err)

	_, err = right.Receive(msg1, 1)
	require.NoError(t, err)

	_, err = right.Receive(msg1, 1)
	require.ErrorIs(t, err, ErrReplayDetected)
}

func TestTickProposesFromMempool(t *testing.T) {
	left, _ := newPair(t)
	left.AddTx(AddDeltaTx{TokenID: 0})

	msg, err := left.Tick(5)
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.NotNil(t, msg.NewFrame)
}

func TestTickResendsStalledPendingFrame(t *testing.T) {
	left, _ := newPair(t)
	left.AddTx(AddDeltaTx{TokenID: 0})
	msg1, err := left.Propose(1)
	require.NoError(t, err)

	// Before the stall timeout, Tick is a no-op.
	noop, err := left.Tick(1)
	require.NoError(t, err)
	require.Nil(t, noop)

	resend, err := left.Tick(1 + left.StallTimeout)
	require.NoError(t, err)
	require.NotNil(t, resend)
	require.Equal(t, msg1.NewFrame.StateHash, resend.NewFrame.StateHash)
}
