package entity

import (
	"testing"

	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/stretchr/testify/require"
)

func validatorID(b byte) ValidatorID {
	var id ValidatorID
	id[0] = b
	return id
}

func newTestReplica(self ValidatorID, vs *ValidatorSet) *Replica {
	st := NewState(self, nil)
	return NewReplica(self, vs, st, TestSigner{ID: self}, TestVerifier{})
}

func TestProposeRejectsNonProposer(t *testing.T) {
	v1, v2 := validatorID(0x01), validatorID(0x02)
	vs := NewValidatorSet([]ValidatorID{v1, v2}, map[ValidatorID]uint64{v1: 60, v2: 40})

	r2 := newTestReplica(v2, vs)
	r2.AddTx(ProfileUpdateTx{Profile: []byte("x")})

	_, err := r2.Propose(1)
	require.ErrorIs(t, err, ErrNotProposer)
}

func TestProposeRejectsEmptyMempool(t *testing.T) {
	v1 := validatorID(0x01)
	vs := NewValidatorSet([]ValidatorID{v1}, map[ValidatorID]uint64{v1: 100})
	r1 := newTestReplica(v1, vs)

	_, err := r1.Propose(1)
	require.ErrorIs(t, err, ErrEmptyMempool)
}

func TestSingleValidatorCommitsImmediatelyOnPropose(t *testing.T) {
	v1 := validatorID(0x01)
	vs := NewValidatorSet([]ValidatorID{v1}, map[ValidatorID]uint64{v1: 100})
	r1 := newTestReplica(v1, vs)
	r1.AddTx(ProfileUpdateTx{Profile: []byte("hello")})

	msg, err := r1.Propose(1)
	require.NoError(t, err)
	require.Equal(t, PhaseCommit, msg.Phase)
	require.Equal(t, uint64(1), r1.Height)
	require.Equal(t, []byte("hello"), r1.State.Profile)
	require.Nil(t, r1.proposal)
	require.False(t, r1.locked)
}

func TestProposeRejectsSecondProposalInFlight(t *testing.T) {
	v1, v2 := validatorID(0x01), validatorID(0x02)
	// threshold = (2*100)/3+1 = 67, v1 alone (60) cannot commit solo.
	vs := NewValidatorSet([]ValidatorID{v1, v2}, map[ValidatorID]uint64{v1: 60, v2: 40})
	r1 := newTestReplica(v1, vs)
	r1.AddTx(ProfileUpdateTx{Profile: []byte("a")})

	_, err := r1.Propose(1)
	require.NoError(t, err)

	r1.AddTx(ProfileUpdateTx{Profile: []byte("b")})
	_, err = r1.Propose(1)
	require.ErrorIs(t, err, ErrProposalInFlight)
}

// TestBFTCommitWithThreeValidators mirrors spec §8 scenario 3 exactly:
// shares {V1:40, V2:35, V3:25}, threshold=67. V1 (proposer) proposes; V2
// precommits; total = 75 >= 67 so V1 commits and broadcasts; V3 applies
// the broadcast commit.
func TestBFTCommitWithThreeValidators(t *testing.T) {
	v1, v2, v3 := validatorID(0x01), validatorID(0x02), validatorID(0x03)
	vs := NewValidatorSet([]ValidatorID{v1, v2, v3}, map[ValidatorID]uint64{v1: 40, v2: 35, v3: 25})
	require.Equal(t, uint64(67), vs.Threshold)

	r1 := newTestReplica(v1, vs)
	r2 := newTestReplica(v2, vs)
	r3 := newTestReplica(v3, vs)

	r1.AddTx(ProfileUpdateTx{Profile: []byte("quorum")})

	proposeMsg, err := r1.Propose(10)
	require.NoError(t, err)
	require.Equal(t, PhasePropose, proposeMsg.Phase)

	precommit2, err := r2.Receive(proposeMsg, 10)
	require.NoError(t, err)
	require.Equal(t, PhasePrecommit, precommit2.Phase)
	require.NotNil(t, precommit2.To)
	require.Equal(t, v1, *precommit2.To)

	precommit3, err := r3.Receive(proposeMsg, 10)
	require.NoError(t, err)
	require.Equal(t, PhasePrecommit, precommit3.Phase)

	commitMsg, err := r1.Receive(precommit2, 10)
	require.NoError(t, err)
	require.NotNil(t, commitMsg)
	require.Equal(t, PhaseCommit, commitMsg.Phase)
	require.Len(t, commitMsg.Signers, 2)

	_, err = r2.Receive(commitMsg, 10)
	require.NoError(t, err)
	_, err = r3.Receive(commitMsg, 10)
	require.NoError(t, err)

	require.Equal(t, uint64(1), r1.Height)
	require.Equal(t, uint64(1), r2.Height)
	require.Equal(t, uint64(1), r3.Height)
	require.Equal(t, []byte("quorum"), r1.State.Profile)
	require.Equal(t, []byte("quorum"), r2.State.Profile)
	require.Equal(t, []byte("quorum"), r3.State.Profile)

	// V1's extra precommit (from V3) arrives after commit already fired;
	// it must be a harmless no-op, not an error.
	_, err = r1.Receive(precommit3, 10)
	require.NoError(t, err)
}

func TestPrecommitBelowThresholdDoesNotCommit(t *testing.T) {
	v1, v2, v3 := validatorID(0x01), validatorID(0x02), validatorID(0x03)
	vs := NewValidatorSet([]ValidatorID{v1, v2, v3}, map[ValidatorID]uint64{v1: 40, v2: 35, v3: 25})
	r1 := newTestReplica(v1, vs)
	r3 := newTestReplica(v3, vs)

	r1.AddTx(ProfileUpdateTx{Profile: []byte("quorum")})
	proposeMsg, err := r1.Propose(10)
	require.NoError(t, err)

	precommit3, err := r3.Receive(proposeMsg, 10)
	require.NoError(t, err)

	commitMsg, err := r1.Receive(precommit3, 10)
	require.NoError(t, err)
	require.Nil(t, commitMsg, "40+25=65 < 67 threshold, must not commit yet")
	require.Equal(t, uint64(0), r1.Height)
}

func TestReceiveProposeRejectsConflictingLock(t *testing.T) {
	v1, v2 := validatorID(0x01), validatorID(0x02)
	vs := NewValidatorSet([]ValidatorID{v1, v2}, map[ValidatorID]uint64{v1: 60, v2: 40})
	r1 := newTestReplica(v1, vs)
	r2 := newTestReplica(v2, vs)

	r1.AddTx(ProfileUpdateTx{Profile: []byte("a")})
	proposeA, err := r1.Propose(10)
	require.NoError(t, err)
	_, err = r2.Receive(proposeA, 10)
	require.NoError(t, err)

	// A distinct frame at the same height (different txs, hence different
	// hash) must be rejected once r2 is locked on proposeA's hash.
	conflicting := &Message{
		From:   v1,
		Height: 0,
		Phase:  PhasePropose,
		Frame: &Frame{
			Height:        0,
			Timestamp:     10,
			PrevFrameHash: GenesisHash,
			Txs:           []Tx{ProfileUpdateTx{Profile: []byte("b")}},
		},
	}
	conflicting.Frame.StateHash = ComputeStateHash(conflicting.Frame)

	_, err = r2.Receive(conflicting, 10)
	require.ErrorIs(t, err, ErrConflictingLock)
}

func TestReceiveRejectsUnknownValidator(t *testing.T) {
	v1, v2 := validatorID(0x01), validatorID(0x02)
	stranger := validatorID(0x09)
	vs := NewValidatorSet([]ValidatorID{v1, v2}, map[ValidatorID]uint64{v1: 60, v2: 40})
	r2 := newTestReplica(v2, vs)

	_, err := r2.Receive(&Message{From: stranger, Phase: PhasePropose}, 1)
	require.ErrorIs(t, err, ErrUnknownValidator)
}

func TestReceiveProposeRejectsChainBreak(t *testing.T) {
	v1, v2 := validatorID(0x01), validatorID(0x02)
	vs := NewValidatorSet([]ValidatorID{v1, v2}, map[ValidatorID]uint64{v1: 60, v2: 40})
	r2 := newTestReplica(v2, vs)

	badFrame := &Frame{
		Height:        0,
		Timestamp:     1,
		PrevFrameHash: xcrypto.Keccak256([]byte("not genesis")),
	}
	badFrame.StateHash = ComputeStateHash(badFrame)

	_, err := r2.Receive(&Message{From: v1, Phase: PhasePropose, Frame: badFrame}, 1)
	require.ErrorIs(t, err, ErrChainBroken)
}
