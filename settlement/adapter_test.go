package settlement

import (
	"math/big"
	"testing"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/adimov-eth/xln-sub005/runtime"
	"github.com/stretchr/testify/require"
)

func entID(b byte) xcrypto.EntityID {
	var id xcrypto.EntityID
	id[0] = b
	return id
}

func accountFactory() entity.AccountFactory {
	return func(self, peer xcrypto.EntityID) *account.Machine {
		return account.NewMachine(self, peer, account.TestSigner{}, account.TestVerifier{})
	}
}

func newHostedState(t *testing.T, signerIdx uint32, eid xcrypto.EntityID) *runtime.ServerState {
	t.Helper()
	state := runtime.NewServerState()
	vs := entity.NewValidatorSet([]xcrypto.EntityID{eid}, map[xcrypto.EntityID]uint64{eid: 1})
	in := runtime.Input{
		SignerIdx: signerIdx,
		EntityID:  eid,
		Cmd: runtime.AttachReplicaCommand{
			Validators: vs,
			Signer:     entity.TestSigner{ID: eid},
			Verifier:   entity.TestVerifier{},
			Factory:    accountFactory(),
		},
	}
	_, rejects := runtime.ApplyServerFrame(state, []runtime.Input{in}, 1, 1)
	require.Empty(t, rejects)
	return state
}

func TestHostsReportsConfiguredSignerIdx(t *testing.T) {
	eid := entID(0x01)
	a := NewAdapter(map[xcrypto.EntityID]uint32{eid: 3})

	idx, ok := a.Hosts(eid)
	require.True(t, ok)
	require.Equal(t, uint32(3), idx)

	_, ok = a.Hosts(entID(0x02))
	require.False(t, ok)
}

func TestImportRejectsUnhostedEntity(t *testing.T) {
	a := NewAdapter(nil)
	_, err := a.Import(entID(0x01), 1, entity.ReserveUpdatedEvent{Entity: entID(0x01), TokenID: 1, NewAmount: big.NewInt(10)})
	require.ErrorIs(t, err, ErrEntityNotHosted)
}

func TestImportRejectsStaleSequence(t *testing.T) {
	eid := entID(0x01)
	a := NewAdapter(map[xcrypto.EntityID]uint32{eid: 0})
	ev := entity.ReserveUpdatedEvent{Entity: eid, TokenID: 1, NewAmount: big.NewInt(10)}

	_, err := a.Import(eid, 5, ev)
	require.NoError(t, err)

	_, err = a.Import(eid, 5, ev)
	require.ErrorIs(t, err, ErrSettlementEventStale)

	_, err = a.Import(eid, 3, ev)
	require.ErrorIs(t, err, ErrSettlementEventStale)
}

func TestImportBuildsRoutedInput(t *testing.T) {
	eid := entID(0x01)
	a := NewAdapter(map[xcrypto.EntityID]uint32{eid: 7})
	ev := entity.ReserveUpdatedEvent{Entity: eid, TokenID: 1, NewAmount: big.NewInt(10)}

	in, err := a.Import(eid, 1, ev)
	require.NoError(t, err)
	require.Equal(t, uint32(7), in.SignerIdx)
	require.Equal(t, eid, in.EntityID)
	require.IsType(t, runtime.ImportJEventCommand{}, in.Cmd)
}

func TestApplyUnsafeDisabledByDefault(t *testing.T) {
	eid := entID(0x01)
	a := NewAdapter(map[xcrypto.EntityID]uint32{eid: 0})
	state := newHostedState(t, 0, eid)

	_, err := a.ApplyUnsafe(state, eid, entity.ReserveUpdatedEvent{Entity: eid, TokenID: 1, NewAmount: big.NewInt(10)}, 2, 2)
	require.ErrorIs(t, err, ErrUnsafeNotAllowed)
}

func TestApplyUnsafeAppliesImmediatelyForTestConstructor(t *testing.T) {
	eid := entID(0x01)
	a := NewUnsafeAdapterForTesting(map[xcrypto.EntityID]uint32{eid: 0})
	state := newHostedState(t, 0, eid)

	frame, err := a.ApplyUnsafe(state, eid, entity.ReserveUpdatedEvent{Entity: eid, TokenID: 1, NewAmount: big.NewInt(42)}, 2, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), frame.Height)

	replica := state.Replica(runtime.ReplicaKey{SignerIdx: 0, EntityID: eid})
	require.Equal(t, 0, replica.State.Reserves[1].Cmp(big.NewInt(42)))
}

func TestApplyUnsafeBypassesSequenceWatermark(t *testing.T) {
	eid := entID(0x01)
	a := NewUnsafeAdapterForTesting(map[xcrypto.EntityID]uint32{eid: 0})
	state := newHostedState(t, 0, eid)

	// ApplyUnsafe shares no sequence bookkeeping with Import — it may be
	// called with events in any order, including one Import would have
	// dropped as stale.
	_, err := a.Import(eid, 10, entity.ReserveUpdatedEvent{Entity: eid, TokenID: 1, NewAmount: big.NewInt(99)})
	require.NoError(t, err)

	_, err = a.ApplyUnsafe(state, eid, entity.ReserveUpdatedEvent{Entity: eid, TokenID: 1, NewAmount: big.NewInt(5)}, 2, 2)
	require.NoError(t, err)
}
