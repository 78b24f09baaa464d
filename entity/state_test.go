package entity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneIsolatesReservesAndDebts(t *testing.T) {
	self := entityID(0x01)
	st := newTestStateForEvents(self)
	st.Reserves[1] = big.NewInt(100)
	st.debtQueue(1).Push(entityID(0x02), big.NewInt(30))

	cp := st.Clone()
	cp.Reserves[1].Add(cp.Reserves[1], big.NewInt(1))
	cp.debtQueue(1).Push(entityID(0x03), big.NewInt(5))

	require.Equal(t, 0, st.Reserves[1].Cmp(big.NewInt(100)), "mutating the clone's reserve must not affect the original")
	require.Equal(t, 1, st.debtQueue(1).Len(), "pushing onto the clone's debt queue must not affect the original")
	require.Equal(t, 2, cp.debtQueue(1).Len())
}

func TestCloneSharesAccountMachinesByReference(t *testing.T) {
	self, peer := entityID(0x01), entityID(0x02)
	st := newTestStateForEvents(self)
	m := st.account(peer)

	cp := st.Clone()
	require.Same(t, m, cp.Accounts[peer], "account machines run independent bilateral consensus and are shared, not cloned")
}
