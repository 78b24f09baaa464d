package storage

import (
	"math/big"
	"testing"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/adimov-eth/xln-sub005/runtime"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func entID(b byte) xcrypto.EntityID {
	var id xcrypto.EntityID
	id[0] = b
	return id
}

func TestOpenCreatesAllBuckets(t *testing.T) {
	db := openTestDB(t)

	_, found, err := db.LatestServerFrameHeight()
	require.NoError(t, err)
	require.False(t, found)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	db1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db1.PutServerFrame(&runtime.ServerFrame{Height: 1}))
	require.NoError(t, db1.Close())

	db2, err := Open(dir)
	require.NoError(t, err)
	defer db2.Close()

	frame, err := db2.GetServerFrame(1)
	require.NoError(t, err)
	require.NotNil(t, frame)
	require.Equal(t, uint64(1), frame.Height)
}

func TestPutGetServerFrame(t *testing.T) {
	db := openTestDB(t)
	eid := entID(0x01)
	frame := &runtime.ServerFrame{
		Height:     3,
		Timestamp:  100,
		Root:       xcrypto.Keccak256([]byte("root")),
		InputsRoot: xcrypto.Keccak256([]byte("inputs")),
		Batch: []runtime.Input{
			{SignerIdx: 0, EntityID: eid, Cmd: runtime.AddTxCommand{
				Tx:    entity.OpenAccountTx{Peer: entID(0x02)},
				Nonce: 1,
			}},
		},
	}
	require.NoError(t, db.PutServerFrame(frame))

	got, err := db.GetServerFrame(3)
	require.NoError(t, err)
	require.Equal(t, frame.Height, got.Height)
	require.Equal(t, frame.Root, got.Root)
	require.Len(t, got.Batch, 1)

	height, found, err := db.LatestServerFrameHeight()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(3), height)
}

func TestGetServerFrameMissingReturnsNilNotError(t *testing.T) {
	db := openTestDB(t)
	frame, err := db.GetServerFrame(42)
	require.NoError(t, err)
	require.Nil(t, frame)
}

func TestPutGetReplicaCheckpoint(t *testing.T) {
	db := openTestDB(t)
	key := runtime.ReplicaKey{SignerIdx: 2, EntityID: entID(0x05)}
	cp := ReplicaCheckpoint{
		Height:        7,
		PrevFrameHash: xcrypto.Keccak256([]byte("tip")),
		Mempool:       []entity.Tx{entity.StartDisputeTx{Peer: entID(0x09)}},
	}
	require.NoError(t, db.PutReplicaCheckpoint(key, cp))

	got, found, err := db.GetReplicaCheckpoint(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, cp.Height, got.Height)
	require.Equal(t, cp.PrevFrameHash, got.PrevFrameHash)
	require.Len(t, got.Mempool, 1)
}

func TestGetReplicaCheckpointMissingReturnsNotFound(t *testing.T) {
	db := openTestDB(t)
	_, found, err := db.GetReplicaCheckpoint(runtime.ReplicaKey{SignerIdx: 1, EntityID: entID(0x01)})
	require.NoError(t, err)
	require.False(t, found)
}

func TestPutGetAccountCheckpointOrderIndependent(t *testing.T) {
	db := openTestDB(t)
	a, b := entID(0x01), entID(0x02)

	m := account.NewMachine(a, b, account.TestSigner{}, account.TestVerifier{})
	m.AddTx(account.DirectPaymentTx{TokenID: 1, Amount: big.NewInt(5)})
	_, err := m.Propose(1)
	require.NoError(t, err)

	cp := AccountCheckpoint{Mempool: []account.Tx{account.DirectPaymentTx{TokenID: 1, Amount: big.NewInt(5)}}}
	require.NoError(t, db.PutAccountCheckpoint(a, b, cp))

	got, found, err := db.GetAccountCheckpoint(b, a)
	require.NoError(t, err)
	require.True(t, found, "account checkpoints are keyed by an order-independent channel key")
	require.Len(t, got.Mempool, 1)
}

func TestWipeClearsAllBuckets(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.PutServerFrame(&runtime.ServerFrame{Height: 1}))

	require.NoError(t, db.Wipe())

	_, found, err := db.LatestServerFrameHeight()
	require.NoError(t, err)
	require.False(t, found)
}
