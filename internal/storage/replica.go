package storage

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/adimov-eth/xln-sub005/runtime"
	bolt "go.etcd.io/bbolt"
)

func replicaKeyBytes(key runtime.ReplicaKey) []byte {
	var k [4 + 32]byte
	binary.BigEndian.PutUint32(k[:4], key.SignerIdx)
	copy(k[4:], key.EntityID.Bytes())
	return k[:]
}

// ReplicaCheckpoint is the crash-recovery record for one replica: its
// last committed position in the entity frame chain plus any
// not-yet-proposed mempool txs, sufficient to resume consensus without
// replaying the entire server-frame log from genesis (the entity reducer
// is deterministic, so the rest of State is reconstructible by replaying
// committed frames — spec §3 invariant 2).
type ReplicaCheckpoint struct {
	Height        uint64
	PrevFrameHash xcrypto.Hash
	Mempool       []entity.Tx
}

func encodeReplicaCheckpoint(cp ReplicaCheckpoint) []byte {
	var buf bytes.Buffer
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], cp.Height)
	buf.Write(h[:])
	buf.Write(cp.PrevFrameHash.Bytes())

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(cp.Mempool)))
	buf.Write(n[:])
	for _, tx := range cp.Mempool {
		enc := entity.EncodeTx(tx)
		var l [8]byte
		binary.BigEndian.PutUint64(l[:], uint64(len(enc)))
		buf.Write(l[:])
		buf.Write(enc)
	}
	return buf.Bytes()
}

func decodeReplicaCheckpoint(data []byte) (ReplicaCheckpoint, error) {
	r := bytes.NewReader(data)
	var cp ReplicaCheckpoint

	var h [8]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return cp, err
	}
	cp.Height = binary.BigEndian.Uint64(h[:])

	if _, err := io.ReadFull(r, cp.PrevFrameHash[:]); err != nil {
		return cp, err
	}

	var n [8]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return cp, err
	}
	count := binary.BigEndian.Uint64(n[:])

	cp.Mempool = make([]entity.Tx, count)
	for i := range cp.Mempool {
		var l [8]byte
		if _, err := io.ReadFull(r, l[:]); err != nil {
			return cp, err
		}
		enc := make([]byte, binary.BigEndian.Uint64(l[:]))
		if _, err := io.ReadFull(r, enc); err != nil {
			return cp, err
		}
		tx, err := entity.DecodeTx(enc)
		if err != nil {
			return cp, err
		}
		cp.Mempool[i] = tx
	}

	return cp, nil
}

// PutReplicaCheckpoint persists key's current recovery checkpoint.
func (d *DB) PutReplicaCheckpoint(key runtime.ReplicaKey, cp ReplicaCheckpoint) error {
	return d.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(replicaSnapshotBucket)
		return b.Put(replicaKeyBytes(key), encodeReplicaCheckpoint(cp))
	})
}

// GetReplicaCheckpoint fetches key's last persisted checkpoint, and false
// if none has been written yet.
func (d *DB) GetReplicaCheckpoint(key runtime.ReplicaKey) (ReplicaCheckpoint, bool, error) {
	var cp ReplicaCheckpoint
	var found bool
	err := d.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(replicaSnapshotBucket)
		if b == nil {
			return nil
		}
		v := b.Get(replicaKeyBytes(key))
		if v == nil {
			return nil
		}
		decoded, err := decodeReplicaCheckpoint(v)
		if err != nil {
			return err
		}
		cp = decoded
		found = true
		return nil
	})
	return cp, found, err
}
