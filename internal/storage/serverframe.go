package storage

import (
	"fmt"

	"github.com/adimov-eth/xln-sub005/runtime"
	bolt "go.etcd.io/bbolt"
)

func heightKey(height uint64) []byte {
	var k [8]byte
	byteOrder.PutUint64(k[:], height)
	return k[:]
}

// PutServerFrame appends frame to the server-frame log, keyed by its
// height (spec §4.4, §6's persisted server-frame log).
func (d *DB) PutServerFrame(frame *runtime.ServerFrame) error {
	return d.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(serverFrameBucket)
		if b == nil {
			return fmt.Errorf("storage: %s bucket missing", serverFrameBucket)
		}
		return b.Put(heightKey(frame.Height), runtime.EncodeServerFrame(frame))
	})
}

// GetServerFrame fetches the committed ServerFrame at height, or returns
// (nil, nil) if no frame at that height has been persisted.
func (d *DB) GetServerFrame(height uint64) (*runtime.ServerFrame, error) {
	var frame *runtime.ServerFrame
	err := d.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(serverFrameBucket)
		if b == nil {
			return nil
		}
		v := b.Get(heightKey(height))
		if v == nil {
			return nil
		}
		f, err := runtime.DecodeServerFrame(v)
		if err != nil {
			return err
		}
		frame = f
		return nil
	})
	return frame, err
}

// LatestServerFrameHeight returns the highest height persisted to the
// server-frame log, and false if the log is empty.
func (d *DB) LatestServerFrameHeight() (uint64, bool, error) {
	var height uint64
	var found bool
	err := d.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(serverFrameBucket)
		if b == nil {
			return nil
		}
		k, _ := b.Cursor().Last()
		if k == nil {
			return nil
		}
		height = byteOrder.Uint64(k)
		found = true
		return nil
	})
	return height, found, err
}
