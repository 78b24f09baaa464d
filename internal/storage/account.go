package storage

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	bolt "go.etcd.io/bbolt"
)

// AccountCheckpoint is the crash-recovery record for one bilateral
// account: its last committed frame (nil before the first commit) plus
// any not-yet-proposed mempool txs (spec §4.2, §6's persisted per-account
// frame/mempool state).
type AccountCheckpoint struct {
	Frame   *account.Frame
	Mempool []account.Tx
}

func encodeAccountCheckpoint(cp AccountCheckpoint) []byte {
	var buf bytes.Buffer

	if cp.Frame == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeLenPrefixed(&buf, account.EncodeFrame(cp.Frame))
	}

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(cp.Mempool)))
	buf.Write(n[:])
	for _, tx := range cp.Mempool {
		writeLenPrefixed(&buf, account.EncodeTx(tx))
	}

	return buf.Bytes()
}

func decodeAccountCheckpoint(data []byte) (AccountCheckpoint, error) {
	r := bytes.NewReader(data)
	var cp AccountCheckpoint

	var hasFrame [1]byte
	if _, err := io.ReadFull(r, hasFrame[:]); err != nil {
		return cp, err
	}
	if hasFrame[0] == 1 {
		enc, err := readLenPrefixed(r)
		if err != nil {
			return cp, err
		}
		f, err := account.DecodeFrame(enc)
		if err != nil {
			return cp, err
		}
		cp.Frame = f
	}

	var n [8]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return cp, err
	}
	count := binary.BigEndian.Uint64(n[:])

	cp.Mempool = make([]account.Tx, count)
	for i := range cp.Mempool {
		enc, err := readLenPrefixed(r)
		if err != nil {
			return cp, err
		}
		tx, err := account.DecodeTx(enc)
		if err != nil {
			return cp, err
		}
		cp.Mempool[i] = tx
	}

	return cp, nil
}

func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(b)))
	buf.Write(l[:])
	buf.Write(b)
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var l [8]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, err
	}
	b := make([]byte, binary.BigEndian.Uint64(l[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// PutAccountCheckpoint persists the bilateral account between a and b,
// keyed by their order-independent xcrypto.ChannelKey.
func (d *DB) PutAccountCheckpoint(a, b xcrypto.EntityID, cp AccountCheckpoint) error {
	key := xcrypto.ChannelKey(a, b)
	return d.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(accountStateBucket)
		return bucket.Put(key.Bytes(), encodeAccountCheckpoint(cp))
	})
}

// GetAccountCheckpoint fetches the persisted checkpoint for the account
// between a and b, and false if none has been written yet.
func (d *DB) GetAccountCheckpoint(a, b xcrypto.EntityID) (AccountCheckpoint, bool, error) {
	key := xcrypto.ChannelKey(a, b)
	var cp AccountCheckpoint
	var found bool
	err := d.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(accountStateBucket)
		if bucket == nil {
			return nil
		}
		v := bucket.Get(key.Bytes())
		if v == nil {
			return nil
		}
		decoded, err := decodeAccountCheckpoint(v)
		if err != nil {
			return err
		}
		cp = decoded
		found = true
		return nil
	})
	return cp, found, err
}
