package storage

import (
	"encoding/binary"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

const (
	dbName           = "xln.db"
	dbFilePermission = 0600
)

// migration mutates the bucket/key structure of an outdated database
// version into a newer one, exactly mirroring channeldb's migration
// shape.
type migration func(tx *bolt.Tx) error

type version struct {
	number    uint32
	migration migration
}

// dbVersions lists every schema version this package knows how to reach.
// Adding a migration means appending a new entry whose migration func
// walks the database from the prior version forward.
var dbVersions = []version{
	{number: 0, migration: nil},
}

// byteOrder is the integer encoding used for every big-endian bucket key
// in this package (height, signerIdx), matching channeldb's convention so
// bolt's cursor scans iterate numeric keys in order.
var byteOrder = binary.BigEndian

var (
	// serverFrameBucket holds the committed runtime.ServerFrame log,
	// keyed by big-endian height (spec §4.4, §6's persisted server-frame
	// log).
	serverFrameBucket = []byte("server-frame-log")

	// replicaSnapshotBucket holds the last committed replica position
	// per (signerIdx, entityId) for crash recovery without replaying the
	// entire server-frame log from genesis.
	replicaSnapshotBucket = []byte("replica-snapshot")

	// accountStateBucket holds one bilateral account machine's persisted
	// frame/mempool state, keyed by the order-independent
	// xcrypto.ChannelKey of the two entity ids (spec §4.2, §6).
	accountStateBucket = []byte("account-state")

	// metaBucket stores the schema version row.
	metaBucket = []byte("meta")

	metaVersionKey = []byte("version")
)

var allBuckets = [][]byte{
	serverFrameBucket,
	replicaSnapshotBucket,
	accountStateBucket,
	metaBucket,
}

// DB is the primary XLN datastore: a bolt-backed store of the runtime's
// server-frame log, per-replica snapshots, and per-account bilateral
// state, grounded on channeldb.DB's Open/Wipe/migration shape.
type DB struct {
	*bolt.DB
	dbPath string
}

// Open opens an existing xln.db under dbPath, creating and initializing
// one if absent, then synchronizing its schema version.
func Open(dbPath string) (*DB, error) {
	path := filepath.Join(dbPath, dbName)

	if !fileExists(path) {
		if err := createXLNDB(dbPath); err != nil {
			return nil, err
		}
	}

	bdb, err := bolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return nil, err
	}

	xlnDB := &DB{DB: bdb, dbPath: dbPath}

	if err := xlnDB.syncVersions(dbVersions); err != nil {
		bdb.Close()
		return nil, err
	}

	return xlnDB, nil
}

// Wipe deletes every bucket's contents in a single atomic transaction,
// tolerating a bucket that is already absent.
func (d *DB) Wipe() error {
	return d.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// createXLNDB creates dbPath if needed and initializes a fresh xln.db
// with every top-level bucket plus the meta row recording the latest
// schema version.
func createXLNDB(dbPath string) error {
	if !fileExists(dbPath) {
		if err := os.MkdirAll(dbPath, 0700); err != nil {
			return err
		}
	}

	path := filepath.Join(dbPath, dbName)
	bdb, err := bolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return err
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return putVersion(tx, getLatestVersion(dbVersions))
	})
	if err != nil {
		bdb.Close()
		return err
	}

	return bdb.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getLatestVersion(versions []version) uint32 {
	return versions[len(versions)-1].number
}

func getVersion(tx *bolt.Tx) uint32 {
	b := tx.Bucket(metaBucket)
	if b == nil {
		return 0
	}
	v := b.Get(metaVersionKey)
	if v == nil {
		return 0
	}
	return byteOrder.Uint32(v)
}

func putVersion(tx *bolt.Tx, number uint32) error {
	b, err := tx.CreateBucketIfNotExists(metaBucket)
	if err != nil {
		return err
	}
	var v [4]byte
	byteOrder.PutUint32(v[:], number)
	return b.Put(metaVersionKey, v[:])
}

// syncVersions applies every migration newer than the database's current
// version within one transaction, then records the new version, mirroring
// channeldb.DB.syncVersions.
func (d *DB) syncVersions(versions []version) error {
	var current uint32
	if err := d.View(func(tx *bolt.Tx) error {
		current = getVersion(tx)
		return nil
	}); err != nil {
		return err
	}

	latest := getLatestVersion(versions)
	if current == latest {
		return nil
	}

	log.Infof("STOR: migrating xln.db from version %d to %d", current, latest)

	return d.Update(func(tx *bolt.Tx) error {
		for _, v := range versions {
			if v.number <= current || v.migration == nil {
				continue
			}
			if err := v.migration(tx); err != nil {
				return err
			}
		}
		return putVersion(tx, latest)
	})
}
