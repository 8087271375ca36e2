package keyval

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// StoreConfig configures the Badger-backed store.
type StoreConfig struct {
	Path string
	// MinimumFreeGB aborts startup when the filesystem holding Path has less
	// free space than this. 0 disables the check.
	MinimumFreeGB uint
	// SyncWrites forces an fsync per write transaction.
	SyncWrites bool
	Logger     *logrus.Logger
}

// BadgerStore implements Store on top of BadgerDB. Badger gives us atomic
// per-key transactions and ordered prefix iteration; concurrent access to
// distinct keys needs no external locking.
type BadgerStore struct {
	config   StoreConfig
	badgerDB *badger.DB
	log      *logrus.Logger

	readCounter  uint64
	writeCounter uint64
}

// Open opens (or creates) the store at config.Path.
func Open(config StoreConfig) (*BadgerStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("keyval: no path configured")
	}

	if err := checkFreeSpace(config.Path, config.MinimumFreeGB, config.Logger); err != nil {
		return nil, fmt.Errorf("error checking free space for keyval store: %w", err)
	}

	opts := badger.DefaultOptions(config.Path)
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100 // 100MB per value log file
	opts.SyncWrites = config.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening badger at %s: %w", config.Path, err)
	}

	return &BadgerStore{
		config:   config,
		badgerDB: db,
		log:      config.Logger,
	}, nil
}

func (k *BadgerStore) Put(namespace string, key, value []byte) error {
	atomic.AddUint64(&k.writeCounter, 1)

	err := k.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(namespaceKey(namespace, key), value)
	})
	if err != nil {
		return fmt.Errorf("error writing key %x in namespace %s: %w", key, namespace, err)
	}
	return nil
}

func (k *BadgerStore) Get(namespace string, key []byte) ([]byte, bool, error) {
	atomic.AddUint64(&k.readCounter, 1)

	var value []byte
	err := k.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(namespaceKey(namespace, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading key %x in namespace %s: %w", key, namespace, err)
	}
	return value, true, nil
}

func (k *BadgerStore) Iterate(namespace string, fn func(key, value []byte) error) error {
	atomic.AddUint64(&k.readCounter, 1)

	prefix := namespaceKey(namespace, nil)
	err := k.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(key[len(prefix):], value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error iterating namespace %s: %w", namespace, err)
	}
	return nil
}

// Stats returns the cumulative read and write operation counters.
func (k *BadgerStore) Stats() (reads, writes uint64) {
	return atomic.LoadUint64(&k.readCounter), atomic.LoadUint64(&k.writeCounter)
}

func (k *BadgerStore) Close() error {
	if err := k.Clean(); err != nil {
		k.log.WithError(err).Warn("keyval cleanup before close failed")
	}
	return k.badgerDB.Close()
}

// Clean syncs the database and reclaims value-log space.
func (k *BadgerStore) Clean() error {
	if err := k.badgerDB.Sync(); err != nil {
		return fmt.Errorf("error syncing db: %w", err)
	}

	if err := k.badgerDB.RunValueLogGC(0.1); err != nil && err != badger.ErrNoRewrite {
		return fmt.Errorf("error cleaning db: %w", err)
	}
	return nil
}
