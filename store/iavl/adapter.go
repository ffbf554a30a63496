/*
Package iavl provides a durable, versioned store on top of the tendermint
iavl merkle tree and a goleveldb database.

All writes go to the working tree. They become durable only once Commit
saves a new version, so a process crash between two commits loses the
uncommitted writes as a whole and never a part of them.
*/
package iavl

import (
	"sync"

	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/store"
	"github.com/tendermint/iavl"
	dbm "github.com/tendermint/tendermint/libs/db"
)

// DefaultCacheSize is the number of tree nodes kept in memory.
const DefaultCacheSize = 10000

// CommitStore manages a iavl committed state
type CommitStore struct {
	mu   sync.Mutex
	db   dbm.DB
	tree *iavl.MutableTree
}

var _ store.CommitKVStore = (*CommitStore)(nil)

// NewCommitStore creates a new store with disk backing. Data is kept in a
// goleveldb database called name, inside of dir. The latest committed
// version is loaded.
func NewCommitStore(dir, name string) (*CommitStore, error) {
	db, err := openDB(dir, name)
	if err != nil {
		return nil, err
	}
	s := &CommitStore{
		db:   db,
		tree: iavl.NewMutableTree(db, DefaultCacheSize),
	}
	if err := s.LoadLatestVersion(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMemCommitStore returns a store backed by an in memory database.
func NewMemCommitStore() *CommitStore {
	db := dbm.NewMemDB()
	return &CommitStore{
		db:   db,
		tree: iavl.NewMutableTree(db, DefaultCacheSize),
	}
}

func openDB(dir, name string) (db dbm.DB, err error) {
	// dbm.NewDB panics when the database cannot be opened.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrDatabase, "open %s/%s: %v", dir, name, r)
		}
	}()
	return dbm.NewDB(name, dbm.GoLevelDBBackend, dir), nil
}

// Close releases the underlying database.
func (s *CommitStore) Close() {
	s.db.Close()
}

// Get returns the value at last committed state
// returns nil iff key doesn't exist.
func (s *CommitStore) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, val := s.tree.GetVersioned(key, s.tree.Version())
	return val, nil
}

// Commit the next version to disk, and returns info
func (s *CommitStore) Commit() (store.CommitID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return store.CommitID{}, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return store.CommitID{
		Version: version,
		Hash:    hash,
	}, nil
}

// LoadLatestVersion loads the latest persisted version.
// If there was a crash during the last commit, it is guaranteed
// to return a stable state, even if older.
func (s *CommitStore) LoadLatestVersion() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.tree.Load(); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// LatestVersion returns info on the latest version saved to disk
func (s *CommitStore) LatestVersion() (store.CommitID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.CommitID{
		Version: s.tree.Version(),
		Hash:    s.tree.Hash(),
	}, nil
}

// Rollback drops all changes made to the working tree since the last
// commit.
func (s *CommitStore) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Rollback()
}

// CacheWrap gives us a savepoint to perform actions. Writing the cache
// moves the changes into the working tree, Commit makes them durable.
func (s *CommitStore) CacheWrap() store.KVCacheWrap {
	w := working{s}
	return store.NewBTreeCacheWrap(w, w.NewBatch(), nil)
}

// KVStore returns the working tree as a cacheable store.
func (s *CommitStore) KVStore() store.CacheableKVStore {
	return store.BTreeCacheable{KVStore: working{s}}
}

// working gives access to the uncommitted state of the tree.
type working struct {
	s *CommitStore
}

var _ store.KVStore = working{}

func (w working) Get(key []byte) ([]byte, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	_, val := w.s.tree.Get(key)
	return val, nil
}

func (w working) Has(key []byte) (bool, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return w.s.tree.Has(key), nil
}

func (w working) Set(key, value []byte) error {
	if value == nil {
		return errors.Wrap(errors.ErrInput, "nil value")
	}
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.tree.Set(key, value)
	return nil
}

func (w working) Delete(key []byte) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.tree.Remove(key)
	return nil
}

func (w working) NewBatch() store.Batch {
	return store.NewNonAtomicBatch(w)
}

// Iterator over a domain of keys in ascending order. End is exclusive.
func (w working) Iterator(start, end []byte) (store.Iterator, error) {
	return w.iterate(start, end, true), nil
}

// ReverseIterator over a domain of keys in descending order. End is exclusive.
func (w working) ReverseIterator(start, end []byte) (store.Iterator, error) {
	return w.iterate(start, end, false), nil
}

// iterate loads the whole range into memory, so that the tree is not
// locked while the caller consumes the iterator.
func (w working) iterate(start, end []byte, ascending bool) store.Iterator {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	var res []store.Model
	w.s.tree.IterateRange(start, end, ascending, func(key, value []byte) bool {
		res = append(res, store.Pair(key, value))
		return false
	})
	return store.NewSliceIterator(res)
}
