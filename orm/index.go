package orm

import (
	"bytes"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

const compactIdxPrefix = "_i."

// Indexer calculates the secondary index keys for a given model. Returning
// no keys means the model is not indexed.
type Indexer func(Model) ([][]byte, error)

// compactIndex stores all primary keys indexed under a single value as one
// serialized MultiRef. This implementation should be used only for small
// sized index collections, which is the case for per party wallet lists.
type compactIndex struct {
	name   string
	id     []byte
	unique bool
	index  Indexer
}

func newCompactIndex(bucket, name string, indexer Indexer, unique bool) compactIndex {
	return compactIndex{
		name:   name,
		id:     []byte(compactIdxPrefix + bucket + "_" + name + ":"),
		index:  indexer,
		unique: unique,
	}
}

// indexKey is the full key we store in the db, including prefix.
// A new array is allocated so that consecutive calls never share memory.
func (i compactIndex) indexKey(val []byte) []byte {
	l := len(i.id)
	out := make([]byte, l+len(val))
	copy(out, i.id)
	copy(out[l:], val)
	return out
}

// update moves the reference of the primary key pk from the index values
// of prev to the index values of next. A nil prev means insert, a nil next
// means delete.
func (i compactIndex) update(db settle.KVStore, pk []byte, prev, next Model) error {
	if prev == nil && next == nil {
		return errors.Wrap(errors.ErrHuman, "update requires at least one non-nil model")
	}
	var prevVals, nextVals [][]byte
	var err error
	if prev != nil {
		if prevVals, err = i.index(prev); err != nil {
			return errors.Wrapf(err, "index %s", i.name)
		}
	}
	if next != nil {
		if nextVals, err = i.index(next); err != nil {
			return errors.Wrapf(err, "index %s", i.name)
		}
	}
	for _, v := range prevVals {
		if !contains(nextVals, v) {
			if err := i.remove(db, v, pk); err != nil {
				return err
			}
		}
	}
	for _, v := range nextVals {
		if !contains(prevVals, v) {
			if err := i.insert(db, v, pk); err != nil {
				return err
			}
		}
	}
	return nil
}

func contains(set [][]byte, val []byte) bool {
	for _, s := range set {
		if bytes.Equal(s, val) {
			return true
		}
	}
	return false
}

func (i compactIndex) load(db settle.ReadOnlyKVStore, val []byte) (*MultiRef, error) {
	raw, err := db.Get(i.indexKey(val))
	if err != nil {
		return nil, errors.Wrap(err, "load index")
	}
	var refs MultiRef
	if raw == nil {
		return &refs, nil
	}
	if err := Unmarshal(raw, &refs); err != nil {
		return nil, err
	}
	return &refs, nil
}

func (i compactIndex) insert(db settle.KVStore, val, pk []byte) error {
	refs, err := i.load(db, val)
	if err != nil {
		return err
	}
	if i.unique && len(refs.Refs) > 0 {
		return errors.Wrapf(errors.ErrDuplicate, "index %s", i.name)
	}
	if err := refs.Add(pk); err != nil {
		return errors.Wrapf(err, "index %s", i.name)
	}
	return i.save(db, val, refs)
}

func (i compactIndex) remove(db settle.KVStore, val, pk []byte) error {
	refs, err := i.load(db, val)
	if err != nil {
		return err
	}
	if err := refs.Remove(pk); err != nil {
		return errors.Wrapf(err, "index %s", i.name)
	}
	if len(refs.Refs) == 0 {
		return db.Delete(i.indexKey(val))
	}
	return i.save(db, val, refs)
}

func (i compactIndex) save(db settle.KVStore, val []byte, refs *MultiRef) error {
	raw, err := Marshal(refs)
	if err != nil {
		return err
	}
	return db.Set(i.indexKey(val), raw)
}

// keys returns all primary keys indexed under given value, in ascending
// order.
func (i compactIndex) keys(db settle.ReadOnlyKVStore, val []byte) ([][]byte, error) {
	refs, err := i.load(db, val)
	if err != nil {
		return nil, err
	}
	return refs.Refs, nil
}
