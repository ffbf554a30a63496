package orm

import (
	"reflect"
	"regexp"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// Model is implemented by any entity that can be stored using ModelBucket.
// Models are serialized with the amino codec, so they must be pointers to
// plain structures.
type Model interface {
	Validate() error
}

// ModelSlicePtr is a pointer to a slice of models, ie *[]*Escrow. It is
// used as a destination when loading many models at once.
type ModelSlicePtr interface{}

// ModelBucket is implemented by buckets that operates on Models.
type ModelBucket interface {
	// One query the database for a single model instance. Lookup is done
	// by the primary key. Result is loaded into given destination model.
	// This method returns ErrNotFound if the entity does not exist in the
	// database.
	// If given model type cannot be used to contain stored entity, ErrType
	// is returned.
	One(db settle.ReadOnlyKVStore, key []byte, dest Model) error

	// Has returns nil if an entity with given primary key exists, and
	// ErrNotFound otherwise.
	Has(db settle.ReadOnlyKVStore, key []byte) error

	// Put saves given model in the database. Before inserting into the
	// database, model is validated using its Validate method.
	// If the key is nil or zero length then a sequence generator is used
	// to create a unique key value.
	// Using a key that already exists in the database cause the value to
	// be overwritten.
	Put(db settle.KVStore, key []byte, m Model) ([]byte, error)

	// Delete removes an entity with given primary key from the database.
	// It returns ErrNotFound if an entity with given key does not exist.
	Delete(db settle.KVStore, key []byte) error

	// ByIndex returns all models that are referenced by the given index
	// and the index value. Models are appended to dest, and their keys
	// are returned.
	ByIndex(db settle.ReadOnlyKVStore, indexName string, key []byte, dest ModelSlicePtr) ([][]byte, error)

	// All loads all models stored in this bucket into dest, ordered by
	// the primary key.
	All(db settle.ReadOnlyKVStore, dest ModelSlicePtr) ([][]byte, error)
}

var isBucketName = regexp.MustCompile(`^[a-z_]{3,20}$`).MatchString

// NewModelBucket returns a ModelBucket instance storing models of the same
// type as the given example under the given name.
func NewModelBucket(name string, example Model, opts ...ModelBucketOption) ModelBucket {
	if !isBucketName(name) {
		panic("invalid bucket name: " + name)
	}
	typ := reflect.TypeOf(example)
	if typ == nil || typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		panic("model must be a pointer to a structure")
	}
	mb := &modelBucket{
		name:    name,
		prefix:  []byte(name + ":"),
		model:   typ,
		indexes: make(map[string]compactIndex),
	}
	for _, fn := range opts {
		fn(mb)
	}
	return mb
}

// ModelBucketOption is implemented by any function that can configure
// ModelBucket during creation.
type ModelBucketOption func(mb *modelBucket)

// WithIDSequence configure the bucket to use the given sequence instance for
// generating ID.
func WithIDSequence(s Sequence) ModelBucketOption {
	return func(mb *modelBucket) {
		mb.idSeq = &s
	}
}

// WithIndex configures the bucket to build an index with given name. All
// entities stored in the bucket are indexed using value returned by the
// indexer function. If an index is unique, there can be only one entity
// referenced per index value.
func WithIndex(name string, indexer Indexer, unique bool) ModelBucketOption {
	return func(mb *modelBucket) {
		if _, ok := mb.indexes[name]; ok {
			panic("index " + name + " declared twice")
		}
		mb.indexes[name] = newCompactIndex(mb.name, name, indexer, unique)
	}
}

type modelBucket struct {
	name    string
	prefix  []byte
	model   reflect.Type
	idSeq   *Sequence
	indexes map[string]compactIndex
}

var _ ModelBucket = (*modelBucket)(nil)

func (mb *modelBucket) dbKey(key []byte) []byte {
	out := make([]byte, len(mb.prefix)+len(key))
	copy(out, mb.prefix)
	copy(out[len(mb.prefix):], key)
	return out
}

// load returns a new model instance of the bucket type, or nil if the key
// is not present.
func (mb *modelBucket) load(db settle.ReadOnlyKVStore, key []byte) (Model, error) {
	raw, err := db.Get(mb.dbKey(key))
	if err != nil {
		return nil, errors.Wrap(err, "cannot load from the database")
	}
	if raw == nil {
		return nil, nil
	}
	return mb.decode(raw)
}

func (mb *modelBucket) decode(raw []byte) (Model, error) {
	ptr := reflect.New(mb.model.Elem())
	if err := Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Interface().(Model), nil
}

func (mb *modelBucket) One(db settle.ReadOnlyKVStore, key []byte, dest Model) error {
	if reflect.TypeOf(dest) != mb.model {
		return errors.Wrapf(errors.ErrType, "%T cannot be represented as %s", dest, mb.model)
	}
	m, err := mb.load(db, key)
	if err != nil {
		return err
	}
	if m == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", mb.name, key)
	}
	reflect.ValueOf(dest).Elem().Set(reflect.ValueOf(m).Elem())
	return nil
}

func (mb *modelBucket) Has(db settle.ReadOnlyKVStore, key []byte) error {
	ok, err := db.Has(mb.dbKey(key))
	if err != nil {
		return errors.Wrap(err, "cannot query the database")
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", mb.name, key)
	}
	return nil
}

func (mb *modelBucket) Put(db settle.KVStore, key []byte, m Model) ([]byte, error) {
	if reflect.TypeOf(m) != mb.model {
		return nil, errors.Wrapf(errors.ErrType, "cannot store %T in %s bucket", m, mb.name)
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model")
	}

	if len(key) == 0 {
		if mb.idSeq == nil {
			return nil, errors.Wrap(errors.ErrHuman, "bucket has no ID sequence, key required")
		}
		var err error
		if key, err = mb.idSeq.NextVal(db); err != nil {
			return nil, errors.Wrap(err, "ID sequence")
		}
	}

	if len(mb.indexes) > 0 {
		prev, err := mb.load(db, key)
		if err != nil {
			return nil, err
		}
		for _, idx := range mb.indexes {
			if err := idx.update(db, key, prev, m); err != nil {
				return nil, err
			}
		}
	}

	raw, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := db.Set(mb.dbKey(key), raw); err != nil {
		return nil, errors.Wrap(err, "cannot store in the database")
	}
	return key, nil
}

func (mb *modelBucket) Delete(db settle.KVStore, key []byte) error {
	prev, err := mb.load(db, key)
	if err != nil {
		return err
	}
	if prev == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", mb.name, key)
	}
	for _, idx := range mb.indexes {
		if err := idx.update(db, key, prev, nil); err != nil {
			return err
		}
	}
	return db.Delete(mb.dbKey(key))
}

func (mb *modelBucket) ByIndex(db settle.ReadOnlyKVStore, indexName string, key []byte, dest ModelSlicePtr) ([][]byte, error) {
	idx, ok := mb.indexes[indexName]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInput, "unknown index %q", indexName)
	}
	slice, err := mb.destSlice(dest)
	if err != nil {
		return nil, err
	}
	keys, err := idx.keys(db, key)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		m, err := mb.load(db, k)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, errors.Wrapf(errors.ErrDatabase, "index %s references missing %x", indexName, k)
		}
		appendModel(slice, m)
	}
	return keys, nil
}

func (mb *modelBucket) All(db settle.ReadOnlyKVStore, dest ModelSlicePtr) ([][]byte, error) {
	slice, err := mb.destSlice(dest)
	if err != nil {
		return nil, err
	}
	end := make([]byte, len(mb.prefix))
	copy(end, mb.prefix)
	end[len(end)-1]++

	it, err := db.Iterator(mb.prefix, end)
	if err != nil {
		return nil, errors.Wrap(err, "cannot iterate the database")
	}
	defer it.Close()

	var keys [][]byte
	for it.Valid() {
		m, err := mb.decode(it.Value())
		if err != nil {
			return nil, err
		}
		appendModel(slice, m)
		keys = append(keys, append([]byte(nil), it.Key()[len(mb.prefix):]...))
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// destSlice validates that dest is a pointer to a slice that can hold the
// models of this bucket.
func (mb *modelBucket) destSlice(dest ModelSlicePtr) (reflect.Value, error) {
	ptr := reflect.ValueOf(dest)
	if ptr.Kind() != reflect.Ptr || ptr.Elem().Kind() != reflect.Slice {
		return reflect.Value{}, errors.Wrapf(errors.ErrType, "%T is not a pointer to a slice", dest)
	}
	elem := ptr.Elem().Type().Elem()
	if elem != mb.model && elem != mb.model.Elem() {
		return reflect.Value{}, errors.Wrapf(errors.ErrType, "%T cannot hold %s", dest, mb.model)
	}
	return ptr.Elem(), nil
}

// appendModel appends the model to the slice, dereferencing it if the
// slice holds structures instead of pointers.
func appendModel(slice reflect.Value, m Model) {
	v := reflect.ValueOf(m)
	if slice.Type().Elem().Kind() != reflect.Ptr {
		v = v.Elem()
	}
	slice.Set(reflect.Append(slice, v))
}
