package store

import "github.com/iov-one/settle"

// The store interfaces are declared in the settle package so that domain
// code does not depend on this package. They are aliased here for
// convenience of the implementations.

type ReadOnlyKVStore = settle.ReadOnlyKVStore
type SetDeleter = settle.SetDeleter
type KVStore = settle.KVStore
type Batch = settle.Batch
type Iterator = settle.Iterator
type CacheableKVStore = settle.CacheableKVStore
type KVCacheWrap = settle.KVCacheWrap
type CommitKVStore = settle.CommitKVStore
type CommitID = settle.CommitID
type Model = settle.Model

// Pair constructs a model from a key value pair.
var Pair = settle.Pair
