package utils

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// Savepoint isolates all data written inside of the operation and either
// commits it or rolls it back, depending on whether an error was returned.
// Stores that cannot be cache wrapped are passed through untouched.
func Savepoint(next Operation) Operation {
	return func(ctx settle.Context, db settle.KVStore) error {
		cstore, ok := db.(settle.CacheableKVStore)
		if !ok {
			return next(ctx, db)
		}

		cache := cstore.CacheWrap()
		if err := next(ctx, cache); err != nil {
			cache.Discard()
			return err
		}
		if err := cache.Write(); err != nil {
			return errors.Wrap(err, "writing savepoint")
		}
		return nil
	}
}
