package utils

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// Recovery turns panics raised by the operation into ErrPanic errors, so
// we can log them as errors. Place it inside of a Savepoint so that a
// panicking operation is also rolled back.
func Recovery(next Operation) Operation {
	return func(ctx settle.Context, db settle.KVStore) (err error) {
		defer errors.Recover(&err)
		return next(ctx, db)
	}
}
