package utils

import (
	"github.com/iov-one/settle"
)

// Operation is a single state changing unit of work executed against a
// store. All engine calls are expressed as operations so that they can be
// decorated with savepoints, panic recovery and logging.
type Operation func(ctx settle.Context, db settle.KVStore) error

// Decorator wraps an operation with additional behaviour.
type Decorator func(Operation) Operation

// Chain applies decorators to the operation. The first decorator is the
// outermost one.
func Chain(op Operation, decorators ...Decorator) Operation {
	for i := len(decorators) - 1; i >= 0; i-- {
		op = decorators[i](op)
	}
	return op
}
