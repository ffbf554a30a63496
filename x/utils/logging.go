package utils

import (
	"time"

	"github.com/iov-one/settle"
)

// Logging returns a decorator that logs the operation outcome together with
// its duration. Failures are logged as info, as they are expected results
// of invalid calls, successes as debug.
func Logging(name string) Decorator {
	return func(next Operation) Operation {
		return func(ctx settle.Context, db settle.KVStore) error {
			start := time.Now()
			err := next(ctx, db)
			logDuration(ctx, name, start, err)
			return err
		}
	}
}

// logDuration writes information about the time and result to the logger
func logDuration(ctx settle.Context, name string, start time.Time, err error) {
	delta := time.Since(start)
	logger := settle.GetLogger(ctx).With("op", name, "duration", delta/time.Microsecond)

	if err != nil {
		logger.Info("operation failed", "err", err)
	} else {
		logger.Debug("operation done")
	}
}
