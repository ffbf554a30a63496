package settle

import (
	"context"
	"time"

	"github.com/iov-one/settle/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// Context is the request scoped value passed between the engine, the
// handlers and the collaborators. Each extension may add its own keys to
// enrich it with specific data.
//
// There should exist two functions for every XYZ of type T that we want to
// support in Context:
//
//   WithXYZ(Context, T) Context
//   GetXYZ(Context) (val T, ok bool)
type Context = context.Context

type contextKey int // local to the settle package

const (
	contextKeyTime contextKey = iota
	contextKeyLogger
)

var (
	// DefaultLogger is used for all context that have not
	// set anything themselves
	DefaultLogger = log.NewNopLogger()
)

// WithBlockTime sets the time of the operation being processed. The value
// is set once per operation and must not be overwritten by lower level
// modules.
func WithBlockTime(ctx Context, t time.Time) Context {
	if _, ok := BlockTime(ctx); ok {
		panic("block time already set")
	}
	return context.WithValue(ctx, contextKeyTime, t)
}

// BlockTime returns the time of the operation being processed.
func BlockTime(ctx Context) (time.Time, bool) {
	t, ok := ctx.Value(contextKeyTime).(time.Time)
	return t, ok
}

// MustBlockTime returns the time of the operation or an error if it was
// never set. Handlers that depend on time call this instead of the wall
// clock.
func MustBlockTime(ctx Context) (UnixTime, error) {
	t, ok := BlockTime(ctx)
	if !ok {
		return 0, errors.Wrap(errors.ErrHuman, "block time not present in the context")
	}
	return AsUnixTime(t), nil
}

// WithLogger sets the logger for this context.
func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// WithLogInfo accepts keyvalue pairs, and returns another context like this,
// after passing all the keyvals to the Logger.
func WithLogInfo(ctx Context, keyvals ...interface{}) Context {
	logger := GetLogger(ctx).With(keyvals...)
	return WithLogger(ctx, logger)
}

// GetLogger returns the currently set logger, or DefaultLogger if none was
// set.
func GetLogger(ctx Context) log.Logger {
	val, ok := ctx.Value(contextKeyLogger).(log.Logger)
	if !ok || val == nil {
		return DefaultLogger
	}
	return val
}
