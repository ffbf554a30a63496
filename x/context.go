package x

import (
	"context"

	"github.com/iov-one/settle"
)

type contextKey int // local to the x package

const (
	contextKeySigners contextKey = iota
)

// CtxAuth authenticates the conditions that were attached to the context
// with WithSigners. The engine attaches the caller of every operation this
// way, after the transport has established who the caller is.
type CtxAuth struct{}

var _ Authenticator = CtxAuth{}

// WithSigners returns a context that authenticates given conditions.
func (CtxAuth) WithSigners(ctx settle.Context, signers ...settle.Condition) settle.Context {
	return context.WithValue(ctx, contextKeySigners, signers)
}

// GetConditions returns the conditions previously set on this context.
func (CtxAuth) GetConditions(ctx settle.Context) []settle.Condition {
	// (val, ok) form to return nil instead of panic if unset
	val, _ := ctx.Value(contextKeySigners).([]settle.Condition)
	return val
}

// HasAddress returns true iff this address is in GetConditions
func (a CtxAuth) HasAddress(ctx settle.Context, addr settle.Address) bool {
	for _, s := range a.GetConditions(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}
