/*
Package settle defines all common interfaces used to weave together the
packages of the multi-party escrow settlement engine, as well as
implementations of some of the simpler components (when interfaces would be
too much overhead).

The engine is built from a key value store (see the store package), an orm
layer that persists models in prefixed buckets, and extensions under x/ that
implement the collaborators and the escrow state machine itself:

	x/identity  compliance gate: eligibility and scoped trust grants
	x/ledger    value ledger: balances and atomic transfers
	x/escrow    escrow wallets, registry, dispute clock and settlement

Every mutating operation runs inside a cache wrap of the store so that value
movements and state transitions are applied together or not at all.

Context is passed through context.Context between the engine and the
handlers. There exist two functions for every value XYZ of type T that is
supported in a Context:

  WithXYZ(Context, T) Context
  XYZ(Context) (val T, ok bool)
*/
package settle
