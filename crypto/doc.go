/*
Package crypto provides the ed25519 keys used to sign escrow proofs and
settlement approvals.

A public key maps to a condition of the form "sigs/ed25519/<key>" and the
address of that condition identifies the key holder in the ledger and in
escrow role bindings.
*/
package crypto
