package weavetest

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/crypto"
)

// NewKey returns a freshly generated ed25519 private key.
func NewKey() *crypto.PrivateKey {
	return crypto.GenPrivKeyEd25519()
}

// NewCondition returns the condition of a freshly generated key.
func NewCondition() settle.Condition {
	return NewKey().PublicKey().Condition()
}
