package weavetest

import (
	"github.com/iov-one/settle"
)

// Auth is a mock implementing x.Authenticator interface.
//
// This structure authenticates any of referenced conditions.
// You can use either Signer or Signers (or both) attributes to reference
// conditions. Each time all signers, regardless of the attribute, are
// considered.
type Auth struct {
	// Signer represents an authentication of a single signer.
	Signer settle.Condition

	// Signers represents an authentication of multiple signers.
	Signers []settle.Condition
}

func (a *Auth) GetConditions(settle.Context) []settle.Condition {
	if a.Signer != nil {
		return append(a.Signers, a.Signer)
	}
	return a.Signers
}

func (a *Auth) HasAddress(ctx settle.Context, addr settle.Address) bool {
	for _, s := range a.Signers {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	if a.Signer == nil {
		return false
	}
	return addr.Equals(a.Signer.Address())
}
