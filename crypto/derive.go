package crypto

import (
	"github.com/iov-one/settle/errors"
	"github.com/stellar/go/exp/crypto/derivation"
)

// DefaultDerivationPath is the SLIP-0010 path used by the key tooling when
// none is given.
const DefaultDerivationPath = "m/44'/234'/0'"

// DeriveEd25519 returns the private key found at the given SLIP-0010 path
// of the master seed. All path elements must be hardened, as ed25519 does
// not support public derivation.
func DeriveEd25519(seed []byte, path string) (*PrivateKey, error) {
	if len(seed) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "seed")
	}
	k, err := derivation.DeriveForPath(path, seed)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "derive %q: %s", path, err)
	}
	return PrivKeyEd25519FromSeed(k.Key), nil
}
