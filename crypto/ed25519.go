package crypto

import (
	"bytes"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"golang.org/x/crypto/ed25519"
)

// ExtensionName is used for the conditions we get from signatures.
const ExtensionName = "sigs"

// PublicKey is an ed25519 public key. The zero value is an empty key that
// verifies nothing and has no address.
type PublicKey struct {
	Ed25519 []byte `json:"ed25519"`
}

// PrivateKey is an ed25519 private key in the 64 byte form produced by the
// golang.org/x/crypto/ed25519 package.
type PrivateKey struct {
	Ed25519 []byte `json:"ed25519"`
}

// Signature is an ed25519 signature.
type Signature struct {
	Ed25519 []byte `json:"ed25519"`
}

// Verify verifies the signature was created with this message and public key
func (p *PublicKey) Verify(message []byte, sig *Signature) bool {
	if p == nil || len(p.Ed25519) != ed25519.PublicKeySize {
		return false
	}
	if sig == nil || len(sig.Ed25519) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p.Ed25519), message, sig.Ed25519)
}

// Condition encodes the public key into a condition. The condition of an
// empty key is nil.
func (p *PublicKey) Condition() settle.Condition {
	if p == nil || len(p.Ed25519) == 0 {
		return nil
	}
	return settle.NewCondition(ExtensionName, "ed25519", p.Ed25519)
}

// Address returns the address that is controlled by this key.
func (p *PublicKey) Address() settle.Address {
	c := p.Condition()
	if c == nil {
		return nil
	}
	return c.Address()
}

// Equals returns true if both keys hold the same value.
func (p *PublicKey) Equals(o *PublicKey) bool {
	if p == nil || o == nil {
		return p == o
	}
	return bytes.Equal(p.Ed25519, o.Ed25519)
}

// Validate returns an error if this is not a well formed ed25519 key.
func (p *PublicKey) Validate() error {
	if p == nil || len(p.Ed25519) == 0 {
		return errors.Wrap(errors.ErrEmpty, "public key")
	}
	if len(p.Ed25519) != ed25519.PublicKeySize {
		return errors.Wrapf(errors.ErrInput, "public key length %d", len(p.Ed25519))
	}
	return nil
}

// Validate returns an error if this is not a well formed ed25519
// signature. It does not check that the signature is valid for any
// message.
func (s *Signature) Validate() error {
	if s == nil || len(s.Ed25519) == 0 {
		return errors.Wrap(errors.ErrEmpty, "signature")
	}
	if len(s.Ed25519) != ed25519.SignatureSize {
		return errors.Wrapf(errors.ErrInput, "signature length %d", len(s.Ed25519))
	}
	return nil
}

// Sign returns a matching signature for this private key
func (p *PrivateKey) Sign(message []byte) (*Signature, error) {
	if p == nil || len(p.Ed25519) != ed25519.PrivateKeySize {
		return nil, errors.Wrap(errors.ErrInput, "invalid private key")
	}
	bz := ed25519.Sign(ed25519.PrivateKey(p.Ed25519), message)
	return &Signature{Ed25519: bz}, nil
}

// PublicKey returns the corresponding PublicKey
func (p *PrivateKey) PublicKey() *PublicKey {
	if p == nil || len(p.Ed25519) != ed25519.PrivateKeySize {
		return &PublicKey{}
	}
	pub := ed25519.PrivateKey(p.Ed25519).Public().(ed25519.PublicKey)
	return &PublicKey{Ed25519: pub}
}

// Seed returns the 32 byte seed this key was generated from.
func (p *PrivateKey) Seed() []byte {
	return ed25519.PrivateKey(p.Ed25519).Seed()
}

// GenPrivKeyEd25519 returns a random new private key
func GenPrivKeyEd25519() *PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return &PrivateKey{Ed25519: priv}
}

// PrivKeyEd25519FromSeed will deterministically generate a private key from
// a given seed. Use if you have a strong source of external randomness,
// or for deterministic keys in test cases.
//
// This function panics if the seed is not 32 bytes long.
func PrivKeyEd25519FromSeed(seed []byte) *PrivateKey {
	return &PrivateKey{Ed25519: ed25519.NewKeyFromSeed(seed)}
}
