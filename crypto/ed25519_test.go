package crypto

import (
	"bytes"
	"testing"

	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/weavetest/assert"
)

func TestEd25519Signing(t *testing.T) {
	private := GenPrivKeyEd25519()
	public := private.PublicKey()

	msg := []byte("foobar")
	msg2 := []byte("dingbooms")

	sig, err := private.Sign(msg)
	assert.Nil(t, err)
	sig2, err := private.Sign(msg2)
	assert.Nil(t, err)

	if bytes.Equal(sig.Ed25519, sig2.Ed25519) {
		t.Fatal("different messages produce the same signature")
	}

	if !public.Verify(msg, sig) {
		t.Fatal("cannot verify a message signed with this public key")
	}
	if !public.Verify(msg2, sig2) {
		t.Fatal("cannot verify a message signed with this public key")
	}

	if public.Verify(msg, sig2) {
		t.Fatal("verified message signature of the wrong message")
	}
	if public.Verify(msg, &Signature{}) {
		t.Fatal("verified an empty signature of a message")
	}
	if public.Verify(msg, nil) {
		t.Fatal("verified a nil signature of a message")
	}

	other := GenPrivKeyEd25519().PublicKey()
	if other.Verify(msg, sig) {
		t.Fatal("verified a signature with a foreign key")
	}
}

func TestEd25519Address(t *testing.T) {
	pub := GenPrivKeyEd25519().PublicKey()
	pub2 := GenPrivKeyEd25519().PublicKey()
	empty := PublicKey{}

	assert.Nil(t, pub.Condition().Validate())
	assert.Nil(t, pub2.Condition().Validate())
	if bytes.Equal(pub.Condition(), pub2.Condition()) {
		t.Fatal("different public keys produce the same condition")
	}
	assert.Nil(t, empty.Condition())
	assert.Nil(t, empty.Address())
	assert.Nil(t, pub.Address().Validate())
	assert.IsErr(t, errors.ErrEmpty, empty.Validate())
}

func TestEmptyPrivateKeySign(t *testing.T) {
	var pk PrivateKey
	if _, err := pk.Sign([]byte("message")); !errors.ErrInput.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
	if pk.PublicKey().Address() != nil {
		t.Fatal("empty private key must not produce an address")
	}
}

func TestPrivKeyEd25519FromSeed(t *testing.T) {
	cases := map[string]struct {
		seed     []byte
		expected []byte
	}{
		"success 1": {
			seed:     []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			expected: []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 59, 106, 39, 188, 206, 182, 164, 45, 98, 163, 168, 208, 42, 111, 13, 115, 101, 50, 21, 119, 29, 226, 67, 166, 58, 192, 72, 161, 139, 89, 218, 41},
		},
		"failure no seed": {
			seed:     nil,
			expected: nil,
		},
		"failure wrong seed size": {
			seed:     []byte{0},
			expected: nil,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if tc.expected != nil {
				privKey := PrivKeyEd25519FromSeed(tc.seed)
				assert.Equal(t, tc.expected, privKey.Ed25519)
				assert.Equal(t, tc.seed, privKey.Seed())
			} else {
				assert.Panics(t, func() { PrivKeyEd25519FromSeed(tc.seed) })
			}
		})
	}
}
