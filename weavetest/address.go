package weavetest

import (
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/iov-one/settle"
)

// ParseAddress takes an address in a human readable format and returns
// its binary representation. This function is a test helper that is using
// settle.ParseAddress function functionality.
func ParseAddress(t testing.TB, encodedAddress string) settle.Address {
	t.Helper()

	addr, err := settle.ParseAddress(encodedAddress)
	if err != nil {
		t.Fatalf("cannot parse %q address: %s", encodedAddress, err)
	}
	return addr
}

// RandomAddr returns a random, valid address.
func RandomAddr(t testing.TB) settle.Address {
	t.Helper()

	a := make(settle.Address, settle.AddressLength)
	if _, err := rand.Read(a); err != nil {
		t.Fatalf("cannot read random data: %s", err)
	}
	return a
}

// SequenceID returns an ID encoded the same way a sequence does.
func SequenceID(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}
