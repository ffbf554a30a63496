package bech32

import (
	"bytes"
	"testing"

	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/weavetest/assert"
)

func TestAddressRoundTrip(t *testing.T) {
	addr := bytes.Repeat([]byte{0xab}, 20)
	enc, err := Encode("settle", addr)
	assert.Nil(t, err)
	if enc[:7] != "settle1" {
		t.Fatalf("unexpected prefix: %q", enc)
	}

	hrp, payload, err := Decode(enc)
	assert.Nil(t, err)
	assert.Equal(t, "settle", hrp)
	assert.Equal(t, addr, payload)
}

func TestDecodePrefixed(t *testing.T) {
	addr := bytes.Repeat([]byte{0x01}, 20)
	own, err := Encode("settle", addr)
	assert.Nil(t, err)
	foreign, err := Encode("tiov", addr)
	assert.Nil(t, err)

	cases := map[string]struct {
		enc     string
		wantErr *errors.Error
	}{
		"own prefix":        {enc: own},
		"foreign prefix":    {enc: foreign, wantErr: errors.ErrInput},
		"broken checksum":   {enc: own[:len(own)-1] + "q", wantErr: errors.ErrInput},
		"not bech32 at all": {enc: "0102", wantErr: errors.ErrInput},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			payload, err := DecodePrefixed("settle", tc.enc)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr == nil {
				assert.Equal(t, addr, payload)
			}
		})
	}
}
