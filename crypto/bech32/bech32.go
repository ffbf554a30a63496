// Package bech32 encodes addresses in the bech32 format, on top of the
// btcutil implementation that works with 5 bit groups.
package bech32

import (
	"github.com/btcsuite/btcutil/bech32"
	"github.com/iov-one/settle/errors"
)

// Encode returns the bech32 form of the payload under the human readable
// prefix.
func Encode(hrp string, payload []byte) (string, error) {
	groups, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInput, "regroup payload: %s", err)
	}
	enc, err := bech32.Encode(hrp, groups)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInput, "encode: %s", err)
	}
	return enc, nil
}

// Decode returns the human readable prefix and the payload of a bech32
// string.
func Decode(enc string) (string, []byte, error) {
	hrp, groups, err := bech32.Decode(enc)
	if err != nil {
		return "", nil, errors.Wrapf(errors.ErrInput, "decode: %s", err)
	}
	payload, err := bech32.ConvertBits(groups, 5, 8, false)
	if err != nil {
		return "", nil, errors.Wrapf(errors.ErrInput, "regroup payload: %s", err)
	}
	return hrp, payload, nil
}

// DecodePrefixed decodes the string and requires it to carry the given
// prefix. Addresses of another network are rejected instead of silently
// accepted.
func DecodePrefixed(hrp, enc string) ([]byte, error) {
	got, payload, err := Decode(enc)
	if err != nil {
		return nil, err
	}
	if got != hrp {
		return nil, errors.Wrapf(errors.ErrInput, "prefix %q, want %q", got, hrp)
	}
	return payload, nil
}
