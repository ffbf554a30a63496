package orm

import (
	"github.com/iov-one/settle/errors"
	amino "github.com/tendermint/go-amino"
)

// cdc serializes all models stored through this package. Models are plain
// Go structures, so no type registration is required.
var cdc = amino.NewCodec()

// Marshal serializes given model using the binary amino encoding.
func Marshal(m interface{}) ([]byte, error) {
	raw, err := cdc.MarshalBinaryBare(m)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModel, "marshal %T: %s", m, err)
	}
	return raw, nil
}

// Unmarshal loads the binary amino encoded data into dest, which must be a
// pointer.
func Unmarshal(raw []byte, dest interface{}) error {
	if err := cdc.UnmarshalBinaryBare(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrModel, "unmarshal %T: %s", dest, err)
	}
	return nil
}
