package ledger

import (
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
)

const confPkg = "ledger"

// Configuration of the ledger. A zero TransferLimit disables the limit.
type Configuration struct {
	TransferLimit int64 `json:"transfer_limit"`
}

func (c *Configuration) Validate() error {
	if c.TransferLimit < 0 {
		return errors.Field("TransferLimit", errors.ErrAmount, "must not be negative")
	}
	return nil
}

func loadConf(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	switch err := gconf.Load(db, confPkg, &conf); {
	case err == nil:
		return conf, nil
	case errors.ErrNotFound.Is(err):
		return Configuration{}, nil
	default:
		return conf, errors.Wrap(err, "ledger configuration")
	}
}
