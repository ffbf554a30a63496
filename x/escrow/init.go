package escrow

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
)

const optKey = "escrow"

// Initializer fulfils the settle.Initializer interface to load the escrow
// configuration and the registered investors from the genesis file.
type Initializer struct{}

var _ settle.Initializer = Initializer{}

// FromGenesis requires the "conf.escrow" configuration. Investors listed
// under "escrow.investors" are registered without a caller.
func (Initializer) FromGenesis(opts settle.Options, db settle.KVStore) error {
	var conf Configuration
	if err := gconf.InitConfig(db, opts, confPkg, &conf); err != nil {
		return err
	}

	var gen struct {
		Investors []Investor `json:"investors"`
	}
	if err := opts.ReadOptions(optKey, &gen); err != nil {
		return err
	}
	bucket := NewInvestorBucket()
	for i, inv := range gen.Investors {
		inv := inv
		if _, err := bucket.Put(db, inv.Address, &inv); err != nil {
			return errors.Field(errors.FieldPath("Investors", i), err, "")
		}
	}
	return nil
}
