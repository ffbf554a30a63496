package ledger

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
	"github.com/iov-one/settle/x/identity"
)

const optKey = "ledger"

// GenesisAccount is used to parse the json from genesis file.
type GenesisAccount struct {
	Address settle.Address `json:"address"`
	Amount  int64          `json:"amount"`
}

// Initializer fulfils the settle.Initializer interface to load balances from
// the genesis file.
type Initializer struct {
	Gate identity.Gate
}

var _ settle.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial balances and the optional ledger
// configuration from genesis and save them to the database.
func (i *Initializer) FromGenesis(opts settle.Options, db settle.KVStore) error {
	var accts []GenesisAccount
	if err := opts.ReadOptions(optKey, &accts); err != nil {
		return err
	}
	ctrl := NewController(i.Gate)
	for j, a := range accts {
		if err := a.Address.Validate(); err != nil {
			return errors.Field(errors.FieldPath(j, "Address"), err, "")
		}
		if a.Amount < 0 {
			return errors.Field(errors.FieldPath(j, "Amount"), errors.ErrAmount, "must not be negative")
		}
		if err := ctrl.Issue(db, a.Address, a.Amount); err != nil {
			return errors.Field(errors.FieldPath(j), err, "")
		}
	}

	var conf Configuration
	switch err := gconf.InitConfig(db, opts, confPkg, &conf); {
	case err == nil, errors.ErrNotFound.Is(err):
		return nil
	default:
		return err
	}
}
