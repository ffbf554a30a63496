package identity

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

const optKey = "identity"

// Initializer fulfils the settle.Initializer interface to load the list of
// eligible addresses from the genesis file.
type Initializer struct{}

var _ settle.Initializer = Initializer{}

// FromGenesis will parse eligible addresses from genesis and save them to
// the database.
func (Initializer) FromGenesis(opts settle.Options, db settle.KVStore) error {
	var gen struct {
		Eligible []settle.Address `json:"eligible"`
	}
	if err := opts.ReadOptions(optKey, &gen); err != nil {
		return err
	}
	ctrl := NewController()
	for i, a := range gen.Eligible {
		if err := a.Validate(); err != nil {
			return errors.Field(errors.FieldPath("Eligible", i), err, "")
		}
		if err := ctrl.SetEligible(db, a, true); err != nil {
			return err
		}
	}
	return nil
}
