package identity

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
)

// Identity is the compliance record of a single address.
type Identity struct {
	Address  settle.Address `json:"address"`
	Eligible bool           `json:"eligible"`
}

func (i *Identity) Validate() error {
	return errors.AppendField(nil, "Address", i.Address.Validate())
}

// Grant is a scoped trust capability given to a single address. A
// contract grant is given to accounts no compliance record can exist for,
// such as escrow wallets and fee collection wallets.
type Grant struct {
	Scope    []byte         `json:"scope"`
	Address  settle.Address `json:"address"`
	Contract bool           `json:"contract,omitempty"`
}

func (g *Grant) Validate() error {
	var errs error
	if len(g.Scope) == 0 {
		errs = errors.AppendField(errs, "Scope", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Address", g.Address.Validate())
	return errs
}

func grantKey(scope []byte, addr settle.Address) []byte {
	key := make([]byte, 0, len(scope)+1+len(addr))
	key = append(key, scope...)
	key = append(key, ':')
	return append(key, addr...)
}

// NewIdentityBucket returns a bucket storing identities by address.
func NewIdentityBucket() orm.ModelBucket {
	return orm.NewModelBucket("identity", &Identity{})
}

// NewGrantBucket returns a bucket storing trust grants, indexed by the
// scope they were given in.
func NewGrantBucket() orm.ModelBucket {
	return orm.NewModelBucket("trust", &Grant{},
		orm.WithIndex("scope", idxScope, false),
	)
}

func idxScope(m orm.Model) ([][]byte, error) {
	g, ok := m.(*Grant)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	return [][]byte{g.Scope}, nil
}
