package identity

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
)

// Gate is the compliance gate consulted by the ledger and the escrow
// registry.
type Gate interface {
	// IsEligible returns true if the address passed compliance.
	IsEligible(db settle.ReadOnlyKVStore, addr settle.Address) (bool, error)
	// IsTrusted returns true if the address was granted trust within
	// the given scope. Trust exempts from transfer limits, never from
	// eligibility.
	IsTrusted(db settle.ReadOnlyKVStore, scope []byte, addr settle.Address) (bool, error)
	// IsContract returns true if the address was registered as a
	// contract account within the scope.
	IsContract(db settle.ReadOnlyKVStore, scope []byte, addr settle.Address) (bool, error)
	// GrantTrust trusts all given addresses within the scope. Granting
	// trust twice is a noop.
	GrantTrust(db settle.KVStore, scope []byte, addrs ...settle.Address) error
	// GrantContract trusts all given addresses within the scope and
	// exempts them from the eligibility check in that scope only.
	GrantContract(db settle.KVStore, scope []byte, addrs ...settle.Address) error
	// Grants returns all grants given within the scope.
	Grants(db settle.ReadOnlyKVStore, scope []byte) ([]Grant, error)
}

// Controller is the Gate backed by the identity and trust buckets.
type Controller struct {
	identities orm.ModelBucket
	grants     orm.ModelBucket
}

var _ Gate = (*Controller)(nil)

// NewController returns a gate reading and writing its own buckets.
func NewController() *Controller {
	return &Controller{
		identities: NewIdentityBucket(),
		grants:     NewGrantBucket(),
	}
}

func (c *Controller) IsEligible(db settle.ReadOnlyKVStore, addr settle.Address) (bool, error) {
	var ident Identity
	switch err := c.identities.One(db, addr, &ident); {
	case err == nil:
		return ident.Eligible, nil
	case errors.ErrNotFound.Is(err):
		return false, nil
	default:
		return false, errors.Wrap(err, "identity")
	}
}

// SetEligible records the compliance decision for the address. A revoked
// address keeps every trust grant it was given.
func (c *Controller) SetEligible(db settle.KVStore, addr settle.Address, eligible bool) error {
	ident := Identity{Address: addr, Eligible: eligible}
	if _, err := c.identities.Put(db, addr, &ident); err != nil {
		return errors.Wrap(err, "cannot store identity")
	}
	return nil
}

func (c *Controller) IsTrusted(db settle.ReadOnlyKVStore, scope []byte, addr settle.Address) (bool, error) {
	g, err := c.grant(db, scope, addr)
	return g != nil, err
}

func (c *Controller) IsContract(db settle.ReadOnlyKVStore, scope []byte, addr settle.Address) (bool, error) {
	g, err := c.grant(db, scope, addr)
	return g != nil && g.Contract, err
}

func (c *Controller) GrantTrust(db settle.KVStore, scope []byte, addrs ...settle.Address) error {
	return c.put(db, scope, false, addrs)
}

func (c *Controller) GrantContract(db settle.KVStore, scope []byte, addrs ...settle.Address) error {
	return c.put(db, scope, true, addrs)
}

// grant returns nil if the address holds no grant in the scope.
func (c *Controller) grant(db settle.ReadOnlyKVStore, scope []byte, addr settle.Address) (*Grant, error) {
	var g Grant
	switch err := c.grants.One(db, grantKey(scope, addr), &g); {
	case err == nil:
		return &g, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, errors.Wrap(err, "trust grant")
	}
}

// put never downgrades a contract grant to a plain one.
func (c *Controller) put(db settle.KVStore, scope []byte, contract bool, addrs []settle.Address) error {
	for _, a := range addrs {
		if a == nil {
			continue
		}
		prev, err := c.grant(db, scope, a)
		if err != nil {
			return err
		}
		g := Grant{Scope: scope, Address: a, Contract: contract || (prev != nil && prev.Contract)}
		if _, err := c.grants.Put(db, grantKey(scope, a), &g); err != nil {
			return errors.Wrapf(err, "grant trust to %s", a)
		}
	}
	return nil
}

// Grants returns all grants given within the scope.
func (c *Controller) Grants(db settle.ReadOnlyKVStore, scope []byte) ([]Grant, error) {
	var grants []Grant
	if _, err := c.grants.ByIndex(db, "scope", scope, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}
