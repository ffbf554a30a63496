package ledger

import (
	"math"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
	"github.com/iov-one/settle/x/identity"
)

// Leg is a single destination of a multi transfer.
type Leg struct {
	To     settle.Address
	Amount int64
}

// Controller moves value between addresses.
type Controller struct {
	gate      identity.Gate
	balances  orm.ModelBucket
	transfers orm.ModelBucket
}

// NewController returns a ledger consulting given gate on every transfer.
func NewController(gate identity.Gate) *Controller {
	return &Controller{
		gate:      gate,
		balances:  NewBalanceBucket(),
		transfers: NewTransferBucket(),
	}
}

// BalanceOf returns the amount held by the address. Unknown addresses hold
// nothing.
func (c *Controller) BalanceOf(db settle.ReadOnlyKVStore, addr settle.Address) (int64, error) {
	var b Balance
	switch err := c.balances.One(db, addr, &b); {
	case err == nil:
		return b.Amount, nil
	case errors.ErrNotFound.Is(err):
		return 0, nil
	default:
		return 0, errors.Wrap(err, "balance")
	}
}

// Issue adds the amount to the balance of the address without consulting
// the gate. A negative amount removes value, but never below zero.
func (c *Controller) Issue(db settle.KVStore, addr settle.Address, amount int64) error {
	cur, err := c.BalanceOf(db, addr)
	if err != nil {
		return err
	}
	next, err := add(cur, amount)
	if err != nil {
		return err
	}
	if next < 0 {
		return errors.Wrapf(errors.ErrInsufficientFunds, "%s holds %d", addr, cur)
	}
	return c.save(db, addr, next)
}

// Transfer moves the amount from one address to another. Both endpoints
// must pass the gate within the scope. On failure nothing is written.
func (c *Controller) Transfer(ctx settle.Context, db settle.KVStore, scope []byte, from, to settle.Address, amount int64) error {
	conf, err := loadConf(db)
	if err != nil {
		return err
	}
	if err := c.move(ctx, db, conf, scope, from, to, amount); err != nil {
		return err
	}
	settle.GetLogger(ctx).Info("transfer",
		"scope", scopeString(scope), "from", from, "to", to, "amount", amount)
	return nil
}

// MultiTransfer moves value from one source to all destinations. Either
// every leg is executed or none is. Zero amount legs are skipped.
//
// Legs are executed against a cache wrap of the given store, so db must be
// cache wrappable.
func (c *Controller) MultiTransfer(ctx settle.Context, db settle.KVStore, scope []byte, from settle.Address, legs ...Leg) error {
	cstore, ok := db.(settle.CacheableKVStore)
	if !ok {
		return errors.Wrapf(errors.ErrHuman, "%T cannot be cache wrapped", db)
	}
	conf, err := loadConf(db)
	if err != nil {
		return err
	}

	cache := cstore.CacheWrap()
	for i, leg := range legs {
		if leg.Amount == 0 {
			continue
		}
		if err := c.move(ctx, cache, conf, scope, from, leg.To, leg.Amount); err != nil {
			cache.Discard()
			return errors.Wrapf(err, "leg %d", i)
		}
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "commit transfers")
	}

	logger := settle.GetLogger(ctx)
	for _, leg := range legs {
		if leg.Amount == 0 {
			continue
		}
		logger.Info("transfer",
			"scope", scopeString(scope), "from", from, "to", leg.To, "amount", leg.Amount)
	}
	return nil
}

// Transfers returns all transfers executed within the scope, oldest first.
func (c *Controller) Transfers(db settle.ReadOnlyKVStore, scope []byte) ([]TransferRecord, error) {
	var recs []TransferRecord
	if _, err := c.transfers.ByIndex(db, "scope", scope, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Controller) move(ctx settle.Context, db settle.KVStore, conf Configuration, scope []byte, from, to settle.Address, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrAmount, "%d", amount)
	}
	if from.Equals(to) {
		return errors.Wrap(errors.ErrInput, "source and destination must differ")
	}
	now, err := settle.MustBlockTime(ctx)
	if err != nil {
		return err
	}

	// Compliance is checked before funds so that the two rejections
	// never shadow each other.
	if err := c.admit(db, conf, scope, from, amount); err != nil {
		return errors.Wrap(err, "sender")
	}
	if err := c.admit(db, conf, scope, to, amount); err != nil {
		return errors.Wrap(err, "recipient")
	}

	src, err := c.BalanceOf(db, from)
	if err != nil {
		return err
	}
	if src < amount {
		return errors.Wrapf(errors.ErrInsufficientFunds, "%s holds %d, %d required", from, src, amount)
	}
	dst, err := c.BalanceOf(db, to)
	if err != nil {
		return err
	}
	dstNext, err := add(dst, amount)
	if err != nil {
		return err
	}

	if err := c.save(db, from, src-amount); err != nil {
		return err
	}
	if err := c.save(db, to, dstNext); err != nil {
		return err
	}
	rec := TransferRecord{Scope: scope, From: from, To: to, Amount: amount, At: now}
	if _, err := c.transfers.Put(db, nil, &rec); err != nil {
		return errors.Wrap(err, "cannot store transfer record")
	}
	return nil
}

// admit returns nil if the address may take part in a transfer of the
// amount within the scope. Every address must be eligible unless it is a
// contract account of the scope. Trust within the scope lifts the transfer
// limit only.
func (c *Controller) admit(db settle.ReadOnlyKVStore, conf Configuration, scope []byte, addr settle.Address, amount int64) error {
	var trusted bool
	if len(scope) > 0 {
		contract, err := c.gate.IsContract(db, scope, addr)
		if err != nil {
			return err
		}
		if contract {
			return nil
		}
		if trusted, err = c.gate.IsTrusted(db, scope, addr); err != nil {
			return err
		}
	}
	eligible, err := c.gate.IsEligible(db, addr)
	if err != nil {
		return err
	}
	if !eligible {
		return errors.Wrapf(errors.ErrIneligible, "%s", addr)
	}
	if !trusted && conf.TransferLimit > 0 && amount > conf.TransferLimit {
		return errors.Wrapf(errors.ErrIneligible, "%s: amount %d exceeds transfer limit %d", addr, amount, conf.TransferLimit)
	}
	return nil
}

func (c *Controller) save(db settle.KVStore, addr settle.Address, amount int64) error {
	b := Balance{Address: addr, Amount: amount}
	if _, err := c.balances.Put(db, addr, &b); err != nil {
		return errors.Wrap(err, "cannot store balance")
	}
	return nil
}

func add(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d + %d", a, b)
	}
	return a + b, nil
}

func scopeString(scope []byte) string {
	if len(scope) == 0 {
		return "-"
	}
	return settle.Address(scope).String()
}
