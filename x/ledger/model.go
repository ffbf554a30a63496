package ledger

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
)

// Balance is the amount held by a single address.
type Balance struct {
	Address settle.Address `json:"address"`
	Amount  int64          `json:"amount"`
}

func (b *Balance) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Address", b.Address.Validate())
	if b.Amount < 0 {
		errs = errors.AppendField(errs, "Amount", errors.ErrAmount)
	}
	return errs
}

// TransferRecord is an append only entry written for every executed
// transfer.
type TransferRecord struct {
	Scope  []byte          `json:"scope"`
	From   settle.Address  `json:"from"`
	To     settle.Address  `json:"to"`
	Amount int64           `json:"amount"`
	At     settle.UnixTime `json:"at"`
}

func (r *TransferRecord) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "From", r.From.Validate())
	errs = errors.AppendField(errs, "To", r.To.Validate())
	if r.Amount <= 0 {
		errs = errors.AppendField(errs, "Amount", errors.ErrAmount)
	}
	errs = errors.AppendField(errs, "At", r.At.Validate())
	return errs
}

// NewBalanceBucket returns a bucket storing balances by address.
func NewBalanceBucket() orm.ModelBucket {
	return orm.NewModelBucket("balance", &Balance{})
}

var transferSeq = orm.NewSequence("transfer", "id")

// NewTransferBucket returns a bucket storing transfer records, indexed by
// scope.
func NewTransferBucket() orm.ModelBucket {
	return orm.NewModelBucket("transfer", &TransferRecord{},
		orm.WithIDSequence(transferSeq),
		orm.WithIndex("scope", idxScope, false),
	)
}

func idxScope(m orm.Model) ([][]byte, error) {
	r, ok := m.(*TransferRecord)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	if len(r.Scope) == 0 {
		return nil, nil
	}
	return [][]byte{r.Scope}, nil
}
