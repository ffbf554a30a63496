package escrow

import (
	"math"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/x"
)

// RegisterInvestor binds the fee wallet to the calling investor. A second
// registration overwrites the first one, but wallets created before keep
// the fee wallet they were created with.
func (h *handler) RegisterInvestor(ctx settle.Context, db settle.KVStore, out *outcome, msg *RegisterInvestorMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	if !h.auth.HasAddress(ctx, msg.Investor) {
		return errors.Wrap(errors.ErrUnauthorized, "investor only")
	}
	inv := Investor{Address: msg.Investor, FeeWallet: msg.FeeWallet}
	if _, err := h.investors.Put(db, inv.Address, &inv); err != nil {
		return errors.Wrap(err, "cannot store investor")
	}
	return nil
}

// Create stores a new wallet in the Created state. Within the scope of the
// new payment it registers the wallet and both fee wallets as contract
// accounts and grants trust to the payee and the bound payer. It returns
// the payment ID.
func (h *handler) Create(ctx settle.Context, db settle.KVStore, out *outcome, msg *CreateMsg) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}
	if x.MainSigner(ctx, h.auth) == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no caller")
	}

	var inv Investor
	switch err := h.investors.One(db, msg.Investor, &inv); {
	case err == nil:
	case errors.ErrNotFound.Is(err):
		return nil, errors.Wrapf(ErrUnknownInvestor, "%s", msg.Investor)
	default:
		return nil, errors.Wrap(err, "cannot load investor")
	}

	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}

	if err := h.requireEligible(db, "payee", msg.Payee); err != nil {
		return nil, err
	}
	if msg.Payer != nil {
		if err := h.requireEligible(db, "payer", msg.Payer); err != nil {
			return nil, err
		}
	}

	investorFee, err := conf.InvestorFeeRate.MulFloor(msg.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "investor fee")
	}
	ownerFee, err := conf.OwnerFeeRate.MulFloor(msg.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "owner fee")
	}
	total, err := sum(msg.Amount, investorFee, ownerFee)
	if err != nil {
		return nil, err
	}

	now, err := settle.MustBlockTime(ctx)
	if err != nil {
		return nil, err
	}
	id, err := escrowSeq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire key")
	}
	esc := &Escrow{
		PaymentID:         id,
		Address:           Condition(id).Address(),
		Payer:             msg.Payer,
		Payee:             msg.Payee,
		Investor:          msg.Investor,
		InvestorFeeWallet: inv.FeeWallet,
		Owner:             conf.Owner,
		OwnerFeeWallet:    conf.OwnerFeeWallet,
		Amount:            msg.Amount,
		InvestorFee:       investorFee,
		OwnerFee:          ownerFee,
		TotalRequired:     total,
		DisputeWindow:     conf.DisputeWindow,
		CreatedAt:         now,
	}
	err = h.gate.GrantContract(db, id, esc.Address, esc.InvestorFeeWallet, esc.OwnerFeeWallet)
	if err != nil {
		return nil, errors.Wrap(err, "cannot register contract accounts")
	}
	if err := h.gate.GrantTrust(db, id, esc.Payee, esc.Payer); err != nil {
		return nil, errors.Wrap(err, "cannot grant trust")
	}
	if err := h.transition(ctx, db, out, esc, StateCreated, false); err != nil {
		return nil, err
	}
	return id, nil
}

func (h *handler) requireEligible(db settle.ReadOnlyKVStore, role string, addr settle.Address) error {
	ok, err := h.gate.IsEligible(db, addr)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrIneligible, "%s %s", role, addr)
	}
	return nil
}

func sum(vals ...int64) (int64, error) {
	var total int64
	for _, v := range vals {
		if total > math.MaxInt64-v {
			return 0, errors.Wrap(errors.ErrOverflow, "total required")
		}
		total += v
	}
	return total, nil
}
