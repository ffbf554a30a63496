package escrow

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/x/ledger"
)

// release pays the amount to the payee and both fees to their wallets in a
// single multi transfer.
func (h *handler) release(ctx settle.Context, db settle.KVStore, out *outcome, esc *Escrow) error {
	err := h.ledger.MultiTransfer(ctx, db, esc.PaymentID, esc.Address,
		ledger.Leg{To: esc.Payee, Amount: esc.Amount},
		ledger.Leg{To: esc.InvestorFeeWallet, Amount: esc.InvestorFee},
		ledger.Leg{To: esc.OwnerFeeWallet, Amount: esc.OwnerFee},
	)
	if err != nil {
		return errors.Wrap(err, "release")
	}
	out.payouts = append(out.payouts,
		payout{kind: "principal", amount: esc.Amount},
		payout{kind: "investor_fee", amount: esc.InvestorFee},
		payout{kind: "owner_fee", amount: esc.OwnerFee},
	)
	return h.transition(ctx, db, out, esc, StateReleased, false)
}

// refund returns the total required amount to the payer.
func (h *handler) refund(ctx settle.Context, db settle.KVStore, out *outcome, esc *Escrow, privileged bool) error {
	if esc.Payer == nil {
		return errors.Wrap(errors.ErrHuman, "refund of an escrow without payer")
	}
	if err := h.ledger.Transfer(ctx, db, esc.PaymentID, esc.Address, esc.Payer, esc.TotalRequired); err != nil {
		return errors.Wrap(err, "refund")
	}
	out.payouts = append(out.payouts, payout{kind: "refund", amount: esc.TotalRequired})
	return h.transition(ctx, db, out, esc, StateRefunded, privileged)
}
