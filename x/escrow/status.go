package escrow

import (
	"time"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/x/identity"
	"github.com/iov-one/settle/x/ledger"
)

// Status is the snapshot of a wallet returned by Engine.GetStatus.
type Status struct {
	PaymentID  []byte     `json:"payment_id"`
	State      string     `json:"state"`
	Escrow     *Escrow    `json:"escrow"`
	Signatures Signatures `json:"signatures"`
	Balances   Balances   `json:"balances"`
	Timers     Timers     `json:"timers"`
	// Grants lists trust and contract grants within this payment.
	Grants []identity.Grant `json:"grants"`
}

// Signatures tells which roles signed.
type Signatures struct {
	Payer    bool `json:"payer"`
	Payee    bool `json:"payee"`
	Investor bool `json:"investor"`
}

// Balances of every address the wallet pays to or from. Payer is zero
// while the payer is not bound.
type Balances struct {
	Wallet            int64 `json:"wallet"`
	Payer             int64 `json:"payer"`
	Payee             int64 `json:"payee"`
	InvestorFeeWallet int64 `json:"investor_fee_wallet"`
	OwnerFeeWallet    int64 `json:"owner_fee_wallet"`
}

// Timers of the dispute window. SubmittedAt and DisputeDeadline are zero
// until a proof is submitted.
type Timers struct {
	Now             time.Time `json:"now"`
	CreatedAt       time.Time `json:"created_at"`
	SubmittedAt     time.Time `json:"submitted_at"`
	DisputeDeadline time.Time `json:"dispute_deadline"`
	WindowOpen      bool      `json:"window_open"`
}

func newStatus(db settle.ReadOnlyKVStore, bank *ledger.Controller, esc *Escrow, grants []identity.Grant, now time.Time) (*Status, error) {
	st := &Status{
		PaymentID: esc.PaymentID,
		Grants:    grants,
		State:     esc.State.String(),
		Escrow:    esc,
		Signatures: Signatures{
			Payer:    esc.PayerApproval.Signed,
			Payee:    esc.PayeeApproval.Signed,
			Investor: esc.InvestorApproval.Signed,
		},
		Timers: Timers{
			Now:        now.UTC(),
			CreatedAt:  esc.CreatedAt.Time().UTC(),
			WindowOpen: esc.IsWindowOpen(now),
		},
	}
	if esc.Proof.IsSet() {
		st.Timers.SubmittedAt = esc.Proof.SubmittedAt.Time().UTC()
		st.Timers.DisputeDeadline = esc.Clock().Deadline(esc.Proof.SubmittedAt).UTC()
	}

	balances := []struct {
		addr settle.Address
		dst  *int64
	}{
		{esc.Address, &st.Balances.Wallet},
		{esc.Payer, &st.Balances.Payer},
		{esc.Payee, &st.Balances.Payee},
		{esc.InvestorFeeWallet, &st.Balances.InvestorFeeWallet},
		{esc.OwnerFeeWallet, &st.Balances.OwnerFeeWallet},
	}
	for _, b := range balances {
		if b.addr == nil {
			continue
		}
		amount, err := bank.BalanceOf(db, b.addr)
		if err != nil {
			return nil, err
		}
		*b.dst = amount
	}
	return st, nil
}
