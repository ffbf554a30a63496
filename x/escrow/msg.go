package escrow

import (
	"bytes"
	"crypto/sha256"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/crypto"
	"github.com/iov-one/settle/errors"
)

// Msg is implemented by every request handled by this package.
type Msg interface {
	Validate() error
}

var (
	_ Msg = (*RegisterInvestorMsg)(nil)
	_ Msg = (*CreateMsg)(nil)
	_ Msg = (*FundMsg)(nil)
	_ Msg = (*SubmitProofMsg)(nil)
	_ Msg = (*RaiseDisputeMsg)(nil)
	_ Msg = (*ResolveDisputeMsg)(nil)
	_ Msg = (*SignMsg)(nil)
	_ Msg = (*ManualRefundMsg)(nil)
)

// RegisterInvestorMsg binds a fee wallet to the investor.
type RegisterInvestorMsg struct {
	Investor  settle.Address
	FeeWallet settle.Address
}

func (m *RegisterInvestorMsg) Validate() error {
	inv := Investor{Address: m.Investor, FeeWallet: m.FeeWallet}
	return inv.Validate()
}

// CreateMsg requests a new escrow wallet. A nil Payer creates the wallet
// in the marketplace mode, where the first funder becomes the payer.
type CreateMsg struct {
	Payer    settle.Address
	Payee    settle.Address
	Investor settle.Address
	Amount   int64
}

func (m *CreateMsg) Validate() error {
	var errs error
	if m.Payer != nil {
		errs = errors.AppendField(errs, "Payer", m.Payer.Validate())
	}
	errs = errors.AppendField(errs, "Payee", m.Payee.Validate())
	errs = errors.AppendField(errs, "Investor", m.Investor.Validate())
	if m.Amount <= 0 {
		errs = errors.AppendField(errs, "Amount", errors.Wrapf(errors.ErrAmount, "%d", m.Amount))
	}
	return errs
}

// FundMsg moves the total required amount from the caller to the wallet.
type FundMsg struct {
	PaymentID []byte
}

func (m *FundMsg) Validate() error {
	return validatePaymentID(m.PaymentID)
}

// SubmitProofMsg carries the payee proof of delivery. DataHash is
// optional; when given it must match the hash of Data.
type SubmitProofMsg struct {
	PaymentID []byte
	Data      []byte
	DataHash  []byte
	PubKey    *crypto.PublicKey
	Signature *crypto.Signature
}

func (m *SubmitProofMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "PaymentID", validatePaymentID(m.PaymentID))
	if len(m.Data) == 0 {
		errs = errors.AppendField(errs, "Data", errors.ErrEmpty)
	}
	if len(m.DataHash) != 0 && !bytes.Equal(m.DataHash, m.Hash()) {
		errs = errors.AppendField(errs, "DataHash", errors.Wrap(errors.ErrInput, "does not match data"))
	}
	errs = errors.AppendField(errs, "PubKey", m.PubKey.Validate())
	errs = errors.AppendField(errs, "Signature", m.Signature.Validate())
	return errs
}

// Hash returns the sha256 hash of the proof data.
func (m *SubmitProofMsg) Hash() []byte {
	h := sha256.Sum256(m.Data)
	return h[:]
}

// RaiseDisputeMsg contests a submitted proof.
type RaiseDisputeMsg struct {
	PaymentID []byte
}

func (m *RaiseDisputeMsg) Validate() error {
	return validatePaymentID(m.PaymentID)
}

// ResolveDisputeMsg settles a dispute. Refund returns everything to the
// payer, otherwise the signature flow resumes.
type ResolveDisputeMsg struct {
	PaymentID []byte
	Refund    bool
}

func (m *ResolveDisputeMsg) Validate() error {
	return validatePaymentID(m.PaymentID)
}

// SignMsg records the settlement signature of a role.
type SignMsg struct {
	PaymentID []byte
	Role      Role
	PubKey    *crypto.PublicKey
	Signature *crypto.Signature
}

func (m *SignMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "PaymentID", validatePaymentID(m.PaymentID))
	errs = errors.AppendField(errs, "Role", m.Role.Validate())
	errs = errors.AppendField(errs, "PubKey", m.PubKey.Validate())
	errs = errors.AppendField(errs, "Signature", m.Signature.Validate())
	return errs
}

// ManualRefundMsg is the investor override returning everything to the
// payer regardless of signatures.
type ManualRefundMsg struct {
	PaymentID []byte
}

func (m *ManualRefundMsg) Validate() error {
	return validatePaymentID(m.PaymentID)
}

func validatePaymentID(id []byte) error {
	if len(id) == 0 {
		return errors.Wrap(errors.ErrEmpty, "payment id")
	}
	return nil
}
