package escrow

import (
	"crypto/sha256"
	"time"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
)

// State of an escrow wallet.
type State int32

const (
	StateCreated State = iota + 1
	StateFunded
	StateProofSubmitted
	StateDisputed
	StateReleased
	StateRefunded
)

var stateNames = map[State]string{
	StateCreated:        "created",
	StateFunded:         "funded",
	StateProofSubmitted: "proof_submitted",
	StateDisputed:       "disputed",
	StateReleased:       "released",
	StateRefunded:       "refunded",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "none"
}

// IsTerminal returns true for the states no wallet ever leaves.
func (s State) IsTerminal() bool {
	return s == StateReleased || s == StateRefunded
}

func (s State) Validate() error {
	if _, ok := stateNames[s]; !ok {
		return errors.Wrapf(errors.ErrState, "unknown state %d", s)
	}
	return nil
}

// Role of a party that can sign a wallet settlement.
type Role int32

const (
	RolePayer Role = iota + 1
	RolePayee
	RoleInvestor
)

func (r Role) String() string {
	switch r {
	case RolePayer:
		return "payer"
	case RolePayee:
		return "payee"
	case RoleInvestor:
		return "investor"
	}
	return "unknown"
}

// ParseRole returns the role of the given name.
func ParseRole(name string) (Role, error) {
	for _, r := range []Role{RolePayer, RolePayee, RoleInvestor} {
		if r.String() == name {
			return r, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrInput, "unknown role %q", name)
}

func (r Role) Validate() error {
	if r < RolePayer || r > RoleInvestor {
		return errors.Wrapf(errors.ErrInput, "unknown role %d", r)
	}
	return nil
}

// SignBytes returns the message a party signs to settle the wallet in the
// given role.
func SignBytes(paymentID []byte, role Role) []byte {
	prefix := "escrow/sign/" + role.String() + "/"
	return append([]byte(prefix), paymentID...)
}

// Proof of delivery submitted by the payee.
type Proof struct {
	Data     []byte `json:"data"`
	DataHash []byte `json:"data_hash"`
	// Signature is the payee signature of DataHash.
	Signature   []byte          `json:"signature"`
	SubmittedAt settle.UnixTime `json:"submitted_at"`
}

// IsSet returns true once the proof was submitted.
func (p *Proof) IsSet() bool {
	return len(p.DataHash) != 0
}

// Approval is the settlement signature of a single role.
type Approval struct {
	Signed    bool            `json:"signed"`
	PubKey    []byte          `json:"pub_key,omitempty"`
	Signature []byte          `json:"signature,omitempty"`
	SignedAt  settle.UnixTime `json:"signed_at,omitempty"`
}

// Escrow is the record of a single escrow wallet.
type Escrow struct {
	PaymentID []byte `json:"payment_id"`
	// Address is the account holding the funds. No key controls it.
	Address           settle.Address `json:"address"`
	Payer             settle.Address `json:"payer,omitempty"`
	Payee             settle.Address `json:"payee"`
	Investor          settle.Address `json:"investor"`
	InvestorFeeWallet settle.Address `json:"investor_fee_wallet"`
	Owner             settle.Address `json:"owner"`
	OwnerFeeWallet    settle.Address `json:"owner_fee_wallet"`
	Amount            int64          `json:"amount"`
	InvestorFee       int64          `json:"investor_fee"`
	OwnerFee          int64          `json:"owner_fee"`
	TotalRequired     int64          `json:"total_required"`
	State             State          `json:"state"`
	Proof             Proof          `json:"proof"`
	PayerApproval     Approval       `json:"payer_approval"`
	PayeeApproval     Approval       `json:"payee_approval"`
	InvestorApproval  Approval       `json:"investor_approval"`
	// DisputeWindow is expressed in seconds.
	DisputeWindow int64           `json:"dispute_window"`
	CreatedAt     settle.UnixTime `json:"created_at"`
}

func (e *Escrow) Validate() error {
	var errs error
	if len(e.PaymentID) == 0 {
		errs = errors.AppendField(errs, "PaymentID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Address", e.Address.Validate())
	if e.Payer != nil {
		errs = errors.AppendField(errs, "Payer", e.Payer.Validate())
	}
	errs = errors.AppendField(errs, "Payee", e.Payee.Validate())
	errs = errors.AppendField(errs, "Investor", e.Investor.Validate())
	errs = errors.AppendField(errs, "InvestorFeeWallet", e.InvestorFeeWallet.Validate())
	errs = errors.AppendField(errs, "Owner", e.Owner.Validate())
	errs = errors.AppendField(errs, "OwnerFeeWallet", e.OwnerFeeWallet.Validate())
	if e.Amount <= 0 {
		errs = errors.AppendField(errs, "Amount", errors.ErrAmount)
	}
	if e.InvestorFee < 0 {
		errs = errors.AppendField(errs, "InvestorFee", errors.ErrAmount)
	}
	if e.OwnerFee < 0 {
		errs = errors.AppendField(errs, "OwnerFee", errors.ErrAmount)
	}
	if e.TotalRequired != e.Amount+e.InvestorFee+e.OwnerFee {
		errs = errors.AppendField(errs, "TotalRequired", errors.ErrAmount)
	}
	errs = errors.AppendField(errs, "State", e.State.Validate())
	if e.DisputeWindow <= 0 {
		errs = errors.AppendField(errs, "DisputeWindow", errors.ErrInput)
	}
	if e.State >= StateProofSubmitted && e.State != StateRefunded && !e.Proof.IsSet() {
		errs = errors.AppendField(errs, "Proof", errors.ErrEmpty)
	}
	if e.Proof.IsSet() {
		if len(e.Proof.DataHash) != sha256.Size {
			errs = errors.AppendField(errs, errors.FieldPath("Proof", "DataHash"), errors.ErrInput)
		}
		if len(e.Proof.Signature) == 0 {
			errs = errors.AppendField(errs, errors.FieldPath("Proof", "Signature"), errors.ErrEmpty)
		}
	}
	approvals := []struct {
		name string
		a    Approval
	}{
		{"PayerApproval", e.PayerApproval},
		{"PayeeApproval", e.PayeeApproval},
		{"InvestorApproval", e.InvestorApproval},
	}
	for _, ap := range approvals {
		if !ap.a.Signed {
			continue
		}
		if len(ap.a.PubKey) == 0 {
			errs = errors.AppendField(errs, errors.FieldPath(ap.name, "PubKey"), errors.ErrEmpty)
		}
		if len(ap.a.Signature) == 0 {
			errs = errors.AppendField(errs, errors.FieldPath(ap.name, "Signature"), errors.ErrEmpty)
		}
	}
	if e.State != StateCreated && e.Payer == nil {
		errs = errors.AppendField(errs, "Payer", errors.ErrEmpty)
	}
	return errs
}

// Clock returns the dispute clock of this wallet.
func (e *Escrow) Clock() DisputeClock {
	return DisputeClock{Window: time.Duration(e.DisputeWindow) * time.Second}
}

// IsWindowOpen returns true if a proof was submitted and its dispute window
// is open at the given time.
func (e *Escrow) IsWindowOpen(now time.Time) bool {
	return e.Proof.IsSet() && e.Clock().IsWindowOpen(e.Proof.SubmittedAt, now)
}

// RoleAddress returns the address bound to the role, or nil if the role is
// not bound yet.
func (e *Escrow) RoleAddress(r Role) settle.Address {
	switch r {
	case RolePayer:
		return e.Payer
	case RolePayee:
		return e.Payee
	case RoleInvestor:
		return e.Investor
	}
	return nil
}

// Approval returns the approval slot of the role.
func (e *Escrow) Approval(r Role) *Approval {
	switch r {
	case RolePayer:
		return &e.PayerApproval
	case RolePayee:
		return &e.PayeeApproval
	case RoleInvestor:
		return &e.InvestorApproval
	}
	return nil
}

// Condition calculates the address of an escrow given the key.
func Condition(key []byte) settle.Condition {
	return settle.NewCondition("escrow", "seq", key)
}

var escrowSeq = orm.NewSequence("escrow", "id")

// NewBucket returns the bucket of escrow wallets, indexed by every party.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket("escrow", &Escrow{},
		orm.WithIDSequence(escrowSeq),
		orm.WithIndex("payer", idxPayer, false),
		orm.WithIndex("payee", idxPayee, false),
		orm.WithIndex("investor", idxInvestor, false),
	)
}

func toEscrow(m orm.Model) (*Escrow, error) {
	esc, ok := m.(*Escrow)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "can only take index of Escrow, got %T", m)
	}
	return esc, nil
}

func idxPayer(m orm.Model) ([][]byte, error) {
	esc, err := toEscrow(m)
	if err != nil {
		return nil, err
	}
	if esc.Payer == nil {
		return nil, nil
	}
	return [][]byte{esc.Payer}, nil
}

func idxPayee(m orm.Model) ([][]byte, error) {
	esc, err := toEscrow(m)
	if err != nil {
		return nil, err
	}
	return [][]byte{esc.Payee}, nil
}

func idxInvestor(m orm.Model) ([][]byte, error) {
	esc, err := toEscrow(m)
	if err != nil {
		return nil, err
	}
	return [][]byte{esc.Investor}, nil
}

// Investor binds a fee collection wallet to an investor.
type Investor struct {
	Address   settle.Address `json:"address"`
	FeeWallet settle.Address `json:"fee_wallet"`
}

func (i *Investor) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Address", i.Address.Validate())
	errs = errors.AppendField(errs, "FeeWallet", i.FeeWallet.Validate())
	if i.Address.Equals(i.FeeWallet) {
		errs = errors.AppendField(errs, "FeeWallet", errors.Wrap(errors.ErrInput, "must differ from the investor address"))
	}
	return errs
}

// NewInvestorBucket returns the bucket of registered investors.
func NewInvestorBucket() orm.ModelBucket {
	return orm.NewModelBucket("investor", &Investor{})
}

// Event is an append only record of a single wallet state transition.
type Event struct {
	PaymentID []byte          `json:"payment_id"`
	From      State           `json:"from"`
	To        State           `json:"to"`
	Actor     settle.Address  `json:"actor"`
	At        settle.UnixTime `json:"at"`
	// Privileged is set for transitions that bypassed the signature rule.
	Privileged bool `json:"privileged,omitempty"`
}

func (e *Event) Validate() error {
	var errs error
	if len(e.PaymentID) == 0 {
		errs = errors.AppendField(errs, "PaymentID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "To", e.To.Validate())
	errs = errors.AppendField(errs, "Actor", e.Actor.Validate())
	return errs
}

var eventSeq = orm.NewSequence("escrow_event", "id")

// NewEventBucket returns the bucket of transition events, indexed by the
// payment they belong to.
func NewEventBucket() orm.ModelBucket {
	return orm.NewModelBucket("escrow_event", &Event{},
		orm.WithIDSequence(eventSeq),
		orm.WithIndex("payment", idxPayment, false),
	)
}

func idxPayment(m orm.Model) ([][]byte, error) {
	ev, ok := m.(*Event)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "can only take index of Event, got %T", m)
	}
	return [][]byte{ev.PaymentID}, nil
}
