package escrow

import (
	"time"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
	"github.com/iov-one/settle/x"
	"github.com/iov-one/settle/x/identity"
	"github.com/iov-one/settle/x/ledger"
)

// outcome collects what a single operation did, so that it can be
// reported once the operation is committed.
type outcome struct {
	events  []Event
	payouts []payout
	// audit is set by privileged operations.
	audit []interface{}
}

type payout struct {
	kind   string
	amount int64
}

// handler implements every wallet operation. It is not safe for
// concurrent use; the Engine serializes all calls.
type handler struct {
	auth      x.Authenticator
	gate      identity.Gate
	ledger    *ledger.Controller
	escrows   orm.ModelBucket
	investors orm.ModelBucket
	events    orm.ModelBucket
}

func newHandler(auth x.Authenticator, gate identity.Gate, bank *ledger.Controller) *handler {
	return &handler{
		auth:      auth,
		gate:      gate,
		ledger:    bank,
		escrows:   NewBucket(),
		investors: NewInvestorBucket(),
		events:    NewEventBucket(),
	}
}

// Fund moves the total required amount from the payer to the wallet. In
// the marketplace mode the caller becomes the payer.
func (h *handler) Fund(ctx settle.Context, db settle.KVStore, out *outcome, msg *FundMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	esc, err := h.load(db, msg.PaymentID)
	if err != nil {
		return err
	}
	caller := x.MainSigner(ctx, h.auth)
	if caller == nil {
		return errors.Wrap(errors.ErrUnauthorized, "no caller")
	}
	if esc.Payer != nil && !h.auth.HasAddress(ctx, esc.Payer) {
		return errors.Wrap(errors.ErrUnauthorized, "payer only")
	}
	if esc.State != StateCreated {
		return errors.Wrapf(errors.ErrState, "cannot fund in %s", esc.State)
	}

	payer := esc.Payer
	if payer == nil {
		payer = caller.Address()
	}
	if err := h.ledger.Transfer(ctx, db, esc.PaymentID, payer, esc.Address, esc.TotalRequired); err != nil {
		return errors.Wrap(err, "funding")
	}
	if esc.Payer == nil {
		esc.Payer = payer
		if err := h.gate.GrantTrust(db, esc.PaymentID, payer); err != nil {
			return err
		}
	}
	return h.transition(ctx, db, out, esc, StateFunded, false)
}

// SubmitProof records the payee proof of delivery and opens the dispute
// window.
func (h *handler) SubmitProof(ctx settle.Context, db settle.KVStore, out *outcome, msg *SubmitProofMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	esc, err := h.load(db, msg.PaymentID)
	if err != nil {
		return err
	}
	if err := h.requireRole(ctx, esc, RolePayee); err != nil {
		return err
	}
	if esc.State != StateFunded || esc.Proof.IsSet() {
		return errors.Wrapf(errors.ErrState, "cannot submit proof in %s", esc.State)
	}
	hash := msg.Hash()
	if !msg.PubKey.Address().Equals(esc.Payee) {
		return errors.Wrap(errors.ErrUnauthorized, "proof key is not the payee key")
	}
	if !msg.PubKey.Verify(hash, msg.Signature) {
		return errors.Wrap(errors.ErrUnauthorized, "invalid proof signature")
	}
	now, err := settle.MustBlockTime(ctx)
	if err != nil {
		return err
	}
	esc.Proof = Proof{
		Data:        msg.Data,
		DataHash:    hash,
		Signature:   msg.Signature.Ed25519,
		SubmittedAt: now,
	}
	return h.transition(ctx, db, out, esc, StateProofSubmitted, false)
}

// RaiseDispute contests the proof while the dispute window is open.
func (h *handler) RaiseDispute(ctx settle.Context, db settle.KVStore, out *outcome, msg *RaiseDisputeMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	esc, err := h.load(db, msg.PaymentID)
	if err != nil {
		return err
	}
	if err := h.requireRole(ctx, esc, RolePayer); err != nil {
		return err
	}
	if esc.State != StateProofSubmitted {
		return errors.Wrapf(errors.ErrState, "cannot dispute in %s", esc.State)
	}
	now, err := blockTime(ctx)
	if err != nil {
		return err
	}
	if !esc.IsWindowOpen(now) {
		return errors.Wrapf(ErrWindowClosed, "closed at %s", esc.Clock().Deadline(esc.Proof.SubmittedAt).UTC())
	}
	return h.transition(ctx, db, out, esc, StateDisputed, false)
}

// ResolveDispute either refunds the payer or resumes the signature flow.
func (h *handler) ResolveDispute(ctx settle.Context, db settle.KVStore, out *outcome, msg *ResolveDisputeMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	esc, err := h.load(db, msg.PaymentID)
	if err != nil {
		return err
	}
	if err := h.requireRole(ctx, esc, RoleInvestor); err != nil {
		return err
	}
	if esc.State != StateDisputed {
		return errors.Wrapf(errors.ErrState, "cannot resolve in %s", esc.State)
	}
	if msg.Refund {
		return h.refund(ctx, db, out, esc, false)
	}
	return h.transition(ctx, db, out, esc, StateProofSubmitted, false)
}

// Sign records the signature of a role and settles the wallet once a
// payout combination is complete.
func (h *handler) Sign(ctx settle.Context, db settle.KVStore, out *outcome, msg *SignMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	esc, err := h.load(db, msg.PaymentID)
	if err != nil {
		return err
	}
	if err := h.requireRole(ctx, esc, msg.Role); err != nil {
		return err
	}
	if !msg.PubKey.Address().Equals(esc.RoleAddress(msg.Role)) {
		return errors.Wrapf(errors.ErrUnauthorized, "key is not the %s key", msg.Role)
	}
	if !msg.PubKey.Verify(SignBytes(esc.PaymentID, msg.Role), msg.Signature) {
		return errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}
	now, err := blockTime(ctx)
	if err != nil {
		return err
	}

	switch msg.Role {
	case RolePayee:
		if esc.State != StateProofSubmitted {
			return errors.Wrapf(errors.ErrState, "payee cannot sign in %s", esc.State)
		}
		if esc.IsWindowOpen(now) {
			return errors.Wrapf(ErrWindowOpen, "open until %s", esc.Clock().Deadline(esc.Proof.SubmittedAt).UTC())
		}
	default:
		if esc.State != StateFunded && esc.State != StateProofSubmitted {
			return errors.Wrapf(errors.ErrState, "%s cannot sign in %s", msg.Role, esc.State)
		}
	}

	approval := esc.Approval(msg.Role)
	if approval.Signed {
		return errors.Wrapf(ErrAlreadySigned, "%s", msg.Role)
	}
	*approval = Approval{
		Signed:    true,
		PubKey:    msg.PubKey.Ed25519,
		Signature: msg.Signature.Ed25519,
		SignedAt:  settle.AsUnixTime(now),
	}

	switch {
	case esc.InvestorApproval.Signed && esc.PayeeApproval.Signed &&
		esc.State == StateProofSubmitted && !esc.IsWindowOpen(now):
		return h.release(ctx, db, out, esc)
	case esc.InvestorApproval.Signed && esc.PayerApproval.Signed:
		return h.refund(ctx, db, out, esc, false)
	}
	if _, err := h.escrows.Put(db, esc.PaymentID, esc); err != nil {
		return errors.Wrap(err, "cannot store escrow")
	}
	return nil
}

// ManualRefund is the investor override returning the total to the payer
// without a full signature set.
func (h *handler) ManualRefund(ctx settle.Context, db settle.KVStore, out *outcome, msg *ManualRefundMsg) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	esc, err := h.load(db, msg.PaymentID)
	if err != nil {
		return err
	}
	if err := h.requireRole(ctx, esc, RoleInvestor); err != nil {
		return err
	}
	if esc.State != StateFunded && esc.State != StateProofSubmitted {
		return errors.Wrapf(errors.ErrState, "cannot refund in %s", esc.State)
	}
	out.audit = []interface{}{
		"audit", true,
		"privileged", "manual_refund",
		"caller", esc.Investor,
		"state", esc.State,
		"payer_signed", esc.PayerApproval.Signed,
		"payee_signed", esc.PayeeApproval.Signed,
		"investor_signed", esc.InvestorApproval.Signed,
	}
	return h.refund(ctx, db, out, esc, true)
}

// load returns the wallet, rejecting wallets in a terminal state.
func (h *handler) load(db settle.ReadOnlyKVStore, paymentID []byte) (*Escrow, error) {
	var esc Escrow
	if err := h.escrows.One(db, paymentID, &esc); err != nil {
		return nil, errors.Wrap(err, "cannot load escrow")
	}
	if esc.State.IsTerminal() {
		return nil, errors.Wrapf(ErrTerminalState, "escrow %X is %s", paymentID, esc.State)
	}
	return &esc, nil
}

func (h *handler) requireRole(ctx settle.Context, esc *Escrow, r Role) error {
	addr := esc.RoleAddress(r)
	if addr == nil || !h.auth.HasAddress(ctx, addr) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s only", r)
	}
	return nil
}

// transition stores the wallet in the new state and appends the event.
func (h *handler) transition(ctx settle.Context, db settle.KVStore, out *outcome, esc *Escrow, to State, privileged bool) error {
	now, err := settle.MustBlockTime(ctx)
	if err != nil {
		return err
	}
	from := esc.State
	esc.State = to
	if _, err := h.escrows.Put(db, esc.PaymentID, esc); err != nil {
		return errors.Wrap(err, "cannot store escrow")
	}
	ev := Event{
		PaymentID:  esc.PaymentID,
		From:       from,
		To:         to,
		Actor:      x.MainSigner(ctx, h.auth).Address(),
		At:         now,
		Privileged: privileged,
	}
	if _, err := h.events.Put(db, nil, &ev); err != nil {
		return errors.Wrap(err, "cannot store event")
	}
	out.events = append(out.events, ev)
	return nil
}

func blockTime(ctx settle.Context) (time.Time, error) {
	now, ok := settle.BlockTime(ctx)
	if !ok {
		return time.Time{}, errors.Wrap(errors.ErrHuman, "block time not present in the context")
	}
	return now, nil
}
