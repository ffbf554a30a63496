package escrow

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/crypto"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/x"
	"github.com/iov-one/settle/x/identity"
	"github.com/iov-one/settle/x/ledger"
	"github.com/iov-one/settle/x/utils"
	"github.com/tendermint/tendermint/libs/log"
)

// Engine executes escrow operations against a store. It is safe for
// concurrent use.
//
// Every call touching a wallet holds the lock of that wallet for its whole
// duration, so two calls on one wallet never interleave. The store itself
// is shared with the ledger and the identity gate, and is guarded by a
// second lock that is always acquired after the wallet lock.
type Engine struct {
	db      settle.CacheableKVStore
	clock   settle.Clock
	logger  log.Logger
	metrics *Metrics

	auth   x.CtxAuth
	gate   identity.Gate
	ledger *ledger.Controller
	h      *handler

	locks *keyedMutex
	mu    sync.Mutex
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock sets the source of the operation time. SystemClock is used by
// default.
func WithClock(c settle.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the collectors updated after every operation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine returns an engine operating on db. Eligibility and trust are
// consulted through gate.
func NewEngine(db settle.CacheableKVStore, gate identity.Gate, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		clock:  settle.SystemClock{},
		logger: settle.DefaultLogger,
		gate:   gate,
		ledger: ledger.NewController(gate),
		locks:  newKeyedMutex(),
	}
	for _, fn := range opts {
		fn(e)
	}
	e.h = newHandler(e.auth, e.gate, e.ledger)
	return e
}

// RegisterInvestor binds the fee wallet to the investor. Caller must be the
// investor.
func (e *Engine) RegisterInvestor(ctx settle.Context, caller settle.Condition, investor, feeWallet settle.Address) error {
	msg := &RegisterInvestorMsg{Investor: investor, FeeWallet: feeWallet}
	return e.run(ctx, "register_investor", caller, nil, func(ctx settle.Context, db settle.KVStore, out *outcome) error {
		return e.h.RegisterInvestor(ctx, db, out, msg)
	})
}

// CreateEscrowWallet creates a wallet and returns its payment ID. A nil
// payer creates the wallet in the marketplace mode.
func (e *Engine) CreateEscrowWallet(ctx settle.Context, caller settle.Condition, payer, payee, investor settle.Address, amount int64) ([]byte, error) {
	msg := &CreateMsg{Payer: payer, Payee: payee, Investor: investor, Amount: amount}
	var id []byte
	err := e.run(ctx, "create", caller, nil, func(ctx settle.Context, db settle.KVStore, out *outcome) error {
		var err error
		id, err = e.h.Create(ctx, db, out, msg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return id, nil
}

// Fund transfers the total required amount from the caller to the wallet.
func (e *Engine) Fund(ctx settle.Context, caller settle.Condition, paymentID []byte) error {
	msg := &FundMsg{PaymentID: paymentID}
	return e.run(ctx, "fund", caller, paymentID, func(ctx settle.Context, db settle.KVStore, out *outcome) error {
		return e.h.Fund(ctx, db, out, msg)
	})
}

// SubmitProof records the proof of delivery signed by the payee key. The
// data hash is optional.
func (e *Engine) SubmitProof(ctx settle.Context, paymentID, data, dataHash []byte, pub *crypto.PublicKey, sig *crypto.Signature) error {
	msg := &SubmitProofMsg{
		PaymentID: paymentID,
		Data:      data,
		DataHash:  dataHash,
		PubKey:    pub,
		Signature: sig,
	}
	return e.run(ctx, "submit_proof", pub.Condition(), paymentID, func(ctx settle.Context, db settle.KVStore, out *outcome) error {
		return e.h.SubmitProof(ctx, db, out, msg)
	})
}

// RaiseDispute contests the proof. Caller must be the payer.
func (e *Engine) RaiseDispute(ctx settle.Context, caller settle.Condition, paymentID []byte) error {
	msg := &RaiseDisputeMsg{PaymentID: paymentID}
	return e.run(ctx, "raise_dispute", caller, paymentID, func(ctx settle.Context, db settle.KVStore, out *outcome) error {
		return e.h.RaiseDispute(ctx, db, out, msg)
	})
}

// ResolveDispute settles a dispute. Caller must be the investor.
func (e *Engine) ResolveDispute(ctx settle.Context, caller settle.Condition, paymentID []byte, refund bool) error {
	msg := &ResolveDisputeMsg{PaymentID: paymentID, Refund: refund}
	return e.run(ctx, "resolve_dispute", caller, paymentID, func(ctx settle.Context, db settle.KVStore, out *outcome) error {
		return e.h.ResolveDispute(ctx, db, out, msg)
	})
}

// SignAsPayee records the payee signature of SignBytes(paymentID, RolePayee).
func (e *Engine) SignAsPayee(ctx settle.Context, paymentID []byte, pub *crypto.PublicKey, sig *crypto.Signature) error {
	return e.sign(ctx, RolePayee, paymentID, pub, sig)
}

// SignAsInvestor records the investor signature of
// SignBytes(paymentID, RoleInvestor).
func (e *Engine) SignAsInvestor(ctx settle.Context, paymentID []byte, pub *crypto.PublicKey, sig *crypto.Signature) error {
	return e.sign(ctx, RoleInvestor, paymentID, pub, sig)
}

// SignAsPayer records the payer signature of SignBytes(paymentID, RolePayer).
func (e *Engine) SignAsPayer(ctx settle.Context, paymentID []byte, pub *crypto.PublicKey, sig *crypto.Signature) error {
	return e.sign(ctx, RolePayer, paymentID, pub, sig)
}

func (e *Engine) sign(ctx settle.Context, role Role, paymentID []byte, pub *crypto.PublicKey, sig *crypto.Signature) error {
	msg := &SignMsg{PaymentID: paymentID, Role: role, PubKey: pub, Signature: sig}
	return e.run(ctx, "sign_"+role.String(), pub.Condition(), paymentID, func(ctx settle.Context, db settle.KVStore, out *outcome) error {
		return e.h.Sign(ctx, db, out, msg)
	})
}

// ManualRefund returns the total to the payer without a full signature
// set. Caller must be the investor. The call is logged as privileged.
func (e *Engine) ManualRefund(ctx settle.Context, caller settle.Condition, paymentID []byte) error {
	msg := &ManualRefundMsg{PaymentID: paymentID}
	return e.run(ctx, "manual_refund", caller, paymentID, func(ctx settle.Context, db settle.KVStore, out *outcome) error {
		return e.h.ManualRefund(ctx, db, out, msg)
	})
}

// GetStatus returns the wallet together with the balances involved, the
// grants given within the payment and the dispute window evaluated at the
// call time.
func (e *Engine) GetStatus(ctx settle.Context, paymentID []byte) (*Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var esc Escrow
	if err := e.h.escrows.One(e.db, paymentID, &esc); err != nil {
		return nil, errors.Wrap(err, "cannot load escrow")
	}
	grants, err := e.gate.Grants(e.db, paymentID)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load grants")
	}
	return newStatus(e.db, e.ledger, &esc, grants, e.now())
}

// now returns the clock time truncated to whole seconds, the precision at
// which every time is persisted. Window checks and stored times never
// disagree by a fraction of a second.
func (e *Engine) now() time.Time {
	return e.clock.Now().Truncate(time.Second)
}

// Events returns all transitions of the wallet, oldest first.
func (e *Engine) Events(ctx settle.Context, paymentID []byte) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.h.escrows.Has(e.db, paymentID); err != nil {
		return nil, err
	}
	var evs []Event
	if _, err := e.h.events.ByIndex(e.db, "payment", paymentID, &evs); err != nil {
		return nil, err
	}
	return evs, nil
}

// ByParty returns all wallets in which the address is bound to any role,
// ordered by payment ID.
func (e *Engine) ByParty(ctx settle.Context, addr settle.Address) ([]Escrow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]bool)
	var res []Escrow
	for _, idx := range []string{"payer", "payee", "investor"} {
		var escs []Escrow
		if _, err := e.h.escrows.ByIndex(e.db, idx, addr, &escs); err != nil {
			return nil, err
		}
		for _, esc := range escs {
			if seen[string(esc.PaymentID)] {
				continue
			}
			seen[string(esc.PaymentID)] = true
			res = append(res, esc)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].PaymentID, res[j].PaymentID) < 0
	})
	return res, nil
}

type operation func(ctx settle.Context, db settle.KVStore, out *outcome) error

// run executes the operation as a single atomic unit. The operation time
// is taken from the clock once and used by every check of the call.
func (e *Engine) run(ctx settle.Context, name string, caller settle.Condition, paymentID []byte, op operation) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, name)
	}
	if len(paymentID) > 0 {
		unlock := e.locks.Lock(string(paymentID))
		defer unlock()
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	ctx = settle.WithBlockTime(ctx, e.now())
	ctx = settle.WithLogger(ctx, e.logger)
	if caller != nil {
		ctx = e.auth.WithSigners(ctx, caller)
	}

	var out outcome
	exec := utils.Chain(
		func(ctx settle.Context, db settle.KVStore) error { return op(ctx, db, &out) },
		utils.Logging(name),
		utils.Savepoint,
		utils.Recovery,
	)
	err := exec(ctx, e.db)
	e.metrics.observe(name, start, &out, err)
	if err == nil {
		e.report(ctx, &out)
	}
	return err
}

// report logs what a committed operation did.
func (e *Engine) report(ctx settle.Context, out *outcome) {
	logger := settle.GetLogger(ctx)
	for _, ev := range out.events {
		logger.Info("escrow transition",
			"paymentID", fmt.Sprintf("%X", ev.PaymentID),
			"from", ev.From,
			"to", ev.To,
			"actor", ev.Actor)
	}
	if len(out.audit) > 0 && len(out.events) > 0 {
		kv := append([]interface{}{"paymentID", fmt.Sprintf("%X", out.events[0].PaymentID)}, out.audit...)
		logger.Info("privileged operation", kv...)
	}
}
