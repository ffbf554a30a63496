package escrow

import (
	"strings"
	"testing"
	"time"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/crypto"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/weavetest"
	"github.com/iov-one/settle/weavetest/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEscrowWallet(t *testing.T) {
	cases := map[string]struct {
		amount      int64
		investor    func(f *fixture) settle.Address
		payee       func(f *fixture) settle.Address
		payer       func(f *fixture) settle.Address
		wantErr     *errors.Error
		wantInvFee  int64
		wantOwnFee  int64
		wantRequire int64
	}{
		"fees are 3 and 2 percent": {
			amount:      1000,
			wantInvFee:  30,
			wantOwnFee:  20,
			wantRequire: 1050,
		},
		"fees are rounded down": {
			amount:      99,
			wantInvFee:  2,
			wantOwnFee:  1,
			wantRequire: 102,
		},
		"tiny amounts carry no fee": {
			amount:      1,
			wantRequire: 1,
		},
		"marketplace mode": {
			amount:      1000,
			payer:       func(*fixture) settle.Address { return nil },
			wantInvFee:  30,
			wantOwnFee:  20,
			wantRequire: 1050,
		},
		"zero amount": {
			amount:  0,
			wantErr: errors.ErrAmount,
		},
		"negative amount": {
			amount:  -1000,
			wantErr: errors.ErrAmount,
		},
		"unknown investor": {
			amount:   1000,
			investor: func(f *fixture) settle.Address { return weavetest.RandomAddr(f.t) },
			wantErr:  ErrUnknownInvestor,
		},
		"ineligible payee": {
			amount:  1000,
			payee:   func(f *fixture) settle.Address { return weavetest.RandomAddr(f.t) },
			wantErr: errors.ErrIneligible,
		},
		"ineligible payer": {
			amount:  1000,
			payer:   func(f *fixture) settle.Address { return weavetest.RandomAddr(f.t) },
			wantErr: errors.ErrIneligible,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			payer, payee, investor := f.addr(f.payer), f.addr(f.payee), f.addr(f.investor)
			if tc.payer != nil {
				payer = tc.payer(f)
			}
			if tc.payee != nil {
				payee = tc.payee(f)
			}
			if tc.investor != nil {
				investor = tc.investor(f)
			}

			id, err := f.engine.CreateEscrowWallet(f.ctx, f.cond(f.payee), payer, payee, investor, tc.amount)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr != nil {
				return
			}

			esc := f.escrow(id)
			assert.Equal(t, StateCreated, esc.State)
			assert.Equal(t, tc.wantInvFee, esc.InvestorFee)
			assert.Equal(t, tc.wantOwnFee, esc.OwnerFee)
			assert.Equal(t, tc.wantRequire, esc.TotalRequired)
			assert.Equal(t, esc.Amount+esc.InvestorFee+esc.OwnerFee, esc.TotalRequired)
			assert.Equal(t, f.investorFeeWallet, esc.InvestorFeeWallet)
			assert.Equal(t, f.ownerFeeWallet, esc.OwnerFeeWallet)
			assert.Equal(t, Condition(id).Address(), esc.Address)

			// Only accounts without a compliance record skip eligibility.
			type grant struct {
				addr     settle.Address
				contract bool
			}
			grants := []grant{
				{esc.Address, true},
				{esc.InvestorFeeWallet, true},
				{esc.OwnerFeeWallet, true},
				{esc.Payee, false},
			}
			if esc.Payer != nil {
				grants = append(grants, grant{esc.Payer, false})
			}
			for _, g := range grants {
				ok, err := f.gate.IsTrusted(f.db, id, g.addr)
				assert.Nil(t, err)
				assert.Equal(t, true, ok)
				ok, err = f.gate.IsContract(f.db, id, g.addr)
				assert.Nil(t, err)
				assert.Equal(t, g.contract, ok)
			}
		})
	}
}

func TestCreateFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateEscrowWallet(f.ctx, f.cond(f.payee), nil, weavetest.RandomAddr(t), f.addr(f.investor), 1000)
	assert.IsErr(t, errors.ErrIneligible, err)

	// The sequence was not advanced by the failed call.
	id := f.create(1000, false)
	assert.Equal(t, weavetest.SequenceID(1), id)
}

// Scenario A: a proof that was not disputed is released after the window.
func TestReleaseAfterDisputeWindow(t *testing.T) {
	f := newFixture(t)
	id := f.create(1000, false)

	require.NoError(t, f.engine.Fund(f.ctx, f.cond(f.payer), id))
	assert.Equal(t, int64(0), f.balance(f.addr(f.payer)))
	assert.Equal(t, int64(1050), f.balance(Condition(id).Address()))

	require.NoError(t, f.submitProof(id, f.payee, []byte("shipment 42 delivered")))
	f.clock.Advance(14*day + time.Hour)

	require.NoError(t, f.sign(id, RolePayee, f.payee))
	assert.Equal(t, StateProofSubmitted, f.state(id))
	require.NoError(t, f.sign(id, RoleInvestor, f.investor))

	assert.Equal(t, StateReleased, f.state(id))
	assert.Equal(t, int64(1000), f.balance(f.addr(f.payee)))
	assert.Equal(t, int64(30), f.balance(f.investorFeeWallet))
	assert.Equal(t, int64(20), f.balance(f.ownerFeeWallet))
	assert.Equal(t, int64(0), f.balance(Condition(id).Address()))
	assert.Equal(t, int64(0), f.balance(f.addr(f.payer)))
}

// Scenario B: a dispute raised on day 10 and resolved with a refund.
func TestDisputeResolvedWithRefund(t *testing.T) {
	f := newFixture(t)
	id := f.proven()

	f.clock.Advance(10 * day)
	require.NoError(t, f.engine.RaiseDispute(f.ctx, f.cond(f.payer), id))
	assert.Equal(t, StateDisputed, f.state(id))

	require.NoError(t, f.engine.ResolveDispute(f.ctx, f.cond(f.investor), id, true))
	assert.Equal(t, StateRefunded, f.state(id))
	assert.Equal(t, int64(1050), f.balance(f.addr(f.payer)))
	assert.Equal(t, int64(0), f.balance(f.addr(f.payee)))
	assert.Equal(t, int64(0), f.balance(f.investorFeeWallet))
}

// Scenario C: funding with one unit less than required.
func TestFundInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	id := f.create(1000, false)
	assert.Nil(t, f.bank.Issue(f.db, f.addr(f.payer), -1))

	err := f.engine.Fund(f.ctx, f.cond(f.payer), id)
	assert.IsErr(t, errors.ErrInsufficientFunds, err)
	assert.Equal(t, StateCreated, f.state(id))
	assert.Equal(t, int64(1049), f.balance(f.addr(f.payer)))
	assert.Equal(t, int64(0), f.balance(Condition(id).Address()))
}

// Scenario D: payee cannot sign before the proof is submitted.
func TestPayeeCannotSignBeforeProof(t *testing.T) {
	f := newFixture(t)
	id := f.create(1000, false)
	assert.IsErr(t, errors.ErrState, f.sign(id, RolePayee, f.payee))

	require.NoError(t, f.engine.Fund(f.ctx, f.cond(f.payer), id))
	assert.IsErr(t, errors.ErrState, f.sign(id, RolePayee, f.payee))
	assert.Equal(t, false, f.escrow(id).PayeeApproval.Signed)
}

func TestFundIneligiblePayer(t *testing.T) {
	f := newFixture(t)
	id := f.create(1000, true)

	stranger := weavetest.NewKey()
	assert.Nil(t, f.bank.Issue(f.db, f.addr(stranger), 5000))

	err := f.engine.Fund(f.ctx, f.cond(stranger), id)
	assert.IsErr(t, errors.ErrIneligible, err)
	if errors.ErrInsufficientFunds.Is(err) {
		t.Fatal("compliance rejection must not look like missing funds")
	}
	esc := f.escrow(id)
	assert.Equal(t, StateCreated, esc.State)
	assert.Nil(t, esc.Payer)
	assert.Equal(t, int64(5000), f.balance(f.addr(stranger)))
}

func TestMarketplaceFunding(t *testing.T) {
	f := newFixture(t)
	id := f.create(1000, true)

	buyer := weavetest.NewKey()
	assert.Nil(t, f.gate.SetEligible(f.db, f.addr(buyer), true))
	assert.Nil(t, f.bank.Issue(f.db, f.addr(buyer), 2000))

	require.NoError(t, f.engine.Fund(f.ctx, f.cond(buyer), id))
	esc := f.escrow(id)
	assert.Equal(t, StateFunded, esc.State)
	assert.Equal(t, f.addr(buyer), esc.Payer)
	assert.Equal(t, int64(950), f.balance(f.addr(buyer)))

	trusted, err := f.gate.IsTrusted(f.db, id, f.addr(buyer))
	assert.Nil(t, err)
	assert.Equal(t, true, trusted)

	// The payer is bound for good.
	assert.IsErr(t, errors.ErrUnauthorized, f.engine.Fund(f.ctx, f.cond(f.payer), id))
	assert.IsErr(t, errors.ErrState, f.engine.Fund(f.ctx, f.cond(buyer), id))
	assert.Equal(t, f.addr(buyer), f.escrow(id).Payer)
	assert.Equal(t, int64(1050), f.balance(f.addr(f.payer)))

	// The bound payer can now dispute and get refunded.
	require.NoError(t, f.submitProof(id, f.payee, []byte("proof")))
	require.NoError(t, f.sign(id, RolePayer, buyer))
	require.NoError(t, f.sign(id, RoleInvestor, f.investor))
	assert.Equal(t, StateRefunded, f.state(id))
	assert.Equal(t, int64(2000), f.balance(f.addr(buyer)))
}

func TestFundByOtherThanBoundPayer(t *testing.T) {
	f := newFixture(t)
	id := f.create(1000, false)
	assert.IsErr(t, errors.ErrUnauthorized, f.engine.Fund(f.ctx, f.cond(f.payee), id))
	assert.Equal(t, StateCreated, f.state(id))
}

func TestRevokedPartyIsRejected(t *testing.T) {
	t.Run("bound payer revoked before funding", func(t *testing.T) {
		f := newFixture(t)
		id := f.create(1000, false)
		assert.Nil(t, f.gate.SetEligible(f.db, f.addr(f.payer), false))

		err := f.engine.Fund(f.ctx, f.cond(f.payer), id)
		assert.IsErr(t, errors.ErrIneligible, err)
		assert.Equal(t, StateCreated, f.state(id))
		assert.Equal(t, int64(1050), f.balance(f.addr(f.payer)))

		assert.Nil(t, f.gate.SetEligible(f.db, f.addr(f.payer), true))
		require.NoError(t, f.engine.Fund(f.ctx, f.cond(f.payer), id))
		assert.Equal(t, StateFunded, f.state(id))
	})

	t.Run("payee revoked before release", func(t *testing.T) {
		f := newFixture(t)
		id := f.proven()
		f.clock.Advance(15 * day)
		require.NoError(t, f.sign(id, RolePayee, f.payee))
		assert.Nil(t, f.gate.SetEligible(f.db, f.addr(f.payee), false))

		err := f.sign(id, RoleInvestor, f.investor)
		assert.IsErr(t, errors.ErrIneligible, err)
		esc := f.escrow(id)
		assert.Equal(t, StateProofSubmitted, esc.State)
		assert.Equal(t, false, esc.InvestorApproval.Signed)
		assert.Equal(t, int64(1050), f.balance(esc.Address))
		assert.Equal(t, int64(0), f.balance(f.addr(f.payee)))
	})
}

func TestOperationTimeIsWholeSeconds(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(genesisTime.Add(999 * time.Millisecond))
	id := f.proven()
	assert.Equal(t, settle.AsUnixTime(genesisTime), f.escrow(id).Proof.SubmittedAt)

	// Status and window checks see the same truncated time.
	f.clock.Set(genesisTime.Add(14*day - time.Millisecond))
	st, err := f.engine.GetStatus(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, genesisTime.Add(14*day-time.Second), st.Timers.Now)
	assert.Equal(t, true, st.Timers.WindowOpen)
	assert.IsErr(t, ErrWindowOpen, f.sign(id, RolePayee, f.payee))

	f.clock.Set(genesisTime.Add(14*day + 500*time.Millisecond))
	st, err = f.engine.GetStatus(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, genesisTime.Add(14*day), st.Timers.Now)
	assert.Equal(t, genesisTime.Add(14*day), st.Timers.DisputeDeadline)
	assert.Equal(t, false, st.Timers.WindowOpen)
	assert.IsErr(t, ErrWindowClosed, f.engine.RaiseDispute(f.ctx, f.cond(f.payer), id))
	require.NoError(t, f.sign(id, RolePayee, f.payee))
}

func TestDisputeWindowBoundary(t *testing.T) {
	cases := map[string]struct {
		after   time.Duration
		wantErr *errors.Error
	}{
		"right after submission": {after: 0},
		"one second before 14 days": {after: 14*day - time.Second},
		"exactly 14 days":           {after: 14 * day, wantErr: ErrWindowClosed},
		"14 days and one second":    {after: 14*day + time.Second, wantErr: ErrWindowClosed},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			id := f.proven()
			f.clock.Advance(tc.after)

			err := f.engine.RaiseDispute(f.ctx, f.cond(f.payer), id)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr == nil {
				assert.Equal(t, StateDisputed, f.state(id))
			} else {
				assert.Equal(t, StateProofSubmitted, f.state(id))
			}
		})
	}
}

func TestPayeeSigningWindow(t *testing.T) {
	cases := map[string]struct {
		after   time.Duration
		wantErr *errors.Error
	}{
		"window open":               {after: 10 * day, wantErr: ErrWindowOpen},
		"one second before 14 days": {after: 14*day - time.Second, wantErr: ErrWindowOpen},
		"exactly 14 days":           {after: 14 * day},
		"14 days and one second":    {after: 14*day + time.Second},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			id := f.proven()
			f.clock.Advance(tc.after)

			err := f.sign(id, RolePayee, f.payee)
			assert.IsErr(t, tc.wantErr, err)
			assert.Equal(t, tc.wantErr == nil, f.escrow(id).PayeeApproval.Signed)
		})
	}
}

func TestOnlyPayerDisputes(t *testing.T) {
	f := newFixture(t)
	id := f.proven()
	assert.IsErr(t, errors.ErrUnauthorized, f.engine.RaiseDispute(f.ctx, f.cond(f.payee), id))
	assert.IsErr(t, errors.ErrUnauthorized, f.engine.RaiseDispute(f.ctx, f.cond(f.investor), id))

	funded := f.funded()
	// Only the payer may also dispute, but there is nothing to dispute yet.
	assert.IsErr(t, errors.ErrState, f.engine.RaiseDispute(f.ctx, f.cond(f.payer), funded))
}

func TestResolveDisputeContinues(t *testing.T) {
	f := newFixture(t)
	id := f.proven()

	f.clock.Advance(day)
	require.NoError(t, f.engine.RaiseDispute(f.ctx, f.cond(f.payer), id))
	assert.IsErr(t, errors.ErrUnauthorized, f.engine.ResolveDispute(f.ctx, f.cond(f.payer), id, true))
	// No signing while disputed.
	assert.IsErr(t, errors.ErrState, f.sign(id, RoleInvestor, f.investor))

	require.NoError(t, f.engine.ResolveDispute(f.ctx, f.cond(f.investor), id, false))
	assert.Equal(t, StateProofSubmitted, f.state(id))
	assert.IsErr(t, errors.ErrState, f.engine.ResolveDispute(f.ctx, f.cond(f.investor), id, false))

	// The window keeps counting from the proof submission.
	f.clock.Advance(day)
	require.NoError(t, f.engine.RaiseDispute(f.ctx, f.cond(f.payer), id))
	require.NoError(t, f.engine.ResolveDispute(f.ctx, f.cond(f.investor), id, false))

	f.clock.Advance(12 * day)
	assert.IsErr(t, ErrWindowClosed, f.engine.RaiseDispute(f.ctx, f.cond(f.payer), id))
	require.NoError(t, f.sign(id, RoleInvestor, f.investor))
	require.NoError(t, f.sign(id, RolePayee, f.payee))
	assert.Equal(t, StateReleased, f.state(id))
	assert.Equal(t, int64(1000), f.balance(f.addr(f.payee)))
}

func TestSignatureCombinations(t *testing.T) {
	cases := map[string]struct {
		signers   []Role
		wantState State
		wantPayee int64
		wantPayer int64
	}{
		"payer and payee never pay out": {
			signers:   []Role{RolePayer, RolePayee},
			wantState: StateProofSubmitted,
			wantPayer: 0,
		},
		"investor alone never pays out": {
			signers:   []Role{RoleInvestor},
			wantState: StateProofSubmitted,
		},
		"investor and payee release": {
			signers:   []Role{RolePayee, RoleInvestor},
			wantState: StateReleased,
			wantPayee: 1000,
		},
		"payee completing investor signature releases": {
			signers:   []Role{RoleInvestor, RolePayee},
			wantState: StateReleased,
			wantPayee: 1000,
		},
		"investor and payer refund": {
			signers:   []Role{RolePayer, RoleInvestor},
			wantState: StateRefunded,
			wantPayer: 1050,
		},
		"release wins when all three signed": {
			signers:   []Role{RolePayer, RolePayee, RoleInvestor},
			wantState: StateReleased,
			wantPayee: 1000,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			id := f.proven()
			f.clock.Advance(15 * day)
			for _, r := range tc.signers {
				require.NoError(t, f.sign(id, r, f.keyOf(r)))
			}
			assert.Equal(t, tc.wantState, f.state(id))
			assert.Equal(t, tc.wantPayee, f.balance(f.addr(f.payee)))
			assert.Equal(t, tc.wantPayer, f.balance(f.addr(f.payer)))
		})
	}
}

func TestRefundBySignaturesFromFunded(t *testing.T) {
	f := newFixture(t)
	id := f.funded()
	require.NoError(t, f.sign(id, RoleInvestor, f.investor))
	assert.Equal(t, StateFunded, f.state(id))
	require.NoError(t, f.sign(id, RolePayer, f.payer))
	assert.Equal(t, StateRefunded, f.state(id))
	assert.Equal(t, int64(1050), f.balance(f.addr(f.payer)))
}

func TestAlreadySigned(t *testing.T) {
	f := newFixture(t)
	id := f.proven()
	require.NoError(t, f.sign(id, RoleInvestor, f.investor))
	assert.IsErr(t, ErrAlreadySigned, f.sign(id, RoleInvestor, f.investor))

	f.clock.Advance(20 * day)
	other := f.proven()
	f.clock.Advance(20 * day)
	require.NoError(t, f.sign(other, RolePayee, f.payee))
	assert.IsErr(t, ErrAlreadySigned, f.sign(other, RolePayee, f.payee))
}

func TestSignatureAuthorization(t *testing.T) {
	f := newFixture(t)
	id := f.proven()

	// A key of another party.
	assert.IsErr(t, errors.ErrUnauthorized, f.sign(id, RoleInvestor, f.payer))
	assert.IsErr(t, errors.ErrUnauthorized, f.sign(id, RolePayer, weavetest.NewKey()))

	// A signature of another message.
	sig, err := f.investor.Sign(SignBytes(id, RolePayee))
	assert.Nil(t, err)
	err = f.engine.SignAsInvestor(f.ctx, id, f.investor.PublicKey(), sig)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	// A signature of another wallet.
	sig, err = f.investor.Sign(SignBytes(weavetest.SequenceID(99), RoleInvestor))
	assert.Nil(t, err)
	err = f.engine.SignAsInvestor(f.ctx, id, f.investor.PublicKey(), sig)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	assert.Equal(t, false, f.escrow(id).InvestorApproval.Signed)
}

func TestPayerCannotSignMarketplaceWalletBeforeFunding(t *testing.T) {
	f := newFixture(t)
	id := f.create(1000, true)
	assert.IsErr(t, errors.ErrUnauthorized, f.sign(id, RolePayer, f.payer))
	assert.IsErr(t, errors.ErrState, f.sign(id, RoleInvestor, f.investor))
}

func TestSubmitProof(t *testing.T) {
	f := newFixture(t)
	id := f.funded()
	data := []byte("tracking number 1Z999")

	// Only the payee.
	assert.IsErr(t, errors.ErrUnauthorized, f.submitProof(id, f.payer, data))

	// Supplied hash must match the data.
	msg := SubmitProofMsg{Data: data}
	sig, err := f.payee.Sign(msg.Hash())
	assert.Nil(t, err)
	err = f.engine.SubmitProof(f.ctx, id, data, []byte("not a hash"), f.payee.PublicKey(), sig)
	assert.IsErr(t, errors.ErrInput, err)

	// Signature must cover the data hash.
	bad, err := f.payee.Sign(data)
	assert.Nil(t, err)
	err = f.engine.SubmitProof(f.ctx, id, data, msg.Hash(), f.payee.PublicKey(), bad)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	assert.Equal(t, StateFunded, f.state(id))

	require.NoError(t, f.engine.SubmitProof(f.ctx, id, data, msg.Hash(), f.payee.PublicKey(), sig))
	esc := f.escrow(id)
	assert.Equal(t, StateProofSubmitted, esc.State)
	assert.Equal(t, data, esc.Proof.Data)
	assert.Equal(t, msg.Hash(), esc.Proof.DataHash)
	assert.Equal(t, settle.AsUnixTime(genesisTime), esc.Proof.SubmittedAt)
	assert.Equal(t, true, f.payee.PublicKey().Verify(esc.Proof.DataHash, sig))

	// Proof is set at most once.
	f.clock.Advance(time.Hour)
	assert.IsErr(t, errors.ErrState, f.submitProof(id, f.payee, []byte("again")))
	assert.Equal(t, settle.AsUnixTime(genesisTime), f.escrow(id).Proof.SubmittedAt)
}

func TestSubmitProofBeforeFunding(t *testing.T) {
	f := newFixture(t)
	id := f.create(1000, false)
	assert.IsErr(t, errors.ErrState, f.submitProof(id, f.payee, []byte("early")))
}

func TestManualRefund(t *testing.T) {
	cases := map[string]struct {
		prepare func(f *fixture) []byte
		caller  func(f *fixture) settle.Condition
		wantErr *errors.Error
	}{
		"from funded": {
			prepare: (*fixture).funded,
		},
		"from proof submitted": {
			prepare: (*fixture).proven,
		},
		"from proof submitted with payee signature": {
			prepare: func(f *fixture) []byte {
				id := f.proven()
				f.clock.Advance(15 * day)
				assert.Nil(f.t, f.sign(id, RolePayee, f.payee))
				return id
			},
		},
		"from created": {
			prepare: func(f *fixture) []byte { return f.create(1000, false) },
			wantErr: errors.ErrState,
		},
		"from disputed": {
			prepare: func(f *fixture) []byte {
				id := f.proven()
				assert.Nil(f.t, f.engine.RaiseDispute(f.ctx, f.cond(f.payer), id))
				return id
			},
			wantErr: errors.ErrState,
		},
		"by the payer": {
			prepare: (*fixture).funded,
			caller:  func(f *fixture) settle.Condition { return f.cond(f.payer) },
			wantErr: errors.ErrUnauthorized,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			id := tc.prepare(f)
			caller := f.cond(f.investor)
			if tc.caller != nil {
				caller = tc.caller(f)
			}
			before := f.state(id)

			err := f.engine.ManualRefund(f.ctx, caller, id)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr != nil {
				assert.Equal(t, before, f.state(id))
				return
			}
			assert.Equal(t, StateRefunded, f.state(id))
			assert.Equal(t, int64(1050), f.balance(f.addr(f.payer)))
			assert.Equal(t, int64(0), f.balance(Condition(id).Address()))

			evs, err := f.engine.Events(f.ctx, id)
			assert.Nil(t, err)
			last := evs[len(evs)-1]
			assert.Equal(t, StateRefunded, last.To)
			assert.Equal(t, true, last.Privileged)
			assert.Equal(t, f.addr(f.investor), last.Actor)

			logs := f.logs.String()
			for _, want := range []string{"privileged operation", "audit=true", "privileged=manual_refund"} {
				if !strings.Contains(logs, want) {
					t.Fatalf("audit log missing %q:\n%s", want, logs)
				}
			}
		})
	}
}

func TestTerminalStateRejectsEverything(t *testing.T) {
	released := func(f *fixture) []byte {
		id := f.proven()
		f.clock.Advance(15 * day)
		assert.Nil(f.t, f.sign(id, RolePayee, f.payee))
		assert.Nil(f.t, f.sign(id, RoleInvestor, f.investor))
		return id
	}
	refunded := func(f *fixture) []byte {
		id := f.funded()
		assert.Nil(f.t, f.engine.ManualRefund(f.ctx, f.cond(f.investor), id))
		return id
	}

	for name, prepare := range map[string]func(*fixture) []byte{"released": released, "refunded": refunded} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			id := prepare(f)
			want := f.state(id)
			payer, payee := f.balance(f.addr(f.payer)), f.balance(f.addr(f.payee))

			calls := map[string]func() error{
				"fund":           func() error { return f.engine.Fund(f.ctx, f.cond(f.payer), id) },
				"submit proof":   func() error { return f.submitProof(id, f.payee, []byte("x")) },
				"dispute":        func() error { return f.engine.RaiseDispute(f.ctx, f.cond(f.payer), id) },
				"resolve":        func() error { return f.engine.ResolveDispute(f.ctx, f.cond(f.investor), id, true) },
				"sign payer":     func() error { return f.sign(id, RolePayer, f.payer) },
				"sign payee":     func() error { return f.sign(id, RolePayee, f.payee) },
				"sign investor":  func() error { return f.sign(id, RoleInvestor, f.investor) },
				"manual refund":  func() error { return f.engine.ManualRefund(f.ctx, f.cond(f.investor), id) },
				"stranger funds": func() error { return f.engine.Fund(f.ctx, weavetest.NewCondition(), id) },
			}
			for callName, call := range calls {
				if err := call(); !ErrTerminalState.Is(err) {
					t.Fatalf("%s: want terminal state error, got %+v", callName, err)
				}
			}
			assert.Equal(t, want, f.state(id))
			assert.Equal(t, payer, f.balance(f.addr(f.payer)))
			assert.Equal(t, payee, f.balance(f.addr(f.payee)))
		})
	}
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	id := f.proven()
	f.clock.Advance(3 * day)

	st, err := f.engine.GetStatus(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, st.PaymentID)
	assert.Equal(t, "proof_submitted", st.State)
	assert.Equal(t, Signatures{}, st.Signatures)
	assert.Equal(t, Balances{Wallet: 1050}, st.Balances)
	assert.Equal(t, genesisTime, st.Timers.SubmittedAt)
	assert.Equal(t, genesisTime.Add(14*day), st.Timers.DisputeDeadline)
	assert.Equal(t, genesisTime.Add(3*day), st.Timers.Now)
	assert.Equal(t, true, st.Timers.WindowOpen)
	assert.Equal(t, 5, len(st.Grants))

	// The window is evaluated on every call.
	f.clock.Advance(11 * day)
	st, err = f.engine.GetStatus(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, false, st.Timers.WindowOpen)

	_, err = f.engine.GetStatus(f.ctx, weavetest.SequenceID(1234))
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestEventsAndParties(t *testing.T) {
	f := newFixture(t)
	released := f.proven()
	f.clock.Advance(15 * day)
	require.NoError(t, f.sign(released, RolePayee, f.payee))
	require.NoError(t, f.sign(released, RoleInvestor, f.investor))
	open := f.create(10, true)

	evs, err := f.engine.Events(f.ctx, released)
	require.NoError(t, err)
	var path []State
	for _, ev := range evs {
		path = append(path, ev.To)
	}
	assert.Equal(t, []State{StateCreated, StateFunded, StateProofSubmitted, StateReleased}, path)
	assert.Equal(t, f.addr(f.investor), evs[3].Actor)
	assert.Equal(t, settle.AsUnixTime(genesisTime.Add(15*day)), evs[3].At)

	mine, err := f.engine.ByParty(f.ctx, f.addr(f.payee))
	require.NoError(t, err)
	assert.Equal(t, 2, len(mine))
	assert.Equal(t, released, mine[0].PaymentID)
	assert.Equal(t, open, mine[1].PaymentID)

	paid, err := f.engine.ByParty(f.ctx, f.addr(f.payer))
	require.NoError(t, err)
	assert.Equal(t, 1, len(paid))

	_, err = f.engine.Events(f.ctx, weavetest.SequenceID(77))
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestInvestorReRegistration(t *testing.T) {
	f := newFixture(t)
	before := f.create(1000, false)

	newFeeWallet := weavetest.RandomAddr(t)
	require.NoError(t, f.engine.RegisterInvestor(f.ctx, f.cond(f.investor), f.addr(f.investor), newFeeWallet))
	after := f.create(1000, false)

	assert.Equal(t, f.investorFeeWallet, f.escrow(before).InvestorFeeWallet)
	assert.Equal(t, newFeeWallet, f.escrow(after).InvestorFeeWallet)

	err := f.engine.RegisterInvestor(f.ctx, f.cond(f.investor), f.addr(f.investor), f.addr(f.investor))
	assert.IsErr(t, errors.ErrInput, err)
	err = f.engine.RegisterInvestor(f.ctx, f.cond(f.payer), f.addr(f.investor), newFeeWallet)
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func (f *fixture) keyOf(r Role) *crypto.PrivateKey {
	switch r {
	case RolePayer:
		return f.payer
	case RolePayee:
		return f.payee
	}
	return f.investor
}
