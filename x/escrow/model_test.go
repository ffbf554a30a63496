package escrow

import (
	"testing"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/weavetest"
	"github.com/iov-one/settle/weavetest/assert"
)

func TestStateNames(t *testing.T) {
	cases := map[State]string{
		StateCreated:        "created",
		StateFunded:         "funded",
		StateProofSubmitted: "proof_submitted",
		StateDisputed:       "disputed",
		StateReleased:       "released",
		StateRefunded:       "refunded",
		State(0):            "none",
		State(42):           "none",
	}
	for s, want := range cases {
		assert.Equal(t, want, s.String())
	}
	assert.Equal(t, true, StateReleased.IsTerminal())
	assert.Equal(t, true, StateRefunded.IsTerminal())
	assert.Equal(t, false, StateDisputed.IsTerminal())
	assert.IsErr(t, errors.ErrState, State(7).Validate())
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{RolePayer, RolePayee, RoleInvestor} {
		got, err := ParseRole(r.String())
		assert.Nil(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseRole("owner")
	assert.IsErr(t, errors.ErrInput, err)
	assert.IsErr(t, errors.ErrInput, Role(0).Validate())
}

func TestSignBytesAreBoundToRoleAndWallet(t *testing.T) {
	id := weavetest.SequenceID(5)
	assert.Equal(t, append([]byte("escrow/sign/payee/"), id...), SignBytes(id, RolePayee))

	seen := make(map[string]bool)
	for _, id := range [][]byte{weavetest.SequenceID(1), weavetest.SequenceID(2)} {
		for _, r := range []Role{RolePayer, RolePayee, RoleInvestor} {
			b := string(SignBytes(id, r))
			if seen[b] {
				t.Fatalf("duplicated sign bytes %q", b)
			}
			seen[b] = true
		}
	}
}

func TestEscrowValidate(t *testing.T) {
	valid := func(t testing.TB) Escrow {
		id := weavetest.SequenceID(1)
		return Escrow{
			PaymentID:         id,
			Address:           Condition(id).Address(),
			Payer:             weavetest.RandomAddr(t),
			Payee:             weavetest.RandomAddr(t),
			Investor:          weavetest.RandomAddr(t),
			InvestorFeeWallet: weavetest.RandomAddr(t),
			Owner:             weavetest.RandomAddr(t),
			OwnerFeeWallet:    weavetest.RandomAddr(t),
			Amount:            1000,
			InvestorFee:       30,
			OwnerFee:          20,
			TotalRequired:     1050,
			State:             StateFunded,
			DisputeWindow:     int64(DefaultDisputeWindow.Seconds()),
			CreatedAt:         settle.AsUnixTime(genesisTime),
		}
	}

	cases := map[string]struct {
		mutate    func(*Escrow)
		wantField string
		wantErr   *errors.Error
	}{
		"valid": {
			mutate: func(*Escrow) {},
		},
		"marketplace wallet before funding": {
			mutate: func(e *Escrow) {
				e.State = StateCreated
				e.Payer = nil
			},
		},
		"funded wallet without payer": {
			mutate:    func(e *Escrow) { e.Payer = nil },
			wantField: "Payer",
			wantErr:   errors.ErrEmpty,
		},
		"total does not add up": {
			mutate:    func(e *Escrow) { e.TotalRequired = 1000 },
			wantField: "TotalRequired",
			wantErr:   errors.ErrAmount,
		},
		"proof submitted without proof": {
			mutate:    func(e *Escrow) { e.State = StateProofSubmitted },
			wantField: "Proof",
			wantErr:   errors.ErrEmpty,
		},
		"proof hash of a wrong size": {
			mutate: func(e *Escrow) {
				e.State = StateProofSubmitted
				e.Proof = Proof{DataHash: []byte{1, 2, 3}, Signature: []byte{4}}
			},
			wantField: "Proof.DataHash",
			wantErr:   errors.ErrInput,
		},
		"signed approval without signature": {
			mutate: func(e *Escrow) {
				e.PayerApproval = Approval{Signed: true, PubKey: []byte{1}}
			},
			wantField: "PayerApproval.Signature",
			wantErr:   errors.ErrEmpty,
		},
		"unknown state": {
			mutate:    func(e *Escrow) { e.State = 0 },
			wantField: "State",
			wantErr:   errors.ErrState,
		},
		"no window": {
			mutate:    func(e *Escrow) { e.DisputeWindow = 0 },
			wantField: "DisputeWindow",
			wantErr:   errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			esc := valid(t)
			tc.mutate(&esc)
			err := esc.Validate()
			if tc.wantErr == nil {
				assert.Nil(t, err)
				return
			}
			assert.FieldError(t, err, tc.wantField, tc.wantErr)
		})
	}
}

func TestInvestorFeeWalletMustDiffer(t *testing.T) {
	a := weavetest.RandomAddr(t)
	inv := Investor{Address: a, FeeWallet: a}
	assert.FieldError(t, inv.Validate(), "FeeWallet", errors.ErrInput)
}
