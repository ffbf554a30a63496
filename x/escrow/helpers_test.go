package escrow

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/crypto"
	"github.com/iov-one/settle/gconf"
	"github.com/iov-one/settle/store"
	"github.com/iov-one/settle/weavetest"
	"github.com/iov-one/settle/weavetest/assert"
	"github.com/iov-one/settle/x/identity"
	"github.com/iov-one/settle/x/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"
)

const day = 24 * time.Hour

var genesisTime = time.Date(2019, time.March, 1, 12, 0, 0, 0, time.UTC)

// fixture is a ready to use engine with a registered investor, eligible
// payer and payee, and a payer holding exactly 1050.
type fixture struct {
	t       testing.TB
	ctx     context.Context
	db      store.CacheableKVStore
	gate    *identity.Controller
	bank    *ledger.Controller
	clock   *weavetest.Clock
	metrics *Metrics
	logs    *bytes.Buffer
	engine  *Engine

	payer    *crypto.PrivateKey
	payee    *crypto.PrivateKey
	investor *crypto.PrivateKey

	investorFeeWallet settle.Address
	owner             settle.Address
	ownerFeeWallet    settle.Address
}

func newFixture(t testing.TB) *fixture {
	t.Helper()

	f := &fixture{
		t:                 t,
		ctx:               context.Background(),
		db:                store.MemStore(),
		gate:              identity.NewController(),
		clock:             weavetest.NewClock(genesisTime),
		logs:              &bytes.Buffer{},
		payer:             weavetest.NewKey(),
		payee:             weavetest.NewKey(),
		investor:          weavetest.NewKey(),
		investorFeeWallet: weavetest.RandomAddr(t),
		owner:             weavetest.RandomAddr(t),
		ownerFeeWallet:    weavetest.RandomAddr(t),
	}
	f.bank = ledger.NewController(f.gate)
	f.metrics = NewMetrics(prometheus.NewRegistry())
	f.engine = NewEngine(f.db, f.gate,
		WithClock(f.clock),
		WithMetrics(f.metrics),
		WithLogger(log.NewTMLogger(log.NewSyncWriter(f.logs))),
	)

	conf := DefaultConfiguration(f.owner, f.ownerFeeWallet)
	assert.Nil(t, gconf.Save(f.db, confPkg, &conf))
	assert.Nil(t, f.gate.SetEligible(f.db, f.addr(f.payer), true))
	assert.Nil(t, f.gate.SetEligible(f.db, f.addr(f.payee), true))
	assert.Nil(t, f.bank.Issue(f.db, f.addr(f.payer), 1050))

	err := f.engine.RegisterInvestor(f.ctx, f.cond(f.investor), f.addr(f.investor), f.investorFeeWallet)
	assert.Nil(t, err)
	return f
}

func (f *fixture) addr(k *crypto.PrivateKey) settle.Address {
	return k.PublicKey().Address()
}

func (f *fixture) cond(k *crypto.PrivateKey) settle.Condition {
	return k.PublicKey().Condition()
}

// create returns a new wallet of the given amount, bound to the fixture
// payer unless marketplace is set.
func (f *fixture) create(amount int64, marketplace bool) []byte {
	f.t.Helper()
	var payer settle.Address
	if !marketplace {
		payer = f.addr(f.payer)
	}
	id, err := f.engine.CreateEscrowWallet(f.ctx, f.cond(f.payee), payer, f.addr(f.payee), f.addr(f.investor), amount)
	assert.Nil(f.t, err)
	return id
}

// funded returns a wallet of 1000 funded by the fixture payer.
func (f *fixture) funded() []byte {
	f.t.Helper()
	id := f.create(1000, false)
	assert.Nil(f.t, f.engine.Fund(f.ctx, f.cond(f.payer), id))
	return id
}

// proven returns a funded wallet with the proof submitted now.
func (f *fixture) proven() []byte {
	f.t.Helper()
	id := f.funded()
	assert.Nil(f.t, f.submitProof(id, f.payee, []byte("delivered")))
	return id
}

func (f *fixture) submitProof(id []byte, key *crypto.PrivateKey, data []byte) error {
	f.t.Helper()
	msg := SubmitProofMsg{Data: data}
	sig, err := key.Sign(msg.Hash())
	assert.Nil(f.t, err)
	return f.engine.SubmitProof(f.ctx, id, data, nil, key.PublicKey(), sig)
}

func (f *fixture) sign(id []byte, role Role, key *crypto.PrivateKey) error {
	f.t.Helper()
	sig, err := key.Sign(SignBytes(id, role))
	assert.Nil(f.t, err)
	switch role {
	case RolePayer:
		return f.engine.SignAsPayer(f.ctx, id, key.PublicKey(), sig)
	case RolePayee:
		return f.engine.SignAsPayee(f.ctx, id, key.PublicKey(), sig)
	default:
		return f.engine.SignAsInvestor(f.ctx, id, key.PublicKey(), sig)
	}
}

func (f *fixture) balance(a settle.Address) int64 {
	f.t.Helper()
	amount, err := f.bank.BalanceOf(f.db, a)
	assert.Nil(f.t, err)
	return amount
}

func (f *fixture) escrow(id []byte) *Escrow {
	f.t.Helper()
	st, err := f.engine.GetStatus(f.ctx, id)
	assert.Nil(f.t, err)
	return st.Escrow
}

func (f *fixture) state(id []byte) State {
	f.t.Helper()
	return f.escrow(id).State
}
