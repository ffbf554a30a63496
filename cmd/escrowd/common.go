package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/crypto"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/store/iavl"
	"github.com/iov-one/settle/x/escrow"
	"github.com/iov-one/settle/x/identity"
	"github.com/iov-one/settle/x/ledger"
	"github.com/tendermint/tendermint/libs/log"
	"golang.org/x/crypto/ed25519"
)

// dbName is the name of the goleveldb database inside of the home
// directory.
const dbName = "escrow"

// node is the state opened by a single command run.
type node struct {
	store  *iavl.CommitStore
	db     settle.CacheableKVStore
	gate   *identity.Controller
	bank   *ledger.Controller
	engine *escrow.Engine
}

// nodeFlags are shared by all commands operating on the store.
type nodeFlags struct {
	home     *string
	at       *time.Time
	logLevel *string
}

func addNodeFlags(fl *flag.FlagSet) *nodeFlags {
	return &nodeFlags{
		home: fl.String("home", defaultHome(),
			"Directory holding the database. You can use ESCROWD_HOME environment variable to set it."),
		at: flTime(fl, "at",
			"Execute the operation as if it happened at the given RFC 3339 time. Current time is used by default."),
		logLevel: fl.String("log", env("ESCROWD_LOG", "info"),
			"Log level, one of debug, info, error or none."),
	}
}

func (nf *nodeFlags) open() (*node, error) {
	logger, err := newLogger(os.Stderr, *nf.logLevel)
	if err != nil {
		return nil, err
	}
	var clock settle.Clock = settle.SystemClock{}
	if !nf.at.IsZero() {
		clock = fixedClock(*nf.at)
	}

	s, err := iavl.NewCommitStore(*nf.home, dbName)
	if err != nil {
		return nil, err
	}
	gate := identity.NewController()
	db := s.KVStore()
	return &node{
		store: s,
		db:    db,
		gate:  gate,
		bank:  ledger.NewController(gate),
		engine: escrow.NewEngine(db, gate,
			escrow.WithClock(clock),
			escrow.WithLogger(logger.With("module", "escrow")),
		),
	}, nil
}

// commit makes the changes of the command durable.
func (n *node) commit() error {
	_, err := n.store.Commit()
	return err
}

func (n *node) close() {
	n.store.Close()
}

// exec opens the node, runs fn and commits only if fn succeeded.
func (nf *nodeFlags) exec(fn func(n *node) error) error {
	n, err := nf.open()
	if err != nil {
		return err
	}
	defer n.close()
	if err := fn(n); err != nil {
		return err
	}
	return n.commit()
}

// query opens the node and runs fn without committing.
func (nf *nodeFlags) query(fn func(n *node) error) error {
	n, err := nf.open()
	if err != nil {
		return err
	}
	defer n.close()
	return fn(n)
}

func newLogger(w io.Writer, level string) (log.Logger, error) {
	if level == "none" {
		return log.NewNopLogger(), nil
	}
	opt, err := log.AllowLevel(level)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return log.NewFilter(log.NewTMLogger(log.NewSyncWriter(w)), opt), nil
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time {
	return time.Time(c)
}

// readKey loads the private key stored under given path.
func readKey(path string) (*crypto.PrivateKey, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read private key file: %s", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: %d", len(raw))
	}
	return &crypto.PrivateKey{Ed25519: raw}, nil
}

func writeJSON(out io.Writer, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("cannot serialize: %s", err)
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}

// requireID terminates the process if no payment ID was given.
func requireID(fl *flag.FlagSet, id []byte) {
	if len(id) == 0 {
		fmt.Fprintln(os.Stderr, "Payment ID is required. Use -id flag.")
		fl.Usage()
		os.Exit(2)
	}
}
