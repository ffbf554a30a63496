package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/x/escrow"
	"github.com/iov-one/settle/x/identity"
	"github.com/iov-one/settle/x/ledger"
)

func cmdInit(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Initialize a new database using the genesis file.

The genesis file is a JSON object. The "conf" key holds the configuration of
each package and must contain the "escrow" configuration. Eligible addresses
are listed under "identity", initial balances under "ledger" and registered
investors under "escrow".
`)
		fl.PrintDefaults()
	}
	var (
		nf        = addNodeFlags(fl)
		genesisFl = fl.String("genesis", "genesis.json", "Path to the genesis file.")
	)
	fl.Parse(args)

	opts, err := settle.LoadOptions(*genesisFl)
	if err != nil {
		return err
	}

	return nf.exec(func(n *node) error {
		latest, err := n.store.LatestVersion()
		if err != nil {
			return err
		}
		if latest.Version != 0 {
			return errors.Wrapf(errors.ErrState, "database in %q already initialized", *nf.home)
		}

		init := settle.ChainInitializers(
			identity.Initializer{},
			&ledger.Initializer{Gate: n.gate},
			escrow.Initializer{},
		)
		cache := n.db.CacheWrap()
		if err := init.FromGenesis(opts, cache); err != nil {
			cache.Discard()
			return errors.Wrap(err, "genesis")
		}
		return cache.Write()
	})
}
