package main

import (
	"flag"
	"fmt"
	"io"
)

func cmdBalance(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the balance of an address.
`)
		fl.PrintDefaults()
	}
	var (
		nf     = addNodeFlags(fl)
		addrFl = flAddress(fl, "address", "", "Account address.")
	)
	fl.Parse(args)

	return nf.query(func(n *node) error {
		amount, err := n.bank.BalanceOf(n.db, *addrFl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(output, amount)
		return err
	})
}

func cmdTransfers(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print all transfers made within the scope of a payment as JSON.
`)
		fl.PrintDefaults()
	}
	var (
		nf   = addNodeFlags(fl)
		idFl = flHex(fl, "id", "Hex encoded payment ID.")
	)
	fl.Parse(args)
	requireID(fl, *idFl)

	return nf.query(func(n *node) error {
		recs, err := n.bank.Transfers(n.db, *idFl)
		if err != nil {
			return err
		}
		return writeJSON(output, recs)
	})
}

func cmdSetEligible(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Mark an address as eligible or ineligible to take part in payments. This is
an administrative command and requires direct access to the database.
`)
		fl.PrintDefaults()
	}
	var (
		nf         = addNodeFlags(fl)
		addrFl     = flAddress(fl, "address", "", "Account address.")
		eligibleFl = fl.Bool("eligible", true, "Eligibility of the address.")
	)
	fl.Parse(args)

	return nf.exec(func(n *node) error {
		if err := addrFl.Validate(); err != nil {
			return err
		}
		return n.gate.SetEligible(n.db, *addrFl, *eligibleFl)
	})
}
