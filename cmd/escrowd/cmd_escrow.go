package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/iov-one/settle/x/escrow"
)

func cmdRegisterInvestor(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Register the key owner as an investor collecting fees to the given wallet.
Registering again replaces the fee wallet for wallets created afterwards.
`)
		fl.PrintDefaults()
	}
	var (
		nf          = addNodeFlags(fl)
		keyPathFl   = fl.String("key", defaultKey(), "Path to the investor private key file.")
		feeWalletFl = flAddress(fl, "fee-wallet", "", "Address collecting the investor fees.")
	)
	fl.Parse(args)

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	pub := key.PublicKey()
	return nf.exec(func(n *node) error {
		return n.engine.RegisterInvestor(context.Background(), pub.Condition(), pub.Address(), *feeWalletFl)
	})
}

func cmdCreate(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Create a new escrow wallet and print its payment ID.

Without the -payer flag the wallet is created in the marketplace mode and
whoever funds it first becomes the payer.
`)
		fl.PrintDefaults()
	}
	var (
		nf         = addNodeFlags(fl)
		keyPathFl  = fl.String("key", defaultKey(), "Path to the private key file of the caller.")
		payerFl    = flAddress(fl, "payer", "", "Payer address. Optional.")
		payeeFl    = flAddress(fl, "payee", "", "Payee address.")
		investorFl = flAddress(fl, "investor", "", "Address of a registered investor.")
		amountFl   = fl.Int64("amount", 0, "Amount paid to the payee on release, without fees.")
	)
	fl.Parse(args)

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	return nf.exec(func(n *node) error {
		id, err := n.engine.CreateEscrowWallet(context.Background(), key.PublicKey().Condition(),
			*payerFl, *payeeFl, *investorFl, *amountFl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(output, "%X\n", id)
		return err
	})
}

func cmdFund(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Transfer the total required amount from the key owner to the wallet.
`)
		fl.PrintDefaults()
	}
	var (
		nf        = addNodeFlags(fl)
		keyPathFl = fl.String("key", defaultKey(), "Path to the payer private key file.")
		idFl      = flHex(fl, "id", "Hex encoded payment ID.")
	)
	fl.Parse(args)
	requireID(fl, *idFl)

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	return nf.exec(func(n *node) error {
		return n.engine.Fund(context.Background(), key.PublicKey().Condition(), *idFl)
	})
}

func cmdSubmitProof(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Submit the proof of delivery. Proof data is read from the file given with
-data or from the standard input. The sha256 hash of the data is signed with
the payee key.
`)
		fl.PrintDefaults()
	}
	var (
		nf        = addNodeFlags(fl)
		keyPathFl = fl.String("key", defaultKey(), "Path to the payee private key file.")
		idFl      = flHex(fl, "id", "Hex encoded payment ID.")
		dataFl    = fl.String("data", "", "Path to the proof data file. Standard input is used by default.")
	)
	fl.Parse(args)
	requireID(fl, *idFl)

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	var data []byte
	if *dataFl == "" {
		data, err = ioutil.ReadAll(input)
	} else {
		data, err = ioutil.ReadFile(*dataFl)
	}
	if err != nil {
		return fmt.Errorf("cannot read proof data: %s", err)
	}

	msg := escrow.SubmitProofMsg{Data: data}
	hash := msg.Hash()
	sig, err := key.Sign(hash)
	if err != nil {
		return err
	}
	return nf.exec(func(n *node) error {
		return n.engine.SubmitProof(context.Background(), *idFl, data, hash, key.PublicKey(), sig)
	})
}

func cmdDispute(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Dispute the submitted proof. Only the payer can dispute and only while the
dispute window is open.
`)
		fl.PrintDefaults()
	}
	var (
		nf        = addNodeFlags(fl)
		keyPathFl = fl.String("key", defaultKey(), "Path to the payer private key file.")
		idFl      = flHex(fl, "id", "Hex encoded payment ID.")
	)
	fl.Parse(args)
	requireID(fl, *idFl)

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	return nf.exec(func(n *node) error {
		return n.engine.RaiseDispute(context.Background(), key.PublicKey().Condition(), *idFl)
	})
}

func cmdResolve(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Resolve a dispute. With -refund the payer gets the total back, otherwise the
wallet goes back to waiting for signatures.
`)
		fl.PrintDefaults()
	}
	var (
		nf        = addNodeFlags(fl)
		keyPathFl = fl.String("key", defaultKey(), "Path to the investor private key file.")
		idFl      = flHex(fl, "id", "Hex encoded payment ID.")
		refundFl  = fl.Bool("refund", false, "Refund the payer.")
	)
	fl.Parse(args)
	requireID(fl, *idFl)

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	return nf.exec(func(n *node) error {
		return n.engine.ResolveDispute(context.Background(), key.PublicKey().Condition(), *idFl, *refundFl)
	})
}

func cmdSign(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Sign the wallet settlement in the given role. The wallet is released or
refunded as soon as the required signatures are collected.
`)
		fl.PrintDefaults()
	}
	var (
		nf        = addNodeFlags(fl)
		keyPathFl = fl.String("key", defaultKey(), "Path to the private key file.")
		idFl      = flHex(fl, "id", "Hex encoded payment ID.")
		roleFl    = fl.String("role", "", "One of payer, payee or investor.")
	)
	fl.Parse(args)
	requireID(fl, *idFl)

	role, err := escrow.ParseRole(strings.ToLower(*roleFl))
	if err != nil {
		return err
	}
	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	sig, err := key.Sign(escrow.SignBytes(*idFl, role))
	if err != nil {
		return err
	}
	pub := key.PublicKey()

	return nf.exec(func(n *node) error {
		ctx := context.Background()
		switch role {
		case escrow.RolePayer:
			return n.engine.SignAsPayer(ctx, *idFl, pub, sig)
		case escrow.RolePayee:
			return n.engine.SignAsPayee(ctx, *idFl, pub, sig)
		default:
			return n.engine.SignAsInvestor(ctx, *idFl, pub, sig)
		}
	})
}

func cmdManualRefund(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Refund the payer without collecting signatures. Only the investor can do it.
The operation is recorded in the audit log.
`)
		fl.PrintDefaults()
	}
	var (
		nf        = addNodeFlags(fl)
		keyPathFl = fl.String("key", defaultKey(), "Path to the investor private key file.")
		idFl      = flHex(fl, "id", "Hex encoded payment ID.")
	)
	fl.Parse(args)
	requireID(fl, *idFl)

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	return nf.exec(func(n *node) error {
		return n.engine.ManualRefund(context.Background(), key.PublicKey().Condition(), *idFl)
	})
}

func cmdStatus(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the wallet state, balances and dispute window as JSON.
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
		st, err := n.engine.GetStatus(context.Background(), *idFl)
		if err != nil {
			return err
		}
		return writeJSON(output, st)
	})
}

func cmdEvents(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print all state transitions of the wallet as JSON, oldest first.
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
		evs, err := n.engine.Events(context.Background(), *idFl)
		if err != nil {
			return err
		}
		return writeJSON(output, evs)
	})
}

func cmdWallets(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print all wallets in which the address is bound to any role as JSON.
`)
		fl.PrintDefaults()
	}
	var (
		nf     = addNodeFlags(fl)
		addrFl = flAddress(fl, "address", "", "Address of the party.")
	)
	fl.Parse(args)

	return nf.query(func(n *node) error {
		escs, err := n.engine.ByParty(context.Background(), *addrFl)
		if err != nil {
			return err
		}
		return writeJSON(output, escs)
	})
}
