package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iov-one/settle/crypto"
)

func cmdKeygen(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Generate a new private key.

When successful a new file with binary content containing private key is
created. This command fails if the private key file already exists.

When a seed is given, the key is derived from it using SLIP-0010 and the
given derivation path, otherwise a random key is created.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", defaultKey(),
			"Path to the private key file. You can use ESCROWD_PRIV_KEY environment variable to set it.")
		seedFl = flHex(fl, "seed", "Hex encoded master seed to derive the key from.")
		pathFl = fl.String("path", crypto.DefaultDerivationPath, "Derivation path, used only together with -seed.")
	)
	fl.Parse(args)

	if _, err := os.Stat(*keyPathFl); !os.IsNotExist(err) {
		// Do not allow to overwrite already existing private key. User
		// must manually delete it first.
		return fmt.Errorf("private key file %q already exists, delete this file and try again", *keyPathFl)
	}

	key := crypto.GenPrivKeyEd25519()
	if len(*seedFl) != 0 {
		var err error
		if key, err = crypto.DeriveEd25519(*seedFl, *pathFl); err != nil {
			return err
		}
	}

	fd, err := os.OpenFile(*keyPathFl, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("cannot create private key file: %s", err)
	}
	defer fd.Close()

	if _, err := fd.Write(key.Ed25519); err != nil {
		return fmt.Errorf("cannot write private key: %s", err)
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("cannot close private key file: %s", err)
	}
	_, err = fmt.Fprintln(output, key.PublicKey().Address())
	return err
}

func cmdKeyaddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print out a hex-address associated with your private key.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", defaultKey(),
			"Path to the private key file. You can use ESCROWD_PRIV_KEY environment variable to set it.")
		bechFl = fl.Bool("bech32", false, "Print the bech32 representation.")
	)
	fl.Parse(args)

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	addr := key.PublicKey().Address()
	if *bechFl {
		_, err = fmt.Fprintln(output, addr.Bech32())
		return err
	}
	_, err = fmt.Fprintln(output, addr)
	return err
}
