package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// commands is a register of all available commands. The name is matched
// with the first argument given.
//
// A command function receives stdin, stdout and the command line arguments
// without the program and the command name. Arguments are parsed with the
// flag package. Every command opens the store found in the home directory,
// executes a single operation and commits the result before returning.
var commands = map[string]func(input io.Reader, output io.Writer, args []string) error{
	"balance":           cmdBalance,
	"create":            cmdCreate,
	"dispute":           cmdDispute,
	"events":            cmdEvents,
	"fund":              cmdFund,
	"init":              cmdInit,
	"keyaddr":           cmdKeyaddr,
	"keygen":            cmdKeygen,
	"manual-refund":     cmdManualRefund,
	"register-investor": cmdRegisterInvestor,
	"resolve":           cmdResolve,
	"set-eligible":      cmdSetEligible,
	"sign":              cmdSign,
	"status":            cmdStatus,
	"submit-proof":      cmdSubmitProof,
	"transfers":         cmdTransfers,
	"version":           cmdVersion,
	"wallets":           cmdWallets,
}

func main() {
	if len(os.Args) == 1 {
		fmt.Fprintf(os.Stderr, "%s manages multi party escrow wallets.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s <command> [<flags>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		fmt.Fprintf(os.Stderr, "Run '%s <command> -help' to learn more about each command.\n", os.Args[0])
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		os.Exit(2)
	}

	if err := run(os.Stdin, os.Stdout, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, describeErr(err))
		os.Exit(1)
	}
}

// describeErr returns the error with its code and, if the input was
// rejected, the paths of all invalid fields.
func describeErr(err error) string {
	msg := fmt.Sprintf("%s (code %d)", err, errors.Code(err))
	if fields := errors.FieldNames(err); len(fields) > 0 {
		msg += "\ninvalid fields: " + strings.Join(fields, ", ")
	}
	return msg
}

func availableCmds() []string {
	available := make([]string, 0, len(commands))
	for name := range commands {
		available = append(available, name)
	}
	sort.Strings(available)
	return available
}

func cmdVersion(in io.Reader, out io.Writer, args []string) error {
	fmt.Fprintln(out, settle.Version())
	return nil
}
