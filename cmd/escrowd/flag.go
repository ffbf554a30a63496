package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iov-one/settle"
)

// flAddress returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided. This
// function follows Go's flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flAddress(fl *flag.FlagSet, name, defaultVal, usage string) *settle.Address {
	var a settle.Address
	if defaultVal != "" {
		var err error
		a, err = settle.ParseAddress(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q settle.Address flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&a, name, usage)
	return &a
}

// flHex returns a hex encoded binary flag value.
func flHex(fl *flag.FlagSet, name, usage string) *[]byte {
	var b flagbyte
	fl.Var(&b, name, usage)
	return (*[]byte)(&b)
}

type flagbyte []byte

func (b flagbyte) String() string {
	return hex.EncodeToString(b)
}

func (b *flagbyte) Set(raw string) error {
	val, err := hex.DecodeString(raw)
	if err != nil {
		return err
	}
	*b = val
	return nil
}

// flTime returns a time flag value, expected in RFC 3339 format. The zero
// value means the flag was not provided.
func flTime(fl *flag.FlagSet, name, usage string) *time.Time {
	var t flagtime
	fl.Var(&t, name, usage)
	return (*time.Time)(&t)
}

type flagtime time.Time

func (t flagtime) String() string {
	if time.Time(t).IsZero() {
		return ""
	}
	return time.Time(t).Format(time.RFC3339)
}

func (t *flagtime) Set(raw string) error {
	val, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	*t = flagtime(val)
	return nil
}
