package errors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Field wraps err with the path of the attribute it was found for. It
// returns nil if err is nil. The description is optional and formatted
// with args.
//
// A path is the Go name of the field, such as Amount or Payee. Nested
// fields and list elements are joined with a dot, use FieldPath to build
// one: Proof.DataHash or Investors.2.FeeWallet.
func Field(path string, err error, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	// Attach the stack once, at the most inner wrap.
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{parent: err, path: path, desc: description}
}

// AppendField adds the field error, if any, to errs.
func AppendField(errs error, path string, err error) error {
	return Append(errs, Field(path, err, ""))
}

// FieldPath joins the elements into a field path. Integers are list
// indexes.
//
//   FieldPath("Investors", 2, "FeeWallet") == "Investors.2.FeeWallet"
func FieldPath(elems ...interface{}) string {
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case string:
			parts = append(parts, v)
		case int:
			parts = append(parts, strconv.Itoa(v))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, ".")
}

type fieldError struct {
	parent error
	path   string
	desc   string
}

func (e *fieldError) Error() string {
	if e.desc == "" {
		return fmt.Sprintf("field %q: %s", e.path, e.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", e.path, e.desc, e.parent)
}

func (e *fieldError) Cause() error {
	return e.parent
}

// Field returns the path this error was created for.
func (e *fieldError) Field() string {
	return e.path
}

type fielder interface {
	Field() string
}

// FieldErrors returns every error created for the path. When field errors
// are nested under the same path, only the outermost one is returned.
func FieldErrors(err error, path string) []error {
	var res []error
	walkFields(err, func(f fielder) bool {
		if f.Field() != path {
			return true
		}
		res = append(res, f.(error))
		return false
	})
	return res
}

// FieldNames returns the paths of all outermost field errors, in the order
// they were appended. Each path is listed once.
func FieldNames(err error) []string {
	var names []string
	seen := make(map[string]bool)
	walkFields(err, func(f fielder) bool {
		if !seen[f.Field()] {
			seen[f.Field()] = true
			names = append(names, f.Field())
		}
		return false
	})
	return names
}

// walkFields calls fn for every field error found in the error tree. The
// walk descends into a field error only if fn returns true.
func walkFields(err error, fn func(fielder) bool) {
	for !isNilErr(err) {
		if f, ok := err.(fielder); ok && !fn(f) {
			return
		}
		// Unpack returns every child, so no Cause is followed after it.
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				walkFields(e, fn)
			}
			return
		}
		c, ok := err.(causer)
		if !ok {
			return
		}
		err = c.Cause()
	}
}
