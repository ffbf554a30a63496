package errors

import (
	"fmt"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If no errors or only nil values are given, nil is returned.
// If only one non nil value is given, that error is returned.
func Append(errs ...error) error {
	var res multiErr
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if m, ok := e.(multiErr); ok {
			res = append(res, m...)
		} else {
			res = append(res, e)
		}
	}
	switch len(res) {
	case 0:
		return nil
	case 1:
		return res[0]
	}
	return res
}

// multiErr represents a group of errors that were collected together, usually
// during validation of a single entity.
type multiErr []error

func (m multiErr) Error() string {
	points := make([]string, len(m))
	for i, err := range m {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s\n", len(m), strings.Join(points, "\n\t"))
}

// Unpack returns all errors grouped by this instance.
func (m multiErr) Unpack() []error {
	return m
}

// Code returns the code of the first error that provides one. This is
// consistent with the fail-fast approach.
func (m multiErr) Code() uint32 {
	for _, err := range m {
		if code := Code(err); code != internalCode {
			return code
		}
	}
	return internalCode
}

// unpacker is implemented by errors that are grouping other errors.
type unpacker interface {
	Unpack() []error
}
