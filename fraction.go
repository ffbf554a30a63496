package settle

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/iov-one/settle/errors"
)

// Fraction represents a rational number. Fee rates are declared as
// fractions so that no floating point arithmetic is involved in computing
// amounts.
type Fraction struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

// String returns a human readable fraction representation.
func (f *Fraction) String() string {
	if f == nil {
		return "nil"
	}
	if f.Numerator == 0 {
		return "0"
	}
	if f.Denominator == 1 {
		return fmt.Sprint(f.Numerator)
	}
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

func (f *Fraction) UnmarshalJSON(raw []byte) error {
	// Prioritize human readable format.
	var human string
	if err := json.Unmarshal(raw, &human); err == nil {
		frac, err := ParseFractionString(human)
		if err != nil {
			return errors.Wrap(err, "fraction string")
		}
		*f = *frac
		return nil
	}

	var frac struct {
		Numerator   uint32
		Denominator uint32
	}
	if err := json.Unmarshal(raw, &frac); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	f.Numerator = frac.Numerator
	f.Denominator = frac.Denominator
	return nil
}

// Validate returns an error if this fraction represents an invalid value.
func (f Fraction) Validate() error {
	if f.Denominator == 0 {
		return errors.Wrap(errors.ErrState, "zero division")
	}
	return nil
}

// IsLessThanOne returns true if the fraction value is in the [0, 1) range.
func (f Fraction) IsLessThanOne() bool {
	return f.Denominator != 0 && f.Numerator < f.Denominator
}

// MulFloor returns floor(amount * f). The multiplication is done with
// arbitrary precision so that only the final result can overflow.
func (f Fraction) MulFloor(amount int64) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	if amount < 0 {
		return 0, errors.Wrap(errors.ErrAmount, "negative amount")
	}
	res := new(big.Int).Mul(big.NewInt(amount), new(big.Int).SetUint64(uint64(f.Numerator)))
	res.Quo(res, new(big.Int).SetUint64(uint64(f.Denominator)))
	if !res.IsInt64() {
		return 0, errors.Wrap(errors.ErrOverflow, "fraction of amount")
	}
	return res.Int64(), nil
}

// Normalize returns a new fraction instance that has its numerator and
// denominator reduced to the smallest possible representation.
func (f Fraction) Normalize() Fraction {
	div := uintGcd(f.Numerator, f.Denominator)
	if div == 0 {
		return f
	}
	return Fraction{
		Numerator:   f.Numerator / div,
		Denominator: f.Denominator / div,
	}
}

func uintGcd(a, b uint32) uint32 {
	for b != 0 {
		t := b
		b = a % b
		a = t
	}
	return a
}

// ParseFractionString returns a fraction value that is represented by given
// string. Both "3/100" and "5" (a whole number) formats are accepted.
// This fuction does not fail if representation format is correct but the
// value is invalid (i.e. value of "2/0").
func ParseFractionString(raw string) (*Fraction, error) {
	chunks := strings.SplitN(raw, "/", 2)
	n, err := strconv.ParseUint(strings.TrimSpace(chunks[0]), 10, 32)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "numerator")
	}
	if len(chunks) == 1 {
		return &Fraction{Numerator: uint32(n), Denominator: 1}, nil
	}
	d, err := strconv.ParseUint(strings.TrimSpace(chunks[1]), 10, 32)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "denominator")
	}
	return &Fraction{Numerator: uint32(n), Denominator: uint32(d)}, nil
}
