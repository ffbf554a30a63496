package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackTracePointsAtCaller(t *testing.T) {
	const here = "settle/errors/stacktrace_test.go"

	cases := map[string]struct {
		err  error
		want string
	}{
		"wrapped registered error": {
			err:  Wrap(ErrIneligible, "payer"),
			want: "payer: ineligible party",
		},
		"formatted wrap": {
			err:  Wrapf(ErrInsufficientFunds, "holds %d, %d required", 10, 1050),
			want: "holds 10, 1050 required: insufficient funds",
		},
		"field error": {
			err:  Field("Amount", ErrAmount, "must be positive"),
			want: `field "Amount": must be positive: invalid amount`,
		},
		"wrapped stdlib error": {
			err:  Wrap(fmt.Errorf("disk full"), "store"),
			want: "store: disk full",
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
			assert.NotNil(t, stackTrace(tc.err))

			full := fmt.Sprintf("%+v", tc.err)
			assert.Contains(t, full, here, "full trace must name the caller")
			assert.Contains(t, full, tc.want)

			short := fmt.Sprintf("%v", tc.err)
			assert.True(t, strings.HasPrefix(short, tc.want))
			assert.NotContains(t, short, "\n", "short form is a single line")
			assert.Contains(t, short, here)
		})
	}
}

func TestStackTraceIsAttachedOnce(t *testing.T) {
	inner := Wrap(ErrState, "cannot fund in released")
	outer := Wrap(Wrap(inner, "fund"), "escrow")

	assert.Equal(t, stackTrace(inner), stackTrace(outer))
	assert.Equal(t, "escrow: fund: cannot fund in released: invalid state", outer.Error())
}
