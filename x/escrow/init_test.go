package escrow

import (
	"testing"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/store"
	"github.com/iov-one/settle/weavetest"
	"github.com/iov-one/settle/weavetest/assert"
)

func TestGenesis(t *testing.T) {
	owner := weavetest.RandomAddr(t)
	ownerFees := weavetest.RandomAddr(t)
	investor := weavetest.RandomAddr(t)
	investorFees := weavetest.RandomAddr(t)

	conf := []byte(`{"escrow": {
		"owner": "` + owner.String() + `",
		"owner_fee_wallet": "` + ownerFees.String() + `",
		"investor_fee_rate": {"numerator": 3, "denominator": 100},
		"owner_fee_rate": {"numerator": 2, "denominator": 100},
		"dispute_window": 1209600
	}}`)

	cases := map[string]struct {
		opts         settle.Options
		wantErr      *errors.Error
		wantInvestor bool
	}{
		"configuration only": {
			opts: settle.Options{"conf": conf},
		},
		"configuration and investors": {
			opts: settle.Options{
				"conf":   conf,
				"escrow": []byte(`{"investors": [{"address": "` + investor.String() + `", "fee_wallet": "` + investorFees.String() + `"}]}`),
			},
			wantInvestor: true,
		},
		"configuration is required": {
			opts:    settle.Options{},
			wantErr: errors.ErrNotFound,
		},
		"fee rate of one": {
			opts: settle.Options{
				"conf": []byte(`{"escrow": {
					"owner": "` + owner.String() + `",
					"owner_fee_wallet": "` + ownerFees.String() + `",
					"investor_fee_rate": {"numerator": 1, "denominator": 1},
					"owner_fee_rate": {"numerator": 2, "denominator": 100},
					"dispute_window": 1209600
				}}`),
			},
			wantErr: errors.ErrInput,
		},
		"investor collecting fees on itself": {
			opts: settle.Options{
				"conf":   conf,
				"escrow": []byte(`{"investors": [{"address": "` + investor.String() + `", "fee_wallet": "` + investor.String() + `"}]}`),
			},
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			err := Initializer{}.FromGenesis(tc.opts, db)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr != nil {
				return
			}

			got, err := loadConf(db)
			assert.Nil(t, err)
			assert.Equal(t, int64(DefaultDisputeWindow.Seconds()), got.DisputeWindow)
			assert.Equal(t, owner, got.Owner)

			var inv Investor
			err = NewInvestorBucket().One(db, investor, &inv)
			if tc.wantInvestor {
				assert.Nil(t, err)
				assert.Equal(t, investorFees, inv.FeeWallet)
			} else {
				assert.IsErr(t, errors.ErrNotFound, err)
			}
		})
	}
}
