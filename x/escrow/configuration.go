package escrow

import (
	"time"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
)

const confPkg = "escrow"

// Configuration is the platform wide escrow setup. Rates and the window are
// copied into every wallet on creation, so changing the configuration never
// affects existing wallets.
type Configuration struct {
	Owner           settle.Address  `json:"owner"`
	OwnerFeeWallet  settle.Address  `json:"owner_fee_wallet"`
	InvestorFeeRate settle.Fraction `json:"investor_fee_rate"`
	OwnerFeeRate    settle.Fraction `json:"owner_fee_rate"`
	// DisputeWindow is expressed in seconds.
	DisputeWindow int64 `json:"dispute_window"`
}

// DefaultConfiguration returns the configuration with the 3% investor fee,
// the 2% owner fee and the 14 days dispute window.
func DefaultConfiguration(owner, ownerFeeWallet settle.Address) Configuration {
	return Configuration{
		Owner:           owner,
		OwnerFeeWallet:  ownerFeeWallet,
		InvestorFeeRate: settle.Fraction{Numerator: 3, Denominator: 100},
		OwnerFeeRate:    settle.Fraction{Numerator: 2, Denominator: 100},
		DisputeWindow:   int64(DefaultDisputeWindow / time.Second),
	}
}

func (c *Configuration) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	errs = errors.AppendField(errs, "OwnerFeeWallet", c.OwnerFeeWallet.Validate())
	errs = errors.AppendField(errs, "InvestorFeeRate", validateRate(c.InvestorFeeRate))
	errs = errors.AppendField(errs, "OwnerFeeRate", validateRate(c.OwnerFeeRate))
	if c.DisputeWindow <= 0 {
		errs = errors.AppendField(errs, "DisputeWindow", errors.ErrInput)
	}
	return errs
}

func validateRate(f settle.Fraction) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if !f.IsLessThanOne() {
		return errors.Wrapf(errors.ErrInput, "rate %s must be less than one", f.String())
	}
	return nil
}

func loadConf(db gconf.ReadStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, confPkg, &conf); err != nil {
		return nil, errors.Wrap(err, "escrow configuration")
	}
	return &conf, nil
}
