package escrow

import "github.com/iov-one/settle/errors"

// escrow takes 1100-1120
var (
	ErrUnknownInvestor = errors.Register(1100, "unknown investor")
	ErrWindowClosed    = errors.Register(1101, "dispute window closed")
	ErrWindowOpen      = errors.Register(1102, "dispute window open")
	ErrAlreadySigned   = errors.Register(1103, "already signed")
	ErrTerminalState   = errors.Register(1104, "terminal state")
)
