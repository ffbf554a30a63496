package escrow

import (
	"time"

	"github.com/iov-one/settle"
)

// DefaultDisputeWindow is the time after a proof submission during which
// the payer may dispute it.
const DefaultDisputeWindow = 14 * 24 * time.Hour

// DisputeClock tells whether a dispute window is open. It holds no state
// and must be consulted with the current time on every call.
type DisputeClock struct {
	Window time.Duration
}

// IsWindowOpen returns true if now is before the end of the window started
// at submittedAt. The window is closed at exactly submittedAt + Window.
func (c DisputeClock) IsWindowOpen(submittedAt settle.UnixTime, now time.Time) bool {
	return now.Before(c.Deadline(submittedAt))
}

// Deadline returns the first instant at which the window is closed.
func (c DisputeClock) Deadline(submittedAt settle.UnixTime) time.Time {
	return submittedAt.Time().Add(c.Window)
}
