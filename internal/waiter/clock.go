package waiter

import (
	"time"

	"github.com/facebookgo/clock"
)

// Clock is the time source used between polls. clock.New() from
// facebookgo/clock satisfies it.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

func defaultClock() Clock {
	return clock.New()
}
