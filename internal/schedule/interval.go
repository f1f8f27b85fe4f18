// Package schedule holds the pure date arithmetic for recurring templates.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Interval is the cadence of a recurring transaction template.
type Interval string

const (
	IntervalDaily   Interval = "DAILY"
	IntervalWeekly  Interval = "WEEKLY"
	IntervalMonthly Interval = "MONTHLY"
	IntervalYearly  Interval = "YEARLY"
)

// ErrInvalidInterval marks an interval symbol outside the four supported
// values or an unusable anchor date. It signals a data-integrity problem
// upstream, not a transient failure.
var ErrInvalidInterval = errors.New("invalid recurring interval")

// Valid reports whether iv is one of the four supported symbols.
func (iv Interval) Valid() bool {
	switch iv {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// NextDate returns the due date one interval after anchor. Month and year
// steps use time.AddDate normalization, so an anchor day the target month
// does not have rolls forward (Jan 31 + 1 month = Mar 2 or Mar 3). That is
// the deterministic rollover rule for this system.
func NextDate(anchor time.Time, iv Interval) (time.Time, error) {
	if anchor.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero anchor date", ErrInvalidInterval)
	}

	switch iv {
	case IntervalDaily:
		return anchor.AddDate(0, 0, 1), nil
	case IntervalWeekly:
		return anchor.AddDate(0, 0, 7), nil
	case IntervalMonthly:
		return anchor.AddDate(0, 1, 0), nil
	case IntervalYearly:
		return anchor.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInterval, iv)
	}
}
