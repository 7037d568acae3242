package policy

import (
	"fmt"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
)

// Window is an inclusive admission interval. A window either comes from a
// daily schedule (minute-of-day bounds, End may exceed 24h when the window
// runs past midnight) or from a one-off scheduled visit (absolute bounds).
// The zero Window means "no schedule configured".
type Window struct {
	Defined bool

	// Daily bounds, in unwrapped minutes since midnight.
	Start model.ClockTime
	End   model.ClockTime

	// Absolute bounds for scheduled visits. Zero for daily windows.
	From  time.Time
	Until time.Time
}

func dailyWindow(start, end model.ClockTime) Window {
	return Window{Defined: true, Start: start, End: end}
}

func visitWindow(from, until time.Time) Window {
	return Window{
		Defined: true,
		Start:   model.ClockOf(from),
		End:     model.ClockOf(until),
		From:    from,
		Until:   until,
	}
}

// Absolute reports whether the window is bound to specific instants.
func (w Window) Absolute() bool { return !w.From.IsZero() }

// Contains reports whether now falls inside the window at minute
// granularity. Daily windows are compared on minute-of-day and may span
// midnight; absolute windows compare now truncated to the minute.
func (w Window) Contains(now time.Time) bool {
	if !w.Defined {
		return true
	}
	if w.Absolute() {
		at := now.In(w.From.Location()).Truncate(time.Minute)
		return !at.Before(w.From) && !at.After(w.Until)
	}

	m := model.ClockOf(now)
	for _, shift := range [...]model.ClockTime{0, model.MinutesPerDay, -model.MinutesPerDay} {
		if v := m + shift; v >= w.Start && v <= w.End {
			return true
		}
	}
	return false
}

// String renders "HH:MM - HH:MM", or "N/A" when no schedule applies.
func (w Window) String() string {
	if !w.Defined {
		return "N/A"
	}
	return fmt.Sprintf("%s - %s", w.Start, w.End)
}
