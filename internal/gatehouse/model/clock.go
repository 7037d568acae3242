package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const MinutesPerDay = 24 * 60

var ErrInvalidClockTime = errors.New("invalid clock time, want HH:MM")

// ClockTime is a local wall-clock time of day in minutes since midnight.
type ClockTime int

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, ErrInvalidClockTime
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, ErrInvalidClockTime
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 || len(m) != 2 {
		return 0, ErrInvalidClockTime
	}
	return ClockTime(hour*60 + minute), nil
}

// ClockOf returns the minute-of-day of t in t's own location. Seconds
// are truncated.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// Minutes returns the minute-of-day as an int.
func (c ClockTime) Minutes() int { return int(c) }

// String formats as HH:MM, wrapping modulo 24h so that values produced by
// window arithmetic (negative or past midnight) still render as a time.
func (c ClockTime) String() string {
	m := int(c) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ClockPtr is a convenience for building optional clock times.
func ClockPtr(c ClockTime) *ClockTime { return &c }

// MustClock parses s and panics on error. Intended for tests and seeds.
func MustClock(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}
