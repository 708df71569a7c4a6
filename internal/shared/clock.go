package shared

import (
	"fmt"
	"sync/atomic"
	"time"
	_ "time/tzdata"
)

// BusinessTimezone anchors every "day" used by reconciliation.
const BusinessTimezone = "America/Santo_Domingo"

// DateLayout is the calendar date format accepted by the API.
const DateLayout = "2006-01-02"

var businessLoc atomic.Pointer[time.Location]

// BusinessLocation returns the business timezone, falling back to UTC-4.
func BusinessLocation() *time.Location {
	if loc := businessLoc.Load(); loc != nil {
		return loc
	}
	loc, err := time.LoadLocation(BusinessTimezone)
	if err != nil {
		loc = time.FixedZone("AST", -4*60*60)
	}
	businessLoc.CompareAndSwap(nil, loc)
	return businessLoc.Load()
}

// SetBusinessTimezone overrides the business timezone at startup.
func SetBusinessTimezone(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("shared: business timezone %q: %w", name, err)
	}
	businessLoc.Store(loc)
	return nil
}

// BusinessDay returns the [start, end) bounds of the business day containing t.
func BusinessDay(t time.Time) (time.Time, time.Time) {
	local := t.In(BusinessLocation())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}

// ParseBusinessDate parses YYYY-MM-DD as midnight in the business timezone.
func ParseBusinessDate(value string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, value, BusinessLocation())
	if err != nil {
		return time.Time{}, Invalid("date %q must be YYYY-MM-DD", value)
	}
	return day, nil
}

// FormatBusinessDate renders t as the business calendar date.
func FormatBusinessDate(t time.Time) string {
	return t.In(BusinessLocation()).Format(DateLayout)
}

// CalendarDate keeps t's calendar date and anchors it at business midnight.
// DATE columns decode at midnight UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, BusinessLocation())
}

// SameBusinessDay reports whether a and b fall on the same business day.
func SameBusinessDay(a, b time.Time) bool {
	return FormatBusinessDate(a) == FormatBusinessDate(b)
}

// MustBusinessDay is used by seeds and tests.
func MustBusinessDay(value string) time.Time {
	day, err := ParseBusinessDate(value)
	if err != nil {
		panic(fmt.Sprintf("shared: %v", err))
	}
	return day
}
