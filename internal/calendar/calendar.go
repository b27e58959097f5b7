package calendar

import (
	"fmt"
	"regexp"
	"time"
)

// Layouts of the persisted date strings
const (
	MonthKeyLayout = "01.2006"
	DateLayout     = "02.01.2006"
)

var monthKeyPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])\.[0-9]{4}$`)

// ComputationError flags calendar arithmetic that produced an impossible result
type ComputationError struct {
	Date    time.Time
	LastDay int
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("calendar: impossible last day %d for %s", e.LastDay, e.Date.Format(time.DateOnly))
}

// MonthKey returns MM.YYYY of t in loc
func MonthKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(MonthKeyLayout)
}

// DateString returns DD.MM.YYYY of t in loc
func DateString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ValidMonthKey reports whether s is a well-formed MM.YYYY key
func ValidMonthKey(s string) bool {
	return monthKeyPattern.MatchString(s)
}

// ValidDate reports whether s is a real DD.MM.YYYY calendar date
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// LastDayOfMonth returns the day number of the final day of t's month.
// Day zero of the following month normalizes to that day.
func LastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// Window is an inclusive range of days within one month
type Window struct {
	First int
	Last  int
}

// Contains reports whether day falls within the window
func (w Window) Contains(day int) bool {
	return day >= w.First && day <= w.Last
}

// ReminderWindow returns the trailing window [startDay, last day of month] for the month of t
func ReminderWindow(t time.Time, startDay int) (Window, error) {
	last := LastDayOfMonth(t)
	if last < 28 || last > 31 || startDay > last {
		return Window{}, &ComputationError{Date: t, LastDay: last}
	}
	return Window{First: startDay, Last: last}, nil
}

// NextRun returns the first instant strictly after now at hour:minute wall-clock time in loc
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
