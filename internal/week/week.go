// Package week maps calendar instants to teaching weeks and their
// submission deadlines.
//
// Week 1 always starts on January 1, whatever weekday that is; week n covers
// days (n-1)*7+1 through n*7 of the year. The trailing one or two days of a
// year fold into week 52.
package week

import (
	"time"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// Calculator is pure and safe for concurrent use. The zero value uses UTC.
type Calculator struct {
	loc *time.Location
}

func New(loc *time.Location) Calculator {
	return Calculator{loc: loc}
}

func (c Calculator) location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Number returns the week t falls in, in [1, 52].
func (c Calculator) Number(t time.Time) int {
	n := (t.In(c.location()).YearDay()-1)/7 + 1
	if n > domain.MaxWeek {
		n = domain.MaxWeek
	}
	return n
}

// Deadline returns the last instant of day 7 of the given week.
func (c Calculator) Deadline(weekNumber, year int) time.Time {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, c.location())
	// AddDate keeps wall-clock midnight across DST changes.
	return start.AddDate(0, 0, weekNumber*7).Add(-time.Nanosecond)
}

// IsLate reports whether submittedAt is strictly after the deadline of
// weekNumber in submittedAt's own year.
func (c Calculator) IsLate(submittedAt time.Time, weekNumber int) bool {
	year := submittedAt.In(c.location()).Year()
	return submittedAt.After(c.Deadline(weekNumber, year))
}
