// Package cadence computes the next delivery date of a subscription.
package cadence

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

// Next returns the delivery date that follows ref for frequency f.
//
// Monthly adds one calendar month and clamps to the last day of the target
// month when the day does not exist there. The result depends on ref only, so
// iterating from a clamped date keeps the clamped day (01-31, 02-28, 03-28).
//
// An unknown or empty frequency never fails: it is scheduled as weekly and ok
// is false so the caller can report the anomaly.
func Next(ref civil.Date, f models.Frequency) (next civil.Date, ok bool) {
	switch f {
	case models.FrequencyWeekly:
		return ref.AddDays(7), true
	case models.FrequencyBiweekly:
		return ref.AddDays(14), true
	case models.FrequencyMonthly:
		return addMonthClamped(ref), true
	default:
		return ref.AddDays(7), false
	}
}

func addMonthClamped(d civil.Date) civil.Date {
	year, month := d.Year, d.Month+1
	if month > time.December {
		year, month = year+1, time.January
	}
	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

func daysIn(year int, month time.Month) int {
	// day 0 of the following month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}
