package model

import "time"

// Date is a calendar date in the catalog's convention: year, month and
// optional day, no time zone. A Day of 0 means "month resolution only"
// (maturity dates often omit the day).
type Date struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Day   int    `json:"day,omitempty"`
	Time  string `json:"time,omitempty"` // optional wall-clock time, kept verbatim
}

// NewDate converts a time.Time into a catalog date, truncating time-of-day.
func NewDate(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// MonthDate converts a time.Time into a month-resolution catalog date.
func MonthDate(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month())}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// ToTime converts the date to a time.Time at midnight UTC. A missing day
// resolves to the first of the month, matching the catalog convention.
func (d Date) ToTime() time.Time {
	day := d.Day
	if day == 0 {
		day = 1
	}
	return time.Date(d.Year, time.Month(d.Month), day, 0, 0, 0, 0, time.UTC)
}
