package models

import "time"

var monthNames = [...]string{
	"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
	"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre",
}

// MonthName returns the Italian name of month (1-12), or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// Date truncates t to midnight UTC so calendar comparisons ignore the clock.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a calendar date in UTC.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first day of (year, month) and the first day of the
// following month.
func MonthBounds(year, month int) (time.Time, time.Time) {
	start := NewDate(year, time.Month(month), 1)
	return start, start.AddDate(0, 1, 0)
}

// MonthsBetween counts calendar months from -> to, ignoring days.
func MonthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// PreviousMonth returns the (year, month) before the given one.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// AddMonths moves (year, month) forward by n months.
func AddMonths(year, month, n int) (int, int) {
	idx := year*12 + (month - 1) + n
	return idx / 12, idx%12 + 1
}
