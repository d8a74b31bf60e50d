// Package date provides a calendar day type with day-level granularity,
// inclusive ranges whose zero bounds are unbounded, and periods used to step
// recurring events.
package date

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02" // write date format

// Date represents a calendar day encoded as the integer yyyymmdd.
//
// Dates compare with the usual integer operators. The zero Date is "unset":
// used as a lower bound it means the beginning of time, as an upper bound the
// end of time.
type Date int32

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	return fromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func fromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date(y*10000 + int(m)*100 + d)
}

// Year returns the year of the date.
func (d Date) Year() int { return int(d) / 10000 }

// Month returns the month of the date.
func (d Date) Month() time.Month { return time.Month(int(d) / 100 % 100) }

// Day returns the day of the month.
func (d Date) Day() int { return int(d) % 100 }

// IsZero returns true for the unset date.
func (d Date) IsZero() bool { return d == 0 }

// Weekday returns the day of the week for the date.
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC) }

// Format returns a textual representation of the date according to layout.
//
//	See the documentation for the [time.Format].
func (d Date) Format(layout string) string { return d.time().Format(layout) }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d < x }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d > x }

// Compare returns -1, 0 or +1 as d is before, equal to or after x.
func (d Date) Compare(x Date) int {
	switch {
	case d < x:
		return -1
	case d > x:
		return 1
	}
	return 0
}

// Today returns the current date.
func Today() Date { return fromTime(time.Now()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(days int) Date { return New(d.Year(), d.Month(), d.Day()+days) }

// Sub returns the number of days from x to d.
func (d Date) Sub(x Date) int { return int(d.time().Sub(x.time()).Hours() / 24) }

// AddMonth returns a new Date with the given number of months added.
//
// The day is clamped to the end of the target month, so that January 31st
// plus one month is the last day of February.
func (d Date) AddMonth(months int) Date {
	first := New(d.Year(), d.Month()+time.Month(months), 1)
	last := first.EndOf(Monthly).Day()
	return New(first.Year(), first.Month(), min(d.Day(), last))
}

// String formats the date in its standard format. The zero Date prints as "-".
func (d Date) String() string {
	if d.IsZero() {
		return "-"
	}
	return d.time().Format(DateFormat)
}

// Parse parses a Date from a string. It is lenient and accepts formats like "2025-7-1".
// An empty string or "-" parses as the zero Date.
func Parse(str string) (Date, error) {
	str = strings.TrimSpace(str)
	if str == "" || str == "-" {
		return 0, nil
	}
	on, err := time.Parse(readDateFormat, str)
	// We use a slightly more permisive format for read, to support 2025-7-1 instead of 2025-07-01
	if err != nil {
		return 0, fmt.Errorf("invalid date %q want format %q: %w", str, readDateFormat, err)
	}
	return fromTime(on), nil
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON implements the json specific way to unmarshall a date from a json string.
func (d *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	v, err := Parse(str)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.String())
}

// check that a Date pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)
