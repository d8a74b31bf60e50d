package date

import "fmt"

// Range represents an inclusive range of dates.
//
// A zero From means "since the beginning of time", a zero To "until the end
// of time". The zero Range contains every date.
type Range struct{ From, To Date }

// NewRange returns the range of the period containing d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Between returns the range [from, to]. If both are set and 'from' is after
// 'to', they are swapped.
func Between(from, to Date) Range {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// Contains return true date is included in the range (boundaries included).
// A zero date is never contained in a bounded side.
func (r Range) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && (d.IsZero() || d.After(r.To)) {
		return false
	}
	return true
}

// IsUnbounded reports whether the range contains every date.
func (r Range) IsUnbounded() bool { return r.From.IsZero() && r.To.IsZero() }

func (r Range) String() string { return fmt.Sprintf("[%s, %s]", r.From, r.To) }
