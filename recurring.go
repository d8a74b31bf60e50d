package cashbook

import (
	"fmt"
	"strings"

	"github.com/etnz/cashbook/date"
)

// Stepper returns the occurrence following d, or false when the series ends.
type Stepper func(d date.Date) (date.Date, bool)

// Schedule is a stepper that can be persisted: every N periods.
type Schedule struct {
	Period date.Period
	Every  int
}

// Stepper returns the stepper of the schedule.
func (s Schedule) Stepper() Stepper { return date.Every(s.Period, s.Every) }

func (s Schedule) String() string { return fmt.Sprintf("%d %s", s.Every, s.Period) }

// Recurring is a template generating one transaction per occurrence.
//
// Templates are immutable; advancing one yields a new template with the same
// identity.
type Recurring struct {
	id       int64
	model    Fields
	next     date.Date // zero once disabled
	end      date.Date // zero: no end
	step     Stepper
	schedule *Schedule
}

// NewRecurring returns a template whose first occurrence is on next. The
// series stops when step reports no successor or moves past end.
func NewRecurring(model Fields, next, end date.Date, step Stepper) (*Recurring, error) {
	if model.Account == nil {
		return nil, invalidf("recurring %q has no account", model.Description)
	}
	if step == nil {
		return nil, invalidf("recurring %q has no stepper", model.Description)
	}
	if model.Mode == nil {
		model.Mode = model.Account.UndefinedMode()
	}
	model.Subs = append([]SubTransaction(nil), model.Subs...)
	r := &Recurring{id: nextID(), model: model, next: next, end: end, step: step}
	if !end.IsZero() && next.After(end) {
		r.next = 0
	}
	return r, nil
}

// NewScheduled is like NewRecurring with a persistable schedule.
func NewScheduled(model Fields, next, end date.Date, s Schedule) (*Recurring, error) {
	r, err := NewRecurring(model, next, end, s.Stepper())
	if err != nil {
		return nil, err
	}
	r.schedule = &s
	return r, nil
}

func (r *Recurring) ID() int64           { return r.id }
func (r *Recurring) Description() string { return r.model.Description }
func (r *Recurring) Account() *Account   { return r.model.Account }
func (r *Recurring) Next() date.Date     { return r.next }
func (r *Recurring) End() date.Date      { return r.end }
func (r *Recurring) IsEnabled() bool     { return !r.next.IsZero() }

// Model returns a copy of the attributes copied into each occurrence.
func (r *Recurring) Model() Fields {
	f := r.model
	f.Subs = append([]SubTransaction(nil), r.model.Subs...)
	return f
}

// Schedule returns the persistable schedule, if the template has one.
func (r *Recurring) Schedule() (Schedule, bool) {
	if r.schedule == nil {
		return Schedule{}, false
	}
	return *r.schedule, true
}

func (r *Recurring) String() string { return fmt.Sprintf("%q next %s", r.model.Description, r.next) }

// occurrence returns the transaction due on the next date.
func (r *Recurring) occurrence() (*Transaction, error) {
	f := r.Model()
	if !f.ValueDate.IsZero() && !f.Date.IsZero() {
		f.ValueDate = r.next.Add(f.ValueDate.Sub(f.Date))
	} else {
		f.ValueDate = 0
	}
	f.Date = r.next
	return NewTransaction(f)
}

// advanced returns the template moved to its following occurrence.
func (r *Recurring) advanced() *Recurring {
	a := *r
	next, ok := r.step(r.next)
	// a stepper that does not move forward ends the series.
	if !ok || !next.After(r.next) || (!r.end.IsZero() && next.After(r.end)) {
		next = 0
	}
	a.next = next
	return &a
}

// derived returns the template with its model transformed, or false if
// nothing changed.
func (r *Recurring) derived(cat func(*Category) *Category, mode func(*Account, *Mode) *Mode) (*Recurring, bool) {
	f, changed := r.model.derive(cat, mode)
	if !changed {
		return r, false
	}
	a := *r
	a.model = f
	return &a, true
}

// compareRecurring orders templates by description then identity.
func compareRecurring(a, b *Recurring) int {
	if c := strings.Compare(a.model.Description, b.model.Description); c != 0 {
		return c
	}
	switch {
	case a.id < b.id:
		return -1
	case a.id > b.id:
		return 1
	}
	return 0
}
