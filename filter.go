package cashbook

import (
	"maps"
	"slices"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
)

// AmountKinds selects expenses, receipts or both.
type AmountKinds int

const (
	Expenses AmountKinds = 1 << iota
	Receipts

	AnyAmount = Expenses | Receipts
)

// CheckStates selects checked transactions, unchecked ones or both.
type CheckStates int

const (
	Checked CheckStates = 1 << iota
	Unchecked

	AnyState = Checked | Unchecked
)

// Filter is an observable predicate over transactions.
//
// The zero value is not usable, see NewFilter. A new Filter allows every
// transaction. Setters notify the listeners only when the value actually
// changes.
type Filter struct {
	cur Currency

	accounts   map[*Account]bool  // nil: all
	modes      map[string]bool    // by name, nil: all
	categories map[*Category]bool // nil: all, the nil key is the undefined category

	dates, valueDates date.Range

	min, max decimal.NullDecimal // bounds of the absolute amount
	kinds    AmountKinds
	states   CheckStates

	statement, description, comment, number *TextMatcher

	bus       bus
	suspended bool
	dirty     bool
}

// NewFilter returns a filter allowing everything, comparing amounts in cur.
func NewFilter(cur Currency) *Filter {
	return &Filter{cur: cur, kinds: AnyAmount, states: AnyState}
}

// Clone returns a copy of f without its listeners.
func (f *Filter) Clone() *Filter {
	c := NewFilter(f.cur)
	c.copyFrom(f)
	return c
}

func (f *Filter) copyFrom(o *Filter) {
	f.cur = o.cur
	f.accounts = maps.Clone(o.accounts)
	f.modes = maps.Clone(o.modes)
	f.categories = maps.Clone(o.categories)
	f.dates, f.valueDates = o.dates, o.valueDates
	f.min, f.max = o.min, o.max
	f.kinds, f.states = o.kinds, o.states
	f.statement, f.description, f.comment, f.number = o.statement, o.description, o.comment, o.number
}

// Equal reports whether f and o select the same transactions.
func (f *Filter) Equal(o *Filter) bool {
	return maps.Equal(f.accounts, o.accounts) && (f.accounts == nil) == (o.accounts == nil) &&
		maps.Equal(f.modes, o.modes) && (f.modes == nil) == (o.modes == nil) &&
		maps.Equal(f.categories, o.categories) && (f.categories == nil) == (o.categories == nil) &&
		f.dates == o.dates && f.valueDates == o.valueDates &&
		nullEqual(f.min, o.min) && nullEqual(f.max, o.max) &&
		f.kinds == o.kinds && f.states == o.states &&
		f.statement.Equal(o.statement) && f.description.Equal(o.description) &&
		f.comment.Equal(o.comment) && f.number.Equal(o.number)
}

func nullEqual(a, b decimal.NullDecimal) bool {
	return a.Valid == b.Valid && (!a.Valid || a.Decimal.Equal(b.Decimal))
}

// Subscribe registers l, called with a FilterChanged event on every change.
func (f *Filter) Subscribe(l Listener) (cancel func()) { return f.bus.subscribe(l) }

func (f *Filter) changed() {
	if f.suspended {
		f.dirty = true
		return
	}
	f.bus.emit(Event{Kind: FilterChanged})
}

// SetSuspended holds notifications while true. Resuming emits a single
// notification if anything changed in between.
func (f *Filter) SetSuspended(suspended bool) {
	if f.suspended == suspended {
		return
	}
	f.suspended = suspended
	if !suspended && f.dirty {
		f.dirty = false
		f.changed()
	}
}

// Clear resets f to allow everything.
func (f *Filter) Clear() {
	if f.Equal(NewFilter(f.cur)) {
		return
	}
	f.copyFrom(NewFilter(f.cur))
	f.changed()
}

// Set replaces the settings of f with o's.
func (f *Filter) Set(o *Filter) {
	if f.Equal(o) {
		return
	}
	f.copyFrom(o)
	f.changed()
}

// Currency returns the currency used to compare amounts.
func (f *Filter) Currency() Currency { return f.cur }

// Accounts

// Accounts returns the allowed accounts, nil when all are allowed.
func (f *Filter) Accounts() []*Account {
	if f.accounts == nil {
		return nil
	}
	return slices.SortedFunc(maps.Keys(f.accounts), func(a, b *Account) int { return compareNames(a.name, b.name) })
}

// SetAccounts allows only the given accounts. No account allows them all.
func (f *Filter) SetAccounts(accounts ...*Account) {
	set := toSet(accounts)
	if maps.Equal(set, f.accounts) && (set == nil) == (f.accounts == nil) {
		return
	}
	f.accounts = set
	f.changed()
}

// AllowsAccount reports whether transactions of a can pass.
func (f *Filter) AllowsAccount(a *Account) bool { return f.accounts == nil || f.accounts[a] }

// Modes

// Modes returns the allowed mode names, nil when all are allowed.
func (f *Filter) Modes() []string {
	if f.modes == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(f.modes))
}

// SetModes allows only the modes with the given names, "" being the undefined
// mode. No name allows them all.
func (f *Filter) SetModes(names ...string) {
	set := toSet(names)
	if maps.Equal(set, f.modes) && (set == nil) == (f.modes == nil) {
		return
	}
	f.modes = set
	f.changed()
}

// AllowsMode reports whether transactions paid with a mode named name can pass.
func (f *Filter) AllowsMode(name string) bool { return f.modes == nil || f.modes[name] }

// Categories

// Categories returns the allowed categories, nil when all are allowed. The
// undefined category is returned as a nil element.
func (f *Filter) Categories() []*Category {
	if f.categories == nil {
		return nil
	}
	return slices.SortedFunc(maps.Keys(f.categories), func(a, b *Category) int { return compareNames(a.Name(), b.Name()) })
}

// SetCategories allows only the given categories, nil standing for the
// undefined category. No category allows them all.
func (f *Filter) SetCategories(categories ...*Category) {
	set := toSet(categories)
	if maps.Equal(set, f.categories) && (set == nil) == (f.categories == nil) {
		return
	}
	f.categories = set
	f.changed()
}

// AllowsCategory reports whether entries of category c can pass.
func (f *Filter) AllowsCategory(c *Category) bool { return f.categories == nil || f.categories[c] }

func toSet[K comparable](keys []K) map[K]bool {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[K]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Dates

func (f *Filter) Dates() date.Range      { return f.dates }
func (f *Filter) ValueDates() date.Range { return f.valueDates }

// SetDates restricts the transaction dates.
func (f *Filter) SetDates(r date.Range) {
	if r == f.dates {
		return
	}
	f.dates = r
	f.changed()
}

// SetValueDates restricts the transaction value dates.
func (f *Filter) SetValueDates(r date.Range) {
	if r == f.valueDates {
		return
	}
	f.valueDates = r
	f.changed()
}

// Amounts

// Amount returns the bounds of the absolute amount. Invalid bounds are open.
func (f *Filter) Amount() (min, max decimal.NullDecimal) { return f.min, f.max }

// SetAmount bounds the absolute amount of entries, inclusively. An invalid
// NullDecimal leaves that side open.
func (f *Filter) SetAmount(min, max decimal.NullDecimal) error {
	if (min.Valid && min.Decimal.IsNegative()) || (max.Valid && max.Decimal.IsNegative()) {
		return invalidf("negative amount bound")
	}
	if min.Valid && max.Valid && min.Decimal.GreaterThan(max.Decimal) {
		return invalidf("amount range [%s, %s] is empty", min.Decimal, max.Decimal)
	}
	if nullEqual(min, f.min) && nullEqual(max, f.max) {
		return nil
	}
	f.min, f.max = min, max
	f.changed()
	return nil
}

func (f *Filter) AmountKinds() AmountKinds { return f.kinds }

// SetAmountKinds selects expenses, receipts or both.
func (f *Filter) SetAmountKinds(k AmountKinds) {
	if k == f.kinds {
		return
	}
	f.kinds = k
	f.changed()
}

// passAmount tests a single entry amount.
func (f *Filter) passAmount(a decimal.Decimal) bool {
	switch {
	case f.cur.IsZero(a):
		if f.kinds&AnyAmount == 0 {
			return false
		}
	case a.IsNegative():
		if f.kinds&Expenses == 0 {
			return false
		}
	default:
		if f.kinds&Receipts == 0 {
			return false
		}
	}
	abs := a.Abs()
	if f.min.Valid && f.cur.Compare(abs, f.min.Decimal) < 0 {
		return false
	}
	if f.max.Valid && f.cur.Compare(abs, f.max.Decimal) > 0 {
		return false
	}
	return true
}

// Check state and text

func (f *Filter) CheckStates() CheckStates { return f.states }

// SetCheckStates selects checked transactions, unchecked ones or both.
func (f *Filter) SetCheckStates(s CheckStates) {
	if s == f.states {
		return
	}
	f.states = s
	f.changed()
}

func (f *Filter) Statement() *TextMatcher   { return f.statement }
func (f *Filter) Description() *TextMatcher { return f.description }
func (f *Filter) Comment() *TextMatcher     { return f.comment }
func (f *Filter) Number() *TextMatcher      { return f.number }

// SetStatement restricts the statements of checked transactions. Nil removes
// the restriction.
func (f *Filter) SetStatement(m *TextMatcher) { f.setMatcher(&f.statement, m) }

// SetDescription restricts entry descriptions. Nil removes the restriction.
func (f *Filter) SetDescription(m *TextMatcher) { f.setMatcher(&f.description, m) }

// SetComment restricts transaction comments. Nil removes the restriction.
func (f *Filter) SetComment(m *TextMatcher) { f.setMatcher(&f.comment, m) }

// SetNumber restricts transaction numbers. Nil removes the restriction.
func (f *Filter) SetNumber(m *TextMatcher) { f.setMatcher(&f.number, m) }

func (f *Filter) setMatcher(field **TextMatcher, m *TextMatcher) {
	if (*field).Equal(m) {
		return
	}
	*field = m
	f.changed()
}

func (f *Filter) passState(tx *Transaction) bool {
	if tx.IsChecked() {
		return f.states&Checked != 0 && f.statement.Matches(tx.Statement())
	}
	return f.states&Unchecked != 0
}

// IsOk reports whether tx passes the filter.
//
// The transaction level criteria (account, mode, dates, check state, number
// and comment) must pass. Then at least one entry must pass the entry level
// criteria (category, amount and description): the transaction itself, one
// of its parts, or its non-zero complement taken with the transaction
// description and category.
func (f *Filter) IsOk(tx *Transaction) bool {
	if !f.AllowsAccount(tx.Account()) || !f.AllowsMode(tx.Mode().Name()) ||
		!f.dates.Contains(tx.Date()) || !f.valueDates.Contains(tx.ValueDate()) ||
		!f.passState(tx) || !f.number.Matches(tx.Number()) || !f.comment.Matches(tx.Comment()) {
		return false
	}
	if f.passEntry(tx.Category(), tx.Amount(), tx.Description()) {
		return true
	}
	if len(tx.f.Subs) == 0 {
		return false
	}
	for _, s := range tx.f.Subs {
		if f.passEntry(s.Category, s.Amount, s.Description) {
			return true
		}
	}
	c := tx.Complement()
	return !f.cur.IsZero(c) && f.passEntry(tx.Category(), c, tx.Description())
}

func (f *Filter) passEntry(c *Category, amount decimal.Decimal, description string) bool {
	return f.AllowsCategory(c) && f.passAmount(amount) && f.description.Matches(description)
}

// Scrubbing, driven by the Store and the View

// forgetAccount drops a from the allowed accounts. It reports whether the
// filter changed and whether the set collapsed to allow all.
func (f *Filter) forgetAccount(a *Account) (changed, collapsed bool) {
	return forget(f, &f.accounts, a)
}

// forgetCategory drops c from the allowed categories.
func (f *Filter) forgetCategory(c *Category) (changed, collapsed bool) {
	return forget(f, &f.categories, c)
}

// forgetMode drops a mode name no allowed account among accounts still has.
func (f *Filter) forgetMode(name string, accounts []*Account) (changed, collapsed bool) {
	if f.modeReachable(name, accounts) {
		return false, false
	}
	return forget(f, &f.modes, name)
}

func (f *Filter) modeReachable(name string, accounts []*Account) bool {
	for _, a := range accounts {
		if f.AllowsAccount(a) && a.Mode(name) != nil {
			return true
		}
	}
	return false
}

// renameMode follows a mode replaced in an account: a filter allowing the old
// name allows the new one, and forgets the old name when it is unreachable.
func (f *Filter) renameMode(old, name string, accounts []*Account) (added bool) {
	if f.modes == nil || !f.modes[old] || old == name {
		return false
	}
	added = !f.modes[name]
	f.modes[name] = true
	changed := added
	if !f.modeReachable(old, accounts) {
		delete(f.modes, old)
		changed = true
	}
	if changed {
		f.changed()
	}
	return added
}

func forget[K comparable](f *Filter, set *map[K]bool, k K) (changed, collapsed bool) {
	if *set == nil || !(*set)[k] {
		return false, false
	}
	delete(*set, k)
	if len(*set) == 0 {
		*set = nil
		collapsed = true
	}
	f.changed()
	return true, collapsed
}
