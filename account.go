package cashbook

import (
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is a named classification shared by many transactions.
//
// The nil *Category is the undefined category. Renaming a category is done in
// place through Store.RenameCategory: every referencing transaction sees the
// new name without being rewritten.
type Category struct {
	name string
}

// Name returns the category name, "" for the undefined category.
func (c *Category) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

func (c *Category) String() string { return c.Name() }

// Mode is a payment mode of an account (cheque, card, transfer...).
//
// Modes are replaced, never mutated: Store.SetMode swaps the account's
// reference for a new Mode so observers can still see the old one.
type Mode struct {
	name         string
	useCheckBook bool
	undefined    bool
}

// NewMode returns a mode. When useCheckBook is true, expenses paid with this
// mode consume numbers from the account check-books.
func NewMode(name string, useCheckBook bool) *Mode {
	return &Mode{name: name, useCheckBook: useCheckBook}
}

// Name returns the mode name, "" for the undefined mode.
func (m *Mode) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

func (m *Mode) UsesCheckBook() bool { return m.useCheckBook }
func (m *Mode) IsUndefined() bool   { return m.undefined }
func (m *Mode) String() string      { return m.Name() }

// Equal reports whether m and o have the same content, regardless of identity.
func (m *Mode) Equal(o *Mode) bool {
	return m.name == o.name && m.useCheckBook == o.useCheckBook && m.undefined == o.undefined
}

// CheckBook is a numbered series of cheques.
type CheckBook struct {
	prefix      string
	first, last int
	next        int
}

// NewCheckBook returns a check-book of count cheques numbered from first.
func NewCheckBook(prefix string, first, count int) *CheckBook {
	return &CheckBook{prefix: prefix, first: first, last: first + count - 1, next: first}
}

// RestoreCheckBook returns a persisted check-book, numbered from first to last,
// whose next available number is next.
func RestoreCheckBook(prefix string, first, last, next int) *CheckBook {
	cb := NewCheckBook(prefix, first, last-first+1)
	cb.consume(next - 1)
	return cb
}

func (c *CheckBook) Prefix() string { return c.prefix }
func (c *CheckBook) First() int     { return c.first }
func (c *CheckBook) Last() int      { return c.last }

// Next returns the next available number, Last()+1 once the book is used up.
func (c *CheckBook) Next() int { return c.next }

// IsUsedUp reports whether every cheque has been consumed.
func (c *CheckBook) IsUsedUp() bool { return c.next > c.last }

// Remaining returns the number of cheques still available.
func (c *CheckBook) Remaining() int { return max(0, c.last-c.next+1) }

// NumberOf returns the printed number of cheque n.
func (c *CheckBook) NumberOf(n int) string { return c.prefix + strconv.Itoa(n) }

// parse returns the cheque number designated by a transaction number when it
// belongs to this book.
func (c *CheckBook) parse(number string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(number), c.prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < c.first || n > c.last {
		return 0, false
	}
	return n, true
}

// consume moves the cursor past n.
func (c *CheckBook) consume(n int) {
	if n >= c.next {
		c.next = n + 1
	}
}

// Threshold is a balance alert level. The zero Threshold is lifeless: it never
// raises an alert.
type Threshold struct {
	limit decimal.Decimal
	alive bool
}

// Lifeless is the threshold that never raises an alert.
var Lifeless = Threshold{}

// AlertBelow returns a threshold crossed by balances strictly below limit.
func AlertBelow(limit decimal.Decimal) Threshold { return Threshold{limit: limit, alive: true} }

func (t Threshold) IsLifeless() bool        { return !t.alive }
func (t Threshold) Limit() decimal.Decimal { return t.limit }

func (t Threshold) isCrossedBy(cur Currency, balance decimal.Decimal) bool {
	return t.alive && cur.Compare(balance, t.limit) < 0
}

// Account is a bank account: an initial balance, payment modes, check-books
// and the balance timeline of its transactions.
//
// Accounts are created and mutated through the Store only.
type Account struct {
	name       string
	initial    decimal.Decimal
	alert      Threshold
	timeline   *Timeline
	modes      []*Mode // modes[0] is the undefined mode
	checkBooks []*CheckBook
	count      int // transactions
	unchecked  int // transactions without statement
}

func newAccount(cur Currency, name string, initial decimal.Decimal) *Account {
	return &Account{
		name:     name,
		initial:  initial,
		timeline: NewTimeline(cur, initial),
		modes:    []*Mode{{undefined: true}},
	}
}

func (a *Account) Name() string {
	if a == nil {
		return ""
	}
	return a.name
}

func (a *Account) String() string                  { return a.Name() }
func (a *Account) InitialBalance() decimal.Decimal { return a.initial }
func (a *Account) Alert() Threshold                { return a.alert }
func (a *Account) TransactionCount() int           { return a.count }
func (a *Account) UncheckedCount() int             { return a.unchecked }

// Timeline returns the balance timeline of the account. It must be treated as
// read-only: the Store keeps it in sync with the account's transactions.
func (a *Account) Timeline() *Timeline { return a.timeline }

// Balance returns the balance after every transaction.
func (a *Account) Balance() decimal.Decimal { return a.timeline.Final() }

// UndefinedMode returns the sentinel mode used by transactions without mode.
func (a *Account) UndefinedMode() *Mode { return a.modes[0] }

// Modes returns the account modes, the undefined mode first.
func (a *Account) Modes() []*Mode { return slices.Clone(a.modes) }

// Mode returns the mode named name, or nil.
func (a *Account) Mode(name string) *Mode {
	for _, m := range a.modes {
		if m.name == name {
			return m
		}
	}
	return nil
}

func (a *Account) hasMode(m *Mode) bool { return slices.Contains(a.modes, m) }

// CheckBooks returns the account check-books.
func (a *Account) CheckBooks() []*CheckBook { return slices.Clone(a.checkBooks) }

// add books a group of transactions of this account.
func (a *Account) add(txs []*Transaction) {
	for _, tx := range txs {
		a.count++
		if !tx.IsChecked() {
			a.unchecked++
		}
		a.consumeCheck(tx)
	}
	a.timeline.Add(txs...)
}

// remove unbooks a group of transactions of this account.
func (a *Account) remove(txs []*Transaction) {
	for _, tx := range txs {
		a.count--
		if !tx.IsChecked() {
			a.unchecked--
		}
	}
	a.timeline.Remove(txs...)
}

// consumeCheck advances the check-book cursor past the cheque used by tx.
func (a *Account) consumeCheck(tx *Transaction) {
	if !tx.Mode().UsesCheckBook() || tx.Amount().IsPositive() || tx.Number() == "" {
		return
	}
	for _, cb := range a.checkBooks {
		if n, ok := cb.parse(tx.Number()); ok {
			cb.consume(n)
			return
		}
	}
}
