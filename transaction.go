package cashbook

import (
	"fmt"
	"sync/atomic"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
)

// lastID is the last identity handed to a transaction or a recurring template.
// Identities only break ordering ties, they carry no business meaning.
var lastID atomic.Int64

func nextID() int64 { return lastID.Add(1) }

// SubTransaction is a part of a split transaction.
type SubTransaction struct {
	Amount      decimal.Decimal
	Description string
	Category    *Category // nil is the undefined category
}

// Fields holds the attributes of a transaction. It is the mutable form used to
// build or derive transactions.
type Fields struct {
	Date        date.Date
	ValueDate   date.Date // defaults to Date
	Amount      decimal.Decimal
	Account     *Account
	Mode        *Mode     // nil is the account's undefined mode
	Category    *Category // nil is the undefined category
	Statement   string    // empty when the transaction is not checked
	Number      string
	Description string
	Comment     string
	Subs        []SubTransaction
}

// Transaction is an immutable ledger entry.
//
// Transactions are compared by pointer; deriving a changed version with
// NewTransaction(tx.Fields()) yields a new identity.
type Transaction struct {
	id int64
	f  Fields
}

// NewTransaction validates fields and returns a new transaction.
func NewTransaction(f Fields) (*Transaction, error) {
	if f.Account == nil {
		return nil, fmt.Errorf("transaction has no account: %w", ErrInvalidArgument)
	}
	if f.Date.IsZero() {
		return nil, fmt.Errorf("transaction has no date: %w", ErrInvalidArgument)
	}
	if f.ValueDate.IsZero() {
		f.ValueDate = f.Date
	}
	if f.Mode == nil {
		f.Mode = f.Account.UndefinedMode()
	}
	f.Subs = append([]SubTransaction(nil), f.Subs...)
	return &Transaction{id: nextID(), f: f}, nil
}

// MustTransaction is like NewTransaction but panics on error.
func MustTransaction(f Fields) *Transaction {
	tx, err := NewTransaction(f)
	if err != nil {
		panic(err.Error())
	}
	return tx
}

// Fields returns a copy of the transaction attributes.
func (t *Transaction) Fields() Fields {
	f := t.f
	f.Subs = append([]SubTransaction(nil), t.f.Subs...)
	return f
}

func (t *Transaction) ID() int64                 { return t.id }
func (t *Transaction) Date() date.Date           { return t.f.Date }
func (t *Transaction) ValueDate() date.Date      { return t.f.ValueDate }
func (t *Transaction) Amount() decimal.Decimal   { return t.f.Amount }
func (t *Transaction) Account() *Account         { return t.f.Account }
func (t *Transaction) Mode() *Mode               { return t.f.Mode }
func (t *Transaction) Category() *Category       { return t.f.Category }
func (t *Transaction) Statement() string         { return t.f.Statement }
func (t *Transaction) Number() string            { return t.f.Number }
func (t *Transaction) Description() string       { return t.f.Description }
func (t *Transaction) Comment() string           { return t.f.Comment }
func (t *Transaction) IsChecked() bool           { return t.f.Statement != "" }
func (t *Transaction) SubCount() int             { return len(t.f.Subs) }
func (t *Transaction) Sub(i int) SubTransaction  { return t.f.Subs[i] }
func (t *Transaction) Subs() []SubTransaction    { return append([]SubTransaction(nil), t.f.Subs...) }
func (t *Transaction) IsExpense() bool           { return t.f.Amount.IsNegative() }
func (t *Transaction) String() string            { return fmt.Sprintf("#%d %s %s %q", t.id, t.f.Date, t.f.Amount, t.f.Description) }

// replace returns a transaction with the same identity and new fields.
func (t *Transaction) replace(f Fields) *Transaction { return &Transaction{id: t.id, f: f} }

// Complement returns the part of the amount not covered by sub-transactions.
func (t *Transaction) Complement() decimal.Decimal {
	c := t.f.Amount
	for _, s := range t.f.Subs {
		c = c.Sub(s.Amount)
	}
	return c
}

// usesCategory reports whether the transaction, or one of its parts, references c.
func (t *Transaction) usesCategory(c *Category) bool {
	if t.f.Category == c {
		return true
	}
	for _, s := range t.f.Subs {
		if s.Category == c {
			return true
		}
	}
	return false
}

// derive returns the fields with the category and mode references
// transformed, and whether anything changed.
func (f Fields) derive(cat func(*Category) *Category, mode func(*Account, *Mode) *Mode) (Fields, bool) {
	changed := false
	if cat != nil {
		if c := cat(f.Category); c != f.Category {
			f.Category, changed = c, true
		}
		subs := append([]SubTransaction(nil), f.Subs...)
		for i := range subs {
			if c := cat(subs[i].Category); c != subs[i].Category {
				subs[i].Category, changed = c, true
			}
		}
		f.Subs = subs
	}
	if mode != nil {
		if m := mode(f.Account, f.Mode); m != f.Mode {
			f.Mode, changed = m, true
		}
	}
	return f, changed
}
