package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/date"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// fieldsFlags holds the attributes of a transaction given on the command line.
type fieldsFlags struct {
	account     string
	date        string
	valueDate   string
	amount      string
	mode        string
	category    string
	statement   string
	number      string
	description string
	comment     string
	splits      []string
}

func (ff *fieldsFlags) register(f *flag.FlagSet) {
	f.StringVar(&ff.account, "a", "", "Account name.")
	f.StringVar(&ff.date, "d", date.Today().String(), "Transaction date.")
	f.StringVar(&ff.valueDate, "vd", "", "Value date, when the bank applies the amount. Defaults to the date.")
	f.StringVar(&ff.amount, "amount", "", "Amount, negative for an expense.")
	f.StringVar(&ff.mode, "m", "", "Payment mode.")
	f.StringVar(&ff.category, "c", "", "Category.")
	f.StringVar(&ff.statement, "s", "", "Statement the transaction is checked against.")
	f.StringVar(&ff.number, "n", "", "Cheque or transfer number.")
	f.StringVar(&ff.description, "desc", "", "Description.")
	f.StringVar(&ff.comment, "comment", "", "Comment.")
	f.Func("split", "A part of the amount as <amount>[:<category>[:<description>]]. Repeatable.", func(v string) error {
		ff.splits = append(ff.splits, v)
		return nil
	})
}

// fields resolves the flags against the entities of s.
func (ff *fieldsFlags) fields(s *cashbook.Store) (cashbook.Fields, error) {
	var f cashbook.Fields
	var err error
	if f.Account, err = findAccount(s, ff.account); err != nil {
		return f, err
	}
	if f.Date, err = date.Parse(ff.date); err != nil {
		return f, err
	}
	if f.ValueDate, err = date.Parse(ff.valueDate); err != nil {
		return f, err
	}
	if ff.amount == "" {
		return f, fmt.Errorf("missing amount")
	}
	if f.Amount, err = decimal.NewFromString(ff.amount); err != nil {
		return f, fmt.Errorf("invalid amount: %w", err)
	}
	if f.Mode = f.Account.Mode(ff.mode); f.Mode == nil {
		return f, fmt.Errorf("unknown mode %q in account %q", ff.mode, f.Account.Name())
	}
	if f.Category, err = findCategory(s, ff.category); err != nil {
		return f, err
	}
	f.Statement, f.Number, f.Description, f.Comment = ff.statement, ff.number, ff.description, ff.comment
	for _, v := range ff.splits {
		parts := strings.SplitN(v, ":", 3)
		var sub cashbook.SubTransaction
		if sub.Amount, err = decimal.NewFromString(parts[0]); err != nil {
			return f, fmt.Errorf("invalid split amount in %q: %w", v, err)
		}
		if len(parts) > 1 {
			if sub.Category, err = findCategory(s, parts[1]); err != nil {
				return f, err
			}
		}
		if len(parts) > 2 {
			sub.Description = parts[2]
		}
		f.Subs = append(f.Subs, sub)
	}
	return f, nil
}

// nextCheque returns the next free number of the check-books of a.
func nextCheque(a *cashbook.Account) (string, bool) {
	for _, cb := range a.CheckBooks() {
		if !cb.IsUsedUp() {
			return cb.NumberOf(cb.Next()), true
		}
	}
	return "", false
}

// txCmd adds a transaction to the ledger.
type txCmd struct {
	fieldsFlags
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "add a transaction" }
func (*txCmd) Usage() string {
	return `cbk tx -a <account> -amount <amount> [-d <date>] [-vd <value date>] [-m <mode>]
       [-c <category>] [-desc <text>] [-n <number>] [-s <statement>] [-split <part>...]

  Adds a transaction. Expenses paid with a cheque mode take the next free
  number of the account check-books unless -n is given.

Usage Examples:
# Groceries paid by card, part of it for the car.
$ cbk tx -a checking -amount -120 -m card -c food -desc Market -split -40:car:oil
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) { c.fieldsFlags.register(f) }

func (c *txCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	fields, err := c.fields(s)
	if err != nil {
		return failf("%v", err)
	}
	if fields.Mode.UsesCheckBook() && fields.Number == "" && fields.Amount.IsNegative() {
		if n, ok := nextCheque(fields.Account); ok {
			fields.Number = n
		}
	}
	tx, err := cashbook.NewTransaction(fields)
	if err != nil {
		return failf("%v", err)
	}
	if err := s.AddTransactions(tx); err != nil {
		return failf("%v", err)
	}
	if err := SaveStore(s); err != nil {
		return failf("saving ledger: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Added %s to %s, balance %s.\n",
		s.Currency().Format(tx.Amount()), tx.Account().Name(), s.Currency().Format(tx.Account().Balance()))
	return subcommands.ExitSuccess
}
