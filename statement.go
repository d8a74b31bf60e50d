package cashbook

import (
	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
)

// Statement groups the transactions of an account checked against the same
// bank statement.
type Statement struct {
	ID           string
	Transactions []*Transaction  // value date order
	Debit        decimal.Decimal // sum of expenses, negative
	Credit       decimal.Decimal // sum of receipts
	First, Last  date.Date       // value dates

	// Opening is the initial balance plus every statement listed before this
	// one; Closing adds this one.
	Opening, Closing decimal.Decimal
}

// Total returns the net amount of the statement.
func (s Statement) Total() decimal.Decimal { return s.Debit.Add(s.Credit) }

// Statements returns the statements of a, in order of first appearance in
// the value date order.
func Statements(a *Account) []Statement {
	var stmts []Statement
	index := make(map[string]int)
	for _, tx := range a.timeline.txs {
		if !tx.IsChecked() {
			continue
		}
		i, ok := index[tx.Statement()]
		if !ok {
			i = len(stmts)
			index[tx.Statement()] = i
			stmts = append(stmts, Statement{ID: tx.Statement(), First: tx.ValueDate()})
		}
		s := &stmts[i]
		s.Transactions = append(s.Transactions, tx)
		s.Last = tx.ValueDate()
		if tx.IsExpense() {
			s.Debit = s.Debit.Add(tx.Amount())
		} else {
			s.Credit = s.Credit.Add(tx.Amount())
		}
	}
	balance := a.initial
	for i := range stmts {
		stmts[i].Opening = balance
		balance = balance.Add(stmts[i].Total())
		stmts[i].Closing = balance
	}
	return stmts
}

// UncheckedTotal returns the sum of the transactions of a not yet checked
// against a statement.
func UncheckedTotal(a *Account) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range a.timeline.txs {
		if !tx.IsChecked() {
			total = total.Add(tx.Amount())
		}
	}
	return total
}
