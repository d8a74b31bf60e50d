package renderer

import (
	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
)

// Balances is the balance of every account of a store on a given day.
type Balances struct {
	// Date is the day of the balances, "latest" when every transaction counts.
	Date     string       `json:"date"`
	Currency string       `json:"currency"`
	Accounts []BalanceRow `json:"accounts"`
	Total    string       `json:"total"`
	// Alerts is the number of accounts below their alert threshold.
	Alerts int `json:"alerts"`
}

// BalanceRow is the balance of a single account.
type BalanceRow struct {
	Name         string `json:"name"`
	Balance      string `json:"balance"`
	Unchecked    int    `json:"unchecked"`
	Transactions int    `json:"transactions"`
	Alert        bool   `json:"alert,omitempty"`
}

// belowAlert reports whether balance crosses the alert threshold of a.
func belowAlert(cur cashbook.Currency, a *cashbook.Account, balance decimal.Decimal) bool {
	th := a.Alert()
	return !th.IsLifeless() && cur.Compare(balance, th.Limit()) < 0
}

// NewBalances computes the balances of s at the end of day on. A zero on
// gives the balances after every transaction.
func NewBalances(s *cashbook.Store, on date.Date) *Balances {
	cur := s.Currency()
	b := &Balances{Date: "latest", Currency: cur.Code(), Accounts: []BalanceRow{}}
	if !on.IsZero() {
		b.Date = on.String()
	}
	total := decimal.Zero
	for _, a := range s.Accounts() {
		balance := a.Balance()
		if !on.IsZero() {
			balance = a.Timeline().BalanceAt(on)
		}
		total = total.Add(balance)
		row := BalanceRow{
			Name:         cell(a.Name()),
			Balance:      cur.Format(balance),
			Unchecked:    a.UncheckedCount(),
			Transactions: a.TransactionCount(),
			Alert:        belowAlert(cur, a, balance),
		}
		if row.Alert {
			b.Alerts++
		}
		b.Accounts = append(b.Accounts, row)
	}
	b.Total = cur.Format(total)
	return b
}

// RenderBalances renders the balances to a markdown string.
func RenderBalances(b *Balances) string {
	partials := map[string]string{
		"balances_table": "balances_table.md",
	}
	return renderTemplate("balances", "balances.md", partials, b)
}
