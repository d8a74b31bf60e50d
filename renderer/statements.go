package renderer

import (
	"github.com/etnz/cashbook"
)

// StatementsReport reconciles an account with its bank statements.
type StatementsReport struct {
	Account    string         `json:"account"`
	Initial    string         `json:"initial"`
	Statements []StatementRow `json:"statements"`
	// Checked is the closing balance of the last statement.
	Checked   string `json:"checked"`
	Unchecked string `json:"unchecked"`
	Balance   string `json:"balance"`
}

// StatementRow is a single statement.
type StatementRow struct {
	ID           string `json:"id"`
	First        string `json:"first"`
	Last         string `json:"last"`
	Transactions int    `json:"transactions"`
	Opening      string `json:"opening"`
	Debit        string `json:"debit"`
	Credit       string `json:"credit"`
	Closing      string `json:"closing"`
}

// NewStatementsReport builds the statements report of a.
func NewStatementsReport(cur cashbook.Currency, a *cashbook.Account) *StatementsReport {
	r := &StatementsReport{
		Account:    a.Name(),
		Initial:    cur.Format(a.InitialBalance()),
		Statements: []StatementRow{},
		Unchecked:  cur.Format(cashbook.UncheckedTotal(a)),
		Balance:    cur.Format(a.Balance()),
	}
	checked := a.InitialBalance()
	for _, s := range cashbook.Statements(a) {
		r.Statements = append(r.Statements, StatementRow{
			ID:           cell(s.ID),
			First:        s.First.String(),
			Last:         s.Last.String(),
			Transactions: len(s.Transactions),
			Opening:      cur.Format(s.Opening),
			Debit:        cur.Format(s.Debit),
			Credit:       cur.Format(s.Credit),
			Closing:      cur.Format(s.Closing),
		})
		checked = s.Closing
	}
	r.Checked = cur.Format(checked)
	return r
}

// RenderStatements renders the statements report to a markdown string.
func RenderStatements(r *StatementsReport) string {
	partials := map[string]string{
		"statements_table": "statements_table.md",
	}
	if len(r.Statements) == 0 {
		partials["statements_table"] = "statements_none.md"
	}
	return renderTemplate("statements", "statements.md", partials, r)
}
