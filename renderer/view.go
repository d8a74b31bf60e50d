package renderer

import (
	"github.com/etnz/cashbook"
	"github.com/shopspring/decimal"
)

// ViewReport lists the transactions of a filtered view in its order.
type ViewReport struct {
	Title   string    `json:"title"`
	SortKey string    `json:"sortKey"`
	Rows    []ViewRow `json:"rows"`
	Count   int       `json:"count"`

	Expenses string `json:"expenses"`
	Receipts string `json:"receipts"`
	Total    string `json:"total"`
	// Final is the balance of the selected accounts after the view.
	Final string `json:"final"`
}

// ViewRow is a transaction, or one of its parts when Part is set.
type ViewRow struct {
	Part        bool   `json:"part,omitempty"`
	Date        string `json:"date,omitempty"`
	ValueDate   string `json:"valueDate,omitempty"`
	Account     string `json:"account,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Category    string `json:"category,omitempty"`
	Number      string `json:"number,omitempty"`
	Statement   string `json:"statement,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
}

// NewViewReport builds the report of the transactions of v. Split
// transactions are followed by one row per part, the remainder last.
func NewViewReport(title string, v *cashbook.View) *ViewReport {
	cur := v.Filter().Currency()
	r := &ViewReport{Title: title, SortKey: v.SortKey().String(), Rows: []ViewRow{}, Count: v.Len()}
	expenses, receipts := decimal.Zero, decimal.Zero
	for _, tx := range v.Transactions() {
		row := ViewRow{
			Date:        tx.Date().String(),
			Account:     cell(tx.Account().Name()),
			Mode:        cell(tx.Mode().Name()),
			Category:    cell(tx.Category().Name()),
			Number:      cell(tx.Number()),
			Statement:   cell(tx.Statement()),
			Description: cell(tx.Description()),
			Amount:      cur.Format(tx.Amount()),
		}
		if tx.ValueDate() != tx.Date() {
			row.ValueDate = tx.ValueDate().String()
		}
		r.Rows = append(r.Rows, row)
		if tx.SubCount() > 0 {
			for _, sub := range tx.Subs() {
				r.Rows = append(r.Rows, ViewRow{Part: true, Category: cell(sub.Category.Name()), Description: cell(sub.Description), Amount: cur.Format(sub.Amount)})
			}
			if rest := tx.Complement(); !cur.IsZero(rest) {
				r.Rows = append(r.Rows, ViewRow{Part: true, Category: cell(tx.Category().Name()), Amount: cur.Format(rest)})
			}
		}
		if tx.IsExpense() {
			expenses = expenses.Add(tx.Amount())
		} else {
			receipts = receipts.Add(tx.Amount())
		}
	}
	r.Expenses = cur.Format(expenses)
	r.Receipts = cur.Format(receipts)
	r.Total = cur.Format(expenses.Add(receipts))
	r.Final = cur.Format(v.Timeline().Final())
	return r
}

// RenderView renders the view report to a markdown string.
func RenderView(r *ViewReport) string {
	partials := map[string]string{
		"view_rows":   "view_rows.md",
		"view_totals": "view_totals.md",
	}
	return renderTemplate("view", "view.md", partials, r)
}
