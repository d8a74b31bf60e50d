package renderer

import (
	"strings"
	"testing"

	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var EUR = cashbook.MustCurrency("EUR")

func eur(s string) string { return EUR.Format(decimal.RequireFromString(s)) }

func day(s string) date.Date { return date.MustParse(s) }

// document is a parsed markdown report.
type document struct {
	src  []byte
	root ast.Node
}

func parse(md string) document {
	src := []byte(md)
	p := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()
	return document{src: src, root: p.Parse(text.NewReader(src))}
}

// text returns the plain text of n, without emphasis.
func (d document) text(n ast.Node) string {
	var b strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(d.src))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// headings returns the text of every heading.
func (d document) headings() []string {
	var hs []string
	ast.Walk(d.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering {
			hs = append(hs, d.text(h))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return hs
}

// tables returns the cells of every table, header row first.
func (d document) tables() [][][]string {
	var tables [][][]string
	ast.Walk(d.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		tbl, ok := n.(*east.Table)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		var rows [][]string
		for r := tbl.FirstChild(); r != nil; r = r.NextSibling() {
			var cells []string
			for c := r.FirstChild(); c != nil; c = c.NextSibling() {
				cells = append(cells, d.text(c))
			}
			rows = append(rows, cells)
		}
		tables = append(tables, rows)
		return ast.WalkSkipChildren, nil
	})
	return tables
}

// sampleStore has a checking account crossing its alert threshold on
// 2025-01-10 and a savings account without threshold.
func sampleStore(t *testing.T) (*cashbook.Store, *cashbook.Account, *cashbook.Account) {
	t.Helper()
	s := cashbook.NewStore(EUR)
	food, _ := s.AddCategory("food")
	checking, _ := s.AddAccount("Checking", decimal.NewFromInt(100))
	savings, _ := s.AddAccount("Savings", decimal.Zero)
	require.NoError(t, s.SetAlert(checking, cashbook.AlertBelow(decimal.Zero)))

	txs := []cashbook.Fields{
		{Date: day("2025-01-03"), Amount: decimal.NewFromInt(-20), Account: checking, Category: food, Statement: "S1", Description: "Bakery"},
		{Date: day("2025-01-05"), Amount: decimal.NewFromInt(500), Account: savings, Statement: "S1"},
		{Date: day("2025-01-10"), Amount: decimal.NewFromInt(-150), Account: checking, Description: "Rent"},
		{Date: day("2025-01-15"), Amount: decimal.NewFromInt(-50), Account: checking, Category: food, Description: "Market",
			Subs: []cashbook.SubTransaction{{Amount: decimal.NewFromInt(-20), Description: "wine"}}},
	}
	for _, f := range txs {
		tx, err := cashbook.NewTransaction(f)
		require.NoError(t, err)
		require.NoError(t, s.AddTransactions(tx))
	}
	return s, checking, savings
}

func TestRenderBalances(t *testing.T) {
	s, _, _ := sampleStore(t)

	doc := parse(RenderBalances(NewBalances(s, day("2025-01-05"))))
	assert.Equal(t, []string{"Balances on 2025-01-05"}, doc.headings())
	assert.Equal(t, [][][]string{{
		{"Account", "Balance", "Unchecked", "Transactions"},
		{"Checking", eur("80"), "2", "3"},
		{"Savings", eur("500"), "0", "1"},
		{"Total", eur("580"), "", ""},
	}}, doc.tables())

	md := RenderBalances(NewBalances(s, 0))
	doc = parse(md)
	assert.Equal(t, []string{"Balances on latest"}, doc.headings())
	rows := doc.tables()[0]
	assert.Equal(t, []string{"Checking (alert)", eur("-120"), "2", "3"}, rows[1])
	assert.Equal(t, []string{"Total", eur("380"), "", ""}, rows[3])
	assert.Contains(t, md, "1 account(s) below their alert threshold.")
}

func TestRenderTimeline(t *testing.T) {
	_, checking, _ := sampleStore(t)

	md := RenderTimeline(NewTimelineReport("Checking", checking.Timeline(), checking.Alert(), date.Range{}))
	doc := parse(md)
	assert.Equal(t, []string{"Checking"}, doc.headings())
	rows := doc.tables()[0]
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"From", "To", "Balance", "Transactions"}, rows[0])
	assert.Equal(t, []string{"-", "2025-01-02", eur("100"), "0"}, rows[1])
	assert.Equal(t, []string{"2025-01-03", "2025-01-09", eur("80"), "1"}, rows[2])
	assert.Equal(t, []string{"2025-01-10", "2025-01-14", eur("-70"), "1"}, rows[3])
	assert.Equal(t, []string{"2025-01-15", "-", eur("-120"), "1"}, rows[4])
	assert.Contains(t, md, "**"+eur("-70")+"**", "alerts are emphasized")
	assert.Contains(t, md, "Final balance: "+eur("-120")+", alert below "+eur("0"))

	windowed := NewTimelineReport("Checking", checking.Timeline(), cashbook.Lifeless, date.Between(day("2025-01-04"), day("2025-01-12")))
	require.Len(t, windowed.Intervals, 2)
	assert.Equal(t, "2025-01-03", windowed.Intervals[0].From)
	assert.Equal(t, "2025-01-14", windowed.Intervals[1].To)
	assert.False(t, windowed.Intervals[1].Alert)
	assert.NotContains(t, RenderTimeline(windowed), "alert below")
}

func TestRenderStatements(t *testing.T) {
	s, checking, _ := sampleStore(t)

	doc := parse(RenderStatements(NewStatementsReport(s.Currency(), checking)))
	assert.Equal(t, []string{"Statements of Checking"}, doc.headings())
	tables := doc.tables()
	require.Len(t, tables, 2)
	assert.Equal(t, [][]string{
		{"Statement", "From", "To", "Transactions", "Opening", "Debit", "Credit", "Closing"},
		{"S1", "2025-01-03", "2025-01-03", "1", eur("100"), eur("-20"), eur("0"), eur("80")},
	}, tables[0])
	assert.Equal(t, [][]string{
		{"", ""},
		{"Checked", eur("80")},
		{"Unchecked", eur("-170")},
		{"Balance", eur("-120")},
	}, tables[1])

	empty := cashbook.NewStore(EUR)
	a, _ := empty.AddAccount("Cash", decimal.NewFromInt(10))
	md := RenderStatements(NewStatementsReport(EUR, a))
	assert.Contains(t, md, "No checked transaction.")
	tables = parse(md).tables()
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"Checked", eur("10")}, tables[0][1])
}

func TestRenderView(t *testing.T) {
	s, checking, _ := sampleStore(t)
	f := cashbook.NewFilter(s.Currency())
	f.SetAccounts(checking)
	v := cashbook.NewView(s, f)
	defer v.Close()

	md := RenderView(NewViewReport("Checking expenses", v))
	doc := parse(md)
	assert.Equal(t, []string{"Checking expenses"}, doc.headings())
	assert.Contains(t, md, "3 transaction(s) by date.")

	tables := doc.tables()
	require.Len(t, tables, 2)
	rows := tables[0]
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"2025-01-03", "", "Checking", "", "food", "", "S1", "Bakery", eur("-20")}, rows[1])
	assert.Equal(t, []string{"2025-01-10", "", "Checking", "", "", "", "", "Rent", eur("-150")}, rows[2])
	assert.Equal(t, []string{"2025-01-15", "", "Checking", "", "food", "", "", "Market", eur("-50")}, rows[3])
	assert.Equal(t, []string{"", "", "", "", "", "", "", "wine", eur("-20")}, rows[4])
	assert.Equal(t, []string{"", "", "", "", "food", "", "", "", eur("-30")}, rows[5], "the remainder keeps the transaction category")

	assert.Equal(t, [][]string{
		{"", ""},
		{"Expenses", eur("-220")},
		{"Receipts", eur("0")},
		{"Total", eur("-220")},
		{"Balance", eur("-120")},
	}, tables[1])
}

func TestRenderAlerts(t *testing.T) {
	s, _, _ := sampleStore(t)

	r := NewAlertsReport(s, date.Range{})
	require.Len(t, r.Alerts, 1)
	doc := parse(RenderAlerts(r))
	assert.Equal(t, [][][]string{{
		{"Account", "Date", "Limit", "Balance"},
		{"Checking", "2025-01-10", eur("0"), eur("-70")},
	}}, doc.tables())

	md := RenderAlerts(NewAlertsReport(s, date.Between(0, day("2025-01-05"))))
	assert.Contains(t, md, "No account falls below its alert threshold.")
	assert.Empty(t, parse(md).tables())
}

func TestCell(t *testing.T) {
	assert.Equal(t, `a\|b c`, cell("a|b\nc"))
}
