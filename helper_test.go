package cashbook

import (
	"testing"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var EUR = MustCurrency("EUR")

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(EUR, WithLogger(zaptest.NewLogger(t)))
}

// day parses a test date.
func day(s string) date.Date { return date.MustParse(s) }

// dec parses a test amount.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTx is a helper to create a transaction of a on d.
func newTx(a *Account, d string, amount string, opts ...func(*Fields)) *Transaction {
	f := Fields{Date: day(d), Amount: dec(amount), Account: a}
	for _, opt := range opts {
		opt(&f)
	}
	return MustTransaction(f)
}

func withCategory(c *Category) func(*Fields)        { return func(f *Fields) { f.Category = c } }
func withMode(m *Mode) func(*Fields)                { return func(f *Fields) { f.Mode = m } }
func withStatement(s string) func(*Fields)          { return func(f *Fields) { f.Statement = s } }
func withNumber(n string) func(*Fields)             { return func(f *Fields) { f.Number = n } }
func withDescription(s string) func(*Fields)        { return func(f *Fields) { f.Description = s } }
func withValueDate(d string) func(*Fields)          { return func(f *Fields) { f.ValueDate = day(d) } }
func withSubs(subs ...SubTransaction) func(*Fields) { return func(f *Fields) { f.Subs = subs } }

// recorder collects events.
type recorder struct{ events []Event }

func (r *recorder) listen(e Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []EventKind {
	var kinds []EventKind
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recorder) reset() { r.events = nil }

// requireTimeline checks the intervals of tl against (start, balance) pairs.
func requireTimeline(t *testing.T, tl *Timeline, want ...any) {
	t.Helper()
	require.Equal(t, len(want)/2, tl.Len(), "intervals: %v", tl.Intervals())
	for i, iv := range tl.Intervals() {
		start, _ := want[2*i].(string)
		require.Equal(t, date.MustParse(start), iv.Start, "interval %d start", i)
		require.True(t, dec(want[2*i+1].(string)).Equal(iv.Balance), "interval %d balance: got %s want %s", i, iv.Balance, want[2*i+1])
	}
}
