package cashbook

import (
	"math/rand"
	"testing"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeline_Scenario(t *testing.T) {
	s := newTestStore(t)
	a, err := s.AddAccount("A", decimal.Zero)
	require.NoError(t, err)

	t1 := newTx(a, "2025-01-01", "-10")
	t2 := newTx(a, "2025-01-02", "30")
	require.NoError(t, s.AddTransactions(t1, t2))

	tl := a.Timeline()
	assert.True(t, tl.BalanceAt(day("2025-01-01")).Equal(dec("-10")))
	assert.True(t, tl.BalanceAt(day("2025-01-02")).Equal(dec("20")))
	requireTimeline(t, tl,
		"", "0",
		"2025-01-01", "-10",
		"2025-01-02", "20",
	)

	s.RemoveTransactions(t2)
	requireTimeline(t, tl,
		"", "0",
		"2025-01-01", "-10",
	)
	assert.True(t, a.Balance().Equal(dec("-10")))
}

func TestTimeline_Apply(t *testing.T) {
	testCases := []struct {
		name    string
		applies []struct{ amount, date string }
		want    []any
	}{
		{
			name: "empty",
			want: []any{"", "100"},
		},
		{
			name:    "beginning of time",
			applies: []struct{ amount, date string }{{"5", ""}},
			want:    []any{"", "105"},
		},
		{
			name:    "split",
			applies: []struct{ amount, date string }{{"5", "2025-03-01"}},
			want:    []any{"", "100", "2025-03-01", "105"},
		},
		{
			name:    "same day accumulates",
			applies: []struct{ amount, date string }{{"5", "2025-03-01"}, {"7", "2025-03-01"}},
			want:    []any{"", "100", "2025-03-01", "112"},
		},
		{
			name:    "merge with predecessor",
			applies: []struct{ amount, date string }{{"5", "2025-03-01"}, {"-5", "2025-03-01"}},
			want:    []any{"", "100"},
		},
		{
			name:    "merge in the middle",
			applies: []struct{ amount, date string }{{"5", "2025-03-01"}, {"-5", "2025-04-01"}, {"5", "2025-04-01"}},
			want:    []any{"", "100", "2025-03-01", "105"},
		},
		{
			name:    "split before existing steps",
			applies: []struct{ amount, date string }{{"5", "2025-03-01"}, {"1", "2025-02-01"}},
			want:    []any{"", "100", "2025-02-01", "101", "2025-03-01", "106"},
		},
		{
			name:    "below tolerance",
			applies: []struct{ amount, date string }{{"0.001", "2025-03-01"}},
			want:    []any{"", "100"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tl := NewTimeline(EUR, dec("100"))
			for _, a := range tc.applies {
				tl.Apply(dec(a.amount), date.MustParse(a.date))
			}
			requireTimeline(t, tl, tc.want...)
		})
	}
}

// TestTimeline_Properties applies random amounts and checks the timeline
// against a direct sum.
func TestTimeline_Properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	type step struct {
		amount decimal.Decimal
		on     date.Date
	}
	start := day("2025-01-01")

	for run := 0; run < 50; run++ {
		initial := decimal.New(rnd.Int63n(10000)-5000, -2)
		tl := NewTimeline(EUR, initial)
		var steps []step
		for i := 0; i < 40; i++ {
			var on date.Date
			if rnd.Intn(10) > 0 {
				on = start.Add(rnd.Intn(30))
			}
			s := step{amount: decimal.New(rnd.Int63n(2000)-1000, -2), on: on}
			// amounts cancelling each other exercise the merges.
			if len(steps) > 0 && rnd.Intn(4) == 0 {
				s.amount = steps[rnd.Intn(len(steps))].amount.Neg()
			}
			steps = append(steps, s)

			before := tl.Intervals()
			tl.Apply(s.amount, s.on)
			checkTimeline(t, tl)

			if rnd.Intn(5) == 0 {
				// round trip
				tl.Apply(s.amount.Neg(), s.on)
				require.Equal(t, len(before), tl.Len())
				for j, iv := range tl.Intervals() {
					require.Equal(t, before[j].Start, iv.Start)
					require.True(t, before[j].Balance.Equal(iv.Balance))
				}
				steps = steps[:len(steps)-1]
			}
		}

		for d := start.Add(-1); !d.After(start.Add(31)); d = d.Add(1) {
			want := initial
			for _, s := range steps {
				if s.on.IsZero() || !s.on.After(d) {
					want = want.Add(s.amount)
				}
			}
			got := tl.BalanceAt(d)
			require.True(t, want.Equal(got), "run %d: BalanceAt(%s) = %s, want %s", run, d, got, want)
		}
	}
}

// checkTimeline verifies the structural invariants of tl.
func checkTimeline(t *testing.T, tl *Timeline) {
	t.Helper()
	ivs := tl.Intervals()
	require.NotEmpty(t, ivs)
	require.True(t, ivs[0].Start.IsZero(), "first interval is bounded: %v", ivs)
	require.True(t, ivs[len(ivs)-1].End.IsZero(), "last interval is bounded: %v", ivs)
	for i := 1; i < len(ivs); i++ {
		require.Equal(t, ivs[i-1].End, ivs[i].Start, "gap in %v", ivs)
		require.True(t, ivs[i-1].Start.IsZero() || ivs[i-1].Start.Before(ivs[i].Start), "unordered %v", ivs)
		require.False(t, tl.Currency().Equal(ivs[i-1].Balance, ivs[i].Balance), "redundant intervals %v", ivs)
	}
}

func TestTimeline_MinMax(t *testing.T) {
	tl := NewTimeline(EUR, dec("100"))
	tl.Apply(dec("-150"), day("2025-02-01"))
	tl.Apply(dec("300"), day("2025-03-01"))

	assert.True(t, tl.Min(0).Equal(dec("-50")))
	assert.True(t, tl.Max(0).Equal(dec("250")))
	assert.True(t, tl.Min(day("2025-01-15")).Equal(dec("100")))
	assert.True(t, tl.Max(day("2025-02-15")).Equal(dec("100")))

	// the cache is invalidated by Apply.
	tl.Apply(dec("-1000"), day("2025-01-10"))
	assert.True(t, tl.Min(day("2025-01-15")).Equal(dec("-900")))
	assert.True(t, tl.Max(0).Equal(dec("100")))
}

func TestTimeline_FirstAlert(t *testing.T) {
	tl := NewTimeline(EUR, dec("100"))
	tl.Apply(dec("-150"), day("2025-02-01"))
	tl.Apply(dec("300"), day("2025-03-01"))
	tl.Apply(dec("-400"), day("2025-04-01"))

	testCases := []struct {
		name     string
		from, to string
		th       Threshold
		want     string
		found    bool
	}{
		{name: "lifeless", th: Lifeless},
		{name: "unbounded", th: AlertBelow(decimal.Zero), want: "2025-02-01", found: true},
		{name: "from inside the low interval", from: "2025-02-10", th: AlertBelow(decimal.Zero), want: "2025-02-10", found: true},
		{name: "after the first low", from: "2025-03-01", th: AlertBelow(decimal.Zero), want: "2025-04-01", found: true},
		{name: "before any low", to: "2025-01-31", th: AlertBelow(decimal.Zero)},
		{name: "high threshold from the beginning", th: AlertBelow(dec("1000")), want: "", found: true},
		{name: "at the limit is no alert", from: "2025-01-01", to: "2025-01-31", th: AlertBelow(dec("100"))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := tl.FirstAlert(date.MustParse(tc.from), date.MustParse(tc.to), tc.th)
			require.Equal(t, tc.found, found)
			assert.Equal(t, date.MustParse(tc.want), got)
		})
	}
}

func TestTimeline_TransactionsOf(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.AddAccount("A", decimal.Zero)
	t1 := newTx(a, "2025-01-01", "-10")
	t2 := newTx(a, "2025-01-01", "25") // receipts come first on the same day
	t3 := newTx(a, "2025-01-05", "-10", withValueDate("2025-01-03"))
	require.NoError(t, s.AddTransactions(t1, t2, t3))

	tl := a.Timeline()
	assert.Equal(t, []*Transaction{t2, t1, t3}, tl.Transactions())

	got, err := tl.TransactionsOf(0)
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = tl.TransactionsOf(1)
	require.NoError(t, err)
	assert.Equal(t, []*Transaction{t2, t1}, got)
	got, err = tl.TransactionsOf(2)
	require.NoError(t, err)
	assert.Equal(t, []*Transaction{t3}, got)

	_, err = tl.TransactionsOf(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, 2, tl.IndexOf(day("2025-01-04")))
	assert.Equal(t, 0, tl.IndexOf(0))
}
