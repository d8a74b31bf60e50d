package cashbook

import (
	"slices"
	"testing"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// viewFixture is a small ledger mutated step by step.
type viewFixture struct {
	s               *Store
	a, b            *Account
	food, car, rent *Category
	cardA, cardB    *Mode
	cheque          *Mode
	txs             []*Transaction
}

func newViewFixture(t *testing.T) *viewFixture {
	t.Helper()
	s := newTestStore(t)
	fx := &viewFixture{s: s}
	fx.a, _ = s.AddAccount("Checking", dec("100"))
	fx.b, _ = s.AddAccount("Savings", dec("50"))
	fx.food, _ = s.AddCategory("food")
	fx.car, _ = s.AddCategory("car")
	fx.rent, _ = s.AddCategory("rent")
	fx.cardA = NewMode("card", false)
	fx.cardB = NewMode("card", false)
	fx.cheque = NewMode("cheque", true)
	require.NoError(t, s.AddMode(fx.a, fx.cardA))
	require.NoError(t, s.AddMode(fx.b, fx.cardB))
	require.NoError(t, s.AddMode(fx.a, fx.cheque))
	return fx
}

// viewSteps mutate the fixture through every kind of store operation.
var viewSteps = []struct {
	name string
	run  func(t *testing.T, fx *viewFixture)
}{
	{"add", func(t *testing.T, fx *viewFixture) {
		fx.txs = []*Transaction{
			newTx(fx.a, "2025-01-05", "-20", withCategory(fx.food), withMode(fx.cardA), withDescription("Bakery")),
			newTx(fx.a, "2025-01-10", "-45.50", withCategory(fx.car), withMode(fx.cheque), withNumber("1001"), withDescription("Fuel"), withValueDate("2025-01-12")),
			newTx(fx.b, "2025-01-15", "300", withDescription("Transfer x"), withStatement("2025-01")),
			newTx(fx.a, "2025-02-03", "-800", withCategory(fx.rent), withDescription("Rent feb"), withStatement("2025-02")),
			newTx(fx.a, "2025-02-10", "-60", withCategory(fx.car), withDescription("Station x"),
				withSubs(SubTransaction{Amount: dec("-25"), Description: "snack", Category: fx.food})),
			newTx(fx.b, "2025-02-20", "-12.30", withCategory(fx.food), withMode(fx.cardB), withDescription("Lunch x")),
			newTx(fx.a, "2025-03-01", "1500", withDescription("Salary")),
			newTx(fx.a, "2025-03-02", "-35", withCategory(fx.food), withMode(fx.cardA), withDescription("Groceries x"), withValueDate("2025-01-27")),
			newTx(fx.a, "2025-02-15", "-30", withMode(fx.cheque), withNumber("1002"), withDescription("Plumber x")),
			newTx(fx.b, "2025-02-25", "-8", withCategory(fx.food), withMode(fx.cardB), withDescription("Snack x")),
		}
		require.NoError(t, fx.s.AddTransactions(fx.txs...))
	}},
	{"remove", func(t *testing.T, fx *viewFixture) {
		require.Equal(t, 2, fx.s.RemoveTransactions(fx.txs[1], fx.txs[5]))
	}},
	{"initial balance", func(t *testing.T, fx *viewFixture) {
		require.NoError(t, fx.s.SetInitialBalance(fx.a, dec("250")))
	}},
	{"rename account", func(t *testing.T, fx *viewFixture) {
		require.NoError(t, fx.s.RenameAccount(fx.a, "Zeta"))
	}},
	{"rename category", func(t *testing.T, fx *viewFixture) {
		require.NoError(t, fx.s.RenameCategory(fx.food, "Alimentation"))
	}},
	{"replace mode with a name used elsewhere", func(t *testing.T, fx *viewFixture) {
		// Checking already pays by cheque.
		m := NewMode("cheque", false)
		require.NoError(t, fx.s.SetMode(fx.b, fx.cardB, m))
		fx.cardB = m
	}},
	{"replace mode", func(t *testing.T, fx *viewFixture) {
		require.NoError(t, fx.s.SetMode(fx.a, fx.cardA, NewMode("visa", false)))
	}},
	{"remove category", func(t *testing.T, fx *viewFixture) {
		require.NoError(t, fx.s.RemoveCategory(fx.car))
	}},
	{"new account", func(t *testing.T, fx *viewFixture) {
		c, err := fx.s.AddAccount("Cash", dec("20"))
		require.NoError(t, err)
		require.NoError(t, fx.s.AddTransactions(newTx(c, "2025-03-10", "-5", withCategory(fx.food), withDescription("Coffee x"))))
	}},
	{"remove mode", func(t *testing.T, fx *viewFixture) {
		require.NoError(t, fx.s.RemoveMode(fx.b, fx.cardB))
	}},
	{"recurring", func(t *testing.T, fx *viewFixture) {
		r, err := NewScheduled(Fields{Account: fx.a, Amount: dec("-9.99"), Category: fx.rent, Description: "Phone x"},
			day("2025-01-20"), day("2025-05-20"), Schedule{date.Monthly, 1})
		require.NoError(t, err)
		require.NoError(t, fx.s.AddRecurring(r))
		txs, err := fx.s.GenerateRecurring(day("2025-04-30"))
		require.NoError(t, err)
		require.Len(t, txs, 4)
	}},
	{"remove account", func(t *testing.T, fx *viewFixture) {
		require.NoError(t, fx.s.RemoveAccount(fx.b))
	}},
	{"batch", func(t *testing.T, fx *viewFixture) {
		require.NoError(t, fx.s.Batch(func() error {
			return fx.s.AddTransactions(newTx(fx.a, "2025-04-02", "-70", withDescription("Shoes x")))
		}))
	}},
	{"clear", func(t *testing.T, fx *viewFixture) {
		fx.s.Clear()
	}},
}

func TestView_FollowsStore(t *testing.T) {
	testCases := []struct {
		name  string
		key   SortKey
		setup func(fx *viewFixture, f *Filter)
	}{
		{name: "everything", key: ByDate, setup: func(fx *viewFixture, f *Filter) {}},
		{name: "one account", key: ByAccount, setup: func(fx *viewFixture, f *Filter) { f.SetAccounts(fx.a) }},
		{name: "collapsing account", key: ByAmount, setup: func(fx *viewFixture, f *Filter) { f.SetAccounts(fx.b) }},
		{name: "categories", key: ByCategory, setup: func(fx *viewFixture, f *Filter) { f.SetCategories(fx.food, nil) }},
		{name: "collapsing category", key: ByCategory, setup: func(fx *viewFixture, f *Filter) { f.SetCategories(fx.car) }},
		{name: "modes", key: ByMode, setup: func(fx *viewFixture, f *Filter) { f.SetModes("card") }},
		{name: "savings modes", key: ByMode, setup: func(fx *viewFixture, f *Filter) {
			f.SetAccounts(fx.a, fx.b)
			f.SetModes("card")
		}},
		{name: "cheque mode", key: ByDate, setup: func(fx *viewFixture, f *Filter) { f.SetModes("cheque") }},
		{name: "value date window", key: ByValueDate, setup: func(fx *viewFixture, f *Filter) {
			f.SetValueDates(date.Between(day("2025-02-01"), day("2025-03-31")))
		}},
		{name: "expenses described", key: ByDescription, setup: func(fx *viewFixture, f *Filter) {
			f.SetAmountKinds(Expenses)
			f.SetDescription(MustTextMatcher(Contains, "X", false, false))
		}},
		{name: "checked", key: ByDate, setup: func(fx *viewFixture, f *Filter) { f.SetCheckStates(Checked) }},
		{name: "amount range", key: ByAmount, setup: func(fx *viewFixture, f *Filter) {
			require.NoError(t, f.SetAmount(bound("20"), bound("40")))
		}},
	}
	for _, tc := range testCases {
		// a saved filter is also changed by the store itself.
		for _, saved := range []bool{false, true} {
			name := tc.name
			if saved {
				name += " saved"
			}
			t.Run(name, func(t *testing.T) {
				fx := newViewFixture(t)
				f := NewFilter(EUR)
				tc.setup(fx, f)
				if saved {
					require.NoError(t, fx.s.SaveFilter(tc.name, f))
				}
				v := NewView(fx.s, f, WithSortKey(tc.key))
				defer v.Close()
				checkView(t, fx.s, v)
				for _, step := range viewSteps {
					step.run(t, fx)
					checkView(t, fx.s, v)
				}
			})
		}
	}
}

func TestView_ModeRenamedToSharedName(t *testing.T) {
	for _, saved := range []bool{false, true} {
		s := newTestStore(t)
		a, _ := s.AddAccount("A", decimal.Zero)
		b, _ := s.AddAccount("B", decimal.Zero)
		cash := NewMode("cash", false)
		require.NoError(t, s.AddMode(a, cash))
		require.NoError(t, s.AddMode(b, NewMode("card", false)))
		require.NoError(t, s.AddTransactions(
			newTx(a, "2025-01-01", "-10", withMode(cash)),
			newTx(b, "2025-01-02", "-20", withMode(b.Mode("card"))),
		))

		f := NewFilter(EUR)
		f.SetModes("cash")
		if saved {
			require.NoError(t, s.SaveFilter("cash", f))
		}
		v := NewView(s, f)
		require.Equal(t, 1, v.Len())

		require.NoError(t, s.SetMode(a, cash, NewMode("card", false)))
		assert.Equal(t, []string{"card"}, f.Modes())
		assert.Equal(t, 2, v.Len(), "the card payments of B are now visible")
		checkView(t, s, v)
		v.Close()
	}
}

// checkView compares v with a brute-force filtering of s and with a view
// built from scratch.
func checkView(t *testing.T, s *Store, v *View) {
	t.Helper()
	f := v.Filter()
	var want []*Transaction
	for _, tx := range s.Transactions() {
		if f.IsOk(tx) {
			want = append(want, tx)
		}
	}
	slices.SortFunc(want, v.SortKey().Compare)
	got := v.Transactions()
	require.Equal(t, len(want), len(got), "visible transactions: got %v, want %v", got, want)
	for i := range want {
		require.Same(t, want[i], got[i], "transaction %d: got %v, want %v", i, got[i], want[i])
		require.Equal(t, i, v.IndexOf(want[i]))
	}

	fresh := NewView(s, f.Clone(), WithSortKey(v.SortKey()))
	defer fresh.Close()
	requireSameTimeline(t, fresh.Timeline(), v.Timeline())

	from := f.ValueDates().From
	for d := day("2025-01-01"); !d.After(day("2025-06-30")); d = d.Add(1) {
		if !from.IsZero() && d.Before(from) {
			continue
		}
		balance := decimal.Zero
		for _, a := range s.Accounts() {
			if f.AllowsAccount(a) {
				balance = balance.Add(a.InitialBalance())
			}
		}
		for _, tx := range s.Transactions() {
			if f.AllowsAccount(tx.Account()) && !tx.ValueDate().After(d) {
				balance = balance.Add(tx.Amount())
			}
		}
		got := v.Timeline().BalanceAt(d)
		require.True(t, balance.Equal(got), "BalanceAt(%s) = %s, want %s", d, got, balance)
	}
}

func requireSameTimeline(t *testing.T, want, got *Timeline) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len(), "got %v, want %v", got.Intervals(), want.Intervals())
	for i, iv := range want.Intervals() {
		g, err := got.Interval(i)
		require.NoError(t, err)
		require.Equal(t, iv.Start, g.Start, "got %v, want %v", got.Intervals(), want.Intervals())
		require.True(t, iv.Balance.Equal(g.Balance), "got %v, want %v", got.Intervals(), want.Intervals())
	}
}

func TestView_Events(t *testing.T) {
	fx := newViewFixture(t)
	f := NewFilter(EUR)
	f.SetCategories(fx.food)
	v := NewView(fx.s, f)
	defer v.Close()
	rec := new(recorder)
	v.Subscribe(rec.listen)

	lunch := newTx(fx.a, "2025-01-05", "-20", withCategory(fx.food))
	fuel := newTx(fx.a, "2025-01-06", "-40", withCategory(fx.car))
	require.NoError(t, fx.s.AddTransactions(lunch, fuel))
	require.Equal(t, []EventKind{TransactionsAdded}, rec.kinds())
	assert.Equal(t, []*Transaction{lunch}, rec.events[0].Transactions, "only the visible subset")
	assert.True(t, v.Timeline().Final().Equal(dec("90")), "the timeline holds every transaction of the accounts")

	rec.reset()
	fx.s.RemoveTransactions(fuel)
	require.NoError(t, fx.s.RenameCategory(fx.car, "auto"))
	assert.Empty(t, rec.events)

	require.NoError(t, fx.s.RenameCategory(fx.food, "alimentation"))
	assert.Equal(t, []EventKind{CategoryChanged}, rec.kinds())

	rec.reset()
	v.SetSortKey(ByAmount)
	v.SetSortKey(ByAmount)
	f.SetModes("card")
	assert.Equal(t, []EventKind{Reset, Reset}, rec.kinds())
	assert.Equal(t, 0, v.Len())

	// a store reset clears the filter of the view.
	rec.reset()
	fx.s.SetEventsEnabled(false)
	require.NoError(t, fx.s.AddTransactions(newTx(fx.b, "2025-01-07", "1")))
	fx.s.SetEventsEnabled(true)
	assert.Equal(t, []EventKind{Reset}, rec.kinds())
	assert.True(t, f.Equal(NewFilter(EUR)))
	assert.Equal(t, 2, v.Len())

	v.Close()
	rec.reset()
	require.NoError(t, fx.s.AddTransactions(newTx(fx.a, "2025-01-08", "1")))
	assert.Empty(t, rec.events)
}

func TestView_Window(t *testing.T) {
	fx := newViewFixture(t)
	f := NewFilter(EUR)
	f.SetAccounts(fx.a)
	f.SetValueDates(date.Between(day("2025-02-01"), 0))
	v := NewView(fx.s, f)
	defer v.Close()

	early := newTx(fx.a, "2025-01-10", "-30")
	late := newTx(fx.a, "2025-02-10", "-20")
	require.NoError(t, fx.s.AddTransactions(early, late, newTx(fx.b, "2025-01-11", "1000")))
	assert.Equal(t, []*Transaction{late}, v.Transactions())
	requireTimeline(t, v.Timeline(),
		"", "70",
		"2025-02-10", "50",
	)

	fx.s.RemoveTransactions(early)
	requireTimeline(t, v.Timeline(),
		"", "100",
		"2025-02-10", "80",
	)
}

func TestView_SortAndAccess(t *testing.T) {
	fx := newViewFixture(t)
	t1 := newTx(fx.a, "2025-01-05", "-20", withCategory(fx.rent))
	t2 := newTx(fx.b, "2025-01-06", "-40", withCategory(fx.car))
	t3 := newTx(fx.a, "2025-01-07", "10", withCategory(fx.food))
	require.NoError(t, fx.s.AddTransactions(t1, t2, t3))

	v := NewView(fx.s, NewFilter(EUR), WithSortKey(ByCategory))
	defer v.Close()
	assert.Equal(t, []*Transaction{t2, t3, t1}, v.Transactions())

	// renaming a category moves its transactions.
	require.NoError(t, fx.s.RenameCategory(fx.rent, "appartment"))
	assert.Equal(t, []*Transaction{t1, t2, t3}, v.Transactions())

	v.SetSortKey(ByAccount)
	assert.Equal(t, []*Transaction{t1, t3, t2}, v.Transactions())
	require.NoError(t, fx.s.RenameAccount(fx.b, "Alpha"))
	assert.Equal(t, []*Transaction{t2, t1, t3}, v.Transactions())

	got, err := v.At(1)
	require.NoError(t, err)
	assert.Same(t, t1, got)
	_, err = v.At(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, -1, v.IndexOf(newTx(fx.a, "2025-01-05", "-20")))
}
