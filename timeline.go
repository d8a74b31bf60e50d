package cashbook

import (
	"fmt"
	"iter"
	"slices"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
)

// Interval is a period of constant balance, [Start, End).
//
// A zero Start means the interval starts at the beginning of time, a zero End
// that it never ends.
type Interval struct {
	Start, End date.Date
	Balance    decimal.Decimal
}

// position returns the position of d relative to the interval: -1 when d is
// before it, 0 when it covers d, +1 when d is after it.
func (iv Interval) position(d date.Date) int {
	if !iv.Start.IsZero() && d.Before(iv.Start) {
		return -1
	}
	if !iv.End.IsZero() && !d.Before(iv.End) {
		return 1
	}
	return 0
}

// Contains reports whether the interval covers d.
func (iv Interval) Contains(d date.Date) bool { return iv.position(d) == 0 }

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s) %s", iv.Start, iv.End, iv.Balance)
}

// Timeline is the balance of an account as a step function of time.
//
// Intervals are ordered, gap-free and never overlap. Two adjacent intervals
// never hold balances equal within the currency tolerance. The transactions
// that produced the steps are kept in value date order (see CompareValueDate).
type Timeline struct {
	cur       Currency
	intervals []Interval
	txs       []*Transaction

	mins, maxs map[date.Date]decimal.Decimal // by end date
}

// NewTimeline returns a timeline holding initial at all times.
func NewTimeline(cur Currency, initial decimal.Decimal) *Timeline {
	return &Timeline{
		cur:       cur,
		intervals: []Interval{{Balance: initial}},
	}
}

// Currency returns the currency whose tolerance merges intervals.
func (t *Timeline) Currency() Currency { return t.cur }

// Len returns the number of intervals, at least one.
func (t *Timeline) Len() int { return len(t.intervals) }

// Interval returns the i-th interval.
func (t *Timeline) Interval(i int) (Interval, error) {
	if i < 0 || i >= len(t.intervals) {
		return Interval{}, outOfRange(i, len(t.intervals))
	}
	return t.intervals[i], nil
}

// Intervals returns a copy of the intervals.
func (t *Timeline) Intervals() []Interval { return slices.Clone(t.intervals) }

// All returns an iterator over the intervals in chronological order.
func (t *Timeline) All() iter.Seq2[int, Interval] {
	return func(yield func(int, Interval) bool) {
		for i, iv := range t.intervals {
			if !yield(i, iv) {
				return
			}
		}
	}
}

// IndexOf returns the index of the interval covering d. A zero d is the
// beginning of time.
func (t *Timeline) IndexOf(d date.Date) int {
	if d.IsZero() {
		return 0
	}
	i, _ := slices.BinarySearchFunc(t.intervals, d, func(iv Interval, d date.Date) int {
		return -iv.position(d)
	})
	return i
}

// BalanceAt returns the balance at the end of day d, that is including every
// amount applied on or before d.
func (t *Timeline) BalanceAt(d date.Date) decimal.Decimal {
	return t.intervals[t.IndexOf(d)].Balance
}

// Final returns the balance after every step.
func (t *Timeline) Final() decimal.Decimal { return t.intervals[len(t.intervals)-1].Balance }

// Apply adds amount to the balance from day d onwards. A zero d applies the
// amount since the beginning of time.
func (t *Timeline) Apply(amount decimal.Decimal, d date.Date) {
	t.invalidate()
	if d.IsZero() {
		for i := range t.intervals {
			t.intervals[i].Balance = t.intervals[i].Balance.Add(amount)
		}
		return
	}

	i := t.IndexOf(d)
	if iv := t.intervals[i]; iv.Start != d {
		// split the covering interval at d.
		t.intervals[i].End = d
		t.intervals = slices.Insert(t.intervals, i+1, Interval{Start: d, End: iv.End, Balance: iv.Balance})
		i++
	}
	for j := i; j < len(t.intervals); j++ {
		t.intervals[j].Balance = t.intervals[j].Balance.Add(amount)
	}
	// i > 0: the first interval starts at the beginning of time, d does not.
	if prev := t.intervals[i-1]; t.cur.Equal(prev.Balance, t.intervals[i].Balance) {
		t.intervals[i-1].End = t.intervals[i].End
		t.intervals = slices.Delete(t.intervals, i, i+1)
	}
}

func (t *Timeline) invalidate() {
	clear(t.mins)
	clear(t.maxs)
}

// Min returns the lowest balance up to end, or over all time when end is zero.
func (t *Timeline) Min(end date.Date) decimal.Decimal {
	return t.extreme(end, &t.mins, decimal.Decimal.LessThan)
}

// Max returns the highest balance up to end, or over all time when end is zero.
func (t *Timeline) Max(end date.Date) decimal.Decimal {
	return t.extreme(end, &t.maxs, decimal.Decimal.GreaterThan)
}

func (t *Timeline) extreme(end date.Date, cache *map[date.Date]decimal.Decimal, better func(a, b decimal.Decimal) bool) decimal.Decimal {
	if v, ok := (*cache)[end]; ok {
		return v
	}
	last := len(t.intervals) - 1
	if !end.IsZero() {
		last = t.IndexOf(end)
	}
	v := t.intervals[0].Balance
	for _, iv := range t.intervals[1 : last+1] {
		if better(iv.Balance, v) {
			v = iv.Balance
		}
	}
	if *cache == nil {
		*cache = make(map[date.Date]decimal.Decimal)
	}
	(*cache)[end] = v
	return v
}

// FirstAlert returns the first date in [from, to] on which the balance is
// below the threshold. Zero bounds are unbounded. It returns false when the
// threshold is lifeless or never crossed.
//
// The returned date is zero when the balance is already below the threshold
// at the beginning of time and from is zero.
func (t *Timeline) FirstAlert(from, to date.Date, th Threshold) (date.Date, bool) {
	if th.IsLifeless() {
		return 0, false
	}
	for _, iv := range t.intervals[t.IndexOf(from):] {
		if !to.IsZero() && !iv.Start.IsZero() && iv.Start.After(to) {
			break
		}
		if th.isCrossedBy(t.cur, iv.Balance) {
			on := iv.Start
			if !from.IsZero() && (on.IsZero() || on.Before(from)) {
				on = from
			}
			return on, true
		}
	}
	return 0, false
}

// Add inserts transactions and applies their amounts at their value date.
func (t *Timeline) Add(txs ...*Transaction) {
	for _, tx := range txs {
		i, _ := slices.BinarySearchFunc(t.txs, tx, CompareValueDate)
		t.txs = slices.Insert(t.txs, i, tx)
		t.Apply(tx.Amount(), tx.ValueDate())
	}
}

// Remove removes transactions previously added. Unknown ones are ignored.
func (t *Timeline) Remove(txs ...*Transaction) {
	for _, tx := range txs {
		i, found := slices.BinarySearchFunc(t.txs, tx, CompareValueDate)
		if !found || t.txs[i] != tx {
			continue
		}
		t.txs = slices.Delete(t.txs, i, i+1)
		t.Apply(tx.Amount().Neg(), tx.ValueDate())
	}
}

// Transactions returns the transactions in value date order.
func (t *Timeline) Transactions() []*Transaction { return slices.Clone(t.txs) }

// TransactionCount returns the number of transactions in the timeline.
func (t *Timeline) TransactionCount() int { return len(t.txs) }

// TransactionsOf returns the transactions whose value date falls in the i-th
// interval.
func (t *Timeline) TransactionsOf(i int) ([]*Transaction, error) {
	iv, err := t.Interval(i)
	if err != nil {
		return nil, err
	}
	first := 0
	if !iv.Start.IsZero() {
		first, _ = slices.BinarySearchFunc(t.txs, iv.Start, func(tx *Transaction, d date.Date) int {
			// never equal: lands on the first transaction at or after d.
			if tx.ValueDate().Before(d) {
				return -1
			}
			return 1
		})
	}
	var txs []*Transaction
	for _, tx := range t.txs[first:] {
		if !iv.End.IsZero() && !tx.ValueDate().Before(iv.End) {
			break
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
