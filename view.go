package cashbook

import (
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// View is the sorted subset of a store's transactions passing a filter, with
// the balance timeline of the accounts the filter allows.
//
// The view follows store and filter events incrementally. Its content always
// equals what Rebuild computes from scratch.
//
// The timeline starts from the initial balances of the allowed accounts and
// holds every transaction of these accounts whose value date is not before
// the lower value date bound of the filter. Earlier transactions only shift
// the starting balance.
type View struct {
	store  *Store
	filter *Filter
	key    SortKey
	log    *zap.Logger

	txs      []*Transaction // sorted by key
	timeline *Timeline
	seeded   map[*Account]decimal.Decimal // initial balances in the timeline

	bus    bus
	muted  bool // ignore filter events
	cancel []func()
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithSortKey sets the initial order of the view.
func WithSortKey(k SortKey) ViewOption {
	return func(v *View) { v.key = k }
}

// NewView returns a view of s through f. f may be a stored filter, or one
// owned by the view.
func NewView(s *Store, f *Filter, opts ...ViewOption) *View {
	v := &View{store: s, filter: f, log: s.log.Named("view")}
	for _, opt := range opts {
		opt(v)
	}
	v.rebuild()
	v.cancel = []func(){
		s.Subscribe(v.onStore),
		f.Subscribe(func(Event) {
			if !v.muted {
				v.Rebuild()
			}
		}),
	}
	return v
}

// Close detaches the view from its store and filter.
func (v *View) Close() {
	for _, c := range v.cancel {
		c()
	}
	v.cancel = nil
}

// Subscribe registers l for the events of the view: store events scoped to
// the visible subset, and a Reset after every rebuild.
func (v *View) Subscribe(l Listener) (cancel func()) { return v.bus.subscribe(l) }

func (v *View) Filter() *Filter { return v.filter }
func (v *View) SortKey() SortKey { return v.key }

// Timeline returns the balance timeline of the allowed accounts. It must be
// treated as read-only.
func (v *View) Timeline() *Timeline { return v.timeline }

// Len returns the number of visible transactions.
func (v *View) Len() int { return len(v.txs) }

// Transactions returns the visible transactions in view order.
func (v *View) Transactions() []*Transaction { return slices.Clone(v.txs) }

// At returns the i-th visible transaction.
func (v *View) At(i int) (*Transaction, error) {
	if i < 0 || i >= len(v.txs) {
		return nil, outOfRange(i, len(v.txs))
	}
	return v.txs[i], nil
}

// IndexOf returns the position of tx in the view, or -1.
func (v *View) IndexOf(tx *Transaction) int {
	i, found := slices.BinarySearchFunc(v.txs, tx, v.key.Compare)
	if !found || v.txs[i] != tx {
		return -1
	}
	return i
}

// SetSortKey changes the order of the view.
func (v *View) SetSortKey(k SortKey) {
	if k == v.key {
		return
	}
	v.key = k
	v.sort()
	v.bus.emit(Event{Kind: Reset})
}

func (v *View) sort() { slices.SortFunc(v.txs, v.key.Compare) }

// Rebuild recomputes the view from the store.
func (v *View) Rebuild() {
	v.rebuild()
	v.bus.emit(Event{Kind: Reset})
}

func (v *View) rebuild() {
	seed := decimal.Zero
	v.seeded = make(map[*Account]decimal.Decimal)
	for _, a := range v.store.accounts {
		if v.filter.AllowsAccount(a) {
			seed = seed.Add(a.initial)
			v.seeded[a] = a.initial
		}
	}
	var window []*Transaction
	v.txs = nil
	for _, tx := range v.store.txs {
		if !v.filter.AllowsAccount(tx.Account()) {
			continue
		}
		if v.beforeWindow(tx) {
			seed = seed.Add(tx.Amount())
			continue
		}
		window = append(window, tx)
		if v.filter.IsOk(tx) {
			v.txs = append(v.txs, tx)
		}
	}
	v.sort()
	v.timeline = NewTimeline(v.store.cur, seed)
	v.timeline.Add(window...)
	v.log.Debug("view rebuilt", zap.Int("visible", len(v.txs)), zap.Int("timeline", len(window)))
}

func (v *View) beforeWindow(tx *Transaction) bool {
	from := v.filter.valueDates.From
	return !from.IsZero() && tx.ValueDate().Before(from)
}

// scrub runs a filter update without rebuilding, unless the allow-set
// collapsed.
func (v *View) scrub(forget func() (changed, collapsed bool)) (rebuilt bool) {
	v.muted = true
	_, collapsed := forget()
	v.muted = false
	if collapsed {
		v.Rebuild()
	}
	return collapsed
}

func (v *View) onStore(e Event) {
	switch e.Kind {
	case Reset:
		v.muted = true
		v.filter.Clear()
		v.muted = false
		v.Rebuild()

	case FilterChanged:
		// named filters only matter through the view's own filter.

	case TransactionsAdded:
		v.onAdded(e)
	case TransactionsRemoved:
		v.onRemoved(e)

	case AccountAdded:
		if v.filter.AllowsAccount(e.Account) {
			v.seed(e.Account, e.Account.initial)
			v.bus.emit(e)
		}
	case AccountRemoved:
		_, allowed := v.seeded[e.Account]
		if allowed {
			v.seed(e.Account, decimal.Zero)
			delete(v.seeded, e.Account)
		}
		if v.scrub(func() (bool, bool) { return v.filter.forgetAccount(e.Account) }) {
			return
		}
		if allowed {
			v.bus.emit(e)
		}
	case AccountChanged:
		if !v.filter.AllowsAccount(e.Account) {
			return
		}
		if e.Property == PropInitialBalance {
			v.seed(e.Account, e.Account.initial)
		}
		v.forward(e)

	case CategoryAdded:
		if v.filter.AllowsCategory(e.Category) {
			v.bus.emit(e)
		}
	case CategoryRemoved:
		allowed := v.filter.AllowsCategory(e.Category)
		if v.scrub(func() (bool, bool) { return v.filter.forgetCategory(e.Category) }) {
			return
		}
		if allowed {
			v.bus.emit(e)
		}
	case CategoryChanged:
		if v.filter.AllowsCategory(e.Category) || v.references(e) {
			v.forward(e)
		}

	case ModeAdded:
		if v.filter.AllowsAccount(e.Account) && v.filter.AllowsMode(e.Mode.Name()) {
			v.bus.emit(e)
		}
	case ModeRemoved:
		if !v.filter.AllowsAccount(e.Account) || !v.filter.AllowsMode(e.Mode.Name()) {
			return
		}
		if v.filter.modes != nil && v.filter.modeReachable(e.Mode.Name(), v.store.accounts) {
			return
		}
		if v.scrub(func() (bool, bool) { return v.filter.forgetMode(e.Mode.Name(), v.store.accounts) }) {
			return
		}
		v.bus.emit(e)
	case ModeChanged:
		old, _ := e.Old.(*Mode)
		if !v.filter.AllowsAccount(e.Account) ||
			!(v.filter.AllowsMode(old.Name()) || v.filter.AllowsMode(e.Mode.Name())) {
			return
		}
		v.muted = true
		added := v.filter.renameMode(old.Name(), e.Mode.Name(), v.store.accounts)
		v.muted = false
		if added {
			// the new name may match modes of other allowed accounts.
			v.Rebuild()
		}
		v.forward(e)

	case RecurringAdded, RecurringRemoved, RecurringChanged:
		if v.filter.AllowsAccount(e.Account) {
			v.bus.emit(e)
		}
	}
}

// forward re-emits a property change, sorting again first when the change can
// move visible transactions.
func (v *View) forward(e Event) {
	if e.Property == PropName && v.key.dependsOn(e.Kind) && v.references(e) {
		v.sort()
	}
	v.bus.emit(e)
}

// references reports whether a visible transaction uses the entity of e.
func (v *View) references(e Event) bool {
	return slices.ContainsFunc(v.txs, func(tx *Transaction) bool {
		switch e.Kind {
		case AccountChanged:
			return tx.Account() == e.Account
		case CategoryChanged:
			return tx.Category() == e.Category
		case ModeChanged:
			return tx.Mode() == e.Mode
		}
		return false
	})
}

// seed sets the initial balance of a in the timeline.
func (v *View) seed(a *Account, initial decimal.Decimal) {
	old := v.seeded[a]
	v.seeded[a] = initial
	if delta := initial.Sub(old); !delta.IsZero() {
		v.timeline.Apply(delta, 0)
	}
}

func (v *View) onAdded(e Event) {
	shift := decimal.Zero
	var window, visible []*Transaction
	for _, tx := range e.Transactions {
		if !v.filter.AllowsAccount(tx.Account()) {
			continue
		}
		if v.beforeWindow(tx) {
			shift = shift.Add(tx.Amount())
			continue
		}
		window = append(window, tx)
		if v.filter.IsOk(tx) {
			i, _ := slices.BinarySearchFunc(v.txs, tx, v.key.Compare)
			v.txs = slices.Insert(v.txs, i, tx)
			visible = append(visible, tx)
		}
	}
	if !shift.IsZero() {
		v.timeline.Apply(shift, 0)
	}
	v.timeline.Add(window...)
	if len(visible) > 0 {
		v.bus.emit(Event{Kind: TransactionsAdded, Transactions: visible})
	}
}

func (v *View) onRemoved(e Event) {
	shift := decimal.Zero
	var window, visible []*Transaction
	for _, tx := range e.Transactions {
		if !v.filter.AllowsAccount(tx.Account()) {
			continue
		}
		if v.beforeWindow(tx) {
			shift = shift.Sub(tx.Amount())
			continue
		}
		window = append(window, tx)
		if i := v.IndexOf(tx); i >= 0 {
			v.txs = slices.Delete(v.txs, i, i+1)
			visible = append(visible, tx)
		}
	}
	if !shift.IsZero() {
		v.timeline.Apply(shift, 0)
	}
	v.timeline.Remove(window...)
	if len(visible) > 0 {
		v.bus.emit(Event{Kind: TransactionsRemoved, Transactions: visible})
	}
}
