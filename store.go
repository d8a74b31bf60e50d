package cashbook

import (
	"maps"
	"slices"
	"strings"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the ledger: the single place where accounts, categories, modes,
// transactions, recurring templates and named filters are mutated.
//
// Every mutation notifies the listeners registered with Subscribe before it
// returns. Listeners run synchronously on the caller's stack and must not
// mutate the store; events emitted while listeners are running are queued and
// delivered afterwards. A Store is not safe for concurrent use.
type Store struct {
	cur Currency
	log *zap.Logger

	accounts   []*Account     // insertion order
	categories []*Category    // by name, see compareNames
	txs        []*Transaction // by identity
	recurrings []*Recurring   // see compareRecurring
	filters    map[string]*namedFilter

	bus bus
}

type namedFilter struct {
	f      *Filter
	cancel func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to trace mutations.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore returns an empty store whose amounts are compared in cur.
func NewStore(cur Currency, opts ...Option) *Store {
	s := &Store{
		cur:     cur,
		log:     zap.NewNop(),
		filters: make(map[string]*namedFilter),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Currency returns the currency of the store.
func (s *Store) Currency() Currency { return s.cur }

// Subscribe registers l and returns the function that unregisters it.
func (s *Store) Subscribe(l Listener) (cancel func()) { return s.bus.subscribe(l) }

// SetEventsEnabled turns notifications on or off. While off, mutations still
// apply; turning them back on emits a single Reset event if anything was
// swallowed.
func (s *Store) SetEventsEnabled(enabled bool) { s.bus.setEnabled(enabled) }

// EventsEnabled reports whether notifications are delivered.
func (s *Store) EventsEnabled() bool { return !s.bus.disabled }

// Batch runs fn with notifications off, so that observers see at most one
// Reset event for all its mutations.
func (s *Store) Batch(fn func() error) error {
	was := s.EventsEnabled()
	s.SetEventsEnabled(false)
	defer s.SetEventsEnabled(was)
	return fn()
}

func (s *Store) emit(e Event) { s.bus.emit(e) }

func sameName(a, b string) bool { return strings.ToLower(a) == strings.ToLower(b) }

func checkName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidf("blank %s name", kind)
	}
	return name, nil
}

// Accounts

// Accounts returns the accounts in creation order.
func (s *Store) Accounts() []*Account { return slices.Clone(s.accounts) }

// Account returns the i-th account.
func (s *Store) Account(i int) (*Account, error) {
	if i < 0 || i >= len(s.accounts) {
		return nil, outOfRange(i, len(s.accounts))
	}
	return s.accounts[i], nil
}

// AccountByName returns the account named name, ignoring case, or nil.
func (s *Store) AccountByName(name string) *Account {
	for _, a := range s.accounts {
		if sameName(a.name, name) {
			return a
		}
	}
	return nil
}

func (s *Store) hasAccount(a *Account) bool { return a != nil && slices.Contains(s.accounts, a) }

func (s *Store) checkAccount(a *Account) error {
	if !s.hasAccount(a) {
		return invalidf("unknown account %q", a.Name())
	}
	return nil
}

// AddAccount creates an account.
func (s *Store) AddAccount(name string, initial decimal.Decimal) (*Account, error) {
	name, err := checkName("account", name)
	if err != nil {
		return nil, err
	}
	if s.AccountByName(name) != nil {
		return nil, duplicatef("account %q already exists", name)
	}
	a := newAccount(s.cur, name, initial)
	s.accounts = append(s.accounts, a)
	s.emit(Event{Kind: AccountAdded, Account: a})
	return a, nil
}

// RenameAccount changes the name of a.
func (s *Store) RenameAccount(a *Account, name string) error {
	if err := s.checkAccount(a); err != nil {
		return err
	}
	name, err := checkName("account", name)
	if err != nil {
		return err
	}
	if name == a.name {
		return nil
	}
	if o := s.AccountByName(name); o != nil && o != a {
		return duplicatef("account %q already exists", name)
	}
	old := a.name
	a.name = name
	s.emit(Event{Kind: AccountChanged, Account: a, Property: PropName, Old: old, New: name})
	return nil
}

// SetInitialBalance changes the balance a starts with.
func (s *Store) SetInitialBalance(a *Account, initial decimal.Decimal) error {
	if err := s.checkAccount(a); err != nil {
		return err
	}
	old := a.initial
	if old.Equal(initial) {
		return nil
	}
	a.initial = initial
	a.timeline.Apply(initial.Sub(old), 0)
	s.emit(Event{Kind: AccountChanged, Account: a, Property: PropInitialBalance, Old: old, New: initial})
	return nil
}

// SetAlert changes the alert threshold of a.
func (s *Store) SetAlert(a *Account, th Threshold) error {
	if err := s.checkAccount(a); err != nil {
		return err
	}
	old := a.alert
	if old.alive == th.alive && old.limit.Equal(th.limit) {
		return nil
	}
	a.alert = th
	s.emit(Event{Kind: AccountChanged, Account: a, Property: PropAlert, Old: old, New: th})
	return nil
}

// RemoveAccount deletes a with its transactions and recurring templates, and
// forgets it in every stored filter.
func (s *Store) RemoveAccount(a *Account) error {
	if err := s.checkAccount(a); err != nil {
		return err
	}
	s.RemoveTransactions(a.timeline.Transactions()...)
	for _, r := range slices.Clone(s.recurrings) {
		if r.Account() == a {
			s.RemoveRecurring(r)
		}
	}
	s.accounts = slices.DeleteFunc(s.accounts, func(x *Account) bool { return x == a })
	for _, nf := range s.filters {
		nf.f.forgetAccount(a)
	}
	s.log.Debug("account removed", zap.String("account", a.name))
	s.emit(Event{Kind: AccountRemoved, Account: a})
	return nil
}

// Modes and check-books

// AddMode adds m to the modes of a. Mode names are unique within an account.
func (s *Store) AddMode(a *Account, m *Mode) error {
	if err := s.checkAccount(a); err != nil {
		return err
	}
	if m == nil || m.undefined || strings.TrimSpace(m.name) == "" {
		return invalidf("invalid mode for account %q", a.name)
	}
	if a.hasMode(m) {
		return duplicatef("mode %q already in account %q", m.name, a.name)
	}
	for _, o := range a.modes {
		if sameName(o.name, m.name) {
			return duplicatef("mode %q already in account %q", m.name, a.name)
		}
	}
	a.modes = append(a.modes, m)
	s.emit(Event{Kind: ModeAdded, Account: a, Mode: m})
	return nil
}

func (s *Store) checkMode(a *Account, m *Mode) (int, error) {
	if err := s.checkAccount(a); err != nil {
		return 0, err
	}
	i := slices.Index(a.modes, m)
	if i < 0 {
		return 0, invalidf("mode %q not in account %q", m.Name(), a.name)
	}
	if m.undefined {
		return 0, invalidf("undefined mode of account %q cannot change", a.name)
	}
	return i, nil
}

// SetMode replaces old by m in a. Transactions and templates using old are
// rewritten to use m. Stored filters allowing old's name also allow m's.
//
// Nothing happens when m has the same content as old.
func (s *Store) SetMode(a *Account, old, m *Mode) error {
	i, err := s.checkMode(a, old)
	if err != nil {
		return err
	}
	if m == nil || m.undefined || strings.TrimSpace(m.name) == "" {
		return invalidf("invalid mode for account %q", a.name)
	}
	if old.Equal(m) {
		return nil
	}
	for _, o := range a.modes {
		if o != old && sameName(o.name, m.name) {
			return duplicatef("mode %q already in account %q", m.name, a.name)
		}
	}
	a.modes[i] = m
	for _, nf := range s.filters {
		nf.f.renameMode(old.name, m.name, s.accounts)
	}
	s.emit(Event{Kind: ModeChanged, Account: a, Mode: m, Property: PropMode, Old: old, New: m})
	s.update(nil, func(acc *Account, x *Mode) *Mode {
		if acc == a && x == old {
			return m
		}
		return x
	})
	return nil
}

// RemoveMode deletes m from a. Transactions and templates using it fall back
// to the undefined mode.
func (s *Store) RemoveMode(a *Account, m *Mode) error {
	i, err := s.checkMode(a, m)
	if err != nil {
		return err
	}
	undefined := a.UndefinedMode()
	s.update(nil, func(acc *Account, x *Mode) *Mode {
		if acc == a && x == m {
			return undefined
		}
		return x
	})
	a.modes = slices.Delete(a.modes, i, i+1)
	for _, nf := range s.filters {
		nf.f.forgetMode(m.name, s.accounts)
	}
	s.emit(Event{Kind: ModeRemoved, Account: a, Mode: m})
	return nil
}

// AddCheckBook adds cb to a. Cheques already used by a's transactions are
// consumed.
func (s *Store) AddCheckBook(a *Account, cb *CheckBook) error {
	if err := s.checkAccount(a); err != nil {
		return err
	}
	if cb == nil || cb.last < cb.first {
		return invalidf("invalid check-book for account %q", a.name)
	}
	if slices.Contains(a.checkBooks, cb) {
		return duplicatef("check-book %s already in account %q", cb.NumberOf(cb.first), a.name)
	}
	old := slices.Clone(a.checkBooks)
	a.checkBooks = append(a.checkBooks, cb)
	for _, tx := range a.timeline.txs {
		a.consumeCheck(tx)
	}
	s.emit(Event{Kind: AccountChanged, Account: a, Property: PropCheckBooks, Old: old, New: slices.Clone(a.checkBooks)})
	return nil
}

// RemoveCheckBook removes cb from a.
func (s *Store) RemoveCheckBook(a *Account, cb *CheckBook) error {
	if err := s.checkAccount(a); err != nil {
		return err
	}
	i := slices.Index(a.checkBooks, cb)
	if i < 0 {
		return invalidf("check-book not in account %q", a.name)
	}
	old := slices.Clone(a.checkBooks)
	a.checkBooks = slices.Delete(a.checkBooks, i, i+1)
	s.emit(Event{Kind: AccountChanged, Account: a, Property: PropCheckBooks, Old: old, New: slices.Clone(a.checkBooks)})
	return nil
}

// Categories

// Categories returns the categories sorted by name.
func (s *Store) Categories() []*Category { return slices.Clone(s.categories) }

func (s *Store) searchCategory(name string) (int, bool) {
	return slices.BinarySearchFunc(s.categories, name, func(c *Category, name string) int {
		return strings.Compare(strings.ToLower(c.name), strings.ToLower(name))
	})
}

// CategoryByName returns the category named name, ignoring case, or nil.
func (s *Store) CategoryByName(name string) *Category {
	if i, found := s.searchCategory(name); found {
		return s.categories[i]
	}
	return nil
}

// hasCategory reports whether c belongs to the store. The undefined category
// always does.
func (s *Store) hasCategory(c *Category) bool {
	if c == nil {
		return true
	}
	i, found := s.searchCategory(c.name)
	return found && s.categories[i] == c
}

func (s *Store) insertCategory(c *Category) {
	i, _ := slices.BinarySearchFunc(s.categories, c, func(a, b *Category) int { return compareNames(a.name, b.name) })
	s.categories = slices.Insert(s.categories, i, c)
}

func (s *Store) deleteCategory(c *Category) {
	s.categories = slices.DeleteFunc(s.categories, func(x *Category) bool { return x == c })
}

// AddCategory creates a category.
func (s *Store) AddCategory(name string) (*Category, error) {
	name, err := checkName("category", name)
	if err != nil {
		return nil, err
	}
	if s.CategoryByName(name) != nil {
		return nil, duplicatef("category %q already exists", name)
	}
	c := &Category{name: name}
	s.insertCategory(c)
	s.emit(Event{Kind: CategoryAdded, Category: c})
	return c, nil
}

// RenameCategory renames c in place: every transaction referencing it sees
// the new name.
func (s *Store) RenameCategory(c *Category, name string) error {
	if c == nil || !s.hasCategory(c) {
		return invalidf("unknown category %q", c.Name())
	}
	name, err := checkName("category", name)
	if err != nil {
		return err
	}
	if name == c.name {
		return nil
	}
	if o := s.CategoryByName(name); o != nil && o != c {
		return duplicatef("category %q already exists", name)
	}
	old := c.name
	s.deleteCategory(c)
	c.name = name
	s.insertCategory(c)
	s.emit(Event{Kind: CategoryChanged, Category: c, Property: PropName, Old: old, New: name})
	return nil
}

// RemoveCategory deletes c. Transactions and templates referencing it fall
// back to the undefined category.
func (s *Store) RemoveCategory(c *Category) error {
	if c == nil || !s.hasCategory(c) {
		return invalidf("unknown category %q", c.Name())
	}
	s.update(func(x *Category) *Category {
		if x == c {
			return nil
		}
		return x
	}, nil)
	s.deleteCategory(c)
	for _, nf := range s.filters {
		nf.f.forgetCategory(c)
	}
	s.emit(Event{Kind: CategoryRemoved, Category: c})
	return nil
}

// Transactions

// Len returns the number of transactions.
func (s *Store) Len() int { return len(s.txs) }

// Transactions returns the transactions by identity.
func (s *Store) Transactions() []*Transaction { return slices.Clone(s.txs) }

// Transaction returns the i-th transaction by identity.
func (s *Store) Transaction(i int) (*Transaction, error) {
	if i < 0 || i >= len(s.txs) {
		return nil, outOfRange(i, len(s.txs))
	}
	return s.txs[i], nil
}

func (s *Store) searchID(id int64) (int, bool) {
	return slices.BinarySearchFunc(s.txs, id, func(tx *Transaction, id int64) int {
		switch {
		case tx.id < id:
			return -1
		case tx.id > id:
			return 1
		}
		return 0
	})
}

// TransactionByID returns the transaction with identity id, or nil.
func (s *Store) TransactionByID(id int64) *Transaction {
	if i, found := s.searchID(id); found {
		return s.txs[i]
	}
	return nil
}

// contains reports whether tx itself, not only its identity, is in the store.
func (s *Store) contains(tx *Transaction) bool {
	i, found := s.searchID(tx.id)
	return found && s.txs[i] == tx
}

// checkReferences validates the entities referenced by transaction fields.
func (s *Store) checkReferences(what string, f Fields) error {
	if !s.hasAccount(f.Account) {
		return invalidf("%s references unknown account %q", what, f.Account.Name())
	}
	if !f.Account.hasMode(f.Mode) {
		return invalidf("%s references mode %q not in account %q", what, f.Mode.Name(), f.Account.name)
	}
	if !s.hasCategory(f.Category) {
		return invalidf("%s references unknown category %q", what, f.Category.Name())
	}
	for _, sub := range f.Subs {
		if !s.hasCategory(sub.Category) {
			return invalidf("%s references unknown category %q", what, sub.Category.Name())
		}
	}
	return nil
}

// AddTransactions adds a batch of transactions. The batch is validated as a
// whole first: on error the store is unchanged.
//
// Listeners receive a single TransactionsAdded event for the batch.
func (s *Store) AddTransactions(txs ...*Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(txs))
	for _, tx := range txs {
		if tx == nil {
			return invalidf("nil transaction")
		}
		if seen[tx.id] || s.TransactionByID(tx.id) != nil {
			return duplicatef("transaction %v already exists", tx)
		}
		seen[tx.id] = true
		if err := s.checkReferences(tx.String(), tx.f); err != nil {
			return err
		}
	}

	s.insert(txs)
	s.log.Debug("transactions added", zap.Int("count", len(txs)), zap.Int("total", len(s.txs)))
	s.emit(Event{Kind: TransactionsAdded, Transactions: slices.Clone(txs)})
	return nil
}

// insert books valid transactions, once per account.
func (s *Store) insert(txs []*Transaction) {
	for _, tx := range txs {
		i, _ := s.searchID(tx.id)
		s.txs = slices.Insert(s.txs, i, tx)
	}
	for a, group := range byAccount(txs) {
		a.add(group)
	}
}

// RemoveTransactions removes transactions from the store. Transactions that
// are not in the store are ignored. It returns the number of transactions
// removed.
func (s *Store) RemoveTransactions(txs ...*Transaction) int {
	var removed []*Transaction
	for _, tx := range txs {
		if tx == nil || !s.contains(tx) {
			continue
		}
		i, _ := s.searchID(tx.id)
		s.txs = slices.Delete(s.txs, i, i+1)
		removed = append(removed, tx)
	}
	if len(removed) == 0 {
		return 0
	}
	for a, group := range byAccount(removed) {
		a.remove(group)
	}
	s.log.Debug("transactions removed", zap.Int("count", len(removed)), zap.Int("total", len(s.txs)))
	s.emit(Event{Kind: TransactionsRemoved, Transactions: removed})
	return len(removed)
}

// byAccount groups transactions by account.
func byAccount(txs []*Transaction) map[*Account][]*Transaction {
	groups := make(map[*Account][]*Transaction)
	for _, tx := range txs {
		groups[tx.f.Account] = append(groups[tx.f.Account], tx)
	}
	return groups
}

// Recurring templates

// Recurrings returns the recurring templates by description.
func (s *Store) Recurrings() []*Recurring { return slices.Clone(s.recurrings) }

func (s *Store) searchRecurring(r *Recurring) (int, bool) {
	return slices.BinarySearchFunc(s.recurrings, r, compareRecurring)
}

// AddRecurring adds a template.
func (s *Store) AddRecurring(r *Recurring) error {
	if r == nil {
		return invalidf("nil recurring")
	}
	i, found := s.searchRecurring(r)
	if found {
		return duplicatef("recurring %v already exists", r)
	}
	if err := s.checkReferences(r.String(), r.model); err != nil {
		return err
	}
	s.recurrings = slices.Insert(s.recurrings, i, r)
	s.emit(Event{Kind: RecurringAdded, Account: r.Account(), Recurring: r})
	return nil
}

// RemoveRecurring removes r, and reports whether it was in the store.
func (s *Store) RemoveRecurring(r *Recurring) bool {
	if r == nil {
		return false
	}
	i, found := s.searchRecurring(r)
	if !found || s.recurrings[i] != r {
		return false
	}
	s.recurrings = slices.Delete(s.recurrings, i, i+1)
	s.emit(Event{Kind: RecurringRemoved, Account: r.Account(), Recurring: r})
	return true
}

// replaceRecurring swaps a template for its successor with the same identity
// and description.
func (s *Store) replaceRecurring(old, r *Recurring) {
	i, found := s.searchRecurring(old)
	if !found || s.recurrings[i] != old {
		return
	}
	s.recurrings[i] = r
	s.emit(Event{Kind: RecurringChanged, Account: r.Account(), Recurring: r, Old: old, New: r})
}

// GenerateRecurring creates the occurrences of every enabled template due on
// or before until, and advances the templates past them.
//
// The transactions are added as a single batch.
func (s *Store) GenerateRecurring(until date.Date) ([]*Transaction, error) {
	var txs []*Transaction
	advanced := make(map[*Recurring]*Recurring)
	for _, r := range s.recurrings {
		n := r
		for n.IsEnabled() && !n.next.After(until) {
			tx, err := n.occurrence()
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
			n = n.advanced()
		}
		if n != r {
			advanced[r] = n
		}
	}
	if err := s.AddTransactions(txs...); err != nil {
		return nil, err
	}
	for _, old := range slices.Clone(s.recurrings) {
		if r, ok := advanced[old]; ok {
			s.replaceRecurring(old, r)
		}
	}
	s.log.Debug("recurring generated", zap.Int("count", len(txs)), zap.Stringer("until", until))
	return txs, nil
}

// Named filters

// SaveFilter stores f under name. Changes to f are reported to the store
// listeners as FilterChanged events.
func (s *Store) SaveFilter(name string, f *Filter) error {
	name, err := checkName("filter", name)
	if err != nil {
		return err
	}
	if f == nil {
		return invalidf("nil filter %q", name)
	}
	if _, exists := s.filters[name]; exists {
		return duplicatef("filter %q already exists", name)
	}
	cancel := f.Subscribe(func(Event) { s.emit(Event{Kind: FilterChanged, Filter: name}) })
	s.filters[name] = &namedFilter{f: f, cancel: cancel}
	s.emit(Event{Kind: FilterChanged, Filter: name})
	return nil
}

// Filter returns the filter stored under name.
func (s *Store) Filter(name string) (*Filter, bool) {
	nf, ok := s.filters[name]
	if !ok {
		return nil, false
	}
	return nf.f, true
}

// RemoveFilter deletes the filter stored under name, and reports whether it
// existed.
func (s *Store) RemoveFilter(name string) bool {
	nf, ok := s.filters[name]
	if !ok {
		return false
	}
	nf.cancel()
	delete(s.filters, name)
	s.emit(Event{Kind: FilterChanged, Filter: name})
	return true
}

// FilterNames returns the names of the stored filters, sorted.
func (s *Store) FilterNames() []string { return slices.Sorted(maps.Keys(s.filters)) }

// Whole store

// Clear empties the store. Replaying the Add calls of a previous state, in
// the same order, rebuilds it.
func (s *Store) Clear() {
	for _, nf := range s.filters {
		nf.cancel()
	}
	s.accounts, s.categories, s.txs, s.recurrings = nil, nil, nil, nil
	s.filters = make(map[string]*namedFilter)
	s.log.Debug("store cleared")
	s.emit(Event{Kind: Reset})
}

// ReplaceContents swaps the whole content of s with other's, currency
// included. Both stores emit a Reset event.
func (s *Store) ReplaceContents(other *Store) {
	if other == s {
		return
	}
	s.cur, other.cur = other.cur, s.cur
	s.accounts, other.accounts = other.accounts, s.accounts
	s.categories, other.categories = other.categories, s.categories
	s.txs, other.txs = other.txs, s.txs
	s.recurrings, other.recurrings = other.recurrings, s.recurrings
	s.filters, other.filters = other.filters, s.filters
	s.rewireFilters()
	other.rewireFilters()
	s.log.Debug("store replaced", zap.Int("accounts", len(s.accounts)), zap.Int("transactions", len(s.txs)))
	s.emit(Event{Kind: Reset})
	other.emit(Event{Kind: Reset})
}

// rewireFilters reports named filter changes to s after an exchange of
// filters between stores.
func (s *Store) rewireFilters() {
	for name, nf := range s.filters {
		nf.cancel()
		nf.cancel = nf.f.Subscribe(func(Event) { s.emit(Event{Kind: FilterChanged, Filter: name}) })
	}
}
