package cashbook

import (
	"go.uber.org/zap"
)

// update rewrites the category and mode references of every transaction and
// recurring template. Either transform may be nil.
//
// Only the items the transforms actually change are replaced, each by a
// successor with the same identity. Listeners receive one TransactionsRemoved
// event for the old versions and one TransactionsAdded event for the new ones.
func (s *Store) update(cat func(*Category) *Category, mode func(*Account, *Mode) *Mode) {
	var olds, news []*Transaction
	for i, tx := range s.txs {
		f, changed := tx.f.derive(cat, mode)
		if !changed {
			continue
		}
		n := tx.replace(f)
		s.txs[i] = n
		olds = append(olds, tx)
		news = append(news, n)
	}
	if len(olds) > 0 {
		for a, group := range byAccount(olds) {
			a.remove(group)
		}
		s.emit(Event{Kind: TransactionsRemoved, Transactions: olds})
		for a, group := range byAccount(news) {
			a.add(group)
		}
		s.emit(Event{Kind: TransactionsAdded, Transactions: news})
	}

	var templates int
	for i, r := range s.recurrings {
		n, changed := r.derived(cat, mode)
		if !changed {
			continue
		}
		// same description and identity: the order is unchanged.
		s.recurrings[i] = n
		templates++
		s.emit(Event{Kind: RecurringChanged, Account: n.Account(), Recurring: n, Old: r, New: n})
	}
	s.log.Debug("references updated", zap.Int("transactions", len(olds)), zap.Int("recurring", templates))
}
