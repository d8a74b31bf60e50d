package cashbook

import (
	"cmp"
	"strings"
)

// CompareTransactions is the primary transaction order: date, then identity.
func CompareTransactions(a, b *Transaction) int {
	if c := a.Date().Compare(b.Date()); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// CompareValueDate is the order of a balance timeline: value date, receipts
// before expenses, date, statement and finally identity.
func CompareValueDate(a, b *Transaction) int {
	if c := a.ValueDate().Compare(b.ValueDate()); c != 0 {
		return c
	}
	// receipts first
	if c := -cmp.Compare(a.Amount().Sign(), b.Amount().Sign()); c != 0 {
		return c
	}
	if c := a.Date().Compare(b.Date()); c != 0 {
		return c
	}
	if c := strings.Compare(a.Statement(), b.Statement()); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

func compareByID(a, b *Transaction) int { return cmp.Compare(a.id, b.id) }

// compareNames orders names without regard to case.
func compareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortKey selects the order of a filtered view.
type SortKey int

const (
	ByDate SortKey = iota
	ByValueDate
	ByAccount
	ByCategory
	ByMode
	ByAmount
	ByDescription
)

func (k SortKey) String() string {
	switch k {
	case ByDate:
		return "date"
	case ByValueDate:
		return "value-date"
	case ByAccount:
		return "account"
	case ByCategory:
		return "category"
	case ByMode:
		return "mode"
	case ByAmount:
		return "amount"
	case ByDescription:
		return "description"
	default:
		return "unknown"
	}
}

// ParseSortKey parses the name of a sort key.
func ParseSortKey(s string) (SortKey, error) {
	for k := ByDate; k <= ByDescription; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return ByDate, invalidf("unknown sort key %q", s)
}

// Compare orders two transactions by the key, falling back to the primary
// order.
func (k SortKey) Compare(a, b *Transaction) int {
	var c int
	switch k {
	case ByValueDate:
		c = a.ValueDate().Compare(b.ValueDate())
	case ByAccount:
		c = compareNames(a.Account().Name(), b.Account().Name())
	case ByCategory:
		c = compareNames(a.Category().Name(), b.Category().Name())
	case ByMode:
		c = compareNames(a.Mode().Name(), b.Mode().Name())
	case ByAmount:
		c = a.Amount().Cmp(b.Amount())
	case ByDescription:
		c = compareNames(a.Description(), b.Description())
	}
	if c != 0 {
		return c
	}
	return CompareTransactions(a, b)
}

// dependsOn reports whether renaming an entity of the event kind can change
// the order of the key.
func (k SortKey) dependsOn(kind EventKind) bool {
	switch kind {
	case AccountChanged:
		return k == ByAccount
	case CategoryChanged:
		return k == ByCategory
	case ModeChanged:
		return k == ByMode
	}
	return false
}
