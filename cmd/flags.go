package cmd

import (
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
)

// parseRange parses an inclusive date range; empty bounds are open.
func parseRange(from, to string) (date.Range, error) {
	f, err := date.Parse(from)
	if err != nil {
		return date.Range{}, err
	}
	t, err := date.Parse(to)
	if err != nil {
		return date.Range{}, err
	}
	if !f.IsZero() && !t.IsZero() && t.Before(f) {
		return date.Range{}, fmt.Errorf("range ends on %s before it starts on %s", t, f)
	}
	return date.Between(f, t), nil
}

// findAccount returns the account named name, ignoring case.
func findAccount(s *cashbook.Store, name string) (*cashbook.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("missing account name")
	}
	a := s.AccountByName(name)
	if a == nil {
		return nil, fmt.Errorf("unknown account %q", name)
	}
	return a, nil
}

// findCategory returns the category named name, nil for the empty name.
func findCategory(s *cashbook.Store, name string) (*cashbook.Category, error) {
	if name == "" {
		return nil, nil
	}
	c := s.CategoryByName(name)
	if c == nil {
		return nil, fmt.Errorf("unknown category %q", name)
	}
	return c, nil
}

// list splits a comma separated flag value. "-" stands for the undefined
// category or mode.
func list(v string) []string {
	if v == "" {
		return nil
	}
	items := strings.Split(v, ",")
	for i, item := range items {
		item = strings.TrimSpace(item)
		if item == "-" {
			item = ""
		}
		items[i] = item
	}
	return items
}

// parseMatcher parses a text criterion: "=text" matches exactly, "~expr" is a
// regular expression, anything else is searched for. Matching ignores case
// and diacritics.
func parseMatcher(v string) (*cashbook.TextMatcher, error) {
	switch {
	case v == "":
		return nil, nil
	case strings.HasPrefix(v, "="):
		return cashbook.NewTextMatcher(cashbook.Equals, v[1:], false, false)
	case strings.HasPrefix(v, "~"):
		return cashbook.NewTextMatcher(cashbook.Regexp, v[1:], false, false)
	default:
		return cashbook.NewTextMatcher(cashbook.Contains, v, false, false)
	}
}

func parseBound(v string) (decimal.NullDecimal, error) {
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q: %w", v, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// filterFlags holds the criteria of a filter given on the command line.
type filterFlags struct {
	named                        string
	accounts, modes, categories  string
	from, to, valueFrom, valueTo string
	min, max                     string
	kind, state                  string
	description, comment, number string
	statement                    string
}

func (ff *filterFlags) register(f *flag.FlagSet) {
	f.StringVar(&ff.named, "filter", "", "Start from the saved filter of this name.")
	f.StringVar(&ff.accounts, "accounts", "", "Comma separated list of accounts.")
	f.StringVar(&ff.modes, "modes", "", "Comma separated list of payment modes, '-' for the undefined mode.")
	f.StringVar(&ff.categories, "categories", "", "Comma separated list of categories, '-' for the undefined category.")
	f.StringVar(&ff.from, "from", "", "First transaction date.")
	f.StringVar(&ff.to, "to", "", "Last transaction date.")
	f.StringVar(&ff.valueFrom, "value-from", "", "First value date.")
	f.StringVar(&ff.valueTo, "value-to", "", "Last value date.")
	f.StringVar(&ff.min, "min", "", "Minimum absolute amount.")
	f.StringVar(&ff.max, "max", "", "Maximum absolute amount.")
	f.StringVar(&ff.kind, "kind", "", "Amount kind: expenses, receipts or both.")
	f.StringVar(&ff.state, "state", "", "Check state: checked, unchecked or both.")
	f.StringVar(&ff.description, "desc", "", "Description criterion ('=text' exact, '~regexp', otherwise contains).")
	f.StringVar(&ff.comment, "comment", "", "Comment criterion, same syntax as -desc.")
	f.StringVar(&ff.number, "number", "", "Number criterion, same syntax as -desc.")
	f.StringVar(&ff.statement, "statement", "", "Statement criterion, same syntax as -desc.")
}

// filter builds the filter described by the flags over the entities of s.
func (ff *filterFlags) filter(s *cashbook.Store) (*cashbook.Filter, error) {
	f := cashbook.NewFilter(s.Currency())
	if ff.named != "" {
		saved, ok := s.Filter(ff.named)
		if !ok {
			return nil, fmt.Errorf("unknown filter %q", ff.named)
		}
		f.Set(saved)
	}

	if names := list(ff.accounts); names != nil {
		var accounts []*cashbook.Account
		for _, name := range names {
			a, err := findAccount(s, name)
			if err != nil {
				return nil, err
			}
			accounts = append(accounts, a)
		}
		f.SetAccounts(accounts...)
	}
	if names := list(ff.modes); names != nil {
		f.SetModes(names...)
	}
	if names := list(ff.categories); names != nil {
		var categories []*cashbook.Category
		for _, name := range names {
			c, err := findCategory(s, name)
			if err != nil {
				return nil, err
			}
			categories = append(categories, c)
		}
		f.SetCategories(categories...)
	}

	if ff.from != "" || ff.to != "" {
		r, err := parseRange(ff.from, ff.to)
		if err != nil {
			return nil, err
		}
		f.SetDates(r)
	}
	if ff.valueFrom != "" || ff.valueTo != "" {
		r, err := parseRange(ff.valueFrom, ff.valueTo)
		if err != nil {
			return nil, err
		}
		f.SetValueDates(r)
	}

	if ff.min != "" || ff.max != "" {
		lo, err := parseBound(ff.min)
		if err != nil {
			return nil, err
		}
		hi, err := parseBound(ff.max)
		if err != nil {
			return nil, err
		}
		if err := f.SetAmount(lo, hi); err != nil {
			return nil, err
		}
	}

	switch ff.kind {
	case "":
	case "expenses":
		f.SetAmountKinds(cashbook.Expenses)
	case "receipts":
		f.SetAmountKinds(cashbook.Receipts)
	case "both":
		f.SetAmountKinds(cashbook.AnyAmount)
	default:
		return nil, fmt.Errorf("invalid amount kind %q", ff.kind)
	}
	switch ff.state {
	case "":
	case "checked":
		f.SetCheckStates(cashbook.Checked)
	case "unchecked":
		f.SetCheckStates(cashbook.Unchecked)
	case "both":
		f.SetCheckStates(cashbook.AnyState)
	default:
		return nil, fmt.Errorf("invalid check state %q", ff.state)
	}

	matchers := []struct {
		value string
		set   func(*cashbook.TextMatcher)
	}{
		{ff.description, f.SetDescription},
		{ff.comment, f.SetComment},
		{ff.number, f.SetNumber},
		{ff.statement, f.SetStatement},
	}
	for _, m := range matchers {
		if m.value == "" {
			continue
		}
		tm, err := parseMatcher(m.value)
		if err != nil {
			return nil, err
		}
		m.set(tm)
	}
	return f, nil
}
