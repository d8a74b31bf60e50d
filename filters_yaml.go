package cashbook

import (
	"errors"
	"fmt"
	"io"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// filterDef is the persisted form of a named filter. Entities are referenced
// by name; the undefined category and mode are the empty name.
type filterDef struct {
	Name        string      `yaml:"name" json:"name"`
	Accounts    []string    `yaml:"accounts,omitempty" json:"accounts,omitempty"`
	Modes       []string    `yaml:"modes,omitempty" json:"modes,omitempty"`
	Categories  []string    `yaml:"categories,omitempty" json:"categories,omitempty"`
	From        string      `yaml:"from,omitempty" json:"from,omitempty"`
	To          string      `yaml:"to,omitempty" json:"to,omitempty"`
	ValueFrom   string      `yaml:"valueFrom,omitempty" json:"valueFrom,omitempty"`
	ValueTo     string      `yaml:"valueTo,omitempty" json:"valueTo,omitempty"`
	Min         string      `yaml:"min,omitempty" json:"min,omitempty"`
	Max         string      `yaml:"max,omitempty" json:"max,omitempty"`
	Amounts     string      `yaml:"amounts,omitempty" json:"amounts,omitempty"` // expenses, receipts or both
	States      string      `yaml:"states,omitempty" json:"states,omitempty"`   // checked, unchecked or both
	Statement   *matcherDef `yaml:"statement,omitempty" json:"statement,omitempty"`
	Description *matcherDef `yaml:"description,omitempty" json:"description,omitempty"`
	Comment     *matcherDef `yaml:"comment,omitempty" json:"comment,omitempty"`
	Number      *matcherDef `yaml:"number,omitempty" json:"number,omitempty"`
}

type matcherDef struct {
	Kind               string `yaml:"kind" json:"kind"`
	Pattern            string `yaml:"pattern" json:"pattern"`
	CaseSensitive      bool   `yaml:"caseSensitive,omitempty" json:"caseSensitive,omitempty"`
	DiacriticSensitive bool   `yaml:"diacriticSensitive,omitempty" json:"diacriticSensitive,omitempty"`
}

type filtersFile struct {
	Filters []filterDef `yaml:"filters"`
}

var amountKindNames = map[AmountKinds]string{Expenses: "expenses", Receipts: "receipts", AnyAmount: "", 0: "none"}
var checkStateNames = map[CheckStates]string{Checked: "checked", Unchecked: "unchecked", AnyState: "", 0: "none"}

func lookup[K comparable](names map[K]string, name string) (K, bool) {
	if name == "both" {
		name = ""
	}
	for k, n := range names {
		if n == name {
			return k, true
		}
	}
	var zero K
	return zero, false
}

func toMatcherDef(m *TextMatcher) *matcherDef {
	if m == nil {
		return nil
	}
	return &matcherDef{Kind: m.kind.String(), Pattern: m.pattern, CaseSensitive: m.caseSensitive, DiacriticSensitive: m.diacriticSensitive}
}

func (d *matcherDef) matcher() (*TextMatcher, error) {
	if d == nil {
		return nil, nil
	}
	k, err := ParseMatchKind(d.Kind)
	if err != nil {
		return nil, err
	}
	return NewTextMatcher(k, d.Pattern, d.CaseSensitive, d.DiacriticSensitive)
}

func formatBound(d date.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func formatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func parseAmount(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q: %w", s, ErrInvalidArgument)
	}
	return decimal.NewNullDecimal(d), nil
}

// toDef returns the persisted form of f.
func toDef(name string, f *Filter) filterDef {
	d := filterDef{
		Name:        name,
		Modes:       f.Modes(),
		From:        formatBound(f.dates.From),
		To:          formatBound(f.dates.To),
		ValueFrom:   formatBound(f.valueDates.From),
		ValueTo:     formatBound(f.valueDates.To),
		Min:         formatAmount(f.min),
		Max:         formatAmount(f.max),
		Amounts:     amountKindNames[f.kinds],
		States:      checkStateNames[f.states],
		Statement:   toMatcherDef(f.statement),
		Description: toMatcherDef(f.description),
		Comment:     toMatcherDef(f.comment),
		Number:      toMatcherDef(f.number),
	}
	for _, a := range f.Accounts() {
		d.Accounts = append(d.Accounts, a.Name())
	}
	for _, c := range f.Categories() {
		d.Categories = append(d.Categories, c.Name())
	}
	return d
}

// filter resolves the definition against the entities of s.
func (d filterDef) filter(s *Store) (*Filter, error) {
	f := NewFilter(s.cur)
	var errs []error
	var accs []*Account
	for _, name := range d.Accounts {
		a := s.AccountByName(name)
		if a == nil {
			errs = append(errs, invalidf("filter %q: unknown account %q", d.Name, name))
			continue
		}
		accs = append(accs, a)
	}
	f.SetAccounts(accs...)
	f.SetModes(d.Modes...)
	var cats []*Category
	for _, name := range d.Categories {
		if name == "" {
			cats = append(cats, nil)
			continue
		}
		c := s.CategoryByName(name)
		if c == nil {
			errs = append(errs, invalidf("filter %q: unknown category %q", d.Name, name))
			continue
		}
		cats = append(cats, c)
	}
	f.SetCategories(cats...)

	var err error
	var from, to, vfrom, vto date.Date
	if from, err = date.Parse(d.From); err != nil {
		errs = append(errs, err)
	}
	if to, err = date.Parse(d.To); err != nil {
		errs = append(errs, err)
	}
	if vfrom, err = date.Parse(d.ValueFrom); err != nil {
		errs = append(errs, err)
	}
	if vto, err = date.Parse(d.ValueTo); err != nil {
		errs = append(errs, err)
	}
	f.SetDates(date.Between(from, to))
	f.SetValueDates(date.Between(vfrom, vto))

	lo, err := parseAmount(d.Min)
	if err != nil {
		errs = append(errs, err)
	}
	hi, err := parseAmount(d.Max)
	if err != nil {
		errs = append(errs, err)
	}
	if err := f.SetAmount(lo, hi); err != nil {
		errs = append(errs, err)
	}
	if k, ok := lookup(amountKindNames, d.Amounts); ok {
		f.SetAmountKinds(k)
	} else {
		errs = append(errs, invalidf("filter %q: unknown amounts %q", d.Name, d.Amounts))
	}
	if st, ok := lookup(checkStateNames, d.States); ok {
		f.SetCheckStates(st)
	} else {
		errs = append(errs, invalidf("filter %q: unknown states %q", d.Name, d.States))
	}

	for _, m := range []struct {
		def *matcherDef
		set func(*TextMatcher)
	}{
		{d.Statement, f.SetStatement},
		{d.Description, f.SetDescription},
		{d.Comment, f.SetComment},
		{d.Number, f.SetNumber},
	} {
		tm, err := m.def.matcher()
		if err != nil {
			errs = append(errs, fmt.Errorf("filter %q: %w", d.Name, err))
			continue
		}
		m.set(tm)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return f, nil
}

// EncodeFilters writes the named filters of s as a YAML document.
func EncodeFilters(w io.Writer, s *Store) error {
	var file filtersFile
	for _, name := range s.FilterNames() {
		f, _ := s.Filter(name)
		file.Filters = append(file.Filters, toDef(name, f))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	return enc.Close()
}

// DecodeFilters reads a YAML document of named filters and saves them in s.
// Every definition is tried; the problems are returned together.
func DecodeFilters(r io.Reader, s *Store) error {
	var file filtersFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode filters: %w", err)
	}
	var errs []error
	for _, d := range file.Filters {
		f, err := d.filter(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.SaveFilter(d.Name, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
