package cashbook

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Snapshot commands, one per JSONL line.
const (
	cmdLedger    = "ledger"
	cmdCategory  = "category"
	cmdAccount   = "account"
	cmdMode      = "mode"
	cmdCheckBook = "checkbook"
	cmdTx        = "tx"
	cmdRecurring = "recurring"
	cmdFilter    = "filter"
)

type subLine struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// fieldsLine is the JSON form of transaction fields.
type fieldsLine struct {
	Date        date.Date       `json:"date"`
	ValueDate   date.Date       `json:"valueDate"`
	Amount      decimal.Decimal `json:"amount"`
	Account     string          `json:"account"`
	Mode        string          `json:"mode"`
	Category    string          `json:"category"`
	Statement   string          `json:"statement"`
	Number      string          `json:"number"`
	Description string          `json:"description"`
	Comment     string          `json:"comment"`
	Subs        []subLine       `json:"subs"`
}

// appendFields writes the fields in a fixed order, omitting empty ones.
func (w *jsonLine) appendFields(f Fields) *jsonLine {
	w.Append("date", f.Date)
	if f.ValueDate != f.Date {
		w.Optional("valueDate", f.ValueDate)
	}
	w.Append("amount", f.Amount).
		Append("account", f.Account.Name()).
		Optional("mode", f.Mode.Name()).
		Optional("category", f.Category.Name()).
		Optional("statement", f.Statement).
		Optional("number", f.Number).
		Optional("description", f.Description).
		Optional("comment", f.Comment)
	if len(f.Subs) > 0 {
		subs := make([]subLine, len(f.Subs))
		for i, s := range f.Subs {
			subs[i] = subLine{Amount: s.Amount, Description: s.Description, Category: s.Category.Name()}
		}
		w.Append("subs", subs)
	}
	return w
}

// EncodeStore writes a snapshot of s in JSONL format: the currency, the
// categories, each account with its modes and check-books, the transactions
// by identity, the scheduled recurring templates and the named filters.
//
// Recurring templates without a Schedule cannot be persisted and are skipped.
func EncodeStore(w io.Writer, s *Store) error {
	var lines []*jsonLine
	lines = append(lines, newLine(cmdLedger).Append("currency", s.cur.Code()).Append("fraction", s.cur.Fraction()))
	for _, c := range s.categories {
		lines = append(lines, newLine(cmdCategory).Append("name", c.name))
	}
	for _, a := range s.accounts {
		l := newLine(cmdAccount).Append("name", a.name).Optional("initial", a.initial)
		if !a.alert.IsLifeless() {
			l.Append("alert", a.alert.limit)
		}
		lines = append(lines, l)
		for _, m := range a.modes[1:] {
			lines = append(lines, newLine(cmdMode).Append("account", a.name).Append("name", m.name).Optional("checkBook", m.useCheckBook))
		}
		for _, cb := range a.checkBooks {
			lines = append(lines, newLine(cmdCheckBook).
				Append("account", a.name).
				Optional("prefix", cb.prefix).
				Append("first", cb.first).
				Append("last", cb.last).
				Append("next", cb.next))
		}
	}
	for _, tx := range s.txs {
		lines = append(lines, newLine(cmdTx).appendFields(tx.f))
	}
	for _, r := range s.recurrings {
		if r.schedule == nil {
			continue
		}
		lines = append(lines, newLine(cmdRecurring).
			Append("next", r.next).
			Optional("end", r.end).
			Append("period", r.schedule.Period.String()).
			Append("every", r.schedule.Every).
			appendFields(r.model))
	}
	for _, name := range s.FilterNames() {
		lines = append(lines, newLine(cmdFilter).Append("definition", toDef(name, s.filters[name].f)))
	}

	for _, l := range lines {
		if err := l.WriteLine(w); err != nil {
			return err
		}
	}
	return nil
}

// storeDecoder rebuilds a store line by line. Problems with a line are
// collected and the line is skipped.
type storeDecoder struct {
	s    *Store
	opts []Option
	txs  []*Transaction
	errs []error
}

func (d *storeDecoder) fail(n int, err error) { d.errs = append(d.errs, fmt.Errorf("line %d: %w", n, err)) }

// fields resolves the names of a fields line.
func (d *storeDecoder) fields(l fieldsLine) (Fields, error) {
	a := d.s.AccountByName(l.Account)
	if a == nil {
		return Fields{}, invalidf("unknown account %q", l.Account)
	}
	m := a.Mode(l.Mode)
	if m == nil {
		return Fields{}, invalidf("unknown mode %q in account %q", l.Mode, l.Account)
	}
	category := func(name string) (*Category, error) {
		if name == "" {
			return nil, nil
		}
		c := d.s.CategoryByName(name)
		if c == nil {
			return nil, invalidf("unknown category %q", name)
		}
		return c, nil
	}
	c, err := category(l.Category)
	if err != nil {
		return Fields{}, err
	}
	f := Fields{
		Date:        l.Date,
		ValueDate:   l.ValueDate,
		Amount:      l.Amount,
		Account:     a,
		Mode:        m,
		Category:    c,
		Statement:   l.Statement,
		Number:      l.Number,
		Description: l.Description,
		Comment:     l.Comment,
	}
	for _, sl := range l.Subs {
		sc, err := category(sl.Category)
		if err != nil {
			return Fields{}, err
		}
		f.Subs = append(f.Subs, SubTransaction{Amount: sl.Amount, Description: sl.Description, Category: sc})
	}
	return f, nil
}

func (d *storeDecoder) decode(n int, line []byte) error {
	var id struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(line, &id); err != nil {
		return fmt.Errorf("could not identify command in line %q: %w", string(line), err)
	}
	if d.s == nil && id.Command != cmdLedger {
		return fmt.Errorf("line %d: %q before the ledger line: %w", n, id.Command, ErrInvalidArgument)
	}

	switch id.Command {
	case cmdLedger:
		var l struct {
			Currency string `json:"currency"`
			Fraction *int   `json:"fraction"`
		}
		if err := json.Unmarshal(line, &l); err != nil {
			return err
		}
		cur, err := NewCurrency(l.Currency)
		if err != nil {
			return err
		}
		if l.Fraction != nil {
			cur = cur.WithFraction(*l.Fraction)
		}
		d.s = NewStore(cur, d.opts...)

	case cmdCategory:
		var l struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(line, &l); err != nil {
			return err
		}
		if _, err := d.s.AddCategory(l.Name); err != nil {
			d.fail(n, err)
		}

	case cmdAccount:
		var l struct {
			Name    string              `json:"name"`
			Initial decimal.Decimal     `json:"initial"`
			Alert   decimal.NullDecimal `json:"alert"`
		}
		if err := json.Unmarshal(line, &l); err != nil {
			return err
		}
		a, err := d.s.AddAccount(l.Name, l.Initial)
		if err != nil {
			d.fail(n, err)
			return nil
		}
		if l.Alert.Valid {
			d.s.SetAlert(a, AlertBelow(l.Alert.Decimal))
		}

	case cmdMode:
		var l struct {
			Account   string `json:"account"`
			Name      string `json:"name"`
			CheckBook bool   `json:"checkBook"`
		}
		if err := json.Unmarshal(line, &l); err != nil {
			return err
		}
		if err := d.s.AddMode(d.s.AccountByName(l.Account), NewMode(l.Name, l.CheckBook)); err != nil {
			d.fail(n, err)
		}

	case cmdCheckBook:
		var l struct {
			Account string `json:"account"`
			Prefix  string `json:"prefix"`
			First   int    `json:"first"`
			Last    int    `json:"last"`
			Next    int    `json:"next"`
		}
		if err := json.Unmarshal(line, &l); err != nil {
			return err
		}
		cb := RestoreCheckBook(l.Prefix, l.First, l.Last, l.Next)
		if err := d.s.AddCheckBook(d.s.AccountByName(l.Account), cb); err != nil {
			d.fail(n, err)
		}

	case cmdTx:
		var l fieldsLine
		if err := json.Unmarshal(line, &l); err != nil {
			return err
		}
		f, err := d.fields(l)
		if err == nil {
			var tx *Transaction
			if tx, err = NewTransaction(f); err == nil {
				d.txs = append(d.txs, tx)
			}
		}
		if err != nil {
			d.fail(n, err)
		}

	case cmdRecurring:
		var l struct {
			fieldsLine
			Next   date.Date `json:"next"`
			End    date.Date `json:"end"`
			Period string    `json:"period"`
			Every  int       `json:"every"`
		}
		if err := json.Unmarshal(line, &l); err != nil {
			return err
		}
		p, err := date.ParsePeriod(l.Period)
		if err != nil {
			d.fail(n, err)
			return nil
		}
		f, err := d.fields(l.fieldsLine)
		if err != nil {
			d.fail(n, err)
			return nil
		}
		r, err := NewScheduled(f, l.Next, l.End, Schedule{Period: p, Every: l.Every})
		if err == nil {
			err = d.s.AddRecurring(r)
		}
		if err != nil {
			d.fail(n, err)
		}

	case cmdFilter:
		var l struct {
			Definition filterDef `json:"definition"`
		}
		if err := json.Unmarshal(line, &l); err != nil {
			return err
		}
		f, err := l.Definition.filter(d.s)
		if err == nil {
			err = d.s.SaveFilter(l.Definition.Name, f)
		}
		if err != nil {
			d.fail(n, err)
		}

	default:
		return fmt.Errorf("line %d: unknown command %q: %w", n, id.Command, ErrInvalidArgument)
	}
	return nil
}

// DecodeStore reads a snapshot written by EncodeStore into a new store.
//
// Lines referencing unknown entities are skipped and reported together in the
// returned error, along with the store built from the other lines. Malformed
// lines stop the decoding.
func DecodeStore(r io.Reader, opts ...Option) (*Store, error) {
	d := &storeDecoder{opts: opts}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := d.decode(n, line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	if d.s == nil {
		return nil, fmt.Errorf("missing ledger line: %w", ErrInvalidArgument)
	}
	// transactions are added last, so that check-books see them all.
	if err := d.s.AddTransactions(d.txs...); err != nil {
		return nil, err
	}
	return d.s, errors.Join(d.errs...)
}

// Load replaces the content of s with the snapshot read from r. On error s
// is unchanged.
func (s *Store) Load(r io.Reader) error {
	loaded, err := DecodeStore(r, WithLogger(s.log))
	if err != nil {
		return err
	}
	s.ReplaceContents(loaded)
	return nil
}
