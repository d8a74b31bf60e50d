// Package sqlitedb persists a cashbook store in a SQLite database.
//
// The database holds a single ledger. Save replaces its whole content in one
// transaction and Load rebuilds a new store from it. Named filters are kept
// in their YAML form.
package sqlitedb

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/date"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrNoLedger is returned by Load when nothing was saved yet.
var ErrNoLedger = errors.New("no ledger in database")

// DB is an open cashbook database.
type DB struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used to trace saves and loads.
func WithLogger(l *zap.Logger) Option {
	return func(db *DB) { db.log = l }
}

// Open opens, or creates, the database at path and migrates its schema.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	db := &DB{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(db)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := migrateUp(path, db.log); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.db = conn
	db.log.Debug("database open", zap.String("path", path))
	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

func formatDate(d date.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// Save replaces the content of the database with s.
func (db *DB) Save(ctx context.Context, s *cashbook.Store) error {
	var filters bytes.Buffer
	if err := cashbook.EncodeFilters(&filters, s); err != nil {
		return err
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"recurring_splits", "recurrings", "splits", "transactions", "check_books", "modes", "accounts", "categories", "ledger"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	w := &writer{ctx: ctx, tx: tx}
	cur := s.Currency()
	w.exec(`INSERT INTO ledger (id, currency, fraction, filters) VALUES (1, ?, ?, ?)`, cur.Code(), cur.Fraction(), filters.String())

	insertCategory := w.prepare(`INSERT INTO categories (name) VALUES (?)`)
	for _, c := range s.Categories() {
		w.run(insertCategory, c.Name())
	}

	insertAccount := w.prepare(`INSERT INTO accounts (position, name, initial, alert) VALUES (?, ?, ?, ?)`)
	insertMode := w.prepare(`INSERT INTO modes (account, position, name, check_book) VALUES (?, ?, ?, ?)`)
	insertCheckBook := w.prepare(`INSERT INTO check_books (account, position, prefix, first, last, next) VALUES (?, ?, ?, ?, ?, ?)`)
	for i, a := range s.Accounts() {
		var alert sql.NullString
		if th := a.Alert(); !th.IsLifeless() {
			alert = sql.NullString{String: th.Limit().String(), Valid: true}
		}
		w.run(insertAccount, i, a.Name(), a.InitialBalance().String(), alert)
		for j, m := range a.Modes()[1:] {
			w.run(insertMode, a.Name(), j, m.Name(), m.UsesCheckBook())
		}
		for j, cb := range a.CheckBooks() {
			w.run(insertCheckBook, a.Name(), j, cb.Prefix(), cb.First(), cb.Last(), cb.Next())
		}
	}

	insertTx := w.prepare(`INSERT INTO transactions (id, date, value_date, amount, account, mode, category, statement, number, description, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	insertSplit := w.prepare(`INSERT INTO splits (tx, position, amount, description, category) VALUES (?, ?, ?, ?, ?)`)
	for i, t := range s.Transactions() {
		f := t.Fields()
		id := i + 1
		w.run(insertTx, id, formatDate(f.Date), formatDate(f.ValueDate), f.Amount.String(), f.Account.Name(),
			f.Mode.Name(), f.Category.Name(), f.Statement, f.Number, f.Description, f.Comment)
		for j, sub := range f.Subs {
			w.run(insertSplit, id, j, sub.Amount.String(), sub.Description, sub.Category.Name())
		}
	}

	insertRecurring := w.prepare(`INSERT INTO recurrings (id, date, value_date, next, end_date, period, every, amount, account, mode, category, statement, number, description, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	insertRecurringSplit := w.prepare(`INSERT INTO recurring_splits (recurring, position, amount, description, category) VALUES (?, ?, ?, ?, ?)`)
	skipped := 0
	for i, r := range s.Recurrings() {
		sched, ok := r.Schedule()
		if !ok {
			skipped++
			continue
		}
		f := r.Model()
		id := i + 1
		w.run(insertRecurring, id, formatDate(f.Date), formatDate(f.ValueDate), formatDate(r.Next()), formatDate(r.End()),
			sched.Period.String(), sched.Every, f.Amount.String(), f.Account.Name(),
			f.Mode.Name(), f.Category.Name(), f.Statement, f.Number, f.Description, f.Comment)
		for j, sub := range f.Subs {
			w.run(insertRecurringSplit, id, j, sub.Amount.String(), sub.Description, sub.Category.Name())
		}
	}

	w.close()
	if w.err != nil {
		return w.err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.log.Info("ledger saved",
		zap.String("path", db.path),
		zap.Int("accounts", len(s.Accounts())),
		zap.Int("transactions", s.Len()),
		zap.Int("skippedRecurrings", skipped))
	return nil
}

// writer runs statements in a transaction until the first error.
type writer struct {
	ctx   context.Context
	tx    *sql.Tx
	stmts []*sql.Stmt
	err   error
}

func (w *writer) exec(query string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := w.tx.ExecContext(w.ctx, query, args...); err != nil {
		w.err = fmt.Errorf("exec %q: %w", query, err)
	}
}

func (w *writer) prepare(query string) *sql.Stmt {
	if w.err != nil {
		return nil
	}
	stmt, err := w.tx.PrepareContext(w.ctx, query)
	if err != nil {
		w.err = fmt.Errorf("prepare %q: %w", query, err)
		return nil
	}
	w.stmts = append(w.stmts, stmt)
	return stmt
}

func (w *writer) run(stmt *sql.Stmt, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := stmt.ExecContext(w.ctx, args...); err != nil {
		w.err = err
	}
}

func (w *writer) close() {
	for _, stmt := range w.stmts {
		stmt.Close()
	}
}

// Load returns a new store with the content of the database.
func (db *DB) Load(ctx context.Context) (*cashbook.Store, error) {
	var (
		code     string
		fraction int
		filters  string
	)
	err := db.db.QueryRowContext(ctx, `SELECT currency, fraction, filters FROM ledger WHERE id = 1`).Scan(&code, &fraction, &filters)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoLedger
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	cur, err := cashbook.NewCurrency(code)
	if err != nil {
		return nil, err
	}
	l := &loader{ctx: ctx, db: db.db, s: cashbook.NewStore(cur.WithFraction(fraction), cashbook.WithLogger(db.log))}

	steps := []func() error{l.categories, l.accounts, l.modes, l.checkBooks, l.transactions, l.recurrings}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	if err := cashbook.DecodeFilters(strings.NewReader(filters), l.s); err != nil {
		return nil, err
	}
	db.log.Info("ledger loaded", zap.String("path", db.path), zap.Int("transactions", l.s.Len()))
	return l.s, nil
}

// loader rebuilds a store table by table.
type loader struct {
	ctx context.Context
	db  *sql.DB
	s   *cashbook.Store
}

// each calls fn on every row of the query.
func (l *loader) each(query string, fn func(rows *sql.Rows) error) error {
	rows, err := l.db.QueryContext(l.ctx, query)
	if err != nil {
		return fmt.Errorf("query %q: %w", query, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (l *loader) account(name string) (*cashbook.Account, error) {
	a := l.s.AccountByName(name)
	if a == nil {
		return nil, fmt.Errorf("unknown account %q: %w", name, cashbook.ErrInvalidArgument)
	}
	return a, nil
}

func (l *loader) category(name string) (*cashbook.Category, error) {
	if name == "" {
		return nil, nil
	}
	c := l.s.CategoryByName(name)
	if c == nil {
		return nil, fmt.Errorf("unknown category %q: %w", name, cashbook.ErrInvalidArgument)
	}
	return c, nil
}

func (l *loader) categories() error {
	return l.each(`SELECT name FROM categories ORDER BY name`, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		_, err := l.s.AddCategory(name)
		return err
	})
}

func (l *loader) accounts() error {
	return l.each(`SELECT name, initial, alert FROM accounts ORDER BY position`, func(rows *sql.Rows) error {
		var (
			name, initial string
			alert         sql.NullString
		)
		if err := rows.Scan(&name, &initial, &alert); err != nil {
			return err
		}
		amount, err := decimal.NewFromString(initial)
		if err != nil {
			return fmt.Errorf("account %q: %w", name, err)
		}
		a, err := l.s.AddAccount(name, amount)
		if err != nil {
			return err
		}
		if !alert.Valid {
			return nil
		}
		limit, err := decimal.NewFromString(alert.String)
		if err != nil {
			return fmt.Errorf("account %q: %w", name, err)
		}
		return l.s.SetAlert(a, cashbook.AlertBelow(limit))
	})
}

func (l *loader) modes() error {
	return l.each(`SELECT account, name, check_book FROM modes ORDER BY account, position`, func(rows *sql.Rows) error {
		var (
			account, name string
			checkBook     bool
		)
		if err := rows.Scan(&account, &name, &checkBook); err != nil {
			return err
		}
		a, err := l.account(account)
		if err != nil {
			return err
		}
		return l.s.AddMode(a, cashbook.NewMode(name, checkBook))
	})
}

func (l *loader) checkBooks() error {
	return l.each(`SELECT account, prefix, first, last, next FROM check_books ORDER BY account, position`, func(rows *sql.Rows) error {
		var (
			account, prefix   string
			first, last, next int
		)
		if err := rows.Scan(&account, &prefix, &first, &last, &next); err != nil {
			return err
		}
		a, err := l.account(account)
		if err != nil {
			return err
		}
		return l.s.AddCheckBook(a, cashbook.RestoreCheckBook(prefix, first, last, next))
	})
}

// fieldsRow is the textual form of transaction fields, shared by transactions
// and recurring templates.
type fieldsRow struct {
	date, valueDate, amount, account, mode, category string
	statement, number, description, comment          string
}

func (r *fieldsRow) dest() []any {
	return []any{&r.date, &r.valueDate, &r.amount, &r.account, &r.mode, &r.category, &r.statement, &r.number, &r.description, &r.comment}
}

const fieldsColumns = "date, value_date, amount, account, mode, category, statement, number, description, comment"

type splitRow struct {
	amount, description, category string
}

// splits reads the split table whose owner column is owner, by owner id.
func (l *loader) splits(table, owner string) (map[int64][]splitRow, error) {
	all := make(map[int64][]splitRow)
	err := l.each(fmt.Sprintf(`SELECT %s, amount, description, category FROM %s ORDER BY %s, position`, owner, table, owner), func(rows *sql.Rows) error {
		var (
			id int64
			sr splitRow
		)
		if err := rows.Scan(&id, &sr.amount, &sr.description, &sr.category); err != nil {
			return err
		}
		all[id] = append(all[id], sr)
		return nil
	})
	return all, err
}

func (l *loader) fields(r fieldsRow, subs []splitRow) (cashbook.Fields, error) {
	var f cashbook.Fields
	var err error
	if f.Date, err = date.Parse(r.date); err != nil {
		return f, err
	}
	if f.ValueDate, err = date.Parse(r.valueDate); err != nil {
		return f, err
	}
	if f.Amount, err = decimal.NewFromString(r.amount); err != nil {
		return f, err
	}
	if f.Account, err = l.account(r.account); err != nil {
		return f, err
	}
	if f.Mode = f.Account.Mode(r.mode); f.Mode == nil {
		return f, fmt.Errorf("unknown mode %q in account %q: %w", r.mode, r.account, cashbook.ErrInvalidArgument)
	}
	if f.Category, err = l.category(r.category); err != nil {
		return f, err
	}
	f.Statement, f.Number, f.Description, f.Comment = r.statement, r.number, r.description, r.comment
	for _, sr := range subs {
		sub := cashbook.SubTransaction{Description: sr.description}
		if sub.Amount, err = decimal.NewFromString(sr.amount); err != nil {
			return f, err
		}
		if sub.Category, err = l.category(sr.category); err != nil {
			return f, err
		}
		f.Subs = append(f.Subs, sub)
	}
	return f, nil
}

func (l *loader) transactions() error {
	splits, err := l.splits("splits", "tx")
	if err != nil {
		return err
	}
	var txs []*cashbook.Transaction
	err = l.each(`SELECT id, `+fieldsColumns+` FROM transactions ORDER BY id`, func(rows *sql.Rows) error {
		var (
			id int64
			r  fieldsRow
		)
		if err := rows.Scan(append([]any{&id}, r.dest()...)...); err != nil {
			return err
		}
		f, err := l.fields(r, splits[id])
		if err != nil {
			return fmt.Errorf("transaction %d: %w", id, err)
		}
		tx, err := cashbook.NewTransaction(f)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", id, err)
		}
		txs = append(txs, tx)
		return nil
	})
	if err != nil {
		return err
	}
	return l.s.AddTransactions(txs...)
}

func (l *loader) recurrings() error {
	splits, err := l.splits("recurring_splits", "recurring")
	if err != nil {
		return err
	}
	return l.each(`SELECT id, next, end_date, period, every, `+fieldsColumns+` FROM recurrings ORDER BY id`, func(rows *sql.Rows) error {
		var (
			id                int64
			next, end, period string
			every             int
			r                 fieldsRow
		)
		if err := rows.Scan(append([]any{&id, &next, &end, &period, &every}, r.dest()...)...); err != nil {
			return err
		}
		f, err := l.fields(r, splits[id])
		if err != nil {
			return fmt.Errorf("recurring %d: %w", id, err)
		}
		p, err := date.ParsePeriod(period)
		if err != nil {
			return err
		}
		nd, err := date.Parse(next)
		if err != nil {
			return err
		}
		ed, err := date.Parse(end)
		if err != nil {
			return err
		}
		rec, err := cashbook.NewScheduled(f, nd, ed, cashbook.Schedule{Period: p, Every: every})
		if err != nil {
			return err
		}
		return l.s.AddRecurring(rec)
	})
}
