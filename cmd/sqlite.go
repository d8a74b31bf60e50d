package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cashbook/sqlitedb"
	"github.com/google/subcommands"
)

const defaultDB = "cashbook.db"

// exportSQLiteCmd copies the ledger into a SQLite database.
type exportSQLiteCmd struct {
	db string
}

func (*exportSQLiteCmd) Name() string     { return "export-sqlite" }
func (*exportSQLiteCmd) Synopsis() string { return "copy the ledger into a SQLite database" }
func (*exportSQLiteCmd) Usage() string {
	return `cbk export-sqlite [-db <file>]

  Replaces the content of the SQLite database with the ledger. The database
  is created and its schema migrated when needed.
`
}

func (c *exportSQLiteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", defaultDB, "Path to the SQLite database.")
}

func (c *exportSQLiteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	db, err := sqlitedb.Open(ctx, c.db, sqlitedb.WithLogger(Logger()))
	if err != nil {
		return failf("opening database: %v", err)
	}
	defer db.Close()
	if err := db.Save(ctx, s); err != nil {
		return failf("exporting: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d transaction(s) to %s.\n", s.Len(), c.db)
	return subcommands.ExitSuccess
}

// importSQLiteCmd replaces the ledger with the content of a SQLite database.
type importSQLiteCmd struct {
	db string
}

func (*importSQLiteCmd) Name() string     { return "import-sqlite" }
func (*importSQLiteCmd) Synopsis() string { return "replace the ledger with a SQLite database" }
func (*importSQLiteCmd) Usage() string {
	return `cbk import-sqlite [-db <file>]

  Replaces the ledger file with the content of a SQLite database written by
  export-sqlite.
`
}

func (c *importSQLiteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", defaultDB, "Path to the SQLite database.")
}

func (c *importSQLiteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := os.Stat(c.db); err != nil {
		return failf("%v", err)
	}
	db, err := sqlitedb.Open(ctx, c.db, sqlitedb.WithLogger(Logger()))
	if err != nil {
		return failf("opening database: %v", err)
	}
	defer db.Close()
	s, err := db.Load(ctx)
	if err != nil {
		return failf("importing: %v", err)
	}
	if err := SaveStore(s); err != nil {
		return failf("saving ledger: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Imported %d transaction(s) from %s.\n", s.Len(), c.db)
	return subcommands.ExitSuccess
}
