package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type fmtCmd struct{}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `cbk fmt

  Validates and formats the ledger file. Lines referencing unknown accounts,
  modes or categories are reported and dropped. The ledger is written back
  in canonical JSONL form: categories by name, accounts in order with their
  modes and check-books, transactions, recurring templates and filters.
`
}

func (*fmtCmd) SetFlags(f *flag.FlagSet) {}

func (*fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore()
	if err != nil {
		return failf("could not load ledger: %v", err)
	}
	if err := SaveStore(s); err != nil {
		return failf("could not save ledger: %v", err)
	}
	fmt.Fprintf(os.Stderr, "✅ Successfully formatted %s.\n", LedgerFile())
	return subcommands.ExitSuccess
}
