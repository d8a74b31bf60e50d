package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/renderer"
	"github.com/google/subcommands"
)

// viewCmd lists the transactions selected by a filter.
type viewCmd struct {
	filterFlags
	sort string
	save string
}

func (*viewCmd) Name() string     { return "view" }
func (*viewCmd) Synopsis() string { return "list the transactions matching a filter" }
func (*viewCmd) Usage() string {
	return `cbk view [-filter <name>] [criteria...] [-sort <key>] [-save <name>]

  Lists the transactions matching the criteria, with the balance of the
  selected accounts. A transaction matches when one of its entries, the
  transaction itself, one of its parts or the remainder of a split, meets
  every criterion.

  Criteria given on the command line refine the saved filter given with
  -filter. Use -save to store the resulting filter under a name.

Usage Examples:
# Unchecked card expenses of the checking account.
$ cbk view -accounts checking -modes card -kind expenses -state unchecked

# Groceries over 50, by amount.
$ cbk view -categories food -min 50 -sort amount
`
}

func (c *viewCmd) SetFlags(f *flag.FlagSet) {
	c.filterFlags.register(f)
	f.StringVar(&c.sort, "sort", cashbook.ByDate.String(), "Sort key: date, value-date, account, category, mode, amount or description.")
	f.StringVar(&c.save, "save", "", "Save the filter under this name.")
}

func (c *viewCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key, err := cashbook.ParseSortKey(c.sort)
	if err != nil {
		return failf("%v", err)
	}
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	filter, err := c.filter(s)
	if err != nil {
		return failf("invalid criteria: %v", err)
	}

	if c.save != "" {
		if err := s.SaveFilter(c.save, filter); err != nil {
			return failf("saving filter: %v", err)
		}
		if err := SaveStore(s); err != nil {
			return failf("saving ledger: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Filter %q saved.\n", c.save)
	}

	v := cashbook.NewView(s, filter, cashbook.WithSortKey(key))
	defer v.Close()
	title := "Transactions"
	if c.named != "" {
		title = c.named
	}
	printMarkdown(renderer.RenderView(renderer.NewViewReport(title, v)))
	return subcommands.ExitSuccess
}
