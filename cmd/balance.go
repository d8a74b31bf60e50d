package cmd

import (
	"context"
	"flag"

	"github.com/etnz/cashbook/date"
	"github.com/etnz/cashbook/renderer"
	"github.com/google/subcommands"
)

// balanceCmd holds the flags for the 'balance' subcommand.
type balanceCmd struct {
	date string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "display the balance of every account" }
func (*balanceCmd) Usage() string {
	return `cbk balance [-d <date>]

  Displays the balance of every account at the end of a given day, or after
  every transaction when no date is given. Accounts below their alert
  threshold are flagged.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date of the balances. Defaults to the latest balances.")
}

func (c *balanceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := date.Parse(c.date)
	if err != nil {
		return failf("parsing date: %v", err)
	}
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	printMarkdown(renderer.RenderBalances(renderer.NewBalances(s, on)))
	return subcommands.ExitSuccess
}
