package cmd

import (
	"context"
	"flag"

	"github.com/etnz/cashbook/renderer"
	"github.com/google/subcommands"
)

type statementsCmd struct {
	account string
}

func (*statementsCmd) Name() string     { return "statements" }
func (*statementsCmd) Synopsis() string { return "reconcile an account with its bank statements" }
func (*statementsCmd) Usage() string {
	return `cbk statements -a <account>

  Lists the statements of an account with their opening and closing
  balances, and the total of the transactions not checked yet.
`
}

func (c *statementsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account name.")
}

func (c *statementsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	a, err := findAccount(s, c.account)
	if err != nil {
		return failf("%v", err)
	}
	printMarkdown(renderer.RenderStatements(renderer.NewStatementsReport(s.Currency(), a)))
	return subcommands.ExitSuccess
}
