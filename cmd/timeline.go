package cmd

import (
	"context"
	"flag"

	"github.com/etnz/cashbook/renderer"
	"github.com/google/subcommands"
)

// timelineCmd holds the flags for the 'timeline' subcommand.
type timelineCmd struct {
	account  string
	from, to string
}

func (*timelineCmd) Name() string     { return "timeline" }
func (*timelineCmd) Synopsis() string { return "display the balance history of an account" }
func (*timelineCmd) Usage() string {
	return `cbk timeline -a <account> [-from <date>] [-to <date>]

  Lists the periods of constant balance of an account, by value date.
  Periods below the alert threshold of the account are emphasized.
`
}

func (c *timelineCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account name.")
	f.StringVar(&c.from, "from", "", "Only show periods after this date.")
	f.StringVar(&c.to, "to", "", "Only show periods before this date.")
}

func (c *timelineCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := parseRange(c.from, c.to)
	if err != nil {
		return failf("parsing range: %v", err)
	}
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	a, err := findAccount(s, c.account)
	if err != nil {
		return failf("%v", err)
	}
	printMarkdown(renderer.RenderTimeline(renderer.NewTimelineReport(a.Name(), a.Timeline(), a.Alert(), r)))
	return subcommands.ExitSuccess
}
