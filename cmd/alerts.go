package cmd

import (
	"context"
	"flag"

	"github.com/etnz/cashbook/date"
	"github.com/etnz/cashbook/renderer"
	"github.com/google/subcommands"
)

type alertsCmd struct {
	from, to string
}

func (*alertsCmd) Name() string     { return "alerts" }
func (*alertsCmd) Synopsis() string { return "find accounts falling below their alert threshold" }
func (*alertsCmd) Usage() string {
	return `cbk alerts [-from <date>] [-to <date>]

  Reports, for every account with an alert threshold, the first day in the
  range its balance falls below the threshold. The range starts today by
  default.
`
}

func (c *alertsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", date.Today().String(), "First day to check.")
	f.StringVar(&c.to, "to", "", "Last day to check. Open by default.")
}

func (c *alertsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := parseRange(c.from, c.to)
	if err != nil {
		return failf("parsing range: %v", err)
	}
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	rep := renderer.NewAlertsReport(s, r)
	printMarkdown(renderer.RenderAlerts(rep))
	if len(rep.Alerts) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
