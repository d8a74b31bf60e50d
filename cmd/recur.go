package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/date"
	"github.com/google/subcommands"
)

// recurCmd manages recurring transaction templates.
type recurCmd struct {
	fieldsFlags
	add    bool
	end    string
	period string
	every  int
	until  string
}

func (*recurCmd) Name() string     { return "recur" }
func (*recurCmd) Synopsis() string { return "list, add or generate recurring transactions" }
func (*recurCmd) Usage() string {
	return `cbk recur [-until <date>]
cbk recur -add -a <account> -amount <amount> -d <first date> [-end <date>] [-period month] [-every 1] ...

  Without -add, generates the occurrences of every template due on or before
  the -until date (today by default), then lists the templates.

  With -add, creates a template from the transaction flags; -d is the date of
  its first occurrence.
`
}

func (c *recurCmd) SetFlags(f *flag.FlagSet) {
	c.fieldsFlags.register(f)
	f.BoolVar(&c.add, "add", false, "Add a template instead of generating occurrences.")
	f.StringVar(&c.end, "end", "", "Last possible date of an occurrence.")
	f.StringVar(&c.period, "period", "month", "Period between occurrences: day, week, month, quarter or year.")
	f.IntVar(&c.every, "every", 1, "Number of periods between occurrences.")
	f.StringVar(&c.until, "until", date.Today().String(), "Generate occurrences up to this date.")
}

func (c *recurCmd) addTemplate(s *cashbook.Store) error {
	model, err := c.fields(s)
	if err != nil {
		return err
	}
	p, err := date.ParsePeriod(c.period)
	if err != nil {
		return err
	}
	if c.every < 1 {
		return fmt.Errorf("invalid -every %d", c.every)
	}
	end, err := date.Parse(c.end)
	if err != nil {
		return err
	}
	r, err := cashbook.NewScheduled(model, model.Date, end, cashbook.Schedule{Period: p, Every: c.every})
	if err != nil {
		return err
	}
	return s.AddRecurring(r)
}

func (c *recurCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}

	if c.add {
		if err := c.addTemplate(s); err != nil {
			return failf("%v", err)
		}
	} else {
		until, err := date.Parse(c.until)
		if err != nil {
			return failf("parsing date: %v", err)
		}
		txs, err := s.GenerateRecurring(until)
		if err != nil {
			return failf("%v", err)
		}
		fmt.Fprintf(os.Stderr, "%d transaction(s) generated.\n", len(txs))
	}
	if err := SaveStore(s); err != nil {
		return failf("saving ledger: %v", err)
	}

	cur := s.Currency()
	for _, r := range s.Recurrings() {
		sched, _ := r.Schedule()
		next := "disabled"
		if r.IsEnabled() {
			next = r.Next().String()
		}
		fmt.Printf("%-12s %-20s %12s  every %-12s %s\n", next, r.Account().Name(), cur.Format(r.Model().Amount), sched, r.Description())
	}
	return subcommands.ExitSuccess
}
