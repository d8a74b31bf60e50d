package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/etnz/cashbook"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// accountCmd creates and edits accounts, their payment modes and check-books.
type accountCmd struct {
	name      string
	initial   string
	alert     string
	rename    string
	remove    bool
	mode      string
	cheque    bool
	checkBook string
}

func (*accountCmd) Name() string     { return "account" }
func (*accountCmd) Synopsis() string { return "create or edit an account" }
func (*accountCmd) Usage() string {
	return `cbk account -a <name> [-initial <amount>] [-alert <amount>|none] [-rename <name>]
            [-mode <name> [-cheque]] [-checkbook <prefix>:<first>:<count>] [-remove]

  Creates the account when it does not exist, then applies the changes.

Usage Examples:
# A checking account with 1000 on it, alerting below zero, paid by cheque.
$ cbk account -a Checking -initial 1000 -alert 0 -mode cheque -cheque -checkbook CH:1001:25
`
}

func (c *accountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "a", "", "Account name.")
	f.StringVar(&c.initial, "initial", "", "Initial balance.")
	f.StringVar(&c.alert, "alert", "", "Alert when the balance falls below this amount, 'none' to disable.")
	f.StringVar(&c.rename, "rename", "", "New name of the account.")
	f.BoolVar(&c.remove, "remove", false, "Remove the account with its transactions.")
	f.StringVar(&c.mode, "mode", "", "Add a payment mode.")
	f.BoolVar(&c.cheque, "cheque", false, "The added payment mode consumes check-book numbers.")
	f.StringVar(&c.checkBook, "checkbook", "", "Add a check-book as <prefix>:<first>:<count>.")
}

// parseCheckBook parses <prefix>:<first>:<count>.
func parseCheckBook(v string) (*cashbook.CheckBook, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid check-book %q, want <prefix>:<first>:<count>", v)
	}
	first, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid first number in %q: %w", v, err)
	}
	count, err := strconv.Atoi(parts[2])
	if err != nil || count <= 0 {
		return nil, fmt.Errorf("invalid count in %q", v)
	}
	return cashbook.NewCheckBook(parts[0], first, count), nil
}

func (c *accountCmd) apply(s *cashbook.Store) error {
	a := s.AccountByName(c.name)
	if c.remove {
		if a == nil {
			return fmt.Errorf("unknown account %q", c.name)
		}
		return s.RemoveAccount(a)
	}

	if a == nil {
		initial := decimal.Zero
		if c.initial != "" {
			var err error
			if initial, err = decimal.NewFromString(c.initial); err != nil {
				return fmt.Errorf("invalid initial balance: %w", err)
			}
		}
		var err error
		if a, err = s.AddAccount(c.name, initial); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Account %q created.\n", a.Name())
	} else if c.initial != "" {
		initial, err := decimal.NewFromString(c.initial)
		if err != nil {
			return fmt.Errorf("invalid initial balance: %w", err)
		}
		if err := s.SetInitialBalance(a, initial); err != nil {
			return err
		}
	}

	switch c.alert {
	case "":
	case "none":
		if err := s.SetAlert(a, cashbook.Lifeless); err != nil {
			return err
		}
	default:
		limit, err := decimal.NewFromString(c.alert)
		if err != nil {
			return fmt.Errorf("invalid alert: %w", err)
		}
		if err := s.SetAlert(a, cashbook.AlertBelow(limit)); err != nil {
			return err
		}
	}
	if c.mode != "" {
		if err := s.AddMode(a, cashbook.NewMode(c.mode, c.cheque)); err != nil {
			return err
		}
	}
	if c.checkBook != "" {
		cb, err := parseCheckBook(c.checkBook)
		if err != nil {
			return err
		}
		if err := s.AddCheckBook(a, cb); err != nil {
			return err
		}
	}
	if c.rename != "" {
		return s.RenameAccount(a, c.rename)
	}
	return nil
}

func (c *accountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Fprintln(os.Stderr, "Error: -a is required.")
		return subcommands.ExitUsageError
	}
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	// the ledger is only saved when every change applies.
	if err := s.Batch(func() error { return c.apply(s) }); err != nil {
		return failf("%v", err)
	}
	if err := SaveStore(s); err != nil {
		return failf("saving ledger: %v", err)
	}
	return subcommands.ExitSuccess
}
