package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cashbook"
	"github.com/google/subcommands"
)

// filtersCmd lists, exports and imports the named filters.
type filtersCmd struct {
	export string
	load   string
	remove string
}

func (*filtersCmd) Name() string     { return "filters" }
func (*filtersCmd) Synopsis() string { return "list, export, import or remove saved filters" }
func (*filtersCmd) Usage() string {
	return `cbk filters [-export <file>|-import <file>|-remove <name>]

  Without flags, lists the names of the saved filters. Filters are exported
  and imported as YAML; '-' is the standard output or input. Imported filters
  replace the saved filters of the same name.
`
}

func (c *filtersCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.export, "export", "", "Write the saved filters to this YAML file.")
	f.StringVar(&c.load, "import", "", "Read filters from this YAML file.")
	f.StringVar(&c.remove, "remove", "", "Remove the saved filter of this name.")
}

func (c *filtersCmd) exportTo(s *cashbook.Store) error {
	if c.export == "-" {
		return cashbook.EncodeFilters(os.Stdout, s)
	}
	f, err := os.Create(c.export)
	if err != nil {
		return err
	}
	if err := cashbook.EncodeFilters(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *filtersCmd) importFrom(s *cashbook.Store) error {
	if c.load == "-" {
		return cashbook.DecodeFilters(os.Stdin, s)
	}
	f, err := os.Open(c.load)
	if err != nil {
		return err
	}
	defer f.Close()
	return cashbook.DecodeFilters(f, s)
}

func (c *filtersCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	switch {
	case c.export != "":
		if err := c.exportTo(s); err != nil {
			return failf("exporting filters: %v", err)
		}
		return subcommands.ExitSuccess

	case c.load != "":
		// valid definitions are kept even when others fail.
		if err := c.importFrom(s); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

	case c.remove != "":
		if !s.RemoveFilter(c.remove) {
			return failf("unknown filter %q", c.remove)
		}

	default:
		for _, name := range s.FilterNames() {
			fmt.Println(name)
		}
		return subcommands.ExitSuccess
	}

	if err := SaveStore(s); err != nil {
		return failf("saving ledger: %v", err)
	}
	return subcommands.ExitSuccess
}
