package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cashbook"
	"github.com/google/subcommands"
)

type categoryCmd struct {
	rename string
	remove bool
}

func (*categoryCmd) Name() string     { return "category" }
func (*categoryCmd) Synopsis() string { return "list, create, rename or remove categories" }
func (*categoryCmd) Usage() string {
	return `cbk category [<name> [-rename <new name>] [-remove]]

  Without argument, lists the categories. Otherwise creates the category when
  it does not exist, or renames or removes it. Removing a category leaves the
  transactions using it without category.
`
}

func (c *categoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rename, "rename", "", "New name of the category.")
	f.BoolVar(&c.remove, "remove", false, "Remove the category.")
}

func (c *categoryCmd) apply(s *cashbook.Store, name string) error {
	cat := s.CategoryByName(name)
	switch {
	case cat == nil && (c.remove || c.rename != ""):
		return fmt.Errorf("unknown category %q", name)
	case cat == nil:
		_, err := s.AddCategory(name)
		return err
	case c.remove:
		return s.RemoveCategory(cat)
	case c.rename != "":
		return s.RenameCategory(cat, c.rename)
	default:
		return fmt.Errorf("category %q already exists", name)
	}
}

func (c *categoryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore()
	if err != nil {
		return failf("loading ledger: %v", err)
	}
	if f.NArg() == 0 {
		for _, cat := range s.Categories() {
			fmt.Println(cat.Name())
		}
		return subcommands.ExitSuccess
	}
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: expecting a single category name.")
		return subcommands.ExitUsageError
	}
	if err := c.apply(s, f.Arg(0)); err != nil {
		return failf("%v", err)
	}
	if err := SaveStore(s); err != nil {
		return failf("saving ledger: %v", err)
	}
	return subcommands.ExitSuccess
}
