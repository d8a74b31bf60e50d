package cmd

import (
	"flag"
	"io"
	"os"

	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// storeNames predicts names read from the ledger file.
func storeNames(names func(s *cashbook.Store) []string) complete.Predictor {
	return complete.PredictFunc(func(prefix string) []string {
		f, err := os.Open(LedgerFile())
		if err != nil {
			return nil
		}
		defer f.Close()
		s, _ := cashbook.DecodeStore(f)
		if s == nil {
			return nil
		}
		return names(s)
	})
}

var (
	predictAccounts = storeNames(func(s *cashbook.Store) []string {
		var names []string
		for _, a := range s.Accounts() {
			names = append(names, a.Name())
		}
		return names
	})
	predictCategories = storeNames(func(s *cashbook.Store) []string {
		var names []string
		for _, c := range s.Categories() {
			names = append(names, c.Name())
		}
		return names
	})
	predictFilters = storeNames((*cashbook.Store).FilterNames)
	predictTopics  = complete.PredictFunc(func(string) []string {
		topics, _ := docs.List()
		return topics
	})
)

// flagPredictors maps flag names to their predictor. Unlisted flags predict
// anything.
var flagPredictors = map[string]complete.Predictor{
	"ledger-file": predict.Files("*.jsonl"),
	"currency":    predict.Set{"EUR", "USD", "GBP", "CHF", "JPY"},
	"v":           predict.Nothing,
	"a":           predictAccounts,
	"accounts":    predictAccounts,
	"c":           predictCategories,
	"categories":  predictCategories,
	"filter":      predictFilters,
	"remove":      predict.Nothing,
	"cheque":      predict.Nothing,
	"add":         predict.Nothing,
	"db":          predict.Files("*.db"),
	"export":      predict.Files("*.yaml"),
	"import":      predict.Files("*.yaml"),
	"kind":        predict.Set{"expenses", "receipts", "both"},
	"state":       predict.Set{"checked", "unchecked", "both"},
	"period":      predict.Set{"day", "week", "month", "quarter", "year"},
	"sort":        predict.Set{"date", "value-date", "account", "category", "mode", "amount", "description"},
	"command":     predict.Set{"ledger", "category", "account", "mode", "checkbook", "tx", "recurring", "filter"},
}

func predictFlags(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if p, ok := flagPredictors[f.Name]; ok {
			flags[f.Name] = p
		} else {
			flags[f.Name] = predict.Something
		}
	})
	return flags
}

// Completion returns the shell completion tree of cbk: global flags and every
// subcommand with its own flags.
func Completion(global *flag.FlagSet) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictFlags(global),
	}
	for _, c := range Commands {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		c.SetFlags(fs)
		sub := &complete.Command{Flags: predictFlags(fs)}
		switch c.Name() {
		case "category":
			sub.Args = predictCategories
		case "topic":
			sub.Args = predictTopics
		}
		root.Sub[c.Name()] = sub
	}
	// subcommands built-ins.
	root.Sub["help"] = &complete.Command{Args: predict.Set(commandNames())}
	root.Sub["flags"] = &complete.Command{Args: predict.Set(commandNames())}
	root.Sub["commands"] = &complete.Command{}
	return root
}

func commandNames() []string {
	var names []string
	for _, c := range Commands {
		names = append(names, c.Name())
	}
	return names
}
