// Package cmd implements the cbk command line application to manage a cash book.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/cashbook"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Environment variables used as defaults for the global flags.
const (
	EnvLedgerFile = "CBK_LEDGER_FILE"
	EnvCurrency   = "CBK_CURRENCY"
	EnvVerbose    = "CBK_VERBOSE"
)

const (
	defaultLedgerFile = "cashbook.jsonl"
	defaultCurrency   = "EUR"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var ledgerFile = flag.String("ledger-file", "", "Path to the ledger file (JSONL format). Defaults to $"+EnvLedgerFile+" or "+defaultLedgerFile)
var currency = flag.String("currency", "", "Currency of a new ledger. Defaults to $"+EnvCurrency+" or "+defaultCurrency)
var verbose = flag.Bool("v", false, "Log debug traces to stderr. Also enabled by $"+EnvVerbose)

// Commands lists every cbk subcommand.
var Commands = []subcommands.Command{
	&balanceCmd{},
	&timelineCmd{},
	&statementsCmd{},
	&viewCmd{},
	&alertsCmd{},
	&accountCmd{},
	&categoryCmd{},
	&txCmd{},
	&recurCmd{},
	&fmtCmd{},
	&queryCmd{},
	&filtersCmd{},
	&exportSQLiteCmd{},
	&importSQLiteCmd{},
	&topicCmd{},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands {
		c.Register(cmd, group(cmd.Name()))
	}
}

func group(name string) string {
	switch name {
	case "account", "category", "tx", "recur", "fmt", "filters":
		return "edition"
	case "query", "export-sqlite", "import-sqlite":
		return "data"
	case "topic":
		return "help"
	default:
		return "reports"
	}
}

// LoadEnv loads environment variables from a dotenv file. A missing file is
// not an error; variables already set are kept.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setting returns the flag value when set, otherwise the environment variable,
// otherwise def.
func setting(flagValue, env, def string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// LedgerFile returns the path of the ledger file.
func LedgerFile() string { return setting(*ledgerFile, EnvLedgerFile, defaultLedgerFile) }

// Currency returns the currency of a new ledger.
func Currency() (cashbook.Currency, error) {
	return cashbook.NewCurrency(setting(*currency, EnvCurrency, defaultCurrency))
}

// Verbose reports whether debug traces are enabled.
func Verbose() bool {
	if *verbose {
		return true
	}
	v, _ := strconv.ParseBool(os.Getenv(EnvVerbose))
	return v
}

var logger *zap.Logger

// Logger returns the application logger: a development logger in verbose
// mode, a no-op one otherwise.
func Logger() *zap.Logger {
	if logger != nil {
		return logger
	}
	logger = zap.NewNop()
	if Verbose() {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	return logger
}

// OpenStore is the central function to open the ledger file. A missing file
// yields an empty store in the configured currency.
//
// Lines of the file that could not be applied are reported on stderr and
// skipped.
func OpenStore() (*cashbook.Store, error) {
	name := LedgerFile()
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		Logger().Info("ledger file does not exist, starting an empty ledger", zap.String("file", name))
		cur, err := Currency()
		if err != nil {
			return nil, err
		}
		return cashbook.NewStore(cur, cashbook.WithLogger(Logger())), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := cashbook.DecodeStore(f, cashbook.WithLogger(Logger()))
	if s == nil {
		return nil, fmt.Errorf("could not load ledger %q: %w", name, err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: some lines of %q were skipped:\n%v\n", name, err)
	}
	return s, nil
}

// SaveStore writes s to the ledger file, replacing it atomically.
func SaveStore(s *cashbook.Store) error {
	name := LedgerFile()
	tmp, err := os.CreateTemp(filepath.Dir(name), ".cbk-*.jsonl")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := cashbook.EncodeStore(tmp, s); err != nil {
		tmp.Close()
		return fmt.Errorf("could not encode ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("could not replace ledger %q: %w", name, err)
	}
	Logger().Debug("ledger saved", zap.String("file", name), zap.Int("transactions", s.Len()))
	return nil
}

// printMarkdown renders md for the terminal, or prints it raw when it cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	Logger().Debug("could not render markdown", zap.Error(err))
	fmt.Print(md)
}

// failf prints an error message and returns the failure status.
func failf(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
