package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/subcommands"
)

// queryCmd evaluates a JSONPath expression on the lines of the ledger file.
type queryCmd struct {
	command string
}

func (*queryCmd) Name() string     { return "query" }
func (*queryCmd) Synopsis() string { return "extract values from the ledger file with JSONPath" }
func (*queryCmd) Usage() string {
	return `cbk query [-command <command>] <jsonpath>

  Evaluates a JSONPath expression on every line of the ledger file and prints
  the results as JSON, one per line. Lines where the path does not resolve
  are skipped.

Usage Examples:
# Amounts of the transactions.
$ cbk query -command tx '$.amount'

# Descriptions of the parts of split transactions.
$ cbk query -command tx '$.subs[*].description'
`
}

func (c *queryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.command, "command", "", "Only query lines of this command (ledger, account, tx, recurring...).")
}

// query evaluates path on every JSON line of r whose command is command, or
// on every line when command is empty.
func query(r io.Reader, path, command string) ([]any, error) {
	var results []any
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if command != "" && obj["command"] != command {
			continue
		}
		v, err := jsonpath.Get(path, obj)
		if err != nil {
			// unresolved paths are expected on heterogeneous lines.
			continue
		}
		if list, ok := v.([]any); ok {
			results = append(results, list...)
		} else {
			results = append(results, v)
		}
	}
	return results, scanner.Err()
}

func (c *queryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expecting a single JSONPath expression.")
		return subcommands.ExitUsageError
	}
	file, err := os.Open(LedgerFile())
	if err != nil {
		return failf("%v", err)
	}
	defer file.Close()

	results, err := query(file, f.Arg(0), c.command)
	if err != nil {
		return failf("%v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, v := range results {
		if err := enc.Encode(v); err != nil {
			return failf("%v", err)
		}
	}
	return subcommands.ExitSuccess
}
