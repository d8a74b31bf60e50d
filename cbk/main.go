// Command cbk manages a personal cash book stored as a JSONL ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/etnz/cashbook/cmd"
	"github.com/google/subcommands"
)

func main() {
	if err := cmd.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// Answers shell completion requests and exits, no-op otherwise.
	cmd.Completion(flag.CommandLine).Complete("cbk")

	flag.Parse()
	status := commander.Execute(context.Background())
	cmd.Logger().Sync()
	os.Exit(int(status))
}
