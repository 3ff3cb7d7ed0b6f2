// Command contictl inspects and maintains the ledger database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"conti/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(&balanceCmd{}, "reports")
	c.Register(&reportCmd{}, "reports")
	c.Register(&historyCmd{}, "reports")
	c.Register(&migrateCmd{}, "maintenance")
}
