package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"conti/internal/ledger"
)

type historyCmd struct {
	db dbFlags
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list a user's records, newest first" }
func (*historyCmd) Usage() string {
	return `contictl history -user <id> [-db <path>]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	c.db.setFlags(f, true)
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.db.checkUser(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	repo, err := c.db.open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer repo.Close()

	records, err := ledger.NewService(repo, nil).History(ctx, c.db.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing records: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "History is empty.")
		return subcommands.ExitSuccess
	}
	for _, r := range records {
		fmt.Fprintln(stdout, r.Line())
	}
	return subcommands.ExitSuccess
}
