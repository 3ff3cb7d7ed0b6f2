package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"conti/internal/ledger"
)

type balanceCmd struct {
	db dbFlags
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print a user's balance" }
func (*balanceCmd) Usage() string {
	return `contictl balance -user <id> [-db <path>]

  Prints the net balance, total income and total expense of a user.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	c.db.setFlags(f, true)
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	b, err := ledger.NewReporter(repo).Balance(ctx, c.db.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing balance: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(stdout, "Balance: %s\nIncome:  %s\nExpense: %s\n", b.Net, b.Income, b.Expense)
	return subcommands.ExitSuccess
}
