package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/ledger"
)

type reportCmd struct {
	db    dbFlags
	month string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print a user's daily totals for a month" }
func (*reportCmd) Usage() string {
	return `contictl report -user <id> [-month YYYY-MM] [-db <path>]

  Prints the daily expense and income totals of a month, current month by default.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.db.setFlags(f, true)
	f.StringVar(&c.month, "month", "", "Month to report on, YYYY-MM (defaults to the current month)")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.db.checkUser(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	month := core.MonthOf(time.Now())
	if c.month != "" {
		m, err := core.ParseMonth(c.month)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		month = m
	}

	repo, err := c.db.open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer repo.Close()

	report, err := ledger.NewReporter(repo).MonthlyReport(ctx, c.db.user, month)
	if errors.Is(err, core.ErrNoActivity) {
		fmt.Fprintf(stdout, "No operations in %s.\n", month)
		return subcommands.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building report: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(stdout, "Report for %s\n", month)
	printSeries("Expenses", report.Expense)
	printSeries("Income", report.Income)
	return subcommands.ExitSuccess
}

func printSeries(title string, series []core.DailyAmount) {
	fmt.Fprintf(stdout, "\n%s\n", title)
	if len(series) == 0 {
		fmt.Fprintln(stdout, "  none")
		return
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	total := decimal.Zero
	for _, p := range series {
		fmt.Fprintf(w, "  %s\t%s\t\n", p.Date, p.Amount)
		total = total.Add(p.Amount.Decimal())
	}
	fmt.Fprintf(w, "  total\t%s\t\n", total.StringFixed(2))
	w.Flush()
}
