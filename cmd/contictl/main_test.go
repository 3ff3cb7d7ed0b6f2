package main

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"

	"conti/internal/core"
	"conti/internal/storage"
)

// run parses args into cmd's flags and executes it, capturing stdout.
func run(t *testing.T, cmd subcommands.Command, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	status := cmd.Execute(context.Background(), fs)
	return buf.String(), status
}

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conti.db")
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()

	records := []core.Record{
		{UserID: 1, Kind: core.Income, Amount: core.Money{Cents: 100000}, Category: "salary", OccurredOn: core.NewDate(2024, 5, 1)},
		{UserID: 1, Kind: core.Expense, Amount: core.Money{Cents: 2550}, Category: "food", OccurredOn: core.NewDate(2024, 5, 3)},
		{UserID: 1, Kind: core.Expense, Amount: core.Money{Cents: 1000}, Category: "bus", OccurredOn: core.NewDate(2024, 5, 3)},
		{UserID: 2, Kind: core.Expense, Amount: core.Money{Cents: 999}, Category: "other", OccurredOn: core.NewDate(2024, 5, 3)},
	}
	for _, r := range records {
		if _, err := repo.Insert(context.Background(), r); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	return path
}

func TestBalanceCmd(t *testing.T) {
	path := seed(t)

	out, status := run(t, &balanceCmd{}, "-db", path, "-user", "1")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	want := "Balance: 964.50\nIncome:  1000.00\nExpense: 35.50\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	if _, status := run(t, &balanceCmd{}, "-db", path); status != subcommands.ExitUsageError {
		t.Errorf("missing -user status = %v", status)
	}
	if _, status := run(t, &balanceCmd{}, "-db", filepath.Join(t.TempDir(), "missing.db"), "-user", "1"); status != subcommands.ExitFailure {
		t.Errorf("missing db status = %v", status)
	}
}

func TestReportCmd(t *testing.T) {
	path := seed(t)

	out, status := run(t, &reportCmd{}, "-db", path, "-user", "1", "-month", "2024-05")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	for _, want := range []string{"Report for 2024-05", "2024-05-03", "35.50", "2024-05-01", "1000.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, status = run(t, &reportCmd{}, "-db", path, "-user", "1", "-month", "2024-06")
	if status != subcommands.ExitSuccess || out != "No operations in 2024-06.\n" {
		t.Errorf("empty month: status=%v out=%q", status, out)
	}

	if _, status := run(t, &reportCmd{}, "-db", path, "-user", "1", "-month", "May"); status != subcommands.ExitUsageError {
		t.Errorf("bad month status = %v", status)
	}
}

func TestHistoryCmd(t *testing.T) {
	path := seed(t)

	out, status := run(t, &historyCmd{}, "-db", path, "-user", "1")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{
		"3. 2024-05-03 -10.00 (bus)",
		"2. 2024-05-03 -25.50 (food)",
		"1. 2024-05-01 +1000.00 (salary)",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	out, _ = run(t, &historyCmd{}, "-db", path, "-user", "42")
	if out != "History is empty.\n" {
		t.Errorf("empty history = %q", out)
	}
}

func TestMigrateCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "conti.db")

	out, status := run(t, &migrateCmd{}, "-db", path)
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	if !strings.Contains(out, "Schema at version 1") {
		t.Errorf("output = %q", out)
	}

	// Idempotent.
	if _, status := run(t, &migrateCmd{}, "-db", path); status != subcommands.ExitSuccess {
		t.Fatalf("second migrate status = %v", status)
	}
}
