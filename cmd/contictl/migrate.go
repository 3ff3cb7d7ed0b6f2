package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"conti/internal/config"
	"conti/internal/storage"
)

type migrateCmd struct {
	db dbFlags
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `contictl migrate [-db <path>]

  Creates the ledger database if needed and brings its schema up to date.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	c.db.setFlags(f, false)
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Config{DataBackend: config.BackendSQLite, SQLiteDBPath: c.db.path}
	if err := cfg.EnsureDataDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := storage.RunMigrations(c.db.path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	version, dirty, err := storage.SchemaVersion(c.db.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading schema version: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(stdout, "✅ Schema at version %d (dirty=%v) in %s\n", version, dirty, c.db.path)
	return subcommands.ExitSuccess
}
