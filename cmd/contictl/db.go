package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"conti/internal/storage"
)

// Commands print here; tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// dbFlags are shared by every command reading the ledger.
type dbFlags struct {
	path string
	user int64
}

func (d *dbFlags) setFlags(f *flag.FlagSet, withUser bool) {
	def := os.Getenv("SQLITE_DB_PATH")
	if def == "" {
		def = "./data/conti.db"
	}
	f.StringVar(&d.path, "db", def, "Path to the SQLite ledger (defaults to SQLITE_DB_PATH)")
	if withUser {
		f.Int64Var(&d.user, "user", 0, "Chat user id (required)")
	}
}

func (d *dbFlags) checkUser() error {
	if d.user == 0 {
		return errors.New("-user is required")
	}
	return nil
}

// open refuses to create a database as a side effect of a read.
func (d *dbFlags) open() (*storage.SQLiteRepository, error) {
	if _, err := os.Stat(d.path); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", d.path, err)
	}
	return storage.NewSQLiteRepository(d.path)
}
