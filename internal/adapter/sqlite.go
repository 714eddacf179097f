package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	Register("sqlite", func(logger *slog.Logger) Adapter { return NewSQLiteAdapter(logger) }, "sqlite3")
}

// SQLiteAdapter implements the Adapter interface for SQLite.
type SQLiteAdapter struct {
	BaseSQLAdapter
}

// NewSQLiteAdapter creates a new SQLite adapter instance.
func NewSQLiteAdapter(logger *slog.Logger) *SQLiteAdapter {
	return &SQLiteAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger, Placeholder: Question}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *SQLiteAdapter) DialectName() string {
	return "sqlite"
}

// Connect opens the database file named by cfg.Database.
// An empty name or ":memory:" opens an in-memory database.
func (a *SQLiteAdapter) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Database
	if path == "" {
		path = ":memory:"
	}

	a.logger().Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if a.DB, err = open(ctx, db, "sqlite"); err != nil {
		return err
	}
	a.Cfg = cfg
	return nil
}

var _ Adapter = (*SQLiteAdapter)(nil)
