package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDBAdapter(logger) }, "duck")
}

// DuckDBAdapter implements the Adapter interface for DuckDB.
type DuckDBAdapter struct {
	BaseSQLAdapter
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
func NewDuckDBAdapter(logger *slog.Logger) *DuckDBAdapter {
	return &DuckDBAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger, Placeholder: Question}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *DuckDBAdapter) DialectName() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the database for an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Database
	if path == ":memory:" {
		path = ""
	}

	a.logger().Debug("connecting to duckdb", slog.String("path", cfg.Database))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if a.DB, err = open(ctx, db, "duckdb"); err != nil {
		return err
	}
	a.Cfg = cfg
	return nil
}

var _ Adapter = (*DuckDBAdapter)(nil)
