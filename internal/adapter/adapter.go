// Package adapter executes rendered dynamic SQL against a database through
// database/sql, binding each dynamic.SQLArg through its type handler.
package adapter

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
)

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type specifies the database type (e.g., "sqlite", "postgres")
	Type string

	// Database is the database name, or the file path for file-based
	// databases (sqlite, duckdb). Use ":memory:" for in-memory databases.
	Database string

	// Host is the hostname for network-based databases
	Host string

	// Port is the port number for network-based databases
	Port int

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Options contains additional driver-specific options
	Options map[string]string
}

// Result describes the outcome of an Exec.
type Result struct {
	RowsAffected int64
	LastInsertID int64

	// Out holds values written back into OUT and INOUT arguments,
	// keyed by the argument name (or expression when unnamed)
	Out map[string]any
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Collect reads every remaining row and closes rows. Byte slices are
// returned as strings.
func (r *Rows) Collect() ([]string, [][]any, error) {
	defer func() { _ = r.Close() }()

	columns, err := r.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var data [][]any
	for r.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := r.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := r.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return columns, data, nil
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a statement that doesn't return rows (e.g., INSERT, UPDATE, CALL).
	Exec(ctx context.Context, sql string, args []*dynamic.SQLArg) (*Result, error)

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string, args []*dynamic.SQLArg) (*Rows, error)

	// DialectName returns the SQL dialect name for this adapter (e.g., "sqlite", "postgres").
	DialectName() string
}
