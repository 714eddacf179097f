package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and Query implementations.
type BaseSQLAdapter struct {
	DB          *sql.DB
	Cfg         Config
	Logger      *slog.Logger
	Placeholder PlaceholderStyle
	Types       *types.Registry // resolves default handlers (types.NewRegistry() if nil)
}

// NewWithDB wraps an already open database. The adapter takes ownership of db.
func NewWithDB(db *sql.DB, style PlaceholderStyle, logger *slog.Logger) *BaseSQLAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BaseSQLAdapter{DB: db, Logger: logger, Placeholder: style}
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// Exec executes a statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args []*dynamic.SQLArg) (*Result, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	bound, outs, err := BindArgs(b.types(), args)
	if err != nil {
		return nil, err
	}

	query := Rebind(b.Placeholder, sqlStr)
	b.logger().Debug("exec", slog.String("sql", query), slog.Int("args", len(bound)))

	res, err := b.DB.ExecContext(ctx, query, bound...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SQL: %w", err)
	}

	result := &Result{}
	// drivers that cannot report these return an error; zero is fine then
	if n, err := res.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		result.LastInsertID = id
	}
	if len(outs) > 0 {
		result.Out = make(map[string]any, len(outs))
		for _, o := range outs {
			result.Out[o.Name] = *o.Dest
		}
	}
	return result, nil
}

// Query executes a statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args []*dynamic.SQLArg) (*Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	bound, _, err := BindArgs(b.types(), args)
	if err != nil {
		return nil, err
	}

	query := Rebind(b.Placeholder, sqlStr)
	b.logger().Debug("query", slog.String("sql", query), slog.Int("args", len(bound)))

	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, query, bound...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

var (
	defaultTypes  = types.NewRegistry()
	discardLogger = slog.New(slog.DiscardHandler)
)

func (b *BaseSQLAdapter) types() *types.Registry {
	if b.Types == nil {
		return defaultTypes
	}
	return b.Types
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return discardLogger
	}
	return b.Logger
}

// open opens and pings a database, closing it again when the ping fails.
func open(ctx context.Context, db *sql.DB, name string) (*sql.DB, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", name, err)
	}
	return db, nil
}
