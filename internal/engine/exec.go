package engine

import (
	"context"
	"time"

	"github.com/leapstack-labs/dynsql/internal/adapter"
)

// Exec executes a rendered statement that doesn't return rows.
func (e *Engine) Exec(ctx context.Context, stmt *Statement) (*adapter.Result, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := e.db.Exec(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		e.logger.Error("statement failed", "name", stmt.Name, "error", err)
		return nil, err
	}

	e.logger.Info("executed statement",
		"name", stmt.Name,
		"args", len(stmt.Args),
		"rows_affected", res.RowsAffected,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// Query executes a rendered statement and returns its rows.
// Callers must close (or Collect) the rows.
func (e *Engine) Query(ctx context.Context, stmt *Statement) (*adapter.Rows, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	rows, err := e.db.Query(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		e.logger.Error("query failed", "name", stmt.Name, "error", err)
		return nil, err
	}

	e.logger.Info("executed query", "name", stmt.Name, "args", len(stmt.Args))
	return rows, nil
}

// ExecTemplate renders src with params and executes it.
func (e *Engine) ExecTemplate(ctx context.Context, src string, params map[string]any) (*adapter.Result, error) {
	stmt, err := e.Render(src, params)
	if err != nil {
		return nil, err
	}
	return e.Exec(ctx, stmt)
}

// QueryTemplate renders src with params and runs it as a query.
func (e *Engine) QueryTemplate(ctx context.Context, src string, params map[string]any) (*adapter.Rows, error) {
	stmt, err := e.Render(src, params)
	if err != nil {
		return nil, err
	}
	return e.Query(ctx, stmt)
}
