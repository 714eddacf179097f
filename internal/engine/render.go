package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	"github.com/leapstack-labs/dynsql/pkg/template"
)

// Statement is a rendered template ready for execution.
type Statement struct {
	Name string            `json:"name,omitempty"`
	SQL  string            `json:"sql"`
	Args []*dynamic.SQLArg `json:"-"`
}

// Values returns the raw argument values in placeholder order.
func (s *Statement) Values() []any { return dynamic.ArgValues(s.Args) }

// Request names one template to render.
type Request struct {
	// Name labels the statement (a file path or macro name)
	Name string
	// Source is the template text
	Source string
	// Params is the parameter scope
	Params map[string]any
}

// Render builds src with params through the plan cache.
func (e *Engine) Render(src string, params map[string]any) (*Statement, error) {
	sql, args, err := e.dynamic.Render(src, dynamic.NewScope(params), nil)
	if err != nil {
		return nil, err
	}
	return &Statement{SQL: sql, Args: args}, nil
}

// RenderFile renders the template stored at path. Errors carry the file
// name in their positions.
func (e *Engine) RenderFile(path string, params map[string]any) (*Statement, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	tpl, err := template.Parse(string(content), filepath.Base(path))
	if err != nil {
		return nil, err
	}

	sql, args, err := e.dynamic.BuildQuery(tpl, dynamic.NewScope(params), nil)
	if err != nil {
		return nil, err
	}
	return &Statement{Name: path, SQL: sql, Args: args}, nil
}

// RenderMacro renders the named macro as a whole statement.
func (e *Engine) RenderMacro(name string, params map[string]any) (*Statement, error) {
	body, ok := e.macros.FindMacro(name)
	if !ok {
		return nil, &dynamic.MacroNotFoundError{Name: name}
	}
	stmt, err := e.Render(body, params)
	if err != nil {
		return nil, err
	}
	stmt.Name = name
	return stmt, nil
}

// RenderAll renders requests concurrently, preserving their order.
// The first failure cancels the remaining work and is returned.
func (e *Engine) RenderAll(ctx context.Context, reqs []Request) ([]*Statement, error) {
	out := make([]*Statement, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stmt, err := e.Render(req.Source, req.Params)
			if err != nil {
				return fmt.Errorf("render %s: %w", req.Name, err)
			}
			stmt.Name = req.Name
			out[i] = stmt
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("rendered batch", "count", len(reqs))
	return out, nil
}
