// Package engine wires the dynamic SQL rule engine to its collaborators:
// Starlark expression evaluation, the macro directory and a database adapter.
// It renders templates into statements and executes them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/dynsql/internal/adapter"
	"github.com/leapstack-labs/dynsql/internal/macro"
	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	starctx "github.com/leapstack-labs/dynsql/pkg/starlark"
)

// Engine renders and executes dynamic SQL templates.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	// Structured logger
	logger *slog.Logger

	dynamic     *dynamic.Engine
	evaluator   dynamic.Evaluator
	macros      *macro.Registry
	macrosDir   string
	environment string
	concurrency int
}

// Config holds engine configuration.
type Config struct {
	// MacrosDir is the path to the macros directory (optional)
	MacrosDir string
	// Environment is the current environment (dev, staging, prod)
	Environment string
	// Target contains adapter/database configuration
	Target *adapter.Config
	// Globals are extra read-only names visible to expressions
	Globals map[string]any
	// ThreadPool bounds idle Starlark threads (starlark.DefaultPoolSize if zero)
	ThreadPool int
	// DisableCache parses templates on every render
	DisableCache bool
	// Concurrency bounds RenderAll workers (DefaultConcurrency if zero)
	Concurrency int
	// Evaluator replaces the Starlark evaluator (optional)
	Evaluator dynamic.Evaluator
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// DefaultConcurrency is the RenderAll worker limit.
const DefaultConcurrency = 8

// New creates a new engine with lazy database connection.
// The database adapter is only connected when Exec or Query is called.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	env := cfg.Environment
	if env == "" {
		env = "dev"
	}

	dbConfig := adapter.Config{Type: "sqlite", Database: ":memory:"}
	if cfg.Target != nil {
		dbConfig = *cfg.Target
	}
	if dbConfig.Type == "" {
		dbConfig.Type = "sqlite"
	}

	logger.Debug("initializing engine", "macros_dir", cfg.MacrosDir, "environment", env, "target", dbConfig.Type)

	macros := macro.NewRegistry()
	if cfg.MacrosDir != "" {
		var err error
		if macros, err = macro.Load(cfg.MacrosDir); err != nil {
			return nil, fmt.Errorf("failed to load macros: %w", err)
		}
		logger.Debug("loaded macros", "count", macros.Len())
	}

	evaluator := cfg.Evaluator
	if evaluator == nil {
		ev, err := starctx.New(starctx.Config{
			Env:      env,
			Target:   &starctx.TargetInfo{Type: dbConfig.Type, Database: dbConfig.Database},
			Globals:  cfg.Globals,
			PoolSize: cfg.ThreadPool,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create evaluator: %w", err)
		}
		evaluator = ev
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Engine{
		dbConfig:    dbConfig,
		logger:      logger,
		evaluator:   evaluator,
		macros:      macros,
		macrosDir:   cfg.MacrosDir,
		environment: env,
		concurrency: concurrency,
		dynamic: dynamic.New(dynamic.Config{
			Evaluator:    evaluator,
			Macros:       macros,
			DisableCache: cfg.DisableCache,
			Logger:       logger,
		}),
	}, nil
}

// NewWithAdapter creates an engine that executes on an already connected adapter.
func NewWithAdapter(cfg Config, db adapter.Adapter) (*Engine, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	e.db = db
	e.dbConnected = true
	return e, nil
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}

	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true

	e.logger.Debug("database connected", "dialect", db.DialectName())
	return nil
}

// WatchMacros reloads the macro registry on file changes until ctx is done.
func (e *Engine) WatchMacros(ctx context.Context) error {
	if e.macrosDir == "" {
		return errors.New("no macros directory configured")
	}
	return macro.NewWatcher(e.macrosDir, e.macros, e.logger).Run(ctx)
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	e.dbMu.Lock()
	defer e.dbMu.Unlock()
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			return fmt.Errorf("errors closing engine: %w", err)
		}
	}
	return nil
}

// --- Getters (public accessors) ---

// Dynamic returns the underlying rule engine.
func (e *Engine) Dynamic() *dynamic.Engine { return e.dynamic }

// Macros returns the macro registry.
func (e *Engine) Macros() *macro.Registry { return e.macros }

// Environment returns the configured environment name.
func (e *Engine) Environment() string { return e.environment }

// Target returns the adapter configuration.
func (e *Engine) Target() adapter.Config { return e.dbConfig }
