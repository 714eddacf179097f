package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

func init() {
	Register("postgres", func(logger *slog.Logger) Adapter { return NewPostgresAdapter(logger) }, "postgresql", "pg")
}

// PostgresAdapter implements the Adapter interface for PostgreSQL through
// pgx. The engine's ? placeholders are rewritten to $n.
type PostgresAdapter struct {
	BaseSQLAdapter
}

// NewPostgresAdapter creates a new PostgreSQL adapter instance.
func NewPostgresAdapter(logger *slog.Logger) *PostgresAdapter {
	return &PostgresAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger, Placeholder: Dollar}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *PostgresAdapter) DialectName() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *PostgresAdapter) Connect(ctx context.Context, cfg Config) error {
	connCfg, err := pgx.ParseConfig(buildPostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("invalid postgres config: %w", err)
	}

	a.logger().Debug("connecting to postgres", slog.String("host", connCfg.Host), slog.String("database", connCfg.Database))

	if a.DB, err = open(ctx, stdlib.OpenDB(*connCfg), "postgres"); err != nil {
		return err
	}
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

var _ Adapter = (*PostgresAdapter)(nil)
