package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

func init() {
	Register("mysql", func(logger *slog.Logger) Adapter { return NewMySQLAdapter(logger) }, "mariadb")
}

// MySQLAdapter implements the Adapter interface for MySQL and MariaDB.
type MySQLAdapter struct {
	BaseSQLAdapter
}

// NewMySQLAdapter creates a new MySQL adapter instance.
func NewMySQLAdapter(logger *slog.Logger) *MySQLAdapter {
	return &MySQLAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger, Placeholder: Question}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *MySQLAdapter) DialectName() string {
	return "mysql"
}

// Connect establishes a connection to MySQL.
func (a *MySQLAdapter) Connect(ctx context.Context, cfg Config) error {
	myCfg := buildMySQLConfig(cfg)

	a.logger().Debug("connecting to mysql", slog.String("addr", myCfg.Addr), slog.String("database", myCfg.DBName))

	connector, err := mysql.NewConnector(myCfg)
	if err != nil {
		return fmt.Errorf("invalid mysql config: %w", err)
	}

	if a.DB, err = open(ctx, sql.OpenDB(connector), "mysql"); err != nil {
		return err
	}
	a.Cfg = cfg
	return nil
}

// buildMySQLConfig maps an adapter config onto the driver config.
// Options become connection parameters.
func buildMySQLConfig(cfg Config) *mysql.Config {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	myCfg := mysql.NewConfig()
	myCfg.Net = "tcp"
	myCfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	myCfg.DBName = cfg.Database
	myCfg.User = cfg.Username
	myCfg.Passwd = cfg.Password
	myCfg.ParseTime = true

	if len(cfg.Options) > 0 {
		myCfg.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			myCfg.Params[k] = v
		}
	}
	return myCfg
}

var _ Adapter = (*MySQLAdapter)(nil)
