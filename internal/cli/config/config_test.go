package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a dynsql.yaml into a fresh temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dynsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// newFlags mirrors the persistent flags of the root command.
func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("target", "", "")
	flags.String("macros-dir", "", "")
	flags.String("params", "", "")
	flags.String("adapter", "", "")
	flags.String("database", "", "")
	flags.String("env", "", "")
	flags.String("log-level", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "")
	root := filepath.Dir(cfgPath)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "macros"), cfg.MacrosDir)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, ":memory:", cfg.Target.Database)
	assert.True(t, cfg.Engine.Cache)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, `
macros_dir: sql
params_file: params.yaml
output: json
log_level: info
target:
  type: sqlite
  database: app.db
engine:
  cache: false
  thread_pool: 2
  globals:
    tenant: acme
server:
  addr: ":9000"
  read_timeout: 1m
`)
	root := filepath.Dir(cfgPath)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "sql"), cfg.MacrosDir)
	assert.Equal(t, filepath.Join(root, "params.yaml"), cfg.ParamsFile)
	assert.Equal(t, filepath.Join(root, "app.db"), cfg.Target.Database)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.False(t, cfg.Engine.Cache)
	assert.Equal(t, 2, cfg.Engine.ThreadPool)
	assert.Equal(t, map[string]any{"tenant": "acme"}, cfg.Engine.Globals)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Server.ReadTimeout)
}

func TestLoadConfigWithTarget_Environments(t *testing.T) {
	content := `
environment: dev
target:
  type: postgres
  host: localhost
  database: app_dev
  user: ${DYNSQL_TEST_USER}
  options:
    sslmode: disable
environments:
  staging:
    target:
      host: staging.db
      database: app_staging
  prod:
    macros_dir: prod_macros
    target:
      host: prod.db
      database: app
      options:
        sslmode: require
`
	t.Setenv("DYNSQL_TEST_USER", "svc")

	tests := []struct {
		name       string
		override   string
		env        string
		wantHost   string
		wantDB     string
		wantSSL    string
		wantMacros string
	}{
		{name: "base target", wantHost: "localhost", wantDB: "app_dev", wantSSL: "disable", wantMacros: "macros"},
		{name: "target flag", override: "staging", wantHost: "staging.db", wantDB: "app_staging", wantSSL: "disable", wantMacros: "macros"},
		{name: "environment setting", env: "prod", wantHost: "prod.db", wantDB: "app", wantSSL: "require", wantMacros: "prod_macros"},
		{name: "target flag keeps macros", override: "prod", wantHost: "prod.db", wantDB: "app", wantSSL: "require", wantMacros: "macros"},
		{name: "unknown environment", override: "nope", wantHost: "localhost", wantDB: "app_dev", wantSSL: "disable", wantMacros: "macros"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			cfgPath := writeConfig(t, content)
			root := filepath.Dir(cfgPath)

			var flags *pflag.FlagSet
			if tt.env != "" {
				flags = newFlags()
				require.NoError(t, flags.Set("env", tt.env))
			}

			cfg, err := LoadConfigWithTarget(cfgPath, tt.override, flags)
			require.NoError(t, err)

			assert.Equal(t, "postgres", cfg.Target.Type)
			assert.Equal(t, 5432, cfg.Target.Port)
			assert.Equal(t, "svc", cfg.Target.User)
			assert.Equal(t, tt.wantHost, cfg.Target.Host)
			assert.Equal(t, tt.wantDB, cfg.Target.Database)
			assert.Equal(t, tt.wantSSL, cfg.Target.Options["sslmode"])
			assert.Equal(t, filepath.Join(root, tt.wantMacros), cfg.MacrosDir)
		})
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	cfgContent := `macros_dir: from_file
target:
  type: duckdb
`
	tests := []struct {
		name    string
		env     map[string]string
		flags   map[string]string
		verify  func(t *testing.T, root string, cfg *Config)
		wantErr string
	}{
		{
			name: "file",
			verify: func(t *testing.T, root string, cfg *Config) {
				assert.Equal(t, filepath.Join(root, "from_file"), cfg.MacrosDir)
				assert.Equal(t, "duckdb", cfg.Target.Type)
			},
		},
		{
			name: "env over file",
			env:  map[string]string{"DYNSQL_MACROS_DIR": "from_env", "DYNSQL_TARGET__TYPE": "sqlite"},
			verify: func(t *testing.T, root string, cfg *Config) {
				assert.Equal(t, filepath.Join(root, "from_env"), cfg.MacrosDir)
				assert.Equal(t, "sqlite", cfg.Target.Type)
			},
		},
		{
			name:  "flag over env",
			env:   map[string]string{"DYNSQL_MACROS_DIR": "from_env", "DYNSQL_VERBOSE": "true"},
			flags: map[string]string{"macros-dir": "from_flag", "adapter": "sqlite", "output": "text"},
			verify: func(t *testing.T, _ string, cfg *Config) {
				abs, err := filepath.Abs("from_flag")
				require.NoError(t, err)
				assert.Equal(t, abs, cfg.MacrosDir, "flag paths are relative to the working directory")
				assert.Equal(t, "sqlite", cfg.Target.Type)
				assert.Equal(t, "text", cfg.OutputFormat)
				assert.True(t, cfg.Verbose)
				assert.Equal(t, slog.LevelDebug, cfg.Level())
			},
		},
		{
			name:    "invalid adapter flag",
			flags:   map[string]string{"adapter": "oracle"},
			wantErr: "invalid target configuration",
		},
		{
			name:    "invalid output",
			flags:   map[string]string{"output": "xml"},
			wantErr: "invalid output format",
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"DYNSQL_LOG_LEVEL": "loud"},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := newFlags()
			for k, v := range tt.flags {
				require.NoError(t, flags.Set(k, v))
			}
			cfgPath := writeConfig(t, cfgContent)

			cfg, err := LoadConfig(cfgPath, flags)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.verify(t, filepath.Dir(cfgPath), cfg)
		})
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestMergeTargetConfig(t *testing.T) {
	t.Run("nil base returns override", func(t *testing.T) {
		override := &TargetConfig{Type: "duckdb", Database: "test.db"}
		assert.Equal(t, override, MergeTargetConfig(nil, override))
	})

	t.Run("nil override returns base", func(t *testing.T) {
		base := &TargetConfig{Type: "duckdb", Database: "test.db"}
		assert.Equal(t, base, MergeTargetConfig(base, nil))
	})

	t.Run("override replaces base fields", func(t *testing.T) {
		base := &TargetConfig{
			Type:     "postgres",
			Database: "base",
			Host:     "localhost",
			Options:  map[string]string{"a": "1", "b": "2"},
		}
		override := &TargetConfig{
			Database: "override",
			Port:     6543,
			Options:  map[string]string{"b": "3"},
		}

		result := MergeTargetConfig(base, override)

		assert.Equal(t, "postgres", result.Type)
		assert.Equal(t, "override", result.Database)
		assert.Equal(t, "localhost", result.Host)
		assert.Equal(t, 6543, result.Port)
		assert.Equal(t, map[string]string{"a": "1", "b": "3"}, result.Options)
		assert.Equal(t, "2", base.Options["b"], "base is not modified")
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DYNSQL_TEST_PASS", "s3cret")

	assert.Equal(t, "s3cret", expandEnvVars("${DYNSQL_TEST_PASS}"))
	assert.Equal(t, "pre-s3cret-post", expandEnvVars("pre-${DYNSQL_TEST_PASS}-post"))
	assert.Equal(t, "${DYNSQL_TEST_UNSET}", expandEnvVars("${DYNSQL_TEST_UNSET}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelWarn, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelWarn, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_ValidateDirectories(t *testing.T) {
	cfg := &Config{MacrosDir: t.TempDir()}
	assert.NoError(t, cfg.ValidateDirectories())

	cfg.MacrosDir = filepath.Join(cfg.MacrosDir, "missing")
	assert.ErrorContains(t, cfg.ValidateDirectories(), "macros directory does not exist")
}

func TestGetLogger(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, GetLogger(ctx))
	assert.NotNil(t, GetLogger(context.Background()))
}
