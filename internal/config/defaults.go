package config

import "time"

// Default configuration values.
const (
	DefaultMacrosDir   = "macros"
	DefaultEnv         = "dev"
	DefaultTargetType  = "sqlite"
	DefaultServerAddr  = ":8080"
	DefaultReadTimeout = 10 * time.Second
)

// DefaultValues returns the defaults as flat koanf keys, the lowest
// precedence layer of every loader.
func DefaultValues() map[string]any {
	return map[string]any{
		"macros_dir":          DefaultMacrosDir,
		"environment":         DefaultEnv,
		"target.type":         DefaultTargetType,
		"engine.cache":        true,
		"server.addr":         DefaultServerAddr,
		"server.read_timeout": DefaultReadTimeout.String(),
	}
}

// ApplyDefaults applies default values to a ProjectConfig.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.MacrosDir == "" {
		c.MacrosDir = DefaultMacrosDir
	}
	if c.Environment == "" {
		c.Environment = DefaultEnv
	}
	if c.Target == nil {
		c.Target = &TargetConfig{Type: DefaultTargetType}
	}
	ApplyTargetDefaults(c.Target)
	if c.Engine == nil {
		c.Engine = &EngineConfig{Cache: true}
	}
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	ApplyServerDefaults(c.Server)
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}

	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
	case "mysql":
		if t.Port == 0 {
			t.Port = 3306
		}
	case "sqlite":
		if t.Database == "" {
			t.Database = ":memory:"
		}
	}
}

// ApplyServerDefaults applies default values to a ServerConfig.
func ApplyServerDefaults(s *ServerConfig) {
	if s == nil {
		return
	}
	if s.Addr == "" {
		s.Addr = DefaultServerAddr
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
}
