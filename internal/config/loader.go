package config

import (
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "dynsql.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "dynsql.yml"

// LoadFromDir loads a ProjectConfig from the given directory.
// It looks for dynsql.yaml or dynsql.yml in the directory.
// Returns nil, nil if no config file is found (not an error condition).
func LoadFromDir(dir string) (*ProjectConfig, error) {
	configPath := FindConfigFile(dir)
	if configPath == "" {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(DefaultValues(), "."), nil); err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if err := Decode(k, &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)

	// Relative paths are anchored at the project directory
	if !filepath.IsAbs(cfg.MacrosDir) {
		cfg.MacrosDir = filepath.Join(dir, cfg.MacrosDir)
	}

	return &cfg, nil
}

// Decode unmarshals the whole koanf tree into out. Input is weakly typed
// so env vars and flags may carry numbers and booleans as strings, and
// durations may be written as "5s".
func Decode(k *koanf.Koanf, out any) error {
	return k.UnmarshalWithConf("", out, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           out,
			TagName:          "koanf",
		},
	})
}

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing dynsql.yaml or dynsql.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
