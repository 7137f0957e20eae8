package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigPath is tried when no explicit path is given.
const DefaultConfigPath = "principald.toml"

// LoadConfig loads configuration in priority order:
// 1. Built-in defaults
// 2. Configuration file (principald.toml)
// 3. Environment variables (PRINCIPALD_ prefix)
//
// An explicit path must exist; the default path is optional.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	usedPath, err := readConfigFile(v, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	v.SetEnvPrefix("PRINCIPALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.configPath = usedPath

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func readConfigFile(v *viper.Viper, path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return "", fmt.Errorf("config file does not exist: %s", path)
		}
		return "", nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return path, nil
}
