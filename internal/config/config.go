// Package config loads and validates the daemon configuration from
// defaults, an optional TOML file, and PRINCIPALD_ environment
// variables, in that priority order.
package config

import (
	"fmt"
	"time"

	"github.com/yieldprotocol/principald/internal/core/amount"
	"github.com/yieldprotocol/principald/internal/journal"
	"github.com/yieldprotocol/principald/internal/journal/compression"
	"github.com/yieldprotocol/principald/internal/storage/relationaldb"
)

// Config is the complete daemon configuration.
type Config struct {
	Token   TokenConfig   `toml:"token" mapstructure:"token"`
	Genesis GenesisConfig `toml:"genesis" mapstructure:"genesis"`
	Journal JournalConfig `toml:"journal" mapstructure:"journal"`
	Index   IndexConfig   `toml:"index" mapstructure:"index"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`

	configPath string `toml:"-" mapstructure:"-"`
}

// TokenConfig fixes the token identity: the underlying asset, the
// maturity timestamp, and the conversion rate between principal and
// underlying units.
type TokenConfig struct {
	Underlying string `toml:"underlying" mapstructure:"underlying"`
	Maturity   string `toml:"maturity" mapstructure:"maturity"`
	RateNum    uint64 `toml:"rate_num" mapstructure:"rate_num"`
	RateDen    uint64 `toml:"rate_den" mapstructure:"rate_den"`
}

// MaturityTime parses the configured maturity timestamp.
func (c *TokenConfig) MaturityTime() (time.Time, error) {
	return time.Parse(time.RFC3339, c.Maturity)
}

// GenesisConfig seeds initial state: principal balances per account
// and the treasury's underlying reserve. Amounts are decimal strings.
type GenesisConfig struct {
	Allocations map[string]string `toml:"allocations" mapstructure:"allocations"`
	Reserve     string            `toml:"reserve" mapstructure:"reserve"`
}

// JournalConfig selects the redemption journal's storage.
type JournalConfig struct {
	Backend     string `toml:"backend" mapstructure:"backend"`
	Path        string `toml:"path" mapstructure:"path"`
	Compression string `toml:"compression" mapstructure:"compression"`
	CacheSize   int    `toml:"cache_size" mapstructure:"cache_size"`
}

// IndexConfig enables the optional relational record index.
type IndexConfig struct {
	Enabled  bool   `toml:"enabled" mapstructure:"enabled"`
	Host     string `toml:"host" mapstructure:"host"`
	Port     int    `toml:"port" mapstructure:"port"`
	User     string `toml:"user" mapstructure:"user"`
	Password string `toml:"password" mapstructure:"password"`
	DBName   string `toml:"dbname" mapstructure:"dbname"`
	SSLMode  string `toml:"sslmode" mapstructure:"sslmode"`
}

// RelationalConfig converts the section into the storage layer's
// connection configuration.
func (c *IndexConfig) RelationalConfig() relationaldb.Config {
	return relationaldb.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
	}
}

// ServerConfig binds the RPC, WebSocket, and metrics listeners.
type ServerConfig struct {
	Host           string `toml:"host" mapstructure:"host"`
	RPCPort        int    `toml:"rpc_port" mapstructure:"rpc_port"`
	WSPort         int    `toml:"ws_port" mapstructure:"ws_port"`
	MetricsPort    int    `toml:"metrics_port" mapstructure:"metrics_port"`
	TimeoutSeconds int    `toml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogConfig tunes the structured logger.
type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
}

// ConfigPath returns the path of the file the configuration was loaded
// from, or empty when only defaults and environment applied.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// Validate checks the complete configuration.
func (c *Config) Validate() error {
	if err := c.validateToken(); err != nil {
		return fmt.Errorf("token config validation failed: %w", err)
	}
	if err := c.validateGenesis(); err != nil {
		return fmt.Errorf("genesis config validation failed: %w", err)
	}
	if err := c.validateJournal(); err != nil {
		return fmt.Errorf("journal config validation failed: %w", err)
	}
	if c.Index.Enabled {
		cfg := c.Index.RelationalConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("index config validation failed: %w", err)
		}
	}
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	return nil
}

func (c *Config) validateToken() error {
	if c.Token.Underlying == "" {
		return fmt.Errorf("underlying asset identifier is required")
	}
	if c.Token.Maturity == "" {
		return fmt.Errorf("maturity timestamp is required")
	}
	if _, err := c.Token.MaturityTime(); err != nil {
		return fmt.Errorf("maturity must be RFC3339: %w", err)
	}
	if c.Token.RateNum == 0 || c.Token.RateDen == 0 {
		return fmt.Errorf("rate_num and rate_den must be non-zero")
	}
	return nil
}

func (c *Config) validateGenesis() error {
	for account, value := range c.Genesis.Allocations {
		if account == "" {
			return fmt.Errorf("allocation account cannot be empty")
		}
		if _, err := amount.Parse(value); err != nil {
			return fmt.Errorf("allocation for %s: %w", account, err)
		}
	}
	if c.Genesis.Reserve != "" {
		if _, err := amount.Parse(c.Genesis.Reserve); err != nil {
			return fmt.Errorf("reserve: %w", err)
		}
	}
	return nil
}

func (c *Config) validateJournal() error {
	backends := journal.AvailableBackends()
	if !contains(backends, c.Journal.Backend) {
		return fmt.Errorf("unknown backend %q (available: %v)", c.Journal.Backend, backends)
	}
	if c.Journal.Backend != "memory" && c.Journal.Path == "" {
		return fmt.Errorf("backend %q requires a path", c.Journal.Backend)
	}
	comps := compression.Available()
	if !contains(comps, c.Journal.Compression) {
		return fmt.Errorf("unknown compression %q (available: %v)", c.Journal.Compression, comps)
	}
	if c.Journal.CacheSize < 0 {
		return fmt.Errorf("cache_size cannot be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	for name, port := range map[string]int{
		"rpc_port":     c.Server.RPCPort,
		"ws_port":      c.Server.WSPort,
		"metrics_port": c.Server.MetricsPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be in 1..65535, got %d", name, port)
		}
	}
	if c.Server.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	return nil
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
