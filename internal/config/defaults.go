package config

import "github.com/spf13/viper"

// setDefaults installs the built-in defaults. A file or environment
// value overrides each one individually.
func setDefaults(v *viper.Viper) {
	// Token defaults. Underlying and maturity have no sensible
	// defaults and must come from the file or environment; the empty
	// defaults keep the keys visible to AutomaticEnv.
	v.SetDefault("token.underlying", "")
	v.SetDefault("token.maturity", "")
	v.SetDefault("token.rate_num", 1)
	v.SetDefault("token.rate_den", 1)

	// Genesis defaults
	v.SetDefault("genesis.reserve", "0")

	// Journal defaults
	v.SetDefault("journal.backend", "memory")
	v.SetDefault("journal.path", "")
	v.SetDefault("journal.compression", "none")
	v.SetDefault("journal.cache_size", 1024)

	// Index defaults
	v.SetDefault("index.enabled", false)
	v.SetDefault("index.host", "localhost")
	v.SetDefault("index.port", 5432)
	v.SetDefault("index.user", "principald")
	v.SetDefault("index.dbname", "principald")
	v.SetDefault("index.sslmode", "disable")

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.rpc_port", 5005)
	v.SetDefault("server.ws_port", 6006)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.timeout_seconds", 30)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
