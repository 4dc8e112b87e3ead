// Package engineconfig loads the engine's tuning knobs from a config file,
// environment variables, and command-line flags, in that ascending order of
// precedence, the way cli/root.go wires cobra persistent flags through
// viper.BindPFlag with AutomaticEnv fallback.
package engineconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every tunable the engine reads at startup.
type Config struct {
	StorePath            string        `mapstructure:"store_path"`
	HermeticityLimit      int           `mapstructure:"hermeticity_limit"`
	LockchainBlockSize    int           `mapstructure:"lockchain_block_size"`
	HookTimeoutDefaultMs  int           `mapstructure:"hook_timeout_default_ms"`
	MaxTicks             int           `mapstructure:"max_ticks"`
	QueryCacheSize        int           `mapstructure:"query_cache_size"`
	RedisURL              string        `mapstructure:"redis_url"`
	CouchDBURL            string        `mapstructure:"couchdb_url"`
	LogLevel              string        `mapstructure:"log_level"`
	LogFormat             string        `mapstructure:"log_format"`
	HTTPAddr              string        `mapstructure:"http_addr"`
	ShutdownGrace         time.Duration `mapstructure:"shutdown_grace"`
}

// Default returns the engine's out-of-the-box tuning, matching the
// invariants named throughout spec.md (64-quad hermeticity cap, 100ms hook
// timeout default, 64-receipt lockchain block).
func Default() Config {
	return Config{
		StorePath:           "",
		HermeticityLimit:     64,
		LockchainBlockSize:   64,
		HookTimeoutDefaultMs: 100,
		MaxTicks:             1000,
		QueryCacheSize:       1024,
		LogLevel:             "info",
		LogFormat:            "text",
		HTTPAddr:             ":8095",
		ShutdownGrace:        10 * time.Second,
	}
}

// BindFlags registers the engine's persistent flags on cmd and binds each
// to its viper key, so flag > env > file > default precedence falls out of
// viper's own resolution order.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("store-path", "", "path to the on-disk triple store (empty for in-memory)")
	flags.Int("hermeticity-limit", 64, "max quads per staged transaction")
	flags.Int("lockchain-block-size", 64, "receipts per Merkle anchor")
	flags.Int("hook-timeout-default-ms", 100, "default hook execution timeout")
	flags.Int("max-ticks", 1000, "run_to_completion tick ceiling")
	flags.Int("query-cache-size", 1024, "in-memory query cache entry cap")
	flags.String("redis-url", "", "Redis URL for the shared query cache backend (empty uses in-memory)")
	flags.String("couchdb-url", "", "CouchDB URL for durable receipt storage (empty keeps receipts in memory)")
	flags.String("log-level", "info", "debug|info|warn|error|fatal")
	flags.String("log-format", "text", "text|json")
	flags.String("http-addr", ":8095", "introspection HTTP listen address")
	flags.Duration("shutdown-grace", 10*time.Second, "graceful shutdown timeout")

	bind(v, flags, "store_path", "store-path")
	bind(v, flags, "hermeticity_limit", "hermeticity-limit")
	bind(v, flags, "lockchain_block_size", "lockchain-block-size")
	bind(v, flags, "hook_timeout_default_ms", "hook-timeout-default-ms")
	bind(v, flags, "max_ticks", "max-ticks")
	bind(v, flags, "query_cache_size", "query-cache-size")
	bind(v, flags, "redis_url", "redis-url")
	bind(v, flags, "couchdb_url", "couchdb-url")
	bind(v, flags, "log_level", "log-level")
	bind(v, flags, "log_format", "log-format")
	bind(v, flags, "http_addr", "http-addr")
	bind(v, flags, "shutdown_grace", "shutdown-grace")
}

func bind(v *viper.Viper, flags *pflag.FlagSet, key, flag string) {
	_ = v.BindPFlag(key, flags.Lookup(flag))
}

// Load resolves Config from an optional file path, KGC_-prefixed
// environment variables, and whatever flags BindFlags already registered
// on v, falling back to Default for anything left unset.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	cfg := Default()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".kgcengine")
	}

	v.SetEnvPrefix("KGC")
	v.AutomaticEnv()

	// A missing or unreadable config file is not fatal — environment
	// variables, flags, and the defaults above still apply, mirroring
	// cli/root.go's initConfig, which only logs a successful read.
	_ = v.ReadInConfig()

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
