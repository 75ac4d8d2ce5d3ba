// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends understood by the kv package.
const (
	BackendMemory   = "memory"
	BackendNone     = "none"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Economy    EconomyConfig    `mapstructure:"economy"`
	Highscores HighscoresConfig `mapstructure:"highscores"`
	Global     GlobalConfig     `mapstructure:"global"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ServerConfig holds the arcade HTTP server configuration.
// AllowedOrigins lists the browser origins that may open the coin stream
// besides the server's own host.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// StoreConfig selects and configures the persistent key-value backend.
type StoreConfig struct {
	Backend string       `mapstructure:"backend"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
	Redis   RedisConfig  `mapstructure:"redis"`
	Mongo   MongoConfig  `mapstructure:"mongo"`
}

// SQLiteConfig holds the sqlite backend configuration.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig holds the redis backend configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// MongoConfig holds the mongo backend configuration.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
// It is used by the postgres store backend and by the global highscore server.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AuthConfig holds login token and credential settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	Issuer        string        `mapstructure:"issuer"`
	HashPasswords bool          `mapstructure:"hash_passwords"`
}

// EconomyConfig holds coin economy settings.
type EconomyConfig struct {
	StartingCoins int64 `mapstructure:"starting_coins"`
	PointsPerCoin int64 `mapstructure:"points_per_coin"`
}

// HighscoresConfig holds local and remote highscore settings.
type HighscoresConfig struct {
	DefaultLimit int          `mapstructure:"default_limit"`
	Remote       RemoteConfig `mapstructure:"remote"`
}

// RemoteConfig holds the global highscore API client settings.
type RemoteConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GlobalConfig holds the global highscore server settings.
type GlobalConfig struct {
	Addr       string `mapstructure:"addr"`
	MaxResults int    `mapstructure:"max_results"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. STORE_BACKEND, DATABASE_HOST, AUTH_JWT_SECRET
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values the services cannot work with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendNone, BackendSQLite, BackendPostgres, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Economy.PointsPerCoin <= 0 {
		return fmt.Errorf("economy.points_per_coin must be positive, got %d", c.Economy.PointsPerCoin)
	}
	if c.Economy.StartingCoins < 0 {
		return fmt.Errorf("economy.starting_coins must not be negative, got %d", c.Economy.StartingCoins)
	}
	if c.Highscores.Remote.Enabled && c.Highscores.Remote.BaseURL == "" {
		return fmt.Errorf("highscores.remote.base_url is required when the remote track is enabled")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.sqlite.path", "arcade.db")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "arcade:")
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "arcade")
	v.SetDefault("store.mongo.collection", "kv_store")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arcade")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "arcade")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "arcade")
	v.SetDefault("auth.hash_passwords", false)

	// Economy defaults
	v.SetDefault("economy.starting_coins", 100)
	v.SetDefault("economy.points_per_coin", 10)

	v.SetDefault("highscores.default_limit", 10)
	v.SetDefault("highscores.remote.enabled", false)
	v.SetDefault("highscores.remote.base_url", "http://localhost:8090")
	v.SetDefault("highscores.remote.timeout", "5s")

	v.SetDefault("global.addr", ":8090")
	v.SetDefault("global.max_results", 100)
}
