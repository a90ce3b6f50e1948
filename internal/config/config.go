// Package config loads the service configuration with Viper.
//
// Values are layered: built-in defaults < optional YAML file < environment
// variables. Every key can be set with a PERIODICAL_ prefixed variable
// (database.host -> PERIODICAL_DATABASE_HOST); the short names used by the
// docker-compose setup (DB_HOST, REDIS_HOST, SESSION_SECRET, GIN_MODE, ...)
// are accepted as well.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Mail      MailConfig      `mapstructure:"mail"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Media     MediaConfig     `mapstructure:"media"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	GinMode   string `mapstructure:"gin_mode"`
	PublicURL string `mapstructure:"public_url"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	LogLevel string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	PoolSize int    `mapstructure:"pool_size"`
}

type SessionConfig struct {
	// Store is "redis" or "cookie"
	Store  string `mapstructure:"store"`
	Secret string `mapstructure:"secret"`
	MaxAge int    `mapstructure:"max_age"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MailConfig holds outbound SMTP settings. Empty Host means invitation
// emails are only logged.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "memory" or "redis"
	Backend           string `mapstructure:"backend"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
}

type BootstrapConfig struct {
	SuperAdminEmail    string `mapstructure:"super_admin_email"`
	SuperAdminPassword string `mapstructure:"super_admin_password"`
	SuperAdminName     string `mapstructure:"super_admin_name"`
}

// MediaConfig holds the ImageKit account used for images in topic content.
// An empty PrivateKey disables the media routes.
type MediaConfig struct {
	PublicKey   string `mapstructure:"public_key"`
	PrivateKey  string `mapstructure:"private_key"`
	URLEndpoint string `mapstructure:"url_endpoint"`
	APIBaseURL  string `mapstructure:"api_base_url"`
}

// legacyEnv maps config keys to the short variable names kept for compatibility.
var legacyEnv = map[string]string{
	"server.gin_mode":                "GIN_MODE",
	"server.public_url":              "PUBLIC_URL",
	"database.driver":                "DB_DRIVER",
	"database.host":                  "DB_HOST",
	"database.port":                  "DB_PORT",
	"database.user":                  "DB_USER",
	"database.password":              "DB_PASSWORD",
	"database.name":                  "DB_NAME",
	"redis.host":                     "REDIS_HOST",
	"redis.port":                     "REDIS_PORT",
	"redis.password":                 "REDIS_PASSWORD",
	"session.secret":                 "SESSION_SECRET",
	"mail.host":                      "SMTP_HOST",
	"mail.port":                      "SMTP_PORT",
	"mail.username":                  "SMTP_USER",
	"mail.password":                  "SMTP_PASSWORD",
	"mail.from":                      "EMAIL_FROM",
	"bootstrap.super_admin_email":    "SUPER_ADMIN_EMAIL",
	"bootstrap.super_admin_password": "SUPER_ADMIN_PASSWORD",
	"media.public_key":               "IMAGE_KIT_PUBLIC_KEY",
	"media.private_key":              "IMAGE_KIT_PRIVATE_KEY",
	"media.url_endpoint":             "IMAGE_KIT_URL_ENDPOINT",
}

// Load reads configuration from configPath (optional) and the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PERIODICAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := "PERIODICAL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)
	cfg.Mail.Password = os.ExpandEnv(cfg.Mail.Password)
	cfg.Media.PrivateKey = os.ExpandEnv(cfg.Media.PrivateKey)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("server.public_url", "http://localhost:3000")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "periodical")
	v.SetDefault("database.password", "periodical")
	v.SetDefault("database.name", "periodical")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("session.store", "redis")
	v.SetDefault("session.secret", "default-secret-key-change-me")
	v.SetDefault("session.max_age", 86400*7)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "no-reply@periodical.local")
	v.SetDefault("mail.use_tls", true)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.requests_per_minute", 20)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("bootstrap.super_admin_name", "Super Admin")

	v.SetDefault("media.api_base_url", "https://api.imagekit.io")
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.PublicURL == "" {
		return fmt.Errorf("server.public_url is required")
	}

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database driver: %s (must be mysql, postgres, or sqlite)", c.Database.Driver)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}

	switch c.Session.Store {
	case "redis", "cookie":
	default:
		return fmt.Errorf("invalid session store: %s (must be redis or cookie)", c.Session.Store)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required")
	}

	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend)
	}

	if c.Media.PrivateKey != "" && c.Media.PublicKey == "" {
		return fmt.Errorf("media.public_key is required when media.private_key is set")
	}

	if (c.Bootstrap.SuperAdminEmail == "") != (c.Bootstrap.SuperAdminPassword == "") {
		return fmt.Errorf("bootstrap.super_admin_email and bootstrap.super_admin_password must be set together")
	}

	return nil
}

// GetDSN builds the driver-specific connection string.
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	case "sqlite":
		return c.Name
	default:
		// clientFoundRows makes RowsAffected count matched rows, which the
		// conditional updates rely on.
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
			c.User, c.Password, c.Host, c.Port, c.Name)
	}
}

// RedisAddr returns host:port for the Redis server.
func (c *RedisConfig) RedisAddr() string {
	return c.Host + ":" + c.Port
}

// GetAddress returns the listen address for the HTTP server.
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsProduction reports whether gin runs in release mode.
func (c *ServerConfig) IsProduction() bool {
	return c.GinMode == "release"
}
