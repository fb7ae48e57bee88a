package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SEGMENA"

// Config is the full application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Log          LogConfig          `mapstructure:"log"`
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Broker       BrokerConfig       `mapstructure:"broker"`
	Seed         SeedConfig         `mapstructure:"seed"`
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// DatabaseConfig contains database connection configuration. When DSN is
// set it wins over the individual fields.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type SegmentationConfig struct {
	DedupeReuploads bool `mapstructure:"dedupe_reuploads"`
}

// BrokerConfig points at the AMQP broker that receives segmentation events.
// An empty URL disables publishing.
type BrokerConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type SeedConfig struct {
	DemoUsers bool `mapstructure:"demo_users"`
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// field: default value
var defaults = map[string]interface{}{
	"server.port":                   "8080",
	"server.max_upload_mb":          10,
	"database.driver":               DriverPostgres,
	"database.dsn":                  "",
	"database.host":                 "localhost",
	"database.port":                 "5432",
	"database.user":                 "postgres",
	"database.password":             "postgres",
	"database.name":                 "segmena",
	"database.sslmode":              "disable",
	"database.max_open_conns":       100,
	"database.max_idle_conns":       10,
	"database.conn_max_lifetime":    "1h",
	"auth.jwt_secret":               "",
	"auth.token_ttl":                "24h",
	"log.level":                     "INFO",
	"segmentation.dedupe_reuploads": false,
	"broker.url":                    "",
	"broker.exchange":               "segmentation.events",
	"seed.demo_users":               false,
}

// Load reads configuration from an optional YAML file and SEGMENA_*
// environment variables. Environment variables take precedence over the
// file. An empty path searches for config.yaml in . and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("missing required config field: auth.jwt_secret")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}
