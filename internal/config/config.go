package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Portal   PortalConfig   `yaml:"portal"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PortalConfig represents captive-portal configuration
type PortalConfig struct {
	// Lifetime of the browser session carrying the voucher token and
	// next-url between the login redirect and the portal page.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Quotas applied when a gateway has no defaults of its own.
	DefaultMinutes   int `yaml:"default_minutes"`
	DefaultMegabytes int `yaml:"default_megabytes"`

	// Length of generated voucher codes.
	VoucherCodeLength int `yaml:"voucher_code_length"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
}

// setDefaults fills in defaults for fields the file left unset
func (c *Config) setDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	if c.Portal.SessionTTL == 0 {
		c.Portal.SessionTTL = time.Hour
	}
	if c.Portal.DefaultMinutes == 0 {
		c.Portal.DefaultMinutes = 60 * 24
	}
	if c.Portal.DefaultMegabytes == 0 {
		c.Portal.DefaultMegabytes = 1000
	}
	if c.Portal.VoucherCodeLength == 0 {
		c.Portal.VoucherCodeLength = 6
	}
}
