// Package config loads service configuration from defaults, an optional YAML
// file and the environment, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable pointing at a YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Common errors.
var (
	// ErrMissingDatabase is returned when neither DATABASE_URL nor DB_HOST/DB_NAME are set.
	ErrMissingDatabase = errors.New("missing DATABASE_URL or DB_HOST/DB_NAME")
)

// Config is the full service configuration.
type Config struct {
	Environment string          `koanf:"environment"`
	Server      ServerConfig    `koanf:"server"`
	Database    DatabaseConfig  `koanf:"database"`
	CORS        CORSConfig      `koanf:"cors"`
	API         APIConfig       `koanf:"api"`
	Recommend   RecommendConfig `koanf:"recommend"`
	Logging     LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// ExposeErrors returns underlying error text in 500 responses.
	ExposeErrors bool `koanf:"expose_errors"`

	// TrustedProxies are peer addresses or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers identify the client. Empty trusts nobody.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// DatabaseConfig holds PostgreSQL connection settings. URL takes precedence
// over the discrete fields.
type DatabaseConfig struct {
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSL      bool   `koanf:"ssl"`

	MaxConns           int32         `koanf:"max_conns"`
	MaxConnIdleTime    time.Duration `koanf:"max_conn_idle_time"`
	ConnectTimeout     time.Duration `koanf:"connect_timeout"`
	SlowQueryThreshold time.Duration `koanf:"slow_query_threshold"`
	PingInterval       time.Duration `koanf:"ping_interval"`

	// Migrate applies the embedded schema on startup.
	Migrate bool `koanf:"migrate"`
}

// CORSConfig holds the browser origin allow-list.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
	FrontendURL    string   `koanf:"frontend_url"`
	ExternalURL    string   `koanf:"external_url"`
}

// APIConfig holds request handling limits.
type APIConfig struct {
	MaxLimit int `koanf:"max_limit"`

	// LoginRateLimit is the number of login attempts allowed per IP per minute.
	LoginRateLimit int `koanf:"login_rate_limit"`
}

// RecommendConfig tunes the circuit breaker guarding precomputed recommendations.
type RecommendConfig struct {
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig holds log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5001,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:               "localhost",
			Port:               5432,
			MaxConns:           20,
			MaxConnIdleTime:    30 * time.Second,
			ConnectTimeout:     10 * time.Second,
			SlowQueryThreshold: 5 * time.Second,
			PingInterval:       30 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		API: APIConfig{
			MaxLimit:       100,
			LoginRateLimit: 10,
		},
		Recommend: RecommendConfig{
			BreakerFailures: 3,
			BreakerTimeout:  time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then an optional YAML file, then
// environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// development always shows error detail
	if cfg.IsDevelopment() {
		cfg.Server.ExposeErrors = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"environment": "environment",
	"node_env":    "environment",

	"server_host":   "server.host",
	"port":          "server.port",
	"expose_errors": "server.expose_errors",

	"trusted_proxies": "server.trusted_proxies",

	"database_url":            "database.url",
	"db_host":                 "database.host",
	"db_port":                 "database.port",
	"db_name":                 "database.name",
	"db_user":                 "database.user",
	"db_password":             "database.password",
	"db_ssl":                  "database.ssl",
	"db_max_conns":            "database.max_conns",
	"db_max_conn_idle_time":   "database.max_conn_idle_time",
	"db_connect_timeout":      "database.connect_timeout",
	"db_slow_query_threshold": "database.slow_query_threshold",
	"db_ping_interval":        "database.ping_interval",
	"db_migrate":              "database.migrate",

	"cors_origins":        "cors.allowed_origins",
	"frontend_url":        "cors.frontend_url",
	"render_external_url": "cors.external_url",

	"api_max_limit":    "api.max_limit",
	"login_rate_limit": "api.login_rate_limit",

	"recommend_breaker_failures": "recommend.breaker_failures",
	"recommend_breaker_timeout":  "recommend.breaker_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

// sliceKeys are config keys whose env value is a comma-separated list.
var sliceKeys = map[string]bool{
	"cors.allowed_origins":   true,
	"server.trusted_proxies": true,
}

// envTransformFunc maps known, non-empty environment variables onto config
// keys and drops everything else.
func envTransformFunc(key, value string) (string, interface{}) {
	mapped, ok := envMappings[strings.ToLower(key)]
	if !ok || strings.TrimSpace(value) == "" {
		return "", nil
	}
	if sliceKeys[mapped] {
		return mapped, splitCommaList(value)
	}
	return mapped, value
}

func splitCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || strings.EqualFold(c.Environment, "development")
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
		return ErrMissingDatabase
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max_conns must be positive, got %d", c.Database.MaxConns)
	}
	if c.API.MaxLimit < 1 {
		return fmt.Errorf("api max_limit must be positive, got %d", c.API.MaxLimit)
	}
	if c.API.LoginRateLimit < 1 {
		return fmt.Errorf("api login_rate_limit must be positive, got %d", c.API.LoginRateLimit)
	}
	if c.Recommend.BreakerFailures < 1 {
		return errors.New("recommend breaker_failures must be positive")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// Origins merges the configured origin list with the frontend and
// external URLs, dropping blanks and duplicates.
func (c CORSConfig) Origins() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range append(append([]string{}, c.AllowedOrigins...), c.FrontendURL, c.ExternalURL) {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// ConnString returns the PostgreSQL connection URL. A DATABASE_URL without an
// sslmode gets sslmode=require, as hosted databases expect TLS.
func (d DatabaseConfig) ConnString() (string, error) {
	if d.URL != "" {
		u, err := url.Parse(d.URL)
		if err != nil {
			return "", fmt.Errorf("parsing database URL: %w", err)
		}
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", "require")
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}

	sslmode := "disable"
	if d.SSL {
		sslmode = "require"
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String(), nil
}
