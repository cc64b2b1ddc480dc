// Package config provides configuration loading and management for the admin API server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verinode/token-registry-server/internal/telemetry"
)

const (
	// EnvPrefix is the prefix for environment variables read by the server
	EnvPrefix = "VTR"

	// DefaultAddress is the default HTTP listen address
	DefaultAddress = ":8080"

	// DefaultWorkers is the default request worker cap. One worker means
	// admin requests execute strictly one at a time.
	DefaultWorkers = 1

	// DefaultBacklog is the default number of requests allowed to queue
	// for a worker slot
	DefaultBacklog = 64

	// DefaultBacklogTimeout is the default time a request may wait in the
	// backlog queue
	DefaultBacklogTimeout = 30 * time.Second
)

// envAuthSecret is the environment variable consulted when no secret file
// is configured.
const envAuthSecret = "VTR_AUTH_SECRET"

// envDatabasePassword is the environment variable consulted when no
// password file is configured.
const envDatabasePassword = "VTR_DATABASE_PASSWORD"

// Option adjusts how LoadConfig sources the configuration
type Option func(*loaderConfig) error

// loaderConfig accumulates loader settings before anything is read
type loaderConfig struct {
	path string
}

// WithConfigPath points the loader at a YAML file. Symlinks are resolved
// up front, and a relative result must stay local to the working
// directory.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// EvalSymlinks cleans the path as a side effect.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config is the root of the YAML configuration file
type Config struct {
	Server    *ServerConfig     `yaml:"server,omitempty"`
	Auth      *AuthConfig       `yaml:"auth,omitempty"`
	Database  *DatabaseConfig   `yaml:"database"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	// Address is the listen address for the HTTP server
	Address string `yaml:"address,omitempty"`

	// Workers caps how many requests execute concurrently. With the
	// default of 1, requests run strictly one at a time and identifier
	// assignment for requests without an explicit id stays sequential.
	// Any higher value lets identifier assignment race between
	// concurrent requests.
	Workers int `yaml:"workers,omitempty"`

	// Backlog is the number of requests that may queue for a worker
	// slot before the server rejects further ones
	Backlog int `yaml:"backlog,omitempty"`

	// BacklogTimeout is how long a request may wait in the backlog
	// queue (e.g., "30s", "1m")
	BacklogTimeout string `yaml:"backlogTimeout,omitempty"`
}

// GetAddress returns the listen address, using the default if not specified
func (s *ServerConfig) GetAddress() string {
	if s == nil || s.Address == "" {
		return DefaultAddress
	}
	return s.Address
}

// GetWorkers returns the worker cap, using the default if not specified
func (s *ServerConfig) GetWorkers() int {
	if s == nil || s.Workers == 0 {
		return DefaultWorkers
	}
	return s.Workers
}

// GetBacklog returns the backlog size, using the default if not specified
func (s *ServerConfig) GetBacklog() int {
	if s == nil || s.Backlog == 0 {
		return DefaultBacklog
	}
	return s.Backlog
}

// GetBacklogTimeout returns the parsed backlog timeout, using the default
// if not specified. Validation rejects unparseable values before this is
// ever called.
func (s *ServerConfig) GetBacklogTimeout() time.Duration {
	if s == nil || s.BacklogTimeout == "" {
		return DefaultBacklogTimeout
	}
	d, err := time.ParseDuration(s.BacklogTimeout)
	if err != nil {
		return DefaultBacklogTimeout
	}
	return d
}

// AuthConfig defines admin credential settings
type AuthConfig struct {
	// Realm is the protection space reported in authentication challenges
	Realm string `yaml:"realm,omitempty"`

	// SecretFile points at a file holding only the credential signing
	// secret, with optional surrounding whitespace. Preferred over the
	// environment variable for production deployments.
	SecretFile string `yaml:"secretFile,omitempty"`

	// PublicPaths lists additional paths that bypass authentication
	PublicPaths []string `yaml:"publicPaths,omitempty"`
}

// GetSecret resolves the credential signing secret, preferring SecretFile
// over the VTR_AUTH_SECRET environment variable. The secret is resolved
// on demand and is never written back into the configuration or any log.
func (a *AuthConfig) GetSecret() (string, error) {
	if a != nil && a.SecretFile != "" {
		secret, err := readTrimmedFile(a.SecretFile)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from file %s: %w", a.SecretFile, err)
		}
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", a.SecretFile)
		}
		return secret, nil
	}

	if envSecret := os.Getenv(envAuthSecret); envSecret != "" {
		return envSecret, nil
	}

	return "", fmt.Errorf(
		"no auth secret configured: set auth.secretFile or the %s environment variable", envAuthSecret,
	)
}

// DatabaseConfig defines how the server reaches PostgreSQL
type DatabaseConfig struct {
	// Host names the database server
	Host string `yaml:"host"`

	// Port of the database server
	Port int `yaml:"port"`

	// User the server connects as
	User string `yaml:"user"`

	// PasswordFile points at a file holding only the database password,
	// with optional surrounding whitespace. Preferred over the
	// environment variable for production deployments.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the name of the database to connect to
	Database string `yaml:"database"`

	// SSLMode for the connection: disable, require, verify-ca or
	// verify-full
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns caps the connection pool size
	MaxConns int32 `yaml:"maxConns,omitempty"`

	// MinConns is how many idle connections the pool keeps open
	MinConns int32 `yaml:"minConns,omitempty"`

	// ConnMaxLifetime recycles connections older than this (e.g., "1h",
	// "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword resolves the database password, preferring PasswordFile
// over the VTR_DATABASE_PASSWORD environment variable.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		password, err := readTrimmedFile(d.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return password, nil
	}

	if envPassword := os.Getenv(envDatabasePassword); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", envDatabasePassword,
	)
}

// GetConnectionString assembles the postgres:// URL for this
// configuration. The password is URL-escaped so special characters
// survive the round trip.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

// readTrimmedFile returns the content of the file at path with
// surrounding whitespace removed. Secret files routinely end in a
// newline, which must not become part of the credential.
func readTrimmedFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadConfig reads, parses and validates a configuration file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// A file path is the only configuration source wired up so far.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration for structural problems. It does not
// resolve secrets or open connections, so a config can be validated on a
// machine that has neither.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server == nil {
		return nil
	}

	if c.Server.Workers < 0 {
		return fmt.Errorf("server.workers must not be negative, got %d", c.Server.Workers)
	}
	if c.Server.Backlog < 0 {
		return fmt.Errorf("server.backlog must not be negative, got %d", c.Server.Backlog)
	}
	if c.Server.BacklogTimeout != "" {
		if _, err := time.ParseDuration(c.Server.BacklogTimeout); err != nil {
			return fmt.Errorf("server.backlogTimeout must be a valid duration (e.g., '30s', '1m'): %w", err)
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if c.Database.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("database.connMaxLifetime must be a valid duration (e.g., '30m', '1h'): %w", err)
		}
	}

	return nil
}
