// Package config loads service settings from YAML, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/chemequip/backend/internal/storage"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CHEMEQUIP_SERVER_PORT.
const EnvPrefix = "CHEMEQUIP"

// DefaultPath is used when no --config flag is given.
const DefaultPath = "chemequip.yaml"

// AppConfig is the root configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                int      `mapstructure:"port" yaml:"port"`
	BindAddress         string   `mapstructure:"bind_address" yaml:"bind_address"`
	AllowOrigins        []string `mapstructure:"allow_origins" yaml:"allow_origins"`
	ReadTimeoutSeconds  int      `mapstructure:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int      `mapstructure:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	BodyLimit           string   `mapstructure:"body_limit" yaml:"body_limit"`
	EnableCompression   bool     `mapstructure:"enable_compression" yaml:"enable_compression"`
	CompressionLevel    int      `mapstructure:"compression_level" yaml:"compression_level"`
	ServeDashboard      bool     `mapstructure:"serve_dashboard" yaml:"serve_dashboard"`
}

// StorageConfig selects and tunes the dataset database.
type StorageConfig struct {
	Driver            string `mapstructure:"driver" yaml:"driver"`
	DSN               string `mapstructure:"dsn" yaml:"dsn"`
	Retention         int    `mapstructure:"retention" yaml:"retention"`
	DuckDBThreads     int    `mapstructure:"duckdb_threads" yaml:"duckdb_threads"`
	DuckDBMemoryLimit string `mapstructure:"duckdb_memory_limit" yaml:"duckdb_memory_limit"`
}

// SecurityConfig controls HTTP Basic authentication.
type SecurityConfig struct {
	// RequireAuth extends authentication from the report and detail routes
	// to upload, latest, history and the event socket.
	RequireAuth bool   `mapstructure:"require_auth" yaml:"require_auth"`
	Realm       string `mapstructure:"realm" yaml:"realm"`
}

// EventsConfig configures the optional Kafka sink.
type EventsConfig struct {
	KafkaBrokers          []string `mapstructure:"kafka_brokers" yaml:"kafka_brokers"`
	KafkaTopic            string   `mapstructure:"kafka_topic" yaml:"kafka_topic"`
	PublishTimeoutSeconds int      `mapstructure:"publish_timeout_seconds" yaml:"publish_timeout_seconds"`
}

// ReportConfig configures PDF rendering.
type ReportConfig struct {
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:                8000,
			BindAddress:         "0.0.0.0",
			AllowOrigins:        []string{"*"},
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 30,
			IdleTimeoutSeconds:  120,
			BodyLimit:           "20M",
			EnableCompression:   true,
			CompressionLevel:    5,
			ServeDashboard:      true,
		},
		Storage: StorageConfig{
			Driver:            "duckdb",
			DSN:               "./data/chemequip.duckdb",
			Retention:         5,
			DuckDBThreads:     2,
			DuckDBMemoryLimit: "512MB",
		},
		Security: SecurityConfig{
			RequireAuth: false,
			Realm:       "chemequip",
		},
		Events: EventsConfig{
			KafkaBrokers:          []string{},
			KafkaTopic:            "chemequip.datasets",
			PublishTimeoutSeconds: 5,
		},
		Report: ReportConfig{
			Timezone: "UTC",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, c *AppConfig) {
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.bind_address", c.Server.BindAddress)
	v.SetDefault("server.allow_origins", c.Server.AllowOrigins)
	v.SetDefault("server.read_timeout_seconds", c.Server.ReadTimeoutSeconds)
	v.SetDefault("server.write_timeout_seconds", c.Server.WriteTimeoutSeconds)
	v.SetDefault("server.idle_timeout_seconds", c.Server.IdleTimeoutSeconds)
	v.SetDefault("server.body_limit", c.Server.BodyLimit)
	v.SetDefault("server.enable_compression", c.Server.EnableCompression)
	v.SetDefault("server.compression_level", c.Server.CompressionLevel)
	v.SetDefault("server.serve_dashboard", c.Server.ServeDashboard)

	v.SetDefault("storage.driver", c.Storage.Driver)
	v.SetDefault("storage.dsn", c.Storage.DSN)
	v.SetDefault("storage.retention", c.Storage.Retention)
	v.SetDefault("storage.duckdb_threads", c.Storage.DuckDBThreads)
	v.SetDefault("storage.duckdb_memory_limit", c.Storage.DuckDBMemoryLimit)

	v.SetDefault("security.require_auth", c.Security.RequireAuth)
	v.SetDefault("security.realm", c.Security.Realm)

	v.SetDefault("events.kafka_brokers", c.Events.KafkaBrokers)
	v.SetDefault("events.kafka_topic", c.Events.KafkaTopic)
	v.SetDefault("events.publish_timeout_seconds", c.Events.PublishTimeoutSeconds)

	v.SetDefault("report.timezone", c.Report.Timezone)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
}

// LoadConfig reads path, applies CHEMEQUIP_* overrides and validates the
// result. A missing file is created from defaults first.
func LoadConfig(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := DefaultConfig().Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *AppConfig) Save(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Chemical equipment backend configuration\n# Generated on first run; CHEMEQUIP_* environment variables override these values.\n\n")
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(header, out...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// resolvePaths makes a relative database path relative to the config file.
func (c *AppConfig) resolvePaths(configDir string) {
	if c.Storage.Driver == "postgres" || c.Storage.DSN == "" {
		return
	}
	if !filepath.IsAbs(c.Storage.DSN) {
		c.Storage.DSN = filepath.Join(configDir, c.Storage.DSN)
	}
}

// Validate rejects settings the service cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error
	if drivers := storage.Drivers(); !slices.Contains(drivers, c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of %s", c.Storage.Driver, strings.Join(drivers, ", ")))
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn is required for postgres"))
	}
	if c.Storage.Retention < 1 {
		errs = append(errs, fmt.Errorf("storage.retention must be at least 1, got %d", c.Storage.Retention))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("report.timezone: %w", err))
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if len(c.Events.KafkaBrokers) > 0 && c.Events.KafkaTopic == "" {
		errs = append(errs, errors.New("events.kafka_topic is required when kafka_brokers is set"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetServerAddr returns the listen address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// Location returns the report time zone. Validate has already checked it.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PublishTimeout is how long a Kafka publish may block an upload.
func (c *AppConfig) PublishTimeout() time.Duration {
	return time.Duration(c.Events.PublishTimeoutSeconds) * time.Second
}

// NewLogger builds the application logger from the logging section.
func (c *AppConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level %q: %w", s, err)
	}
	return level, nil
}
