package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/vango-dev/signaltower/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "tower.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TOWER_"

	// DefaultPort is the default inspection server port.
	DefaultPort = 7070

	// DefaultHost is the default inspection server host.
	DefaultHost = "localhost"

	// DefaultSendBuffer is the default per-connection frame queue length.
	DefaultSendBuffer = 64

	// DefaultLogLevel is the default logging threshold.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log handler.
	DefaultLogFormat = "text"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "tower"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "signaltower"

	// DefaultSnapshotPrefix is the default object key prefix for archives.
	DefaultSnapshotPrefix = "snapshots"
)

// Config represents the complete tower.json configuration.
type Config struct {
	// Logging configures the process logger.
	Logging LoggingConfig `json:"logging,omitempty" envPrefix:"LOGGING_"`

	// Server configures the HTTP inspection server.
	Server ServerConfig `json:"server,omitempty" envPrefix:"SERVER_"`

	// Channels maps declared channel names to their initial log level.
	Channels map[string]int `json:"channels,omitempty"`

	// Metrics configures the Prometheus observer.
	Metrics MetricsConfig `json:"metrics,omitempty" envPrefix:"METRICS_"`

	// Tracing configures the OpenTelemetry observer.
	Tracing TracingConfig `json:"tracing,omitempty" envPrefix:"TRACING_"`

	// Snapshot configures snapshot archiving.
	Snapshot SnapshotConfig `json:"snapshot,omitempty" envPrefix:"SNAPSHOT_"`

	// AppData is the path or http(s) URL of a JSON document dispatched on
	// startup.
	AppData string `json:"appData,omitempty" env:"APP_DATA"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of log, debug, info, warn, error or off.
	Level string `json:"level,omitempty" env:"LEVEL"`

	// Format is text or json.
	Format string `json:"format,omitempty" env:"FORMAT"`

	// Tag is attached to every record when set.
	Tag string `json:"tag,omitempty" env:"TAG"`
}

// ServerConfig configures the HTTP inspection server.
type ServerConfig struct {
	Host string `json:"host,omitempty" env:"HOST"`
	Port int    `json:"port,omitempty" env:"PORT"`

	// SendBuffer is the number of frames queued per WebSocket connection
	// before frames are dropped.
	SendBuffer int `json:"sendBuffer,omitempty" env:"SEND_BUFFER"`
}

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" env:"ENABLED"`
	Namespace string `json:"namespace,omitempty" env:"NAMESPACE"`
}

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" env:"ENABLED"`
	TracerName string `json:"tracerName,omitempty" env:"TRACER_NAME"`

	// Endpoint is the OTLP/HTTP collector URL spans are exported to.
	Endpoint string `json:"endpoint,omitempty" env:"ENDPOINT"`
}

// SnapshotConfig configures where snapshots are archived. Archiving is
// disabled while Bucket is empty.
type SnapshotConfig struct {
	Bucket   string `json:"bucket,omitempty" env:"BUCKET"`
	Prefix   string `json:"prefix,omitempty" env:"PREFIX"`
	Region   string `json:"region,omitempty" env:"REGION"`
	Endpoint string `json:"endpoint,omitempty" env:"ENDPOINT"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Server: ServerConfig{
			Host:       DefaultHost,
			Port:       DefaultPort,
			SendBuffer: DefaultSendBuffer,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Snapshot: SnapshotConfig{
			Prefix: DefaultSnapshotPrefix,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for tower.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("T141").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		return nil, errors.New("T120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("T120").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Resolve builds the effective configuration: the file at path, or the
// nearest tower.json above the working directory when path is empty, then
// environment overrides, then validation. Without any file the defaults
// are used.
func Resolve(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path != "" {
		cfg, err = LoadFile(path)
	} else {
		cfg, err = LoadFromWorkingDir()
		if te, ok := err.(*errors.TowerError); ok && te.Code == "T141" {
			cfg, err = New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides configuration values with TOWER_* environment
// variables. Unset variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New("T121").Wrap(err)
	}
	c.applyDefaults()
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.SendBuffer == 0 {
		c.Server.SendBuffer = DefaultSendBuffer
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Snapshot.Prefix == "" {
		c.Snapshot.Prefix = DefaultSnapshotPrefix
	}
}

var logLevels = map[string]bool{
	"log": true, "debug": true, "info": true, "warn": true, "error": true, "off": true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !logLevels[c.Logging.Level] {
		return errors.New("T122").
			WithDetail(fmt.Sprintf("logging.level %q is not one of log, debug, info, warn, error, off", c.Logging.Level))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return errors.New("T122").
			WithDetail(fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("T122").
			WithDetail("Port must be between 0 and 65535")
	}
	if c.Server.SendBuffer < 0 {
		return errors.New("T122").
			WithDetail("server.sendBuffer must not be negative")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("T122").
			WithDetail("tracing.endpoint is required when tracing is enabled")
	}
	for name, level := range c.Channels {
		if name == "" {
			return errors.New("T122").
				WithDetail("channels contains an empty channel name")
		}
		if level < 0 {
			return errors.New("T122").
				WithDetail(fmt.Sprintf("channels.%s log level must not be negative", name))
		}
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the base URL of the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// AppDataPath returns the app data source, or "" when none is configured.
// http and https URLs are returned as is; file paths are resolved against
// the config directory.
func (c *Config) AppDataPath() string {
	if c.AppData == "" || filepath.IsAbs(c.AppData) || isURL(c.AppData) {
		return c.AppData
	}
	return filepath.Join(c.Dir(), c.AppData)
}

// ArchivingEnabled reports whether a snapshot bucket is configured.
func (c *Config) ArchivingEnabled() bool {
	return c.Snapshot.Bucket != ""
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory holding
// tower.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("T141").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest parent holding tower.json.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
