package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/diskviz/pkg/diskviz/logging"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// EnvPrefix prefixes environment overrides, e.g. DISKVIZ_SCAN_WORKERS.
const EnvPrefix = "DISKVIZ"

// ScanConfig maps onto types.ScanOptions.
type ScanConfig struct {
	Workers               int      `mapstructure:"workers"`
	IncludeHidden         bool     `mapstructure:"include_hidden"`
	IncludePackages       bool     `mapstructure:"include_packages"`
	ExcludeSystemMetadata bool     `mapstructure:"exclude_system_metadata"`
	FollowSymlinks        bool     `mapstructure:"follow_symlinks"`
	Exclude               []string `mapstructure:"exclude"`
}

// ReportConfig configures how scan results are presented.
type ReportConfig struct {
	Metric string `mapstructure:"metric"`
	Format string `mapstructure:"format"`
	Top    int    `mapstructure:"top"`
	Depth  int    `mapstructure:"depth"`
	SI     bool   `mapstructure:"si"`
}

// SnapshotConfig configures the snapshot history store.
type SnapshotConfig struct {
	Path      string `mapstructure:"path"`
	Retention int    `mapstructure:"retention"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	MaxSize      string            `mapstructure:"max_size"`
	MaxBackups   int               `mapstructure:"max_backups"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Components   map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	Scan      ScanConfig     `mapstructure:"scan"`
	Report    ReportConfig   `mapstructure:"report"`
	Snapshots SnapshotConfig `mapstructure:"snapshots"`
	Logging   LoggingConfig  `mapstructure:"logging"`
}

// Configure prepares v to read the configuration: an explicit file when
// file is non-empty, otherwise config.yaml from ConfigDir. Environment
// variables prefixed with DISKVIZ_ override file values.
func Configure(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scan.workers", DefaultWorkers)
	v.SetDefault("scan.include_hidden", true)
	v.SetDefault("scan.include_packages", true)
	v.SetDefault("scan.exclude_system_metadata", true)
	v.SetDefault("scan.follow_symlinks", false)
	v.SetDefault("scan.exclude", DefaultExclusions)

	v.SetDefault("report.metric", DefaultMetric)
	v.SetDefault("report.format", DefaultFormat)
	v.SetDefault("report.top", DefaultTop)
	v.SetDefault("report.depth", DefaultDepth)
	v.SetDefault("report.si", false)

	v.SetDefault("snapshots.path", "") // empty means SnapshotDir()
	v.SetDefault("snapshots.retention", DefaultRetention)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // empty means logging.DefaultLogPath()
	v.SetDefault("logging.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.components", map[string]string{
		"scanner": "info",
		"tui":     "info",
	})
}

// Read reads the configured file, if any, and unmarshals v. A missing
// config file is not an error.
func Read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.Snapshots.Path, err = ExpandPath(cfg.Snapshots.Path); err != nil {
		return nil, err
	}
	if cfg.Snapshots.Path == "" {
		cfg.Snapshots.Path = SnapshotDir()
	}
	if cfg.Logging.Path, err = ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads the configuration from the default locations and environment.
func Load() (*Config, error) {
	v := viper.New()
	Configure(v, "")
	return Read(v)
}

// ScanOptions converts the scan section into scanner options.
func (c *Config) ScanOptions() types.ScanOptions {
	return types.ScanOptions{
		IncludeHidden:         c.Scan.IncludeHidden,
		IncludePackages:       c.Scan.IncludePackages,
		ExcludeSystemMetadata: c.Scan.ExcludeSystemMetadata,
		FollowSymlinks:        c.Scan.FollowSymlinks,
		ConcurrentWorkers:     c.Scan.Workers,
		Exclude:               append([]string(nil), c.Scan.Exclude...),
	}
}

// Metric parses the configured report metric.
func (c *Config) Metric() (types.SizeMetric, error) {
	return types.ParseSizeMetric(c.Report.Metric)
}

// LoggingConfig converts the logging section for logging.Init.
func (c *Config) LoggingConfig() (logging.Config, error) {
	out := logging.Config{
		Level:        c.Logging.Level,
		Path:         c.Logging.Path,
		MaxBackups:   c.Logging.MaxBackups,
		ConsoleLevel: c.Logging.ConsoleLevel,
		Components:   c.Logging.Components,
	}
	if out.Path == "" {
		out.Path = logging.DefaultLogPath()
	}
	if c.Logging.MaxSize != "" {
		size, err := types.ParseSize(c.Logging.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("logging.max_size: %w", err)
		}
		out.MaxSize = int64(size)
	}
	return out, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/diskviz.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "diskviz")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns $XDG_DATA_HOME/diskviz for the snapshot store.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "diskviz")
}

// StateDir returns $XDG_STATE_HOME/diskviz for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "diskviz")
}

// SnapshotDir returns the default snapshot store directory.
func SnapshotDir() string {
	return filepath.Join(DataDir(), "snapshots")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a commented default config file to path unless one
// already exists. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfig()), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}

	return true, nil
}

func defaultConfig() string {
	return fmt.Sprintf(`# diskviz configuration

scan:
  # Concurrent directory workers (0 picks a value from the CPU count)
  workers: %d
  # Include entries whose name starts with a dot
  include_hidden: true
  # Descend into .app and .framework bundles
  include_packages: true
  # Skip .Spotlight-V100, .fseventsd, .Trashes and System Volume Information
  exclude_system_metadata: true
  # Scan the targets of symbolic links
  follow_symlinks: false
  # Glob patterns matched against entry names and root-relative paths
  exclude: []

report:
  # Size metric: allocated or logical
  metric: %s
  # Output format: pretty, plain, paths, json, yaml, treemap, layout
  format: %s
  # Children listed per directory
  top: %d
  # Directory levels to descend
  depth: %d
  # Decimal units (kB, MB) instead of binary ones (KiB, MiB)
  si: false

snapshots:
  # Snapshot store directory (empty means %s)
  path: ""
  # Snapshots kept per scanned path
  retention: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means %s)
  path: ""
  max_size: %s
  max_backups: %d
  # Mirror records at or above this level to stderr (empty disables)
  console_level: ""
  # Per-component log levels
  components:
    scanner: info
    tui: info
`, DefaultWorkers, DefaultMetric, DefaultFormat, DefaultTop, DefaultDepth,
		SnapshotDir(), DefaultRetention, logging.DefaultLogPath(), DefaultLogMaxSize, DefaultLogMaxBackups)
}
