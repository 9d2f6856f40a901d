// Package config loads service configuration from config.yaml and THERMALPRINT_ environment variables
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Printer  PrinterConfig  `mapstructure:"printer"`
	Settings SettingsConfig `mapstructure:"settings"`
	Database DatabaseConfig `mapstructure:"database"`
	Registry RegistryConfig `mapstructure:"registry"`
	Spool    SpoolConfig    `mapstructure:"spool"`
	Network  NetworkConfig  `mapstructure:"network"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig is the HTTP listener of the print endpoint
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LoggingConfig selects level, encoding and destination of logs
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// PrinterConfig holds server-side printer connection defaults
type PrinterConfig struct {
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	DefaultBaudRate int           `mapstructure:"default_baud_rate"`
	CodePage        string        `mapstructure:"code_page"`
	Width           int           `mapstructure:"width"`
	BluetoothScan   time.Duration `mapstructure:"bluetooth_scan"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"` // 0 disables the device monitor
}

// SettingsConfig selects where AppSettings are stored
type SettingsConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// DatabaseConfig is used by the postgres settings backend
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RegistryConfig locates the authorized-device registry
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// SpoolConfig is where the HTML driver writes print documents
type SpoolConfig struct {
	Dir string `mapstructure:"dir"`
}

// NetworkConfig configures the network driver's HTTP client
type NetworkConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// MetricsConfig toggles the /metrics endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Settings backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Load reads configuration. configFile may be empty, in which case config.yaml
// is looked up in the working directory and ./config; a missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("THERMALPRINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "12212")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("printer.connect_timeout", 5*time.Second)
	v.SetDefault("printer.default_baud_rate", 9600)
	v.SetDefault("printer.code_page", "")
	v.SetDefault("printer.width", 48)
	v.SetDefault("printer.bluetooth_scan", 5*time.Second)
	v.SetDefault("printer.monitor_interval", 2*time.Second)

	v.SetDefault("settings.backend", BackendFile)
	v.SetDefault("settings.path", "./data/settings.json")
	v.SetDefault("database.dsn", "")
	v.SetDefault("registry.path", "./data/devices.json")
	v.SetDefault("spool.dir", "./data/spool")
	v.SetDefault("network.timeout", 10*time.Second)
	v.SetDefault("metrics.enabled", true)
}

func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q", cfg.Logging.Format)
	}

	switch cfg.Settings.Backend {
	case BackendFile:
		if cfg.Settings.Path == "" {
			return fmt.Errorf("settings.path is required for the file backend")
		}
	case BackendPostgres:
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid settings.backend %q", cfg.Settings.Backend)
	}

	if cfg.Printer.DefaultBaudRate <= 0 {
		return fmt.Errorf("printer.default_baud_rate must be positive")
	}
	if cfg.Printer.ConnectTimeout <= 0 {
		return fmt.Errorf("printer.connect_timeout must be positive")
	}
	if cfg.Printer.Width != 32 && cfg.Printer.Width != 42 && cfg.Printer.Width != 48 {
		return fmt.Errorf("printer.width must be 32, 42 or 48")
	}

	return nil
}
