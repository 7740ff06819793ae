// Package config loads application configuration from file and environment.
package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Screening  ScreeningConfig  `yaml:"screening" mapstructure:"screening"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates the data directory and the artifacts under it.
type PathsConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	DBPath  string `yaml:"db_path" mapstructure:"db_path"`
	OutDir  string `yaml:"out_dir" mapstructure:"out_dir"`
}

// SnapshotDir returns the directory holding bundled feed snapshots.
func (p PathsConfig) SnapshotDir() string { return filepath.Join(p.DataDir, "snapshots") }

// LogDir returns the directory holding per-source refresh logs.
func (p PathsConfig) LogDir() string { return filepath.Join(p.DataDir, "logs") }

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	MaxRequestMB int    `yaml:"max_request_mb" mapstructure:"max_request_mb"`
	AdminKey     string `yaml:"admin_key" mapstructure:"admin_key"`
}

// ScreeningConfig configures scoring and decision behavior.
type ScreeningConfig struct {
	ShowSlightMatches bool   `yaml:"show_slight_matches" mapstructure:"show_slight_matches"`
	PolicyPath        string `yaml:"policy_path" mapstructure:"policy_path"`
	Environment       string `yaml:"environment" mapstructure:"environment"`
}

// FetchConfig configures feed downloads during a refresh.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Parallelism int    `yaml:"parallelism" mapstructure:"parallelism"`
	SourceURLs  string `yaml:"source_urls" mapstructure:"source_urls"`
}

// SourceURLOverrides parses the comma-separated SOURCE=url override list.
func (f FetchConfig) SourceURLOverrides() map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(f.SourceURLs, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, url, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(url) == "" {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(name))] = strings.TrimSpace(url)
	}
	return out
}

// AuditConfig configures the optional Postgres audit sink.
type AuditConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// MonitoringConfig configures feed health alerting.
type MonitoringConfig struct {
	WebhookURL        string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	StaleHours        int     `yaml:"stale_hours" mapstructure:"stale_hours"`
	CheckIntervalSecs int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	RowDropThreshold  float64 `yaml:"row_drop_threshold" mapstructure:"row_drop_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("amlscreen")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AML")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.data_dir", "./data")
	v.SetDefault("paths.db_path", "")
	v.SetDefault("paths.out_dir", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_request_mb", 5)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("screening.show_slight_matches", false)
	v.SetDefault("screening.policy_path", "")
	v.SetDefault("screening.environment", "dev")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.parallelism", 8)
	v.SetDefault("fetch.source_urls", "")
	v.SetDefault("audit.dsn", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.stale_hours", 48)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.row_drop_threshold", 0.5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Paths.DBPath == "" {
		cfg.Paths.DBPath = filepath.Join(cfg.Paths.DataDir, "sanctions.db")
	}
	if cfg.Paths.OutDir == "" {
		cfg.Paths.OutDir = filepath.Join(cfg.Paths.DataDir, "out")
	}

	return &cfg, nil
}

// Validate checks configuration invariants for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Fetch.TimeoutSecs <= 0 {
		problems = append(problems, "fetch.timeout_secs must be > 0")
	}
	if c.Fetch.Parallelism < 1 || c.Fetch.Parallelism > 64 {
		problems = append(problems, "fetch.parallelism must be between 1 and 64")
	}

	switch mode {
	case "refresh", "screen", "status":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.MaxRequestMB <= 0 {
			problems = append(problems, "server.max_request_mb must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
