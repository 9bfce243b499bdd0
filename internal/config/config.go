// Package config handles configuration loading and management for provekit.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/provekit/internal/client"
	"github.com/ShayCichocki/provekit/internal/logging"
	"github.com/ShayCichocki/provekit/pkg/models"
)

const (
	appName           = "provekit"
	projectConfigName = ".provekit.yaml"
	envPrefix         = "PROVEKIT"
)

// Config holds all configuration for provekit.
type Config struct {
	Endpoint           string            `mapstructure:"endpoint"`
	Timeout            time.Duration     `mapstructure:"timeout"`
	SubprocessFallback bool              `mapstructure:"subprocess_fallback"`
	OutputLimit        int               `mapstructure:"output_limit"`
	ScratchDir         string            `mapstructure:"scratch_dir"`
	Concurrency        int               `mapstructure:"concurrency"`
	Provers            map[string]string `mapstructure:"provers"`
	Remote             RemoteConfig      `mapstructure:"remote"`
	Log                LogConfig         `mapstructure:"log"`
	History            HistoryConfig     `mapstructure:"history"`
	Tactics            TacticsConfig     `mapstructure:"tactics"`
}

// RemoteConfig throttles requests to the verification service.
type RemoteConfig struct {
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HistoryConfig controls the result history store.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is the SQLite database file. Empty means the XDG data directory.
	Path string `mapstructure:"path"`
}

// TacticsConfig holds settings for the tactic suggester.
type TacticsConfig struct {
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	UseBedrock     bool   `mapstructure:"use_bedrock"`
	AWSRegion      string `mapstructure:"aws_region"`
	AWSProfile     string `mapstructure:"aws_profile"`
	MaxSuggestions int    `mapstructure:"max_suggestions"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (PROVEKIT_*, ANTHROPIC_API_KEY)
// 2. Project config (.provekit.yaml in current directory or parent)
// 3. User config (~/.config/provekit/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file on top of the defaults.
// Environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("tactics.api_key", "PROVEKIT_TACTICS_API_KEY", "ANTHROPIC_API_KEY")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Tactics.APIKey = expandEnv(cfg.Tactics.APIKey)
	cfg.ScratchDir = expandEnv(cfg.ScratchDir)
	cfg.History.Path = expandEnv(cfg.History.Path)
	for name, exe := range cfg.Provers {
		cfg.Provers[name] = expandEnv(exe)
	}

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveToPath(cfg, GetUserConfigPath())
}

// SaveToPath writes the configuration to path, creating parent directories.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)

	v.Set("endpoint", cfg.Endpoint)
	v.Set("timeout", cfg.Timeout.String())
	v.Set("subprocess_fallback", cfg.SubprocessFallback)
	v.Set("output_limit", cfg.OutputLimit)
	v.Set("scratch_dir", cfg.ScratchDir)
	v.Set("concurrency", cfg.Concurrency)
	if len(cfg.Provers) > 0 {
		v.Set("provers", cfg.Provers)
	}
	v.Set("remote.rate_limit", cfg.Remote.RateLimit)
	v.Set("remote.burst", cfg.Remote.Burst)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("history.path", cfg.History.Path)
	v.Set("tactics.model", cfg.Tactics.Model)
	v.Set("tactics.use_bedrock", cfg.Tactics.UseBedrock)
	v.Set("tactics.aws_region", cfg.Tactics.AWSRegion)
	v.Set("tactics.aws_profile", cfg.Tactics.AWSProfile)
	v.Set("tactics.max_suggestions", cfg.Tactics.MaxSuggestions)
	// The API key is never written back; it belongs in the environment.

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultHistoryPath returns the history database location under the XDG
// data directory.
func DefaultHistoryPath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName, "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", appName, "history.db")
	}
	return filepath.Join(home, ".local", "share", appName, "history.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("timeout", d.Timeout.String())
	v.SetDefault("subprocess_fallback", d.SubprocessFallback)
	v.SetDefault("output_limit", d.OutputLimit)
	v.SetDefault("scratch_dir", d.ScratchDir)
	v.SetDefault("concurrency", d.Concurrency)

	v.SetDefault("remote.rate_limit", d.Remote.RateLimit)
	v.SetDefault("remote.burst", d.Remote.Burst)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)

	v.SetDefault("tactics.model", d.Tactics.Model)
	v.SetDefault("tactics.api_key", d.Tactics.APIKey)
	v.SetDefault("tactics.use_bedrock", d.Tactics.UseBedrock)
	v.SetDefault("tactics.aws_region", d.Tactics.AWSRegion)
	v.SetDefault("tactics.aws_profile", d.Tactics.AWSProfile)
	v.SetDefault("tactics.max_suggestions", d.Tactics.MaxSuggestions)
}

// getUserConfigDir returns the XDG config directory for provekit.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// findProjectConfig searches for .provekit.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, projectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Timeout:            client.DefaultTimeout,
		SubprocessFallback: true,
		OutputLimit:        4 << 20,
		Concurrency:        4,
		Remote: RemoteConfig{
			RateLimit: 10,
			Burst:     5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Tactics: TacticsConfig{
			MaxSuggestions: 5,
		},
	}
}

// Validate checks values that cannot be caught by unmarshaling.
func (c *Config) Validate() error {
	var errs []error

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.OutputLimit <= 0 {
		errs = append(errs, fmt.Errorf("output_limit must be positive, got %d", c.OutputLimit))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.Remote.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("remote.rate_limit must not be negative, got %v", c.Remote.RateLimit))
	}
	if c.Remote.Burst < 0 {
		errs = append(errs, fmt.Errorf("remote.burst must not be negative, got %d", c.Remote.Burst))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format must be %q or %q, got %q",
			logging.FormatConsole, logging.FormatJSON, c.Log.Format))
	}
	if c.Tactics.MaxSuggestions < 0 {
		errs = append(errs, fmt.Errorf("tactics.max_suggestions must not be negative, got %d", c.Tactics.MaxSuggestions))
	}
	if _, err := c.ExecutableOverrides(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ExecutableOverrides converts the provers map to prover kinds. Unknown
// prover names are an error.
func (c *Config) ExecutableOverrides() (map[models.ProverKind]string, error) {
	if len(c.Provers) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(c.Provers))
	for name := range c.Provers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[models.ProverKind]string, len(names))
	for _, name := range names {
		kind, err := models.ParseProverKind(name)
		if err != nil {
			return nil, fmt.Errorf("provers.%s: %w", name, err)
		}
		if exe := c.Provers[name]; exe != "" {
			out[kind] = exe
		}
	}
	return out, nil
}

// ClientConfig builds the session configuration.
func (c *Config) ClientConfig() (client.Config, error) {
	overrides, err := c.ExecutableOverrides()
	if err != nil {
		return client.Config{}, err
	}
	return client.Config{
		Endpoint:              c.Endpoint,
		Timeout:               c.Timeout,
		UseSubprocessFallback: c.SubprocessFallback,
		ExecutableOverrides:   overrides,
		OutputLimit:           c.OutputLimit,
		ScratchDir:            c.ScratchDir,
		RateLimit:             c.Remote.RateLimit,
		Burst:                 c.Remote.Burst,
	}, nil
}

// HistoryPath returns the configured history database or the default.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return DefaultHistoryPath()
}
