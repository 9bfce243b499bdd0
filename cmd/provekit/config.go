package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/provekit/internal/config"
	"github.com/ShayCichocki/provekit/pkg/models"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Manage configuration",
		Long: `View or modify provekit configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/provekit/config.yaml
Project-specific overrides can be placed in .provekit.yaml
Prover executables are set with keys like provers.z3.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 0:
				displayAllConfig(a)
				return nil
			case 1:
				value, err := getConfigValue(a.cfg, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, value)
				return nil
			default:
				if err := setConfigValue(a.cfg, args[0], args[1]); err != nil {
					return err
				}
				if err := a.cfg.Validate(); err != nil {
					return err
				}
				if err := config.Save(a.cfg); err != nil {
					return fmt.Errorf("saving config: %w", err)
				}
				fmt.Fprintf(a.stdout, "Set %s = %s\n", args[0], args[1])
				return nil
			}
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print configuration file locations",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "user:    %s\n", config.GetUserConfigPath())
			project := config.GetProjectConfigPath()
			if project == "" {
				project = "(none)"
			}
			fmt.Fprintf(a.stdout, "project: %s\n", project)
			fmt.Fprintf(a.stdout, "history: %s\n", a.cfg.HistoryPath())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "configuration ok")
			return nil
		},
	})

	return cmd
}

var configKeys = []string{
	"endpoint",
	"timeout",
	"subprocess_fallback",
	"output_limit",
	"scratch_dir",
	"concurrency",
	"remote.rate_limit",
	"remote.burst",
	"log.level",
	"log.format",
	"history.enabled",
	"history.path",
	"tactics.model",
	"tactics.api_key",
	"tactics.use_bedrock",
	"tactics.aws_region",
	"tactics.aws_profile",
	"tactics.max_suggestions",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(a *app) {
	for _, key := range configKeys {
		value, _ := getConfigValue(a.cfg, key)
		fmt.Fprintf(a.stdout, "%s: %s\n", key, value)
	}

	names := make([]string, 0, len(a.cfg.Provers))
	for name := range a.cfg.Provers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.stdout, "provers.%s: %s\n", name, a.cfg.Provers[name])
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	key = strings.ToLower(key)
	if name, ok := strings.CutPrefix(key, "provers."); ok {
		kind, err := models.ParseProverKind(name)
		if err != nil {
			return "", err
		}
		if exe, ok := cfg.Provers[kind.String()]; ok {
			return exe, nil
		}
		return cfg.Provers[name], nil
	}

	switch key {
	case "endpoint":
		return cfg.Endpoint, nil
	case "timeout":
		return cfg.Timeout.String(), nil
	case "subprocess_fallback":
		return strconv.FormatBool(cfg.SubprocessFallback), nil
	case "output_limit":
		return strconv.Itoa(cfg.OutputLimit), nil
	case "scratch_dir":
		return cfg.ScratchDir, nil
	case "concurrency":
		return strconv.Itoa(cfg.Concurrency), nil
	case "remote.rate_limit":
		return strconv.FormatFloat(cfg.Remote.RateLimit, 'g', -1, 64), nil
	case "remote.burst":
		return strconv.Itoa(cfg.Remote.Burst), nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.format":
		return cfg.Log.Format, nil
	case "history.enabled":
		return strconv.FormatBool(cfg.History.Enabled), nil
	case "history.path":
		return cfg.HistoryPath(), nil
	case "tactics.model":
		return cfg.Tactics.Model, nil
	case "tactics.api_key":
		key, _, _ := config.ResolveAPIKey(cfg)
		return config.MaskAPIKey(key), nil
	case "tactics.use_bedrock":
		return strconv.FormatBool(cfg.Tactics.UseBedrock), nil
	case "tactics.aws_region":
		return cfg.Tactics.AWSRegion, nil
	case "tactics.aws_profile":
		return cfg.Tactics.AWSProfile, nil
	case "tactics.max_suggestions":
		return strconv.Itoa(cfg.Tactics.MaxSuggestions), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	key = strings.ToLower(key)
	if name, ok := strings.CutPrefix(key, "provers."); ok {
		kind, err := models.ParseProverKind(name)
		if err != nil {
			return err
		}
		if cfg.Provers == nil {
			cfg.Provers = make(map[string]string)
		}
		if value == "" {
			delete(cfg.Provers, kind.String())
		} else {
			cfg.Provers[kind.String()] = value
		}
		return nil
	}

	var err error
	switch key {
	case "endpoint":
		cfg.Endpoint = value
	case "timeout":
		cfg.Timeout, err = parseDuration(key, value)
	case "subprocess_fallback":
		cfg.SubprocessFallback, err = parseBool(key, value)
	case "output_limit":
		cfg.OutputLimit, err = parseInt(key, value)
	case "scratch_dir":
		cfg.ScratchDir = value
	case "concurrency":
		cfg.Concurrency, err = parseInt(key, value)
	case "remote.rate_limit":
		cfg.Remote.RateLimit, err = strconv.ParseFloat(value, 64)
		if err != nil {
			err = fmt.Errorf("invalid number for %s: %w", key, err)
		}
	case "remote.burst":
		cfg.Remote.Burst, err = parseInt(key, value)
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "history.enabled":
		cfg.History.Enabled, err = parseBool(key, value)
	case "history.path":
		cfg.History.Path = value
	case "tactics.model":
		cfg.Tactics.Model = value
	case "tactics.api_key":
		return fmt.Errorf("%s is not stored on disk; set ANTHROPIC_API_KEY instead", key)
	case "tactics.use_bedrock":
		cfg.Tactics.UseBedrock, err = parseBool(key, value)
	case "tactics.aws_region":
		cfg.Tactics.AWSRegion = value
	case "tactics.aws_profile":
		cfg.Tactics.AWSProfile = value
	case "tactics.max_suggestions":
		cfg.Tactics.MaxSuggestions, err = parseInt(key, value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return b, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}
