package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when the tactic suggester has no credentials.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv     KeySource = "environment"
	KeySourceConfig  KeySource = "config_file"
	KeySourceBedrock KeySource = "aws"
	KeySourceNone    KeySource = "none"
)

// ResolveAPIKey returns the Anthropic API key for the tactic suggester and
// where it came from. ANTHROPIC_API_KEY wins over the config file. With
// Bedrock enabled no key is needed and ("", KeySourceBedrock, nil) is
// returned.
func ResolveAPIKey(cfg *Config) (string, KeySource, error) {
	if cfg != nil && cfg.Tactics.UseBedrock {
		return "", KeySourceBedrock, nil
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, KeySourceEnv, nil
	}
	if cfg != nil {
		if key := expandEnv(cfg.Tactics.APIKey); key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig, nil
		}
	}
	return "", KeySourceNone, ErrNoAPIKey
}

// ValidateAPIKey performs a format check only; the key is not sent anywhere.
func ValidateAPIKey(key string) error {
	switch {
	case key == "":
		return ErrNoAPIKey
	case !strings.HasPrefix(key, "sk-ant-"):
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	case len(key) < 20:
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey returns the key with everything but the prefix and the last
// four characters hidden.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
