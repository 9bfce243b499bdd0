package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/provekit/pkg/models"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q is not structured", format)
	}
}

// statusLabel renders a verdict with a colored marker.
func statusLabel(s models.ProofStatus) string {
	switch s {
	case models.StatusVerified:
		return color.GreenString("✓ verified")
	case models.StatusFailed:
		return color.RedString("✗ failed")
	case models.StatusTimeout:
		return color.YellowString("⏱ timeout")
	case models.StatusError:
		return color.RedString("! error")
	default:
		return color.New(color.Faint).Sprint("? unknown")
	}
}

func tierLabel(t models.Tier) string {
	switch t {
	case models.TierFull:
		return color.GreenString(t.String())
	case models.TierSupported:
		return color.CyanString(t.String())
	default:
		return color.New(color.Faint).Sprint(t.String())
	}
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix) + "\n"
}
