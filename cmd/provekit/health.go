package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/provekit/pkg/models"
)

type healthReport struct {
	Endpoint           string `json:"endpoint" yaml:"endpoint"`
	RemoteHealthy      bool   `json:"remote_healthy" yaml:"remote_healthy"`
	SubprocessFallback bool   `json:"subprocess_fallback" yaml:"subprocess_fallback"`
	Healthy            bool   `json:"healthy" yaml:"healthy"`
}

func newHealthCmd(a *app) *cobra.Command {
	var (
		format   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether proofs can be verified",
		Long: `Probe the remote verification service and report whether proofs can be
verified, either remotely or through local fallback. Exits 1 when neither is
available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if endpoint != "" {
				a.cfg.Endpoint = endpoint
			}

			c, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			report := healthReport{
				Endpoint:           c.Endpoint(),
				RemoteHealthy:      c.RemoteHealthy(ctx),
				SubprocessFallback: c.SubprocessFallback(),
				Healthy:            c.HealthCheck(ctx),
			}

			if format != formatText {
				if err := encode(a.stdout, format, report); err != nil {
					return err
				}
			} else {
				printHealth(a, report)
			}

			if !report.Healthy {
				return fmt.Errorf("%w: no usable verification backend", models.ErrConnectionFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatText, "Output format: text, json or yaml")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Remote verification service URL")
	return cmd
}

func printHealth(a *app, r healthReport) {
	switch {
	case r.Endpoint == "":
		fmt.Fprintf(a.stdout, "remote:   %s\n", color.New(color.Faint).Sprint("not configured"))
	case r.RemoteHealthy:
		fmt.Fprintf(a.stdout, "remote:   %s %s\n", color.GreenString("healthy"), r.Endpoint)
	default:
		fmt.Fprintf(a.stdout, "remote:   %s %s\n", color.RedString("unreachable"), r.Endpoint)
	}

	if r.SubprocessFallback {
		fmt.Fprintf(a.stdout, "fallback: %s\n", color.GreenString("enabled"))
	} else {
		fmt.Fprintf(a.stdout, "fallback: %s\n", color.YellowString("disabled"))
	}

	if r.Healthy {
		fmt.Fprintf(a.stdout, "status:   %s\n", color.GreenString("ready"))
	} else {
		fmt.Fprintf(a.stdout, "status:   %s\n", color.RedString("unavailable"))
	}
}
