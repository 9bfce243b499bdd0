package main

import (
	"fmt"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/provekit/internal/registry"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// proverInfo is the listing row for one prover.
type proverInfo struct {
	ID         int         `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Display    string      `json:"display_name" yaml:"display_name"`
	Tier       models.Tier `json:"tier" yaml:"tier"`
	Executable string      `json:"executable" yaml:"executable"`
	Extensions []string    `json:"extensions" yaml:"extensions"`
	Invocation string      `json:"invocation" yaml:"invocation"`
	Installed  bool        `json:"installed" yaml:"installed"`
}

func newProversCmd(a *app) *cobra.Command {
	var (
		format string
		tier   int
	)

	cmd := &cobra.Command{
		Use:   "provers",
		Short: "List supported provers",
		Long: `List every supported prover with its tier, executable, file extensions
and whether the executable is found on PATH.

Tier 1 provers are fully supported, tier 2 are supported, tier 3 are stubs
kept for completeness.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			overrides, err := a.cfg.ExecutableOverrides()
			if err != nil {
				return err
			}

			var rows []proverInfo
			for _, p := range registry.All() {
				if tier != 0 && int(p.Tier) != tier {
					continue
				}
				exe := p.Executable
				if o, ok := overrides[p.Kind]; ok {
					exe = o
				}
				_, lookErr := exec.LookPath(exe)
				rows = append(rows, proverInfo{
					ID:         int(p.Kind),
					Name:       p.Kind.String(),
					Display:    p.DisplayName,
					Tier:       p.Tier,
					Executable: exe,
					Extensions: p.Extensions,
					Invocation: p.Invocation.Name(),
					Installed:  lookErr == nil,
				})
			}

			if format != formatText {
				return encode(a.stdout, format, rows)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROVER\tTIER\tEXECUTABLE\tEXTENSIONS\tINSTALLED")
			for _, r := range rows {
				installed := color.RedString("no")
				if r.Installed {
					installed = color.GreenString("yes")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Display, tierLabel(r.Tier), r.Executable,
					strings.Join(r.Extensions, " "), installed)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatText, "Output format: text, json or yaml")
	cmd.Flags().IntVar(&tier, "tier", 0, "Only list provers of this tier (1-3)")
	return cmd
}
