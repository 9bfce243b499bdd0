package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/provekit/internal/config"
	"github.com/ShayCichocki/provekit/internal/tactics"
	"github.com/ShayCichocki/provekit/pkg/models"
)

func newSuggestCmd(a *app) *cobra.Command {
	var (
		prover      string
		goalFile    string
		contextFile string
		outputFile  string
		limit       int
		format      string
	)

	cmd := &cobra.Command{
		Use:   "suggest [goal]",
		Short: "Suggest tactics for a proof goal",
		Long: `Ask Claude for tactics that make progress on a goal.

The goal is taken from the argument or --goal-file. The surrounding proof
script and the prover's last output can be supplied for context.

Requires ANTHROPIC_API_KEY, tactics.api_key, or tactics.use_bedrock with AWS
credentials.`,
		Example: `  provekit suggest --prover lean "∀ n : Nat, n + 0 = n"
  provekit suggest -p coq --goal-file goal.txt --context-file Nat.v`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if prover == "" {
				return fmt.Errorf("--prover is required")
			}
			kind, err := models.ParseProverKind(prover)
			if err != nil {
				return err
			}

			req := tactics.Request{Prover: kind, Max: limit}
			switch {
			case len(args) == 1:
				req.Goal = args[0]
			case goalFile != "":
				if req.Goal, err = readText(goalFile); err != nil {
					return err
				}
			default:
				return fmt.Errorf("a goal argument or --goal-file is required")
			}
			if contextFile != "" {
				if req.Context, err = readText(contextFile); err != nil {
					return err
				}
			}
			if outputFile != "" {
				if req.ProverOutput, err = readText(outputFile); err != nil {
					return err
				}
			}

			key, _, err := config.ResolveAPIKey(a.cfg)
			if err != nil {
				return err
			}
			s, err := tactics.NewAnthropic(tactics.Config{
				Model:          a.cfg.Tactics.Model,
				APIKey:         key,
				UseBedrock:     a.cfg.Tactics.UseBedrock,
				AWSRegion:      a.cfg.Tactics.AWSRegion,
				AWSProfile:     a.cfg.Tactics.AWSProfile,
				MaxSuggestions: a.cfg.Tactics.MaxSuggestions,
				Logger:         a.logger,
			})
			if err != nil {
				return err
			}

			suggestions, err := s.Suggest(cmd.Context(), req)
			if err != nil {
				return err
			}

			if format != formatText {
				return encode(a.stdout, format, suggestions)
			}
			for i, sg := range suggestions {
				fmt.Fprintf(a.stdout, "%d. %s  %s\n", i+1, color.CyanString(sg.Tactic),
					color.New(color.Faint).Sprintf("(%.0f%%)", sg.Confidence*100))
				if sg.Explanation != "" {
					fmt.Fprintf(a.stdout, "   %s\n", sg.Explanation)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&prover, "prover", "p", "", "Prover the goal is written for")
	f.StringVar(&goalFile, "goal-file", "", "Read the goal from a file")
	f.StringVar(&contextFile, "context-file", "", "Proof script surrounding the goal")
	f.StringVar(&outputFile, "prover-output", "", "File with the prover's last output")
	f.IntVarP(&limit, "max", "n", 0, "Maximum suggestions (default from config)")
	f.StringVarP(&format, "format", "o", formatText, "Output format: text, json or yaml")
	return cmd
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
