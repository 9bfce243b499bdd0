package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/provekit/internal/history"
	"github.com/ShayCichocki/provekit/internal/watch"
	"github.com/ShayCichocki/provekit/pkg/models"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		prover    string
		recursive bool
		debounce  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Re-verify proof files when they change",
		Long: `Watch directories and verify each proof file after it is written.
Files are matched to provers by extension unless --prover is given.
Stop with Ctrl-C.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []watch.Option{
				watch.WithDebounce(debounce),
				watch.WithRecursive(recursive),
				watch.WithLogger(a.logger),
			}
			if prover != "" {
				kind, err := models.ParseProverKind(prover)
				if err != nil {
					return err
				}
				opts = append(opts, watch.WithProver(kind))
			}

			c, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			w := watch.New(sourceLabeler{c}, opts...)
			fmt.Fprintf(a.stdout, "watching %v (Ctrl-C to stop)\n", args)

			return w.Run(cmd.Context(), func(e watch.Event) {
				ts := color.New(color.Faint).Sprint(time.Now().Format("15:04:05"))
				if e.Err != nil {
					fmt.Fprintf(a.stdout, "%s %s %s: %v\n", ts, statusLabel(models.StatusError), e.Path, e.Err)
					a.logger.Debug("verification error", zap.String("path", e.Path), zap.Error(e.Err))
					return
				}
				fmt.Fprintf(a.stdout, "%s %s %s [%s] %s (%dms)\n",
					ts, statusLabel(e.Result.Status), e.Path, e.Prover, e.Result.Message, e.Result.DurationMs)
			}, args...)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&prover, "prover", "p", "", "Prover to use for every file")
	f.BoolVarP(&recursive, "recursive", "r", false, "Watch subdirectories")
	f.DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before verifying a changed file")
	return cmd
}

// sourceLabeler tags history records with the watched file.
type sourceLabeler struct {
	v watch.Verifier
}

func (s sourceLabeler) VerifyProof(ctx context.Context, kind models.ProverKind, content []byte, filename string) (*models.ProofResult, error) {
	return s.v.VerifyProof(history.WithSource(ctx, filename), kind, content, filename)
}
