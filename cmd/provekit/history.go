package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/provekit/internal/history"
	"github.com/ShayCichocki/provekit/pkg/models"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		prover string
		status string
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent verification results",
		Long: `Show verification results recorded in the history database.

Recording is enabled with history.enabled in the config file or
PROVEKIT_HISTORY_ENABLED=true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			var filter history.Filter
			if prover != "" {
				kind, err := models.ParseProverKind(prover)
				if err != nil {
					return err
				}
				filter.Prover = &kind
			}
			if status != "" {
				var s models.ProofStatus
				if err := s.UnmarshalText([]byte(status)); err != nil {
					return err
				}
				filter.Status = &s
			}

			db, err := a.openHistory()
			if err != nil || db == nil {
				return err
			}
			defer db.Close()

			entries, err := db.Recent(cmd.Context(), limit, filter)
			if err != nil {
				return err
			}

			if format != formatText {
				return encode(a.stdout, format, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.stdout, "No results recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tPROVER\tSTATUS\tDURATION\tSOURCE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n",
					e.RecordedAt.Local().Format("2006-01-02 15:04:05"),
					e.Prover, statusLabel(e.Status), e.DurationMs, e.Source)
			}
			return tw.Flush()
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	f.StringVarP(&prover, "prover", "p", "", "Only results from this prover")
	f.StringVar(&status, "status", "", "Only results with this status")
	f.StringVarP(&format, "format", "o", formatText, "Output format: text, json or yaml")

	cmd.AddCommand(newHistoryStatsCmd(a))
	cmd.AddCommand(newHistoryPurgeCmd(a))
	return cmd
}

func newHistoryStatsCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise recorded results per prover",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			db, err := a.openHistory()
			if err != nil || db == nil {
				return err
			}
			defer db.Close()

			stats, err := db.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if format != formatText {
				return encode(a.stdout, format, stats)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVER\tTOTAL\tVERIFIED\tFAILED\tTIMEOUT\tERROR\tAVG")
			for _, s := range stats {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%dms\n", s.Prover, s.Total,
					s.ByStatus[models.StatusVerified], s.ByStatus[models.StatusFailed],
					s.ByStatus[models.StatusTimeout], s.ByStatus[models.StatusError], s.AvgDurationMs)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", formatText, "Output format: text, json or yaml")
	return cmd
}

func newHistoryPurgeCmd(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete old results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			db, err := a.openHistory()
			if err != nil || db == nil {
				return err
			}
			defer db.Close()

			n, err := db.Purge(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted %d result(s) older than %s\n", n, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold")
	return cmd
}

// openHistory opens the configured database. A missing database is not an
// error: it prints a hint and returns (nil, nil).
func (a *app) openHistory() (*history.DB, error) {
	path := a.cfg.HistoryPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		hint := "No history recorded yet."
		if !a.cfg.History.Enabled {
			hint += " Enable it with history.enabled: true."
		}
		fmt.Fprintln(a.stdout, strings.TrimSpace(hint))
		return nil, nil
	}
	return history.Open(path, history.WithLogger(a.logger))
}
