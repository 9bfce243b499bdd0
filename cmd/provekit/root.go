package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/provekit/internal/client"
	"github.com/ShayCichocki/provekit/internal/config"
	"github.com/ShayCichocki/provekit/internal/history"
	"github.com/ShayCichocki/provekit/internal/logging"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// app carries state shared by all subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "provekit",
		Short: "Verify formal proofs across theorem provers",
		Long: `provekit verifies proof scripts with one of twelve theorem provers and
SMT solvers (Agda, Coq, Lean, Isabelle, Z3, cvc5, Metamath, HOL Light,
Mizar, PVS, ACL2, HOL4).

Proofs are sent to a remote verification service when one is configured and
healthy, and otherwise checked by running the prover locally.

Configuration is read from ~/.config/provekit/config.yaml, a .provekit.yaml
in the current directory or a parent, and PROVEKIT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: XDG and project config)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console or json")

	rootCmd.AddCommand(newVerifyCmd(a))
	rootCmd.AddCommand(newProversCmd(a))
	rootCmd.AddCommand(newHealthCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newSuggestCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

// setup loads configuration and builds the logger.
func (a *app) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newClient builds a session client from the loaded configuration,
// attaching the history store when enabled. The returned cleanup closes both.
func (a *app) newClient() (*client.Client, func(), error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cc, err := a.cfg.ClientConfig()
	if err != nil {
		return nil, nil, err
	}

	opts := []client.Option{client.WithLogger(a.logger)}

	var store *history.DB
	if a.cfg.History.Enabled {
		store, err = history.Open(a.cfg.HistoryPath(), history.WithLogger(a.logger))
		if err != nil {
			a.logger.Warn("history disabled", zap.Error(err))
		} else {
			opts = append(opts, client.WithRecorder(store))
		}
	}

	c, err := client.New(cc, opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if err := c.Close(); err != nil {
			a.logger.Debug("close client", zap.Error(err))
		}
		if store != nil {
			store.Close()
		}
	}
	return c, cleanup, nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	return run(ctx, a, os.Args[1:])
}

func run(ctx context.Context, a *app, args []string) int {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// exitCode maps errors to process exit codes: 1 for a proof that did not
// verify in --strict mode or an unhealthy service, 2 for everything else.
func exitCode(err error) int {
	if errors.Is(err, models.ErrVerificationFailed) || errors.Is(err, models.ErrConnectionFailed) {
		return 1
	}
	return 2
}
