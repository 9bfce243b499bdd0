package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/provekit/internal/client"
	"github.com/ShayCichocki/provekit/internal/history"
	"github.com/ShayCichocki/provekit/internal/registry"
	"github.com/ShayCichocki/provekit/pkg/models"
)

type verifyOptions struct {
	prover     string
	timeout    time.Duration
	endpoint   string
	noFallback bool
	format     string
	strict     bool
	jobs       int
	showOutput bool
}

// fileResult pairs a verdict with the file it belongs to.
type fileResult struct {
	File               string `json:"file" yaml:"file"`
	models.ProofResult `yaml:",inline"`
	Error              string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newVerifyCmd(a *app) *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify [file...]",
		Short: "Verify proof files",
		Long: `Verify one or more proof files.

The prover is detected from each file's extension unless --prover is given.
With no files, or with "-", the proof is read from standard input and
--prover is required.

Exit status is 0 when every verification ran, 1 with --strict when any proof
did not verify, and 2 on usage or configuration errors.`,
		Example: `  provekit verify theories/Nat.v
  provekit verify --prover z3 --timeout 30s problems/*.smt2
  cat goal.lean | provekit verify --prover lean --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVerify(cmd.Context(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.prover, "prover", "p", "", "Prover to use (default: detect from extension)")
	f.DurationVar(&opts.timeout, "timeout", 0, "Per-proof timeout (default from config)")
	f.StringVar(&opts.endpoint, "endpoint", "", "Remote verification service URL")
	f.BoolVar(&opts.noFallback, "no-fallback", false, "Never run provers locally")
	f.StringVarP(&opts.format, "format", "o", formatText, "Output format: text, json or yaml")
	f.BoolVar(&opts.strict, "strict", false, "Exit 1 unless every proof verifies")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "Concurrent verifications (default from config)")
	f.BoolVar(&opts.showOutput, "show-output", false, "Print prover output for proofs that did not verify")

	return cmd
}

type verifyJob struct {
	file    string
	kind    models.ProverKind
	content []byte
}

func (a *app) runVerify(ctx context.Context, opts *verifyOptions, args []string) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	if opts.timeout != 0 {
		a.cfg.Timeout = opts.timeout
	}
	if opts.endpoint != "" {
		a.cfg.Endpoint = opts.endpoint
	}
	if opts.noFallback {
		a.cfg.SubprocessFallback = false
	}
	jobs := opts.jobs
	if jobs <= 0 {
		jobs = a.cfg.Concurrency
	}

	var forced *models.ProverKind
	if opts.prover != "" {
		kind, err := models.ParseProverKind(opts.prover)
		if err != nil {
			return err
		}
		forced = &kind
	}

	work, err := a.planVerify(args, forced)
	if err != nil {
		return err
	}

	c, cleanup, err := a.newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	results := verifyAll(ctx, c, work, jobs)

	if opts.format != formatText {
		if err := encode(a.stdout, opts.format, results); err != nil {
			return err
		}
	} else {
		printResults(a.stdout, results, opts.showOutput)
	}

	if opts.strict {
		failed := 0
		for _, r := range results {
			if !r.Verified() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d proofs", models.ErrVerificationFailed, failed, len(results))
		}
	}
	return nil
}

// planVerify resolves the prover for every input.
func (a *app) planVerify(args []string, forced *models.ProverKind) ([]verifyJob, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}

	work := make([]verifyJob, 0, len(args))
	for _, file := range args {
		if file == "-" {
			if forced == nil {
				return nil, fmt.Errorf("--prover is required when reading from stdin")
			}
			content, err := io.ReadAll(a.stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			work = append(work, verifyJob{file: "<stdin>", kind: *forced, content: content})
			continue
		}

		kind, ok := models.ProverKind(0), false
		if forced != nil {
			kind, ok = *forced, true
		} else {
			kind, ok = registry.FromPath(file)
		}
		if !ok {
			return nil, fmt.Errorf("%w: cannot detect prover for %s (use --prover)", models.ErrProverNotFound, file)
		}
		work = append(work, verifyJob{file: file, kind: kind})
	}
	return work, nil
}

// verifyAll runs the jobs with at most limit in flight and returns results
// in input order.
func verifyAll(ctx context.Context, c *client.Client, work []verifyJob, limit int) []fileResult {
	results := make([]fileResult, len(work))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range work {
		g.Go(func() error {
			rctx := history.WithSource(gctx, job.file)
			res, err := c.VerifyProof(rctx, job.kind, job.content, fileArg(job))
			fr := fileResult{File: job.file}
			if err == nil {
				fr.ProofResult = *res
			} else {
				fr.ProofResult = models.ProofResult{
					Prover:  job.kind,
					Status:  models.StatusError,
					Message: "Verification could not run",
				}
				fr.Error = err.Error()
			}
			results[i] = fr
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fileArg passes real files by name so the prover sees the caller's path;
// stdin content goes through a scratch file.
func fileArg(job verifyJob) string {
	if job.content != nil {
		return ""
	}
	return job.file
}

func printResults(w io.Writer, results []fileResult, showOutput bool) {
	verified := 0
	for _, r := range results {
		if r.Verified() {
			verified++
		}
		fmt.Fprintf(w, "%s  %s [%s] %s (%dms)\n",
			statusLabel(r.Status), r.File, r.Prover, r.Message, r.DurationMs)
		if r.Error != "" {
			fmt.Fprintf(w, "    %s\n", r.Error)
		}
		if showOutput && !r.Verified() && strings.TrimSpace(r.ProverOutput) != "" {
			fmt.Fprint(w, indent(r.ProverOutput, "    | "))
			if r.OutputTruncated {
				fmt.Fprintln(w, "    | ... (output truncated)")
			}
		}
	}
	if len(results) > 1 {
		fmt.Fprintf(w, "\n%d/%d verified\n", verified, len(results))
	}
}
