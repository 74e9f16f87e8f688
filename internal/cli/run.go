package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tuition/internal/pipeline"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Follow bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued year and record tasks",
		Long: `Drain the year queue and then the record queue until both are empty.

Year tasks fetch the feed and fan out record updates and retirements; record
tasks apply them to the database. A failed task is logged and dropped; the
next queued year refresh retries it.

With --follow the worker keeps polling for new tasks until interrupted.

Example:
  tuition run
  tuition run --follow --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(opts, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "keep polling for new tasks until interrupted")

	return cmd
}

// RunResult summarizes a worker run.
type RunResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

func (r RunResult) String() string {
	return fmt.Sprintf("Processed %d task(s), %d failed", r.Processed, r.Failed)
}

func runWorker(opts *RunOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load settings", err)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st)

	// Setup signal handling for graceful shutdown
	ctx, cancel := signalContext(cmd)
	defer cancel()

	worker := pipeline.NewWorker(st, newFeed(cfg), pipelineOptions(opts.RootOptions, cfg))

	if opts.Follow {
		err := worker.Follow(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return formatter.Fail(ExitFailure, ErrCodeStore, "worker error", err)
		}
		slog.Info("worker stopped gracefully")
		return nil
	}

	stats, err := worker.Run(ctx)
	result := RunResult{Processed: stats.Processed, Failed: stats.Failed}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("worker interrupted", "processed", stats.Processed)
			return formatter.Success(result)
		}
		return formatter.Fail(ExitFailure, ErrCodeStore, "worker error", err)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if stats.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d task(s) failed", stats.Failed))
	}
	return nil
}
