package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tuition/internal/pipeline"
	"github.com/roach88/tuition/internal/rate"
)

// QueueOptions holds flags for the queue command.
type QueueOptions struct {
	*RootOptions
	Years []string
}

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue a feed refresh for the current and next academic years",
		Long: `Queue one year task per academic year. Each year task fetches the feed
for that year when the worker runs, then fans out record updates and
retirements.

Without --year, the configured current and next academic years are queued.

Example:
  tuition queue
  tuition queue --year 2023-2024`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueue(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Years, "year", nil, "academic year to queue, e.g. 2023-2024 (repeatable)")

	return cmd
}

// QueueResult lists the tasks a queue command enqueued.
type QueueResult struct {
	Tasks []QueuedTask `json:"tasks"`
}

// QueuedTask is one enqueued task.
type QueuedTask struct {
	ID           string `json:"id"`
	Queue        string `json:"queue"`
	AcademicYear string `json:"academic_year,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
}

func (r QueueResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Queued %d task(s)", len(r.Tasks))
	for _, t := range r.Tasks {
		target := t.AcademicYear
		if t.ExternalID != "" {
			target = t.ExternalID
		}
		fmt.Fprintf(&sb, "\n  %s %s (%s)", t.Queue, target, t.ID)
	}
	return sb.String()
}

func runQueue(opts *QueueOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load settings", err)
	}

	var years []rate.AcademicYear
	if len(opts.Years) == 0 {
		ys, err := cfg.Years(opts.now())
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid academic year setting", err)
		}
		years = []rate.AcademicYear{ys.Current, ys.Next}
	}
	for _, s := range opts.Years {
		y, err := rate.ParseAcademicYear(s)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("invalid --year %q", s), err)
		}
		years = append(years, y)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st)

	sched := pipeline.NewScheduler(st, newFeed(cfg), pipelineOptions(opts.RootOptions, cfg))
	tasks, err := sched.QueueYears(cmd.Context(), years...)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, "failed to queue years", err)
	}

	result := QueueResult{}
	for _, t := range tasks {
		result.Tasks = append(result.Tasks, QueuedTask{ID: t.ID, Queue: t.Queue, AcademicYear: t.AcademicYear})
	}
	return formatter.Success(result)
}

// NewQueueRecordCommand creates the queue-record command.
func NewQueueRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "queue-record <external-id>",
		Short: "Fetch one record from the feed and queue its update",
		Long: `Fetch a single rate record by its external id and queue an upsert for it.
The record is applied by the next worker run.

Example:
  tuition queue-record 2023-2024_202370_BU_ACTG`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueRecord(opts, args[0], cmd)
		},
	}

	return cmd
}

func runQueueRecord(opts *QueueOptions, externalID string, cmd *cobra.Command) error {
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

	sched := pipeline.NewScheduler(st, newFeed(cfg), pipelineOptions(opts.RootOptions, cfg))
	task, err := sched.QueueRecord(cmd.Context(), externalID)
	if err != nil {
		return failQueueRecord(formatter, externalID, err)
	}

	return formatter.Success(QueueResult{Tasks: []QueuedTask{{
		ID:         task.ID,
		Queue:      task.Queue,
		ExternalID: task.ExternalID,
	}}})
}

func failQueueRecord(formatter *OutputFormatter, externalID string, err error) error {
	var taskErr *pipeline.TaskError
	if !errors.As(err, &taskErr) {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to queue record", err)
	}
	switch taskErr.Code {
	case pipeline.ErrCodeMissingFeedURL:
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "feed URL is not configured", err)
	case pipeline.ErrCodeInvalidTask:
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("invalid external id %q", externalID), err)
	case pipeline.ErrCodeStoreFailure:
		return formatter.Fail(ExitFailure, ErrCodeStore, "failed to queue record", err)
	default:
		return formatter.Fail(ExitFailure, ErrCodeFeed, fmt.Sprintf("failed to fetch record %s", externalID), err)
	}
}
