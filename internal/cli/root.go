package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tuition/internal/pipeline"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // YAML settings file, optional
	DotEnv   string // .env file, ignored when absent
	Database string // overrides the configured database path

	// Now overrides the wall clock (for testing).
	// If nil, defaults to time.Now.
	Now func() time.Time

	// IDs overrides the task id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs pipeline.IDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tuition CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tuition",
		Short: "Tuition rate catalog",
		Long: `Keeps a local catalog of tuition rates in step with the registrar feed
and answers "what does this program cost" queries against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to YAML settings file")
	cmd.PersistentFlags().StringVar(&opts.DotEnv, "env-file", ".env", "path to .env file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides settings)")

	// Add subcommands
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewQueueRecordCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewQuoteCommand(opts))
	cmd.AddCommand(NewProgramsCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
