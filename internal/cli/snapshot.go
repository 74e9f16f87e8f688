package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/tuition/internal/resolve"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	Output string
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write the program catalog as JSON",
		Long: `Write the program catalog for the current and next academic years as a
JSON snapshot. Presentation clients resolve against the snapshot; resolve,
quote and programs accept it with --snapshot.

Example:
  tuition snapshot > catalog.json
  tuition snapshot -o ./public/catalog.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output file, - for stdout")

	return cmd
}

// SnapshotResult reports a snapshot written to a file.
type SnapshotResult struct {
	Path     string `json:"path"`
	Programs int    `json:"programs"`
}

func (r SnapshotResult) String() string {
	return fmt.Sprintf("Wrote %d program(s) to %s", r.Programs, r.Path)
}

func runSnapshot(opts *SnapshotOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	catalog, years, err := loadCatalog(cmd.Context(), opts.RootOptions, "")
	if err != nil {
		return formatter.Fail(GetExitCode(err), ErrCodeStore, "failed to load catalog", err)
	}

	data, err := json.MarshalIndent(resolve.NewSnapshot(catalog, years), "", "  ")
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to encode snapshot", err)
	}
	data = append(data, '\n')

	// Stdout carries the snapshot itself in either format
	if opts.Output == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to create output directory", err)
		}
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write snapshot", err)
	}
	return formatter.Success(SnapshotResult{Path: opts.Output, Programs: catalog.Len()})
}
