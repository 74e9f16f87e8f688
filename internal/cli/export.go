package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/tuition/internal/export"
	"github.com/roach88/tuition/internal/rate"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Year   string
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rate records as CSV",
		Long: `Export every rate record, active or not, as a UTF-8 CSV with the
WSTPTUI_* column layout, sorted by college and program.

With -o pointing at a directory the file is named
du_tuition_db[_year-<year>]_<timestamp>.csv.

Example:
  tuition export > rates.csv
  tuition export --year 2023-2024 -o ./exports`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Year, "year", "", "only records of this academic year, e.g. 2023-2024")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output directory, - for stdout")

	return cmd
}

// ExportResult reports an export written to a file.
type ExportResult struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

func (r ExportResult) String() string {
	return fmt.Sprintf("Exported %d row(s) to %s", r.Rows, r.Path)
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Year != "" && !rate.IsAcademicYear(opts.Year) {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("invalid --year %q", opts.Year), nil)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load settings", err)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st)

	if opts.Output == "-" {
		n, err := export.Write(cmd.Context(), cmd.OutOrStdout(), st, opts.Year)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to export", err)
		}
		slog.Debug("export written", "rows", n)
		return nil
	}

	if err := os.MkdirAll(opts.Output, 0755); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to create output directory", err)
	}
	path := filepath.Join(opts.Output, export.FileName(opts.Year, opts.now()))
	f, err := os.Create(path)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to create export file", err)
	}

	n, err := export.Write(cmd.Context(), f, st, opts.Year)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to export", err)
	}
	return formatter.Success(ExportResult{Path: path, Rows: n})
}
