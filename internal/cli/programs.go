package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tuition/internal/resolve"
)

// ProgramsOptions holds flags for the programs command.
type ProgramsOptions struct {
	*RootOptions
	College  string
	Colleges bool
	Snapshot string
}

// NewProgramsCommand creates the programs command.
func NewProgramsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProgramsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "programs",
		Short: "List programs or colleges with current or next year rates",
		Long: `List the program selector: every program with active rates in the current
or next academic year, labelled "Name (CODE)" and sorted by label.

Example:
  tuition programs
  tuition programs --college BU
  tuition programs --colleges`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrograms(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.College, "college", "", "only programs of this college code")
	cmd.Flags().BoolVar(&opts.Colleges, "colleges", false, "list colleges instead of programs")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "read a catalog snapshot file instead of the database")

	return cmd
}

// OptionList is a selector list.
type OptionList []resolve.Option

func (l OptionList) String() string {
	if len(l) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, o := range l {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s\t%s", o.Value, o.Label)
	}
	return sb.String()
}

func runPrograms(opts *ProgramsOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Colleges && opts.College != "" {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, "--college and --colleges are mutually exclusive", nil)
	}

	catalog, _, err := loadCatalog(cmd.Context(), opts.RootOptions, opts.Snapshot)
	if err != nil {
		return formatter.Fail(GetExitCode(err), ErrCodeStore, "failed to load catalog", err)
	}

	if opts.Colleges {
		return formatter.Success(OptionList(catalog.Colleges()))
	}
	return formatter.Success(OptionList(catalog.Programs(opts.College)))
}
