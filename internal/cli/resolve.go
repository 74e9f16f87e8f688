package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/tuition/internal/resolve"
)

// criteriaFlags are the resolution flags shared by resolve and quote.
type criteriaFlags struct {
	Program   string
	Year      string
	Term      string
	EntryYear int
	Snapshot  string
}

func (f *criteriaFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Program, "program", "p", "", "program id (required)")
	cmd.Flags().StringVarP(&f.Year, "year", "y", string(resolve.Current), "academic year label (current|next)")
	cmd.Flags().StringVarP(&f.Term, "term", "t", "", "term name or ordinal: winter, spring, summer, fall (required)")
	cmd.Flags().IntVar(&f.EntryYear, "entry-year", 0, "calendar year a continuing student entered the program")
	cmd.Flags().StringVar(&f.Snapshot, "snapshot", "", "resolve against a catalog snapshot file instead of the database")
	_ = cmd.MarkFlagRequired("program")
	_ = cmd.MarkFlagRequired("term")
}

func (f *criteriaFlags) criteria() (resolve.Criteria, error) {
	label, err := resolve.ParseLabel(f.Year)
	if err != nil {
		return resolve.Criteria{}, err
	}
	term, err := resolve.ParseTerm(f.Term)
	if err != nil {
		return resolve.Criteria{}, err
	}
	c := resolve.Criteria{
		ProgramID:    strings.TrimSpace(f.Program),
		AcademicYear: label,
		Term:         term,
		EntryYear:    f.EntryYear,
	}
	return c, c.Validate()
}

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	criteriaFlags
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Find the rate that applies to a program, year and term",
		Long: `Find the single rate that applies to a student.

A new student is priced from the calendar year the requested term falls in;
a continuing student (--entry-year) from their entry year, walking forward
term by term. When the next academic year has no rates yet, the current
year is used and the result says so.

Example:
  tuition resolve --program BU_ACTG --term fall
  tuition resolve --program BU_ACTG --year next --term spring --entry-year 2022`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	opts.bind(cmd)

	return cmd
}

// ResolveResult is a match together with the criteria that produced it.
type ResolveResult struct {
	resolve.Match
	AcademicYear   string `json:"academic_year"`
	Term           string `json:"term"`
	YearDisclaimer bool   `json:"year_disclaimer"`
}

func newResolveResult(c resolve.Criteria, m resolve.Match) ResolveResult {
	return ResolveResult{
		Match:          m,
		AcademicYear:   m.YearUsed.String(),
		Term:           m.Slot.Term.String(),
		YearDisclaimer: m.NeedsYearDisclaimer(c),
	}
}

func (r ResolveResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Program:         %s (%s)\n", r.Program, r.ProgramCode)
	fmt.Fprintf(&sb, "College:         %s (%s)\n", r.College, r.CollegeCode)
	fmt.Fprintf(&sb, "Academic year:   %s\n", r.AcademicYear)
	fmt.Fprintf(&sb, "Term:            %s (%s)\n", r.Term, r.TermCode)
	fmt.Fprintf(&sb, "Per credit:      %s\n", r.Rate.PerCredit.StringFixed(2))
	fmt.Fprintf(&sb, "Per term:        %s\n", r.Rate.AmountPerTerm.StringFixed(2))
	fmt.Fprintf(&sb, "Average credits: %s\n", r.Rate.AverageCredits.String())
	fmt.Fprintf(&sb, "Billed per term: %s\n", yesNo(r.Rate.BilledPerTerm))
	fmt.Fprintf(&sb, "Flat rate:       %s", yesNo(r.Rate.FlatRate))
	if r.YearDisclaimer {
		sb.WriteString("\nNote: next year's rates are not available yet; showing " + r.AcademicYear)
	}
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	c, m, err := resolveCriteria(opts.RootOptions, &opts.criteriaFlags, formatter, cmd)
	if err != nil {
		return err
	}
	return formatter.Success(newResolveResult(c, m))
}

// resolveCriteria parses the flags, loads the catalog and resolves. Every
// failure has already been reported through formatter.
func resolveCriteria(root *RootOptions, f *criteriaFlags, formatter *OutputFormatter, cmd *cobra.Command) (resolve.Criteria, resolve.Match, error) {
	c, err := f.criteria()
	if err != nil {
		return c, resolve.Match{}, formatter.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid criteria", err)
	}

	catalog, years, err := loadCatalog(cmd.Context(), root, f.Snapshot)
	if err != nil {
		return c, resolve.Match{}, formatter.Fail(GetExitCode(err), ErrCodeStore, "failed to load catalog", err)
	}

	m, ok := resolve.Resolve(catalog, years, c)
	if !ok {
		msg := fmt.Sprintf("no rate for program %s, %s year (%s), %s term", c.ProgramID, c.AcademicYear, years.Literal(c.AcademicYear), c.Term)
		return c, resolve.Match{}, formatter.Fail(ExitFailure, ErrCodeNoMatch, msg, nil)
	}
	formatter.VerboseLog("matched %s in %s (year switch: %t)", m.TermCode, m.YearUsed, m.YearSwitch)
	return c, m, nil
}

// QuoteOptions holds flags for the quote command.
type QuoteOptions struct {
	*RootOptions
	criteriaFlags
	Credits string
}

// NewQuoteCommand creates the quote command.
func NewQuoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QuoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Estimate annual tuition for a program, year and term",
		Long: `Resolve a rate and estimate annual tuition from it.

Rates billed per term cost three terms a year. Per-credit rates need
--credits. Continuing students on a historical flat rate are pointed
to the flat-rate information page instead of a quote.

Example:
  tuition quote --program BU_ACTG --term fall --credits 36
  tuition quote --program LAW_JD --year next --term fall`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Credits, "credits", "", "credits per academic year (per-credit rates)")

	return cmd
}

// QuoteResult is a resolved rate with its annual cost, or the flat-rate
// redirect that replaces it.
type QuoteResult struct {
	ResolveResult
	Cost         *resolve.Cost `json:"cost,omitempty"`
	FlatRate     bool          `json:"flat_rate_redirect"`
	FlatRateLink string        `json:"flat_rate_link,omitempty"`
}

func (r QuoteResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s), %s %s\n", r.Program, r.ProgramCode, r.Term, r.AcademicYear)
	if r.FlatRate {
		sb.WriteString("Continuing students on the flat-rate plan are not quoted per credit.")
		if r.FlatRateLink != "" {
			sb.WriteString("\nSee " + r.FlatRateLink)
		}
		return sb.String()
	}
	c := r.Cost
	if c.Unit == resolve.UnitCredit {
		fmt.Fprintf(&sb, "%s per %s x %s credits\n", c.UnitCost.StringFixed(2), c.Unit, c.Credits.String())
	} else {
		fmt.Fprintf(&sb, "%s per %s x 3 terms\n", c.UnitCost.StringFixed(2), c.Unit)
	}
	fmt.Fprintf(&sb, "Annual: %s", c.Annual.StringFixed(2))
	if r.YearDisclaimer {
		sb.WriteString("\nNote: next year's rates are not available yet; showing " + r.AcademicYear)
	}
	return sb.String()
}

func runQuote(opts *QuoteOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	credits := decimal.Zero
	if opts.Credits != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(opts.Credits))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("invalid --credits %q", opts.Credits), err)
		}
		credits = d
	}

	c, m, err := resolveCriteria(opts.RootOptions, &opts.criteriaFlags, formatter, cmd)
	if err != nil {
		return err
	}
	result := QuoteResult{ResolveResult: newResolveResult(c, m)}

	if resolve.RedirectsToFlatRate(c, m) {
		result.FlatRate = true
		if cfg, err := loadConfig(opts.RootOptions); err == nil {
			result.FlatRateLink = cfg.FlatRateLink
		}
		return formatter.Success(result)
	}

	cost, err := resolve.Quote(m, credits)
	if errors.Is(err, resolve.ErrCreditsRequired) {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, "--credits is required for a per-credit rate", err)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to quote", err)
	}
	result.Cost = &cost
	return formatter.Success(result)
}
