// Package export writes the rate store as the registrar's tuition CSV.
//
// The file starts with a UTF-8 byte order mark, carries the fixed WSTPTUI
// header and lists every record (active or retired) sorted by college then
// program. Indicator columns are Y/N and zero amounts are left blank.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/tuition/internal/rate"
)

// Columns is the CSV header, in order.
var Columns = []string{
	"WSTPTUI_ACAD_YEAR",
	"WSTPTUI_TERM_CODE",
	"WSTPTUI_PROGRAM_CODE",
	"WSTPTUI_PROGRAM_DESC",
	"WSTPTUI_COLL_DESC",
	"WSTPTUI_DEGC_CODE",
	"WSTPTUI_DEGC_DESC",
	"WSTPTUI_PER_TERM_BILLED_IND",
	"WSTPTUI_PER_CREDIT_AMT",
	"WSTPTUI_FLAT_RATE_IND",
	"WSTPTUI_PER_TERM_AMT",
	"WSTPTUI_PUBLISH_IND",
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Source lists the records to export. *store.Store satisfies it.
type Source interface {
	ListForExport(ctx context.Context, academicYear string) ([]rate.Record, error)
}

// Write exports the records of academicYear (all years when empty) to w and
// returns the number of data rows written.
func Write(ctx context.Context, w io.Writer, src Source, academicYear string) (int, error) {
	records, err := src.ListForExport(ctx, academicYear)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if err := WriteRecords(w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// WriteRecords writes records in the given order.
func WriteRecords(w io.Writer, records []rate.Record) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("export: write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("export: write %s: %w", r.ExternalID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// Row formats one record in Columns order.
func Row(r rate.Record) []string {
	desc := r.Program
	if desc == "" {
		desc = r.Title
	}
	return []string{
		r.AcademicYear,
		r.TermCode,
		r.ProgramCode,
		desc,
		r.College,
		r.DegreeCode,
		r.Degree,
		yn(r.BilledPerTerm),
		amountOrBlank(r.PerCreditAmount),
		yn(r.FlatRate),
		amountOrBlank(r.AmountPerTerm),
		yn(r.Active),
	}
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func amountOrBlank(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}

var nonWord = regexp.MustCompile(`\W+`)

// FileName returns the download name for an export taken at now, e.g.
// "du_tuition_db_year-20232024_20240301_120000.csv".
func FileName(academicYear string, now time.Time) string {
	name := "du_tuition_db"
	if academicYear != "" {
		name += "_year-" + nonWord.ReplaceAllString(academicYear, "")
	}
	return name + "_" + now.Format("20060102_150405") + ".csv"
}
