package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/tuition/internal/rate"
)

const rateColumns = `id, external_id, academic_year, academic_term, term_code,
	title, program, program_code, college, college_code, department, department_code,
	degree, degree_code, level, level_code, major, major_code, cohort_code, detail_code,
	per_credit, average_credits, amount_per_term, billed_per_term, flat_rate,
	active, source_updated_at, local_updated_at`

// FindByKey returns every record matching the natural key, active or not,
// ordered by local id. Returns an empty slice (not nil) when none match.
func (s *Store) FindByKey(ctx context.Context, key rate.Key) ([]rate.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+rateColumns+`
		FROM rates
		WHERE external_id = ? AND academic_term = ? AND term_code = ?
		ORDER BY id ASC
	`, key.ExternalID, key.AcademicTerm, key.TermCode)
	if err != nil {
		return nil, fmt.Errorf("find by key: %w", err)
	}
	return collectRates(rows, "find by key")
}

// GetRate retrieves a single record by local id.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) GetRate(ctx context.Context, localID int64) (rate.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rateColumns+` FROM rates WHERE id = ?`, localID)
	r, err := scanRate(row)
	if err != nil {
		return rate.Record{}, fmt.Errorf("get rate %d: %w", localID, err)
	}
	return r, nil
}

// InsertRate persists a new record and returns its local id.
// Returns ErrDuplicateKey if a record with the same natural key exists.
func (s *Store) InsertRate(ctx context.Context, r rate.Record, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rates
		(external_id, academic_year, academic_term, term_code,
		 title, program, program_code, college, college_code, department, department_code,
		 degree, degree_code, level, level_code, major, major_code, cohort_code, detail_code,
		 per_credit, average_credits, amount_per_term, billed_per_term, flat_rate,
		 active, source_updated_at, local_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rateValues(r, now)...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert rate %s: %w", r.ExternalID, ErrDuplicateKey)
		}
		return 0, fmt.Errorf("insert rate %s: %w", r.ExternalID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert rate %s: last insert id: %w", r.ExternalID, err)
	}
	return id, nil
}

// UpdateRate overwrites the stored row identified by r.LocalID, provided
// the stored source timestamp is not newer than r.SourceUpdatedAt. The check
// and the write are one statement, so concurrent writers cannot move the
// timestamp backwards.
//
// Returns an error wrapping ErrStaleUpdate when the stored row is newer, and
// one wrapping sql.ErrNoRows if the row does not exist.
func (s *Store) UpdateRate(ctx context.Context, r rate.Record, now time.Time) error {
	args := append(rateValues(r, now), r.LocalID, toNanos(r.SourceUpdatedAt))
	res, err := s.db.ExecContext(ctx, `
		UPDATE rates SET
			external_id = ?, academic_year = ?, academic_term = ?, term_code = ?,
			title = ?, program = ?, program_code = ?, college = ?, college_code = ?,
			department = ?, department_code = ?, degree = ?, degree_code = ?,
			level = ?, level_code = ?, major = ?, major_code = ?, cohort_code = ?, detail_code = ?,
			per_credit = ?, average_credits = ?, amount_per_term = ?, billed_per_term = ?, flat_rate = ?,
			active = ?, source_updated_at = ?, local_updated_at = ?
		WHERE id = ? AND source_updated_at <= ?
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update rate %d: %w", r.LocalID, ErrDuplicateKey)
		}
		return fmt.Errorf("update rate %d: %w", r.LocalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rate %d: rows affected: %w", r.LocalID, err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM rates WHERE id = ?`, r.LocalID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("update rate %d: %w", r.LocalID, sql.ErrNoRows)
	case err != nil:
		return fmt.Errorf("update rate %d: %w", r.LocalID, err)
	default:
		return fmt.Errorf("update rate %d: %w", r.LocalID, ErrStaleUpdate)
	}
}

// SetActive flips the soft-delete marker of one record.
// Returns false without error when no row has that local id.
func (s *Store) SetActive(ctx context.Context, localID int64, active bool, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rates SET active = ?, local_updated_at = ? WHERE id = ?
	`, boolInt(active), toNanos(now), localID)
	if err != nil {
		return false, fmt.Errorf("set active %d: %w", localID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set active %d: rows affected: %w", localID, err)
	}
	return n > 0, nil
}

// ActiveByYear returns the active records of one academic year ordered by
// local id.
func (s *Store) ActiveByYear(ctx context.Context, academicYear string) ([]rate.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+rateColumns+`
		FROM rates
		WHERE academic_year = ? AND active = 1
		ORDER BY id ASC
	`, academicYear)
	if err != nil {
		return nil, fmt.Errorf("active by year: %w", err)
	}
	return collectRates(rows, "active by year")
}

// ListActive returns active records for the given academic years (all
// years when none are given), ordered by program then local id.
func (s *Store) ListActive(ctx context.Context, academicYears ...string) ([]rate.Record, error) {
	query := `SELECT ` + rateColumns + ` FROM rates WHERE active = 1`
	args := make([]any, 0, len(academicYears))
	if len(academicYears) > 0 {
		query += ` AND academic_year IN (` + placeholders(len(academicYears)) + `)`
		for _, y := range academicYears {
			args = append(args, y)
		}
	}
	query += ` ORDER BY program ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	return collectRates(rows, "list active")
}

// ListForExport returns every record, active or not, optionally limited to
// one academic year, ordered by college then program.
func (s *Store) ListForExport(ctx context.Context, academicYear string) ([]rate.Record, error) {
	query := `SELECT ` + rateColumns + ` FROM rates`
	var args []any
	if academicYear != "" {
		query += ` WHERE academic_year = ?`
		args = append(args, academicYear)
	}
	query += ` ORDER BY college ASC, program ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list for export: %w", err)
	}
	return collectRates(rows, "list for export")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func rateValues(r rate.Record, now time.Time) []any {
	return []any{
		r.ExternalID, r.AcademicYear, r.AcademicTerm, r.TermCode,
		r.Title, r.Program, r.ProgramCode, r.College, r.CollegeCode, r.Department, r.DepartmentCode,
		r.Degree, r.DegreeCode, r.Level, r.LevelCode, r.Major, r.MajorCode, r.CohortCode, r.DetailCode,
		r.PerCreditAmount.String(), r.AverageCreditsPerYear.String(), r.AmountPerTerm.String(),
		boolInt(r.BilledPerTerm), boolInt(r.FlatRate),
		boolInt(r.Active), toNanos(r.SourceUpdatedAt), toNanos(now),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRate(row rowScanner) (rate.Record, error) {
	var r rate.Record
	var perCredit, avgCredits, perTerm string
	var billed, flat, active int
	var sourceUpdated, localUpdated int64

	if err := row.Scan(
		&r.LocalID, &r.ExternalID, &r.AcademicYear, &r.AcademicTerm, &r.TermCode,
		&r.Title, &r.Program, &r.ProgramCode, &r.College, &r.CollegeCode, &r.Department, &r.DepartmentCode,
		&r.Degree, &r.DegreeCode, &r.Level, &r.LevelCode, &r.Major, &r.MajorCode, &r.CohortCode, &r.DetailCode,
		&perCredit, &avgCredits, &perTerm, &billed, &flat,
		&active, &sourceUpdated, &localUpdated,
	); err != nil {
		return rate.Record{}, err
	}

	var err error
	if r.PerCreditAmount, err = decimal.NewFromString(perCredit); err != nil {
		return rate.Record{}, fmt.Errorf("scan per_credit: %w", err)
	}
	if r.AverageCreditsPerYear, err = decimal.NewFromString(avgCredits); err != nil {
		return rate.Record{}, fmt.Errorf("scan average_credits: %w", err)
	}
	if r.AmountPerTerm, err = decimal.NewFromString(perTerm); err != nil {
		return rate.Record{}, fmt.Errorf("scan amount_per_term: %w", err)
	}
	r.BilledPerTerm = billed != 0
	r.FlatRate = flat != 0
	r.Active = active != 0
	r.SourceUpdatedAt = fromNanos(sourceUpdated)
	r.LocalUpdatedAt = fromNanos(localUpdated)
	return r, nil
}

func collectRates(rows *sql.Rows, op string) ([]rate.Record, error) {
	defer rows.Close()

	records := []rate.Record{}
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return records, nil
}
