package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bigsql/pgadmin4/internal/duckdb"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// SavedReport is the index entry for one stored report artifact.
type SavedReport struct {
	ID              int64     `duckdb:"report_id,pk" json:"id"`
	Name            string    `duckdb:"display_name" json:"name"`
	IsDirect        bool      `duckdb:"is_direct" json:"is_direct"`
	DatabaseName    string    `duckdb:"database_name" json:"database"`
	CreatedAt       time.Time `duckdb:"created_at,immutable" json:"created_at"`
	DurationSeconds float64   `duckdb:"duration_seconds" json:"duration_seconds"`
	StoragePath     string    `duckdb:"storage_path,immutable" json:"path"`
	Format          string    `duckdb:"format" json:"format"`
	SizeBytes       int64     `duckdb:"size_bytes" json:"size_bytes"`
	Checksum        string    `duckdb:"checksum" json:"checksum"`
}

// Duration is DurationSeconds as a time.Duration.
func (r *SavedReport) Duration() time.Duration {
	return time.Duration(r.DurationSeconds * float64(time.Second))
}

// ReportFilter narrows ListSavedReports. Zero values match everything.
type ReportFilter struct {
	// Name matches display names case-insensitively by substring.
	Name     string
	Database string
	Direct   *bool
	// Since and Until bound created_at; Until is exclusive.
	Since time.Time
	Until time.Time
	Limit int
}

// NextReportID draws the next id from the report sequence within tx.
func (d *Database) NextReportID(ctx context.Context, tx *sql.Tx) (int64, error) {
	query := "SELECT nextval('" + savedReportsSequence + "')"
	d.trace(query)

	var id int64
	if err := tx.QueryRowContext(ctx, query).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate report id: %w", err)
	}
	return id, nil
}

// InsertSavedReportTx writes an index entry as part of tx. A second entry
// with the same storage path violates the unique constraint.
func (d *Database) InsertSavedReportTx(ctx context.Context, tx *sql.Tx, r *SavedReport) error {
	if err := d.reports.WithTx(tx).Insert(ctx, r); err != nil {
		return fmt.Errorf("failed to insert saved report: %w", err)
	}
	return nil
}

// PathExists reports whether an index entry already claims path.
func (d *Database) PathExists(ctx context.Context, path string) (bool, error) {
	query := "SELECT count(*) FROM " + savedReportsTable + " WHERE storage_path = ?"
	d.trace(query, path)

	var n int64
	if err := d.db.QueryRowContext(ctx, query, path).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check report path: %w", err)
	}
	return n > 0, nil
}

// GetSavedReport loads one entry. An unknown id is a NotFound error.
func (d *Database) GetSavedReport(ctx context.Context, id int64) (*SavedReport, error) {
	r, err := d.reports.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pgerrors.Errorf(pgerrors.KindNotFound, "database.GetSavedReport", "report %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved report: %w", err)
	}
	return r, nil
}

// ListSavedReports returns matching entries newest first. Reports created in
// the same instant are ordered by descending id.
func (d *Database) ListSavedReports(ctx context.Context, f ReportFilter) ([]*SavedReport, error) {
	qb := duckdb.NewQueryBuilder(savedReportsTable).
		Contains("display_name", f.Name).
		Eq("database_name", f.Database).
		OrderBy("-created_at", "-report_id").
		Limit(f.Limit)
	if f.Direct != nil {
		qb.Where("is_direct = ?", *f.Direct)
	}
	if !f.Since.IsZero() {
		qb.Gte("created_at", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		qb.Lt("created_at", f.Until.UTC())
	}

	reports, err := d.reports.Query(ctx, qb)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved reports: %w", err)
	}
	return reports, nil
}

// DeleteSavedReport removes an entry and reports whether it existed.
func (d *Database) DeleteSavedReport(ctx context.Context, id int64) (bool, error) {
	deleted, err := d.reports.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete saved report: %w", err)
	}
	return deleted, nil
}
