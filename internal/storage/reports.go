package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Report is immutable once stored: weight and snapshot text are fixed at
// creation and never recomputed. At most one report exists per
// (reporter, message) pair.
type Report struct {
	ID                int64
	ReporterID        string
	MessageID         string
	AccountID         string
	VirtualProvider   string
	VirtualExternalID string
	Weight            float64
	SubmittedAt       time.Time
	SnapshotText      string
}

const insertIfAbsentAttempts = 2

// InsertReportIfAbsent stores the report unless one already exists for the
// same (reporter, message) pair, in which case the stored report is returned
// untouched. The second return value is true only for a genuine first insert.
// A transient race where neither the insert nor the re-select lands is
// retried up to insertIfAbsentAttempts times before surfacing ErrConflict.
func (s *Store) InsertReportIfAbsent(ctx context.Context, report Report) (Report, bool, error) {
	for attempt := 0; attempt < insertIfAbsentAttempts; attempt++ {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO reports (
				reporter_id, message_id, account_id, virtual_provider,
				virtual_external_id, weight, submitted_at, snapshot_text
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(reporter_id, message_id) DO NOTHING
		`,
			report.ReporterID,
			report.MessageID,
			report.AccountID,
			report.VirtualProvider,
			report.VirtualExternalID,
			report.Weight,
			report.SubmittedAt.Unix(),
			report.SnapshotText,
		)
		if err != nil {
			return Report{}, false, err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return Report{}, false, err
		}
		if affected > 0 {
			id, err := result.LastInsertId()
			if err != nil {
				return Report{}, false, err
			}
			report.ID = id
			return report, true, nil
		}

		existing, err := s.GetReport(ctx, report.ReporterID, report.MessageID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Report{}, false, err
		}
	}
	return Report{}, false, ErrConflict
}

func (s *Store) GetReport(ctx context.Context, reporterID, messageID string) (Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, reporter_id, message_id, account_id, virtual_provider,
		       virtual_external_id, weight, submitted_at, snapshot_text
		FROM reports
		WHERE reporter_id = ? AND message_id = ?
	`, reporterID, messageID)
	return scanReport(row)
}

// ReportsForAccount returns reports filed against a native account inside the
// window. Reports carrying a virtual identity never match here.
func (s *Store) ReportsForAccount(ctx context.Context, accountID string, since time.Time) ([]Report, error) {
	return s.queryReports(ctx, `
		SELECT id, reporter_id, message_id, account_id, virtual_provider,
		       virtual_external_id, weight, submitted_at, snapshot_text
		FROM reports
		WHERE account_id = ? AND virtual_external_id = '' AND submitted_at >= ?
	`, accountID, since.Unix())
}

// ReportsForVirtualIdentity matches on the exact (provider, external id)
// pair. Distinct virtual identities relayed through the same underlying
// account are distinct targets.
func (s *Store) ReportsForVirtualIdentity(ctx context.Context, provider, externalID string, since time.Time) ([]Report, error) {
	return s.queryReports(ctx, `
		SELECT id, reporter_id, message_id, account_id, virtual_provider,
		       virtual_external_id, weight, submitted_at, snapshot_text
		FROM reports
		WHERE virtual_provider = ? AND virtual_external_id = ? AND submitted_at >= ?
	`, provider, externalID, since.Unix())
}

func (s *Store) ReportsForMessage(ctx context.Context, messageID string, since time.Time) ([]Report, error) {
	return s.queryReports(ctx, `
		SELECT id, reporter_id, message_id, account_id, virtual_provider,
		       virtual_external_id, weight, submitted_at, snapshot_text
		FROM reports
		WHERE message_id = ? AND submitted_at >= ?
	`, messageID, since.Unix())
}

func (s *Store) queryReports(ctx context.Context, query string, args ...any) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var report Report
		var submitted int64
		if err := rows.Scan(
			&report.ID,
			&report.ReporterID,
			&report.MessageID,
			&report.AccountID,
			&report.VirtualProvider,
			&report.VirtualExternalID,
			&report.Weight,
			&submitted,
			&report.SnapshotText,
		); err != nil {
			return nil, err
		}
		report.SubmittedAt = time.Unix(submitted, 0)
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanReport(row *sql.Row) (Report, error) {
	var report Report
	var submitted int64
	err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&report.MessageID,
		&report.AccountID,
		&report.VirtualProvider,
		&report.VirtualExternalID,
		&report.Weight,
		&submitted,
		&report.SnapshotText,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, err
	}
	report.SubmittedAt = time.Unix(submitted, 0)
	return report, nil
}
