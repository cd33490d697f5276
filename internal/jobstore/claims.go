package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClaimNext atomically acquires at most one ingestible catalog reference. It
// selects the first reference that has no job row or a pending one, then either
// flips the existing row to processing or inserts a fresh processing row. Under
// concurrent callers at most one observes success for a given reference; a
// coordinator that loses the insert race simply reports no claim.
//
// A commit failure leaves no job state behind and is safe to retry on the
// caller's next loop iteration.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT t.catalog_reference
         FROM tracks t
         LEFT JOIN ingestion_jobs j ON j.reference = t.catalog_reference
         WHERE t.catalog_reference IS NOT NULL AND t.catalog_reference != ''
           AND (j.reference IS NULL OR j.status = ?)
         ORDER BY t.catalog_reference
         LIMIT 1`,
		StatusPending,
	)

	var reference string
	if err := row.Scan(&reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select claim candidate: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := tx.ExecContext(
		ctx,
		`UPDATE ingestion_jobs SET status = ?, updated_at = ? WHERE reference = ? AND status = ?`,
		StatusProcessing,
		now,
		reference,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim existing job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim rows affected: %w", err)
	}

	if affected == 0 {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO ingestion_jobs (reference, status, retry_count, error_message, created_at, updated_at)
             VALUES (?, ?, 0, NULL, ?, ?)`,
			reference,
			StatusProcessing,
			now,
			now,
		)
		if err != nil {
			// A racing coordinator won the insert; this attempt yields no claim.
			if isUniqueViolation(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("insert claimed job: %w", err)
		}
	}

	claimed, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM ingestion_jobs WHERE reference = ?`, reference))
	if err != nil {
		return nil, fmt.Errorf("read claimed job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return claimed, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() {
		case 19, 1555, 2067: // SQLITE_CONSTRAINT and its PRIMARYKEY/UNIQUE extensions
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}
