package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotProcessing indicates a terminal transition was requested for a job that
// is not currently claimed.
var ErrNotProcessing = errors.New("job is not in processing")

// CompleteJob transitions a claimed job to completed and clears its error text.
func (s *Store) CompleteJob(ctx context.Context, reference string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ingestion_jobs SET status = ?, error_message = NULL, updated_at = ?
         WHERE reference = ? AND status = ?`,
		StatusCompleted,
		time.Now().UTC().Format(time.RFC3339Nano),
		reference,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complete %q: %w", reference, ErrNotProcessing)
	}
	return nil
}

// ResolveFailure records a pipeline failure for a claimed job. Jobs whose
// pre-failure retry count is below MaxRetries return to pending with the count
// incremented; exhausted jobs become failed. The resulting status is returned
// so callers can tell a requeue from a terminal failure.
func (s *Store) ResolveFailure(ctx context.Context, reference, detail string) (Status, error) {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin failure tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var retryCount int
	row := tx.QueryRowContext(
		ctx,
		`SELECT retry_count FROM ingestion_jobs WHERE reference = ? AND status = ?`,
		reference,
		StatusProcessing,
	)
	if err := row.Scan(&retryCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("resolve failure for %q: %w", reference, ErrNotProcessing)
		}
		return "", fmt.Errorf("read retry count: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	next := StatusPending
	if retryCount >= MaxRetries {
		next = StatusFailed
	}

	if next == StatusPending {
		_, err = tx.ExecContext(
			ctx,
			`UPDATE ingestion_jobs SET status = ?, retry_count = retry_count + 1, error_message = ?, updated_at = ?
             WHERE reference = ? AND status = ?`,
			StatusPending,
			nullableString(detail),
			now,
			reference,
			StatusProcessing,
		)
	} else {
		_, err = tx.ExecContext(
			ctx,
			`UPDATE ingestion_jobs SET status = ?, error_message = ?, updated_at = ?
             WHERE reference = ? AND status = ?`,
			StatusFailed,
			nullableString(detail),
			now,
			reference,
			StatusProcessing,
		)
	}
	if err != nil {
		return "", fmt.Errorf("persist failure transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit failure transition: %w", err)
	}
	return next, nil
}

// ResetProcessing returns every in-flight job to pending with an explanatory
// message, leaving retry counts untouched. Invoked once during daemon shutdown
// so no job stays stranded in processing after a worker dies mid-flight.
func (s *Store) ResetProcessing(ctx context.Context, reason string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ingestion_jobs SET status = ?, error_message = ?, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		nullableString(reason),
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset processing jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to pending for reprocessing, resetting
// their retry budget. Operator intervention only; normal processing never
// leaves the failed state.
func (s *Store) RetryFailed(ctx context.Context, references ...string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if len(references) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE ingestion_jobs SET status = ?, retry_count = 0, error_message = NULL, updated_at = ?
             WHERE status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(references))
	args := make([]any, 0, len(references)+3)
	args = append(args, StatusPending, now, StatusFailed)
	for _, ref := range references {
		args = append(args, ref)
	}
	query := `UPDATE ingestion_jobs SET status = ?, retry_count = 0, error_message = NULL, updated_at = ?
        WHERE status = ? AND reference IN (` + placeholders + `)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}
