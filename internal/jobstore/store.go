package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jukebox/internal/config"
)

// Store manages job persistence backed by SQLite. It is the sole writer of
// ingestion job rows; all status transitions go through its methods.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jukebox.db")
	return OpenPath(dbPath)
}

// OpenPath opens the job database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem location of the job database.
func (s *Store) Path() string {
	return s.path
}

// SeedTrack inserts a track row carrying a catalog reference. Track rows are
// normally owned by the playlist CRUD surface; this entry point exists for the
// operator CLI and tests.
func (s *Store) SeedTrack(ctx context.Context, title, reference string) error {
	title = strings.TrimSpace(title)
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return errors.New("catalog reference is required")
	}
	if title == "" {
		title = reference
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO tracks (title, catalog_reference, created_at) VALUES (?, ?, ?)`,
		title,
		reference,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

// GetByReference fetches a job by catalog reference. Returns nil when no job
// row exists for the reference.
func (s *Store) GetByReference(ctx context.Context, reference string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM ingestion_jobs WHERE reference = ?`, reference)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), ordered by reference.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM ingestion_jobs`
	orderClause := ` ORDER BY reference`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM ingestion_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the job database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("job database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat job database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("job database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("job database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping job database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ingestion_jobs'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM ingestion_jobs")
		if err := row.Scan(&health.TotalJobs); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count jobs: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

const jobColumns = "reference, status, retry_count, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		reference    string
		statusStr    string
		retryCount   int
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&reference,
		&statusStr,
		&retryCount,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		Reference:    reference,
		Status:       Status(statusStr),
		RetryCount:   retryCount,
		ErrorMessage: errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
