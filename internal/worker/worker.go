package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jukebox/internal/jobstore"
	"jukebox/internal/logging"
	"jukebox/internal/notifications"
)

const (
	defaultPollInterval       = 5 * time.Second
	defaultPacingInterval     = 100 * time.Millisecond
	defaultErrorRetryInterval = 5 * time.Second

	persistAttempts = 5
	persistTimeout  = 3 * time.Second
	persistBackoff  = 500 * time.Millisecond

	// Claim failures are retried in place; this many in a row means the
	// database is gone and the daemon should crash rather than spin.
	maxConsecutiveClaimFailures = 5
)

// Ingestor runs the transfer for a single claimed reference. Satisfied by
// pipeline.Pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, reference string) error
}

// Worker drives the ingest loop: claim the next job, run the pipeline, and
// persist the outcome. One worker processes one job at a time.
type Worker struct {
	store    *jobstore.Store
	ingestor Ingestor
	notifier notifications.Service
	logger   *slog.Logger

	pollInterval       time.Duration
	pacingInterval     time.Duration
	errorRetryInterval time.Duration
}

func New(store *jobstore.Store, ingestor Ingestor, notifier notifications.Service, logger *slog.Logger) *Worker {
	return NewWithIntervals(store, ingestor, notifier, logger, defaultPollInterval, defaultPacingInterval, defaultErrorRetryInterval)
}

// NewWithIntervals overrides the loop timing. Used in tests; production
// callers take the defaults.
func NewWithIntervals(store *jobstore.Store, ingestor Ingestor, notifier notifications.Service, logger *slog.Logger, poll, pacing, errorRetry time.Duration) *Worker {
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &Worker{
		store:              store,
		ingestor:           ingestor,
		notifier:           notifier,
		logger:             logging.NewComponentLogger(logger, "worker"),
		pollInterval:       poll,
		pacingInterval:     pacing,
		errorRetryInterval: errorRetry,
	}
}

// Run processes jobs until ctx is cancelled or the job store becomes
// persistently unreachable. The context error is returned on shutdown;
// anything else is fatal and the caller should exit.
func (w *Worker) Run(ctx context.Context) error {
	claimFailures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := w.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			claimFailures++
			if claimFailures >= maxConsecutiveClaimFailures {
				return fmt.Errorf("claim next job failed %d times in a row: %w", claimFailures, err)
			}
			w.logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "claim_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"))
			if !w.sleep(ctx, w.errorRetryInterval) {
				return ctx.Err()
			}
			continue
		}
		claimFailures = 0

		if job == nil {
			if !w.sleep(ctx, w.pollInterval) {
				return ctx.Err()
			}
			continue
		}

		w.process(ctx, job)

		// Pacing between consecutive jobs keeps the provider polite without
		// slowing an otherwise idle loop.
		if !w.sleep(ctx, w.pacingInterval) {
			return ctx.Err()
		}
	}
}

func (w *Worker) process(ctx context.Context, job *jobstore.Job) {
	correlationID := uuid.NewString()
	ctx = logging.WithCorrelationID(ctx, correlationID)
	logger := w.logger.With(
		logging.String(logging.FieldReference, job.Reference),
		logging.String(logging.FieldCorrelationID, correlationID))

	logger.Info("ingest started",
		logging.Int("retry_count", job.RetryCount),
		logging.String(logging.FieldEventType, "ingest_started"))
	started := time.Now()

	err := w.ingestor.Ingest(ctx, job.Reference)
	switch {
	case err == nil:
		w.persistSuccess(ctx, logger, job.Reference)
		logger.Info("ingest completed",
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "ingest_completed"))

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Shutdown mid-transfer. The job stays in processing here; the
		// daemon's reconciliation pass returns it to pending.
		logger.Info("ingest interrupted by shutdown",
			logging.String(logging.FieldEventType, "ingest_interrupted"))

	default:
		w.persistFailure(ctx, logger, job.Reference, err)
	}
}

func (w *Worker) persistSuccess(ctx context.Context, logger *slog.Logger, reference string) {
	err := w.persist(ctx, func(pctx context.Context) error {
		return w.store.CompleteJob(pctx, reference)
	})
	if err != nil {
		// The audio is in the bucket but the record still says processing.
		// Re-running the job is safe: the upload is idempotent per key.
		logger.Error("failed to persist completion; job will be re-ingested",
			logging.Error(err),
			logging.String(logging.FieldEventType, "persist_failed"),
			logging.String(logging.FieldErrorHint, "check job database access"))
		return
	}

	if err := w.notifier.NotifyIngestCompleted(ctx, reference); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
}

func (w *Worker) persistFailure(ctx context.Context, logger *slog.Logger, reference string, ingestErr error) {
	detail := failureDetail(ingestErr)
	logger.Error("ingest failed",
		logging.Error(ingestErr),
		logging.String(logging.FieldEventType, "ingest_failed"))

	var resolved jobstore.Status
	err := w.persist(ctx, func(pctx context.Context) error {
		status, resolveErr := w.store.ResolveFailure(pctx, reference, detail)
		if resolveErr != nil {
			return resolveErr
		}
		resolved = status
		return nil
	})
	if err != nil {
		logger.Error("failed to persist failure outcome; job remains claimed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "persist_failed"),
			logging.String(logging.FieldErrorHint, "check job database access"))
		return
	}

	if resolved == jobstore.StatusFailed {
		logger.Error("retries exhausted, job marked failed",
			logging.String(logging.FieldEventType, "retries_exhausted"))
		if err := w.notifier.NotifyIngestFailed(ctx, reference, detail); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

// persist runs a job store write with bounded retries. Each attempt gets its
// own timeout and survives loop shutdown so an outcome that already happened
// is not lost to a cancelled context.
func (w *Worker) persist(ctx context.Context, fn func(context.Context) error) error {
	base := context.WithoutCancel(ctx)
	var lastErr error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(base, persistTimeout)
		lastErr = fn(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, jobstore.ErrNotProcessing) {
			return lastErr
		}
		if attempt < persistAttempts {
			time.Sleep(persistBackoff)
		}
	}
	return fmt.Errorf("after %d attempts: %w", persistAttempts, lastErr)
}

// sleep waits for d or until ctx is done, reporting whether the loop should
// continue.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func failureDetail(err error) string {
	if err == nil {
		return "ingest failed without error detail"
	}
	detail := err.Error()
	const maxDetail = 500
	if len(detail) > maxDetail {
		detail = detail[:maxDetail]
	}
	return detail
}
