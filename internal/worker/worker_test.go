package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jukebox/internal/jobstore"
	"jukebox/internal/testsupport"
	"jukebox/internal/worker"
)

type fakeIngestor struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, reference string) error
}

func (f *fakeIngestor) Ingest(ctx context.Context, reference string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, reference)
}

func (f *fakeIngestor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (r *recordingNotifier) NotifyIngestCompleted(_ context.Context, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, reference)
	return nil
}

func (r *recordingNotifier) NotifyIngestFailed(_ context.Context, reference, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, reference)
	return nil
}

func (r *recordingNotifier) NotifyWorkerStopped(context.Context, int64) error { return nil }

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) snapshot() (completed, failed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.completed...), append([]string(nil), r.failed...)
}

func newTestWorker(t *testing.T, store *jobstore.Store, ingestor worker.Ingestor, notifier *recordingNotifier) *worker.Worker {
	t.Helper()
	return worker.NewWithIntervals(store, ingestor, notifier, nil, 10*time.Millisecond, time.Millisecond, 10*time.Millisecond)
}

func waitForStatus(t *testing.T, store *jobstore.Store, reference string, want jobstore.Status) *jobstore.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByReference(context.Background(), reference)
		if err != nil {
			t.Fatalf("GetByReference: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", reference, want)
	return nil
}

func TestWorkerCompletesJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track One", "trk-1")

	ingestor := &fakeIngestor{fn: func(context.Context, string) error { return nil }}
	notifier := &recordingNotifier{}
	w := newTestWorker(t, store, ingestor, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitForStatus(t, store, "trk-1", jobstore.StatusCompleted)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	completed, failed := notifier.snapshot()
	if len(completed) != 1 || completed[0] != "trk-1" {
		t.Errorf("completed notifications = %v, want [trk-1]", completed)
	}
	if len(failed) != 0 {
		t.Errorf("unexpected failure notifications: %v", failed)
	}
}

func TestWorkerExhaustsRetriesThenFails(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track Two", "trk-2")

	ingestor := &fakeIngestor{fn: func(context.Context, string) error {
		return errors.New("stream stalled beyond inactivity window")
	}}
	notifier := &recordingNotifier{}
	w := newTestWorker(t, store, ingestor, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	job := waitForStatus(t, store, "trk-2", jobstore.StatusFailed)
	cancel()
	<-done

	if job.RetryCount != jobstore.MaxRetries {
		t.Errorf("retry count = %d, want %d", job.RetryCount, jobstore.MaxRetries)
	}
	if got, want := ingestor.callCount(), jobstore.MaxRetries+1; got != want {
		t.Errorf("ingest attempts = %d, want %d", got, want)
	}
	if job.ErrorMessage == "" {
		t.Error("terminal job should carry the last failure detail")
	}

	completed, failed := notifier.snapshot()
	if len(failed) != 1 || failed[0] != "trk-2" {
		t.Errorf("failure notifications = %v, want [trk-2]", failed)
	}
	if len(completed) != 0 {
		t.Errorf("unexpected completion notifications: %v", completed)
	}
}

func TestWorkerRequeuesBeforeExhaustion(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track Three", "trk-3")

	// Fail twice, then succeed. The job should complete with both failures
	// recorded in the retry count along the way.
	var mu sync.Mutex
	failures := 0
	ingestor := &fakeIngestor{fn: func(context.Context, string) error {
		mu.Lock()
		defer mu.Unlock()
		if failures < 2 {
			failures++
			return errors.New("provider returned 503")
		}
		return nil
	}}
	notifier := &recordingNotifier{}
	w := newTestWorker(t, store, ingestor, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	job := waitForStatus(t, store, "trk-3", jobstore.StatusCompleted)
	cancel()
	<-done

	if job.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", job.RetryCount)
	}
	_, failed := notifier.snapshot()
	if len(failed) != 0 {
		t.Errorf("transient failures must not notify, got %v", failed)
	}
}

func TestWorkerShutdownLeavesJobClaimed(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedTrack(t, store, "Track Four", "trk-4")

	started := make(chan struct{})
	ingestor := &fakeIngestor{fn: func(ctx context.Context, _ string) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	notifier := &recordingNotifier{}
	w := newTestWorker(t, store, ingestor, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	// The interrupted claim is left for the daemon's shutdown reconciliation.
	job, err := store.GetByReference(context.Background(), "trk-4")
	if err != nil {
		t.Fatalf("GetByReference: %v", err)
	}
	if job == nil || job.Status != jobstore.StatusProcessing {
		t.Fatalf("job = %+v, want status processing", job)
	}

	completed, failed := notifier.snapshot()
	if len(completed) != 0 || len(failed) != 0 {
		t.Errorf("shutdown must not notify, got completed=%v failed=%v", completed, failed)
	}
}
